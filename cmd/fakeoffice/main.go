// fakeoffice is a local stand-in for the remote PMS, for developing the
// middleware without office credentials. It serves the rdvdentiste-style
// endpoints over an in-memory dataset and can reproduce the upstream's
// worst habit: with -flaky-cancel, deletes report success while the
// appointment stays active.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/go-chi/chi/v5"
)

type patient struct {
	ID        string `json:"identifier"`
	LastName  string `json:"lastName"`
	FirstName string `json:"firstName"`
	Mobile    string `json:"mobile"`
	BirthDate string `json:"birthDate"`
}

type appointment struct {
	RdvID       string  `json:"rdvId"`
	Date        string  `json:"date"`
	Start       string  `json:"start"`
	ServiceType svcType `json:"service_type"`
	Duration    int     `json:"duration"`
	Status      string  `json:"status"`
}

type svcType struct {
	Display string `json:"display"`
}

type store struct {
	mu           sync.Mutex
	patients     []patient
	appointments map[string][]appointment // patient id -> appointments
	flakyCancel  bool
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	port := flag.String("port", "9090", "listen port")
	patientCount := flag.Int("patients", 25, "number of fake patients")
	flaky := flag.Bool("flaky-cancel", false, "report cancellations as successful without applying them")
	flag.Parse()

	gofakeit.Seed(time.Now().UnixNano())

	s := &store{
		appointments: make(map[string][]appointment),
		flakyCancel:  *flaky,
	}
	s.seed(*patientCount)

	log.Printf("fakeoffice listening on :%s (patients=%d flaky_cancel=%v)", *port, *patientCount, *flaky)
	if err := http.ListenAndServe(":"+*port, s.router()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

var typeNames = []struct {
	code string
	name string
}{
	{"27", "Consultation - contrôle"},
	{"84", "Entretien et nettoyage"},
	{"61", "Détartrage complet"},
	{"52", "Essayage prothèse"},
	{"90", "Chirurgie - extraction"},
}

func (s *store) seed(count int) {
	for i := 0; i < count; i++ {
		p := patient{
			ID:        fmt.Sprintf("P%05d", gofakeit.Number(10000, 99999)),
			LastName:  gofakeit.LastName(),
			FirstName: gofakeit.FirstName(),
			Mobile:    "06" + gofakeit.DigitN(8),
			BirthDate: gofakeit.DateRange(time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)).Format("2006-01-02"),
		}
		s.patients = append(s.patients, p)

		for j := 0; j < gofakeit.Number(0, 3); j++ {
			t := typeNames[gofakeit.Number(0, len(typeNames)-1)]
			day := time.Now().AddDate(0, 0, gofakeit.Number(1, 30))
			id := fmt.Sprintf("D%06d", gofakeit.Number(100000, 999999))
			if gofakeit.Bool() {
				// Provisional request ids carry no D prefix.
				id = fmt.Sprintf("%06d", gofakeit.Number(100000, 999999))
			}
			s.appointments[p.ID] = append(s.appointments[p.ID], appointment{
				RdvID:       id,
				Date:        day.Format("2006-01-02"),
				Start:       fmt.Sprintf("%02d:%02d", gofakeit.Number(9, 17), 30*gofakeit.Number(0, 1)),
				ServiceType: svcType{Display: t.name},
				Duration:    30,
				Status:      "active",
			})
		}
	}
}

func (s *store) router() http.Handler {
	r := chi.NewRouter()

	r.Get("/patients/find", s.findPatients)
	r.Get("/patients/{id}/appointments", s.listAppointments)
	r.Delete("/schedules/{prac}/appointments/{id}/", s.cancel)
	r.Delete("/schedules/{prac}/appointment-requests/{id}/", s.cancel)
	r.Get("/schedules/{prac}/slots/{type}/", s.listSlots)
	r.Put("/schedules/{prac}/slots/{type}/{date}/{time}/", s.book)
	r.Get("/schedules", s.listSchedules)

	return r
}

func (s *store) findPatients(w http.ResponseWriter, r *http.Request) {
	mobile := r.URL.Query().Get("mobile")
	lastName := strings.ToLower(r.URL.Query().Get("lastName"))

	s.mu.Lock()
	defer s.mu.Unlock()

	var found []patient
	for _, p := range s.patients {
		if mobile != "" && p.Mobile != mobile {
			continue
		}
		if lastName != "" && strings.ToLower(p.LastName) != lastName {
			continue
		}
		found = append(found, p)
	}

	if len(found) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"Error": map[string]string{"code": "notFound", "text": "Not found"},
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"Patients": found})
}

func (s *store) listAppointments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	appts := s.appointments[id]
	if appts == nil {
		appts = []appointment{}
	}
	writeJSON(w, http.StatusOK, appts)
}

func (s *store) cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	for pid, appts := range s.appointments {
		for i, a := range appts {
			if a.RdvID != id {
				continue
			}
			if a.Status == "cancelled" {
				writeJSON(w, http.StatusBadRequest, map[string]any{
					"Error": map[string]string{"text": "appointment already cancelled"},
				})
				return
			}
			if !s.flakyCancel {
				s.appointments[pid][i].Status = "cancelled"
			}
			writeJSON(w, http.StatusOK, map[string]any{"done": true})
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]any{
		"Error": map[string]string{"code": "notFound", "text": "Not found"},
	})
}

func (s *store) listSlots(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	day, err := time.Parse("2006-01-02", start)
	if err != nil {
		day = time.Now()
	}

	// Raw feed on purpose: slots fall wherever, including outside opening
	// hours, exactly like the real upstream.
	var slots []map[string]string
	for d := 0; d < 7; d++ {
		date := day.AddDate(0, 0, d)
		for h := 8; h <= 18; h++ {
			if rand.Intn(3) != 0 {
				continue
			}
			slots = append(slots, map[string]string{
				"start": fmt.Sprintf("%sT%02d:%02d:00", date.Format("2006-01-02"), h, 30*rand.Intn(2)),
			})
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"AvailableSlots": slots})
}

func (s *store) book(w http.ResponseWriter, r *http.Request) {
	// One in five claims loses the race, like a busy office.
	if rand.Intn(5) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"busy": "slot already taken"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"done":  true,
		"rdvId": fmt.Sprintf("D%06d", gofakeit.Number(100000, 999999)),
	})
}

func (s *store) listSchedules(w http.ResponseWriter, r *http.Request) {
	types := make([]map[string]any, 0, len(typeNames))
	for _, t := range typeNames {
		types = append(types, map[string]any{
			"code":           t.code,
			"name":           t.name,
			"duration":       30,
			"newPatientOnly": false,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"Schedules": []map[string]any{
			{"id": "MC", "name": "Dr " + gofakeit.LastName(), "appointmentTypes": types},
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
