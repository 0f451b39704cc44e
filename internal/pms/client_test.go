package pms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloxdental/scheduling-middleware/internal/scheduling"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewClient(srv.URL, "MC", scheduling.Credentials{OfficeCode: "OFF1", APIKey: "secret"}, 5*time.Second)
	return c, srv
}

func TestFindPatientsSendsOfficeHeaders(t *testing.T) {
	var gotOffice, gotKey string
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotOffice = r.Header.Get("OfficeCode")
		gotKey = r.Header.Get("ApiKey")
		w.Write([]byte(`{"Patients":[]}`))
	})
	defer srv.Close()

	_, err := c.FindPatients(context.Background(), scheduling.Credentials{}, scheduling.PatientQuery{Mobile: "0683791443"})
	require.NoError(t, err)
	assert.Equal(t, "OFF1", gotOffice)
	assert.Equal(t, "secret", gotKey)
}

func TestFindPatientsPerRequestCredentialsOverride(t *testing.T) {
	var gotOffice, gotKey string
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotOffice = r.Header.Get("OfficeCode")
		gotKey = r.Header.Get("ApiKey")
		w.Write([]byte(`{"Patients":[]}`))
	})
	defer srv.Close()

	creds := scheduling.Credentials{OfficeCode: "OFF2", APIKey: "other"}
	_, err := c.FindPatients(context.Background(), creds, scheduling.PatientQuery{LastName: "Martin"})
	require.NoError(t, err)
	assert.Equal(t, "OFF2", gotOffice)
	assert.Equal(t, "other", gotKey)
}

func TestFindPatientsNotFoundIsEmpty(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"Error":{"code":"notFound","text":"Not found"}}`))
	})
	defer srv.Close()

	patients, err := c.FindPatients(context.Background(), scheduling.Credentials{}, scheduling.PatientQuery{Mobile: "0600000000"})
	require.NoError(t, err)
	assert.Empty(t, patients)
}

func TestFindPatientsFieldFallbacks(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Patients":[
			{"identifier":"P1","lastName":"Martin","firstName":"Anne","mobile":"0683791443"},
			{"id":"P2","family":"Durand","given":"Luc"},
			{"lastName":"NoId"}
		]}`))
	})
	defer srv.Close()

	patients, err := c.FindPatients(context.Background(), scheduling.Credentials{}, scheduling.PatientQuery{Mobile: "0683791443"})
	require.NoError(t, err)

	require.Len(t, patients, 2, "a record without any id is dropped")
	assert.Equal(t, "P1", patients[0].ID)
	assert.Equal(t, "Martin", patients[0].LastName)
	assert.Equal(t, "P2", patients[1].ID)
	assert.Equal(t, "Durand", patients[1].LastName)
	assert.Equal(t, "Luc", patients[1].FirstName)
}

func TestFindPatientsErrorEnvelopeOn200(t *testing.T) {
	t.Run("not found stays empty", func(t *testing.T) {
		c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"Error":{"code":"notFound","text":"Not found"}}`))
		})
		defer srv.Close()

		patients, err := c.FindPatients(context.Background(), scheduling.Credentials{}, scheduling.PatientQuery{Mobile: "0600000000"})
		require.NoError(t, err)
		assert.Empty(t, patients)
	})

	t.Run("other errors surface with remote text", func(t *testing.T) {
		c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"Error":{"message":"quota exceeded"}}`))
		})
		defer srv.Close()

		_, err := c.FindPatients(context.Background(), scheduling.Credentials{}, scheduling.PatientQuery{Mobile: "0600000000"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quota exceeded")
	})
}

func TestListAppointmentsFieldFallbacks(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/patients/P1/appointments", r.URL.Path)
		w.Write([]byte(`[
			{"rdvId":"D123","id":"456","date":"2026-09-07","start":"09:30","service_type":{"display":"Consultation"},"duration":30,"status":"active"},
			{"id":"789","date":"2026-09-08","hour":"10:00","type":"Détartrage"}
		]`))
	})
	defer srv.Close()

	appts, err := c.ListAppointments(context.Background(), scheduling.Credentials{}, "P1")
	require.NoError(t, err)
	require.Len(t, appts, 2)

	assert.Equal(t, "D123", appts[0].PrimaryID)
	assert.Equal(t, "456", appts[0].AlternateID)
	assert.Equal(t, "09:30", appts[0].Time)
	assert.Equal(t, "Consultation", appts[0].TypeName)

	assert.Equal(t, "789", appts[1].PrimaryID)
	assert.Empty(t, appts[1].AlternateID)
	assert.Equal(t, "10:00", appts[1].Time)
	assert.Equal(t, "Détartrage", appts[1].TypeName)
	assert.Equal(t, "active", appts[1].Status, "missing status defaults to active")
}

func TestCancelAppointmentErrorEnvelopes(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		wantText string
	}{
		{"clean success", 200, `{"done":true}`, ""},
		{"lowercase string error", 200, `{"error":"appointment already cancelled"}`, "appointment already cancelled"},
		{"uppercase object error", 400, `{"Error":{"code":"notFound","text":"Not found"}}`, "Not found"},
		{"object with message only", 400, `{"error":{"message":"rejected"}}`, "rejected"},
		{"bare status no body", 500, ``, "status 500"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodDelete, r.Method)
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			defer srv.Close()

			reply, err := c.CancelAppointment(context.Background(), scheduling.Credentials{}, "/schedules/MC/appointments/D123/")
			require.NoError(t, err)
			assert.Equal(t, tc.wantText, reply.ErrorText)
		})
	}
}

func TestListSlotsEnvelopeAndBareArray(t *testing.T) {
	bodies := []string{
		`{"AvailableSlots":[{"start":"2026-09-07T09:30:00"},{"start":"garbage"},{"start":"2026-09-08T14:00:00"}]}`,
		`[{"start":"2026-09-07T09:30:00"},{"start":"garbage"},{"start":"2026-09-08T14:00:00"}]`,
	}

	for _, body := range bodies {
		c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "2026-09-07", r.URL.Query().Get("start"))
			assert.Equal(t, "1", r.URL.Query().Get("newPatient"))
			w.Write([]byte(body))
		})

		slots, err := c.ListSlots(context.Background(), scheduling.Credentials{}, scheduling.SlotQuery{
			TypeCode:   "27",
			StartDate:  "2026-09-07",
			EndDate:    "2026-09-14",
			NewPatient: true,
		})
		srv.Close()
		require.NoError(t, err)

		require.Len(t, slots, 2, "unparseable slot entries are skipped")
		assert.Equal(t, scheduling.RawSlot{Date: "2026-09-07", Time: "09:30"}, slots[0])
		assert.Equal(t, scheduling.RawSlot{Date: "2026-09-08", Time: "14:00"}, slots[1])
	}
}

func TestCreateAppointment(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/schedules/MC/slots/27/2026-09-07/0930/", r.URL.Path)
		assert.Equal(t, "Martin", r.URL.Query().Get("lastName"))
		assert.Equal(t, "0", r.URL.Query().Get("newPatient"))
		w.Write([]byte(`{"done":true,"idDemande":"555"}`))
	})
	defer srv.Close()

	result, err := c.CreateAppointment(context.Background(), scheduling.Credentials{}, scheduling.BookingRequest{
		TypeCode: "27",
		Date:     "2026-09-07",
		Time:     "0930",
		LastName: "Martin",
		Mobile:   "0683791443",
	})
	require.NoError(t, err)
	assert.True(t, result.Confirmed)
	assert.Equal(t, "555", result.AppointmentID)
}

func TestCreateAppointmentBusy(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"busy":"slot already taken"}`))
	})
	defer srv.Close()

	result, err := c.CreateAppointment(context.Background(), scheduling.Credentials{}, scheduling.BookingRequest{
		TypeCode: "27", Date: "2026-09-07", Time: "0930", LastName: "Martin", Mobile: "0683791443",
	})
	require.NoError(t, err)
	assert.False(t, result.Confirmed)
	assert.Equal(t, "slot already taken", result.Busy)
}

func TestListSchedules(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Schedules":[{"id":"MC","name":"Dr Martin","appointmentTypes":[
			{"code":"27","name":"Consultation","duration":30,"newPatientOnly":false},
			{"code":"84","name":"Nettoyage","duration":45,"newPatientOnly":true}
		]}]}`))
	})
	defer srv.Close()

	schedules, err := c.ListSchedules(context.Background(), scheduling.Credentials{})
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, "MC", schedules[0].PractitionerID)
	require.Len(t, schedules[0].AppointmentTypes, 2)
	assert.Equal(t, 45, schedules[0].AppointmentTypes[1].DurationMinutes)
	assert.True(t, schedules[0].AppointmentTypes[1].NewPatientOnly)
}

func TestStatusErrorOnReadPath(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream broke"))
	})
	defer srv.Close()

	_, err := c.ListAppointments(context.Background(), scheduling.Credentials{}, "P1")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Status)
}

func TestTransportFailureIsRemoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens anymore

	c := NewClient(srv.URL, "MC", scheduling.Credentials{}, time.Second)
	_, err := c.ListAppointments(context.Background(), scheduling.Credentials{}, "P1")
	assert.ErrorIs(t, err, scheduling.ErrRemoteUnavailable)
}

func TestSplitSlotStart(t *testing.T) {
	date, hhmm, ok := splitSlotStart("2026-09-07T09:30:00")
	assert.True(t, ok)
	assert.Equal(t, "2026-09-07", date)
	assert.Equal(t, "09:30", hhmm)

	_, _, ok = splitSlotStart("2026-09-07")
	assert.False(t, ok)

	_, _, ok = splitSlotStart("2026-09-07T09")
	assert.False(t, ok)
}
