package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/veloxdental/scheduling-middleware/internal/normalize"
	"github.com/veloxdental/scheduling-middleware/internal/pms"
	"github.com/veloxdental/scheduling-middleware/internal/redisclient"
	"github.com/veloxdental/scheduling-middleware/internal/scheduling"
)

// SchedulingService is the slice of the application service the handlers
// need; narrowed so handler tests can stub it.
type SchedulingService interface {
	ViewByPhone(ctx context.Context, creds scheduling.Credentials, phone string) ([]scheduling.Appointment, error)
	CancelByPhone(ctx context.Context, creds scheduling.Credentials, phone, dateFilter string) (scheduling.CancelResult, error)
	Availability(ctx context.Context, creds scheduling.Credentials, typeCode, typeName, startDate, endDate string, newPatient bool) (scheduling.AvailabilityResult, error)
	Book(ctx context.Context, creds scheduling.Credentials, req scheduling.BookingRequest) (scheduling.BookingResult, error)
	SearchPatients(ctx context.Context, creds scheduling.Credentials, q scheduling.PatientQuery) ([]scheduling.PatientSummary, error)
	Practitioners(ctx context.Context, creds scheduling.Credentials) ([]scheduling.Schedule, error)
	AppointmentTypes(ctx context.Context, creds scheduling.Credentials) ([]scheduling.AppointmentType, error)
	SuggestType(ctx context.Context, creds scheduling.Credentials, reason string) (*scheduling.AppointmentType, error)
}

func viewAppointmentsHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ViewAppointmentsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Phone == "" {
			writeError(w, http.StatusBadRequest, "missing_phone", "phone is required")
			return
		}

		appts, err := svc.ViewByPhone(r.Context(), GetCredentials(r.Context()), req.Phone)
		if err != nil {
			if errors.Is(err, scheduling.ErrPatientNotFound) {
				writeJSON(w, http.StatusOK, ViewAppointmentsResponse{
					Success:      false,
					Appointments: []AppointmentView{},
					Message:      "No patient found with this phone number.",
				})
				return
			}
			handleRemoteError(w, err)
			return
		}

		views := make([]AppointmentView, 0, len(appts))
		for _, a := range appts {
			views = append(views, AppointmentView{
				ID:       a.PrimaryID,
				Date:     a.Date,
				Time:     a.Time,
				Type:     a.TypeName,
				Duration: a.DurationMinutes,
			})
		}

		msg := fmt.Sprintf("You have %d upcoming appointment(s).", len(views))
		if len(views) == 0 {
			msg = "You have no upcoming appointments."
		}

		writeJSON(w, http.StatusOK, ViewAppointmentsResponse{
			Success:      true,
			Phone:        normalize.Phone(req.Phone),
			Appointments: views,
			Count:        len(views),
			Message:      msg,
		})
	}
}

func cancelAppointmentHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CancelAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Phone == "" {
			writeError(w, http.StatusBadRequest, "missing_phone", "phone is required")
			return
		}

		result, err := svc.CancelByPhone(r.Context(), GetCredentials(r.Context()), req.Phone, req.Date)
		if err != nil {
			switch {
			case errors.Is(err, scheduling.ErrPatientNotFound):
				writeJSON(w, http.StatusOK, CancelAppointmentResponse{
					Success: false,
					Message: "No patient found with this phone number.",
				})
			case errors.Is(err, scheduling.ErrNoActiveAppointment):
				msg := "No active appointment found."
				if req.Date != "" {
					msg = fmt.Sprintf("No active appointment found for %s.", normalize.Date(req.Date))
				}
				writeJSON(w, http.StatusOK, CancelAppointmentResponse{
					Success: false,
					Message: msg,
				})
			case errors.Is(err, redisclient.ErrCancelInProgress):
				writeError(w, http.StatusConflict, "cancel_in_progress", "this appointment is already being cancelled, please retry shortly")
			default:
				handleRemoteError(w, err)
			}
			return
		}

		appt := result.Appointment
		msg := fmt.Sprintf("Your appointment on %s at %s has been cancelled.", appt.Date, appt.Time)
		if result.Outcome.AlreadyCancelled {
			msg = fmt.Sprintf("Your appointment on %s was already cancelled.", appt.Date)
		}

		// The unverified case still reads as success to the caller; the
		// operator channel carries the discrepancy.
		writeJSON(w, http.StatusOK, CancelAppointmentResponse{
			Success:          result.Outcome.Confirmed,
			AlreadyCancelled: result.Outcome.AlreadyCancelled,
			AppointmentID:    appt.PrimaryID,
			Date:             appt.Date,
			Time:             appt.Time,
			Message:          msg,
		})
	}
}

func availabilityHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.TypeCode == "" || req.StartDate == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "type_code and start_date are required")
			return
		}

		result, err := svc.Availability(r.Context(), GetCredentials(r.Context()), req.TypeCode, req.TypeName, req.StartDate, req.EndDate, req.NewPatient)
		if err != nil {
			handleRemoteError(w, err)
			return
		}

		slots := make([]SlotView, 0, len(result.Slots))
		for _, s := range result.Slots {
			slots = append(slots, SlotView{
				Date:    s.Date,
				Time:    s.Time,
				Display: normalize.DisplayHour(s.Time),
			})
		}

		msg := fmt.Sprintf("%d slot(s) available.", len(slots))
		if len(slots) == 0 {
			msg = "No slots available for this period."
		}

		writeJSON(w, http.StatusOK, AvailabilityResponse{
			Success:       true,
			TypeCode:      req.TypeCode,
			Slots:         slots,
			Count:         len(slots),
			RejectedCount: result.RejectedCount,
			Message:       msg,
		})
	}
}

func bookAppointmentHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.TypeCode == "" || req.Date == "" || req.Time == "" || req.LastName == "" || req.Phone == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "type_code, date, time, last_name and phone are required")
			return
		}

		newPatient := true
		if req.NewPatient != nil {
			newPatient = *req.NewPatient
		}

		result, err := svc.Book(r.Context(), GetCredentials(r.Context()), scheduling.BookingRequest{
			TypeCode:   req.TypeCode,
			Date:       req.Date,
			Time:       req.Time,
			FirstName:  req.FirstName,
			LastName:   req.LastName,
			Mobile:     req.Phone,
			Email:      req.Email,
			BirthDate:  req.BirthDate,
			NewPatient: newPatient,
			Message:    req.Message,
		})
		if err != nil {
			handleRemoteError(w, err)
			return
		}

		if result.Busy != "" || (!result.Confirmed && result.AppointmentID == "") {
			writeJSON(w, http.StatusOK, BookAppointmentResponse{
				Success: false,
				Message: "This slot is no longer available. Please choose another one.",
			})
			return
		}

		status := "pending_confirmation"
		if result.Confirmed {
			status = "confirmed"
		}

		writeJSON(w, http.StatusOK, BookAppointmentResponse{
			Success:       true,
			AppointmentID: result.AppointmentID,
			Status:        status,
			Date:          normalize.Date(req.Date),
			Time:          normalize.DisplayHour(req.Time),
			Message:       fmt.Sprintf("Appointment %s for %s at %s.", status, normalize.Date(req.Date), normalize.DisplayHour(req.Time)),
		})
	}
}

func searchPatientsHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SearchPatientsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		q := scheduling.PatientQuery{
			Mobile:    req.Phone,
			LastName:  req.LastName,
			FirstName: req.FirstName,
			BirthDate: req.BirthDate,
		}
		if q.Empty() {
			writeError(w, http.StatusBadRequest, "missing_criteria", "at least one search criterion is required")
			return
		}

		patients, err := svc.SearchPatients(r.Context(), GetCredentials(r.Context()), q)
		if err != nil {
			handleRemoteError(w, err)
			return
		}

		if len(patients) == 0 {
			writeJSON(w, http.StatusOK, SearchPatientsResponse{
				Success: true,
				Found:   false,
				Message: "No patient found with these criteria.",
			})
			return
		}

		views := make([]PatientView, 0, len(patients))
		for _, p := range patients {
			views = append(views, PatientView{
				ID:        p.ID,
				LastName:  p.LastName,
				FirstName: p.FirstName,
				Phone:     p.Mobile,
			})
		}

		writeJSON(w, http.StatusOK, SearchPatientsResponse{
			Success:  true,
			Found:    true,
			Patients: views,
			Message:  fmt.Sprintf("%d patient(s) found.", len(views)),
		})
	}
}

func practitionersHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		schedules, err := svc.Practitioners(r.Context(), GetCredentials(r.Context()))
		if err != nil {
			handleRemoteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, PractitionersResponse{Success: true, Practitioners: schedules})
	}
}

func appointmentTypesHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types, err := svc.AppointmentTypes(r.Context(), GetCredentials(r.Context()))
		if err != nil {
			handleRemoteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, AppointmentTypesResponse{
			Success: true,
			Types:   types,
			Message: fmt.Sprintf("%d appointment type(s) available.", len(types)),
		})
	}
}

func suggestTypeHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reason := r.URL.Query().Get("reason")

		suggestion, err := svc.SuggestType(r.Context(), GetCredentials(r.Context()), reason)
		if err != nil {
			handleRemoteError(w, err)
			return
		}

		if suggestion == nil {
			types, err := svc.AppointmentTypes(r.Context(), GetCredentials(r.Context()))
			if err != nil {
				handleRemoteError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, SuggestTypeResponse{
				Success: false,
				Reason:  reason,
				Types:   types,
				Message: "Could not determine a suitable appointment type.",
			})
			return
		}

		writeJSON(w, http.StatusOK, SuggestTypeResponse{
			Success:    true,
			Reason:     reason,
			Suggestion: suggestion,
			Message:    fmt.Sprintf("Suggested appointment type: %s (code %s).", suggestion.Name, suggestion.Code),
		})
	}
}

// handleRemoteError maps transport-level failures: timeouts are retryable
// 504s, upstream rejections keep their origin status visible as a 502.
// Nothing on a read path is ever silently swallowed.
func handleRemoteError(w http.ResponseWriter, err error) {
	var statusErr *pms.StatusError
	switch {
	case errors.Is(err, scheduling.ErrRemoteUnavailable):
		writeError(w, http.StatusGatewayTimeout, "remote_unavailable", "the booking system did not answer, please retry")
	case errors.As(err, &statusErr):
		writeError(w, http.StatusBadGateway, "upstream_error", fmt.Sprintf("booking system returned status %d", statusErr.Status))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
