package api

import "github.com/veloxdental/scheduling-middleware/internal/scheduling"

type ViewAppointmentsRequest struct {
	Phone string `json:"phone"`
}

type AppointmentView struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Type     string `json:"type,omitempty"`
	Duration int    `json:"duration_minutes,omitempty"`
}

type ViewAppointmentsResponse struct {
	Success      bool              `json:"success"`
	Phone        string            `json:"phone,omitempty"`
	Appointments []AppointmentView `json:"appointments"`
	Count        int               `json:"count"`
	Message      string            `json:"message"`
}

type CancelAppointmentRequest struct {
	Phone string `json:"phone"`
	Date  string `json:"date,omitempty"`
}

type CancelAppointmentResponse struct {
	Success          bool   `json:"success"`
	AlreadyCancelled bool   `json:"already_cancelled,omitempty"`
	AppointmentID    string `json:"appointment_id,omitempty"`
	Date             string `json:"date,omitempty"`
	Time             string `json:"time,omitempty"`
	Message          string `json:"message"`
}

type AvailabilityRequest struct {
	TypeCode   string `json:"type_code"`
	TypeName   string `json:"type_name,omitempty"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date,omitempty"`
	NewPatient bool   `json:"new_patient,omitempty"`
}

type SlotView struct {
	Date    string `json:"date"`
	Time    string `json:"time"`
	Display string `json:"display"`
}

type AvailabilityResponse struct {
	Success       bool       `json:"success"`
	TypeCode      string     `json:"type_code"`
	Slots         []SlotView `json:"slots"`
	Count         int        `json:"count"`
	RejectedCount int        `json:"rejected_count"`
	Message       string     `json:"message"`
}

type BookAppointmentRequest struct {
	TypeCode   string `json:"type_code"`
	Date       string `json:"date"`
	Time       string `json:"time"` // HHMM, e.g. 0930
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone"`
	Email      string `json:"email,omitempty"`
	BirthDate  string `json:"birth_date,omitempty"`
	NewPatient *bool  `json:"new_patient,omitempty"` // defaults to true
	Message    string `json:"message,omitempty"`
}

type BookAppointmentResponse struct {
	Success       bool   `json:"success"`
	AppointmentID string `json:"appointment_id,omitempty"`
	Status        string `json:"status,omitempty"`
	Date          string `json:"date,omitempty"`
	Time          string `json:"time,omitempty"`
	Message       string `json:"message"`
}

type SearchPatientsRequest struct {
	Phone     string `json:"phone,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	BirthDate string `json:"birth_date,omitempty"`
}

type PatientView struct {
	ID        string `json:"id"`
	LastName  string `json:"last_name,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type SearchPatientsResponse struct {
	Success  bool          `json:"success"`
	Found    bool          `json:"found"`
	Patients []PatientView `json:"patients,omitempty"`
	Message  string        `json:"message"`
}

type PractitionersResponse struct {
	Success       bool                  `json:"success"`
	Practitioners []scheduling.Schedule `json:"practitioners"`
}

type AppointmentTypesResponse struct {
	Success bool                         `json:"success"`
	Types   []scheduling.AppointmentType `json:"types"`
	Message string                       `json:"message"`
}

type SuggestTypeResponse struct {
	Success    bool                         `json:"success"`
	Reason     string                       `json:"reason"`
	Suggestion *scheduling.AppointmentType  `json:"suggestion,omitempty"`
	Types      []scheduling.AppointmentType `json:"available_types,omitempty"`
	Message    string                       `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
