package scheduling

import "strings"

// Credentials carry the per-request office identity forwarded to the PMS.
// The voice platform may override the configured defaults per call.
type Credentials struct {
	OfficeCode string
	APIKey     string
}

// PatientSummary is the projection of a PMS patient record the middleware
// needs: enough to list and cancel appointments, nothing more.
type PatientSummary struct {
	ID        string
	LastName  string
	FirstName string
	Mobile    string
	BirthDate string
}

// Appointment is an ephemeral projection fetched from the PMS per request,
// never stored. The remote system is inconsistent about which of its two
// identifiers is authoritative for a booking, so both are kept.
type Appointment struct {
	PrimaryID       string
	AlternateID     string
	PatientID       string
	Date            string // ISO YYYY-MM-DD
	Time            string // HH:MM
	TypeName        string
	DurationMinutes int
	Status          string // advisory only; the ledger overrides it
}

// AppointmentType is one bookable visit type from the office schedules feed.
type AppointmentType struct {
	Code            string `json:"code"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	NewPatientOnly  bool   `json:"new_patient_only"`
}

// Schedule is one practitioner's schedule as exposed by the PMS.
type Schedule struct {
	PractitionerID   string            `json:"practitioner_id"`
	PractitionerName string            `json:"practitioner_name"`
	AppointmentTypes []AppointmentType `json:"appointment_types"`
}

// PatientQuery is the search criteria accepted by the PMS patient index.
type PatientQuery struct {
	Mobile    string
	LastName  string
	FirstName string
	BirthDate string
}

func (q PatientQuery) Empty() bool {
	return q.Mobile == "" && q.LastName == "" && q.FirstName == "" && q.BirthDate == ""
}

// SlotQuery selects a window of the availability feed for one visit type.
type SlotQuery struct {
	TypeCode   string
	StartDate  string // ISO
	EndDate    string // ISO
	NewPatient bool
}

// BookingRequest claims an availability slot for a patient.
type BookingRequest struct {
	TypeCode   string
	Date       string // ISO
	Time       string // HHMM, as the PMS expects in the claim path
	FirstName  string
	LastName   string
	Mobile     string
	Email      string
	BirthDate  string
	NewPatient bool
	Message    string
}

// BookingResult is the PMS response to a slot claim. Busy carries the remote
// "slot taken" text; it is an expected outcome, not an error.
type BookingResult struct {
	Confirmed     bool
	AppointmentID string
	Busy          string
}

// CancelReply is the remote response to one cancellation attempt. An empty
// ErrorText means the PMS accepted the request, which is no guarantee the
// appointment is actually gone.
type CancelReply struct {
	ErrorText string
}

// CancelOutcome is the caller-visible result of a reconciliation run.
// Unverified marks the exhaustion path: the id was recorded locally without
// remote confirmation and office staff must reconcile manually.
type CancelOutcome struct {
	Confirmed        bool
	AlreadyCancelled bool
	Unverified       bool
}

// CandidateTarget is one (resource path, identifier) guess tried during
// cancellation reconciliation. Ephemeral, never persisted.
type CandidateTarget struct {
	ResourcePath string
	ID           string
}

// cancelledStatuses are the remote status spellings that mean an appointment
// is already gone. The PMS is not consistent about language or spelling.
var cancelledStatuses = []string{"cancelled", "canceled", "annulé", "annule"}

// IsCancelledStatus reports whether a remote-reported status is a cancelled
// variant.
func IsCancelledStatus(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	for _, c := range cancelledStatuses {
		if s == c {
			return true
		}
	}
	return false
}
