package scheduling

import (
	"context"
	"errors"
)

var (
	ErrPatientNotFound     = errors.New("no patient found for these criteria")
	ErrNoActiveAppointment = errors.New("no active appointment found")
	ErrRemoteUnavailable   = errors.New("remote booking system unavailable")
)

// RemoteAPI is the narrow operation set this middleware consumes from the
// practice management system. The concrete client lives in internal/pms.
type RemoteAPI interface {
	// FindPatients tolerates "not found" as an empty result, not an error.
	FindPatients(ctx context.Context, creds Credentials, q PatientQuery) ([]PatientSummary, error)

	ListAppointments(ctx context.Context, creds Credentials, patientID string) ([]Appointment, error)

	// CancelAppointment issues a delete against one candidate resource path.
	// A remote rejection comes back in CancelReply.ErrorText; transport
	// failures come back as errors.
	CancelAppointment(ctx context.Context, creds Credentials, resourcePath string) (CancelReply, error)

	ListSlots(ctx context.Context, creds Credentials, q SlotQuery) ([]RawSlot, error)

	CreateAppointment(ctx context.Context, creds Credentials, req BookingRequest) (BookingResult, error)

	ListSchedules(ctx context.Context, creds Credentials) ([]Schedule, error)
}

// RawSlot is one unfiltered availability entry as reported by the PMS.
type RawSlot struct {
	Date string // ISO
	Time string // HH:MM
}
