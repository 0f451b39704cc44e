package scheduling

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/veloxdental/scheduling-middleware/internal/eligibility"
	"github.com/veloxdental/scheduling-middleware/internal/metrics"
	"github.com/veloxdental/scheduling-middleware/internal/normalize"
	"github.com/veloxdental/scheduling-middleware/internal/redisclient"
)

// Service is the application layer between the voice-agent HTTP surface and
// the remote PMS. All shared mutable state lives behind the Ledger; the rest
// of the service is per-request.
type Service struct {
	api        RemoteAPI
	ledger     Ledger
	reconciler *Reconciler
	locker     redisclient.CancelLocker
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

func NewService(api RemoteAPI, ledger Ledger, reconciler *Reconciler, locker redisclient.CancelLocker, m *metrics.Metrics, log zerolog.Logger) *Service {
	return &Service{
		api:        api,
		ledger:     ledger,
		reconciler: reconciler,
		locker:     locker,
		metrics:    m,
		log:        log,
	}
}

// ListActive returns a patient's appointments with every locally cancelled
// and remotely cancelled entry removed, ordered by date then time. The
// ledger wins over whatever status the PMS reports.
func (s *Service) ListActive(ctx context.Context, creds Credentials, patientID string) ([]Appointment, error) {
	raw, err := s.api.ListAppointments(ctx, creds, patientID)
	if err != nil {
		return nil, fmt.Errorf("list appointments for patient %s: %w", patientID, err)
	}

	active := make([]Appointment, 0, len(raw))
	for _, appt := range raw {
		if IsCancelledStatus(appt.Status) {
			continue
		}
		cancelled, err := s.inLedger(ctx, appt)
		if err != nil {
			return nil, err
		}
		if cancelled {
			continue
		}
		active = append(active, appt)
	}

	sortByDateTime(active)
	return active, nil
}

func (s *Service) inLedger(ctx context.Context, appt Appointment) (bool, error) {
	for _, id := range []string{appt.PrimaryID, appt.AlternateID} {
		if id == "" {
			continue
		}
		present, err := s.ledger.Contains(ctx, id)
		if err != nil {
			return false, err
		}
		if present {
			return true, nil
		}
	}
	return false, nil
}

func sortByDateTime(appts []Appointment) {
	sort.SliceStable(appts, func(i, j int) bool {
		if appts[i].Date != appts[j].Date {
			return appts[i].Date < appts[j].Date
		}
		return appts[i].Time < appts[j].Time
	})
}

// ViewByPhone resolves every patient sharing the mobile number and merges
// their active appointments. Households often share one number, so more than
// one patient record per phone is the normal case, not an edge case.
func (s *Service) ViewByPhone(ctx context.Context, creds Credentials, phone string) ([]Appointment, error) {
	patients, err := s.findPatientsByPhone(ctx, creds, phone)
	if err != nil {
		return nil, err
	}

	var all []Appointment
	for _, p := range patients {
		active, err := s.ListActive(ctx, creds, p.ID)
		if err != nil {
			return nil, err
		}
		all = append(all, active...)
	}

	sortByDateTime(all)
	return all, nil
}

func (s *Service) findPatientsByPhone(ctx context.Context, creds Credentials, phone string) ([]PatientSummary, error) {
	patients, err := s.api.FindPatients(ctx, creds, PatientQuery{Mobile: normalize.Phone(phone)})
	if err != nil {
		return nil, fmt.Errorf("find patients by phone: %w", err)
	}
	if len(patients) == 0 {
		return nil, ErrPatientNotFound
	}
	return patients, nil
}

// CancelResult pairs the reconciliation outcome with the appointment it
// targeted, for the confirmation message read back to the caller.
type CancelResult struct {
	Outcome     CancelOutcome
	Appointment Appointment
}

// CancelByPhone finds the caller's next active appointment (or the one on
// dateFilter when given) and runs the cancellation reconciler on it, under a
// per-appointment lock so duplicate agent calls cannot interleave.
func (s *Service) CancelByPhone(ctx context.Context, creds Credentials, phone, dateFilter string) (CancelResult, error) {
	// The voice platform sometimes forwards its template variables verbatim.
	if normalize.IsPlaceholder(dateFilter) {
		dateFilter = ""
	}
	if dateFilter != "" {
		dateFilter = normalize.Date(dateFilter)
	}

	patients, err := s.findPatientsByPhone(ctx, creds, phone)
	if err != nil {
		return CancelResult{}, err
	}

	target, err := s.pickCancelTarget(ctx, creds, patients, dateFilter)
	if err != nil {
		return CancelResult{}, err
	}

	var outcome CancelOutcome
	err = s.locker.WithCancelLock(ctx, target.PrimaryID, func(lockCtx context.Context) error {
		var cancelErr error
		outcome, cancelErr = s.reconciler.Cancel(lockCtx, creds, *target)
		return cancelErr
	})
	if err != nil {
		return CancelResult{}, err
	}

	return CancelResult{Outcome: outcome, Appointment: *target}, nil
}

func (s *Service) pickCancelTarget(ctx context.Context, creds Credentials, patients []PatientSummary, dateFilter string) (*Appointment, error) {
	for _, p := range patients {
		active, err := s.ListActive(ctx, creds, p.ID)
		if err != nil {
			return nil, err
		}
		for i := range active {
			if dateFilter != "" && active[i].Date != dateFilter {
				continue
			}
			return &active[i], nil
		}
	}
	return nil, ErrNoActiveAppointment
}

// AvailabilityResult is a filtered slot listing. RejectedCount is always
// reported; an empty slot list with a nonzero count is the normal shape of
// "the feed had openings but none inside opening hours".
type AvailabilityResult struct {
	Slots         []eligibility.Slot
	RejectedCount int
}

// Availability fetches the raw slot feed and drops every slot outside the
// care category's opening hours. Types that resolve to no category pass
// unfiltered: the middleware never hides slots it cannot classify.
func (s *Service) Availability(ctx context.Context, creds Credentials, typeCode, typeName, startDate, endDate string, newPatient bool) (AvailabilityResult, error) {
	startDate = normalize.Date(startDate)
	if endDate == "" {
		endDate = defaultEndDate(startDate)
	} else {
		endDate = normalize.Date(endDate)
	}

	raw, err := s.api.ListSlots(ctx, creds, SlotQuery{
		TypeCode:   typeCode,
		StartDate:  startDate,
		EndDate:    endDate,
		NewPatient: newPatient,
	})
	if err != nil {
		return AvailabilityResult{}, fmt.Errorf("list slots: %w", err)
	}

	slots := make([]eligibility.Slot, len(raw))
	for i, r := range raw {
		slots[i] = eligibility.Slot{Date: r.Date, Time: r.Time}
	}

	cat, resolved := eligibility.ResolveCategory(typeCode, typeName)
	accepted, rejected := eligibility.FilterSlots(cat, resolved, slots)
	s.metrics.SlotsRejected.Add(float64(rejected))

	return AvailabilityResult{Slots: accepted, RejectedCount: rejected}, nil
}

// defaultEndDate is start + 7 days, matching what callers expect from "next
// week". An unparseable start falls back to itself so the remote call still
// goes out and fails (or not) on the PMS's own terms.
func defaultEndDate(startDate string) string {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return startDate
	}
	return start.AddDate(0, 0, 7).Format("2006-01-02")
}

// Book claims a slot for a patient. A busy reply or a confirmation with no
// appointment id means the slot was taken between listing and claiming,
// which the voice agent handles by offering another slot.
func (s *Service) Book(ctx context.Context, creds Credentials, req BookingRequest) (BookingResult, error) {
	req.Date = normalize.Date(req.Date)
	req.Mobile = normalize.Phone(req.Mobile)
	if req.BirthDate != "" {
		req.BirthDate = normalize.Date(req.BirthDate)
	}

	result, err := s.api.CreateAppointment(ctx, creds, req)
	if err != nil {
		return BookingResult{}, fmt.Errorf("create appointment: %w", err)
	}
	return result, nil
}

// SearchPatients runs a criteria search against the PMS patient index.
func (s *Service) SearchPatients(ctx context.Context, creds Credentials, q PatientQuery) ([]PatientSummary, error) {
	if q.Mobile != "" {
		q.Mobile = normalize.Phone(q.Mobile)
	}
	if q.BirthDate != "" {
		q.BirthDate = normalize.Date(q.BirthDate)
	}

	patients, err := s.api.FindPatients(ctx, creds, q)
	if err != nil {
		return nil, fmt.Errorf("search patients: %w", err)
	}
	return patients, nil
}

// Practitioners passes the schedules feed through unchanged.
func (s *Service) Practitioners(ctx context.Context, creds Credentials) ([]Schedule, error) {
	schedules, err := s.api.ListSchedules(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, nil
}

// AppointmentTypes flattens every practitioner's bookable types into one
// list.
func (s *Service) AppointmentTypes(ctx context.Context, creds Credentials) ([]AppointmentType, error) {
	schedules, err := s.api.ListSchedules(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}

	var types []AppointmentType
	for _, sch := range schedules {
		types = append(types, sch.AppointmentTypes...)
	}
	return types, nil
}
