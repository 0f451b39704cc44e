package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/veloxdental/scheduling-middleware/internal/metrics"
)

// alreadyCancelledPhrases are matched case-insensitively against the remote
// error text. The PMS answers in both languages depending on which backend
// handles the call.
var alreadyCancelledPhrases = []string{"already cancelled", "already canceled", "déjà annulé"}

// Reconciler drives the best-effort cancellation protocol. The PMS sometimes
// reports a cancellation as successful while the appointment stays active,
// and it is ambiguous about which (resource kind, identifier) pairing is
// authoritative for a booking, so every known pairing is tried in order and
// each apparent success is verified against the live appointment list.
type Reconciler struct {
	api            RemoteAPI
	ledger         Ledger
	log            zerolog.Logger
	metrics        *metrics.Metrics
	practitionerID string

	verifyAttempts int
	verifyDelay    time.Duration

	// sleep is injectable so tests run the bounded verification poll
	// without real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewReconciler(api RemoteAPI, ledger Ledger, m *metrics.Metrics, log zerolog.Logger, practitionerID string, verifyAttempts int, verifyDelay time.Duration) *Reconciler {
	if verifyAttempts < 1 {
		verifyAttempts = 1
	}
	return &Reconciler{
		api:            api,
		ledger:         ledger,
		log:            log,
		metrics:        m,
		practitionerID: practitionerID,
		verifyAttempts: verifyAttempts,
		verifyDelay:    verifyDelay,
		sleep:          sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// candidates builds the ordered list of cancellation targets for an
// appointment. The primary id is tried against both resource kinds before
// the alternate id is considered at all. Within one id, confirmed
// appointment ids (the "D" prefix convention) hit the appointments resource
// first; anything else looks like a provisional request id and hits the
// request resource first.
func (r *Reconciler) candidates(appt Appointment) []CandidateTarget {
	var out []CandidateTarget
	for _, id := range []string{appt.PrimaryID, appt.AlternateID} {
		if id == "" {
			continue
		}
		confirmed := CandidateTarget{
			ResourcePath: fmt.Sprintf("/schedules/%s/appointments/%s/", r.practitionerID, id),
			ID:           id,
		}
		provisional := CandidateTarget{
			ResourcePath: fmt.Sprintf("/schedules/%s/appointment-requests/%s/", r.practitionerID, id),
			ID:           id,
		}
		if strings.HasPrefix(strings.ToUpper(id), "D") {
			out = append(out, confirmed, provisional)
		} else {
			out = append(out, provisional, confirmed)
		}
	}
	return out
}

// Cancel runs the reconciliation protocol for one appointment. On every
// non-exceptional path the ledger contains the appointment id before the
// outcome is returned, so readers can never resurface it.
//
// When every candidate fails, the id is recorded anyway and the caller still
// sees a confirmed outcome: telling a patient "I could not cancel that" is a
// worse failure mode than a false positive the office staff reconcile by
// hand. The operator channel is warned instead.
func (r *Reconciler) Cancel(ctx context.Context, creds Credentials, appt Appointment) (CancelOutcome, error) {
	id := appt.PrimaryID
	if id == "" {
		id = appt.AlternateID
	}
	if id == "" {
		return CancelOutcome{}, ErrNoActiveAppointment
	}

	// Ledger writes run detached from the caller's deadline: the id must be
	// recorded even when the lock context has already expired by the time a
	// slow reconciliation reaches its final state.
	persistCtx := context.WithoutCancel(ctx)

	// A second cancel of an id we already hold is a no-op success.
	present, err := r.ledger.Contains(ctx, id)
	if err != nil {
		return CancelOutcome{}, err
	}
	if present {
		r.metrics.CancelOutcomes.WithLabelValues(metrics.OutcomeAlreadyCancelled).Inc()
		return CancelOutcome{Confirmed: true, AlreadyCancelled: true}, nil
	}

	for _, cand := range r.candidates(appt) {
		reply, err := r.api.CancelAppointment(ctx, creds, cand.ResourcePath)
		if err != nil {
			r.log.Debug().Err(err).Str("path", cand.ResourcePath).Msg("cancel attempt failed, trying next candidate")
			continue
		}

		if reply.ErrorText != "" {
			if isAlreadyCancelledText(reply.ErrorText) {
				if err := r.ledger.Add(persistCtx, id); err != nil {
					return CancelOutcome{}, err
				}
				r.metrics.CancelOutcomes.WithLabelValues(metrics.OutcomeAlreadyCancelled).Inc()
				return CancelOutcome{Confirmed: true, AlreadyCancelled: true}, nil
			}
			r.log.Debug().Str("path", cand.ResourcePath).Str("remote_error", reply.ErrorText).Msg("candidate rejected, trying next")
			continue
		}

		// The remote accepted the delete. That claim is not trusted: verify
		// against the live list before declaring victory.
		if r.verify(ctx, creds, appt.PatientID, appt) {
			if err := r.ledger.Add(persistCtx, id); err != nil {
				return CancelOutcome{}, err
			}
			r.metrics.CancelOutcomes.WithLabelValues(metrics.OutcomeVerified).Inc()
			return CancelOutcome{Confirmed: true}, nil
		}

		r.log.Debug().Str("path", cand.ResourcePath).Msg("cancellation not reflected remotely, trying next candidate")
	}

	// Exhausted. Record locally so the appointment never resurfaces through
	// this middleware, and flag the discrepancy for manual follow-up.
	if err := r.ledger.Add(persistCtx, id); err != nil {
		return CancelOutcome{}, err
	}
	r.metrics.CancelOutcomes.WithLabelValues(metrics.OutcomeUnverified).Inc()
	r.metrics.UnverifiedCancellations.Inc()
	r.log.Warn().
		Str("appointment_id", id).
		Str("patient_id", appt.PatientID).
		Str("date", appt.Date).
		Msg("cancellation could not be verified against the PMS; recorded locally, office staff must reconcile manually")

	return CancelOutcome{Confirmed: true, Unverified: true}, nil
}

// verify re-fetches the patient's raw appointment list (ledger deliberately
// bypassed) and checks that neither identifier is still reported active. The
// remote system propagates deletes slowly, so the check polls a fixed number
// of times with a short delay: a bounded wait, never open-ended.
func (r *Reconciler) verify(ctx context.Context, creds Credentials, patientID string, appt Appointment) bool {
	for attempt := 0; attempt < r.verifyAttempts; attempt++ {
		if err := r.sleep(ctx, r.verifyDelay); err != nil {
			return false
		}

		listed, err := r.api.ListAppointments(ctx, creds, patientID)
		if err != nil {
			r.log.Debug().Err(err).Msg("verification fetch failed")
			continue
		}

		if !stillActive(listed, appt) {
			return true
		}
	}
	return false
}

func stillActive(listed []Appointment, target Appointment) bool {
	for _, a := range listed {
		if !matchesID(a, target) {
			continue
		}
		if !IsCancelledStatus(a.Status) {
			return true
		}
	}
	return false
}

func matchesID(a, target Appointment) bool {
	for _, id := range []string{target.PrimaryID, target.AlternateID} {
		if id == "" {
			continue
		}
		if a.PrimaryID == id || a.AlternateID == id {
			return true
		}
	}
	return false
}

func isAlreadyCancelledText(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range alreadyCancelledPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
