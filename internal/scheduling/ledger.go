package scheduling

import "context"

// Ledger is the local durable record of appointment ids this middleware
// treats as cancelled, whatever the remote system currently reports.
//
// The set only grows: a cancelled appointment never needs to be
// un-cancelled, so there is no delete operation. Add must be flushed before
// returning and must be an atomic add-if-absent so concurrent cancellations
// cannot lose each other's writes.
type Ledger interface {
	Contains(ctx context.Context, appointmentID string) (bool, error)
	Add(ctx context.Context, appointmentID string) error
}
