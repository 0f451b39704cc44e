package scheduling

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgConn is the slice of pgxpool.Pool the ledger needs; narrowed so tests can
// substitute a mock pool.
type pgConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgLedger persists the cancellation set in Postgres. ON CONFLICT DO NOTHING
// makes Add an atomic add-if-absent: concurrent adds of the same id converge
// on one row and adds of different ids cannot lose each other.
type PgLedger struct {
	conn pgConn
}

func NewPgLedger(conn pgConn) *PgLedger {
	return &PgLedger{conn: conn}
}

func (l *PgLedger) Add(ctx context.Context, appointmentID string) error {
	_, err := l.conn.Exec(ctx, `
		INSERT INTO cancellation_ledger (appointment_id, recorded_at)
		VALUES ($1, now())
		ON CONFLICT (appointment_id) DO NOTHING
	`, appointmentID)
	if err != nil {
		return fmt.Errorf("ledger add %s: %w", appointmentID, err)
	}
	return nil
}

func (l *PgLedger) Contains(ctx context.Context, appointmentID string) (bool, error) {
	var present bool
	err := l.conn.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM cancellation_ledger WHERE appointment_id = $1
		)
	`, appointmentID).Scan(&present)
	if err != nil {
		return false, fmt.Errorf("ledger contains %s: %w", appointmentID, err)
	}
	return present, nil
}
