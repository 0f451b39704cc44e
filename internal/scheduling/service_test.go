package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloxdental/scheduling-middleware/internal/metrics"
)

// passthroughLocker runs the critical section inline.
type passthroughLocker struct {
	lockedIDs []string
}

func (l *passthroughLocker) WithCancelLock(ctx context.Context, appointmentID string, fn func(ctx context.Context) error) error {
	l.lockedIDs = append(l.lockedIDs, appointmentID)
	return fn(ctx)
}

func newTestService(t *testing.T, remote *fakeRemote, ledger Ledger) (*Service, *passthroughLocker) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	rec := NewReconciler(remote, ledger, m, zerolog.Nop(), "MC", 1, time.Millisecond)
	rec.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	locker := &passthroughLocker{}
	return NewService(remote, ledger, rec, locker, m, zerolog.Nop()), locker
}

func TestListActiveLedgerWins(t *testing.T) {
	remote := newFakeRemote()
	ledger := newMemLedger()
	// The remote insists D123 is still active.
	remote.appointments["P1"] = []Appointment{
		{PrimaryID: "D123", PatientID: "P1", Date: "2026-09-07", Time: "09:30", Status: "active"},
		{PrimaryID: "D124", PatientID: "P1", Date: "2026-09-08", Time: "10:00", Status: "active"},
	}
	require.NoError(t, ledger.Add(context.Background(), "D123"))

	svc, _ := newTestService(t, remote, ledger)
	active, err := svc.ListActive(context.Background(), Credentials{}, "P1")
	require.NoError(t, err)

	require.Len(t, active, 1)
	assert.Equal(t, "D124", active[0].PrimaryID)
}

func TestListActiveDropsRemoteCancelledVariants(t *testing.T) {
	remote := newFakeRemote()
	remote.appointments["P1"] = []Appointment{
		{PrimaryID: "A1", Date: "2026-09-07", Status: "cancelled"},
		{PrimaryID: "A2", Date: "2026-09-07", Status: "Annulé"},
		{PrimaryID: "A3", Date: "2026-09-07", Status: "active"},
	}

	svc, _ := newTestService(t, remote, newMemLedger())
	active, err := svc.ListActive(context.Background(), Credentials{}, "P1")
	require.NoError(t, err)

	require.Len(t, active, 1)
	assert.Equal(t, "A3", active[0].PrimaryID)
}

func TestListActiveSortsByDateThenTime(t *testing.T) {
	remote := newFakeRemote()
	remote.appointments["P1"] = []Appointment{
		{PrimaryID: "A1", Date: "2026-09-10", Time: "09:00", Status: "active"},
		{PrimaryID: "A2", Date: "2026-09-07", Time: "14:00", Status: "active"},
		{PrimaryID: "A3", Date: "2026-09-07", Time: "09:30", Status: "active"},
	}

	svc, _ := newTestService(t, remote, newMemLedger())
	active, err := svc.ListActive(context.Background(), Credentials{}, "P1")
	require.NoError(t, err)

	ids := []string{active[0].PrimaryID, active[1].PrimaryID, active[2].PrimaryID}
	assert.Equal(t, []string{"A3", "A2", "A1"}, ids)
}

func TestViewByPhoneNoPatient(t *testing.T) {
	remote := newFakeRemote()
	svc, _ := newTestService(t, remote, newMemLedger())

	_, err := svc.ViewByPhone(context.Background(), Credentials{}, "+33683791443")
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestViewByPhoneMergesHousehold(t *testing.T) {
	remote := newFakeRemote()
	remote.patients = []PatientSummary{{ID: "P1"}, {ID: "P2"}}
	remote.appointments["P1"] = []Appointment{{PrimaryID: "A1", Date: "2026-09-09", Status: "active"}}
	remote.appointments["P2"] = []Appointment{{PrimaryID: "A2", Date: "2026-09-08", Status: "active"}}

	svc, _ := newTestService(t, remote, newMemLedger())
	appts, err := svc.ViewByPhone(context.Background(), Credentials{}, "0683791443")
	require.NoError(t, err)

	require.Len(t, appts, 2)
	assert.Equal(t, "A2", appts[0].PrimaryID)
}

func TestCancelByPhoneHappyPath(t *testing.T) {
	remote := newFakeRemote()
	ledger := newMemLedger()
	remote.patients = []PatientSummary{{ID: "P1"}}
	remote.appointments["P1"] = []Appointment{
		{PrimaryID: "D123", PatientID: "P1", Date: "2026-09-07", Time: "09:30", Status: "active"},
	}
	remote.onCancel = func(string) { remote.setStatus("P1", "D123", "cancelled") }

	svc, locker := newTestService(t, remote, ledger)
	result, err := svc.CancelByPhone(context.Background(), Credentials{}, "06 83 79 14 43", "")
	require.NoError(t, err)

	assert.True(t, result.Outcome.Confirmed)
	assert.Equal(t, "D123", result.Appointment.PrimaryID)
	assert.Equal(t, []string{"D123"}, locker.lockedIDs)
	assert.Equal(t, 1, ledger.adds["D123"])
}

func TestCancelByPhoneDateFilter(t *testing.T) {
	remote := newFakeRemote()
	remote.patients = []PatientSummary{{ID: "P1"}}
	remote.appointments["P1"] = []Appointment{
		{PrimaryID: "D1", PatientID: "P1", Date: "2026-09-07", Status: "active"},
		{PrimaryID: "D2", PatientID: "P1", Date: "2026-09-14", Status: "active"},
	}
	remote.onCancel = func(string) { remote.setStatus("P1", "D2", "cancelled") }

	svc, _ := newTestService(t, remote, newMemLedger())
	// French date format normalizes before matching.
	result, err := svc.CancelByPhone(context.Background(), Credentials{}, "0683791443", "14/09/2026")
	require.NoError(t, err)
	assert.Equal(t, "D2", result.Appointment.PrimaryID)
}

func TestCancelByPhonePlaceholderDateIgnored(t *testing.T) {
	remote := newFakeRemote()
	remote.patients = []PatientSummary{{ID: "P1"}}
	remote.appointments["P1"] = []Appointment{
		{PrimaryID: "D1", PatientID: "P1", Date: "2026-09-07", Status: "active"},
	}
	remote.onCancel = func(string) { remote.setStatus("P1", "D1", "cancelled") }

	svc, _ := newTestService(t, remote, newMemLedger())
	result, err := svc.CancelByPhone(context.Background(), Credentials{}, "0683791443", "{appointment_date}")
	require.NoError(t, err)
	assert.Equal(t, "D1", result.Appointment.PrimaryID)
}

func TestCancelByPhoneNoActiveAppointment(t *testing.T) {
	remote := newFakeRemote()
	ledger := newMemLedger()
	remote.patients = []PatientSummary{{ID: "P1"}}
	remote.appointments["P1"] = []Appointment{
		{PrimaryID: "D123", PatientID: "P1", Date: "2026-09-07", Status: "active"},
	}
	// Already cancelled through this middleware earlier.
	require.NoError(t, ledger.Add(context.Background(), "D123"))

	svc, _ := newTestService(t, remote, ledger)
	_, err := svc.CancelByPhone(context.Background(), Credentials{}, "0683791443", "")
	assert.ErrorIs(t, err, ErrNoActiveAppointment)
}

func TestAvailabilityFiltersByOpeningHours(t *testing.T) {
	remote := newFakeRemote()
	// 2026-09-07 is a Monday, 2026-09-09 a Wednesday. Type 84 is cleaning,
	// open Monday 09:30-14:00 and closed Wednesday.
	remote.slots = []RawSlot{
		{Date: "2026-09-07", Time: "09:45"},
		{Date: "2026-09-07", Time: "08:00"},
		{Date: "2026-09-09", Time: "10:00"},
	}

	svc, _ := newTestService(t, remote, newMemLedger())
	result, err := svc.Availability(context.Background(), Credentials{}, "84", "", "2026-09-07", "", false)
	require.NoError(t, err)

	require.Len(t, result.Slots, 1)
	assert.Equal(t, "09:45", result.Slots[0].Time)
	assert.Equal(t, 2, result.RejectedCount)
}

func TestAvailabilityRejectedCountMetric(t *testing.T) {
	remote := newFakeRemote()
	remote.slots = []RawSlot{{Date: "2026-09-09", Time: "10:00"}}

	m := metrics.New(prometheus.NewRegistry())
	rec := NewReconciler(remote, newMemLedger(), m, zerolog.Nop(), "MC", 1, time.Millisecond)
	svc := NewService(remote, newMemLedger(), rec, &passthroughLocker{}, m, zerolog.Nop())

	_, err := svc.Availability(context.Background(), Credentials{}, "84", "", "2026-09-07", "", false)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SlotsRejected))
}

func TestAvailabilityUnknownTypePassesEverything(t *testing.T) {
	remote := newFakeRemote()
	remote.slots = []RawSlot{
		{Date: "2026-09-06", Time: "03:00"}, // Sunday night
	}

	svc, _ := newTestService(t, remote, newMemLedger())
	result, err := svc.Availability(context.Background(), Credentials{}, "9999", "Mystery visit", "2026-09-01", "", false)
	require.NoError(t, err)

	assert.Len(t, result.Slots, 1)
	assert.Zero(t, result.RejectedCount)
}

func TestAvailabilityDefaultEndDate(t *testing.T) {
	remote := newFakeRemote()
	svc, _ := newTestService(t, remote, newMemLedger())

	_, err := svc.Availability(context.Background(), Credentials{}, "84", "", "01/09/2026", "", true)
	require.NoError(t, err)

	assert.Equal(t, "2026-09-01", remote.slotQuery.StartDate)
	assert.Equal(t, "2026-09-08", remote.slotQuery.EndDate)
	assert.True(t, remote.slotQuery.NewPatient)
}

func TestBookNormalizesInput(t *testing.T) {
	remote := newFakeRemote()
	remote.bookReply = BookingResult{Confirmed: true, AppointmentID: "D900"}

	svc, _ := newTestService(t, remote, newMemLedger())
	result, err := svc.Book(context.Background(), Credentials{}, BookingRequest{
		TypeCode: "27",
		Date:     "07/09/2026",
		Time:     "0930",
		Mobile:   "+33683791443",
		LastName: "Martin",
	})
	require.NoError(t, err)
	assert.True(t, result.Confirmed)
	assert.Equal(t, "D900", result.AppointmentID)
}

func TestBookBusyPassesThrough(t *testing.T) {
	remote := newFakeRemote()
	remote.bookReply = BookingResult{Busy: "slot already taken"}

	svc, _ := newTestService(t, remote, newMemLedger())
	result, err := svc.Book(context.Background(), Credentials{}, BookingRequest{TypeCode: "27", Date: "2026-09-07", Time: "0930", LastName: "Martin", Mobile: "0683791443"})
	require.NoError(t, err)
	assert.False(t, result.Confirmed)
	assert.NotEmpty(t, result.Busy)
}

func TestSuggestType(t *testing.T) {
	remote := newFakeRemote()
	remote.schedules = []Schedule{{
		PractitionerID: "MC",
		AppointmentTypes: []AppointmentType{
			{Code: "27", Name: "Consultation - contrôle"},
			{Code: "61", Name: "Détartrage complet"},
			{Code: "90", Name: "Chirurgie - extraction"},
		},
	}}

	svc, _ := newTestService(t, remote, newMemLedger())

	got, err := svc.SuggestType(context.Background(), Credentials{}, "j'ai du tartre sur les dents")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "61", got.Code)

	// No keyword hit falls back to the consultation-like type.
	got, err = svc.SuggestType(context.Background(), Credentials{}, "quelque chose d'autre")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "27", got.Code)
}

func TestSuggestTypeNoTypes(t *testing.T) {
	remote := newFakeRemote()
	svc, _ := newTestService(t, remote, newMemLedger())

	got, err := svc.SuggestType(context.Background(), Credentials{}, "douleur")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAppointmentTypesFlattens(t *testing.T) {
	remote := newFakeRemote()
	remote.schedules = []Schedule{
		{AppointmentTypes: []AppointmentType{{Code: "27"}}},
		{AppointmentTypes: []AppointmentType{{Code: "84"}, {Code: "90"}}},
	}

	svc, _ := newTestService(t, remote, newMemLedger())
	types, err := svc.AppointmentTypes(context.Background(), Credentials{})
	require.NoError(t, err)
	assert.Len(t, types, 3)
}
