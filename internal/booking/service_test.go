package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/salonora/agenda/internal/model"
	"github.com/salonora/agenda/internal/outbox"
	"github.com/salonora/agenda/internal/timegrid"
)

// stubTx satisfies pgx.Tx for the methods the service touches; anything
// else panics on the embedded nil interface.
type stubTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *stubTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *stubTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeAppointments struct {
	existing  []model.Appointment
	createErr error
	getErr    error

	tx      *stubTx
	calls   []string
	created *model.Appointment
	updated map[string]model.AppointmentStatus
}

func newFakeAppointments(existing ...model.Appointment) *fakeAppointments {
	return &fakeAppointments{
		existing: existing,
		tx:       &stubTx{},
		updated:  map[string]model.AppointmentStatus{},
	}
}

func (f *fakeAppointments) Begin(context.Context) (pgx.Tx, error) {
	f.calls = append(f.calls, "begin")
	return f.tx, nil
}

func (f *fakeAppointments) LockDate(_ context.Context, _ pgx.Tx, date string) error {
	f.calls = append(f.calls, "lock:"+date)
	return nil
}

func (f *fakeAppointments) Create(_ context.Context, _ pgx.Tx, appt *model.Appointment) (string, error) {
	f.calls = append(f.calls, "create")
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = appt
	return "apt-new", nil
}

func (f *fakeAppointments) ListByDate(_ context.Context, _ string) ([]model.Appointment, error) {
	return f.existing, nil
}

func (f *fakeAppointments) ListByDateForUpdate(_ context.Context, _ pgx.Tx, _ string) ([]model.Appointment, error) {
	f.calls = append(f.calls, "snapshot")
	return f.existing, nil
}

func (f *fakeAppointments) GetForUpdate(_ context.Context, _ pgx.Tx, id string) (model.Appointment, error) {
	if f.getErr != nil {
		return model.Appointment{}, f.getErr
	}
	for _, a := range f.existing {
		if a.ID == id {
			return a, nil
		}
	}
	return model.Appointment{}, pgx.ErrNoRows
}

func (f *fakeAppointments) UpdateStatus(_ context.Context, _ pgx.Tx, id string, status model.AppointmentStatus) error {
	f.calls = append(f.calls, "update")
	f.updated[id] = status
	for i := range f.existing {
		if f.existing[i].ID == id {
			f.existing[i].Status = status
		}
	}
	return nil
}

type fakeBlocks struct {
	blocks []model.TimeBlock
}

func (f *fakeBlocks) ListByDate(context.Context, string) ([]model.TimeBlock, error) {
	return f.blocks, nil
}

type fakeServices struct {
	catalog map[string]model.Service
	calls   int
}

func (f *fakeServices) GetByIDs(_ context.Context, ids []string) (map[string]model.Service, error) {
	f.calls++
	out := map[string]model.Service{}
	for _, id := range ids {
		if s, ok := f.catalog[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

type fakeOutbox struct {
	events []outbox.Event
}

func (f *fakeOutbox) Insert(_ context.Context, _ pgx.Tx, evt outbox.Event) error {
	f.events = append(f.events, evt)
	return nil
}

func testService(appts *fakeAppointments, blocks *fakeBlocks, services *fakeServices, ob *fakeOutbox) *Service {
	grid, err := timegrid.NewGrid("08:00", "19:00", 30)
	if err != nil {
		panic(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(appts, blocks, services, ob, grid, logger)
}

func defaultCatalog() *fakeServices {
	return &fakeServices{catalog: map[string]model.Service{
		"cut":   {ID: "cut", DurationMinutes: 60, PriceCents: 5000},
		"beard": {ID: "beard", DurationMinutes: 30, PriceCents: 3500},
	}}
}

func TestBookPlacesPendingAppointment(t *testing.T) {
	appts := newFakeAppointments()
	ob := &fakeOutbox{}
	svc := testService(appts, &fakeBlocks{}, defaultCatalog(), ob)

	appt, err := svc.Book(context.Background(), Request{
		Date:         "2026-09-01",
		StartTime:    "10:00",
		ServiceIDs:   []string{"cut", "beard"},
		CustomerName: "Ana",
	})
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if appt.ID != "apt-new" || appt.Status != model.StatusPending {
		t.Fatalf("unexpected appointment: %+v", appt)
	}
	if appt.StartMinute != 600 || appt.DurationMinutes != 90 {
		t.Fatalf("unexpected interval: %+v", appt)
	}
	if !appts.tx.committed {
		t.Fatal("transaction not committed")
	}
	if len(ob.events) != 1 || ob.events[0].EventType != outbox.EventAppointmentRequested {
		t.Fatalf("unexpected outbox events: %+v", ob.events)
	}
}

// The date must be serialized before the availability snapshot: two inserts
// whose conflicting rows do not exist yet have nothing to row-lock, so
// without this ordering both would pass the re-check.
func TestBookLocksDateBeforeSnapshot(t *testing.T) {
	appts := newFakeAppointments()
	svc := testService(appts, &fakeBlocks{}, defaultCatalog(), &fakeOutbox{})

	if _, err := svc.Book(context.Background(), Request{
		Date: "2026-09-01", StartTime: "09:00", ServiceIDs: []string{"cut"}, CustomerName: "Ana",
	}); err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	want := []string{"begin", "lock:2026-09-01", "snapshot", "create"}
	if len(appts.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", appts.calls, want)
	}
	for i, call := range want {
		if appts.calls[i] != call {
			t.Fatalf("call %d = %q, want %q (full order %v)", i, appts.calls[i], call, appts.calls)
		}
	}
}

func TestBookAnyProfessionalContendsWithScopedRow(t *testing.T) {
	existing := model.Appointment{
		ID: "apt-1", Date: "2026-09-01", StartMinute: 600, DurationMinutes: 60,
		Status: model.StatusConfirmed, ProfessionalID: "pro-1",
	}
	appts := newFakeAppointments(existing)
	svc := testService(appts, &fakeBlocks{}, defaultCatalog(), &fakeOutbox{})

	_, err := svc.Book(context.Background(), Request{
		Date: "2026-09-01", StartTime: "10:00", ServiceIDs: []string{"cut"}, CustomerName: "Ana",
	})
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected slot conflict, got %v", err)
	}
	if appts.created != nil {
		t.Fatal("conflicting appointment was created")
	}
	if !appts.tx.rolledBack {
		t.Fatal("transaction not rolled back")
	}
}

func TestBookScopedContendsWithAnyProfessionalRow(t *testing.T) {
	existing := model.Appointment{
		ID: "apt-1", Date: "2026-09-01", StartMinute: 600, DurationMinutes: 60,
		Status: model.StatusPending,
	}
	appts := newFakeAppointments(existing)
	svc := testService(appts, &fakeBlocks{}, defaultCatalog(), &fakeOutbox{})

	_, err := svc.Book(context.Background(), Request{
		Date: "2026-09-01", StartTime: "10:30", ProfessionalID: "pro-2",
		ServiceIDs: []string{"cut"}, CustomerName: "Ana",
	})
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected slot conflict, got %v", err)
	}
}

func TestBookConstraintViolationIsConflict(t *testing.T) {
	appts := newFakeAppointments()
	appts.createErr = &pgconn.PgError{Code: "23P01"}
	svc := testService(appts, &fakeBlocks{}, defaultCatalog(), &fakeOutbox{})

	_, err := svc.Book(context.Background(), Request{
		Date: "2026-09-01", StartTime: "10:00", ServiceIDs: []string{"cut"}, CustomerName: "Ana",
	})
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected slot conflict, got %v", err)
	}
}

func TestBookOutsideHours(t *testing.T) {
	appts := newFakeAppointments()
	svc := testService(appts, &fakeBlocks{}, defaultCatalog(), &fakeOutbox{})

	// 18:30 + 60min runs past the 19:00 close.
	_, err := svc.Book(context.Background(), Request{
		Date: "2026-09-01", StartTime: "18:30", ServiceIDs: []string{"cut"}, CustomerName: "Ana",
	})
	if !errors.Is(err, ErrOutsideHours) {
		t.Fatalf("expected outside hours, got %v", err)
	}
	if len(appts.calls) != 0 {
		t.Fatalf("no transaction should start, got calls %v", appts.calls)
	}
}

func TestTransitionGuards(t *testing.T) {
	type action struct {
		name  string
		apply func(*Service, context.Context, string) (model.Appointment, error)
		want  model.AppointmentStatus
		topic string
	}
	actions := []action{
		{"approve", func(s *Service, ctx context.Context, id string) (model.Appointment, error) { return s.Approve(ctx, id) },
			model.StatusConfirmed, outbox.EventAppointmentConfirmed},
		{"reject", func(s *Service, ctx context.Context, id string) (model.Appointment, error) { return s.Reject(ctx, id) },
			model.StatusRejected, outbox.EventAppointmentRejected},
		{"complete", func(s *Service, ctx context.Context, id string) (model.Appointment, error) { return s.Complete(ctx, id) },
			model.StatusCompleted, outbox.EventAppointmentCompleted},
		{"cancel", func(s *Service, ctx context.Context, id string) (model.Appointment, error) { return s.Cancel(ctx, id) },
			model.StatusCancelled, outbox.EventAppointmentCancelled},
	}
	allowed := map[string][]model.AppointmentStatus{
		"approve":  {model.StatusPending},
		"reject":   {model.StatusPending},
		"complete": {model.StatusConfirmed},
		"cancel":   {model.StatusPending, model.StatusConfirmed},
	}
	statuses := []model.AppointmentStatus{
		model.StatusPending, model.StatusConfirmed, model.StatusCompleted,
		model.StatusRejected, model.StatusCancelled,
	}

	for _, act := range actions {
		for _, from := range statuses {
			t.Run(act.name+"/"+string(from), func(t *testing.T) {
				appts := newFakeAppointments(model.Appointment{
					ID: "apt-1", Date: "2026-09-01", StartMinute: 600,
					DurationMinutes: 30, Status: from,
				})
				ob := &fakeOutbox{}
				svc := testService(appts, &fakeBlocks{}, defaultCatalog(), ob)

				got, err := act.apply(svc, context.Background(), "apt-1")

				ok := false
				for _, a := range allowed[act.name] {
					if from == a {
						ok = true
					}
				}
				if ok {
					if err != nil {
						t.Fatalf("%s from %s should succeed: %v", act.name, from, err)
					}
					if got.Status != act.want {
						t.Fatalf("status = %s, want %s", got.Status, act.want)
					}
					if appts.updated["apt-1"] != act.want {
						t.Fatalf("store status = %s, want %s", appts.updated["apt-1"], act.want)
					}
					if len(ob.events) != 1 || ob.events[0].EventType != act.topic {
						t.Fatalf("unexpected outbox events: %+v", ob.events)
					}
					return
				}
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("%s from %s should be rejected, got %v", act.name, from, err)
				}
				if len(appts.updated) != 0 {
					t.Fatalf("status should not change, got %v", appts.updated)
				}
				if len(ob.events) != 0 {
					t.Fatalf("no event should be emitted, got %+v", ob.events)
				}
			})
		}
	}
}

func TestTransitionUnknownAppointment(t *testing.T) {
	appts := newFakeAppointments()
	svc := testService(appts, &fakeBlocks{}, defaultCatalog(), &fakeOutbox{})

	_, err := svc.Approve(context.Background(), "missing")
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected no rows, got %v", err)
	}
}

// A rejection frees the interval: booking the same time again succeeds.
func TestRejectedSlotCanBeRebooked(t *testing.T) {
	appts := newFakeAppointments(model.Appointment{
		ID: "apt-1", Date: "2026-09-01", StartMinute: 600, DurationMinutes: 60,
		Status: model.StatusPending,
	})
	ob := &fakeOutbox{}
	svc := testService(appts, &fakeBlocks{}, defaultCatalog(), ob)

	req := Request{Date: "2026-09-01", StartTime: "10:00", ServiceIDs: []string{"cut"}, CustomerName: "Bia"}
	if _, err := svc.Book(context.Background(), req); !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected conflict while pending, got %v", err)
	}

	if _, err := svc.Reject(context.Background(), "apt-1"); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if _, err := svc.Book(context.Background(), req); err != nil {
		t.Fatalf("rebooking after rejection failed: %v", err)
	}
}

func TestCheckReportsTotalsOutsideHours(t *testing.T) {
	appts := newFakeAppointments()
	services := defaultCatalog()
	svc := testService(appts, &fakeBlocks{}, services, &fakeOutbox{})

	result, err := svc.Check(context.Background(), "2026-09-01", "18:30", "", []string{"cut", "ghost"})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if result.Available {
		t.Fatal("outside hours must not be available")
	}
	if result.TotalDurationMinutes != 60 || result.TotalPriceCents != 5000 {
		t.Fatalf("totals missing on the outside-hours path: %+v", result)
	}
	if len(result.UnknownServiceIDs) != 1 || result.UnknownServiceIDs[0] != "ghost" {
		t.Fatalf("unknown ids missing: %+v", result)
	}
	if services.calls != 1 {
		t.Fatalf("catalog loaded %d times, want 1", services.calls)
	}
}

func TestCheckLoadsCatalogOnce(t *testing.T) {
	appts := newFakeAppointments()
	services := defaultCatalog()
	svc := testService(appts, &fakeBlocks{}, services, &fakeOutbox{})

	result, err := svc.Check(context.Background(), "2026-09-01", "10:00", "", []string{"cut", "beard"})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !result.Available || result.TotalDurationMinutes != 90 || result.TotalPriceCents != 8500 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if services.calls != 1 {
		t.Fatalf("catalog loaded %d times, want 1", services.calls)
	}
}
