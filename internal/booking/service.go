// Package booking orchestrates appointment placement and lifecycle on top of
// the pure availability engine: it owns the transactions, the commit-time
// re-check, and the outbox events collaborators consume.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/salonora/agenda/internal/availability"
	"github.com/salonora/agenda/internal/catalog"
	"github.com/salonora/agenda/internal/model"
	"github.com/salonora/agenda/internal/outbox"
	"github.com/salonora/agenda/internal/storage"
	"github.com/salonora/agenda/internal/timegrid"
)

var (
	// ErrSlotConflict means the requested interval is taken or blocked. The
	// caller prompts for another time; the attempt is discarded, never
	// queued or silently moved.
	ErrSlotConflict = errors.New("requested time is not available")

	// ErrEmptySelection means the selected services total zero minutes.
	ErrEmptySelection = errors.New("no bookable services selected")

	// ErrInvalidTransition means the appointment is not in a status the
	// requested transition starts from.
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrOutsideHours = errors.New("requested time is outside operating hours")
	ErrUnaligned    = errors.New("start time must sit on the slot grid")
	ErrInvalidDate  = errors.New("invalid date")
)

// AppointmentStore is the appointment persistence this service drives.
// *storage.AppointmentRepository satisfies it.
type AppointmentStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	LockDate(ctx context.Context, tx pgx.Tx, date string) error
	Create(ctx context.Context, tx pgx.Tx, appt *model.Appointment) (string, error)
	ListByDate(ctx context.Context, date string) ([]model.Appointment, error)
	ListByDateForUpdate(ctx context.Context, tx pgx.Tx, date string) ([]model.Appointment, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Appointment, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status model.AppointmentStatus) error
}

type BlockStore interface {
	ListByDate(ctx context.Context, date string) ([]model.TimeBlock, error)
}

type ServiceStore interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]model.Service, error)
}

type OutboxStore interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

type Service struct {
	appts    AppointmentStore
	blocks   BlockStore
	services ServiceStore
	outbox   OutboxStore
	grid     timegrid.Grid
	logger   *slog.Logger
}

func NewService(
	appts AppointmentStore,
	blocks BlockStore,
	services ServiceStore,
	outboxStore OutboxStore,
	grid timegrid.Grid,
	logger *slog.Logger,
) *Service {
	return &Service{
		appts:    appts,
		blocks:   blocks,
		services: services,
		outbox:   outboxStore,
		grid:     grid,
		logger:   logger,
	}
}

type Request struct {
	Date           string
	StartTime      string // HH:MM
	ProfessionalID string
	ServiceIDs     []string
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  string
}

// Book places a new pending appointment. The date's bookings are serialized
// with an advisory lock before the availability re-check: row locks cannot
// order two inserts whose conflicting rows do not exist yet, and an
// any-professional row keys differently from a scoped one in the exclusion
// constraint, so without the lock two such inserts could both commit over
// the same interval. The constraint remains the backstop for same-key races.
func (s *Service) Book(ctx context.Context, req Request) (model.Appointment, error) {
	startMinute, durationMinutes, unknown, _, err := s.resolveCandidate(ctx, req.Date, req.StartTime, req.ServiceIDs)
	if err != nil {
		return model.Appointment{}, err
	}
	if !s.grid.Contains(startMinute, durationMinutes) {
		return model.Appointment{}, ErrOutsideHours
	}
	if len(unknown) > 0 {
		s.logger.Warn("booking references unknown service ids", "ids", unknown)
	}

	tx, err := s.appts.Begin(ctx)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.appts.LockDate(ctx, tx, req.Date); err != nil {
		return model.Appointment{}, fmt.Errorf("lock date: %w", err)
	}
	appts, err := s.appts.ListByDateForUpdate(ctx, tx, req.Date)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("load appointments: %w", err)
	}
	blocks, err := s.blocks.ListByDate(ctx, req.Date)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("load blocks: %w", err)
	}

	candidate := availability.Candidate{
		StartMinute:     startMinute,
		DurationMinutes: durationMinutes,
		ProfessionalID:  req.ProfessionalID,
	}
	if !availability.IsAvailable(candidate, appts, blocks, s.grid.StepMinutes) {
		return model.Appointment{}, ErrSlotConflict
	}

	appt := model.Appointment{
		Date:            req.Date,
		StartMinute:     startMinute,
		DurationMinutes: durationMinutes,
		Status:          model.StatusPending,
		ProfessionalID:  req.ProfessionalID,
		ServiceIDs:      req.ServiceIDs,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
	}
	id, err := s.appts.Create(ctx, tx, &appt)
	if err != nil {
		if storage.IsConflict(err) {
			return model.Appointment{}, ErrSlotConflict
		}
		return model.Appointment{}, fmt.Errorf("create appointment: %w", err)
	}
	appt.ID = id

	if err := s.emit(ctx, tx, outbox.EventAppointmentRequested, appt); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("appointment requested",
		"appointment_id", appt.ID,
		"date", appt.Date,
		"start", timegrid.ToTimeString(appt.StartMinute),
		"duration_minutes", appt.DurationMinutes,
	)
	return appt, nil
}

// transition moves an appointment between statuses with the lifecycle
// guards: pending -> confirmed|rejected, confirmed -> completed, and
// pending|confirmed -> cancelled.
func (s *Service) transition(ctx context.Context, id string, from []model.AppointmentStatus, to model.AppointmentStatus, topic string) (model.Appointment, error) {
	tx, err := s.appts.Begin(ctx)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := s.appts.GetForUpdate(ctx, tx, id)
	if err != nil {
		return model.Appointment{}, err
	}

	allowed := false
	for _, f := range from {
		if appt.Status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return model.Appointment{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, to)
	}

	if err := s.appts.UpdateStatus(ctx, tx, id, to); err != nil {
		return model.Appointment{}, fmt.Errorf("update status: %w", err)
	}
	appt.Status = to

	if err := s.emit(ctx, tx, topic, appt); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("appointment status changed", "appointment_id", id, "status", string(to))
	return appt, nil
}

func (s *Service) Approve(ctx context.Context, id string) (model.Appointment, error) {
	return s.transition(ctx, id, []model.AppointmentStatus{model.StatusPending}, model.StatusConfirmed, outbox.EventAppointmentConfirmed)
}

func (s *Service) Reject(ctx context.Context, id string) (model.Appointment, error) {
	return s.transition(ctx, id, []model.AppointmentStatus{model.StatusPending}, model.StatusRejected, outbox.EventAppointmentRejected)
}

func (s *Service) Complete(ctx context.Context, id string) (model.Appointment, error) {
	return s.transition(ctx, id, []model.AppointmentStatus{model.StatusConfirmed}, model.StatusCompleted, outbox.EventAppointmentCompleted)
}

func (s *Service) Cancel(ctx context.Context, id string) (model.Appointment, error) {
	return s.transition(ctx, id,
		[]model.AppointmentStatus{model.StatusPending, model.StatusConfirmed},
		model.StatusCancelled, outbox.EventAppointmentCancelled)
}

func (s *Service) ListByDate(ctx context.Context, date string) ([]model.Appointment, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	return s.appts.ListByDate(ctx, date)
}

// Slot is one cell of the day grid as the calendar renders it.
type Slot struct {
	Time   string                  `json:"time"`
	Status availability.SlotStatus `json:"status"`
}

// DayGrid resolves the status of every slot in the operating window.
// Per the start-cell rule only a booking's first slot is colored; blocks do
// not color cells at all, they surface through availability checks.
func (s *Service) DayGrid(ctx context.Context, date, professionalID string) ([]Slot, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	appts, err := s.appts.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	slots := make([]Slot, 0, (s.grid.CloseMinute-s.grid.OpenMinute)/s.grid.StepMinutes)
	for m := s.grid.OpenMinute; m < s.grid.CloseMinute; m += s.grid.StepMinutes {
		slots = append(slots, Slot{
			Time:   timegrid.ToTimeString(m),
			Status: availability.StatusOf(appts, professionalID, m),
		})
	}
	return slots, nil
}

// CheckResult is the answer to a pre-booking availability question.
type CheckResult struct {
	Available            bool     `json:"available"`
	TotalDurationMinutes int      `json:"total_duration_minutes"`
	TotalPriceCents      int64    `json:"total_price_cents"`
	UnknownServiceIDs    []string `json:"unknown_service_ids,omitempty"`
}

// Check answers whether the selected services fit at the requested time. It
// is advisory: Book re-runs the same test inside its transaction because
// availability can change between the two calls. The totals are reported
// even when the answer is no, so the client can still show the quote.
func (s *Service) Check(ctx context.Context, date, startTime, professionalID string, serviceIDs []string) (CheckResult, error) {
	startMinute, durationMinutes, unknown, selected, err := s.resolveCandidate(ctx, date, startTime, serviceIDs)
	if err != nil {
		return CheckResult{}, err
	}

	price, _ := catalog.TotalPrice(serviceIDs, selected)
	result := CheckResult{
		TotalDurationMinutes: durationMinutes,
		TotalPriceCents:      price,
		UnknownServiceIDs:    unknown,
	}
	if !s.grid.Contains(startMinute, durationMinutes) {
		return result, nil
	}

	appts, err := s.appts.ListByDate(ctx, date)
	if err != nil {
		return CheckResult{}, err
	}
	blocks, err := s.blocks.ListByDate(ctx, date)
	if err != nil {
		return CheckResult{}, err
	}

	candidate := availability.Candidate{
		StartMinute:     startMinute,
		DurationMinutes: durationMinutes,
		ProfessionalID:  professionalID,
	}
	result.Available = availability.IsAvailable(candidate, appts, blocks, s.grid.StepMinutes)
	return result, nil
}

// resolveCandidate validates the date and start time and aggregates the
// selected services into a total duration. The loaded selection is returned
// so callers do not hit the catalog twice.
func (s *Service) resolveCandidate(ctx context.Context, date, startTime string, serviceIDs []string) (startMinute, durationMinutes int, unknown []string, selected map[string]model.Service, err error) {
	if err := validDate(date); err != nil {
		return 0, 0, nil, nil, err
	}
	startMinute, err = timegrid.ToMinutes(startTime)
	if err != nil {
		return 0, 0, nil, nil, err
	}
	if !s.grid.Aligned(startMinute) {
		return 0, 0, nil, nil, ErrUnaligned
	}

	selected, err = s.services.GetByIDs(ctx, serviceIDs)
	if err != nil {
		return 0, 0, nil, nil, fmt.Errorf("load services: %w", err)
	}
	durationMinutes, unknown = catalog.TotalDuration(serviceIDs, selected)
	if durationMinutes <= 0 {
		return 0, 0, unknown, selected, ErrEmptySelection
	}
	return startMinute, durationMinutes, unknown, selected, nil
}

func (s *Service) emit(ctx context.Context, tx pgx.Tx, topic string, appt model.Appointment) error {
	payload, err := json.Marshal(appt)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	evt := outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     topic,
		Payload:       payload,
	}
	if err := s.outbox.Insert(ctx, tx, evt); err != nil {
		return fmt.Errorf("record outbox event: %w", err)
	}
	return nil
}

func validDate(date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}
