package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/salonora/agenda/internal/model"
	"github.com/salonora/agenda/libs/db"
)

type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// LockDate serializes booking writes for one calendar date. Row locks alone
// cannot order two inserts whose conflicting rows do not exist yet, and the
// exclusion constraint keys "any professional" rows separately from scoped
// ones, so cross-key overlaps would slip through without this. The lock is
// transaction-scoped and released on commit or rollback.
func (r *AppointmentRepository) LockDate(ctx context.Context, tx pgx.Tx, date string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, date)
	return err
}

func (r *AppointmentRepository) Create(ctx context.Context, tx pgx.Tx, appt *model.Appointment) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO appointments
			(date, start_minute, duration_minutes, status, professional_id, service_ids, customer_name, customer_email, customer_phone)
		VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, $6, $7, $8, $9)
		RETURNING id::text
	`, appt.Date, appt.StartMinute, appt.DurationMinutes, string(appt.Status), appt.ProfessionalID,
		appt.ServiceIDs, appt.CustomerName, appt.CustomerEmail, appt.CustomerPhone).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

const appointmentColumns = `
	id::text, to_char(date, 'YYYY-MM-DD'), start_minute, duration_minutes, status,
	COALESCE(professional_id::text, ''), service_ids, customer_name, customer_email, customer_phone, created_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	var status string
	err := row.Scan(
		&a.ID,
		&a.Date,
		&a.StartMinute,
		&a.DurationMinutes,
		&status,
		&a.ProfessionalID,
		&a.ServiceIDs,
		&a.CustomerName,
		&a.CustomerEmail,
		&a.CustomerPhone,
		&a.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	a.Status = model.AppointmentStatus(status)
	return a, nil
}

// ListByDate returns every appointment on the date regardless of status; the
// availability engine filters occupancy itself.
func (r *AppointmentRepository) ListByDate(ctx context.Context, date string) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE date = $1
		ORDER BY start_minute ASC
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// ListByDateForUpdate locks the date's occupying rows inside tx so a booking
// re-check and its insert see the same snapshot. New inserts racing past the
// lock are caught by the overlap exclusion constraint.
func (r *AppointmentRepository) ListByDateForUpdate(ctx context.Context, tx pgx.Tx, date string) ([]model.Appointment, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE date = $1 AND status IN ('pending', 'confirmed')
		ORDER BY start_minute ASC
		FOR UPDATE
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	var appts []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func (r *AppointmentRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Appointment, error) {
	return scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id))
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status model.AppointmentStatus) error {
	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = $2, updated_at = now()
		WHERE id = $1
	`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// IsConflict matches the exclusion-constraint violation raised when two
// occupying appointments overlap on the same calendar.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
