package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"sgth/internal/domain"
	"sgth/internal/store"
)

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

// Create inserts the appointment. The appointments_active_slot partial
// unique index rejects a second active appointment for the same specialty
// and instant, which closes the booking race at commit time; the loser
// gets store.ErrConflict.
func (r *AppointmentRepo) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "appointments_active_slot" {
			return domain.Appointment{}, store.ErrConflict
		}
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r *AppointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var row domain.Appointment
	err := r.db.NewSelect().
		Model(&row).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return row, nil
}

func (r *AppointmentRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("patient_id = ?", patientID).
		OrderExpr("appointment_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AppointmentStatus) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Appointment)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *AppointmentRepo) OccupiedInstants(ctx context.Context, specialty string, instants []time.Time) ([]time.Time, error) {
	if len(instants) == 0 {
		return nil, nil
	}

	var occupied []time.Time
	err := r.db.NewSelect().
		Model((*domain.Appointment)(nil)).
		Column("appointment_date").
		Where("specialty = ?", specialty).
		Where("appointment_date IN (?)", bun.In(instants)).
		Where("status IN (?)", bun.In(domain.OccupyingStatuses)).
		Scan(ctx, &occupied)
	if err != nil {
		return nil, err
	}
	return occupied, nil
}
