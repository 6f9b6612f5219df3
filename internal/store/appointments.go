package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sgth/internal/domain"
)

type AppointmentRepository interface {
	// Create returns ErrConflict when another active appointment already
	// occupies the same specialty and instant.
	Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AppointmentStatus) error
	// OccupiedInstants returns the subset of instants consumed by a
	// scheduled or confirmed appointment for the named specialty.
	OccupiedInstants(ctx context.Context, specialty string, instants []time.Time) ([]time.Time, error)
}
