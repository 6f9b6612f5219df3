package appointments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"sgth/internal/domain"
	"sgth/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// SlotProvider computes the free slots a schedule offers on a given date.
// The slot engine implements it.
type SlotProvider interface {
	SlotsForDay(ctx context.Context, scheduleID int64, date time.Time) ([]domain.TimeSlot, error)
}

type Service struct {
	repo  store.AppointmentRepository
	slots SlotProvider
}

func NewService(repo store.AppointmentRepository, slots SlotProvider) *Service {
	return &Service{repo: repo, slots: slots}
}

type BookInput struct {
	PatientID    uuid.UUID
	ScheduleID   int64
	SlotDatetime time.Time
	Notes        string
}

// Book takes one slot for the patient. The requested instant is checked
// against the schedule's current free set first, then inserted; the unique
// index on active appointments settles any race between two bookings of the
// same slot, so the second caller gets store.ErrConflict either way.
func (s *Service) Book(ctx context.Context, in BookInput) (domain.Appointment, error) {
	if in.PatientID == uuid.Nil {
		return domain.Appointment{}, validationError("patient_id is required")
	}
	if in.ScheduleID <= 0 {
		return domain.Appointment{}, validationError("schedule_id is required")
	}
	if in.SlotDatetime.IsZero() {
		return domain.Appointment{}, validationError("slot_datetime is required")
	}

	free, err := s.slots.SlotsForDay(ctx, in.ScheduleID, in.SlotDatetime)
	if err != nil {
		return domain.Appointment{}, err
	}

	var slot *domain.TimeSlot
	for i := range free {
		if free[i].SlotDatetime.Unix() == in.SlotDatetime.Unix() {
			slot = &free[i]
			break
		}
	}
	if slot == nil {
		return domain.Appointment{}, store.ErrConflict
	}

	return s.repo.Create(ctx, domain.Appointment{
		PatientID:       in.PatientID,
		CategoryID:      slot.CategoryID,
		Specialty:       slot.CategoryName,
		AppointmentDate: slot.SlotDatetime,
		Status:          domain.AppointmentStatusScheduled,
		Notes:           strings.TrimSpace(in.Notes),
	})
}

// Cancel marks the patient's own appointment cancelled, freeing its slot.
// Appointments belonging to someone else report not found rather than
// revealing they exist.
func (s *Service) Cancel(ctx context.Context, patientID uuid.UUID, appointmentID uuid.UUID) error {
	if patientID == uuid.Nil {
		return validationError("patient_id is required")
	}
	if appointmentID == uuid.Nil {
		return validationError("appointment_id is required")
	}

	appt, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	if appt.PatientID != patientID {
		return store.ErrNotFound
	}
	if appt.Status == domain.AppointmentStatusCancelled {
		return nil
	}
	if appt.Status == domain.AppointmentStatusCompleted {
		return validationError("appointment already completed")
	}

	err = s.repo.UpdateStatus(ctx, appointmentID, domain.AppointmentStatusCancelled)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]domain.Appointment, error) {
	if patientID == uuid.Nil {
		return nil, validationError("patient_id is required")
	}
	return s.repo.ListByPatient(ctx, patientID)
}
