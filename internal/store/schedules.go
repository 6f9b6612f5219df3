package store

import (
	"context"

	"sgth/internal/domain"
)

type ScheduleRepository interface {
	// GetByID returns ErrNotFound when no schedule has the id.
	GetByID(ctx context.Context, id int64) (domain.CategorySchedule, error)
	// ListByCategory returns every schedule matching the name and type,
	// one per weekday at most.
	ListByCategory(ctx context.Context, name string, categoryType domain.CategoryType) ([]domain.CategorySchedule, error)
	List(ctx context.Context) ([]domain.CategorySchedule, error)
	// Upsert creates the schedule, or replaces the existing block for the
	// same (name, day_of_week) pair.
	Upsert(ctx context.Context, sched domain.CategorySchedule) (domain.CategorySchedule, error)
}
