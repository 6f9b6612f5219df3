package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"sgth/internal/domain"
	"sgth/internal/store"
)

type ScheduleRepo struct {
	db *bun.DB
}

func NewScheduleRepo(db *bun.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

func (r *ScheduleRepo) GetByID(ctx context.Context, id int64) (domain.CategorySchedule, error) {
	var row domain.CategorySchedule
	err := r.db.NewSelect().
		Model(&row).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CategorySchedule{}, store.ErrNotFound
		}
		return domain.CategorySchedule{}, err
	}
	return row, nil
}

func (r *ScheduleRepo) ListByCategory(ctx context.Context, name string, categoryType domain.CategoryType) ([]domain.CategorySchedule, error) {
	var rows []domain.CategorySchedule
	err := r.db.NewSelect().
		Model(&rows).
		Where("name = ?", name).
		Where("category_type = ?", categoryType).
		OrderExpr("day_of_week ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ScheduleRepo) List(ctx context.Context) ([]domain.CategorySchedule, error) {
	var rows []domain.CategorySchedule
	err := r.db.NewSelect().
		Model(&rows).
		OrderExpr("category_type ASC, day_of_week ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Upsert keys on (name, day_of_week): one availability block per weekday
// per category, replaced in place when reconfigured.
func (r *ScheduleRepo) Upsert(ctx context.Context, sched domain.CategorySchedule) (domain.CategorySchedule, error) {
	m := sched
	m.ID = 0

	_, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (name, day_of_week) DO UPDATE").
		Set("category_type = EXCLUDED.category_type").
		Set("start_time = EXCLUDED.start_time").
		Set("turn_duration = EXCLUDED.turn_duration").
		Set("max_turns_per_block = EXCLUDED.max_turns_per_block").
		Set("rotation_type = EXCLUDED.rotation_type").
		Set("rotation_weeks = EXCLUDED.rotation_weeks").
		Set("start_date = EXCLUDED.start_date").
		Set("deadline_time = EXCLUDED.deadline_time").
		Set("warning_message = EXCLUDED.warning_message").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.CategorySchedule{}, err
	}
	return m, nil
}
