package schedules

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"sgth/internal/domain"
	"sgth/internal/store"
)

// searchHorizonDays bounds the day-walk when looking for upcoming
// availability. Two months is enough for every rotation cadence in use.
const searchHorizonDays = 60

// DefaultNextSlots is how many upcoming days of availability a search
// returns when the caller does not say otherwise.
const DefaultNextSlots = 3

// DefaultWindowDays is the span of the calendar window query.
const DefaultWindowDays = 14

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// Service computes bookable slots from the weekly schedule rules. Slots are
// derived on every call from the rules plus the current appointment book;
// nothing here is persisted.
type Service struct {
	schedules    store.ScheduleRepository
	appointments store.AppointmentRepository
	anchor       time.Time

	now func() time.Time
}

// NewService builds the slot engine. anchor is the global rotation anchor
// used for alternated rules that carry no start_date of their own.
func NewService(schedules store.ScheduleRepository, appointments store.AppointmentRepository, anchor time.Time) *Service {
	return &Service{
		schedules:    schedules,
		appointments: appointments,
		anchor:       anchor,
		now:          time.Now,
	}
}

// NextAvailableSlots walks forward from today and returns the earliest free
// slot of each of the next limit days that have one, soonest first. Days
// where the category has no active rule, or where every generated slot is
// already taken, contribute nothing. Today only counts slots that are still
// in the future.
func (s *Service) NextAvailableSlots(ctx context.Context, name string, categoryType domain.CategoryType, limit int) ([]domain.TimeSlot, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("category_name is required")
	}
	if !validCategoryType(categoryType) {
		return nil, validationError("invalid category_type")
	}
	if limit <= 0 {
		limit = DefaultNextSlots
	}

	byWeekday, err := s.rulesByWeekday(ctx, name, categoryType)
	if err != nil {
		return nil, err
	}
	if len(byWeekday) == 0 {
		return []domain.TimeSlot{}, nil
	}

	now := s.now()
	results := make([]domain.TimeSlot, 0, limit)
	for offset := 0; offset < searchHorizonDays && len(results) < limit; offset++ {
		date := now.AddDate(0, 0, offset)
		rule, ok := byWeekday[domain.WeekdayIndex(date)]
		if !ok {
			continue
		}
		free, err := s.freeSlotsOn(ctx, rule, date, now)
		if err != nil {
			return nil, err
		}
		if len(free) > 0 {
			results = append(results, free[0])
		}
	}
	return results, nil
}

// SlotsInWindow returns every free slot the category offers over the days
// following from, grouped naturally by ascending instant. A zero from means
// today; days <= 0 means the default two-week window.
func (s *Service) SlotsInWindow(ctx context.Context, name string, categoryType domain.CategoryType, from time.Time, days int) ([]domain.TimeSlot, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("category_name is required")
	}
	if !validCategoryType(categoryType) {
		return nil, validationError("invalid category_type")
	}
	if days <= 0 {
		days = DefaultWindowDays
	}

	byWeekday, err := s.rulesByWeekday(ctx, name, categoryType)
	if err != nil {
		return nil, err
	}
	if len(byWeekday) == 0 {
		return []domain.TimeSlot{}, nil
	}

	now := s.now()
	if from.IsZero() {
		from = now
	}

	var results []domain.TimeSlot
	for offset := 0; offset < days; offset++ {
		date := from.AddDate(0, 0, offset)
		rule, ok := byWeekday[domain.WeekdayIndex(date)]
		if !ok {
			continue
		}
		free, err := s.freeSlotsOn(ctx, rule, date, now)
		if err != nil {
			return nil, err
		}
		results = append(results, free...)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].SlotDatetime.Before(results[j].SlotDatetime)
	})
	return results, nil
}

// SlotsForDay returns the free slots a single schedule offers on date. The
// result is empty when date falls on a different weekday than the rule, or
// on an inactive rotation week. Unlike the day-walk, this path returns the
// full free set even for today, elapsed turns included.
func (s *Service) SlotsForDay(ctx context.Context, scheduleID int64, date time.Time) ([]domain.TimeSlot, error) {
	if scheduleID <= 0 {
		return nil, validationError("schedule_id is required")
	}
	if date.IsZero() {
		return nil, validationError("date is required")
	}

	rule, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if domain.WeekdayIndex(date) != rule.DayOfWeek {
		return []domain.TimeSlot{}, nil
	}
	// Zero now keeps the same-day cutoff out of this path.
	free, err := s.freeSlotsOn(ctx, rule, date, time.Time{})
	if err != nil {
		return nil, err
	}
	if free == nil {
		free = []domain.TimeSlot{}
	}
	return free, nil
}

type UpsertInput struct {
	CategoryType     domain.CategoryType
	Name             string
	DayOfWeek        int
	StartTime        string
	TurnDuration     int
	MaxTurnsPerBlock int
	RotationType     domain.RotationType
	RotationWeeks    int
	StartDate        *time.Time
	DeadlineTime     *string
	WarningMessage   *string
}

// UpsertSchedule creates the availability block, or replaces the existing
// one for the same category name and weekday.
func (s *Service) UpsertSchedule(ctx context.Context, in UpsertInput) (domain.CategorySchedule, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.CategorySchedule{}, validationError("name is required")
	}
	if !validCategoryType(in.CategoryType) {
		return domain.CategorySchedule{}, validationError("invalid category_type")
	}
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		return domain.CategorySchedule{}, validationError("day_of_week must be between 0 and 6")
	}
	if _, err := time.Parse("15:04", in.StartTime); err != nil {
		return domain.CategorySchedule{}, validationError("start_time must be HH:MM")
	}
	if in.TurnDuration <= 0 {
		return domain.CategorySchedule{}, validationError("turn_duration must be positive")
	}
	if in.MaxTurnsPerBlock <= 0 {
		return domain.CategorySchedule{}, validationError("max_turns_per_block must be positive")
	}

	rotationType := in.RotationType
	if rotationType == "" {
		rotationType = domain.RotationTypeFixed
	}
	if rotationType != domain.RotationTypeFixed && rotationType != domain.RotationTypeAlternated {
		return domain.CategorySchedule{}, validationError("invalid rotation_type")
	}
	rotationWeeks := in.RotationWeeks
	if rotationWeeks == 0 {
		rotationWeeks = 1
	}
	if rotationWeeks < 1 {
		return domain.CategorySchedule{}, validationError("rotation_weeks must be at least 1")
	}
	if in.DeadlineTime != nil {
		if _, err := time.Parse("15:04", *in.DeadlineTime); err != nil {
			return domain.CategorySchedule{}, validationError("deadline_time must be HH:MM")
		}
	}

	return s.schedules.Upsert(ctx, domain.CategorySchedule{
		CategoryType:     in.CategoryType,
		Name:             name,
		DayOfWeek:        in.DayOfWeek,
		StartTime:        in.StartTime,
		TurnDuration:     in.TurnDuration,
		MaxTurnsPerBlock: in.MaxTurnsPerBlock,
		RotationType:     rotationType,
		RotationWeeks:    rotationWeeks,
		StartDate:        in.StartDate,
		DeadlineTime:     in.DeadlineTime,
		WarningMessage:   in.WarningMessage,
	})
}

func (s *Service) ListSchedules(ctx context.Context) ([]domain.CategorySchedule, error) {
	return s.schedules.List(ctx)
}

// freeSlotsOn generates the rule's full block for date and removes the
// slots already consumed by an active appointment. Occupancy matches on the
// exact instant and the category name. When now is non-zero and date is the
// same calendar day, slots at or before now are dropped as well.
func (s *Service) freeSlotsOn(ctx context.Context, rule domain.CategorySchedule, date time.Time, now time.Time) ([]domain.TimeSlot, error) {
	if !domain.ScheduleActiveOn(rule, date, s.anchor) {
		return nil, nil
	}

	slots, err := domain.GenerateSlots(rule, date)
	if err != nil {
		return nil, err
	}

	instants := make([]time.Time, len(slots))
	for i, slot := range slots {
		instants[i] = slot.SlotDatetime
	}
	occupied, err := s.appointments.OccupiedInstants(ctx, rule.Name, instants)
	if err != nil {
		return nil, err
	}
	taken := make(map[int64]struct{}, len(occupied))
	for _, t := range occupied {
		taken[t.Unix()] = struct{}{}
	}

	sameDay := !now.IsZero() && date.Year() == now.Year() && date.YearDay() == now.YearDay()

	free := slots[:0]
	for _, slot := range slots {
		if _, ok := taken[slot.SlotDatetime.Unix()]; ok {
			continue
		}
		if sameDay && !slot.SlotDatetime.After(now) {
			continue
		}
		free = append(free, slot)
	}
	return free, nil
}

// rulesByWeekday loads the category's rules keyed by weekday index. There is
// at most one rule per weekday, enforced by the schedules table. A category
// with no rules yields an empty map, not an error.
func (s *Service) rulesByWeekday(ctx context.Context, name string, categoryType domain.CategoryType) (map[int]domain.CategorySchedule, error) {
	rules, err := s.schedules.ListByCategory(ctx, name, categoryType)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return map[int]domain.CategorySchedule{}, nil
		}
		return nil, err
	}
	byWeekday := make(map[int]domain.CategorySchedule, len(rules))
	for _, rule := range rules {
		byWeekday[rule.DayOfWeek] = rule
	}
	return byWeekday, nil
}

func validCategoryType(ct domain.CategoryType) bool {
	return ct == domain.CategoryTypeSpecialty || ct == domain.CategoryTypeLaboratory
}
