package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type CategoryType string

const (
	CategoryTypeSpecialty  CategoryType = "specialty"
	CategoryTypeLaboratory CategoryType = "laboratory"
)

type RotationType string

const (
	RotationTypeFixed      RotationType = "fixed"
	RotationTypeAlternated RotationType = "alternated"
)

// CategorySchedule describes a weekly recurring availability block for one
// named category (a medical specialty or a laboratory test). DayOfWeek uses
// 0=Monday through 6=Sunday. StartTime and DeadlineTime are wall-clock
// "HH:MM" strings with no timezone attached.
type CategorySchedule struct {
	bun.BaseModel `bun:"table:category_schedules"`

	ID               int64        `bun:"id,pk,autoincrement"`
	CategoryType     CategoryType `bun:"category_type,notnull"`
	Name             string       `bun:"name,notnull"`
	DayOfWeek        int          `bun:"day_of_week,notnull"`
	StartTime        string       `bun:"start_time,notnull"`
	TurnDuration     int          `bun:"turn_duration,notnull"`
	MaxTurnsPerBlock int          `bun:"max_turns_per_block,notnull"`
	RotationType     RotationType `bun:"rotation_type,notnull"`
	RotationWeeks    int          `bun:"rotation_weeks,notnull"`
	StartDate        *time.Time   `bun:"start_date"`
	DeadlineTime     *string      `bun:"deadline_time"`
	WarningMessage   *string      `bun:"warning_message"`
	CreatedAt        time.Time    `bun:"created_at,notnull"`
	UpdatedAt        time.Time    `bun:"updated_at,notnull"`
}

func (s *CategorySchedule) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		s.UpdatedAt = now
	}
	return nil
}

// TimeSlot is one bookable instant generated from a schedule for a specific
// date. Slots are computed fresh on every query and never persisted.
type TimeSlot struct {
	SlotDatetime   time.Time
	CategoryName   string
	CategoryID     int64
	WarningMessage *string
	DeadlineTime   *string
}

// WeekdayIndex converts t's weekday to the Monday=0..Sunday=6 convention
// used by CategorySchedule.DayOfWeek.
func WeekdayIndex(t time.Time) int {
	if t.Weekday() == time.Sunday {
		return 6
	}
	return int(t.Weekday()) - 1
}

// ScheduleActiveOn reports whether the schedule is active during the week
// containing date. Fixed schedules are active every week. Alternated
// schedules count whole 7-day spans from an anchor date (the schedule's own
// start_date, or fallbackAnchor when it has none) and are active when that
// week number is a multiple of rotation_weeks. Dates before the anchor are
// never active, whatever the rotation period; a period of one week or less
// has no alternation to apply, so every post-anchor week is active.
func ScheduleActiveOn(s CategorySchedule, date time.Time, fallbackAnchor time.Time) bool {
	switch s.RotationType {
	case RotationTypeFixed:
		return true
	case RotationTypeAlternated:
		anchor := fallbackAnchor
		if s.StartDate != nil {
			anchor = *s.StartDate
		}
		days := daysBetween(anchor, date)
		if days < 0 {
			return false
		}
		if s.RotationWeeks <= 1 {
			return true
		}
		return (days/7)%s.RotationWeeks == 0
	}
	return false
}

// GenerateSlots enumerates the schedule's full slot block for one calendar
// date: exactly max_turns_per_block instants starting at start_time, spaced
// turn_duration minutes apart, in ascending order. It does not check the
// weekday or the rotation; callers do that first.
func GenerateSlots(s CategorySchedule, date time.Time) ([]TimeSlot, error) {
	if s.TurnDuration <= 0 {
		return nil, errors.New("invalid turn_duration")
	}
	if s.MaxTurnsPerBlock <= 0 {
		return nil, errors.New("invalid max_turns_per_block")
	}

	current, err := CombineDateTime(date, s.StartTime)
	if err != nil {
		return nil, err
	}

	slots := make([]TimeSlot, 0, s.MaxTurnsPerBlock)
	for turn := 0; turn < s.MaxTurnsPerBlock; turn++ {
		slots = append(slots, TimeSlot{
			SlotDatetime:   current,
			CategoryName:   s.Name,
			CategoryID:     s.ID,
			WarningMessage: s.WarningMessage,
			DeadlineTime:   s.DeadlineTime,
		})
		current = current.Add(time.Duration(s.TurnDuration) * time.Minute)
	}
	return slots, nil
}

// CombineDateTime places a wall-clock "HH:MM" on date's calendar day,
// keeping date's location.
func CombineDateTime(date time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time of day %q: %w", hhmm, err)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f) / (24 * time.Hour))
}
