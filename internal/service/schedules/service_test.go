package schedules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"sgth/internal/domain"
	"sgth/internal/store"
)

var testAnchor = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

type fakeScheduleRepo struct {
	getByIDFn        func(ctx context.Context, id int64) (domain.CategorySchedule, error)
	listByCategoryFn func(ctx context.Context, name string, categoryType domain.CategoryType) ([]domain.CategorySchedule, error)
	listFn           func(ctx context.Context) ([]domain.CategorySchedule, error)
	upsertFn         func(ctx context.Context, sched domain.CategorySchedule) (domain.CategorySchedule, error)
}

func (f *fakeScheduleRepo) GetByID(ctx context.Context, id int64) (domain.CategorySchedule, error) {
	if f.getByIDFn == nil {
		panic("GetByID not configured")
	}
	return f.getByIDFn(ctx, id)
}

func (f *fakeScheduleRepo) ListByCategory(ctx context.Context, name string, categoryType domain.CategoryType) ([]domain.CategorySchedule, error) {
	if f.listByCategoryFn == nil {
		panic("ListByCategory not configured")
	}
	return f.listByCategoryFn(ctx, name, categoryType)
}

func (f *fakeScheduleRepo) List(ctx context.Context) ([]domain.CategorySchedule, error) {
	if f.listFn == nil {
		panic("List not configured")
	}
	return f.listFn(ctx)
}

func (f *fakeScheduleRepo) Upsert(ctx context.Context, sched domain.CategorySchedule) (domain.CategorySchedule, error) {
	if f.upsertFn == nil {
		panic("Upsert not configured")
	}
	return f.upsertFn(ctx, sched)
}

type fakeAppointmentRepo struct {
	occupiedInstantsFn func(ctx context.Context, specialty string, instants []time.Time) ([]time.Time, error)
}

func (f *fakeAppointmentRepo) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	panic("Create not configured")
}

func (f *fakeAppointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	panic("GetByID not configured")
}

func (f *fakeAppointmentRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.Appointment, error) {
	panic("ListByPatient not configured")
}

func (f *fakeAppointmentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AppointmentStatus) error {
	panic("UpdateStatus not configured")
}

func (f *fakeAppointmentRepo) OccupiedInstants(ctx context.Context, specialty string, instants []time.Time) ([]time.Time, error) {
	if f.occupiedInstantsFn == nil {
		panic("OccupiedInstants not configured")
	}
	return f.occupiedInstantsFn(ctx, specialty, instants)
}

func noOccupancy() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{
		occupiedInstantsFn: func(ctx context.Context, specialty string, instants []time.Time) ([]time.Time, error) {
			return nil, nil
		},
	}
}

func mondayRule(name string) domain.CategorySchedule {
	return domain.CategorySchedule{
		ID:               1,
		CategoryType:     domain.CategoryTypeSpecialty,
		Name:             name,
		DayOfWeek:        0,
		StartTime:        "09:00",
		TurnDuration:     30,
		MaxTurnsPerBlock: 4,
		RotationType:     domain.RotationTypeFixed,
		RotationWeeks:    1,
	}
}

func newTestService(schedules *fakeScheduleRepo, appointments *fakeAppointmentRepo, now time.Time) *Service {
	svc := NewService(schedules, appointments, testAnchor)
	svc.now = func() time.Time { return now }
	return svc
}

func TestNextAvailableSlots_OneEarliestSlotPerDay(t *testing.T) {
	rule := mondayRule("Cardiology")
	svc := newTestService(&fakeScheduleRepo{
		listByCategoryFn: func(ctx context.Context, name string, categoryType domain.CategoryType) ([]domain.CategorySchedule, error) {
			return []domain.CategorySchedule{rule}, nil
		},
	}, noOccupancy(), time.Date(2024, time.January, 5, 8, 0, 0, 0, time.UTC)) // Friday

	got, err := svc.NextAvailableSlots(context.Background(), "Cardiology", domain.CategoryTypeSpecialty, 3)
	if err != nil {
		t.Fatalf("NextAvailableSlots error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("slots = %d, want 3", len(got))
	}
	want := []time.Time{
		time.Date(2024, time.January, 8, 9, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 22, 9, 0, 0, 0, time.UTC),
	}
	for i, w := range want {
		if !got[i].SlotDatetime.Equal(w) {
			t.Fatalf("slot[%d] = %v, want %v", i, got[i].SlotDatetime, w)
		}
		if got[i].CategoryName != "Cardiology" {
			t.Fatalf("slot[%d] category = %q", i, got[i].CategoryName)
		}
	}
}

func TestNextAvailableSlots_SkipsFullyBookedDay(t *testing.T) {
	rule := mondayRule("Cardiology")
	firstMonday := time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)

	svc := newTestService(&fakeScheduleRepo{
		listByCategoryFn: func(ctx context.Context, name string, categoryType domain.CategoryType) ([]domain.CategorySchedule, error) {
			return []domain.CategorySchedule{rule}, nil
		},
	}, &fakeAppointmentRepo{
		occupiedInstantsFn: func(ctx context.Context, specialty string, instants []time.Time) ([]time.Time, error) {
			// Every slot on Jan 8 is taken.
			if len(instants) > 0 && instants[0].Day() == firstMonday.Day() {
				return instants, nil
			}
			return nil, nil
		},
	}, time.Date(2024, time.January, 5, 8, 0, 0, 0, time.UTC))

	got, err := svc.NextAvailableSlots(context.Background(), "Cardiology", domain.CategoryTypeSpecialty, 2)
	if err != nil {
		t.Fatalf("NextAvailableSlots error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("slots = %d, want 2", len(got))
	}
	if got[0].SlotDatetime.Day() != 15 || got[1].SlotDatetime.Day() != 22 {
		t.Fatalf("days = %d, %d, want 15, 22", got[0].SlotDatetime.Day(), got[1].SlotDatetime.Day())
	}
}

func TestNextAvailableSlots_PartialBookingShiftsToNextFreeTurn(t *testing.T) {
	rule := mondayRule("Cardiology")
	svc := newTestService(&fakeScheduleRepo{
		listByCategoryFn: func(ctx context.Context, name string, categoryType domain.CategoryType) ([]domain.CategorySchedule, error) {
			return []domain.CategorySchedule{rule}, nil
		},
	}, &fakeAppointmentRepo{
		occupiedInstantsFn: func(ctx context.Context, specialty string, instants []time.Time) ([]time.Time, error) {
			return []time.Time{time.Date(2024, time.January, 8, 9, 0, 0, 0, time.UTC)}, nil
		},
	}, time.Date(2024, time.January, 5, 8, 0, 0, 0, time.UTC))

	got, err := svc.NextAvailableSlots(context.Background(), "Cardiology", domain.CategoryTypeSpecialty, 1)
	if err != nil {
		t.Fatalf("NextAvailableSlots error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("slots = %d, want 1", len(got))
	}
	want := time.Date(2024, time.January, 8, 9, 30, 0, 0, time.UTC)
	if !got[0].SlotDatetime.Equal(want) {
		t.Fatalf("slot = %v, want %v", got[0].SlotDatetime, want)
	}
}

func TestNextAvailableSlots_TodayOnlyCountsFutureSlots(t *testing.T) {
	rule := mondayRule("Cardiology")
	// Monday Jan 8, 09:45: the 09:00 and 09:30 turns are gone already.
	now := time.Date(2024, time.January, 8, 9, 45, 0, 0, time.UTC)

	svc := newTestService(&fakeScheduleRepo{
		listByCategoryFn: func(ctx context.Context, name string, categoryType domain.CategoryType) ([]domain.CategorySchedule, error) {
			return []domain.CategorySchedule{rule}, nil
		},
	}, noOccupancy(), now)

	got, err := svc.NextAvailableSlots(context.Background(), "Cardiology", domain.CategoryTypeSpecialty, 1)
	if err != nil {
		t.Fatalf("NextAvailableSlots error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("slots = %d, want 1", len(got))
	}
	want := time.Date(2024, time.January, 8, 10, 0, 0, 0, time.UTC)
	if !got[0].SlotDatetime.Equal(want) {
		t.Fatalf("slot = %v, want %v", got[0].SlotDatetime, want)
	}
}

func TestNextAvailableSlots_RespectsRotationWeeks(t *testing.T) {
	rule := mondayRule("Dermatology")
	rule.RotationType = domain.RotationTypeAlternated
	rule.RotationWeeks = 3

	svc := newTestService(&fakeScheduleRepo{
		listByCategoryFn: func(ctx context.Context, name string, categoryType domain.CategoryType) ([]domain.CategorySchedule, error) {
			return []domain.CategorySchedule{rule}, nil
		},
	}, noOccupancy(), time.Date(2024, time.January, 2, 8, 0, 0, 0, time.UTC)) // Tuesday of week 0

	got, err := svc.NextAvailableSlots(context.Background(), "Dermatology", domain.CategoryTypeSpecialty, 2)
	if err != nil {
		t.Fatalf("NextAvailableSlots error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("slots = %d, want 2", len(got))
	}
	// Week 0 starts Jan 1; its Monday is behind now, so the first hit is
	// the Monday of week 3, then week 6.
	want := []time.Time{
		time.Date(2024, time.January, 22, 9, 0, 0, 0, time.UTC),
		time.Date(2024, time.February, 12, 9, 0, 0, 0, time.UTC),
	}
	for i, w := range want {
		if !got[i].SlotDatetime.Equal(w) {
			t.Fatalf("slot[%d] = %v, want %v", i, got[i].SlotDatetime, w)
		}
	}
}

func TestNextAvailableSlots_NoRulesMeansNoSlots(t *testing.T) {
	svc := newTestService(&fakeScheduleRepo{
		listByCategoryFn: func(ctx context.Context, name string, categoryType domain.CategoryType) ([]domain.CategorySchedule, error) {
			return nil, nil
		},
	}, noOccupancy(), time.Date(2024, time.January, 5, 8, 0, 0, 0, time.UTC))

	got, err := svc.NextAvailableSlots(context.Background(), "Nonexistent", domain.CategoryTypeSpecialty, 3)
	if err != nil {
		t.Fatalf("NextAvailableSlots error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("slots = %d, want 0", len(got))
	}
}

func TestNextAvailableSlots_NotFoundTreatedAsEmpty(t *testing.T) {
	svc := newTestService(&fakeScheduleRepo{
		listByCategoryFn: func(ctx context.Context, name string, categoryType domain.CategoryType) ([]domain.CategorySchedule, error) {
			return nil, store.ErrNotFound
		},
	}, noOccupancy(), time.Date(2024, time.January, 5, 8, 0, 0, 0, time.UTC))

	got, err := svc.NextAvailableSlots(context.Background(), "Nonexistent", domain.CategoryTypeSpecialty, 3)
	if err != nil {
		t.Fatalf("NextAvailableSlots error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("slots = %d, want 0", len(got))
	}
}

func TestNextAvailableSlots_ValidationErrors(t *testing.T) {
	svc := newTestService(&fakeScheduleRepo{}, noOccupancy(), time.Now())

	_, err := svc.NextAvailableSlots(context.Background(), "", domain.CategoryTypeSpecialty, 3)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}

	_, err = svc.NextAvailableSlots(context.Background(), "Cardiology", domain.CategoryType("clinic"), 3)
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
}

func TestSlotsInWindow_TwoWeeklyRulesFullSets(t *testing.T) {
	monday := domain.CategorySchedule{
		ID:               10,
		CategoryType:     domain.CategoryTypeSpecialty,
		Name:             "Pediatrics",
		DayOfWeek:        0,
		StartTime:        "09:00",
		TurnDuration:     30,
		MaxTurnsPerBlock: 2,
		RotationType:     domain.RotationTypeFixed,
		RotationWeeks:    1,
	}
	wednesday := monday
	wednesday.ID = 11
	wednesday.DayOfWeek = 2
	wednesday.StartTime = "14:00"

	svc := newTestService(&fakeScheduleRepo{
		listByCategoryFn: func(ctx context.Context, name string, categoryType domain.CategoryType) ([]domain.CategorySchedule, error) {
			return []domain.CategorySchedule{monday, wednesday}, nil
		},
	}, noOccupancy(), time.Date(2024, time.January, 7, 8, 0, 0, 0, time.UTC)) // Sunday

	from := time.Date(2024, time.January, 7, 0, 0, 0, 0, time.UTC)
	got, err := svc.SlotsInWindow(context.Background(), "Pediatrics", domain.CategoryTypeSpecialty, from, 14)
	if err != nil {
		t.Fatalf("SlotsInWindow error: %v", err)
	}
	// Two Mondays and two Wednesdays in the window, two turns each.
	if len(got) != 8 {
		t.Fatalf("slots = %d, want 8", len(got))
	}
	want := []time.Time{
		time.Date(2024, time.January, 8, 9, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 8, 9, 30, 0, 0, time.UTC),
		time.Date(2024, time.January, 10, 14, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 10, 14, 30, 0, 0, time.UTC),
		time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC),
		time.Date(2024, time.January, 17, 14, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 17, 14, 30, 0, 0, time.UTC),
	}
	for i, w := range want {
		if !got[i].SlotDatetime.Equal(w) {
			t.Fatalf("slot[%d] = %v, want %v", i, got[i].SlotDatetime, w)
		}
	}
}

func TestSlotsInWindow_FiltersOccupiedInstants(t *testing.T) {
	rule := mondayRule("Cardiology")
	svc := newTestService(&fakeScheduleRepo{
		listByCategoryFn: func(ctx context.Context, name string, categoryType domain.CategoryType) ([]domain.CategorySchedule, error) {
			return []domain.CategorySchedule{rule}, nil
		},
	}, &fakeAppointmentRepo{
		occupiedInstantsFn: func(ctx context.Context, specialty string, instants []time.Time) ([]time.Time, error) {
			if specialty != "Cardiology" {
				t.Fatalf("specialty = %q, want %q", specialty, "Cardiology")
			}
			return []time.Time{time.Date(2024, time.January, 8, 9, 30, 0, 0, time.UTC)}, nil
		},
	}, time.Date(2024, time.January, 7, 8, 0, 0, 0, time.UTC))

	from := time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)
	got, err := svc.SlotsInWindow(context.Background(), "Cardiology", domain.CategoryTypeSpecialty, from, 1)
	if err != nil {
		t.Fatalf("SlotsInWindow error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("slots = %d, want 3", len(got))
	}
	want := []time.Time{
		time.Date(2024, time.January, 8, 9, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 8, 10, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 8, 10, 30, 0, 0, time.UTC),
	}
	for i, w := range want {
		if !got[i].SlotDatetime.Equal(w) {
			t.Fatalf("slot[%d] = %v, want %v", i, got[i].SlotDatetime, w)
		}
	}
}

func TestSlotsForDay_WrongWeekdayIsEmpty(t *testing.T) {
	rule := mondayRule("Cardiology")
	svc := newTestService(&fakeScheduleRepo{
		getByIDFn: func(ctx context.Context, id int64) (domain.CategorySchedule, error) {
			return rule, nil
		},
	}, noOccupancy(), time.Date(2024, time.January, 5, 8, 0, 0, 0, time.UTC))

	// Jan 9 2024 is a Tuesday.
	got, err := svc.SlotsForDay(context.Background(), 1, time.Date(2024, time.January, 9, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("SlotsForDay error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("slots = %d, want 0", len(got))
	}
}

func TestSlotsForDay_InactiveRotationWeekIsEmpty(t *testing.T) {
	rule := mondayRule("Dermatology")
	rule.RotationType = domain.RotationTypeAlternated
	rule.RotationWeeks = 2

	svc := newTestService(&fakeScheduleRepo{
		getByIDFn: func(ctx context.Context, id int64) (domain.CategorySchedule, error) {
			return rule, nil
		},
	}, noOccupancy(), time.Date(2024, time.January, 5, 8, 0, 0, 0, time.UTC))

	// Jan 8 2024 is the Monday of week 1 relative to the anchor.
	got, err := svc.SlotsForDay(context.Background(), 1, time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("SlotsForDay error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("slots = %d, want 0", len(got))
	}
}

func TestSlotsForDay_KeepsTodaysElapsedTurns(t *testing.T) {
	rule := mondayRule("Cardiology")
	// Monday Jan 8, 09:45: the day-walk would drop the 09:00 and 09:30
	// turns, but the per-day query returns the full free set.
	now := time.Date(2024, time.January, 8, 9, 45, 0, 0, time.UTC)

	svc := newTestService(&fakeScheduleRepo{
		getByIDFn: func(ctx context.Context, id int64) (domain.CategorySchedule, error) {
			return rule, nil
		},
	}, noOccupancy(), now)

	got, err := svc.SlotsForDay(context.Background(), 1, time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("SlotsForDay error: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("slots = %d, want 4", len(got))
	}
	first := time.Date(2024, time.January, 8, 9, 0, 0, 0, time.UTC)
	if !got[0].SlotDatetime.Equal(first) {
		t.Fatalf("slot[0] = %v, want %v", got[0].SlotDatetime, first)
	}
}

func TestSlotsForDay_PropagatesNotFound(t *testing.T) {
	svc := newTestService(&fakeScheduleRepo{
		getByIDFn: func(ctx context.Context, id int64) (domain.CategorySchedule, error) {
			return domain.CategorySchedule{}, store.ErrNotFound
		},
	}, noOccupancy(), time.Now())

	_, err := svc.SlotsForDay(context.Background(), 42, time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("error = %v, want %v", err, store.ErrNotFound)
	}
}

func TestUpsertSchedule_DefaultsAndValidation(t *testing.T) {
	var got domain.CategorySchedule
	svc := newTestService(&fakeScheduleRepo{
		upsertFn: func(ctx context.Context, sched domain.CategorySchedule) (domain.CategorySchedule, error) {
			got = sched
			return sched, nil
		},
	}, noOccupancy(), time.Now())

	_, err := svc.UpsertSchedule(context.Background(), UpsertInput{
		CategoryType:     domain.CategoryTypeSpecialty,
		Name:             "  Cardiology  ",
		DayOfWeek:        0,
		StartTime:        "09:00",
		TurnDuration:     30,
		MaxTurnsPerBlock: 4,
	})
	if err != nil {
		t.Fatalf("UpsertSchedule error: %v", err)
	}
	if got.Name != "Cardiology" {
		t.Fatalf("name = %q, want %q", got.Name, "Cardiology")
	}
	if got.RotationType != domain.RotationTypeFixed {
		t.Fatalf("rotation_type = %q, want fixed", got.RotationType)
	}
	if got.RotationWeeks != 1 {
		t.Fatalf("rotation_weeks = %d, want 1", got.RotationWeeks)
	}
}

func TestUpsertSchedule_RejectsBadInput(t *testing.T) {
	svc := newTestService(&fakeScheduleRepo{}, noOccupancy(), time.Now())

	valid := UpsertInput{
		CategoryType:     domain.CategoryTypeSpecialty,
		Name:             "Cardiology",
		DayOfWeek:        0,
		StartTime:        "09:00",
		TurnDuration:     30,
		MaxTurnsPerBlock: 4,
	}

	cases := []struct {
		name   string
		mutate func(in *UpsertInput)
	}{
		{"empty name", func(in *UpsertInput) { in.Name = "  " }},
		{"bad category type", func(in *UpsertInput) { in.CategoryType = "clinic" }},
		{"weekday too large", func(in *UpsertInput) { in.DayOfWeek = 7 }},
		{"negative weekday", func(in *UpsertInput) { in.DayOfWeek = -1 }},
		{"bad start time", func(in *UpsertInput) { in.StartTime = "9am" }},
		{"zero duration", func(in *UpsertInput) { in.TurnDuration = 0 }},
		{"zero turns", func(in *UpsertInput) { in.MaxTurnsPerBlock = 0 }},
		{"bad rotation type", func(in *UpsertInput) { in.RotationType = "biweekly" }},
		{"negative rotation weeks", func(in *UpsertInput) { in.RotationWeeks = -1 }},
		{"bad deadline", func(in *UpsertInput) { bad := "noon"; in.DeadlineTime = &bad }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			_, err := svc.UpsertSchedule(context.Background(), in)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
		})
	}
}
