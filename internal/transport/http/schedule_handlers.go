package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"sgth/internal/domain"
	"sgth/internal/service/schedules"
	"sgth/internal/store"
)

// slotTimeLayout renders slot instants as naive local wall-clock times,
// matching how the schedule rules express them.
const slotTimeLayout = "2006-01-02T15:04:05"

type slotResponse struct {
	SlotDatetime   string  `json:"slot_datetime"`
	CategoryName   string  `json:"category_name"`
	CategoryID     int64   `json:"category_id"`
	WarningMessage *string `json:"warning_message,omitempty"`
	DeadlineTime   *string `json:"deadline_time,omitempty"`
}

func toSlotResponses(slots []domain.TimeSlot) []slotResponse {
	out := make([]slotResponse, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slotResponse{
			SlotDatetime:   slot.SlotDatetime.Format(slotTimeLayout),
			CategoryName:   slot.CategoryName,
			CategoryID:     slot.CategoryID,
			WarningMessage: slot.WarningMessage,
			DeadlineTime:   slot.DeadlineTime,
		})
	}
	return out
}

func categoryTypeParam(c *gin.Context) domain.CategoryType {
	ct := c.Query("category_type")
	if ct == "" {
		return domain.CategoryTypeSpecialty
	}
	return domain.CategoryType(ct)
}

func (s *Server) handleNextAvailable(c *gin.Context) {
	log := s.log.With(slog.String("handler", "NextAvailable"))

	name := c.Query("category_name")
	slots, err := s.schedules.NextAvailableSlots(c.Request.Context(), name, categoryTypeParam(c), schedules.DefaultNextSlots)
	if err != nil {
		var vErr *schedules.ValidationError
		if errors.As(err, &vErr) {
			log.Warn("invalid request", slog.Any("err", err), slog.String("category_name", name))
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
			return
		}
		log.Error("availability search failed", slog.Any("err", err), slog.String("category_name", name))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	log.Debug("availability searched", slog.String("category_name", name), slog.Int("count", len(slots)))
	c.JSON(http.StatusOK, gin.H{"slots": toSlotResponses(slots)})
}

func (s *Server) handleSlotsInWindow(c *gin.Context) {
	log := s.log.With(slog.String("handler", "SlotsInWindow"))

	name := c.Query("category_name")

	var from time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			log.Warn("invalid request", slog.String("reason", "bad_date"), slog.String("date", raw))
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		from = parsed
	}

	slots, err := s.schedules.SlotsInWindow(c.Request.Context(), name, categoryTypeParam(c), from, schedules.DefaultWindowDays)
	if err != nil {
		var vErr *schedules.ValidationError
		if errors.As(err, &vErr) {
			log.Warn("invalid request", slog.Any("err", err), slog.String("category_name", name))
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
			return
		}
		log.Error("slot window failed", slog.Any("err", err), slog.String("category_name", name))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	log.Debug("slot window computed", slog.String("category_name", name), slog.Int("count", len(slots)))
	c.JSON(http.StatusOK, gin.H{"slots": toSlotResponses(slots)})
}

func (s *Server) handleScheduleSlots(c *gin.Context) {
	log := s.log.With(slog.String("handler", "ScheduleSlots"))

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_schedule_id"), slog.String("id", c.Param("id")))
		c.JSON(http.StatusBadRequest, gin.H{"error": "schedule id must be an integer"})
		return
	}

	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_date"), slog.String("date", c.Query("date")))
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	slots, err := s.schedules.SlotsForDay(c.Request.Context(), id, date)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("schedule not found", slog.Int64("schedule_id", id))
			c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
			return
		}
		var vErr *schedules.ValidationError
		if errors.As(err, &vErr) {
			log.Warn("invalid request", slog.Any("err", err), slog.Int64("schedule_id", id))
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
			return
		}
		log.Error("schedule slots failed", slog.Any("err", err), slog.Int64("schedule_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	log.Debug("schedule slots computed", slog.Int64("schedule_id", id), slog.Int("count", len(slots)))
	c.JSON(http.StatusOK, gin.H{"slots": toSlotResponses(slots)})
}

type upsertScheduleRequest struct {
	CategoryType     string  `json:"category_type"`
	Name             string  `json:"name"`
	DayOfWeek        int     `json:"day_of_week"`
	StartTime        string  `json:"start_time"`
	TurnDuration     int     `json:"turn_duration"`
	MaxTurnsPerBlock int     `json:"max_turns_per_block"`
	RotationType     string  `json:"rotation_type"`
	RotationWeeks    int     `json:"rotation_weeks"`
	StartDate        *string `json:"start_date"`
	DeadlineTime     *string `json:"deadline_time"`
	WarningMessage   *string `json:"warning_message"`
}

type scheduleResponse struct {
	ID               int64   `json:"id"`
	CategoryType     string  `json:"category_type"`
	Name             string  `json:"name"`
	DayOfWeek        int     `json:"day_of_week"`
	StartTime        string  `json:"start_time"`
	TurnDuration     int     `json:"turn_duration"`
	MaxTurnsPerBlock int     `json:"max_turns_per_block"`
	RotationType     string  `json:"rotation_type"`
	RotationWeeks    int     `json:"rotation_weeks"`
	StartDate        *string `json:"start_date,omitempty"`
	DeadlineTime     *string `json:"deadline_time,omitempty"`
	WarningMessage   *string `json:"warning_message,omitempty"`
}

func toScheduleResponse(sched domain.CategorySchedule) scheduleResponse {
	var startDate *string
	if sched.StartDate != nil {
		formatted := sched.StartDate.Format("2006-01-02")
		startDate = &formatted
	}
	return scheduleResponse{
		ID:               sched.ID,
		CategoryType:     string(sched.CategoryType),
		Name:             sched.Name,
		DayOfWeek:        sched.DayOfWeek,
		StartTime:        sched.StartTime,
		TurnDuration:     sched.TurnDuration,
		MaxTurnsPerBlock: sched.MaxTurnsPerBlock,
		RotationType:     string(sched.RotationType),
		RotationWeeks:    sched.RotationWeeks,
		StartDate:        startDate,
		DeadlineTime:     sched.DeadlineTime,
		WarningMessage:   sched.WarningMessage,
	}
}

func (s *Server) handleUpsertSchedule(c *gin.Context) {
	log := s.log.With(slog.String("handler", "UpsertSchedule"))

	var req upsertScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_json"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var startDate *time.Time
	if req.StartDate != nil {
		parsed, err := time.Parse("2006-01-02", *req.StartDate)
		if err != nil {
			log.Warn("invalid request", slog.String("reason", "bad_start_date"), slog.String("start_date", *req.StartDate))
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
			return
		}
		startDate = &parsed
	}

	sched, err := s.schedules.UpsertSchedule(c.Request.Context(), schedules.UpsertInput{
		CategoryType:     domain.CategoryType(req.CategoryType),
		Name:             req.Name,
		DayOfWeek:        req.DayOfWeek,
		StartTime:        req.StartTime,
		TurnDuration:     req.TurnDuration,
		MaxTurnsPerBlock: req.MaxTurnsPerBlock,
		RotationType:     domain.RotationType(req.RotationType),
		RotationWeeks:    req.RotationWeeks,
		StartDate:        startDate,
		DeadlineTime:     req.DeadlineTime,
		WarningMessage:   req.WarningMessage,
	})
	if err != nil {
		var vErr *schedules.ValidationError
		if errors.As(err, &vErr) {
			log.Warn("invalid request", slog.Any("err", err), slog.String("name", req.Name))
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
			return
		}
		log.Error("schedule upsert failed", slog.Any("err", err), slog.String("name", req.Name))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	log.Info("schedule upserted",
		slog.Int64("schedule_id", sched.ID),
		slog.String("name", sched.Name),
		slog.Int("day_of_week", sched.DayOfWeek),
	)
	c.JSON(http.StatusOK, toScheduleResponse(sched))
}

func (s *Server) handleListSchedules(c *gin.Context) {
	log := s.log.With(slog.String("handler", "ListSchedules"))

	scheds, err := s.schedules.ListSchedules(c.Request.Context())
	if err != nil {
		log.Error("schedule list failed", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	out := make([]scheduleResponse, 0, len(scheds))
	for _, sched := range scheds {
		out = append(out, toScheduleResponse(sched))
	}

	log.Debug("schedules listed", slog.Int("count", len(out)))
	c.JSON(http.StatusOK, gin.H{"schedules": out})
}
