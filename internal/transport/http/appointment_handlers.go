package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"sgth/internal/domain"
	"sgth/internal/service/appointments"
	"sgth/internal/store"
)

type bookRequest struct {
	ScheduleID   int64  `json:"schedule_id"`
	SlotDatetime string `json:"slot_datetime"`
	Notes        string `json:"notes"`
}

type appointmentResponse struct {
	ID              string `json:"id"`
	CategoryID      int64  `json:"category_id"`
	Specialty       string `json:"specialty"`
	AppointmentDate string `json:"appointment_date"`
	Status          string `json:"status"`
	Notes           string `json:"notes,omitempty"`
}

func toAppointmentResponse(a domain.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:              a.ID.String(),
		CategoryID:      a.CategoryID,
		Specialty:       a.Specialty,
		AppointmentDate: a.AppointmentDate.Format(slotTimeLayout),
		Status:          string(a.Status),
		Notes:           a.Notes,
	}
}

func (s *Server) handleBook(c *gin.Context) {
	log := s.log.With(slog.String("handler", "Book"))

	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_json"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	slot, err := time.Parse(slotTimeLayout, req.SlotDatetime)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_slot_datetime"), slog.String("slot_datetime", req.SlotDatetime))
		c.JSON(http.StatusBadRequest, gin.H{"error": "slot_datetime must be YYYY-MM-DDTHH:MM:SS"})
		return
	}

	patientID := currentUserID(c)
	appt, err := s.appointments.Book(c.Request.Context(), appointments.BookInput{
		PatientID:    patientID,
		ScheduleID:   req.ScheduleID,
		SlotDatetime: slot,
		Notes:        req.Notes,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			log.Info("booking conflict",
				slog.String("patient_id", patientID.String()),
				slog.Int64("schedule_id", req.ScheduleID),
				slog.Time("slot", slot),
			)
			c.JSON(http.StatusConflict, gin.H{"error": "that slot is no longer available, pick another one"})
			return
		}
		if errors.Is(err, store.ErrNotFound) {
			log.Info("schedule not found", slog.Int64("schedule_id", req.ScheduleID))
			c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
			return
		}
		var vErr *appointments.ValidationError
		if errors.As(err, &vErr) {
			log.Warn("invalid request", slog.Any("err", err), slog.String("patient_id", patientID.String()))
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
			return
		}
		log.Error("booking failed", slog.Any("err", err), slog.String("patient_id", patientID.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	log.Info("appointment booked",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("patient_id", patientID.String()),
		slog.String("specialty", appt.Specialty),
		slog.Time("appointment_date", appt.AppointmentDate),
	)
	c.JSON(http.StatusCreated, toAppointmentResponse(appt))
}

func (s *Server) handleCancel(c *gin.Context) {
	log := s.log.With(slog.String("handler", "Cancel"))

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_appointment_id"), slog.String("id", c.Param("id")))
		c.JSON(http.StatusBadRequest, gin.H{"error": "appointment id must be a UUID"})
		return
	}

	patientID := currentUserID(c)
	if err := s.appointments.Cancel(c.Request.Context(), patientID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("appointment not found", slog.String("appointment_id", id.String()), slog.String("patient_id", patientID.String()))
			c.JSON(http.StatusNotFound, gin.H{"error": "appointment not found"})
			return
		}
		var vErr *appointments.ValidationError
		if errors.As(err, &vErr) {
			log.Warn("invalid request", slog.Any("err", err), slog.String("appointment_id", id.String()))
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
			return
		}
		log.Error("cancel failed", slog.Any("err", err), slog.String("appointment_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	log.Info("appointment cancelled", slog.String("appointment_id", id.String()), slog.String("patient_id", patientID.String()))
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (s *Server) handleListAppointments(c *gin.Context) {
	log := s.log.With(slog.String("handler", "ListAppointments"))

	patientID := currentUserID(c)
	appts, err := s.appointments.ListForPatient(c.Request.Context(), patientID)
	if err != nil {
		var vErr *appointments.ValidationError
		if errors.As(err, &vErr) {
			log.Warn("invalid request", slog.Any("err", err), slog.String("patient_id", patientID.String()))
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
			return
		}
		log.Error("appointments list failed", slog.Any("err", err), slog.String("patient_id", patientID.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	out := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}

	log.Debug("appointments listed", slog.String("patient_id", patientID.String()), slog.Int("count", len(out)))
	c.JSON(http.StatusOK, gin.H{"appointments": out})
}
