package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"sgth/internal/domain"
	"sgth/internal/service/appointments"
	"sgth/internal/service/auth"
	"sgth/internal/service/schedules"
)

type scheduleService interface {
	NextAvailableSlots(ctx context.Context, name string, categoryType domain.CategoryType, limit int) ([]domain.TimeSlot, error)
	SlotsInWindow(ctx context.Context, name string, categoryType domain.CategoryType, from time.Time, days int) ([]domain.TimeSlot, error)
	SlotsForDay(ctx context.Context, scheduleID int64, date time.Time) ([]domain.TimeSlot, error)
	UpsertSchedule(ctx context.Context, in schedules.UpsertInput) (domain.CategorySchedule, error)
	ListSchedules(ctx context.Context) ([]domain.CategorySchedule, error)
}

type appointmentService interface {
	Book(ctx context.Context, in appointments.BookInput) (domain.Appointment, error)
	Cancel(ctx context.Context, patientID uuid.UUID, appointmentID uuid.UUID) error
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]domain.Appointment, error)
}

type authService interface {
	Register(ctx context.Context, in auth.RegisterInput) (domain.User, error)
	Login(ctx context.Context, dni, password string) (string, domain.User, error)
	ParseToken(tokenString string) (*auth.Claims, error)
	LoadWhitelist(ctx context.Context, persons []domain.AllowedPerson) ([]domain.AllowedPerson, error)
}

type Server struct {
	schedules      scheduleService
	appointments   appointmentService
	auth           authService
	log            *slog.Logger
	requestTimeout time.Duration
}

func NewServer(schedules scheduleService, appointments appointmentService, auth authService, log *slog.Logger, requestTimeout time.Duration) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		schedules:      schedules,
		appointments:   appointments,
		auth:           auth,
		log:            log.With(slog.String("component", "http")),
		requestTimeout: requestTimeout,
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestTimeoutMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.POST("/auth/register", s.handleRegister)
	r.POST("/auth/login", s.handleLogin)

	authed := r.Group("/", s.authMiddleware())
	{
		authed.GET("/appointments/available", s.handleNextAvailable)
		authed.GET("/appointments/slots", s.handleSlotsInWindow)
		authed.GET("/schedules/:id/slots", s.handleScheduleSlots)
		authed.POST("/appointments/book", s.handleBook)
		authed.DELETE("/appointments/:id", s.handleCancel)
		authed.GET("/appointments", s.handleListAppointments)
	}

	admin := r.Group("/admin", s.authMiddleware(), s.requireRole(domain.UserRoleAdmin))
	{
		admin.POST("/schedules", s.handleUpsertSchedule)
		admin.GET("/schedules", s.handleListSchedules)
		admin.POST("/allowed-persons", s.handleLoadWhitelist)
	}

	return r
}

func (s *Server) requestTimeoutMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.requestTimeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.requestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
