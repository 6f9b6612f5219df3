package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"sgth/internal/domain"
	"sgth/internal/service/auth"
	"sgth/internal/store"
)

type registerRequest struct {
	DNI      string `json:"dni"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type userResponse struct {
	ID       string `json:"id"`
	DNI      string `json:"dni"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:       u.ID.String(),
		DNI:      u.DNI,
		FullName: u.FullName,
		Role:     string(u.Role),
	}
}

func (s *Server) handleRegister(c *gin.Context) {
	log := s.log.With(slog.String("handler", "Register"))

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_json"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := s.auth.Register(c.Request.Context(), auth.RegisterInput{
		DNI:      req.DNI,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		if errors.Is(err, auth.ErrNotWhitelisted) {
			log.Info("registration refused", slog.String("reason", "not_whitelisted"))
			c.JSON(http.StatusForbidden, gin.H{"error": "this identity number is not authorized to register"})
			return
		}
		if errors.Is(err, store.ErrConflict) {
			log.Info("registration refused", slog.String("reason", "already_registered"))
			c.JSON(http.StatusConflict, gin.H{"error": "an account already exists for this identity number"})
			return
		}
		var vErr *auth.ValidationError
		if errors.As(err, &vErr) {
			log.Warn("invalid request", slog.Any("err", err))
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
			return
		}
		log.Error("registration failed", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	log.Info("user registered", slog.String("user_id", user.ID.String()))
	c.JSON(http.StatusCreated, toUserResponse(user))
}

type loginRequest struct {
	DNI      string `json:"dni"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *gin.Context) {
	log := s.log.With(slog.String("handler", "Login"))

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_json"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	token, user, err := s.auth.Login(c.Request.Context(), req.DNI, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			log.Info("login refused", slog.String("reason", "invalid_credentials"))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		if errors.Is(err, auth.ErrInactiveUser) {
			log.Info("login refused", slog.String("reason", "inactive_user"))
			c.JSON(http.StatusForbidden, gin.H{"error": "account is inactive"})
			return
		}
		var vErr *auth.ValidationError
		if errors.As(err, &vErr) {
			log.Warn("invalid request", slog.Any("err", err))
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
			return
		}
		log.Error("login failed", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	log.Info("user logged in", slog.String("user_id", user.ID.String()))
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"user":         toUserResponse(user),
	})
}

type allowedPersonRequest struct {
	DNI      string  `json:"dni"`
	FullName *string `json:"full_name"`
}

func (s *Server) handleLoadWhitelist(c *gin.Context) {
	log := s.log.With(slog.String("handler", "LoadWhitelist"))

	var req struct {
		Persons []allowedPersonRequest `json:"persons"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_json"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	persons := make([]domain.AllowedPerson, 0, len(req.Persons))
	for _, p := range req.Persons {
		persons = append(persons, domain.AllowedPerson{DNI: p.DNI, FullName: p.FullName})
	}

	added, err := s.auth.LoadWhitelist(c.Request.Context(), persons)
	if err != nil {
		var vErr *auth.ValidationError
		if errors.As(err, &vErr) {
			log.Warn("invalid request", slog.Any("err", err))
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
			return
		}
		log.Error("whitelist load failed", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	log.Info("whitelist loaded", slog.Int("count", len(added)))
	c.JSON(http.StatusCreated, gin.H{"loaded": len(added)})
}
