package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"sgth/internal/domain"
	"sgth/internal/service/auth"
)

const claimsKey = "auth_claims"

func (s *Server) authMiddleware() gin.HandlerFunc {
	log := s.log.With(slog.String("middleware", "auth"))

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			log.Warn("missing bearer token", slog.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := s.auth.ParseToken(strings.TrimSpace(token))
		if err != nil {
			log.Warn("invalid token", slog.Any("err", err), slog.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

func (s *Server) requireRole(role domain.UserRole) gin.HandlerFunc {
	log := s.log.With(slog.String("middleware", "require_role"))

	return func(c *gin.Context) {
		claims := currentClaims(c)
		if claims == nil || claims.Role != role {
			log.Warn("forbidden", slog.String("path", c.FullPath()), slog.String("required_role", string(role)))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}
		c.Next()
	}
}

func currentClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, ok := v.(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}

func currentUserID(c *gin.Context) uuid.UUID {
	claims := currentClaims(c)
	if claims == nil {
		return uuid.Nil
	}
	return claims.UserID
}
