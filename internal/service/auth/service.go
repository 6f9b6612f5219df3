package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"sgth/internal/domain"
	"sgth/internal/store"
)

var (
	// ErrNotWhitelisted means the DNI is not authorized to register.
	ErrNotWhitelisted = errors.New("dni is not authorized to register")
	// ErrInvalidCredentials covers both unknown DNIs and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveUser means the account exists but has been deactivated.
	ErrInactiveUser = errors.New("user is inactive")
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// Claims is the JWT payload issued on login. Subject carries the DNI.
type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID       `json:"user_id"`
	Role   domain.UserRole `json:"role"`
}

type Service struct {
	users     store.UserRepository
	whitelist store.WhitelistRepository
	secret    []byte
	tokenTTL  time.Duration

	now func() time.Time
}

func NewService(users store.UserRepository, whitelist store.WhitelistRepository, secret string, tokenTTL time.Duration) *Service {
	return &Service{
		users:     users,
		whitelist: whitelist,
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

type RegisterInput struct {
	DNI      string
	Password string
	FullName string
}

// Register creates a patient account for a whitelisted DNI. The whitelist
// row is flagged as registered afterwards.
func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	dni := strings.TrimSpace(in.DNI)
	if dni == "" {
		return domain.User{}, validationError("dni is required")
	}
	if len(in.Password) < 8 {
		return domain.User{}, validationError("password must be at least 8 characters")
	}
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		return domain.User{}, validationError("full_name is required")
	}

	allowed, err := s.whitelist.IsAllowed(ctx, dni)
	if err != nil {
		return domain.User{}, err
	}
	if !allowed {
		return domain.User{}, ErrNotWhitelisted
	}

	hashed, err := HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}

	user, err := s.users.Create(ctx, domain.User{
		DNI:            dni,
		HashedPassword: hashed,
		FullName:       fullName,
		Role:           domain.UserRolePatient,
		IsActive:       true,
	})
	if err != nil {
		return domain.User{}, err
	}

	if err := s.whitelist.MarkRegistered(ctx, dni); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Login verifies the DNI and password and returns a signed bearer token.
// Unknown DNIs and bad passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, dni, password string) (string, domain.User, error) {
	dni = strings.TrimSpace(dni)
	if dni == "" || password == "" {
		return "", domain.User{}, validationError("dni and password are required")
	}

	user, err := s.users.GetByDNI(ctx, dni)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", domain.User{}, ErrInvalidCredentials
		}
		return "", domain.User{}, err
	}
	if !user.IsActive {
		return "", domain.User{}, ErrInactiveUser
	}

	ok, err := VerifyPassword(password, user.HashedPassword)
	if err != nil {
		return "", domain.User{}, err
	}
	if !ok {
		return "", domain.User{}, ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", domain.User{}, err
	}
	return token, user, nil
}

func (s *Service) issueToken(user domain.User) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.DNI,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
		UserID: user.ID,
		Role:   user.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken validates the signature and expiry and returns the claims.
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// LoadWhitelist bulk-inserts authorized DNIs, ignoring ones already present.
func (s *Service) LoadWhitelist(ctx context.Context, persons []domain.AllowedPerson) ([]domain.AllowedPerson, error) {
	valid := make([]domain.AllowedPerson, 0, len(persons))
	for _, p := range persons {
		p.DNI = strings.TrimSpace(p.DNI)
		if p.DNI == "" {
			return nil, validationError("dni is required for every person")
		}
		valid = append(valid, p)
	}
	if len(valid) == 0 {
		return nil, validationError("at least one person is required")
	}
	return s.whitelist.Add(ctx, valid)
}
