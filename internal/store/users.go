package store

import (
	"context"

	"sgth/internal/domain"
)

type UserRepository interface {
	// Create returns ErrConflict when the DNI is already registered.
	Create(ctx context.Context, user domain.User) (domain.User, error)
	GetByDNI(ctx context.Context, dni string) (domain.User, error)
}

// WhitelistRepository manages the DNIs authorized to register an account.
type WhitelistRepository interface {
	IsAllowed(ctx context.Context, dni string) (bool, error)
	MarkRegistered(ctx context.Context, dni string) error
	Add(ctx context.Context, persons []domain.AllowedPerson) ([]domain.AllowedPerson, error)
}
