package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type UserRole string

const (
	UserRolePatient UserRole = "patient"
	UserRoleDoctor  UserRole = "doctor"
	UserRoleAdmin   UserRole = "admin"
)

// User is an account identified by the national identity number (DNI).
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID             uuid.UUID `bun:"id,pk,type:uuid"`
	DNI            string    `bun:"dni,notnull"`
	HashedPassword string    `bun:"hashed_password,notnull"`
	FullName       string    `bun:"full_name,notnull"`
	Role           UserRole  `bun:"role,notnull"`
	IsActive       bool      `bun:"is_active,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
	UpdatedAt      time.Time `bun:"updated_at,notnull"`
}

func (u *User) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if u.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			u.ID = id
		}
		if u.Role == "" {
			u.Role = UserRolePatient
		}
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		if u.UpdatedAt.IsZero() {
			u.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		u.UpdatedAt = now
	}
	return nil
}

// AllowedPerson is one whitelist row: a DNI authorized to register an
// account, flagged once registration happens.
type AllowedPerson struct {
	bun.BaseModel `bun:"table:allowed_persons"`

	ID           int64     `bun:"id,pk,autoincrement"`
	DNI          string    `bun:"dni,notnull"`
	FullName     *string   `bun:"full_name"`
	IsRegistered bool      `bun:"is_registered,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

func (p *AllowedPerson) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return nil
}
