package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"sgth/internal/domain"
	"sgth/internal/store"
)

type UserRepo struct {
	db *bun.DB
}

func NewUserRepo(db *bun.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	m := user
	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.User{}, store.ErrConflict
		}
		return domain.User{}, err
	}
	return m, nil
}

func (r *UserRepo) GetByDNI(ctx context.Context, dni string) (domain.User, error) {
	var row domain.User
	err := r.db.NewSelect().
		Model(&row).
		Where("dni = ?", dni).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, store.ErrNotFound
		}
		return domain.User{}, err
	}
	return row, nil
}

type WhitelistRepo struct {
	db *bun.DB
}

func NewWhitelistRepo(db *bun.DB) *WhitelistRepo {
	return &WhitelistRepo{db: db}
}

func (r *WhitelistRepo) IsAllowed(ctx context.Context, dni string) (bool, error) {
	return r.db.NewSelect().
		Model((*domain.AllowedPerson)(nil)).
		Where("dni = ?", dni).
		Exists(ctx)
}

// MarkRegistered flags the whitelist row once the account exists. A DNI
// missing from the whitelist is not an error here; registration has
// already been authorized by that point.
func (r *WhitelistRepo) MarkRegistered(ctx context.Context, dni string) error {
	_, err := r.db.NewUpdate().
		Model((*domain.AllowedPerson)(nil)).
		Set("is_registered = ?", true).
		Where("dni = ?", dni).
		Exec(ctx)
	return err
}

func (r *WhitelistRepo) Add(ctx context.Context, persons []domain.AllowedPerson) ([]domain.AllowedPerson, error) {
	if len(persons) == 0 {
		return nil, nil
	}

	rows := make([]domain.AllowedPerson, len(persons))
	copy(rows, persons)

	_, err := r.db.NewInsert().
		Model(&rows).
		On("CONFLICT (dni) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
