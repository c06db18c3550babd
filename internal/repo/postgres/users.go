package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vmarkevych/storefront/internal/domain/user"
	"github.com/vmarkevych/storefront/internal/observability"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	observer
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, observer: observer{prom: prom}}
}

const userColumns = `id, email, password_hash, role, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func userNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return user.ErrNotFound
	}
	return err
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`,
			email,
		))
		return err
	})
	if err != nil {
		return user.User{}, userNotFound(err)
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_id", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`,
			id,
		))
		return err
	})
	if err != nil {
		return user.User{}, userNotFound(err)
	}
	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
			u.ID, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt,
		)
		return err
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}
	return u, nil
}
