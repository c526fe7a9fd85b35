package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUserNotFound     = user.ErrNotFound
	ErrEmailAlreadyUsed = user.ErrDuplicateEmail
)

// DBTX is the slice of the pgx pool the repo needs. *pgxpool.Pool satisfies it,
// and so does pgxmock's pool in tests.
type DBTX interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

type UsersRepo struct {
	pool DBTX
	prom *observability.Prom
}

func NewUsersRepo(pool DBTX, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *UsersRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool

	err := r.observe("users.email_exists", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`,
			email,
		).Scan(&exists)
	})

	if err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}

	return exists, nil
}

// Create inserts a user. The users_email_key unique constraint is the
// authority on duplicates: a violation comes back as ErrEmailAlreadyUsed.
func (r *UsersRepo) Create(ctx context.Context, email, passwordHash string, role user.Role) (user.User, error) {
	var u user.User

	err := r.observe("users.create", func() error {
		return scanUser(r.pool.QueryRow(ctx,
			`INSERT INTO users (email, password_hash, role)
			VALUES ($1, $2, $3)
			RETURNING id, email, password_hash, role, created_at, updated_at`,
			email, passwordHash, string(role),
		), &u)
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user.User{}, ErrEmailAlreadyUsed
		}

		return user.User{}, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}

// GetByEmail returns the full record, password hash included.
func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		return scanUser(r.pool.QueryRow(ctx,
			`SELECT id, email, password_hash, role, created_at, updated_at
			FROM users
			WHERE email = $1`,
			email,
		), &u)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}

		return user.User{}, fmt.Errorf("get user by email: %w", err)
	}

	return u, nil
}

func scanUser(row pgx.Row, u *user.User) error {
	var role string

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return err
	}

	u.Role = user.Role(role)
	return nil
}
