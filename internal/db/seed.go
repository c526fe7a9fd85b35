package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/domain/user"
)

type SchemaMigrator interface {
	Up() error
}

type SeedStore interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, email, passwordHash string, role user.Role) (user.User, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// Seed is an account created once at bootstrap if its email is absent.
type Seed struct {
	Email    string
	Password string
	Role     user.Role
}

// DefaultSeeds returns the admin and student test accounts from config.
func DefaultSeeds(cfg config.Config) []Seed {
	return []Seed{
		{Email: cfg.SeedAdminEmail, Password: cfg.SeedAdminPassword, Role: user.RoleAdmin},
		{Email: cfg.SeedTestEmail, Password: cfg.SeedTestPassword, Role: user.RoleStudent},
	}
}

type Initializer struct {
	schema SchemaMigrator
	users  SeedStore
	hasher PasswordHasher
	log    *slog.Logger
}

func NewInitializer(schema SchemaMigrator, users SeedStore, hasher PasswordHasher, log *slog.Logger) *Initializer {
	if log == nil {
		log = slog.Default()
	}

	return &Initializer{schema: schema, users: users, hasher: hasher, log: log}
}

// Initialize ensures the schema exists and seeds any missing accounts.
// It is safe to call on every process start.
func (i *Initializer) Initialize(ctx context.Context, seeds ...Seed) error {
	if i.schema != nil {
		if err := i.schema.Up(); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	for _, s := range seeds {
		if err := i.seed(ctx, s); err != nil {
			return fmt.Errorf("seed %s account: %w", s.Role, err)
		}
	}

	return nil
}

func (i *Initializer) seed(ctx context.Context, s Seed) error {
	if s.Email == "" || s.Password == "" {
		return nil
	}

	if err := user.CheckPassword(s.Password); err != nil {
		return err
	}

	// check if the user exists
	exists, err := i.users.EmailExists(ctx, s.Email)
	if err != nil {
		return err
	}

	if exists {
		i.log.Debug("seed account present", "email", s.Email, "role", s.Role)
		return nil
	}

	hash, err := i.hasher.Hash(s.Password)
	if err != nil {
		return err
	}

	_, err = i.users.Create(ctx, s.Email, hash, s.Role)

	// another process seeded it between the check and the insert
	if errors.Is(err, user.ErrDuplicateEmail) {
		return nil
	}

	if err != nil {
		return err
	}

	i.log.Info("seed account created", "email", s.Email, "role", s.Role)

	return nil
}
