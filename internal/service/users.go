package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/security"
)

type UserStore interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, email, passwordHash string, role user.Role) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) error
}

// ProfileCache holds public user records for profile lookups. Accounts are
// never updated or deleted, so a cached record cannot go stale.
type ProfileCache interface {
	Get(ctx context.Context, email string) (user.User, bool)
	Set(ctx context.Context, u user.User)
}

type UserService struct {
	store    UserStore
	hasher   PasswordHasher
	log      *slog.Logger
	profiles ProfileCache

	// verified against when the email is unknown so both failure paths cost a hash
	dummyHash string
}

type Option func(*UserService)

func WithProfileCache(c ProfileCache) Option {
	return func(s *UserService) {
		s.profiles = c
	}
}

func NewUserService(store UserStore, hasher PasswordHasher, log *slog.Logger, opts ...Option) *UserService {
	if log == nil {
		log = slog.Default()
	}

	s := &UserService{store: store, hasher: hasher, log: log}
	for _, opt := range opts {
		opt(s)
	}

	if h, err := hasher.Hash("authhub-timing-equalizer"); err == nil {
		s.dummyHash = h
	}

	return s
}

// Register creates a self-registered account. Password policy and role are
// checked before the store is touched. The returned user carries no hash.
func (s *UserService) Register(ctx context.Context, email, password string, role user.Role) (user.User, error) {
	if err := user.CheckPassword(password); err != nil {
		return user.User{}, err
	}

	role, err := user.ValidateSelfRegistrationRole(string(role))
	if err != nil {
		return user.User{}, err
	}

	// fast path only; the insert below is authoritative on duplicates
	exists, err := s.store.EmailExists(ctx, email)
	if err != nil {
		return user.User{}, persistence("check email", err)
	}

	if exists {
		return user.User{}, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooLong) {
			return user.User{}, ErrPasswordTooLong
		}

		return user.User{}, persistence("hash password", err)
	}

	u, err := s.store.Create(ctx, email, hash, role)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return user.User{}, ErrEmailTaken
		}

		return user.User{}, persistence("create user", err)
	}

	s.log.InfoContext(ctx, "user registered", "user_id", u.ID, "role", u.Role)

	return u.Public(), nil
}

// Authenticate verifies credentials. An unknown email and a wrong password
// both yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (user.User, error) {
	u, err := s.store.GetByEmail(ctx, email)

	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			return user.User{}, persistence("get user", err)
		}

		if s.dummyHash != "" {
			_ = s.hasher.Verify(s.dummyHash, password)
		}

		return user.User{}, ErrInvalidCredentials
	}

	if err := s.hasher.Verify(u.PasswordHash, password); err != nil {
		if !errors.Is(err, security.ErrMismatch) {
			s.log.WarnContext(ctx, "stored credential could not be verified", "user_id", u.ID, "err", err)
		}

		return user.User{}, ErrInvalidCredentials
	}

	return u.Public(), nil
}

// FindByEmail looks up a public profile. Misses are never cached so a later
// registration is visible immediately.
func (s *UserService) FindByEmail(ctx context.Context, email string) (user.User, error) {
	if s.profiles != nil {
		if u, ok := s.profiles.Get(ctx, email); ok {
			return u, nil
		}
	}

	u, err := s.store.GetByEmail(ctx, email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrUserNotFound
		}

		return user.User{}, persistence("get user", err)
	}

	if s.profiles != nil {
		s.profiles.Set(ctx, u.Public())
	}

	return u.Public(), nil
}
