package service_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/authhub/internal/cache"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/repo/memory"
	"github.com/geocoder89/authhub/internal/security"
	"github.com/geocoder89/authhub/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// fakeStore lets each test override one store call.
type fakeStore struct {
	existsFn func(ctx context.Context, email string) (bool, error)
	createFn func(ctx context.Context, email, hash string, role user.Role) (user.User, error)
	getFn    func(ctx context.Context, email string) (user.User, error)
}

func (f *fakeStore) EmailExists(ctx context.Context, email string) (bool, error) {
	if f.existsFn != nil {
		return f.existsFn(ctx, email)
	}
	return false, nil
}

func (f *fakeStore) Create(ctx context.Context, email, hash string, role user.Role) (user.User, error) {
	if f.createFn != nil {
		return f.createFn(ctx, email, hash, role)
	}
	return user.User{ID: 1, Email: email, PasswordHash: hash, Role: role}, nil
}

func (f *fakeStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getFn != nil {
		return f.getFn(ctx, email)
	}
	return user.User{}, user.ErrNotFound
}

func newService(store service.UserStore, logBuf *bytes.Buffer) *service.UserService {
	if logBuf == nil {
		logBuf = &bytes.Buffer{}
	}
	log := slog.New(slog.NewJSONHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return service.NewUserService(store, security.NewBcrypt(bcrypt.MinCost), log)
}

func TestRegister_ThenAuthenticate(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	svc := newService(memory.NewUsersRepo(), &logs)

	created, err := svc.Register(ctx, "sam@example.com", "P@ssw0rd1", user.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", created.Email)
	assert.Equal(t, user.RoleStudent, created.Role)
	assert.Empty(t, created.PasswordHash)

	got, err := svc.Authenticate(ctx, "sam@example.com", "P@ssw0rd1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, user.RoleStudent, got.Role)
	assert.Empty(t, got.PasswordHash)

	assert.NotContains(t, logs.String(), "P@ssw0rd1")
}

func TestRegister_PolicyChecksComeBeforeStore(t *testing.T) {
	store := &fakeStore{
		existsFn: func(context.Context, string) (bool, error) {
			t.Fatalf("store must not be touched on invalid input")
			return false, nil
		},
	}
	svc := newService(store, nil)

	_, err := svc.Register(context.Background(), "a@b.co", "abcdefgh", user.RoleStudent)
	var policyErr *user.PolicyError
	require.ErrorAs(t, err, &policyErr)
	assert.Len(t, policyErr.Violations, 3)

	_, err = svc.Register(context.Background(), "a@b.co", "Abcdef1!", user.RoleAdmin)
	require.ErrorIs(t, err, user.ErrAdminSelfRegistration)

	_, err = svc.Register(context.Background(), "a@b.co", "Abcdef1!", user.Role("moderator"))
	require.ErrorIs(t, err, user.ErrInvalidRole)
}

func TestRegister_DuplicateFromPreCheck(t *testing.T) {
	store := &fakeStore{
		existsFn: func(context.Context, string) (bool, error) { return true, nil },
		createFn: func(context.Context, string, string, user.Role) (user.User, error) {
			t.Fatalf("create must not run when the email exists")
			return user.User{}, nil
		},
	}

	_, err := newService(store, nil).Register(context.Background(), "a@b.co", "Abcdef1!", user.RoleVendor)

	require.ErrorIs(t, err, service.ErrEmailTaken)
}

func TestRegister_DuplicateFromInsertRace(t *testing.T) {
	store := &fakeStore{
		existsFn: func(context.Context, string) (bool, error) { return false, nil },
		createFn: func(context.Context, string, string, user.Role) (user.User, error) {
			return user.User{}, user.ErrDuplicateEmail
		},
	}

	_, err := newService(store, nil).Register(context.Background(), "a@b.co", "Abcdef1!", user.RoleVendor)

	require.ErrorIs(t, err, service.ErrEmailTaken)
	assert.NotErrorIs(t, err, service.ErrPersistence)
}

func TestRegister_StoreFailureIsPersistenceError(t *testing.T) {
	cause := errors.New("connection refused")
	store := &fakeStore{
		createFn: func(context.Context, string, string, user.Role) (user.User, error) {
			return user.User{}, cause
		},
	}

	_, err := newService(store, nil).Register(context.Background(), "a@b.co", "Abcdef1!", user.RoleVendor)

	require.ErrorIs(t, err, service.ErrPersistence)
	require.ErrorIs(t, err, cause)

	var pErr *service.PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "create user", pErr.Op)
}

func TestRegister_PasswordOverHashLimitIsNotPersistenceError(t *testing.T) {
	store := &fakeStore{
		createFn: func(context.Context, string, string, user.Role) (user.User, error) {
			t.Fatalf("create must not run when the password cannot be hashed")
			return user.User{}, nil
		},
	}

	long := "Aa1!" + strings.Repeat("x", 70)
	require.Empty(t, user.ValidatePassword(long))

	_, err := newService(store, nil).Register(context.Background(), "a@b.co", long, user.RoleStudent)

	require.ErrorIs(t, err, service.ErrPasswordTooLong)
	assert.NotErrorIs(t, err, service.ErrPersistence)
}

func TestRegister_ConcurrentSameEmailExactlyOneWins(t *testing.T) {
	svc := newService(memory.NewUsersRepo(), nil)

	const n = 8
	var wg sync.WaitGroup
	results := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), "race@example.com", "P@ssw0rd1", user.RoleStudent)
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	var ok, taken int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, service.ErrEmailTaken):
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, taken)
}

func TestAuthenticate_FailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	svc := newService(memory.NewUsersRepo(), nil)

	_, err := svc.Register(ctx, "known@example.com", "P@ssw0rd1", user.RoleVendor)
	require.NoError(t, err)

	_, missingErr := svc.Authenticate(ctx, "nonexistent@x.com", "P@ssw0rd1")
	_, wrongErr := svc.Authenticate(ctx, "known@example.com", "Wr0ng!pass")

	require.ErrorIs(t, missingErr, service.ErrInvalidCredentials)
	require.ErrorIs(t, wrongErr, service.ErrInvalidCredentials)
	assert.Equal(t, missingErr, wrongErr)
	assert.Equal(t, missingErr.Error(), wrongErr.Error())
}

func TestAuthenticate_CorruptStoredHashIsInvalidCredentials(t *testing.T) {
	store := &fakeStore{
		getFn: func(context.Context, string) (user.User, error) {
			return user.User{ID: 3, Email: "a@b.co", PasswordHash: "garbage", Role: user.RoleStudent}, nil
		},
	}

	_, err := newService(store, nil).Authenticate(context.Background(), "a@b.co", "Abcdef1!")

	require.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestAuthenticate_StoreFailureIsPersistenceError(t *testing.T) {
	store := &fakeStore{
		getFn: func(context.Context, string) (user.User, error) {
			return user.User{}, errors.New("connection refused")
		},
	}

	_, err := newService(store, nil).Authenticate(context.Background(), "a@b.co", "Abcdef1!")

	require.ErrorIs(t, err, service.ErrPersistence)
	assert.NotErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestFindByEmail(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUsersRepo()
	_, err := repo.Create(ctx, "admin@system.com", "$2a$04$seeded", user.RoleAdmin)
	require.NoError(t, err)

	svc := newService(repo, nil)

	got, err := svc.FindByEmail(ctx, "admin@system.com")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, got.Role)
	assert.Empty(t, got.PasswordHash)

	_, err = svc.FindByEmail(ctx, "nobody@system.com")
	require.ErrorIs(t, err, service.ErrUserNotFound)

	failing := &fakeStore{
		getFn: func(context.Context, string) (user.User, error) { return user.User{}, errors.New("timeout") },
	}
	_, err = newService(failing, nil).FindByEmail(ctx, "admin@system.com")
	require.ErrorIs(t, err, service.ErrPersistence)
}

func TestFindByEmail_UsesProfileCache(t *testing.T) {
	ctx := context.Background()
	lookups := 0
	store := &fakeStore{
		getFn: func(_ context.Context, email string) (user.User, error) {
			lookups++
			if email == "sam@example.com" {
				return user.User{ID: 2, Email: email, PasswordHash: "$2a$04$h", Role: user.RoleVendor}, nil
			}
			return user.User{}, user.ErrNotFound
		},
	}

	svc := service.NewUserService(store, security.NewBcrypt(bcrypt.MinCost), nil,
		service.WithProfileCache(cache.NewMemoryProfiles(time.Minute)))

	for i := 0; i < 3; i++ {
		got, err := svc.FindByEmail(ctx, "sam@example.com")
		require.NoError(t, err)
		assert.Empty(t, got.PasswordHash)
	}
	assert.Equal(t, 1, lookups)

	for i := 0; i < 2; i++ {
		_, err := svc.FindByEmail(ctx, "ghost@example.com")
		require.ErrorIs(t, err, service.ErrUserNotFound)
	}
	assert.Equal(t, 3, lookups)
}
