package client_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/geocoder89/authhub/internal/client"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth struct {
	u   user.User
	err error
}

func (s stubAuth) Login(context.Context, string, string) (user.User, error) {
	return s.u, s.err
}

func TestSession_Lifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authhub", "session.json")
	store := client.NewFileStore(path)

	s, err := client.LoadSession(store)
	require.NoError(t, err)
	assert.False(t, s.Authenticated())

	u := user.User{ID: 4, Email: "sam@example.com", Role: user.RoleVendor, PasswordHash: "$2a$10$x"}
	require.NoError(t, s.Save(u))
	assert.True(t, s.HasRole(user.RoleVendor))
	assert.False(t, s.HasRole(user.RoleAdmin))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "$2a$10$x")

	restored, err := client.LoadSession(store)
	require.NoError(t, err)
	got, ok := restored.User()
	require.True(t, ok)
	assert.Equal(t, int64(4), got.ID)
	assert.Equal(t, user.RoleVendor, got.Role)

	require.NoError(t, restored.Logout())
	assert.False(t, restored.Authenticated())
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	// clearing an already empty session is fine
	require.NoError(t, restored.Clear())
}

func TestSession_CorruptRecordIsDiscarded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := client.LoadSession(client.NewFileStore(path))
	require.NoError(t, err)
	assert.False(t, s.Authenticated())

	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSession_Login(t *testing.T) {
	s, err := client.LoadSession(&client.MemoryStore{})
	require.NoError(t, err)

	_, err = s.Login(context.Background(), stubAuth{err: errors.New("invalid_credentials")}, "a@b.co", "x")
	require.Error(t, err)
	assert.False(t, s.Authenticated())

	want := user.User{ID: 1, Email: "admin@system.com", Role: user.RoleAdmin}
	got, err := s.Login(context.Background(), stubAuth{u: want}, "admin@system.com", "Admin123!")
	require.NoError(t, err)
	assert.Equal(t, want.Email, got.Email)
	assert.True(t, s.HasRole(user.RoleAdmin))
}
