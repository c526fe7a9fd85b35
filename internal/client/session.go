package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/geocoder89/authhub/internal/domain/user"
)

// Store persists the raw session bytes. Load returns an error matching
// fs.ErrNotExist when nothing has been saved.
type Store interface {
	Load() ([]byte, error)
	Save(data []byte) error
	Clear() error
}

type Authenticator interface {
	Login(ctx context.Context, email, password string) (user.User, error)
}

// Session is the signed-in user as last returned by the server. There is no
// token: holding a user record is the whole session, and logging out only
// clears local state.
type Session struct {
	mu    sync.RWMutex
	store Store
	user  *user.User
}

// LoadSession restores a session from store. A missing or unreadable record
// yields an empty session; an unreadable one is also removed.
func LoadSession(store Store) (*Session, error) {
	s := &Session{store: store}

	data, err := store.Load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	var u user.User
	if err := json.Unmarshal(data, &u); err != nil || u.Email == "" {
		if err := store.Clear(); err != nil {
			return nil, fmt.Errorf("discard corrupt session: %w", err)
		}
		return s, nil
	}

	u.PasswordHash = ""
	s.user = &u

	return s, nil
}

// User returns the signed-in user, or false when the session is empty.
func (s *Session) User() (user.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return user.User{}, false
	}
	return *s.user, true
}

func (s *Session) Authenticated() bool {
	_, ok := s.User()
	return ok
}

func (s *Session) HasRole(role user.Role) bool {
	u, ok := s.User()
	return ok && u.Role == role
}

// Save makes u the current user and persists it.
func (s *Session) Save(u user.User) error {
	u = u.Public()

	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(data); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.user = &u

	return nil
}

// Login authenticates against the server and saves the returned user. A
// failed login leaves the current session untouched.
func (s *Session) Login(ctx context.Context, auth Authenticator, email, password string) (user.User, error) {
	u, err := auth.Login(ctx, email, password)
	if err != nil {
		return user.User{}, err
	}

	if err := s.Save(u); err != nil {
		return user.User{}, err
	}

	return u.Public(), nil
}

// Clear forgets the current user locally. Nothing is sent to the server.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.user = nil

	return nil
}

func (s *Session) Logout() error {
	return s.Clear()
}

// FileStore keeps the session in a single file readable only by its owner.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultSessionPath is <user config dir>/authhub/session.json.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "authhub", "session.json"), nil
}

func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Load() ([]byte, error) {
	return os.ReadFile(f.path)
}

func (f *FileStore) Save(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), f.path)
}

func (f *FileStore) Clear() error {
	err := os.Remove(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// MemoryStore holds the session in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

func (m *MemoryStore) Load() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return nil, fs.ErrNotExist
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryStore) Save(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = nil
	return nil
}
