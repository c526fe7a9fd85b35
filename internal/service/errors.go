package service

import (
	"errors"
	"fmt"
)

var (
	ErrEmailTaken         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrPersistence        = errors.New("persistence failure")

	// ErrPasswordTooLong is a password the hasher cannot take whole.
	ErrPasswordTooLong = errors.New("password too long")
)

// PersistenceError wraps an unexpected store or hashing failure. It matches
// ErrPersistence under errors.Is and unwraps to the underlying cause.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
