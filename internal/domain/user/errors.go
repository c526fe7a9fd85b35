package user

import "errors"

// Store-level outcomes shared by every Credential Store implementation.
var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already used")
)
