package user

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinPasswordLength = 8

	// PasswordSpecialChars is the set a password must draw at least one character from.
	PasswordSpecialChars = `!@#$%^&*(),.?":{}|<>`
)

var (
	ErrAdminSelfRegistration = errors.New("admin role cannot be self-registered")
	ErrInvalidRole           = errors.New("invalid role")
)

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Violation is one password rule the candidate failed.
type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

type passwordRule struct {
	violation Violation
	ok        func(pw string) bool
}

var passwordRules = []passwordRule{
	{
		violation: Violation{Rule: "min_length", Message: "must contain at least 8 characters"},
		ok:        func(pw string) bool { return utf8.RuneCountInString(pw) >= MinPasswordLength },
	},
	{
		violation: Violation{Rule: "uppercase", Message: "must contain at least one uppercase letter"},
		ok:        func(pw string) bool { return containsRange(pw, 'A', 'Z') },
	},
	{
		violation: Violation{Rule: "lowercase", Message: "must contain at least one lowercase letter"},
		ok:        func(pw string) bool { return containsRange(pw, 'a', 'z') },
	},
	{
		violation: Violation{Rule: "digit", Message: "must contain at least one digit"},
		ok:        func(pw string) bool { return containsRange(pw, '0', '9') },
	},
	{
		violation: Violation{Rule: "special", Message: "must contain at least one special character (" + PasswordSpecialChars + ")"},
		ok:        func(pw string) bool { return strings.ContainsAny(pw, PasswordSpecialChars) },
	},
}

// ValidatePassword checks every rule and returns all violations in rule order.
// A nil result means the password is accepted.
func ValidatePassword(pw string) []Violation {
	var violations []Violation

	for _, rule := range passwordRules {
		if !rule.ok(pw) {
			violations = append(violations, rule.violation)
		}
	}

	return violations
}

// PolicyError carries the full list of violated password rules.
type PolicyError struct {
	Violations []Violation
}

func (e *PolicyError) Error() string {
	rules := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		rules = append(rules, v.Rule)
	}

	return "password does not meet policy: " + strings.Join(rules, ", ")
}

// CheckPassword wraps ValidatePassword into an error.
func CheckPassword(pw string) error {
	violations := ValidatePassword(pw)
	if len(violations) == 0 {
		return nil
	}

	return &PolicyError{Violations: violations}
}

// ValidateSelfRegistrationRole accepts only the roles open to self-registration.
// Admin gets its own error so callers can tell a forbidden role from an unknown one.
func ValidateSelfRegistrationRole(role string) (Role, error) {
	r := Role(role)

	if r == RoleAdmin {
		return "", ErrAdminSelfRegistration
	}

	for _, allowed := range SelfRegistrableRoles {
		if r == allowed {
			return r, nil
		}
	}

	return "", ErrInvalidRole
}

// ValidEmailShape reports whether email looks like local@domain.tld.
func ValidEmailShape(email string) bool {
	return emailShape.MatchString(email)
}

func containsRange(s string, lo, hi rune) bool {
	for _, r := range s {
		if r >= lo && r <= hi {
			return true
		}
	}

	return false
}
