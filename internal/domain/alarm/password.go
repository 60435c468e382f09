package alarm

import (
	"errors"
	"fmt"
)

// PasswordLength is the exact number of digits in a panel password.
const PasswordLength = 4

// DefaultPassword is the code the master starts with after every restart.
//
//nolint:gochecknoglobals // Compiled-in default, never mutated.
var DefaultPassword = Password{'1', '2', '3', '4'}

// ErrInvalidPassword is returned when a string is not exactly four digits.
var ErrInvalidPassword = errors.New("password must be exactly 4 digits")

// Password is an ordered sequence of exactly four ASCII digits.
// It is a value type, so replacing it is always a whole-value assignment.
type Password [PasswordLength]byte

// ParsePassword validates s and converts it into a Password.
func ParsePassword(s string) (Password, error) {
	var p Password

	if len(s) != PasswordLength {
		return p, fmt.Errorf("parse %q: %w", s, ErrInvalidPassword)
	}

	for i := range PasswordLength {
		if !IsDigit(s[i]) {
			return p, fmt.Errorf("parse %q: %w", s, ErrInvalidPassword)
		}

		p[i] = s[i]
	}

	return p, nil
}

// MustParsePassword is like ParsePassword but panics on invalid input.
func MustParsePassword(s string) Password {
	p, err := ParsePassword(s)
	if err != nil {
		panic(err)
	}

	return p
}

// Matches reports whether the first four characters of input equal p.
// Shorter input never matches.
func (p Password) Matches(input []byte) bool {
	if len(input) < PasswordLength {
		return false
	}

	return Password(input[:PasswordLength]) == p
}

// String returns the password digits.
func (p Password) String() string {
	return string(p[:])
}

// IsDigit reports whether c is an ASCII decimal digit.
func IsDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
