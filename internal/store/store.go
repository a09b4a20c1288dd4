// Package store defines the account store boundary: registration, login and
// per-user property persistence. The master server only ever talks to the
// AccountStore interface; the Postgres implementation is the production
// backend and the memory implementation backs tests and database-less
// deployments.
package store

import (
	"context"
	"errors"

	"github.com/lobbykit/lobbykit/internal/protocol"
)

// Property lookups report loose string errors since they are not user-facing
// gameplay errors.
var (
	ErrUserNotFound     = errors.New("this user does not exist")
	ErrPropertyNotFound = errors.New("this property does not exist")
)

// AccountStore is the persistence boundary for user accounts and their
// properties. All operations take a context so callers never block their
// event loop indefinitely.
type AccountStore interface {
	// Register validates the fields, checks email then username uniqueness
	// (in that order) and persists a salted-and-hashed password. Returns the
	// registered username. Failures are *RegistrationFailure or
	// infrastructure errors.
	Register(ctx context.Context, email, username, password string) (string, error)

	// Login validates the credentials and returns the username. Failures are
	// *LoginFailure or infrastructure errors.
	Login(ctx context.Context, username, password string) (string, error)

	GetIntProperty(ctx context.Context, username, key string) (int, error)
	SetIntProperty(ctx context.Context, username, key string, value int) error
	GetStringProperty(ctx context.Context, username, key string) (string, error)
	SetStringProperty(ctx context.Context, username, key, value string) error
}

// RegistrationFailure is a policy rejection of a registration attempt.
type RegistrationFailure struct {
	Code protocol.RegistrationError
}

func (e *RegistrationFailure) Error() string {
	return "registration failed: " + e.Code.String()
}

// LoginFailure is a policy rejection of a login attempt.
type LoginFailure struct {
	Code protocol.LoginError
}

func (e *LoginFailure) Error() string {
	return "login failed: " + e.Code.String()
}

// AsRegistrationError maps a Register error to its wire enum. Anything that
// is not a policy rejection counts as a database connection error.
func AsRegistrationError(err error) protocol.RegistrationError {
	var f *RegistrationFailure
	if errors.As(err, &f) {
		return f.Code
	}
	return protocol.RegistrationErrDatabaseConnection
}

// AsLoginError maps a Login error to its wire enum.
func AsLoginError(err error) protocol.LoginError {
	var f *LoginFailure
	if errors.As(err, &f) {
		return f.Code
	}
	return protocol.LoginErrDatabaseConnection
}
