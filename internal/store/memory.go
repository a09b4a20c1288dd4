package store

import (
	"context"
	"strings"
	"sync"

	"github.com/lobbykit/lobbykit/internal/auth"
	"github.com/lobbykit/lobbykit/internal/protocol"
)

type memoryAccount struct {
	email    string
	username string
	password string // salt+hash blob, never plaintext
}

// MemoryStore is an in-memory AccountStore with the same validation order as
// the Postgres implementation. It backs tests and deployments that run
// without a database.
type MemoryStore struct {
	mu          sync.Mutex
	accounts    map[string]*memoryAccount // keyed by username
	intProps    map[string]map[string]int
	stringProps map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:    make(map[string]*memoryAccount),
		intProps:    make(map[string]map[string]int),
		stringProps: make(map[string]map[string]string),
	}
}

func (s *MemoryStore) Register(ctx context.Context, email, username, password string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", &RegistrationFailure{Code: protocol.RegistrationErrMissingEmailAddress}
	}
	if strings.TrimSpace(username) == "" {
		return "", &RegistrationFailure{Code: protocol.RegistrationErrMissingUsername}
	}
	if strings.TrimSpace(password) == "" {
		return "", &RegistrationFailure{Code: protocol.RegistrationErrMissingPassword}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Email collision is reported before username collision.
	for _, a := range s.accounts {
		if a.email == email {
			return "", &RegistrationFailure{Code: protocol.RegistrationErrAlreadyExistingEmailAddress}
		}
	}
	if _, ok := s.accounts[username]; ok {
		return "", &RegistrationFailure{Code: protocol.RegistrationErrAlreadyExistingUsername}
	}

	blob, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}
	s.accounts[username] = &memoryAccount{email: email, username: username, password: blob}
	return username, nil
}

func (s *MemoryStore) Login(ctx context.Context, username, password string) (string, error) {
	if strings.TrimSpace(username) == "" {
		return "", &LoginFailure{Code: protocol.LoginErrMissingUsername}
	}
	if strings.TrimSpace(password) == "" {
		return "", &LoginFailure{Code: protocol.LoginErrMissingPassword}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[username]
	if !ok {
		return "", &LoginFailure{Code: protocol.LoginErrNonexistingUser}
	}

	match, err := auth.VerifyPassword(password, a.password)
	if err != nil || !match {
		return "", &LoginFailure{Code: protocol.LoginErrInvalidCredentials}
	}
	return username, nil
}

func (s *MemoryStore) GetIntProperty(ctx context.Context, username, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[username]; !ok {
		return 0, ErrUserNotFound
	}
	props, ok := s.intProps[username]
	if !ok {
		return 0, ErrPropertyNotFound
	}
	v, ok := props[key]
	if !ok {
		return 0, ErrPropertyNotFound
	}
	return v, nil
}

func (s *MemoryStore) SetIntProperty(ctx context.Context, username, key string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[username]; !ok {
		return ErrUserNotFound
	}
	if s.intProps[username] == nil {
		s.intProps[username] = make(map[string]int)
	}
	s.intProps[username][key] = value
	return nil
}

func (s *MemoryStore) GetStringProperty(ctx context.Context, username, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[username]; !ok {
		return "", ErrUserNotFound
	}
	props, ok := s.stringProps[username]
	if !ok {
		return "", ErrPropertyNotFound
	}
	v, ok := props[key]
	if !ok {
		return "", ErrPropertyNotFound
	}
	return v, nil
}

func (s *MemoryStore) SetStringProperty(ctx context.Context, username, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[username]; !ok {
		return ErrUserNotFound
	}
	if s.stringProps[username] == nil {
		s.stringProps[username] = make(map[string]string)
	}
	s.stringProps[username][key] = value
	return nil
}
