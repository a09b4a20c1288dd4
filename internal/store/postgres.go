package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lobbykit/lobbykit/internal/auth"
	"github.com/lobbykit/lobbykit/internal/protocol"
)

// PostgresStore is the production AccountStore on top of a pgx pool.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore connects to the database and ensures the schema exists.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.Ping(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_int_properties (
			user_id BIGINT NOT NULL REFERENCES users(id),
			key TEXT NOT NULL,
			value BIGINT NOT NULL,
			PRIMARY KEY (user_id, key)
		)`,
		`CREATE TABLE IF NOT EXISTS user_string_properties (
			user_id BIGINT NOT NULL REFERENCES users(id),
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (user_id, key)
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() {
	s.db.Close()
}

func (s *PostgresStore) Register(ctx context.Context, email, username, password string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", &RegistrationFailure{Code: protocol.RegistrationErrMissingEmailAddress}
	}
	if strings.TrimSpace(username) == "" {
		return "", &RegistrationFailure{Code: protocol.RegistrationErrMissingUsername}
	}
	if strings.TrimSpace(password) == "" {
		return "", &RegistrationFailure{Code: protocol.RegistrationErrMissingPassword}
	}

	blob, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	// Uniqueness checks and the insert run in one transaction so concurrent
	// registrations cannot race past each other. Email is checked before
	// username: an email collision is reported even when the username also
	// collides.
	err = pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email=$1)`, email).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return &RegistrationFailure{Code: protocol.RegistrationErrAlreadyExistingEmailAddress}
		}

		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username=$1)`, username).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return &RegistrationFailure{Code: protocol.RegistrationErrAlreadyExistingUsername}
		}

		_, err := tx.Exec(ctx, `INSERT INTO users (username, email, password) VALUES ($1, $2, $3)`,
			username, email, blob)
		return err
	})
	if err != nil {
		var f *RegistrationFailure
		if errors.As(err, &f) {
			return "", f
		}
		return "", fmt.Errorf("failed to register user: %w", err)
	}
	return username, nil
}

func (s *PostgresStore) Login(ctx context.Context, username, password string) (string, error) {
	if strings.TrimSpace(username) == "" {
		return "", &LoginFailure{Code: protocol.LoginErrMissingUsername}
	}
	if strings.TrimSpace(password) == "" {
		return "", &LoginFailure{Code: protocol.LoginErrMissingPassword}
	}

	var stored string
	err := s.db.QueryRow(ctx, `SELECT password FROM users WHERE username=$1`, username).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", &LoginFailure{Code: protocol.LoginErrNonexistingUser}
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	match, err := auth.VerifyPassword(password, stored)
	if err != nil || !match {
		return "", &LoginFailure{Code: protocol.LoginErrInvalidCredentials}
	}
	return username, nil
}

func (s *PostgresStore) userID(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, username string) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `SELECT id FROM users WHERE username=$1`, username).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up user: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetIntProperty(ctx context.Context, username, key string) (int, error) {
	id, err := s.userID(ctx, s.db, username)
	if err != nil {
		return 0, err
	}

	var value int
	err = s.db.QueryRow(ctx, `SELECT value FROM user_int_properties WHERE user_id=$1 AND key=$2`, id, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrPropertyNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read property: %w", err)
	}
	return value, nil
}

func (s *PostgresStore) SetIntProperty(ctx context.Context, username, key string, value int) error {
	return pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		id, err := s.userID(ctx, tx, username)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO user_int_properties (user_id, key, value) VALUES ($1, $2, $3)
			ON CONFLICT (user_id, key) DO UPDATE SET value = EXCLUDED.value
		`, id, key, value)
		return err
	})
}

func (s *PostgresStore) GetStringProperty(ctx context.Context, username, key string) (string, error) {
	id, err := s.userID(ctx, s.db, username)
	if err != nil {
		return "", err
	}

	var value string
	err = s.db.QueryRow(ctx, `SELECT value FROM user_string_properties WHERE user_id=$1 AND key=$2`, id, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrPropertyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read property: %w", err)
	}
	return value, nil
}

func (s *PostgresStore) SetStringProperty(ctx context.Context, username, key, value string) error {
	return pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		id, err := s.userID(ctx, tx, username)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO user_string_properties (user_id, key, value) VALUES ($1, $2, $3)
			ON CONFLICT (user_id, key) DO UPDATE SET value = EXCLUDED.value
		`, id, key, value)
		return err
	})
}
