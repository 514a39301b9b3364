// Package session gates the admin API behind a shared password and
// server-side session tokens.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid admin credentials")
	ErrUnknownSession     = errors.New("unknown or expired session")
)

// Store keeps live session tokens until they expire or are deleted.
type Store interface {
	Save(ctx context.Context, token string, ttl time.Duration) error
	Exists(ctx context.Context, token string) (bool, error)
	Delete(ctx context.Context, token string) error
}

// Authenticator checks the admin password and manages session tokens.
type Authenticator struct {
	hash  []byte
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewAuthenticator hashes password once so the plain value is not kept.
func NewAuthenticator(password string, store Store, ttl time.Duration) (*Authenticator, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	return &Authenticator{hash: hash, store: store, ttl: ttl, now: time.Now}, nil
}

// Login returns a new session token when password matches.
func (a *Authenticator) Login(ctx context.Context, password string) (string, time.Time, error) {
	if bcrypt.CompareHashAndPassword(a.hash, []byte(password)) != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	token := uuid.NewString()
	if err := a.store.Save(ctx, token, a.ttl); err != nil {
		return "", time.Time{}, fmt.Errorf("save session: %w", err)
	}
	return token, a.now().Add(a.ttl), nil
}

// Check reports whether token is a live session.
func (a *Authenticator) Check(ctx context.Context, token string) error {
	if token == "" {
		return ErrUnknownSession
	}
	ok, err := a.store.Exists(ctx, token)
	if err != nil {
		return fmt.Errorf("lookup session: %w", err)
	}
	if !ok {
		return ErrUnknownSession
	}
	return nil
}

// Logout ends a session. Logging out an unknown token is not an error.
func (a *Authenticator) Logout(ctx context.Context, token string) error {
	if err := a.store.Delete(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
