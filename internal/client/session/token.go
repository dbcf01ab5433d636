// Package session owns the client's credential and the lifetime of a
// logged-in session.
//
// The TokenStore keeps the bearer token in memory and mirrors it to the
// durable metadata store, so a session survives a restart. Session wraps
// the store with an epoch counter and reset hooks: every component that
// holds per-session state registers a hook and is emptied on logout or on
// an authorization failure.
//
// Claims are decoded from the token payload without signature
// verification. They are advisory and only gate what the shell offers;
// the backend enforces every privileged operation.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/melvin/internal/client/repositories/metadata"
)

// Claims is the decoded, unverified token payload.
type Claims struct {
	Subject  string
	Username string
	Admin    bool
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
}

// DecodeClaims reads the payload segment of token. It returns nil when the
// token is empty, malformed or carries a payload that does not decode.
func DecodeClaims(token string) *Claims {
	if token == "" {
		return nil
	}
	var tc tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &tc); err != nil {
		return nil
	}
	return &Claims{Subject: tc.Subject, Username: tc.Username, Admin: tc.Admin}
}

// TokenStore holds the current credential. Safe for concurrent use.
type TokenStore struct {
	mu    sync.RWMutex
	repo  metadata.Repository
	token string
}

func NewTokenStore(repo metadata.Repository) *TokenStore {
	return &TokenStore{repo: repo}
}

// Load initializes the in-memory credential from durable storage.
func (s *TokenStore) Load(ctx context.Context) error {
	v, err := s.repo.Get(ctx, metadata.KeyToken)
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	s.mu.Lock()
	s.token = string(v)
	s.mu.Unlock()
	return nil
}

// SetToken persists value and holds it in memory.
func (s *TokenStore) SetToken(ctx context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Set(ctx, metadata.KeyToken, []byte(value)); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	s.token = value
	return nil
}

// ClearToken drops the credential from memory and durable storage. The
// in-memory copy is cleared even when the durable delete fails.
func (s *TokenStore) ClearToken(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	if err := s.repo.Delete(ctx, metadata.KeyToken); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

func (s *TokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *TokenStore) CurrentClaims() *Claims {
	return DecodeClaims(s.Token())
}
