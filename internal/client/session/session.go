package session

import (
	"context"
	"sync"
)

// Session is the single explicit session object injected into the gateway
// and the services.
//
// Epoch identifies one session lifetime. It changes on Begin and on every
// reset, so work started under an older epoch can tell that its session is
// gone and must not commit.
type Session struct {
	mu     sync.Mutex
	store  *TokenStore
	epoch  uint64
	hookMu sync.Mutex
	hooks  []func()
}

func New(store *TokenStore) *Session {
	return &Session{store: store}
}

// OnReset registers fn to run after every reset. Hooks run in registration
// order, outside the session lock.
func (s *Session) OnReset(fn func()) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Restore loads a persisted credential, if any, and starts a new epoch for it.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Load(ctx); err != nil {
		return false, err
	}
	if s.store.Token() == "" {
		return false, nil
	}
	s.epoch++
	return true, nil
}

// Begin stores token and starts a new epoch. Any state left from a previous
// session is reset first.
func (s *Session) Begin(ctx context.Context, token string) (uint64, error) {
	s.mu.Lock()
	hadSession := s.store.Token() != ""
	if err := s.store.SetToken(ctx, token); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	if hadSession {
		s.runHooks()
	}
	return epoch, nil
}

// Reset ends the current session unconditionally.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	err := s.store.ClearToken(ctx)
	s.epoch++
	s.mu.Unlock()

	s.runHooks()
	return err
}

// Teardown ends the session only if it is still the one identified by
// epoch. It reports whether this call performed the teardown; concurrent
// callers holding the same epoch see true exactly once.
func (s *Session) Teardown(ctx context.Context, epoch uint64) (bool, error) {
	s.mu.Lock()
	if epoch != s.epoch || s.store.Token() == "" {
		s.mu.Unlock()
		return false, nil
	}
	err := s.store.ClearToken(ctx)
	s.epoch++
	s.mu.Unlock()

	s.runHooks()
	return true, err
}

func (s *Session) runHooks() {
	s.hookMu.Lock()
	hooks := make([]func(), len(s.hooks))
	copy(hooks, s.hooks)
	s.hookMu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// Snapshot returns the credential together with the epoch it belongs to.
func (s *Session) Snapshot() (string, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Token(), s.epoch
}

func (s *Session) Token() string {
	return s.store.Token()
}

func (s *Session) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

func (s *Session) Claims() *Claims {
	return s.store.CurrentClaims()
}

func (s *Session) IsAuthenticated() bool {
	return s.store.Token() != ""
}

// IsPrivileged reports the advisory admin claim.
func (s *Session) IsPrivileged() bool {
	c := s.Claims()
	return c != nil && c.Admin
}

// Username returns the username claim, or "" when there is none.
func (s *Session) Username() string {
	if c := s.Claims(); c != nil {
		return c.Username
	}
	return ""
}
