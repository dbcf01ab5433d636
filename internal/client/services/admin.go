package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/dmitrijs2005/melvin/internal/client/client"
	"github.com/dmitrijs2005/melvin/internal/client/models"
	"github.com/dmitrijs2005/melvin/internal/client/session"
)

// AdminService manages the queue of pending account requests. Every
// operation needs a privileged session. Decisions are followed by a full
// re-list; a failed decision leaves the displayed list untouched.
type AdminService interface {
	List(ctx context.Context) ([]models.AccountRequest, error)
	Approve(ctx context.Context, id int64) error
	Deny(ctx context.Context, id int64) error
	Requests() []models.AccountRequest
	Status() string
	Reset()
}

type adminService struct {
	client  client.Client
	session *session.Session

	mu       sync.Mutex
	requests []models.AccountRequest
	status   string
	gen      uint64
}

func NewAdminService(c client.Client, sess *session.Session) AdminService {
	return &adminService{client: c, session: sess}
}

func (s *adminService) List(ctx context.Context) ([]models.AccountRequest, error) {
	if !s.session.IsPrivileged() {
		return nil, ErrNotPrivileged
	}

	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	var reqs []models.AccountRequest
	if err := s.client.Do(ctx, client.Call{Method: http.MethodGet, Path: "/auth/requests"}, &reqs); err != nil {
		return nil, fmt.Errorf("list account requests: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil, fmt.Errorf("list account requests: %w", client.ErrSessionEnded)
	}
	s.requests = reqs
	return reqs, nil
}

func (s *adminService) Approve(ctx context.Context, id int64) error {
	return s.decide(ctx, id, "approve", "Request approved", "Failed to approve request")
}

func (s *adminService) Deny(ctx context.Context, id int64) error {
	return s.decide(ctx, id, "deny", "Request denied", "Failed to deny request")
}

func (s *adminService) decide(ctx context.Context, id int64, action, ok, failed string) error {
	if !s.session.IsPrivileged() {
		return ErrNotPrivileged
	}
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	err := s.client.Do(ctx, client.Call{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/auth/requests/%d/%s", id, action),
		Body:   struct{}{},
	}, nil)
	if err != nil {
		if !isSilent(err) {
			s.setStatus(failed)
		}
		return fmt.Errorf("%s request %d: %w", action, id, err)
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return fmt.Errorf("%s request %d: %w", action, id, client.ErrSessionEnded)
	}
	s.status = ok
	s.mu.Unlock()

	_, err = s.List(ctx)
	return err
}

func (s *adminService) setStatus(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = msg
}

func (s *adminService) Requests() []models.AccountRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AccountRequest(nil), s.requests...)
}

func (s *adminService) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *adminService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.requests = nil
	s.status = ""
}
