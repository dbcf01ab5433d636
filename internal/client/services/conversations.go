package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/dmitrijs2005/melvin/internal/client/client"
	"github.com/dmitrijs2005/melvin/internal/client/models"
)

// ConversationService holds the session's conversations, the active one
// and its message history.
//
// Contract:
//   - List: fetch all conversations; auto-select the first if none is active.
//   - Create: reject a blank title without a network call; otherwise create,
//     append and select.
//   - Select: make conv active, run switch hooks, replace the message
//     history with the server's. A response for a conversation that is no
//     longer active is discarded.
//   - AppendMessage: append to the history only while convID is active.
//   - Reset: forget everything (session teardown).
type ConversationService interface {
	List(ctx context.Context) ([]models.Conversation, error)
	Create(ctx context.Context, title string) (*models.Conversation, error)
	Select(ctx context.Context, conv models.Conversation) error
	Find(id int64) (models.Conversation, bool)
	Conversations() []models.Conversation
	Active() (models.Conversation, bool)
	Messages() []models.Message
	AppendMessage(convID int64, msg models.Message) bool
	OnSwitch(fn func())
	Reset()
}

type conversationService struct {
	client client.Client

	mu            sync.Mutex
	conversations []models.Conversation
	active        *models.Conversation
	messages      []models.Message
	seq           uint64
	// gen changes on Reset; results of requests issued before it are dropped.
	gen uint64

	hookMu sync.Mutex
	hooks  []func()
}

func NewConversationService(c client.Client) ConversationService {
	return &conversationService{client: c}
}

func (s *conversationService) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *conversationService) List(ctx context.Context) ([]models.Conversation, error) {
	gen := s.generation()

	var list []models.Conversation
	err := s.client.Do(ctx, client.Call{Method: http.MethodGet, Path: "/conversations/"}, &list)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return nil, fmt.Errorf("list conversations: %w", client.ErrSessionEnded)
	}
	s.conversations = append([]models.Conversation(nil), list...)
	autoSelect := s.active == nil && len(list) > 0
	s.mu.Unlock()

	if autoSelect {
		if err := s.selectIn(ctx, gen, list[0]); err != nil {
			return list, err
		}
	}
	return list, nil
}

func (s *conversationService) Create(ctx context.Context, title string) (*models.Conversation, error) {
	title = models.NormalizeTitle(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	gen := s.generation()

	var conv models.Conversation
	err := s.client.Do(ctx, client.Call{
		Method:   http.MethodPost,
		Path:     "/conversations/",
		Body:     models.NewConversation{Title: title},
		Fallback: "Failed to create conversation",
	}, &conv)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return nil, fmt.Errorf("create conversation: %w", client.ErrSessionEnded)
	}
	s.conversations = append(s.conversations, conv)
	s.mu.Unlock()

	if err := s.selectIn(ctx, gen, conv); err != nil {
		return &conv, err
	}
	return &conv, nil
}

func (s *conversationService) Select(ctx context.Context, conv models.Conversation) error {
	return s.selectIn(ctx, s.generation(), conv)
}

// selectIn activates conv unless the store was reset after gen was taken.
// The activation is undone when the request finds no session.
func (s *conversationService) selectIn(ctx context.Context, gen uint64, conv models.Conversation) error {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return fmt.Errorf("load conversation %d: %w", conv.ID, client.ErrSessionEnded)
	}
	s.seq++
	seq := s.seq
	s.active = &conv
	s.messages = nil
	s.mu.Unlock()

	s.runHooks()

	var detail models.ConversationDetail
	err := s.client.Do(ctx, client.Call{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/conversations/%d", conv.ID),
	}, &detail)
	if err != nil {
		if errors.Is(err, client.ErrUnauthenticated) {
			s.mu.Lock()
			if s.seq == seq {
				s.active = nil
			}
			s.mu.Unlock()
		}
		return fmt.Errorf("load conversation %d: %w", conv.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.seq != seq || s.active == nil || s.active.ID != conv.ID {
		return nil
	}
	s.messages = detail.Messages
	return nil
}

func (s *conversationService) Find(id int64) (models.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		if c.ID == id {
			return c, true
		}
	}
	return models.Conversation{}, false
}

func (s *conversationService) Conversations() []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Conversation(nil), s.conversations...)
}

func (s *conversationService) Active() (models.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return models.Conversation{}, false
	}
	return *s.active, true
}

func (s *conversationService) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.messages...)
}

func (s *conversationService) AppendMessage(convID int64, msg models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil || s.active.ID != convID {
		return false
	}
	s.messages = append(s.messages, msg)
	return true
}

// OnSwitch registers fn to run whenever the active conversation changes.
func (s *conversationService) OnSwitch(fn func()) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.hooks = append(s.hooks, fn)
}

func (s *conversationService) runHooks() {
	s.hookMu.Lock()
	hooks := append([]func(){}, s.hooks...)
	s.hookMu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

func (s *conversationService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.gen++
	s.conversations = nil
	s.active = nil
	s.messages = nil
}
