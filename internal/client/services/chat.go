package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/dmitrijs2005/melvin/internal/client/client"
	"github.com/dmitrijs2005/melvin/internal/client/models"
	"github.com/dmitrijs2005/melvin/internal/timex"
)

// Evidence sections an assistant message may carry, in display order.
var EvidenceSections = []struct {
	Key   string
	Label string
}{
	{"rules", "Rules context"},
	{"cards", "Cards context"},
	{"rulings", "Rulings context"},
	{"references", "Reference guides"},
	{"player_guidance", "Player guidance"},
	{"state", "State snapshot"},
	{"tools", "Rule-engine tools"},
	{"external_cards", "External card notes"},
	{"model", "Model used"},
}

const noEvidence = "No data included for this section."

// InitialPreview is published while a reply is being composed.
var InitialPreview = []models.ThinkingStep{
	{Label: "Analyzing", Detail: "Collecting rules, cards, and rulings context."},
}

// StyleSource supplies the tone and detail level to ask with.
type StyleSource interface {
	Style() models.ChatStyle
}

// ChatService sends questions in the active conversation and keeps the
// per-conversation transient state: selected card references, the
// reasoning preview and the open insight message.
type ChatService interface {
	Send(ctx context.Context, utterance string) (*models.Message, error)
	Composing() bool
	Preview() []models.ThinkingStep

	AddCard(name string) bool
	RemoveCard(name string)
	SelectedCards() []string

	Insight() *models.Message
	OpenInsight(msg models.Message)
	CloseInsight()

	Reset()
}

type chatService struct {
	client        client.Client
	conversations ConversationService
	style         StyleSource

	mu        sync.Mutex
	composing int
	preview   []models.ThinkingStep
	cards     []string
	insight   *models.Message
	epoch     uint64
}

// NewChatService wires chat to the conversation store. Transient state is
// reset on every conversation switch.
func NewChatService(c client.Client, conversations ConversationService, style StyleSource) ChatService {
	s := &chatService{client: c, conversations: conversations, style: style}
	conversations.OnSwitch(s.Reset)
	return s
}

// Send is a no-op returning (nil, nil) when there is no active
// conversation or the utterance is blank. Otherwise the user message is
// appended immediately and stays even if the request fails.
func (s *chatService) Send(ctx context.Context, utterance string) (*models.Message, error) {
	conv, ok := s.conversations.Active()
	if !ok || strings.TrimSpace(utterance) == "" {
		return nil, nil
	}

	local := models.Message{
		Sender:    models.SenderUser,
		Content:   utterance,
		CreatedAt: timex.Now(),
		ClientID:  uuid.NewString(),
	}
	s.conversations.AppendMessage(conv.ID, local)

	s.mu.Lock()
	s.composing++
	s.preview = append([]models.ThinkingStep(nil), InitialPreview...)
	epoch := s.epoch
	cards := append([]string{}, s.cards...)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.composing--
		s.mu.Unlock()
	}()

	style := s.style.Style()
	var reply models.Message
	err := s.client.Do(ctx, client.Call{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/conversations/%d/chat", conv.ID),
		Body: models.ChatRequest{
			Question:    local.Content,
			Tone:        style.Tone,
			DetailLevel: style.DetailLevel,
			CardNames:   cards,
		},
		Fallback: "Failed to send message",
	}, &reply)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	if reply.FromUser() && reply.Content == local.Content {
		return &reply, nil
	}

	if !s.conversations.AppendMessage(conv.ID, reply) {
		return &reply, nil
	}

	s.mu.Lock()
	if s.epoch == epoch {
		s.preview = append([]models.ThinkingStep(nil), reply.Thinking...)
		r := reply
		s.insight = &r
	}
	s.mu.Unlock()

	return &reply, nil
}

func (s *chatService) Composing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.composing > 0
}

func (s *chatService) Preview() []models.ThinkingStep {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ThinkingStep(nil), s.preview...)
}

// AddCard selects a card reference. Adding a name already selected is a
// no-op and reports false.
func (s *chatService) AddCard(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if lo.Contains(s.cards, name) {
		return false
	}
	s.cards = append(s.cards, name)
	return true
}

func (s *chatService) RemoveCard(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = lo.Filter(s.cards, func(c string, _ int) bool { return c != name })
}

func (s *chatService) SelectedCards() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cards...)
}

func (s *chatService) Insight() *models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insight == nil {
		return nil
	}
	m := *s.insight
	return &m
}

func (s *chatService) OpenInsight(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insight = &msg
}

func (s *chatService) CloseInsight() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insight = nil
}

// Reset clears selected cards, the preview and the insight. In-flight
// sends started before the reset will not reopen an insight.
func (s *chatService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.cards = nil
	s.preview = nil
	s.insight = nil
}

// FormatEvidence renders one evidence section of msg for display.
func FormatEvidence(msg models.Message, key string) string {
	raw, ok := msg.Context[key]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return noEvidence
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if str = strings.TrimSpace(str); str == "" {
			return noEvidence
		}
		return str
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	if v == false || v == float64(0) {
		return noEvidence
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(raw)
	}
	return string(out)
}
