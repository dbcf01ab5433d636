// Package models defines the client-side view of Melvin backend payloads.
package models

import (
	"encoding/json"
	"strings"

	"github.com/dmitrijs2005/melvin/internal/timex"
)

// SenderUser marks messages written by the person at the keyboard. Any
// other sender is the assistant.
const SenderUser = "user"

type Conversation struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	CreatedAt timex.Timestamp `json:"created_at"`
}

// ConversationDetail is the full history of one conversation.
type ConversationDetail struct {
	Conversation Conversation `json:"conversation"`
	Messages     []Message    `json:"messages"`
}

// ThinkingStep is one entry of an assistant reasoning trace.
type ThinkingStep struct {
	Label  string `json:"label"`
	Detail string `json:"detail"`
}

// Message is one utterance in a conversation.
//
// ClientID is set only on messages created locally before the server has
// seen them; it never leaves the process.
type Message struct {
	Sender    string                     `json:"sender"`
	Content   string                     `json:"content"`
	CreatedAt timex.Timestamp            `json:"created_at"`
	Thinking  []ThinkingStep             `json:"thinking,omitempty"`
	Context   map[string]json.RawMessage `json:"context,omitempty"`
	ClientID  string                     `json:"-"`
}

func (m Message) FromUser() bool {
	return m.Sender == SenderUser
}

// HasInsight reports whether the message carries a reasoning trace or an
// evidence bundle worth inspecting.
func (m Message) HasInsight() bool {
	return !m.FromUser() && (len(m.Thinking) > 0 || len(m.Context) > 0)
}

// ChatRequest is the body of POST /conversations/{id}/chat.
type ChatRequest struct {
	Question    string   `json:"question"`
	Tone        string   `json:"tone"`
	DetailLevel string   `json:"detail_level"`
	CardNames   []string `json:"card_names"`
}

// NewConversation is the body of POST /conversations/.
type NewConversation struct {
	Title string `json:"title"`
}

// NormalizeTitle trims surrounding whitespace from a conversation title.
func NormalizeTitle(title string) string {
	return strings.TrimSpace(title)
}
