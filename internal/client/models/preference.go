package models

import "github.com/dmitrijs2005/melvin/internal/timex"

// ModelOptions is the global model listing: the current default and every
// model the backend can serve.
type ModelOptions struct {
	Current   string   `json:"current"`
	Available []string `json:"available"`
}

// ModelPreference is one user's override and the value actually in effect.
// A nil Preferred means the user inherits the global default.
type ModelPreference struct {
	Preferred *string `json:"preferred_model"`
	Effective string  `json:"effective_model"`
}

// UserModelPreference is a row of the administrator's user listing.
type UserModelPreference struct {
	ID        int64           `json:"id"`
	Username  string          `json:"username"`
	IsAdmin   bool            `json:"is_admin"`
	CreatedAt timex.Timestamp `json:"created_at"`
	ModelPreference
}

// ModelPreferenceUpdate is the body of the preference endpoints. A nil
// Model clears the override.
type ModelPreferenceUpdate struct {
	Model *string `json:"model"`
}

// ModelSelection is the body of POST /models/ollama.
type ModelSelection struct {
	Model string `json:"model"`
}

// ChatStyle is how answers should be phrased.
type ChatStyle struct {
	Tone        string
	DetailLevel string
}

var (
	ToneOptions   = []string{"Helpful and friendly", "Neutral and concise", "Judge-like and formal", "Energetic coach"}
	DetailOptions = []string{"Balanced", "High detail", "Quick summary"}
)

// DefaultChatStyle is used until the user picks something else.
func DefaultChatStyle() ChatStyle {
	return ChatStyle{Tone: ToneOptions[0], DetailLevel: DetailOptions[0]}
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}
