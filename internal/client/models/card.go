package models

import (
	"encoding/json"

	"github.com/dmitrijs2005/melvin/internal/timex"
)

// Card is a card summary from the local card index.
type Card struct {
	Name       string `json:"name"`
	TypeLine   string `json:"type_line,omitempty"`
	OracleText string `json:"oracle_text,omitempty"`
}

type CardSearchResponse struct {
	Results []Card `json:"results"`
}

// Autocomplete is the Scryfall catalog answer for a name prefix.
type Autocomplete struct {
	Object      string   `json:"object"`
	TotalValues int      `json:"total_values"`
	Data        []string `json:"data"`
}

// ScryfallList is a page of Scryfall search results. Cards are kept raw;
// the client only reads a handful of fields from them.
type ScryfallList struct {
	Object     string            `json:"object"`
	TotalCards int               `json:"total_cards"`
	HasMore    bool              `json:"has_more"`
	Data       []json.RawMessage `json:"data"`
}

// ScryfallCard is the subset of a Scryfall card object the client shows.
type ScryfallCard struct {
	Name       string `json:"name"`
	ManaCost   string `json:"mana_cost"`
	TypeLine   string `json:"type_line"`
	OracleText string `json:"oracle_text"`
	SetName    string `json:"set_name"`
}

// GameState is a stored board position. State is opaque to the client.
type GameState struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Owner     *string         `json:"owner"`
	State     json.RawMessage `json:"state"`
	CreatedAt timex.Timestamp `json:"created_at"`
	UpdatedAt timex.Timestamp `json:"updated_at"`
}

// NewGameState is the body of POST /game_state.
type NewGameState struct {
	Name  string          `json:"name"`
	Owner *string         `json:"owner,omitempty"`
	State json.RawMessage `json:"state"`
}

// CastableQuery is the body of POST /rules/is_castable.
type CastableQuery struct {
	State    json.RawMessage `json:"state"`
	PlayerID string          `json:"player_id"`
	CardName string          `json:"card_name"`
}

// TargetsQuery is the body of POST /rules/validate_targets.
type TargetsQuery struct {
	State json.RawMessage `json:"state"`
	Spell json.RawMessage `json:"spell"`
}
