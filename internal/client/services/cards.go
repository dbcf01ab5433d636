package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/melvin/internal/client/client"
	"github.com/dmitrijs2005/melvin/internal/client/models"
)

// CardService covers card lookup, saved board states and the rules
// engine's legality checks.
type CardService interface {
	SearchCards(ctx context.Context, q string, limit int) ([]models.Card, error)
	ScryfallSearch(ctx context.Context, q string) (*models.ScryfallList, error)
	Autocomplete(ctx context.Context, q string) ([]string, error)
	Card(ctx context.Context, name string) (*models.ScryfallCard, error)

	ListGameStates(ctx context.Context) ([]models.GameState, error)
	SaveGameState(ctx context.Context, st models.NewGameState) (*models.GameState, error)
	GameState(ctx context.Context, id int64) (*models.GameState, error)
	UpdateGameState(ctx context.Context, id int64, state json.RawMessage) (*models.GameState, error)
	DeleteGameState(ctx context.Context, id int64) error

	IsCastable(ctx context.Context, q models.CastableQuery) (json.RawMessage, error)
	ValidateTargets(ctx context.Context, q models.TargetsQuery) (json.RawMessage, error)
	CheckCard(ctx context.Context, state json.RawMessage, playerID, cardName string) (*CardCheck, error)
}

// CardCheck is the combined rules verdict for one card on a board.
type CardCheck struct {
	Castable json.RawMessage
	Targets  json.RawMessage
}

type cardService struct {
	client client.Client
}

func NewCardService(c client.Client) CardService {
	return &cardService{client: c}
}

// SearchCards queries the local card index. It sets no fallback notice;
// the incremental search surface reports failures itself.
func (s *cardService) SearchCards(ctx context.Context, q string, limit int) ([]models.Card, error) {
	query := url.Values{"q": {strings.TrimSpace(q)}}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var resp models.CardSearchResponse
	err := s.client.Do(ctx, client.Call{Method: http.MethodGet, Path: "/cards/search", Query: query}, &resp)
	if err != nil {
		return nil, fmt.Errorf("search cards: %w", err)
	}
	return resp.Results, nil
}

func (s *cardService) ScryfallSearch(ctx context.Context, q string) (*models.ScryfallList, error) {
	var list models.ScryfallList
	err := s.client.Do(ctx, client.Call{
		Method: http.MethodGet,
		Path:   "/scryfall/search",
		Query:  url.Values{"q": {q}},
	}, &list)
	if err != nil {
		return nil, fmt.Errorf("scryfall search: %w", err)
	}
	return &list, nil
}

func (s *cardService) Autocomplete(ctx context.Context, q string) ([]string, error) {
	var resp models.Autocomplete
	err := s.client.Do(ctx, client.Call{
		Method: http.MethodGet,
		Path:   "/scryfall/autocomplete",
		Query:  url.Values{"q": {q}},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("autocomplete: %w", err)
	}
	return resp.Data, nil
}

func (s *cardService) Card(ctx context.Context, name string) (*models.ScryfallCard, error) {
	var card models.ScryfallCard
	err := s.client.Do(ctx, client.Call{
		Method: http.MethodGet,
		Path:   "/scryfall/card/" + url.PathEscape(name),
	}, &card)
	if err != nil {
		return nil, fmt.Errorf("card %q: %w", name, err)
	}
	return &card, nil
}

func (s *cardService) ListGameStates(ctx context.Context) ([]models.GameState, error) {
	var states []models.GameState
	if err := s.client.Do(ctx, client.Call{Method: http.MethodGet, Path: "/game_state/"}, &states); err != nil {
		return nil, fmt.Errorf("list game states: %w", err)
	}
	return states, nil
}

func (s *cardService) SaveGameState(ctx context.Context, st models.NewGameState) (*models.GameState, error) {
	if len(st.State) == 0 {
		st.State = json.RawMessage(`{}`)
	}
	var saved models.GameState
	err := s.client.Do(ctx, client.Call{
		Method:   http.MethodPost,
		Path:     "/game_state/",
		Body:     st,
		Fallback: "Failed to save board",
	}, &saved)
	if err != nil {
		return nil, fmt.Errorf("save game state: %w", err)
	}
	return &saved, nil
}

func (s *cardService) GameState(ctx context.Context, id int64) (*models.GameState, error) {
	var st models.GameState
	err := s.client.Do(ctx, client.Call{
		Method:   http.MethodGet,
		Path:     fmt.Sprintf("/game_state/%d", id),
		Fallback: "State not found",
	}, &st)
	if err != nil {
		return nil, fmt.Errorf("game state %d: %w", id, err)
	}
	return &st, nil
}

func (s *cardService) UpdateGameState(ctx context.Context, id int64, state json.RawMessage) (*models.GameState, error) {
	var st models.GameState
	err := s.client.Do(ctx, client.Call{
		Method:   http.MethodPut,
		Path:     fmt.Sprintf("/game_state/%d", id),
		Body:     map[string]json.RawMessage{"state": state},
		Fallback: "Failed to update board",
	}, &st)
	if err != nil {
		return nil, fmt.Errorf("update game state %d: %w", id, err)
	}
	return &st, nil
}

func (s *cardService) DeleteGameState(ctx context.Context, id int64) error {
	err := s.client.Do(ctx, client.Call{
		Method:   http.MethodDelete,
		Path:     fmt.Sprintf("/game_state/%d", id),
		Fallback: "Failed to delete board",
	}, nil)
	if err != nil {
		return fmt.Errorf("delete game state %d: %w", id, err)
	}
	return nil
}

func (s *cardService) IsCastable(ctx context.Context, q models.CastableQuery) (json.RawMessage, error) {
	var out json.RawMessage
	err := s.client.Do(ctx, client.Call{Method: http.MethodPost, Path: "/rules/is_castable", Body: q}, &out)
	if err != nil {
		return nil, fmt.Errorf("is castable: %w", err)
	}
	return out, nil
}

func (s *cardService) ValidateTargets(ctx context.Context, q models.TargetsQuery) (json.RawMessage, error) {
	var out json.RawMessage
	err := s.client.Do(ctx, client.Call{Method: http.MethodPost, Path: "/rules/validate_targets", Body: q}, &out)
	if err != nil {
		return nil, fmt.Errorf("validate targets: %w", err)
	}
	return out, nil
}

// CheckCard asks whether cardName is castable by playerID on state and
// validates it as a spell with no targets.
func (s *cardService) CheckCard(ctx context.Context, state json.RawMessage, playerID, cardName string) (*CardCheck, error) {
	if len(state) == 0 {
		state = json.RawMessage(`{}`)
	}
	cast, err := s.IsCastable(ctx, models.CastableQuery{State: state, PlayerID: playerID, CardName: cardName})
	if err != nil {
		return nil, err
	}
	spell, err := json.Marshal(map[string]any{"card_name": cardName, "targets": []string{}})
	if err != nil {
		return nil, err
	}
	targets, err := s.ValidateTargets(ctx, models.TargetsQuery{State: state, Spell: spell})
	if err != nil {
		return nil, err
	}
	return &CardCheck{Castable: cast, Targets: targets}, nil
}

// BoardQuestion phrases the question asked when analysing a saved board.
func BoardQuestion(state json.RawMessage) string {
	return fmt.Sprintf("Given this board state: %s what will happen if players pass priority?", string(state))
}
