package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/dmitrijs2005/melvin/internal/client/client"
	"github.com/dmitrijs2005/melvin/internal/client/models"
	"github.com/dmitrijs2005/melvin/internal/client/services"
)

// defaultPlayerID is the player the rules checks are asked about.
const defaultPlayerID = "p1"

const boardUsage = "board list | show <id> | save <name> | check <id> <card> | analyze <id> | rm <id>"

// Board manages saved board states and runs rules checks against them.
func (a *App) Board(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage(boardUsage)
	}

	if args[0] == "list" {
		return a.listBoards(ctx)
	}
	if len(args) < 2 {
		return usage(boardUsage)
	}
	if args[0] == "save" {
		return a.saveBoard(ctx, strings.Join(args[1:], " "))
	}

	id, err := parseID(args[1])
	if err != nil {
		return usage(boardUsage)
	}
	switch args[0] {
	case "show":
		st, err := a.cards.GameState(ctx, id)
		if err != nil {
			return err
		}
		a.say("#%d %s (updated %s)", st.ID, st.Name, st.UpdatedAt.Format("2006-01-02 15:04"))
		a.say("%s", indentJSON(st.State))
	case "check":
		if len(args) < 3 {
			return usage("board check <id> <card>")
		}
		return a.checkCard(ctx, id, strings.Join(args[2:], " "))
	case "analyze":
		st, err := a.cards.GameState(ctx, id)
		if err != nil {
			return err
		}
		return a.Ask(ctx, services.BoardQuestion(st.State))
	case "rm":
		if err := a.cards.DeleteGameState(ctx, id); err != nil {
			return err
		}
		a.say("Deleted board #%d.", id)
	default:
		return usage(boardUsage)
	}
	return nil
}

func (a *App) listBoards(ctx context.Context) error {
	states, err := a.cards.ListGameStates(ctx)
	if err != nil {
		if reportable(err) {
			a.say("Failed to load boards: %s", client.Message(err))
		}
		return err
	}
	if len(states) == 0 {
		a.say("No saved boards.")
		return nil
	}
	for _, st := range states {
		a.say("#%-4d %s  owner: %s  updated %s", st.ID, st.Name, deref(st.Owner, "-"), st.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func (a *App) saveBoard(ctx context.Context, name string) error {
	text, err := GetMultiline(a.reader, "Paste the board state as JSON", a.out)
	if err != nil {
		return err
	}
	if text == "" {
		text = "{}"
	}
	if !json.Valid([]byte(text)) {
		a.say("That is not valid JSON.")
		return nil
	}

	owner := a.session.Username()
	st, err := a.cards.SaveGameState(ctx, models.NewGameState{
		Name:  name,
		Owner: models.StringPtr(owner),
		State: json.RawMessage(text),
	})
	if err != nil {
		return err
	}
	a.say("Saved board #%d %s.", st.ID, st.Name)
	return nil
}

func (a *App) checkCard(ctx context.Context, id int64, card string) error {
	st, err := a.cards.GameState(ctx, id)
	if err != nil {
		return err
	}
	check, err := a.cards.CheckCard(ctx, st.State, defaultPlayerID, card)
	if err != nil {
		if reportable(err) {
			a.say("Validation failed: %s", client.Message(err))
		}
		return err
	}
	a.say("Castable: %s", compactJSON(check.Castable))
	a.say("Targets:  %s", compactJSON(check.Targets))
	return nil
}

func indentJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
