package cli

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/melvin/internal/client/client"
	"github.com/dmitrijs2005/melvin/internal/client/models"
	"github.com/dmitrijs2005/melvin/internal/client/search"
)

const maxScryfallResults = 10

// SearchCards starts an incremental card search. Results are printed when
// they arrive; a newer search supersedes an older one still running.
func (a *App) SearchCards(ctx context.Context, query string) error {
	a.cardSearch.Update(ctx, fieldCards, query)
	if !searchable(query) {
		a.say("Type at least %d characters to search.", search.DefaultMinLength)
	}
	return nil
}

// Complete asks for card name suggestions for prefix.
func (a *App) Complete(ctx context.Context, prefix string) error {
	a.nameSearch.Update(ctx, fieldNames, prefix)
	if !searchable(prefix) {
		a.say("Type at least %d characters to get suggestions.", search.DefaultMinLength)
	}
	return nil
}

func searchable(q string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(q)) >= search.DefaultMinLength
}

func (a *App) showCardResults(_ string, st search.State[models.Card]) {
	if st.Loading || !searchable(st.Query) {
		return
	}
	if st.Err != "" {
		a.say("! %s", st.Err)
		return
	}
	if len(st.Results) == 0 {
		a.say("No cards match %q.", strings.TrimSpace(st.Query))
		return
	}
	a.say("Cards matching %q (add with 'card add #n'):", strings.TrimSpace(st.Query))
	for i, c := range st.Results {
		a.say("  #%d %s  %s", i+1, c.Name, c.TypeLine)
	}
}

func (a *App) showSuggestions(_ string, st search.State[string]) {
	if st.Loading || !searchable(st.Query) {
		return
	}
	if st.Err != "" {
		a.say("! %s", st.Err)
		return
	}
	if len(st.Results) == 0 {
		a.say("No suggestions for %q.", strings.TrimSpace(st.Query))
		return
	}
	a.say("Suggestions: %s", strings.Join(st.Results, ", "))
}

// Scryfall runs a full Scryfall query and prints the first results.
func (a *App) Scryfall(ctx context.Context, query string) error {
	if strings.TrimSpace(query) == "" {
		return usage("scryfall <query>")
	}
	list, err := a.cards.ScryfallSearch(ctx, query)
	if err != nil {
		if reportable(err) {
			a.say("Scryfall search failed: %s", client.Message(err))
		}
		return err
	}
	if len(list.Data) == 0 {
		a.say("No cards found.")
		return nil
	}
	for i, raw := range list.Data {
		if i == maxScryfallResults {
			a.say("... %d more", list.TotalCards-maxScryfallResults)
			break
		}
		var c models.ScryfallCard
		if err := json.Unmarshal(raw, &c); err != nil {
			continue
		}
		a.say("%s %s  %s", c.Name, c.ManaCost, c.TypeLine)
		if c.OracleText != "" {
			a.say("    %s", truncate(c.OracleText, 200))
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
