package cli

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/melvin/internal/client/models"
	"github.com/dmitrijs2005/melvin/internal/client/services"
)

// Ask sends question in the active conversation and prints the answer.
func (a *App) Ask(ctx context.Context, question string) error {
	if strings.TrimSpace(question) == "" {
		return usage("ask <question>")
	}
	if _, ok := a.conversations.Active(); !ok {
		a.say("No conversation selected. Use 'new <title>' or 'use <id>'.")
		return nil
	}

	if cards := a.chat.SelectedCards(); len(cards) > 0 {
		a.say("Melvin is thinking (cards: %s)...", strings.Join(cards, ", "))
	} else {
		a.say("Melvin is thinking...")
	}

	reply, err := a.chat.Send(ctx, question)
	if err != nil || reply == nil {
		return err
	}
	a.printMessage(len(a.conversations.Messages()), *reply)
	for _, step := range a.chat.Preview() {
		a.say("    - %s: %s", step.Label, step.Detail)
	}
	return nil
}

// Card manages the cards referenced by the next question:
//
//	card                 list selected cards
//	card add <name|#n>   select a card by name or from the last search
//	card rm <name>       deselect a card
func (a *App) Card(_ context.Context, args []string) error {
	if len(args) == 0 {
		cards := a.chat.SelectedCards()
		if len(cards) == 0 {
			a.say("No cards selected.")
			return nil
		}
		for i, c := range cards {
			a.say("%d. %s", i+1, c)
		}
		return nil
	}

	name := strings.Join(args[1:], " ")
	switch args[0] {
	case "add":
		if name == "" {
			return usage("card add <name|#n>")
		}
		if strings.HasPrefix(name, "#") {
			results := a.cardSearch.State(fieldCards).Results
			i, ok := pick(name, len(results))
			if !ok {
				a.say("No search result %s.", name)
				return nil
			}
			name = results[i].Name
		}
		if !a.chat.AddCard(name) {
			a.say("%s is already selected.", name)
			return nil
		}
		a.say("Added %s.", name)
	case "rm":
		if name == "" {
			return usage("card rm <name>")
		}
		a.chat.RemoveCard(name)
		a.say("Removed %s.", name)
	default:
		return usage("card [add <name|#n> | rm <name>]")
	}
	return nil
}

// Insight shows the reasoning trace and evidence of an answer: the last
// one by default, or message n of the history. "insight close" hides it.
func (a *App) Insight(_ context.Context, arg string) error {
	switch arg {
	case "close":
		a.chat.CloseInsight()
		return nil
	case "":
	default:
		msgs := a.conversations.Messages()
		i, ok := pick(arg, len(msgs))
		if !ok || !msgs[i].HasInsight() {
			a.say("Message %s has no insight.", arg)
			return nil
		}
		a.chat.OpenInsight(msgs[i])
	}

	msg := a.chat.Insight()
	if msg == nil {
		a.say("No insight open.")
		return nil
	}
	a.printInsight(*msg)
	return nil
}

func (a *App) printInsight(m models.Message) {
	a.say("Thinking:")
	if len(m.Thinking) == 0 {
		a.say("  (none)")
	}
	for _, step := range m.Thinking {
		a.say("  - %s: %s", step.Label, step.Detail)
	}
	for _, sec := range services.EvidenceSections {
		a.say("%s:", sec.Label)
		for _, line := range strings.Split(services.FormatEvidence(m, sec.Key), "\n") {
			a.say("  %s", line)
		}
	}
}
