package cli

import (
	"context"
	"slices"

	"github.com/samber/lo"

	"github.com/dmitrijs2005/melvin/internal/client/client"
	"github.com/dmitrijs2005/melvin/internal/client/models"
)

// Profile prints the caller's player-type profile.
func (a *App) Profile(ctx context.Context) error {
	sum, err := a.profile.Summary(ctx)
	if err != nil {
		return err
	}
	if sum == nil {
		a.say("No profile yet. Take the assessment with 'assess'.")
		return nil
	}
	a.printProfile(*sum)
	return nil
}

// Assess walks through the questionnaire and submits the answers. An
// empty answer aborts without submitting.
func (a *App) Assess(ctx context.Context) error {
	q, err := a.profile.Questionnaire(ctx)
	if err != nil {
		return err
	}

	answers := make([]models.Answer, 0, len(q.Questions))
	for n, question := range q.Questions {
		a.say("Question %d of %d: %s", n+1, len(q.Questions), question.QuestionText)
		for i, o := range question.Options {
			a.say("  %d. %s", i+1, o.OptionText)
		}

		for {
			choice, err := getSimpleText(a.reader, "Your answer (empty to cancel)", a.out)
			if err != nil {
				return err
			}
			if choice == "" {
				a.say("Assessment canceled.")
				return nil
			}
			if i, ok := pick(choice, len(question.Options)); ok {
				answers = append(answers, models.Answer{QuestionID: question.ID, OptionID: question.Options[i].ID})
				break
			}
			a.say("Pick a number between 1 and %d.", len(question.Options))
		}
	}

	sum, err := a.profile.Assess(ctx, q, answers)
	if err != nil {
		if reportable(err) {
			a.say("Assessment failed: %s", client.Message(err))
		}
		return err
	}
	a.printProfile(*sum)
	return nil
}

func (a *App) printProfile(p models.ProfileSummary) {
	a.say("You are: %s (%.0f%%)", p.PrimaryTypeLabel, p.PrimaryScore*100)
	if p.SecondaryTypeLabel != nil && p.SecondaryScore != nil {
		a.say("Secondary: %s (%.0f%%)", *p.SecondaryTypeLabel, *p.SecondaryScore*100)
	}
	if p.SubtypeLabel != nil {
		a.say("Subtype: %s", *p.SubtypeLabel)
	}
	if p.Description != "" {
		a.say("%s", p.Description)
	}
	if p.PlayStyleSummary != "" {
		a.say("Play style: %s", p.PlayStyleSummary)
	}
	if p.ConversationGuidance != "" {
		a.say("Melvin will: %s", p.ConversationGuidance)
	}
	keys := lo.Keys(p.PreferenceBreakdown)
	slices.Sort(keys)
	for _, k := range keys {
		a.say("  %-20s %.0f%%", k, p.PreferenceBreakdown[k]*100)
	}
}
