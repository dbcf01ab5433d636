package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/melvin/internal/client/models"
	"github.com/dmitrijs2005/melvin/internal/client/services"
)

// Tone shows the tone options or picks one by number or name.
func (a *App) Tone(ctx context.Context, args []string) error {
	return a.chooseStyle(ctx, "Tone", models.ToneOptions, a.preferences.Style().Tone, args, a.preferences.SetTone)
}

// Detail shows the detail level options or picks one by number or name.
func (a *App) Detail(ctx context.Context, args []string) error {
	return a.chooseStyle(ctx, "Detail level", models.DetailOptions, a.preferences.Style().DetailLevel, args, a.preferences.SetDetail)
}

func (a *App) chooseStyle(ctx context.Context, label string, options []string, current string, args []string, set func(context.Context, string) error) error {
	if len(args) == 0 {
		for i, o := range options {
			mark := " "
			if o == current {
				mark = "*"
			}
			a.say("%s %d. %s", mark, i+1, o)
		}
		return nil
	}

	choice := strings.Join(args, " ")
	if i, ok := pick(choice, len(options)); ok {
		choice = options[i]
	}
	if err := set(ctx, choice); err != nil {
		if errors.Is(err, services.ErrUnknownOption) {
			a.say("Unknown option %q.", choice)
			return nil
		}
		a.log.Error(ctx, "failed to save chat style", "error", err)
		a.say("Failed to save setting.")
		return err
	}
	a.say("%s: %s", label, choice)
	return nil
}

// Model shows or changes the caller's own model override:
//
//	model              show preferred and effective model
//	model set <name>   override the default
//	model clear        inherit the global default
func (a *App) Model(ctx context.Context, args []string) error {
	if len(args) == 0 {
		pref, err := a.preferences.LoadOwn(ctx)
		if err != nil {
			a.sayStatus(a.preferences.Status().Own)
			return err
		}
		a.say("Preferred: %s", deref(pref.Preferred, "(default)"))
		a.say("Effective: %s", pref.Effective)
		return nil
	}

	var value *string
	switch {
	case args[0] == "set" && len(args) == 2:
		value = models.StringPtr(args[1])
	case args[0] == "clear" && len(args) == 1:
	default:
		return usage("model [set <name> | clear]")
	}

	_, err := a.preferences.SaveOwn(ctx, value)
	a.sayStatus(a.preferences.Status().Own)
	return err
}

// Models lists the global model options; admins switch the default with
// "models use <name>".
func (a *App) Models(ctx context.Context, args []string) error {
	if len(args) == 2 && args[0] == "use" {
		if !a.isPrivileged() {
			a.say("Only administrators can change the default model.")
			return nil
		}
		opts, err := a.preferences.SelectGlobal(ctx, args[1])
		a.sayStatus(a.preferences.Status().Models)
		if opts != nil {
			a.printModelOptions(*opts)
		}
		return err
	}
	if len(args) != 0 {
		return usage("models [use <name>]")
	}

	opts, err := a.preferences.LoadModels(ctx)
	if err != nil {
		a.sayStatus(a.preferences.Status().Models)
		return err
	}
	a.printModelOptions(*opts)
	return nil
}

func (a *App) printModelOptions(opts models.ModelOptions) {
	for _, m := range opts.Available {
		mark := " "
		if m == opts.Current {
			mark = "*"
		}
		a.say("%s %s", mark, m)
	}
}

// Users lists every user's model preference (admin only):
//
//	users                     list
//	users set <id> <model>    override a user's model
//	users clear <id>          reset a user to the default
func (a *App) Users(ctx context.Context, args []string) error {
	if !a.isPrivileged() {
		a.say("Only administrators can manage user preferences.")
		return nil
	}

	if len(args) == 0 {
		users, err := a.preferences.LoadAll(ctx)
		if err != nil {
			a.sayStatus(a.preferences.Status().UserPrefs)
			return err
		}
		for _, u := range users {
			role := ""
			if u.IsAdmin {
				role = " (admin)"
			}
			a.say("#%-4d %s%s  preferred: %s  effective: %s", u.ID, u.Username, role, deref(u.Preferred, "(default)"), u.Effective)
		}
		return nil
	}

	var value *string
	switch {
	case args[0] == "set" && len(args) == 3:
		value = models.StringPtr(args[2])
	case args[0] == "clear" && len(args) == 2:
	default:
		return usage("users [set <id> <model> | clear <id>]")
	}
	id, err := parseID(args[1])
	if err != nil {
		return usage("users [set <id> <model> | clear <id>]")
	}

	_, err = a.preferences.SaveFor(ctx, id, value)
	a.sayStatus(a.preferences.Status().UserPrefs)
	return err
}

func (a *App) sayStatus(msg string) {
	if msg != "" {
		a.say("%s", msg)
	}
}
