package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/melvin/internal/client/client"
	"github.com/dmitrijs2005/melvin/internal/client/services"
	"github.com/dmitrijs2005/melvin/internal/shared"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// RequestAccount prompts for a username and password and files a sign-up
// request. Input that breaks the backend's rules is rejected locally.
func (a *App) RequestAccount(ctx context.Context) error {
	username, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(password)

	if err := a.authService.RequestAccount(ctx, username, string(password)); err != nil {
		if errors.Is(err, services.ErrInvalidUsername) || errors.Is(err, services.ErrWeakPassword) {
			a.say("%s", capitalize(err.Error()))
			return err
		}
		a.say("Request failed: %s", client.Message(err))
		return err
	}

	a.say(services.RequestSubmitted)
	return nil
}

// Login prompts for credentials, begins a session and loads its data.
func (a *App) Login(ctx context.Context) error {
	username, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(password)

	if err := a.authService.Login(ctx, username, string(password)); err != nil {
		a.say("Login failed: %s", client.Message(err))
		return err
	}

	a.say("Logged in as %s.", a.session.Username())
	a.afterLogin(ctx)
	return nil
}

// afterLogin loads the session's data and shows where the user is.
func (a *App) afterLogin(ctx context.Context) {
	if err := a.bootstrap(ctx); err != nil {
		a.log.Warn(ctx, "bootstrap failed", "error", err)
		return
	}
	if a.isPrivileged() {
		if n := len(a.admin.Requests()); n > 0 {
			a.say("%d account request(s) waiting; type 'requests'.", n)
		}
	}
	if conv, ok := a.conversations.Active(); ok {
		a.say("Conversation #%d %s", conv.ID, conv.Title)
		a.printMessages(a.conversations.Messages())
	} else {
		a.say("No conversations yet. Start one with 'new <title>'.")
	}
}

// Logout ends the session. Chat style settings are kept.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		a.log.Error(ctx, "logout failed", "error", err)
		return err
	}
	a.say("Logged out.")
	return nil
}

func (a *App) readCredentials() (string, []byte, error) {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return "", nil, err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return username, password, nil
}
