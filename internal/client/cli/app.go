package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/dmitrijs2005/melvin/internal/client/client"
	"github.com/dmitrijs2005/melvin/internal/client/config"
	"github.com/dmitrijs2005/melvin/internal/client/models"
	"github.com/dmitrijs2005/melvin/internal/client/search"
	"github.com/dmitrijs2005/melvin/internal/client/services"
	"github.com/dmitrijs2005/melvin/internal/client/session"
	"github.com/dmitrijs2005/melvin/internal/logging"
)

// Search fields driven from the prompt.
const (
	fieldCards = "cards"
	fieldNames = "names"
)

type App struct {
	config *config.Config
	log    logging.Logger

	session       *session.Session
	bootstrap     func(ctx context.Context) error
	authService   services.AuthService
	conversations services.ConversationService
	chat          services.ChatService
	preferences   services.PreferenceService
	admin         services.AdminService
	profile       services.ProfileService
	cards         services.CardService
	archive       services.ArchiveService

	cardSearch *search.Controller[models.Card]
	nameSearch *search.Controller[string]

	reader *bufio.Reader
	outMu  sync.Mutex
	out    io.Writer
}

// NewApp builds the CLI around svc. Search state is dropped whenever the
// session ends or the active conversation changes.
func NewApp(cfg *config.Config, svc *services.Services, log logging.Logger) *App {
	a := &App{
		config:        cfg,
		log:           log,
		session:       svc.Session,
		bootstrap:     svc.Bootstrap,
		authService:   svc.Auth,
		conversations: svc.Conversations,
		chat:          svc.Chat,
		preferences:   svc.Preferences,
		admin:         svc.Admin,
		profile:       svc.Profile,
		cards:         svc.Cards,
		archive:       svc.Archive,
		reader:        bufio.NewReader(os.Stdin),
		out:           os.Stdout,
	}

	limit := cfg.SearchLimit
	a.cardSearch = search.NewController(
		func(ctx context.Context, q string) ([]models.Card, error) { return a.cards.SearchCards(ctx, q, limit) },
		search.WithDebounce[models.Card](cfg.SearchDebounce),
		search.WithLogger[models.Card](log),
		search.WithOnChange(a.showCardResults),
	)
	a.nameSearch = search.NewController(
		a.cards.Autocomplete,
		search.WithDebounce[string](cfg.SearchDebounce),
		search.WithErrorText[string]("Failed to fetch suggestions."),
		search.WithLogger[string](log),
		search.WithOnChange(a.showSuggestions),
	)

	a.session.OnReset(a.resetSearch)
	a.conversations.OnSwitch(a.resetSearch)
	return a
}

func (a *App) resetSearch() {
	a.cardSearch.Reset()
	a.nameSearch.Reset()
}

// Notify prints a backend notice. It satisfies client.Notifier.
func (a *App) Notify(_ context.Context, msg string) {
	a.say("! %s", msg)
}

func (a *App) say(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format+"\n", args...)
}

// reportable reports whether err still needs to be shown. A dead session
// has announced itself and abandoned calls need no message.
func reportable(err error) bool {
	return err != nil &&
		!errors.Is(err, client.ErrUnauthorized) &&
		!errors.Is(err, client.ErrUnauthenticated) &&
		!errors.Is(err, client.ErrSessionEnded) &&
		!errors.Is(err, client.ErrCanceled) &&
		!errors.Is(err, context.Canceled)
}

func (a *App) isLoggedIn() bool {
	return a.session.IsAuthenticated()
}

func (a *App) isPrivileged() bool {
	return a.session.IsPrivileged()
}

// status is shown in the prompt: the user, an admin marker and the
// active conversation.
func (a *App) status() string {
	if !a.isLoggedIn() {
		return ""
	}
	var b strings.Builder
	b.WriteString(a.session.Username())
	if a.isPrivileged() {
		b.WriteString(" admin")
	}
	if conv, ok := a.conversations.Active(); ok {
		fmt.Fprintf(&b, " #%d %s", conv.ID, conv.Title)
	}
	return "(" + b.String() + ")"
}

// Run restores the chat style and a persisted session, then starts the
// REPL. It blocks until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	if _, err := a.preferences.LoadStyle(ctx); err != nil {
		a.log.Warn(ctx, "failed to load chat style", "error", err)
	}

	restored, err := a.authService.Restore(ctx)
	if err != nil {
		a.log.Error(ctx, "failed to restore session", "error", err)
	}
	if restored {
		a.say("Welcome back, %s.", a.session.Username())
		a.afterLogin(ctx)
	}

	a.say("Melvin CLI (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader)
	a.resetSearch()
}
