package services

import (
	"context"
	"database/sql"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/melvin/internal/client/client"
	"github.com/dmitrijs2005/melvin/internal/client/session"
	"github.com/dmitrijs2005/melvin/internal/logging"
)

// Services bundles the client's services around one session.
type Services struct {
	Session       *session.Session
	Auth          AuthService
	Conversations ConversationService
	Chat          ChatService
	Preferences   PreferenceService
	Admin         AdminService
	Profile       ProfileService
	Cards         CardService
	Archive       ArchiveService

	log logging.Logger
}

// New wires the services together and registers their state for reset on
// session teardown.
func New(c client.Client, sess *session.Session, db *sql.DB, archive ArchiveConfig, log logging.Logger) *Services {
	conversations := NewConversationService(c)
	prefs := NewPreferenceService(c, sess, db)
	chat := NewChatService(c, conversations, prefs)
	admin := NewAdminService(c, sess)

	sess.OnReset(conversations.Reset)
	sess.OnReset(chat.Reset)
	sess.OnReset(prefs.Reset)
	sess.OnReset(admin.Reset)

	return &Services{
		Session:       sess,
		Auth:          NewAuthService(c, sess),
		Conversations: conversations,
		Chat:          chat,
		Preferences:   prefs,
		Admin:         admin,
		Profile:       NewProfileService(c),
		Cards:         NewCardService(c),
		Archive:       NewArchiveService(archive, sess, conversations),
		log:           log,
	}
}

type bootstrapLoad struct {
	name string
	fn   func(context.Context) error
}

// Bootstrap loads what a fresh session shows: conversations (auto-selecting
// the first), model options and the caller's own preference; for
// privileged sessions also the pending requests and user preferences.
// Loads run concurrently and each handles its own failure, so Bootstrap
// itself only reports a missing session.
func (s *Services) Bootstrap(ctx context.Context) error {
	if !s.Session.IsAuthenticated() {
		return client.ErrUnauthenticated
	}

	loads := []bootstrapLoad{
		{"conversations", func(ctx context.Context) error { _, err := s.Conversations.List(ctx); return err }},
		{"models", func(ctx context.Context) error { _, err := s.Preferences.LoadModels(ctx); return err }},
		{"model preference", func(ctx context.Context) error { _, err := s.Preferences.LoadOwn(ctx); return err }},
	}
	if s.Session.IsPrivileged() {
		loads = append(loads,
			bootstrapLoad{"account requests", func(ctx context.Context) error { _, err := s.Admin.List(ctx); return err }},
			bootstrapLoad{"user preferences", func(ctx context.Context) error { _, err := s.Preferences.LoadAll(ctx); return err }},
		)
	}

	var g errgroup.Group
	for _, l := range loads {
		g.Go(func() error {
			if err := l.fn(ctx); err != nil && !isSilent(err) {
				s.log.Warn(ctx, "bootstrap load failed", "load", l.name, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}
