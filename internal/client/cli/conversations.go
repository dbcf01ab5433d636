package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/melvin/internal/client/client"
	"github.com/dmitrijs2005/melvin/internal/client/services"
)

// Conversations refreshes and prints the conversation list; the active
// one is starred.
func (a *App) Conversations(ctx context.Context) error {
	list, err := a.conversations.List(ctx)
	if err != nil {
		a.log.Error(ctx, "list conversations", "error", err)
		return err
	}
	if len(list) == 0 {
		a.say("No conversations yet. Start one with 'new <title>'.")
		return nil
	}

	active, _ := a.conversations.Active()
	for _, c := range list {
		mark := " "
		if c.ID == active.ID {
			mark = "*"
		}
		a.say("%s #%-4d %s  (%s)", mark, c.ID, c.Title, c.CreatedAt.Format("2006-01-02"))
	}
	return nil
}

func (a *App) NewConversation(ctx context.Context, title string) error {
	conv, err := a.conversations.Create(ctx, title)
	if errors.Is(err, services.ErrEmptyTitle) {
		return usage("new <title>")
	}
	if err != nil {
		return err
	}
	a.say("Started conversation #%d %s", conv.ID, conv.Title)
	return nil
}

// UseConversation switches to a conversation from the loaded list.
func (a *App) UseConversation(ctx context.Context, arg string) error {
	id, err := parseID(arg)
	if err != nil {
		return usage("use <id>")
	}
	conv, ok := a.conversations.Find(id)
	if !ok {
		a.say("No conversation #%d. Type 'convs' to refresh the list.", id)
		return nil
	}
	if err := a.conversations.Select(ctx, conv); err != nil {
		if reportable(err) {
			a.say("Failed to load conversation: %s", client.Message(err))
		}
		return err
	}
	a.say("Conversation #%d %s", conv.ID, conv.Title)
	return a.History(ctx)
}

func (a *App) History(context.Context) error {
	if _, ok := a.conversations.Active(); !ok {
		a.say("No conversation selected.")
		return nil
	}
	msgs := a.conversations.Messages()
	if len(msgs) == 0 {
		a.say("No messages yet. Ask something with 'ask <question>'.")
		return nil
	}
	a.printMessages(msgs)
	return nil
}
