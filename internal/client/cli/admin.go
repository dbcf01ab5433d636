package cli

import (
	"context"
	"fmt"
)

// Requests lists the pending account requests.
func (a *App) Requests(ctx context.Context) error {
	if !a.isPrivileged() {
		a.say("Only administrators can review account requests.")
		return nil
	}
	if _, err := a.admin.List(ctx); err != nil {
		if reportable(err) {
			a.say("Failed to load account requests.")
		}
		return err
	}
	a.printRequests()
	return nil
}

func (a *App) Approve(ctx context.Context, arg string) error {
	return a.decide(ctx, "approve", arg, a.admin.Approve)
}

func (a *App) Deny(ctx context.Context, arg string) error {
	return a.decide(ctx, "deny", arg, a.admin.Deny)
}

func (a *App) decide(ctx context.Context, verb, arg string, fn func(context.Context, int64) error) error {
	if !a.isPrivileged() {
		a.say("Only administrators can review account requests.")
		return nil
	}
	id, err := parseID(arg)
	if err != nil {
		return usage(fmt.Sprintf("%s <id>", verb))
	}

	err = fn(ctx, id)
	if msg := a.admin.Status(); msg != "" {
		a.say("%s", msg)
	}
	if err != nil {
		return err
	}
	a.printRequests()
	return nil
}

func (a *App) printRequests() {
	reqs := a.admin.Requests()
	if len(reqs) == 0 {
		a.say("No pending account requests.")
		return
	}
	for _, r := range reqs {
		a.say("#%-4d %s  requested %s", r.ID, r.Username, r.CreatedAt.Format("2006-01-02 15:04"))
	}
}
