package client

import (
	"context"
	"net/url"
)

// Call describes one backend request.
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Body   any

	// Public calls are sent without requiring a credential and never tear
	// the session down.
	Public bool

	// Fallback is shown to the user on any failure other than 401,
	// cancellation or an allowed 404. Empty means no notice.
	Fallback string

	// AllowNotFound makes a 404 a silent ErrNotFound.
	AllowNotFound bool
}

// Client dispatches calls to the backend and decodes the JSON answer into
// out (which may be nil).
type Client interface {
	Do(ctx context.Context, call Call, out any) error
}

// Notifier shows one-shot user-facing messages.
type Notifier interface {
	Notify(ctx context.Context, msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg string)

func (f NotifierFunc) Notify(ctx context.Context, msg string) { f(ctx, msg) }
