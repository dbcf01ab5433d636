// Package cli provides the interactive Melvin command-line client.
//
// App wires the application services to a read-eval-print loop: the user
// logs in, picks or creates a conversation and asks rules questions.
// Selected cards, the tone and detail level and the reasoning insight of
// the last answer are managed from the prompt. Administrators also get
// the account request queue and per-user model preferences.
//
// Backend notices (failed requests, an expired session) and incremental
// search results arrive asynchronously and are printed as they happen.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
