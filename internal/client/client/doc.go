// Package client is the authenticated request gateway to the Melvin backend.
//
// # Overview
//
// Every network call the client makes goes through Client.Do. The HTTP
// implementation (HTTPClient):
//  1. attaches the session credential as a bearer Authorization header;
//  2. refuses to issue a non-public call when no credential is present;
//  3. tears the session down on a 401 and emits one notice, without retry;
//  4. surfaces the caller's fallback message for any other failure, logs it,
//     and leaves the session alone.
//
// # Error Handling
//
// Outcomes are exposed as sentinel errors matched with errors.Is:
// ErrUnauthenticated, ErrUnauthorized, ErrForbidden, ErrNotFound,
// ErrUnavailable, ErrCanceled and ErrSessionEnded. A non-2xx answer is a
// *ServerError carrying the status and the formatted backend detail; it
// unwraps to the matching sentinel where one exists.
//
// ErrCanceled and ErrSessionEnded are silent: nothing is logged or shown,
// and the caller must not commit any state from the call.
//
// # Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. Each call carries the session
// epoch it was issued under; a completion observed after that session ended
// yields ErrSessionEnded, and a 401 only tears down the session it belongs
// to.
package client
