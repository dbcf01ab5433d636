package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("not logged in")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrUnavailable     = errors.New("server unavailable")
	ErrCanceled        = errors.New("request canceled")
	ErrSessionEnded    = errors.New("session ended")
)

// SessionExpiredNotice is shown once when a 401 ends the session.
const SessionExpiredNotice = "Please log in again to continue."

// ServerError is a non-2xx answer from the backend.
type ServerError struct {
	Status int
	Detail string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Status, e.Detail)
}

func (e *ServerError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ErrUnavailable
	}
	return nil
}

// Message returns the human-readable text for err: the backend detail of a
// *ServerError, otherwise the error text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var se *ServerError
	if errors.As(err, &se) {
		return se.Detail
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Unexpected error"
}

// formatDetail renders the "detail" member of a backend error body. FastAPI
// returns either a string, a list of validation items or an object.
func formatDetail(status int, body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 || string(envelope.Detail) == "null" {
		return fmt.Sprintf("Request failed with status code %d", status)
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s
	}

	var items []json.RawMessage
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		parts := make([]string, 0, len(items))
		for _, raw := range items {
			parts = append(parts, formatDetailItem(raw))
		}
		return strings.Join(parts, " | ")
	}

	var obj struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &obj); err == nil && obj.Msg != "" {
		return obj.Msg
	}

	if compact := compactJSON(envelope.Detail); compact != "" {
		return compact
	}
	return "Unexpected error"
}

func formatDetailItem(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var item struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &item); err != nil || item.Msg == "" {
		return compactJSON(raw)
	}

	if len(item.Loc) == 0 {
		return item.Msg
	}
	loc := make([]string, 0, len(item.Loc))
	for _, l := range item.Loc {
		loc = append(loc, fmt.Sprint(l))
	}
	return "[" + strings.Join(loc, ".") + "] " + item.Msg
}

func compactJSON(raw json.RawMessage) string {
	var b bytes.Buffer
	if err := json.Compact(&b, raw); err != nil {
		return string(raw)
	}
	return b.String()
}
