package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/melvin/internal/client/session"
	"github.com/dmitrijs2005/melvin/internal/logging"
)

const maxErrorBody = 64 << 10

type HTTPClient struct {
	baseURL  string
	http     *http.Client
	session  *session.Session
	notifier Notifier
	log      logging.Logger
}

// NewHTTPClient builds a gateway for the backend mounted at baseURL.
// timeout bounds a whole request; zero means no limit.
func NewHTTPClient(baseURL string, timeout time.Duration, sess *session.Session, notifier Notifier, log logging.Logger) *HTTPClient {
	if notifier == nil {
		notifier = NotifierFunc(func(context.Context, string) {})
	}
	return &HTTPClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		session:  sess,
		notifier: notifier,
		log:      log,
	}
}

func (c *HTTPClient) Do(ctx context.Context, call Call, out any) error {
	token, epoch := c.session.Snapshot()
	if token == "" && !call.Public {
		return ErrUnauthenticated
	}

	req, err := c.newRequest(ctx, call, token)
	if err != nil {
		return c.fail(ctx, call, 0, fmt.Errorf("build request: %w", err))
	}

	c.log.Debug(ctx, "request", "method", req.Method, "path", call.Path)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ErrCanceled
		}
		return c.fail(ctx, call, 0, fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && !call.Public {
		c.teardown(ctx, call, epoch)
		return ErrUnauthorized
	}

	if !call.Public && c.session.Epoch() != epoch {
		return ErrSessionEnded
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		serr := &ServerError{Status: resp.StatusCode, Detail: formatDetail(resp.StatusCode, body)}
		if resp.StatusCode == http.StatusNotFound && call.AllowNotFound {
			return serr
		}
		return c.fail(ctx, call, resp.StatusCode, serr)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
	} else if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		if ctx.Err() != nil {
			return ErrCanceled
		}
		return c.fail(ctx, call, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}

	// The session may have ended while the body was read.
	if !call.Public && c.session.Epoch() != epoch {
		return ErrSessionEnded
	}

	return nil
}

func (c *HTTPClient) newRequest(ctx context.Context, call Call, token string) (*http.Request, error) {
	u := c.baseURL + call.Path
	if len(call.Query) > 0 {
		u += "?" + call.Query.Encode()
	}

	var body io.Reader
	if call.Body != nil {
		buf, err := json.Marshal(call.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(buf)
	}

	method := call.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *HTTPClient) teardown(ctx context.Context, call Call, epoch uint64) {
	done, err := c.session.Teardown(ctx, epoch)
	if err != nil {
		c.log.Error(ctx, "failed to clear stored token", "error", err)
	}
	if !done {
		return
	}
	c.log.Warn(ctx, "session expired", "method", call.Method, "path", call.Path)
	c.notifier.Notify(ctx, SessionExpiredNotice)
}

func (c *HTTPClient) fail(ctx context.Context, call Call, status int, err error) error {
	c.log.Error(ctx, "request failed", "method", call.Method, "path", call.Path, "status", status, "error", err)
	if call.Fallback != "" {
		c.notifier.Notify(ctx, call.Fallback)
	}
	return err
}
