// Package search implements debounced, cancellable incremental lookups
// keyed by input field.
//
// Each field owns one task. Every Update bumps the task's generation,
// stops its pending timer and cancels its in-flight lookup; a lookup may
// only commit results while its generation is still current. Superseded
// and canceled lookups are dropped silently.
package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/dmitrijs2005/melvin/internal/client/client"
	"github.com/dmitrijs2005/melvin/internal/logging"
)

const (
	DefaultMinLength = 2
	DefaultDebounce  = 300 * time.Millisecond
	DefaultErrorText = "Failed to search cards. Try again."
)

// Lookup performs one query. It must honor ctx cancellation.
type Lookup[T any] func(ctx context.Context, query string) ([]T, error)

// State is the visible state of one field.
type State[T any] struct {
	Query   string
	Results []T
	Err     string
	Loading bool
}

type Option[T any] func(*Controller[T])

// WithDebounce sets how long input must be stable before a lookup runs.
func WithDebounce[T any](d time.Duration) Option[T] {
	return func(c *Controller[T]) { c.debounce = d }
}

func WithMinLength[T any](n int) Option[T] {
	return func(c *Controller[T]) { c.minLen = n }
}

// WithErrorText sets the message shown when a lookup fails.
func WithErrorText[T any](msg string) Option[T] {
	return func(c *Controller[T]) { c.errText = msg }
}

// WithOnChange registers fn to observe every state change. Changes of one
// field are delivered in order and a superseded change is never delivered.
// fn may run on a timer goroutine and must not call Update or Close for the
// field it is told about.
func WithOnChange[T any](fn func(field string, st State[T])) Option[T] {
	return func(c *Controller[T]) { c.onChange = fn }
}

func WithLogger[T any](l logging.Logger) Option[T] {
	return func(c *Controller[T]) { c.log = l }
}

type task[T any] struct {
	mu     sync.Mutex
	gen    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	state  State[T]
	closed bool

	// emitMu serializes deliveries to onChange.
	emitMu sync.Mutex
}

// stop invalidates whatever the task has pending. Callers hold t.mu.
func (t *task[T]) stop() uint64 {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	return t.gen
}

type Controller[T any] struct {
	lookup   Lookup[T]
	debounce time.Duration
	minLen   int
	errText  string
	onChange func(field string, st State[T])
	log      logging.Logger
	tasks    cmap.ConcurrentMap[string, *task[T]]
}

func NewController[T any](lookup Lookup[T], opts ...Option[T]) *Controller[T] {
	c := &Controller[T]{
		lookup:   lookup,
		debounce: DefaultDebounce,
		minLen:   DefaultMinLength,
		errText:  DefaultErrorText,
		log:      logging.Discard(),
		tasks:    cmap.New[*task[T]](),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Controller[T]) task(field string) *task[T] {
	return c.tasks.Upsert(field, nil, func(exist bool, old, _ *task[T]) *task[T] {
		if exist {
			return old
		}
		return &task[T]{}
	})
}

// Update records new input for field. Input shorter than the minimum
// length (after trimming) clears results and error and issues nothing;
// otherwise a lookup is scheduled after the debounce interval, superseding
// any earlier one. ctx bounds the scheduled lookup.
func (c *Controller[T]) Update(ctx context.Context, field, text string) {
	t := c.task(field)
	t.mu.Lock()
	for t.closed {
		t.mu.Unlock()
		t = c.task(field)
		t.mu.Lock()
	}
	gen := t.stop()
	t.state.Query = text
	query := strings.TrimSpace(text)

	if utf8.RuneCountInString(query) < c.minLen {
		t.state.Results = nil
		t.state.Err = ""
		t.state.Loading = false
		st := t.state
		t.mu.Unlock()
		c.emit(field, t, gen, st)
		return
	}

	lctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.timer = time.AfterFunc(c.debounce, func() {
		c.run(lctx, cancel, field, t, gen, query)
	})
	t.mu.Unlock()
}

func (c *Controller[T]) run(ctx context.Context, cancel context.CancelFunc, field string, t *task[T], gen uint64, query string) {
	defer cancel()

	t.mu.Lock()
	if t.gen != gen {
		t.mu.Unlock()
		return
	}
	t.state.Loading = true
	st := t.state
	t.mu.Unlock()
	c.emit(field, t, gen, st)

	results, err := c.lookup(ctx, query)

	t.mu.Lock()
	if t.gen != gen {
		t.mu.Unlock()
		return
	}
	t.cancel = nil
	t.timer = nil
	t.state.Loading = false

	switch {
	case err == nil:
		t.state.Results = results
		t.state.Err = ""
	case isCancellation(err):
		st = t.state
		t.mu.Unlock()
		c.emit(field, t, gen, st)
		return
	default:
		c.log.Warn(ctx, "search failed", "field", field, "query", query, "error", err)
		t.state.Err = c.errText
	}
	st = t.state
	t.mu.Unlock()
	c.emit(field, t, gen, st)
}

// Close clears field's query, results and error and abandons any pending
// or in-flight lookup.
func (c *Controller[T]) Close(field string) {
	t, ok := c.tasks.Pop(field)
	if !ok {
		return
	}
	t.mu.Lock()
	gen := t.stop()
	t.closed = true
	t.state = State[T]{}
	t.mu.Unlock()
	c.emit(field, t, gen, State[T]{})
}

// Reset closes every field.
func (c *Controller[T]) Reset() {
	for _, field := range c.tasks.Keys() {
		c.Close(field)
	}
}

// State returns a snapshot of field's state.
func (c *Controller[T]) State(field string) State[T] {
	t, ok := c.tasks.Get(field)
	if !ok {
		return State[T]{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.state
	st.Results = append([]T(nil), t.state.Results...)
	return st
}

// emit delivers st, taken at generation gen, unless t has moved on since.
func (c *Controller[T]) emit(field string, t *task[T], gen uint64, st State[T]) {
	if c.onChange == nil {
		return
	}
	t.emitMu.Lock()
	defer t.emitMu.Unlock()

	t.mu.Lock()
	current := t.gen == gen
	t.mu.Unlock()
	if current {
		c.onChange(field, st)
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, client.ErrCanceled) ||
		errors.Is(err, client.ErrSessionEnded)
}
