// Package live maintains live-updating, ordered views of owner-scoped
// collections. All mutations go through the backend and become visible
// only when the backend pushes them back; the engine never applies an
// optimistic local update, so the local list can never diverge from the
// store.
package live

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/lifehubapp/lifehub/internal/backend"
	"github.com/lifehubapp/lifehub/internal/session"
)

// State of a subscription. While Subscribing the list content is unknown,
// not empty; consumers show a loading indicator.
type State int

const (
	Unsubscribed State = iota
	Subscribing
	Live
)

// Handler receives the full re-derived ordered list on every push.
type Handler func(backend.Snapshot)

// Subscription is a handle on one live query. Close is safe to call at
// any time, including concurrently with a snapshot delivery; a push that
// arrives after Close is discarded.
type Subscription struct {
	Owner      string
	Collection string

	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	state    State
	closed   bool
	last     backend.Snapshot
	handlers []Handler
}

func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Loading reports whether the initial snapshot has not arrived yet.
func (s *Subscription) Loading() bool {
	return s.State() == Subscribing
}

// Snapshot returns the last received full list.
func (s *Subscription) Snapshot() backend.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// OnSnapshot registers a handler. If a snapshot has already been
// delivered, the handler is invoked immediately with it.
func (s *Subscription) OnSnapshot(h Handler) {
	s.mu.Lock()
	s.handlers = append(s.handlers, h)
	deliver := s.state == Live
	last := s.last
	s.mu.Unlock()

	if deliver {
		h(last)
	}
}

// Close releases the live query. Idempotent.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.state = Unsubscribed
	s.mu.Unlock()

	s.cancel()
}

// Done is closed once the receive loop has fully stopped.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// apply replaces the local list wholesale with the pushed snapshot. The
// engine does not diff; each push is authoritative.
func (s *Subscription) apply(snap backend.Snapshot) {
	s.mu.Lock()
	if s.closed {
		// Late push after Close; never applied to a stale list.
		s.mu.Unlock()
		return
	}
	s.state = Live
	s.last = snap
	handlers := append([]Handler(nil), s.handlers...)
	s.mu.Unlock()

	for _, h := range handlers {
		h(snap)
	}
}

// Engine opens subscriptions and routes mutations to the document store.
type Engine struct {
	store backend.DocumentStore

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func NewEngine(store backend.DocumentStore) *Engine {
	return &Engine{
		store: store,
		subs:  make(map[*Subscription]struct{}),
	}
}

// Open begins a live subscription scoped to one owner and collection.
// The backend delivers an initial full snapshot, then one per change.
func (e *Engine) Open(ctx context.Context, owner, collection string, spec backend.SortSpec) (*Subscription, error) {
	if owner == "" {
		return nil, session.ErrNotAuthenticated
	}

	subCtx, cancel := context.WithCancel(ctx)
	ch, err := e.store.Listen(subCtx, owner, collection, spec)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open subscription: %w", err)
	}

	sub := &Subscription{
		Owner:      owner,
		Collection: collection,
		cancel:     cancel,
		done:       make(chan struct{}),
		state:      Subscribing,
	}

	e.mu.Lock()
	e.subs[sub] = struct{}{}
	e.mu.Unlock()

	go func() {
		defer close(sub.done)
		for snap := range ch {
			sub.apply(snap)
		}
		sub.Close()
		e.mu.Lock()
		delete(e.subs, sub)
		e.mu.Unlock()
	}()

	return sub, nil
}

// List reads the collection once, ordered by spec, without keeping a
// subscription open.
func (e *Engine) List(ctx context.Context, owner, collection string, spec backend.SortSpec) (backend.Snapshot, error) {
	if owner == "" {
		return nil, session.ErrNotAuthenticated
	}
	return e.store.List(ctx, owner, collection, spec)
}

// Create validates that at least one of the required fields survives
// trimming. A submission where every required field is blank is silently
// dropped without contacting the backend and returns an empty id.
func (e *Engine) Create(ctx context.Context, owner, collection string, fields map[string]any, required ...string) (string, error) {
	if owner == "" {
		return "", session.ErrNotAuthenticated
	}

	if len(required) > 0 {
		blank := true
		for _, key := range required {
			v, _ := fields[key].(string)
			v = strings.TrimSpace(v)
			fields[key] = v
			if v != "" {
				blank = false
			}
		}
		if blank {
			return "", nil
		}
	}

	return e.store.Create(ctx, owner, collection, fields)
}

func (e *Engine) Update(ctx context.Context, owner, collection, id string, fields map[string]any) error {
	if owner == "" {
		return session.ErrNotAuthenticated
	}
	return e.store.Update(ctx, owner, collection, id, fields)
}

func (e *Engine) Delete(ctx context.Context, owner, collection, id string) error {
	if owner == "" {
		return session.ErrNotAuthenticated
	}
	return e.store.Delete(ctx, owner, collection, id)
}

// CloseOwner tears down every open subscription that does not belong to
// the given owner. An empty owner closes everything.
func (e *Engine) CloseOwner(owner string) {
	e.mu.Lock()
	var stale []*Subscription
	for sub := range e.subs {
		if owner == "" || sub.Owner != owner {
			stale = append(stale, sub)
		}
	}
	e.mu.Unlock()

	for _, sub := range stale {
		sub.Close()
	}
}

// BindSession ties the engine to the identity provider: whenever the
// owner changes (sign-in, sign-out, initial resolution), subscriptions of
// any other owner are closed before the caller can open new ones. Returns
// the unsubscribe func.
//
// The binding is single-session scoped: the engine tracks one current
// owner, so in a deployment serving several signed-in accounts at once a
// login on any of them tears down every other account's streams. Bind
// only when the process serves a single authenticated user.
func (e *Engine) BindSession(p session.Provider) func() {
	return p.OnOwnerChanged(func(owner *session.Owner) {
		if owner == nil {
			e.CloseOwner("")
			return
		}
		e.CloseOwner(owner.UID)
	})
}
