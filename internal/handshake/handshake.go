// Package handshake establishes a ready-to-use portal client exactly once and
// lets any number of callers wait for it.
package handshake

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/placekit-labs/placekit/internal/rest"
)

// ConnectFunc builds a client and returns once the portal has accepted it.
type ConnectFunc func(ctx context.Context) (rest.Caller, error)

// Error reports a handshake that resolved without a client.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return "portal handshake failed: " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Handshake resolves to a rest.Caller at most once.
type Handshake struct {
	connect ConnectFunc

	start  sync.Once
	ready  chan struct{}
	caller rest.Caller
	err    error
}

// New returns a handshake that will run connect on first use.
func New(connect ConnectFunc) *Handshake {
	return &Handshake{
		connect: connect,
		ready:   make(chan struct{}),
	}
}

// Resolved returns a handshake that is already ready with c.
func Resolved(c rest.Caller) *Handshake {
	h := &Handshake{ready: make(chan struct{}), caller: c}
	h.start.Do(func() {})
	close(h.ready)
	return h
}

// Start begins connecting in the background if it has not started yet.
// The connect call outlives ctx cancellation so that one impatient waiter
// cannot fail the handshake for everyone else.
func (h *Handshake) Start(ctx context.Context) {
	h.start.Do(func() {
		connectCtx := context.WithoutCancel(ctx)
		go func() {
			defer close(h.ready)
			if h.connect == nil {
				h.err = &Error{Err: errors.New("no connect function")}
				return
			}
			c, err := h.connect(connectCtx)
			if err != nil {
				h.err = &Error{Err: err}
				return
			}
			if c == nil {
				h.err = &Error{Err: errors.New("connect returned no client")}
				return
			}
			h.caller = c
		}()
	})
}

// Ready is closed once the handshake has resolved, successfully or not.
func (h *Handshake) Ready() <-chan struct{} {
	return h.ready
}

// Initialize starts the handshake if needed and waits for it. The wait is
// bounded only by ctx.
func (h *Handshake) Initialize(ctx context.Context) (rest.Caller, error) {
	h.Start(ctx)
	select {
	case <-h.ready:
		return h.caller, h.err
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for portal handshake: %w", ctx.Err())
	}
}

// Connect returns a ConnectFunc that builds a client with newClient and
// gates readiness on a user.current call.
func Connect(newClient func(ctx context.Context) (rest.Caller, error)) ConnectFunc {
	return func(ctx context.Context) (rest.Caller, error) {
		c, err := newClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating client: %w", err)
		}
		if err := rest.Ping(ctx, c); err != nil {
			return nil, fmt.Errorf("readiness check: %w", err)
		}
		return c, nil
	}
}
