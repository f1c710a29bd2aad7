package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Opener dials a store.
type Opener func(ctx context.Context) (Store, error)

// Handle is a lazily-initialized store connection.
//
// Get connects if no connection is held yet and returns the existing one otherwise.
// Concurrent callers during a dial wait for that single dial. A failed dial is
// returned to every waiter and attempted again on the next Get.
type Handle struct {
	open Opener

	mu      sync.Mutex
	store   Store
	dialing chan struct{}
	err     error
	closed  bool
}

// NewHandle returns a handle that dials databaseURL on first use.
func NewHandle(databaseURL string) *Handle {
	return NewHandleWithOpener(func(ctx context.Context) (Store, error) {
		return Open(ctx, databaseURL)
	})
}

// NewHandleWithOpener returns a handle using a custom dial function.
func NewHandleWithOpener(open Opener) *Handle {
	return &Handle{open: open}
}

// Get returns the connected store, connecting if absent.
func (h *Handle) Get(ctx context.Context) (Store, error) {
	for {
		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			return nil, fmt.Errorf("store handle is closed")
		}
		if h.store != nil {
			s := h.store
			h.mu.Unlock()
			return s, nil
		}
		if wait := h.dialing; wait != nil {
			h.mu.Unlock()
			select {
			case <-wait:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			h.mu.Lock()
			s, err := h.store, h.err
			h.mu.Unlock()
			if s != nil {
				return s, nil
			}
			if err != nil {
				return nil, err
			}
			continue
		}

		done := make(chan struct{})
		h.dialing = done
		h.mu.Unlock()

		s, err := h.open(ctx)

		h.mu.Lock()
		h.dialing = nil
		h.err = err
		if err == nil {
			if h.closed {
				h.mu.Unlock()
				close(done)
				_ = s.Close()
				return nil, fmt.Errorf("store handle is closed")
			}
			h.store = s
			slog.Info("Database connected successfully")
		}
		h.mu.Unlock()
		close(done)

		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Close releases the held connection, if any.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	if h.store == nil {
		return nil
	}
	err := h.store.Close()
	h.store = nil
	return err
}
