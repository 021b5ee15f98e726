package shutdown

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "shutdown")

// Handler releases one resource. It should return promptly once ctx is done.
type Handler func(ctx context.Context) error

type namedHandler struct {
	name string
	fn   Handler
}

// Manager runs registered shutdown callbacks concurrently, bounded by a context.
type Manager struct {
	mu        sync.Mutex
	callbacks []namedHandler
	done      bool
}

func NewManager() *Manager {
	return &Manager{}
}

// OnShutdown registers a callback. Callbacks registered after Shutdown are ignored.
func (m *Manager) OnShutdown(name string, handler Handler) {
	if handler == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return
	}
	m.callbacks = append(m.callbacks, namedHandler{name: name, fn: handler})
}

// Shutdown runs every callback once and blocks until all finish or ctx expires.
// It returns the number of callbacks that reported an error.
func (m *Manager) Shutdown(ctx context.Context) int {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return 0
	}
	m.done = true
	callbacks := m.callbacks
	m.callbacks = nil
	m.mu.Unlock()

	if len(callbacks) == 0 {
		return 0
	}
	log.Infof("shutting down %d component(s)", len(callbacks))

	var (
		wg     sync.WaitGroup
		errMu  sync.Mutex
		failed int
	)
	wg.Add(len(callbacks))
	for _, cb := range callbacks {
		go func(h namedHandler) {
			defer wg.Done()
			if err := h.fn(ctx); err != nil {
				log.WithField("component", h.name).Warnf("shutdown failed: %v", err)
				errMu.Lock()
				failed++
				errMu.Unlock()
			}
		}(cb)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("all components stopped")
	case <-ctx.Done():
		log.Warnf("shutdown timed out: %v", ctx.Err())
	}

	errMu.Lock()
	defer errMu.Unlock()
	return failed
}
