package classifier

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State is the lifecycle of a Holder.
type State int

const (
	StateNotLoaded State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotLoaded:
		return "not_loaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Holder owns the process-wide model. It is loaded once through Load and is
// read-only afterwards, so the returned Classifier may be shared by all requests.
type Holder struct {
	backend string
	cfg     Config

	mu       sync.RWMutex
	state    State
	clf      Classifier
	err      error
	loadedAt time.Time
}

// NewHolder returns a Holder for the named backend in StateNotLoaded.
func NewHolder(backend string, cfg Config) *Holder {
	return &Holder{backend: backend, cfg: cfg}
}

// NewReadyHolder wraps an already constructed classifier.
func NewReadyHolder(c Classifier) *Holder {
	return &Holder{backend: "static", clf: c, state: StateReady, loadedAt: time.Now()}
}

// Load builds the backend and, when it supports it, pings it. Calling Load on a
// ready Holder is a no-op; calling it after a failure retries.
func (h *Holder) Load(ctx context.Context) error {
	h.mu.Lock()
	if h.state == StateReady {
		h.mu.Unlock()
		return nil
	}
	h.state = StateLoading
	h.err = nil
	h.mu.Unlock()

	clf, err := New(h.backend, h.cfg)
	if err == nil {
		if p, ok := clf.(Pinger); ok {
			err = p.Ping(ctx)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.state = StateFailed
		h.err = err
		return fmt.Errorf("load %s classifier: %w", h.backend, err)
	}
	h.clf = clf
	h.state = StateReady
	h.loadedAt = time.Now()
	return nil
}

// State returns the current lifecycle state.
func (h *Holder) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Err returns the last load error, if any.
func (h *Holder) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Backend returns the backend name the Holder was created with.
func (h *Holder) Backend() string { return h.backend }

// LoadedAt returns when the model became ready.
func (h *Holder) LoadedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.loadedAt
}

// Classifier returns the loaded model or ErrNotReady.
func (h *Holder) Classifier() (Classifier, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.state != StateReady {
		if h.err != nil {
			return nil, fmt.Errorf("%w (%s): %v", ErrNotReady, h.state, h.err)
		}
		return nil, fmt.Errorf("%w (%s)", ErrNotReady, h.state)
	}
	return h.clf, nil
}
