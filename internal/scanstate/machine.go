// Package scanstate tracks the lifecycle of a background scan as an explicit
// state machine: Idle → Loading → Success | Error.
package scanstate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is the machine's current phase.
type State int

const (
	Idle State = iota
	Loading
	Success
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ErrInvalidTransition is returned for a transition the machine does not allow.
var ErrInvalidTransition = errors.New("invalid state transition")

// Snapshot is a consistent view of the machine.
type Snapshot[T any] struct {
	State     State
	Data      T
	Message   string
	ChangedAt time.Time
}

// Machine is safe for concurrent use.
type Machine[T any] struct {
	mu   sync.Mutex
	snap Snapshot[T]
	done chan struct{} // closed when the current Loading phase ends
}

func New[T any]() *Machine[T] {
	return &Machine[T]{snap: Snapshot[T]{State: Idle, ChangedAt: time.Now()}}
}

// Start moves Idle, Success or Error to Loading. A machine already in Loading
// rejects it, so at most one scan runs at a time.
func (m *Machine[T]) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap.State == Loading {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, Loading, Loading)
	}
	prev := m.snap.Data
	m.snap = Snapshot[T]{State: Loading, Data: prev, ChangedAt: time.Now()}
	m.done = make(chan struct{})
	return nil
}

// Succeed moves Loading to Success with data.
func (m *Machine[T]) Succeed(data T) error {
	return m.finish(Success, data, "")
}

// Fail moves Loading to Error with a message.
func (m *Machine[T]) Fail(msg string) error {
	var zero T
	return m.finish(Error, zero, msg)
}

func (m *Machine[T]) finish(to State, data T, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap.State != Loading {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, m.snap.State, to)
	}
	m.snap = Snapshot[T]{State: to, Data: data, Message: msg, ChangedAt: time.Now()}
	close(m.done)
	return nil
}

// Reset moves Success or Error back to Idle, discarding data.
func (m *Machine[T]) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap.State != Success && m.snap.State != Error {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, m.snap.State, Idle)
	}
	m.snap = Snapshot[T]{State: Idle, ChangedAt: time.Now()}
	return nil
}

// Snapshot returns the current state.
func (m *Machine[T]) Snapshot() Snapshot[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Wait blocks until the machine leaves Loading or ctx is done. It returns the
// snapshot at that point.
func (m *Machine[T]) Wait(ctx context.Context) (Snapshot[T], error) {
	m.mu.Lock()
	if m.snap.State != Loading {
		s := m.snap
		m.mu.Unlock()
		return s, nil
	}
	done := m.done
	m.mu.Unlock()

	select {
	case <-done:
		return m.Snapshot(), nil
	case <-ctx.Done():
		return m.Snapshot(), ctx.Err()
	}
}
