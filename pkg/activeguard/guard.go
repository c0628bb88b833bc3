// Package activeguard serialises shift starts per worker so the "is a shift already
// open" check and the record insert behave as one unit.
package activeguard

import (
	"context"
	"errors"
	"sync"
)

// ErrHeld is returned when another caller already holds the worker's guard
var ErrHeld = errors.New("a shift start is already in progress for this worker")

// Release gives the guard back. It is safe to call more than once.
type Release func(ctx context.Context) error

// Guard hands out one claim per worker at a time
type Guard interface {
	Acquire(ctx context.Context, workerID string) (Release, error)
}

// Local is an in-process Guard for single-binary deployments and tests
type Local struct {
	mu   sync.Mutex
	held map[string]uint64
	seq  uint64
}

func NewLocal() *Local {
	return &Local{held: make(map[string]uint64)}
}

func (l *Local) Acquire(ctx context.Context, workerID string) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[workerID]; ok {
		return nil, ErrHeld
	}
	l.seq++
	token := l.seq
	l.held[workerID] = token

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.held[workerID] == token {
			delete(l.held, workerID)
		}
		return nil
	}, nil
}

// Held reports whether workerID is currently claimed
func (l *Local) Held(workerID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[workerID]
	return ok
}
