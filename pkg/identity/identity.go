// Package identity resolves who is using the tool and keeps that answer observable.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fieldcrew/shiftlog/pkg/core/model"
	"github.com/fieldcrew/shiftlog/pkg/core/shifterr"
	"github.com/fieldcrew/shiftlog/pkg/db"
)

var ErrNoWorker = errors.New("no current worker")

// Provider returns the worker the caller is acting as
type Provider interface {
	CurrentWorker(ctx context.Context) (model.Worker, error)
}

// Context holds the current worker. It changes only through Refresh, and every refresh
// is announced to subscribers.
type Context struct {
	provider Provider

	mu          sync.RWMutex
	current     *model.Worker
	subscribers []chan model.Worker
}

func NewContext(provider Provider) *Context {
	return &Context{provider: provider}
}

// Refresh reloads the worker from the provider and notifies subscribers
func (c *Context) Refresh(ctx context.Context) (model.Worker, error) {
	w, err := c.provider.CurrentWorker(ctx)
	if err != nil {
		return model.Worker{}, fmt.Errorf("failed to load current worker: %w", err)
	}

	c.mu.Lock()
	c.current = &w
	subs := append([]chan model.Worker(nil), c.subscribers...)
	c.mu.Unlock()

	for _, ch := range subs {
		// drop the stale value so a slow subscriber always sees the latest worker
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- w:
		default:
		}
	}

	return w, nil
}

// Current returns the worker from the last successful refresh
func (c *Context) Current() (model.Worker, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return model.Worker{}, ErrNoWorker
	}
	return *c.current, nil
}

// Subscribe returns a channel that receives the worker after every refresh.
// The channel is buffered by one and only holds the latest value.
func (c *Context) Subscribe() <-chan model.Worker {
	ch := make(chan model.Worker, 1)
	c.mu.Lock()
	c.subscribers = append(c.subscribers, ch)
	c.mu.Unlock()
	return ch
}

// RequireAdmin fails unless w has the admin role
func RequireAdmin(w model.Worker) error {
	if !w.IsAdmin() {
		return shifterr.New(shifterr.Validation, "requireAdmin", "worker %s is not an admin", w.ID)
	}
	return nil
}

// StoreProvider loads the worker profile for a fixed id from the worker store
type StoreProvider struct {
	Store    db.WorkerStore
	WorkerID string
}

func (p StoreProvider) CurrentWorker(ctx context.Context) (model.Worker, error) {
	if p.WorkerID == "" {
		return model.Worker{}, ErrNoWorker
	}
	row, err := p.Store.GetWorker(ctx, p.WorkerID)
	if err != nil {
		return model.Worker{}, fmt.Errorf("failed to get worker %s: %w", p.WorkerID, err)
	}
	w := model.WorkerFromRow(row)
	if !w.Role.IsValid() {
		return model.Worker{}, fmt.Errorf("worker %s has unknown role %q", w.ID, w.Role)
	}
	return w, nil
}

// WorkerNames maps every known worker id to its display name
func WorkerNames(ctx context.Context, store db.WorkerStore) (map[string]string, error) {
	rows, err := store.GetWorkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get workers: %w", err)
	}
	names := make(map[string]string, len(rows))
	for _, row := range rows {
		names[row.ID] = row.Name
	}
	return names, nil
}
