// Package memtier is a process-lifetime key/value tier. It plays the session
// tier: it survives for as long as the process and is gone on restart.
package memtier

import (
	"context"
	"sync"

	"attendance/pkg/platform/sentinel"
)

type Tier struct {
	mu     sync.RWMutex
	values map[string]string
	failOn error
}

func New() *Tier {
	return &Tier{values: make(map[string]string)}
}

func (t *Tier) Get(_ context.Context, key string) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.failOn != nil {
		return "", t.failOn
	}
	v, ok := t.values[key]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return v, nil
}

func (t *Tier) Set(_ context.Context, key, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failOn != nil {
		return t.failOn
	}
	t.values[key] = value
	return nil
}

func (t *Tier) Delete(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failOn != nil {
		return t.failOn
	}
	delete(t.values, key)
	return nil
}

// Clear drops every key, as a user clearing site data would.
func (t *Tier) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.values = make(map[string]string)
}

// Break makes every subsequent operation fail with err; nil restores the tier.
func (t *Tier) Break(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failOn = err
}
