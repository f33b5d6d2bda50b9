// Package inmemory provides a session.Driver that keeps records in a map.
// It is used for tests and for ephemeral servers.
package inmemory

import (
	"context"
	"slices"
	"sync"

	"github.com/gentaxai/gentax/pkg/session"
)

// Driver implements session.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex for locking the mapping of records
	mu sync.RWMutex

	records map[string][]session.Turn

	// saves counts successful Save calls
	saves int
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		records: make(map[string][]session.Turn),
	}
}

// Seed preloads records, as if they had been persisted by an earlier process.
func (d *Driver) Seed(records map[string][]session.Turn) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, turns := range records {
		d.records[id] = slices.Clone(turns)
	}
}

func (d *Driver) Load(_ context.Context) (map[string][]session.Turn, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string][]session.Turn, len(d.records))
	for id, turns := range d.records {
		out[id] = slices.Clone(turns)
	}
	return out, nil
}

// Save upserts the changed sessions, never shrinking a stored transcript.
func (d *Driver) Save(_ context.Context, snap session.Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range snap.Changed {
		turns, ok := snap.Sessions[id]
		if !ok {
			continue
		}
		if len(turns) > len(d.records[id]) {
			d.records[id] = slices.Clone(turns)
		}
	}
	d.saves++
	return nil
}

// Saves returns the number of successful Save calls.
func (d *Driver) Saves() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.saves
}

func (d *Driver) Close() error {
	return nil
}
