// Package session holds the durable, append-only conversation histories
// keyed by session id.
package session

import (
	"context"
	"errors"

	"github.com/gentaxai/gentax/pkg/llm"
)

// ErrNotFound is returned when a session id is not known to the store.
var ErrNotFound = errors.New("session not found")

// ErrMalformed is wrapped by drivers whose backing data cannot be decoded.
// Store.Load treats it as a soft failure.
var ErrMalformed = errors.New("malformed session data")

// Turn is one entry of a transcript. Turns are immutable once appended.
type Turn struct {
	Role    llm.Role `json:"role"`
	Content string   `json:"content"`
}

// Record is a persisted view of one session. Because transcripts are
// append-only, len(Turns) doubles as the record's version.
type Record struct {
	ID    string
	Turns []Turn
}

// Snapshot is what the Store hands to a Driver on Persist.
type Snapshot struct {
	// Generation increases on every Persist call within a process.
	Generation uint64

	// Sessions is the full mapping at snapshot time.
	Sessions map[string][]Turn

	// Changed lists ids appended to since the previous successful persist.
	Changed []string
}

// Driver persists the session mapping to a backend.
type Driver interface {
	// Load reads every session. A missing backend yields an empty map.
	// Undecodable data is reported with an error wrapping ErrMalformed; any
	// sessions that could be decoded are still returned.
	Load(ctx context.Context) (map[string][]Turn, error)

	// Save writes the snapshot. Whole-file drivers rewrite every session;
	// record drivers upsert only Changed. Drivers must never replace a
	// stored transcript with a shorter one.
	Save(ctx context.Context, snap Snapshot) error

	// Close releases any resources held by the driver.
	Close() error
}
