// Package filestore persists sessions as a single JSON document mapping
// session id to its transcript.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gentaxai/gentax/pkg/session"
)

// Driver implements session.Driver on one JSON file. Every Save rewrites
// the whole file through a temp file and rename.
type Driver struct {
	path string

	// mu serializes writers
	mu      sync.Mutex
	written uint64
}

// NewDriver returns a file driver for path. The file is not touched until
// Load or Save.
func NewDriver(path string) *Driver {
	return &Driver{path: path}
}

// Path returns the backing file path.
func (d *Driver) Path() string {
	return d.path
}

// Load reads the file. A missing file is an empty mapping; an empty or
// undecodable file wraps session.ErrMalformed.
func (d *Driver) Load(_ context.Context) (map[string][]session.Turn, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string][]session.Turn{}, nil
		}
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	sessions := map[string][]session.Turn{}
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", session.ErrMalformed, d.path, err)
	}
	if sessions == nil {
		// the file held a bare "null"
		sessions = map[string][]session.Turn{}
	}
	return sessions, nil
}

// Save rewrites the file with the full snapshot. Snapshots older than the
// last one written are skipped.
func (d *Driver) Save(_ context.Context, snap session.Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if snap.Generation != 0 && snap.Generation <= d.written {
		return nil
	}

	data, err := Encode(snap.Sessions)
	if err != nil {
		return err
	}

	if err := writeAtomic(d.path, data); err != nil {
		return err
	}

	d.written = snap.Generation
	return nil
}

func (d *Driver) Close() error {
	return nil
}

// Encode renders sessions as two-space indented JSON with HTML escaping
// disabled so non-ASCII text is written as-is.
func Encode(sessions map[string][]session.Turn) ([]byte, error) {
	if sessions == nil {
		sessions = map[string][]session.Turn{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(sessions); err != nil {
		return nil, fmt.Errorf("encoding sessions: %w", err)
	}
	return buf.Bytes(), nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".sessions-*.json.tmp")
	if err != nil {
		return fmt.Errorf("creating temp session file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing temp session file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("syncing temp session file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing temp session file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("persisting session file: %w", err)
	}

	return nil
}
