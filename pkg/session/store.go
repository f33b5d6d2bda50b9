package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/gentaxai/gentax/pkg/llm"
	"github.com/gentaxai/gentax/pkg/logger"
)

// Session is a defensive copy of one transcript.
type Session struct {
	ID    string
	Turns []Turn
}

// Store is the in-memory session mapping backed by a Driver.
// The map is guarded by one RWMutex; exchanges on the same session are
// serialized with Lock.
type Store struct {
	// mu guards sessions, dirty and generation
	mu         sync.RWMutex
	sessions   map[string][]Turn
	dirty      map[string]struct{}
	generation uint64

	// locks holds an entry only while some exchange holds or waits on it
	locksMu sync.Mutex
	locks   map[string]*sessionLock

	driver   Driver
	preamble string
	newID    func() string
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPreamble sets the system turn used for new sessions.
func WithPreamble(p string) Option {
	return func(s *Store) {
		if p != "" {
			s.preamble = p
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator overrides session id minting.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewStore returns an empty Store over driver. Call Load to read existing sessions.
func NewStore(driver Driver, opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string][]Turn),
		dirty:    make(map[string]struct{}),
		locks:    make(map[string]*sessionLock),
		driver:   driver,
		preamble: DefaultPreamble,
		newID:    func() string { return uuid.New().String() },
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory mapping with the driver's contents.
// Malformed data is logged and whatever could be decoded is kept.
// Sessions that do not open with a system turn get the preamble prepended
// and are rewritten on the next Persist. Any other driver error is returned.
func (s *Store) Load(ctx context.Context) error {
	loaded, err := s.driver.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrMalformed) {
			return fmt.Errorf("loading sessions: %w", err)
		}
		s.logger.Warn("session store is malformed, starting with recoverable sessions only",
			"error", err,
			"recovered", len(loaded),
		)
	}

	sessions := make(map[string][]Turn, len(loaded))
	dirty := make(map[string]struct{})
	for id, turns := range loaded {
		if len(turns) == 0 || turns[0].Role != llm.RoleSystem {
			s.logger.Warn("loaded session does not start with a system turn, prepending preamble", "session_id", id)
			turns = append([]Turn{{Role: llm.RoleSystem, Content: s.preamble}}, turns...)
			dirty[id] = struct{}{}
		}
		sessions[id] = turns
	}

	s.mu.Lock()
	s.sessions = sessions
	s.dirty = dirty
	s.mu.Unlock()

	s.logger.Debug("sessions loaded", "count", len(sessions))
	return nil
}

// NewID mints a session id without creating any state.
func (s *Store) NewID() string {
	return s.newID()
}

// Resolve returns the session for id, creating it with just the preamble if
// it does not exist. An empty id gets a freshly minted one; a non-empty
// unknown id is created under that id. created reports whether a new
// session was made.
func (s *Store) Resolve(id string) (Session, bool) {
	if id == "" {
		id = s.newID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	turns, ok := s.sessions[id]
	if !ok {
		turns = []Turn{{Role: llm.RoleSystem, Content: s.preamble}}
		s.sessions[id] = turns
		s.dirty[id] = struct{}{}
	}

	return Session{ID: id, Turns: slices.Clone(turns)}, !ok
}

// Append adds turns to the end of the session's transcript.
func (s *Store) Append(id string, turns ...Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if len(turns) == 0 {
		return nil
	}

	// Full slice expression forces a copy so earlier snapshots never alias.
	s.sessions[id] = append(existing[:len(existing):len(existing)], turns...)
	s.dirty[id] = struct{}{}
	return nil
}

// Transcript returns a copy of the session's turns.
func (s *Store) Transcript(id string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return slices.Clone(turns), nil
}

// List returns every known session id in sorted order.
func (s *Store) List() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// Lock takes the exclusive exchange lock for id and returns its release func.
// Locks on different ids never contend. The entry for id is dropped once the
// last holder releases it.
func (s *Store) Lock(id string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()

			s.locksMu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(s.locks, id)
			}
			s.locksMu.Unlock()
		})
	}
}

// Persist writes the current mapping through the driver. Failures are
// logged and returned; the changed sessions stay marked for the next attempt.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.Lock()
	s.generation++
	snap := Snapshot{
		Generation: s.generation,
		Sessions:   make(map[string][]Turn, len(s.sessions)),
		Changed:    make([]string, 0, len(s.dirty)),
	}
	for id, turns := range s.sessions {
		// Turns are append-only and Append never mutates in place, so
		// sharing the backing array is safe.
		snap.Sessions[id] = turns
	}
	for id := range s.dirty {
		snap.Changed = append(snap.Changed, id)
	}
	s.dirty = make(map[string]struct{})
	s.mu.Unlock()

	slices.Sort(snap.Changed)

	if err := s.driver.Save(ctx, snap); err != nil {
		s.mu.Lock()
		for _, id := range snap.Changed {
			s.dirty[id] = struct{}{}
		}
		s.mu.Unlock()

		s.logger.Error("persisting sessions", "error", err, "changed", len(snap.Changed))
		return fmt.Errorf("persisting sessions: %w", err)
	}

	return nil
}

// Close closes the underlying driver.
func (s *Store) Close() error {
	return s.driver.Close()
}
