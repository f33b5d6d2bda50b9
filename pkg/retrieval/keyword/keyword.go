// Package keyword is a local retrieval gateway that ranks knowledge files
// with BM25. It reads markdown and text paragraphs and YAML snippet packs
// from a directory and can re-index when the directory changes.
package keyword

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gentaxai/gentax/pkg/logger"
	"github.com/gentaxai/gentax/pkg/retrieval"
)

const defaultDebounce = 250 * time.Millisecond

// Retriever implements retrieval.Gateway over a knowledge directory.
type Retriever struct {
	dir      string
	logger   *slog.Logger
	debounce time.Duration
	onReload func()

	mu    sync.RWMutex
	index *Index
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets the retriever logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Retriever) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDebounce sets how long Watch waits for a burst of changes to settle.
func WithDebounce(d time.Duration) Option {
	return func(r *Retriever) {
		if d > 0 {
			r.debounce = d
		}
	}
}

// WithOnReload registers fn to run after every successful re-index.
func WithOnReload(fn func()) Option {
	return func(r *Retriever) {
		r.onReload = fn
	}
}

// New indexes dir and returns a ready Retriever.
func New(dir string, opts ...Option) (*Retriever, error) {
	r := &Retriever{
		dir:      dir,
		logger:   logger.Nop(),
		debounce: defaultDebounce,
		index:    NewIndex(nil),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload rebuilds the index from disk. On error the previous index stays.
func (r *Retriever) Reload() error {
	chunks, err := LoadDir(r.dir)
	if err != nil {
		return fmt.Errorf("%w: %w", retrieval.ErrUnavailable, err)
	}

	ix := NewIndex(chunks)

	r.mu.Lock()
	r.index = ix
	r.mu.Unlock()

	r.logger.Info("knowledge indexed", "dir", r.dir, "chunks", ix.Len())
	if r.onReload != nil {
		r.onReload()
	}
	return nil
}

// Len returns the number of chunks in the current index.
func (r *Retriever) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Len()
}

// Retrieve returns the top k chunks for query.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]retrieval.Snippet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	ix := r.index
	r.mu.RUnlock()

	hits := ix.Search(query, k)
	if len(hits) == 0 {
		return nil, nil
	}

	out := make([]retrieval.Snippet, 0, len(hits))
	for _, h := range hits {
		text := h.Chunk.Text
		out = append(out, retrieval.Snippet{
			Source:  h.Chunk.Source,
			ChunkID: h.Chunk.ChunkID,
			Text:    &text,
			Score:   h.Score,
		})
	}
	return out, nil
}

// Watch re-indexes whenever a knowledge file under the directory is
// created, written, removed or renamed. It blocks until ctx is done.
func (r *Retriever) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := r.addDirs(w); err != nil {
		return err
	}

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				// new subdirectories need their own watch
				_ = r.addDirs(w)
			}
			if !isKnowledgeFile(event.Name) && event.Op&fsnotify.Create == 0 {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(r.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(r.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			if err := r.Reload(); err != nil {
				r.logger.Warn("re-indexing knowledge", "dir", r.dir, "error", err)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("knowledge watcher", "error", err)
		}
	}
}

func (r *Retriever) addDirs(w *fsnotify.Watcher) error {
	return filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != r.dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
