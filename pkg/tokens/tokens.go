// Package tokens estimates prompt sizes for transcript budget warnings.
package tokens

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/gentaxai/gentax/pkg/llm"
	"github.com/gentaxai/gentax/pkg/logger"
)

const (
	// DefaultEncoding is used for every model; exact per-model vocabularies
	// are not needed for a budget warning.
	DefaultEncoding = "cl100k_base"

	// per-message and reply-priming overheads of the chat format
	perMessage = 4
	perReply   = 3
)

// The BPE ranks are embedded so loading an encoding never touches the network.
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Counter counts tokens in a string.
type Counter interface {
	Count(text string) int
}

// Estimator counts with a tiktoken encoding. The encoding loads in the
// background; until it is ready, or if it fails to load, Count uses the
// characters-per-token heuristic.
type Estimator struct {
	encoding string
	logger   *slog.Logger

	ready chan struct{}
	mu    sync.RWMutex
	enc   *tiktoken.Tiktoken
}

// New returns an Estimator for encoding and starts loading it.
func New(encoding string, l *slog.Logger) *Estimator {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	if l == nil {
		l = logger.Nop()
	}
	e := &Estimator{encoding: encoding, logger: l, ready: make(chan struct{})}
	go e.load()
	return e
}

func (e *Estimator) load() {
	defer close(e.ready)

	enc, err := tiktoken.GetEncoding(e.encoding)
	if err != nil {
		e.logger.Warn("token encoding unavailable, using heuristic", "encoding", e.encoding, "error", err)
		return
	}

	e.mu.Lock()
	e.enc = enc
	e.mu.Unlock()
}

// Ready is closed once loading has finished, successfully or not.
func (e *Estimator) Ready() <-chan struct{} {
	return e.ready
}

// Exact reports whether counts come from the tiktoken encoding.
func (e *Estimator) Exact() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enc != nil
}

// Count returns the token count of text. It never blocks on loading.
func (e *Estimator) Count(text string) int {
	e.mu.RLock()
	enc := e.enc
	e.mu.RUnlock()

	if enc == nil {
		return Heuristic(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// Heuristic approximates tokens as one per four characters, rounded up.
func Heuristic(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// HeuristicCounter is a Counter that never loads an encoding.
type HeuristicCounter struct{}

func (HeuristicCounter) Count(text string) int {
	return Heuristic(text)
}

// CountMessages estimates the prompt size of a chat transcript.
func CountMessages(c Counter, msgs []llm.Message) int {
	if len(msgs) == 0 {
		return 0
	}
	total := perReply
	for _, m := range msgs {
		total += perMessage + c.Count(string(m.Role)) + c.Count(m.Content)
	}
	return total
}
