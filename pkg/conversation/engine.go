// Package conversation runs one question through retrieval, evidence
// assembly, inference and persistence against a session transcript.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gentaxai/gentax/pkg/eventstream"
	"github.com/gentaxai/gentax/pkg/eventstream/nop"
	"github.com/gentaxai/gentax/pkg/evidence"
	"github.com/gentaxai/gentax/pkg/inference"
	"github.com/gentaxai/gentax/pkg/llm"
	"github.com/gentaxai/gentax/pkg/logger"
	"github.com/gentaxai/gentax/pkg/retrieval"
	"github.com/gentaxai/gentax/pkg/session"
	"github.com/gentaxai/gentax/pkg/tokens"
)

const (
	DefaultTopK             = 5
	DefaultRetrievalTimeout = 5 * time.Second
	DefaultInferenceTimeout = 30 * time.Second
)

// Config tunes an Engine. Zero values take the defaults above; a zero
// TokenBudget disables the transcript size warning.
type Config struct {
	TopK             int
	RetrievalTimeout time.Duration
	InferenceTimeout time.Duration
	TokenBudget      int
}

// Answer is the caller-facing result of one exchange. Citations cover the
// current answer only.
type Answer struct {
	Answer    string              `json:"answer"`
	SessionID string              `json:"session_id"`
	Citations []evidence.Citation `json:"citations"`
}

// Engine is safe for concurrent use. Exchanges on one session are
// serialized; different sessions proceed in parallel.
type Engine struct {
	store     *session.Store
	retriever retrieval.Gateway
	llm       inference.Gateway
	publisher eventstream.Publisher
	counter   tokens.Counter
	config    Config
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithPublisher(p eventstream.Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.publisher = p
		}
	}
}

// WithCounter sets the token counter used for the budget warning.
func WithCounter(c tokens.Counter) Option {
	return func(e *Engine) {
		if c != nil {
			e.counter = c
		}
	}
}

// WithClock overrides time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an Engine. A nil retriever disables retrieval.
func New(store *session.Store, retriever retrieval.Gateway, gateway inference.Gateway, cfg Config, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("conversation engine requires a session store")
	}
	if gateway == nil {
		return nil, errors.New("conversation engine requires an inference gateway")
	}
	if retriever == nil {
		retriever = retrieval.Nop{}
	}

	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.RetrievalTimeout <= 0 {
		cfg.RetrievalTimeout = DefaultRetrievalTimeout
	}
	if cfg.InferenceTimeout <= 0 {
		cfg.InferenceTimeout = DefaultInferenceTimeout
	}

	e := &Engine{
		store:     store,
		retriever: retriever,
		llm:       gateway,
		publisher: nop.NewPublisher(),
		counter:   tokens.HeuristicCounter{},
		config:    cfg,
		logger:    logger.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// NewSession mints a session id without creating any state. The session
// comes into existence on its first Submit.
func (e *Engine) NewSession() string {
	return e.store.NewID()
}

// Transcript returns a copy of a session's turns.
func (e *Engine) Transcript(id string) ([]session.Turn, error) {
	return e.store.Transcript(id)
}

// Sessions lists every known session id.
func (e *Engine) Sessions() []string {
	return e.store.List()
}

// Submit answers question within sessionID, creating the session when the
// id is empty or unknown. Appended order is always evidence (if any), then
// the question, then the answer.
func (e *Engine) Submit(ctx context.Context, question, sessionID string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	id := sessionID
	if id == "" {
		id = e.store.NewID()
	}

	unlock := e.store.Lock(id)
	defer unlock()

	startedAt := e.now()
	sess, created := e.store.Resolve(id)
	log := e.logger.With("session_id", id)
	if created {
		log.Debug("session created")
	}

	res := retrieval.Fetch(ctx, e.retriever, question, e.config.TopK, e.config.RetrievalTimeout)
	retrievedAt := e.now()
	if !res.OK() {
		log.Warn("retrieval failed, continuing without evidence", "error", res.Err)
	}
	block := evidence.FromResult(res)

	pending := make([]session.Turn, 0, 2)
	if !block.Empty() {
		pending = append(pending, session.Turn{Role: llm.RoleAssistant, Content: block.Text})
	}
	pending = append(pending, session.Turn{Role: llm.RoleUser, Content: question})

	if err := e.store.Append(id, pending...); err != nil {
		return nil, fmt.Errorf("recording question: %w", err)
	}

	transcript := append(sess.Turns, pending...)
	msgs := e.render(log, transcript)
	promptTokens := tokens.CountMessages(e.counter, msgs)
	if e.config.TokenBudget > 0 && promptTokens > e.config.TokenBudget {
		log.Warn("transcript exceeds token budget",
			"estimated_tokens", promptTokens,
			"budget", e.config.TokenBudget,
			"turns", len(transcript),
		)
	}

	// Persistence and publishing outlive a cancelled caller.
	bg := context.WithoutCancel(ctx)

	completion, err := e.complete(ctx, msgs)
	completedAt := e.now()
	if err != nil {
		log.Error("inference failed", "error", err)
		_ = e.store.Persist(bg)
		return nil, &InferenceError{SessionID: id, Err: err}
	}

	if err := e.store.Append(id, session.Turn{Role: llm.RoleAssistant, Content: completion.Content}); err != nil {
		return nil, fmt.Errorf("recording answer: %w", err)
	}
	if err := e.store.Persist(bg); err != nil {
		log.Error("answer not persisted", "error", err)
	}

	ev := eventstream.NewExchangeCompletedEvent(id, completedAt)
	ev.Model = completion.Model
	ev.CitationCount = len(block.Citations)
	ev.TurnCount = len(transcript) + 1
	ev.PromptTokens = promptTokens
	if completion.Usage != nil && completion.Usage.PromptTokens > 0 {
		ev.PromptTokens = completion.Usage.PromptTokens
	}
	ev.Timing = eventstream.Timing{
		StartedAt:   startedAt.UTC(),
		CompletedAt: completedAt.UTC(),
		RetrievalMs: retrievedAt.Sub(startedAt).Milliseconds(),
		InferenceMs: completedAt.Sub(retrievedAt).Milliseconds(),
		DurationMs:  completedAt.Sub(startedAt).Milliseconds(),
	}
	if err := e.publisher.PublishExchange(bg, ev); err != nil {
		log.Warn("exchange event not published", "error", err)
	}

	citations := block.Citations
	if citations == nil {
		citations = []evidence.Citation{}
	}

	log.Info("exchange completed",
		"citations", len(citations),
		"turns", ev.TurnCount,
		"duration_ms", ev.Timing.DurationMs,
	)

	return &Answer{
		Answer:    completion.Content,
		SessionID: id,
		Citations: citations,
	}, nil
}

func (e *Engine) complete(ctx context.Context, msgs []llm.Message) (*llm.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.InferenceTimeout)
	defer cancel()

	completion, err := e.llm.Complete(ctx, msgs)
	if err != nil {
		return nil, err
	}
	if completion == nil {
		return nil, inference.ErrEmptyCompletion
	}
	return completion, nil
}

// render maps turns to messages one-to-one, dropping turns with an
// unrecognised role.
func (e *Engine) render(log *slog.Logger, turns []session.Turn) []llm.Message {
	msgs := make([]llm.Message, 0, len(turns))
	for i, t := range turns {
		if !t.Role.Valid() {
			log.Warn("skipping turn with unknown role", "index", i, "role", string(t.Role))
			continue
		}
		msgs = append(msgs, llm.NewTextMessage(t.Role, t.Content))
	}
	return msgs
}
