// Package worker provides an asynchronous worker pool for publishing exchange
// events through a wrapped eventstream.Publisher.
//
// The pool decouples broker round-trips from the chat request path so a slow
// or unreachable event backend never delays an answer.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gentaxai/gentax/pkg/eventstream"
	"github.com/gentaxai/gentax/pkg/logger"
)

var (
	defaultNumWorkers     uint = 2
	defaultJobQueueSize   uint = 256
	defaultPublishTimeout      = 10 * time.Second
)

// ErrQueueFull is returned by PublishExchange when the job was dropped.
var ErrQueueFull = errors.New("event queue full")

// ErrClosed is returned by PublishExchange after Close.
var ErrClosed = errors.New("event pool closed")

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Event *eventstream.ExchangeCompletedEvent
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher is the backend events are forwarded to.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// PublishTimeout bounds each call to the backend (defaults to 10s).
	PublishTimeout time.Duration

	Logger *slog.Logger
}

// Pool publishes events asynchronously via a worker pool. It implements
// eventstream.Publisher itself so it can wrap any other publisher.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	// closeMu guards closed against sends on a closed queue
	closeMu sync.RWMutex
	closed  bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, errors.New("worker pool requires a publisher")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.PublishTimeout <= 0 {
		c.PublishTimeout = defaultPublishTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()

	if p.closed {
		p.logger.Warn("job not queued, pool closed", "session_id", job.Event.SessionID)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"session_id", job.Event.SessionID,
			"event_id", job.Event.EventID,
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"session_id", job.Event.SessionID,
			"event_id", job.Event.EventID,
		)
		return false
	}
}

// PublishExchange enqueues the event and returns without waiting for the backend.
func (p *Pool) PublishExchange(_ context.Context, event *eventstream.ExchangeCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	if !p.Enqueue(Job{Event: event}) {
		p.closeMu.RLock()
		closed := p.closed
		p.closeMu.RUnlock()
		if closed {
			return ErrClosed
		}
		return ErrQueueFull
	}
	return nil
}

// Close signals workers to stop, waits for in-flight jobs to drain and then
// closes the wrapped publisher. Call this during graceful shutdown after the
// HTTP server has stopped.
func (p *Pool) Close() error {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.closeMu.Unlock()

	p.wg.Wait()
	return p.config.Publisher.Close()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("event worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("event worker stopped", "worker_id", id)
}

func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()

	if err := p.config.Publisher.PublishExchange(ctx, job.Event); err != nil {
		p.logger.Error("async event publish failed",
			"session_id", job.Event.SessionID,
			"event_id", job.Event.EventID,
			"error", err,
		)
		return
	}

	p.logger.Debug("event published",
		"session_id", job.Event.SessionID,
		"event_id", job.Event.EventID,
	)
}
