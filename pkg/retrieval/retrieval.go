// Package retrieval defines the knowledge retrieval gateway and the typed
// snippet records it returns.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable is wrapped by gateways that cannot serve a query at all,
// e.g. an unreachable service or an index that failed to build.
var ErrUnavailable = errors.New("retrieval unavailable")

// Gateway fetches up to k knowledge snippets relevant to query, best first.
type Gateway interface {
	Retrieve(ctx context.Context, query string, k int) ([]Snippet, error)
}

// GatewayFunc adapts a function to a Gateway.
type GatewayFunc func(ctx context.Context, query string, k int) ([]Snippet, error)

func (f GatewayFunc) Retrieve(ctx context.Context, query string, k int) ([]Snippet, error) {
	return f(ctx, query, k)
}

// Nop is a Gateway that never returns snippets.
type Nop struct{}

func (Nop) Retrieve(context.Context, string, int) ([]Snippet, error) {
	return nil, nil
}

// Result is the explicit outcome of one retrieval: either snippets or an error.
type Result struct {
	Snippets []Snippet
	Err      error
}

// OK reports whether the retrieval succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Fetch runs g.Retrieve bounded by timeout (when positive) and folds the
// outcome into a Result. A panicking gateway is reported as an error.
func Fetch(ctx context.Context, g Gateway, query string, k int, timeout time.Duration) (res Result) {
	if g == nil {
		return Result{}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			res = Result{Err: fmt.Errorf("retrieval panicked: %v", p)}
		}
	}()

	snippets, err := g.Retrieve(ctx, query, k)
	if err != nil {
		return Result{Err: err}
	}
	if k > 0 && len(snippets) > k {
		snippets = snippets[:k]
	}
	return Result{Snippets: snippets}
}

// Watcher is implemented by gateways that can refresh themselves in the
// background. Watch blocks until ctx is done.
type Watcher interface {
	Watch(ctx context.Context) error
}
