// Package cache decorates a retrieval.Gateway with an expiring LRU of
// successful results.
package cache

import (
	"context"
	"slices"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/gentaxai/gentax/pkg/retrieval"
)

const (
	defaultSize = 256
	defaultTTL  = 5 * time.Minute
)

// Gateway caches results of the wrapped gateway keyed by k and query.
// Errors are never cached.
type Gateway struct {
	next retrieval.Gateway
	lru  *expirable.LRU[string, []retrieval.Snippet]
}

// New wraps next. Non-positive size or ttl fall back to defaults.
func New(next retrieval.Gateway, size int, ttl time.Duration) *Gateway {
	if size <= 0 {
		size = defaultSize
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Gateway{
		next: next,
		lru:  expirable.NewLRU[string, []retrieval.Snippet](size, nil, ttl),
	}
}

func key(query string, k int) string {
	return strconv.Itoa(k) + "|" + query
}

// Retrieve serves from the cache or delegates and stores the result.
func (g *Gateway) Retrieve(ctx context.Context, query string, k int) ([]retrieval.Snippet, error) {
	ck := key(query, k)
	if hit, ok := g.lru.Get(ck); ok {
		return slices.Clone(hit), nil
	}

	snippets, err := g.next.Retrieve(ctx, query, k)
	if err != nil {
		return nil, err
	}

	g.lru.Add(ck, slices.Clone(snippets))
	return snippets, nil
}

// Len returns the number of cached entries.
func (g *Gateway) Len() int {
	return g.lru.Len()
}

// Purge drops every cached entry, e.g. after the knowledge base reloads.
func (g *Gateway) Purge() {
	g.lru.Purge()
}
