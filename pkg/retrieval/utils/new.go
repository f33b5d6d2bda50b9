// Package retrievalutils builds the configured retrieval gateway.
package retrievalutils

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gentaxai/gentax/pkg/retrieval"
	"github.com/gentaxai/gentax/pkg/retrieval/cache"
	"github.com/gentaxai/gentax/pkg/retrieval/keyword"
	"github.com/gentaxai/gentax/pkg/retrieval/remote"
)

type NewGatewayOpts struct {
	ProviderType string
	KnowledgeDir string
	Endpoint     string
	Watch        bool
	CacheSize    int
	CacheTTL     time.Duration
	Logger       *slog.Logger
}

// NewGateway returns the gateway for o.ProviderType, wrapped in a cache when
// CacheSize is positive. The Watcher is non-nil only for a keyword gateway
// with Watch set.
func NewGateway(o *NewGatewayOpts) (retrieval.Gateway, retrieval.Watcher, error) {
	var (
		gw      retrieval.Gateway
		watcher retrieval.Watcher
		cached  *cache.Gateway
	)

	switch o.ProviderType {
	case "keyword":
		r, err := keyword.New(o.KnowledgeDir,
			keyword.WithLogger(o.Logger),
			keyword.WithOnReload(func() {
				if cached != nil {
					cached.Purge()
				}
			}),
		)
		if err != nil {
			return nil, nil, err
		}
		gw = r
		if o.Watch {
			watcher = r
		}

	case "remote":
		c, err := remote.New(o.Endpoint)
		if err != nil {
			return nil, nil, err
		}
		gw = c

	case "none", "":
		return retrieval.Nop{}, nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported retrieval provider: %s", o.ProviderType)
	}

	if o.CacheSize > 0 {
		cached = cache.New(gw, o.CacheSize, o.CacheTTL)
		gw = cached
	}

	return gw, watcher, nil
}
