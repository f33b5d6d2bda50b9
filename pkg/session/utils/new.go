// Package sessionutils builds the configured session store driver.
package sessionutils

import (
	"context"
	"fmt"

	"github.com/gentaxai/gentax/pkg/session"
	"github.com/gentaxai/gentax/pkg/session/filestore"
	"github.com/gentaxai/gentax/pkg/session/inmemory"
	"github.com/gentaxai/gentax/pkg/session/redisstore"
	"github.com/gentaxai/gentax/pkg/session/sqlstore"
)

type NewDriverOpts struct {
	ProviderType string
	Path         string
	SQLitePath   string
	PostgresDSN  string
	RedisAddr    string
	RedisPrefix  string
}

// NewDriver opens the driver for o.ProviderType. An empty provider means
// the JSON file backend.
func NewDriver(ctx context.Context, o *NewDriverOpts) (session.Driver, error) {
	switch o.ProviderType {
	case "file", "":
		if o.Path == "" {
			return nil, fmt.Errorf("file session store requires storage.path")
		}
		return filestore.NewDriver(o.Path), nil
	case "memory", "inmemory":
		return inmemory.NewDriver(), nil
	case "sqlite":
		return sqlstore.NewSQLiteDriver(ctx, o.SQLitePath)
	case "postgres":
		if o.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres session store requires storage.postgres_dsn")
		}
		return sqlstore.NewPostgresDriver(ctx, o.PostgresDSN)
	case "redis":
		return redisstore.NewDriver(ctx, o.RedisAddr, o.RedisPrefix)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", o.ProviderType)
	}
}
