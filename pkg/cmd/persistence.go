// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/chatflow/pkg/persistence"
	"github.com/dukex/chatflow/pkg/persistence/file"
	"github.com/dukex/chatflow/pkg/persistence/postgresql"
	"github.com/dukex/chatflow/pkg/persistence/redis"
)

var supportedPersistenceProviders = []string{"file", "postgres", "postgresql"}

// NewPersistence picks the implementation from the scheme of databaseURL. Anything
// without a known scheme is treated as a directory for file persistence.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider := parsePersistenceProvider(databaseURL)

	switch provider {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

// WithStateStore keeps workflow state in redis when store is "redis"; with "database"
// the state stays in p.
func WithStateStore(ctx context.Context, logger *slog.Logger, p persistence.Persistence, store, redisURL string) (persistence.Persistence, func() error, error) {
	noop := func() error { return nil }

	switch store {
	case "", "database":
		return p, noop, nil
	case "redis":
		if redisURL == "" {
			return nil, noop, fmt.Errorf("redis state store requires a redis url")
		}

		states, err := redis.NewStateRepository(ctx, logger, redisURL)
		if err != nil {
			return nil, noop, err
		}

		return persistence.WithStateRepository(p, states), states.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported state store: %s", store)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	provider := parts[0]
	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
