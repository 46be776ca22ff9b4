// Package redis keeps workflow state in Redis so several router processes can share it.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

const (
	DefaultPrefix = "chatflow:"
	stateSegment  = "state:"
	indexKey      = "states"
)

// StateRepository stores each state as a JSON string under <prefix>state:<contactKey>
// and tracks live keys in the <prefix>states set.
type StateRepository struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures a StateRepository.
type Option func(*StateRepository)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(r *StateRepository) { r.prefix = prefix }
}

// WithTTL expires idle states in Redis itself, on top of the workflow timeout.
func WithTTL(ttl time.Duration) Option {
	return func(r *StateRepository) { r.ttl = ttl }
}

// NewStateRepository connects to redisURL (redis://host:port/db) and pings it.
func NewStateRepository(ctx context.Context, logger *slog.Logger, redisURL string, opts ...Option) (*StateRepository, error) {
	options, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := goredis.NewClient(options)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewStateRepositoryWithClient(logger, client, opts...), nil
}

// NewStateRepositoryWithClient wraps an existing client.
func NewStateRepositoryWithClient(logger *slog.Logger, client goredis.UniversalClient, opts ...Option) *StateRepository {
	r := &StateRepository{
		client: client,
		prefix: DefaultPrefix,
		logger: logger.With("module", "redis_state"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *StateRepository) key(contactKey string) string {
	return r.prefix + stateSegment + contactKey
}

func (r *StateRepository) GetState(ctx context.Context, contactKey string) (*models.WorkflowState, error) {
	value, err := r.client.Get(ctx, r.key(contactKey)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, persistence.NewStateError("Get", contactKey, persistence.ErrStateNotFound)
		}

		return nil, persistence.NewStateError("Get", contactKey, err)
	}

	var state models.WorkflowState
	if err := json.Unmarshal([]byte(value), &state); err != nil {
		return nil, persistence.NewStateError("Get", contactKey, err)
	}

	if state.CollectedData == nil {
		state.CollectedData = make(map[string]any)
	}

	return &state, nil
}

func (r *StateRepository) SaveState(ctx context.Context, state *models.WorkflowState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return persistence.NewStateError("Save", state.ContactKey, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, r.key(state.ContactKey), data, r.ttl)
		pipe.SAdd(ctx, r.prefix+indexKey, state.ContactKey)

		return nil
	})
	if err != nil {
		return persistence.NewStateError("Save", state.ContactKey, err)
	}

	return nil
}

func (r *StateRepository) DeleteState(ctx context.Context, contactKey string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, r.key(contactKey))
		pipe.SRem(ctx, r.prefix+indexKey, contactKey)

		return nil
	})
	if err != nil {
		return persistence.NewStateError("Delete", contactKey, err)
	}

	return nil
}

// ListStates returns every live state. Index entries whose key expired are pruned.
func (r *StateRepository) ListStates(ctx context.Context) ([]*models.WorkflowState, error) {
	keys, err := r.client.SMembers(ctx, r.prefix+indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list states: %w", err)
	}

	states := make([]*models.WorkflowState, 0, len(keys))

	for _, contactKey := range keys {
		state, err := r.GetState(ctx, contactKey)
		if err != nil {
			if persistence.IsStateNotFound(err) {
				r.client.SRem(ctx, r.prefix+indexKey, contactKey)

				continue
			}

			r.logger.WarnContext(ctx, "Skipping unreadable state", "contact_key", contactKey, "error", err)

			continue
		}

		states = append(states, state)
	}

	return states, nil
}

func (r *StateRepository) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *StateRepository) Close() error {
	return r.client.Close()
}
