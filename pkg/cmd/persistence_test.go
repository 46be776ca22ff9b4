package cmd

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dukex/chatflow/pkg/log"
	"github.com/dukex/chatflow/pkg/persistence/file"
	"github.com/dukex/chatflow/pkg/persistence/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePersistenceProvider(t *testing.T) {
	tests := map[string]string{
		"file:///tmp/data":            "file",
		"./data":                      "file",
		"postgres://u:p@localhost/db": "postgres",
		"postgresql://localhost/db":   "postgresql",
		"mongodb://localhost":         "file",
	}

	for url, expected := range tests {
		assert.Equal(t, expected, parsePersistenceProvider(url), url)
	}
}

func TestNewPersistence_File(t *testing.T) {
	p, err := NewPersistence(t.Context(), log.Discard(), "file://"+t.TempDir())
	require.NoError(t, err)

	_, ok := p.(*file.Persistence)
	assert.True(t, ok)
	assert.NoError(t, p.HealthCheck(t.Context()))
}

func TestWithStateStore(t *testing.T) {
	base := file.NewPersistence(t.TempDir())

	p, closer, err := WithStateStore(t.Context(), log.Discard(), base, "database", "")
	require.NoError(t, err)
	assert.Same(t, base, p)
	assert.NoError(t, closer())

	_, _, err = WithStateStore(t.Context(), log.Discard(), base, "redis", "")
	assert.Error(t, err)

	_, _, err = WithStateStore(t.Context(), log.Discard(), base, "memcached", "")
	assert.Error(t, err)

	server := miniredis.RunT(t)

	p, closer, err = WithStateStore(t.Context(), log.Discard(), base, "redis", "redis://"+server.Addr())
	require.NoError(t, err)

	defer func() { _ = closer() }()

	_, ok := p.StateRepository().(*redis.StateRepository)
	assert.True(t, ok)
	assert.Same(t, base.DefinitionRepository(), p.DefinitionRepository())
}

func TestNewEventBus(t *testing.T) {
	bus, err := NewEventBus("gochannel", log.Discard(), false)
	require.NoError(t, err)
	assert.NoError(t, bus.Close())

	_, err = NewEventBus("nats", log.Discard(), false)
	assert.Error(t, err)
}
