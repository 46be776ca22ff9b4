package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/persistence"
	"github.com/dukex/chatflow/pkg/persistence/postgresql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"contacts", "workflow_states", "keyword_configs", "workflow_definitions", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	require.NoError(t, db.Close())
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("chatflow_test"),
			postgres.WithUsername("chatflow"),
			postgres.WithPassword("chatflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)
		require.NoError(t, p.Close(ctx))
		cancel()
	})

	return p, ctx, databaseURL
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer db.Close()

	var version int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 2, version)
}

func TestStateRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.StateRepository()
	key := "acme:" + uuid.NewString()

	_, err := repo.GetState(ctx, key)
	require.ErrorIs(t, err, persistence.ErrStateNotFound)

	now := time.Now().UTC().Truncate(time.Millisecond)
	state := &models.WorkflowState{
		ContactKey:     key,
		CompanyID:      "acme",
		WorkflowID:     "wf-1",
		SourceConfigID: "src",
		CurrentStep:    1,
		CollectedData:  map[string]any{"city": "South"},
		ExecutedData:   map[string]any{"regions": []any{"North", "South"}},
		StartedAt:      now,
		LastActivityAt: now,
	}
	require.NoError(t, repo.SaveState(ctx, state))

	state.CurrentStep = 2
	state.AwaitingRepeatDecision = true
	require.NoError(t, repo.SaveState(ctx, state))

	got, err := repo.GetState(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentStep)
	assert.True(t, got.AwaitingRepeatDecision)
	assert.Equal(t, "South", got.CollectedData["city"])
	assert.Len(t, got.ExecutedData["regions"], 2)

	states, err := repo.ListStates(ctx)
	require.NoError(t, err)
	assert.Len(t, states, 1)

	require.NoError(t, repo.DeleteState(ctx, key))

	_, err = repo.GetState(ctx, key)
	assert.True(t, persistence.IsStateNotFound(err))
}

func TestDefinitionRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.DefinitionRepository()

	first := &models.WorkflowDefinition{
		ID: "first", CompanyID: "acme", Name: "first", Active: true,
		Trigger:   models.TriggerSpec{Trigger: models.KeywordTrigger{Keywords: []string{"turno"}}},
		Steps:     []models.WorkflowStep{{Order: 1, Kind: models.StepKindCollect, VariableName: "dni"}},
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	second := &models.WorkflowDefinition{
		ID: "second", CompanyID: "acme", Name: "second", Active: true,
		Trigger: models.TriggerSpec{Trigger: models.FirstMessageTrigger{}},
	}

	require.NoError(t, repo.SaveWorkflow(ctx, second))
	require.NoError(t, repo.SaveWorkflow(ctx, first))

	active, err := repo.ActiveWorkflows(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "first", active[0].ID)
	assert.Equal(t, []string{"turno"}, active[0].Trigger.Trigger.(models.KeywordTrigger).Keywords)

	_, err = repo.WorkflowByID(ctx, "acme", "nope")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	require.NoError(t, repo.DeleteWorkflow(ctx, "acme", "first"))

	active, err = repo.ActiveWorkflows(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, active, 1)

	require.NoError(t, repo.SaveKeywordConfig(ctx, &models.KeywordConfig{
		ID: "k1", CompanyID: "acme", Keyword: "saldo", EndpointID: "balance", Active: true,
	}))

	keywords, err := repo.KeywordConfigs(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, keywords, 1)
	assert.Equal(t, "balance", keywords[0].EndpointID)
}

func TestContactRepository_RecordInteraction(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.ContactRepository()

	_, err := repo.GetContact(ctx, "acme:99")
	require.ErrorIs(t, err, persistence.ErrContactNotFound)

	_, err = repo.RecordInteraction(ctx, "acme", "99")
	require.NoError(t, err)

	contact, err := repo.RecordInteraction(ctx, "acme", "99")
	require.NoError(t, err)
	assert.Equal(t, 2, contact.InteractionCount)
	assert.Equal(t, "acme:99", contact.Key)
}
