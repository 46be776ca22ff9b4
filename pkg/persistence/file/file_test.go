package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence_StripsScheme(t *testing.T) {
	dir := t.TempDir()
	p := NewPersistence("file://" + filepath.Join(dir, "data"))

	require.NoError(t, p.HealthCheck(t.Context()))

	_, err := os.Stat(filepath.Join(dir, "data"))
	assert.NoError(t, err)
	assert.NoError(t, p.Close(t.Context()))
}

func TestStateRepository_CRUD(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.StateRepository()
	ctx := t.Context()

	_, err := repo.GetState(ctx, "acme:1")
	require.ErrorIs(t, err, persistence.ErrStateNotFound)

	state := &models.WorkflowState{
		ContactKey:     "acme:1",
		CompanyID:      "acme",
		WorkflowID:     "wf-1",
		CurrentStep:    1,
		CollectedData:  map[string]any{"city": "South"},
		StartedAt:      time.Now().UTC(),
		LastActivityAt: time.Now().UTC(),
	}
	require.NoError(t, repo.SaveState(ctx, state))

	got, err := repo.GetState(ctx, "acme:1")
	require.NoError(t, err)
	assert.Equal(t, "wf-1", got.WorkflowID)
	assert.Equal(t, "South", got.CollectedData["city"])

	states, err := repo.ListStates(ctx)
	require.NoError(t, err)
	assert.Len(t, states, 1)

	require.NoError(t, repo.DeleteState(ctx, "acme:1"))
	require.NoError(t, repo.DeleteState(ctx, "acme:1"))

	_, err = repo.GetState(ctx, "acme:1")
	assert.True(t, persistence.IsStateNotFound(err))
}

func TestStateRepository_RejectsTraversal(t *testing.T) {
	repo := NewStateRepository(t.TempDir())

	_, err := repo.GetState(t.Context(), "../etc/passwd")
	assert.ErrorIs(t, err, persistence.ErrInvalidID)
}

func TestDefinitionRepository_ActiveWorkflowsInDiscoveryOrder(t *testing.T) {
	repo := NewDefinitionRepository(t.TempDir())
	ctx := t.Context()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"zeta", "alpha", "inactive"} {
		def := &models.WorkflowDefinition{
			ID:        id,
			CompanyID: "acme",
			Name:      id,
			Active:    id != "inactive",
			Trigger:   models.TriggerSpec{Trigger: models.FirstMessageTrigger{}},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.SaveWorkflow(ctx, def))
	}

	active, err := repo.ActiveWorkflows(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "zeta", active[0].ID)
	assert.Equal(t, "alpha", active[1].ID)
	assert.IsType(t, models.FirstMessageTrigger{}, active[0].Trigger.Trigger)

	none, err := repo.ActiveWorkflows(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = repo.WorkflowByID(ctx, "acme", "missing")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	require.NoError(t, repo.DeleteWorkflow(ctx, "acme", "zeta"))

	_, err = repo.WorkflowByID(ctx, "acme", "zeta")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestDefinitionRepository_KeywordConfigs(t *testing.T) {
	repo := NewDefinitionRepository(t.TempDir())
	ctx := t.Context()

	require.NoError(t, repo.SaveKeywordConfig(ctx, &models.KeywordConfig{
		ID: "k1", CompanyID: "acme", Keyword: "saldo", EndpointID: "balance", Active: true,
	}))
	require.NoError(t, repo.SaveKeywordConfig(ctx, &models.KeywordConfig{
		ID: "k2", CompanyID: "acme", Keyword: "old", EndpointID: "legacy",
	}))

	configs, err := repo.KeywordConfigs(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "saldo", configs[0].Keyword)
	assert.False(t, configs[0].CreatedAt.IsZero())
}

func TestContactRepository_RecordInteraction(t *testing.T) {
	repo := NewContactRepository(t.TempDir())
	ctx := t.Context()

	_, err := repo.GetContact(ctx, "acme:1")
	require.ErrorIs(t, err, persistence.ErrContactNotFound)

	contact, err := repo.RecordInteraction(ctx, "acme", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, contact.InteractionCount)

	contact, err = repo.RecordInteraction(ctx, "acme", "1")
	require.NoError(t, err)
	assert.Equal(t, 2, contact.InteractionCount)

	got, err := repo.GetContact(ctx, "acme:1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.HistoryLength)
}
