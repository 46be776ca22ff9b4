package services

import (
	"testing"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/persistence/file"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const surveyDefinition = `{
	"id": "survey",
	"source_config_id": "crm",
	"name": "Survey",
	"active": true,
	"trigger": {"type": "keyword", "keywords": ["encuesta"]},
	"steps": [
		{"order": 1, "kind": "collect", "variable_name": "zone", "question": "¿Zona?",
		 "validation": {"kind": "option", "options": ["North", "South"]}},
		{"order": 2, "kind": "execute", "endpoint_id": "hotels", "param_mapping": {"zone": "zone"}}
	]
}`

func newDefinitions(t *testing.T) (*Definitions, *file.Persistence) {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())

	return NewDefinitions(persistence, validator.New(validator.WithRequiredStructEnabled())), persistence
}

func TestDefinitions_HealthCheck(t *testing.T) {
	service, _ := newDefinitions(t)

	message, ok := service.HealthCheck(t.Context())
	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", message)
}

func TestDefinitions_SaveWorkflow(t *testing.T) {
	service, persistence := newDefinitions(t)

	def, err := service.SaveWorkflow(t.Context(), "acme", []byte(surveyDefinition))
	require.NoError(t, err)

	assert.Equal(t, "acme", def.CompanyID)
	assert.False(t, def.CreatedAt.IsZero())
	assert.Equal(t, models.KeywordTrigger{Keywords: []string{"encuesta"}}, def.Trigger.Trigger)

	stored, err := persistence.DefinitionRepository().WorkflowByID(t.Context(), "acme", "survey")
	require.NoError(t, err)
	assert.Equal(t, "Survey", stored.Name)
	assert.Len(t, stored.Steps, 2)

	fetched, err := service.FetchWorkflow(t.Context(), "acme", "survey")
	require.NoError(t, err)
	assert.Equal(t, "survey", fetched.ID)

	require.NoError(t, service.DeleteWorkflow(t.Context(), "acme", "survey"))

	_, err = service.FetchWorkflow(t.Context(), "acme", "survey")
	assert.True(t, IsNotFoundError(err))
}

func TestDefinitions_SaveWorkflowGeneratesID(t *testing.T) {
	service, _ := newDefinitions(t)

	raw := `{"source_config_id": "crm", "name": "Welcome", "trigger": {"type": "first_message"},
		"steps": [{"order": 1, "kind": "collect", "variable_name": "name"}]}`

	def, err := service.SaveWorkflow(t.Context(), "acme", []byte(raw))
	require.NoError(t, err)
	assert.NotEmpty(t, def.ID)
}

func TestDefinitions_SaveWorkflowRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `steps`},
		{name: "missing steps", raw: `{"name": "Survey", "trigger": {"type": "first_message"}}`},
		{name: "unknown trigger", raw: `{"name": "Survey", "trigger": {"type": "cron"}, "steps": [{"order": 1, "kind": "collect"}]}`},
		{
			name: "missing source config",
			raw: `{"name": "Survey", "trigger": {"type": "first_message"},
				"steps": [{"order": 1, "kind": "collect", "variable_name": "name"}]}`,
		},
		{
			name: "gap in step order",
			raw: `{"source_config_id": "crm", "name": "Survey", "trigger": {"type": "first_message"},
				"steps": [{"order": 1, "kind": "collect", "variable_name": "a"}, {"order": 3, "kind": "collect", "variable_name": "b"}]}`,
		},
		{
			name: "invalid regex",
			raw: `{"source_config_id": "crm", "name": "Survey", "trigger": {"type": "first_message"},
				"steps": [{"order": 1, "kind": "collect", "variable_name": "a", "validation": {"kind": "regex", "pattern": "(["}}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newDefinitions(t)

			_, err := service.SaveWorkflow(t.Context(), "acme", []byte(tt.raw))
			require.Error(t, err)
			assert.True(t, IsValidationError(err), "unexpected error: %v", err)
		})
	}
}

func TestDefinitions_SaveKeyword(t *testing.T) {
	service, persistence := newDefinitions(t)

	cfg, err := service.SaveKeyword(t.Context(), "acme", &models.KeywordConfig{
		SourceConfigID: "store-api",
		Keyword:        " precio ",
		EndpointID:     "products",
		Active:         true,
		Params:         []models.ParamExtraction{{Name: "q", From: models.ParamSourceMessage, Pattern: `precio\s+(.+)`}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.ID)
	assert.Equal(t, "precio", cfg.Keyword)

	configs, err := persistence.DefinitionRepository().KeywordConfigs(t.Context(), "acme")
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, cfg.ID, configs[0].ID)
}

func TestDefinitions_SaveKeywordRejects(t *testing.T) {
	tests := []struct {
		name string
		cfg  *models.KeywordConfig
	}{
		{name: "nil", cfg: nil},
		{name: "missing endpoint", cfg: &models.KeywordConfig{SourceConfigID: "s", Keyword: "precio"}},
		{
			name: "bad param source",
			cfg: &models.KeywordConfig{
				SourceConfigID: "s", Keyword: "precio", EndpointID: "e",
				Params: []models.ParamExtraction{{Name: "q", From: "header"}},
			},
		},
		{
			name: "bad pattern",
			cfg: &models.KeywordConfig{
				SourceConfigID: "s", Keyword: "precio", EndpointID: "e",
				Params: []models.ParamExtraction{{Name: "q", From: models.ParamSourceMessage, Pattern: "(["}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newDefinitions(t)

			_, err := service.SaveKeyword(t.Context(), "acme", tt.cfg)
			require.Error(t, err)
			assert.True(t, IsValidationError(err), "unexpected error: %v", err)
		})
	}
}
