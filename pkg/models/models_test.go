package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDefinition() *WorkflowDefinition {
	return &WorkflowDefinition{
		ID:             "wf-1",
		CompanyID:      "acme",
		SourceConfigID: "src-1",
		Name:           "Search by region",
		Active:         true,
		Trigger:        TriggerSpec{Trigger: KeywordTrigger{Keywords: []string{"buscar"}}},
		Steps: []WorkflowStep{
			{
				Order:        1,
				Kind:         StepKindCollect,
				VariableName: "city",
				Validation:   &ValidationRule{Kind: ValidationOption, Options: []string{"North", "South"}},
			},
			{Order: 2, Kind: StepKindExecute, EndpointID: "search", ParamMapping: map[string]string{"region": "city"}},
		},
	}
}

func TestWorkflowDefinition_Validation_Struct(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	def := validDefinition()
	require.NoError(t, validate.Struct(def))

	def.Name = "ab"
	err := validate.Struct(def)
	require.Error(t, err)

	var validationErrors validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrors))
	assert.Equal(t, "Name", validationErrors[0].Field())
	assert.Equal(t, "min", validationErrors[0].Tag())
}

func TestWorkflowDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WorkflowDefinition)
		wantErr error
	}{
		{name: "valid", mutate: func(*WorkflowDefinition) {}},
		{
			name:    "missing trigger",
			mutate:  func(d *WorkflowDefinition) { d.Trigger = TriggerSpec{} },
			wantErr: ErrMissingTrigger,
		},
		{
			name:    "empty keyword list",
			mutate:  func(d *WorkflowDefinition) { d.Trigger = TriggerSpec{Trigger: KeywordTrigger{}} },
			wantErr: ErrEmptyKeywordTrigger,
		},
		{
			name:    "no steps",
			mutate:  func(d *WorkflowDefinition) { d.Steps = nil },
			wantErr: ErrNoSteps,
		},
		{
			name:    "gap in order",
			mutate:  func(d *WorkflowDefinition) { d.Steps[1].Order = 3 },
			wantErr: ErrStepOrderNotDense,
		},
		{
			name:    "execute without endpoint",
			mutate:  func(d *WorkflowDefinition) { d.Steps[1].EndpointID = "" },
			wantErr: ErrMissingEndpointID,
		},
		{
			name:    "collect without variable",
			mutate:  func(d *WorkflowDefinition) { d.Steps[0].VariableName = "" },
			wantErr: ErrMissingVariableName,
		},
		{
			name: "malformed regex",
			mutate: func(d *WorkflowDefinition) {
				d.Steps[0].Validation = &ValidationRule{Kind: ValidationRegex, Pattern: "(["}
			},
			wantErr: ErrInvalidPattern,
		},
		{
			name: "option rule without options",
			mutate: func(d *WorkflowDefinition) {
				d.Steps[0].Validation = &ValidationRule{Kind: ValidationOption}
			},
			wantErr: ErrMissingOptions,
		},
		{
			name: "first step is execute",
			mutate: func(d *WorkflowDefinition) {
				d.Steps = []WorkflowStep{{Order: 1, Kind: StepKindExecute, EndpointID: "search"}}
			},
			wantErr: ErrFirstStepNotCollect,
		},
		{
			name: "execute not last",
			mutate: func(d *WorkflowDefinition) {
				d.Steps = append(d.Steps, WorkflowStep{Order: 3, Kind: StepKindCollect, VariableName: "x"})
			},
			wantErr: ErrExecuteStepNotLast,
		},
		{
			name: "repeat step out of range",
			mutate: func(d *WorkflowDefinition) {
				d.Repeat = &RepeatConfig{Enabled: true, FromStep: 5}
			},
			wantErr: ErrInvalidRepeatStep,
		},
		{
			name: "next workflow without id",
			mutate: func(d *WorkflowDefinition) {
				d.Next = &NextWorkflows{Workflows: []NextWorkflow{{Option: "North"}}}
			},
			wantErr: ErrInvalidNextWorkflow,
		},
		{
			name: "next workflow chains into itself",
			mutate: func(d *WorkflowDefinition) {
				d.Next = &NextWorkflows{Workflows: []NextWorkflow{{Option: "North", WorkflowID: "wf-1"}}}
			},
			wantErr: ErrInvalidNextWorkflow,
		},
		{
			name: "next workflow",
			mutate: func(d *WorkflowDefinition) {
				d.Next = &NextWorkflows{Workflows: []NextWorkflow{{Option: "North", WorkflowID: "wf-north"}}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDefinition()
			tt.mutate(def)

			err := def.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)

				return
			}

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWorkflowDefinition_SortedStepsAndLookup(t *testing.T) {
	def := validDefinition()
	def.Steps[0], def.Steps[1] = def.Steps[1], def.Steps[0]

	sorted := def.SortedSteps()
	assert.Equal(t, 1, sorted[0].Order)
	assert.Equal(t, 2, sorted[1].Order)
	assert.Equal(t, 2, def.Steps[0].Order, "original order untouched")

	step, ok := def.StepByOrder(2)
	require.True(t, ok)
	assert.Equal(t, StepKindExecute, step.Kind)

	_, ok = def.StepByOrder(3)
	assert.False(t, ok)
}

func TestWorkflowDefinition_ChainVariable(t *testing.T) {
	def := validDefinition()
	assert.Empty(t, def.ChainVariable())

	def.Next = &NextWorkflows{}
	assert.Equal(t, "city", def.ChainVariable())

	def.Next.Variable = "menu"
	assert.Equal(t, "menu", def.ChainVariable())
}

func TestTriggerSpec_JSON(t *testing.T) {
	var def WorkflowDefinition

	err := json.Unmarshal([]byte(`{"name":"abc","trigger":{"type":"keyword","keywords":["turno"]}}`), &def)
	require.NoError(t, err)

	kt, ok := def.Trigger.Trigger.(KeywordTrigger)
	require.True(t, ok)
	assert.Equal(t, []string{"turno"}, kt.Keywords)

	err = json.Unmarshal([]byte(`{"trigger":{"type":"first_message"}}`), &def)
	require.NoError(t, err)
	assert.Equal(t, TriggerTypeFirstMessage, def.Trigger.Trigger.Type())

	data, err := json.Marshal(TriggerSpec{Trigger: FirstMessageTrigger{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"first_message"}`, string(data))

	err = json.Unmarshal([]byte(`{"trigger":{"type":"schedule"}}`), &def)
	assert.Error(t, err)
}

func TestStepKind_UnmarshalRejectsUnknown(t *testing.T) {
	var step WorkflowStep

	err := json.Unmarshal([]byte(`{"order":1,"kind":"loop"}`), &step)
	assert.ErrorIs(t, err, ErrUnknownStepKind)

	require.NoError(t, json.Unmarshal([]byte(`{"order":1,"kind":"collect"}`), &step))
	assert.Equal(t, StepKindCollect, step.Kind)
	assert.Equal(t, DefaultMaxAttempts, step.EffectiveMaxAttempts())
}

func TestValidateDefinitionDocument(t *testing.T) {
	var doc map[string]any

	require.NoError(t, json.Unmarshal([]byte(`{
		"name": "Turnos",
		"trigger": {"type": "keyword", "keywords": ["turno"]},
		"steps": [{"order": 1, "kind": "collect", "variable_name": "dni"}]
	}`), &doc))
	assert.NoError(t, ValidateDefinitionDocument(doc))

	require.NoError(t, json.Unmarshal([]byte(`{
		"name": "Turnos",
		"trigger": {"type": "webhook"},
		"steps": []
	}`), &doc))
	assert.Error(t, ValidateDefinitionDocument(doc))
}

func TestContactKey(t *testing.T) {
	key, err := ContactKey("acme", " 5491100 ")
	require.NoError(t, err)
	assert.Equal(t, "acme:5491100", key)

	_, err = ContactKey("", "1")
	assert.ErrorIs(t, err, ErrInvalidContactKey)
}

func TestWorkflowState_CloneAndExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	state := &WorkflowState{
		ContactKey:     "acme:1",
		CollectedData:  map[string]any{"city": "South"},
		LastActivityAt: now.Add(-31 * time.Minute),
	}

	c := state.Clone()
	c.CollectedData["city"] = "North"
	assert.Equal(t, "South", state.CollectedData["city"])

	assert.True(t, state.Expired(now, 30*time.Minute))
	assert.False(t, state.Expired(now, time.Hour))
}
