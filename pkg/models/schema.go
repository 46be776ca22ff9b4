package models

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// WorkflowDefinitionSchema is the JSON schema a raw workflow definition document must satisfy
// before it is decoded.
var WorkflowDefinitionSchema = map[string]any{
	"type":     "object",
	"required": []any{"name", "trigger", "steps"},
	"properties": map[string]any{
		"id":       map[string]any{"type": "string"},
		"name":     map[string]any{"type": "string", "minLength": 3},
		"active":   map[string]any{"type": "boolean"},
		"priority": map[string]any{"type": "integer"},
		"trigger": map[string]any{
			"type":     "object",
			"required": []any{"type"},
			"properties": map[string]any{
				"type":     map[string]any{"enum": []any{string(TriggerTypeKeyword), string(TriggerTypeFirstMessage)}},
				"keywords": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
		},
		"next": map[string]any{
			"type":     "object",
			"required": []any{"workflows"},
			"properties": map[string]any{
				"variable": map[string]any{"type": "string"},
				"workflows": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type":     "object",
						"required": []any{"option", "workflow_id"},
						"properties": map[string]any{
							"option":      map[string]any{"type": "string", "minLength": 1},
							"workflow_id": map[string]any{"type": "string", "minLength": 1},
						},
					},
				},
			},
		},
		"steps": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "object",
				"required": []any{"order", "kind"},
				"properties": map[string]any{
					"order":         map[string]any{"type": "integer", "minimum": 1},
					"kind":          map[string]any{"enum": []any{string(StepKindCollect), string(StepKindExecute)}},
					"variable_name": map[string]any{"type": "string"},
					"endpoint_id":   map[string]any{"type": "string"},
					"max_attempts":  map[string]any{"type": "integer", "minimum": 0},
					"param_mapping": map[string]any{
						"type":                 "object",
						"additionalProperties": map[string]any{"type": "string"},
					},
					"validation": map[string]any{
						"type":     "object",
						"required": []any{"kind"},
						"properties": map[string]any{
							"kind": map[string]any{"enum": []any{
								string(ValidationText), string(ValidationNumber),
								string(ValidationOption), string(ValidationRegex),
							}},
							"options": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						},
					},
				},
			},
		},
	},
}

// ValidateDefinitionDocument checks a decoded JSON document against WorkflowDefinitionSchema.
func ValidateDefinitionDocument(document any) error {
	schemaLoader := gojsonschema.NewGoLoader(WorkflowDefinitionSchema)
	dataLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			messages = append(messages, resultErr.String())
		}

		return fmt.Errorf("JSON schema validation failed: %s", strings.Join(messages, "; "))
	}

	return nil
}
