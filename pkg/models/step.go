package models

import (
	"encoding/json"
	"fmt"
)

// DefaultMaxAttempts is used when a collect step does not configure MaxAttempts.
const DefaultMaxAttempts = 3

// StepKind is the closed set of step kinds.
type StepKind string

const (
	StepKindCollect StepKind = "collect" // Ask, validate and optionally list options
	StepKindExecute StepKind = "execute" // Call an endpoint and finish
)

// UnmarshalJSON rejects unknown step kinds at decode time.
func (k *StepKind) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch StepKind(raw) {
	case StepKindCollect, StepKindExecute:
		*k = StepKind(raw)

		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStepKind, raw)
	}
}

// WorkflowStep is one unit of a workflow.
type WorkflowStep struct {
	Order        int                 `json:"order"                   validate:"min=1"`
	Kind         StepKind            `json:"kind"                    validate:"required"`
	Name         string              `json:"name,omitempty"`
	Question     string              `json:"question,omitempty"`
	VariableName string              `json:"variable_name,omitempty"`
	Validation   *ValidationRule     `json:"validation,omitempty"`
	EndpointID   string              `json:"endpoint_id,omitempty"`
	ParamMapping map[string]string   `json:"param_mapping,omitempty"`
	ResponseList *ResponseListConfig `json:"response_list,omitempty"`
	MaxAttempts  int                 `json:"max_attempts,omitempty"`
}

// EffectiveMaxAttempts returns MaxAttempts or the default.
func (s *WorkflowStep) EffectiveMaxAttempts() int {
	if s.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}

	return s.MaxAttempts
}

// ResponseListConfig tells how to turn an endpoint payload into a list of options.
type ResponseListConfig struct {
	IDField      string `json:"id_field,omitempty"`
	DisplayField string `json:"display_field,omitempty"`
	ArrayPath    string `json:"array_path,omitempty"`
}

// ValidationKind is the closed set of input validation kinds.
type ValidationKind string

const (
	ValidationText   ValidationKind = "text"
	ValidationNumber ValidationKind = "number"
	ValidationOption ValidationKind = "option"
	ValidationRegex  ValidationKind = "regex"
)

// ValidationRule describes how a collect step validates the contact's answer.
type ValidationRule struct {
	Kind         ValidationKind `json:"kind"                    validate:"required,oneof=text number option regex"`
	Options      []string       `json:"options,omitempty"`
	Pattern      string         `json:"pattern,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
}
