// Package models defines the core domain models for chat workflow routing.
package models

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"
)

// Validation errors returned by WorkflowDefinition.Validate.
var (
	ErrNoSteps             = errors.New("workflow must have at least one step")
	ErrStepOrderNotDense   = errors.New("step order must be dense and start at 1")
	ErrUnknownStepKind     = errors.New("unknown step kind")
	ErrMissingVariableName = errors.New("collect step requires a variable name")
	ErrMissingEndpointID   = errors.New("execute step requires an endpoint id")
	ErrInvalidPattern      = errors.New("invalid validation pattern")
	ErrMissingOptions      = errors.New("option validation requires options")
	ErrInvalidRepeatStep   = errors.New("repeat step must reference an existing step")
	ErrMissingTrigger      = errors.New("workflow trigger is required")
	ErrEmptyKeywordTrigger = errors.New("keyword trigger requires at least one keyword")
	ErrFirstStepNotCollect = errors.New("first step must be a collect step")
	ErrExecuteStepNotLast  = errors.New("execute step must be the last step")
	ErrInvalidNextWorkflow = errors.New("next workflow entries need an option and a workflow id")
)

// WorkflowDefinition is an externally authored, ordered sequence of steps that collects
// data from a contact and calls configured endpoints. It is immutable at runtime.
type WorkflowDefinition struct {
	ID               string         `json:"id"                          validate:"required"`
	CompanyID        string         `json:"company_id"                  validate:"required"`
	SourceConfigID   string         `json:"source_config_id"            validate:"required"`
	Name             string         `json:"name"                        validate:"required,min=3"`
	Active           bool           `json:"active"`
	Priority         int            `json:"priority"`
	Trigger          TriggerSpec    `json:"trigger"`
	Steps            []WorkflowStep `json:"steps"                       validate:"required,min=1,dive"`
	InitialMessage   string         `json:"initial_message,omitempty"`
	FinalMessage     string         `json:"final_message,omitempty"`
	AbandonMessage   string         `json:"abandon_message,omitempty"`
	AllowAbandon     bool           `json:"allow_abandon"`
	ResponseTemplate string         `json:"response_template,omitempty"`
	Repeat           *RepeatConfig  `json:"repeat,omitempty"`
	Next             *NextWorkflows `json:"next,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// RepeatConfig offers the contact to run part of the workflow again once the
// execute step has produced its answer.
type RepeatConfig struct {
	Enabled        bool     `json:"enabled"`
	FromStep       int      `json:"from_step"`
	ClearVariables []string `json:"clear_variables,omitempty"`
	Question       string   `json:"question,omitempty"`
	RepeatOption   string   `json:"repeat_option,omitempty"`
	FinishOption   string   `json:"finish_option,omitempty"`
}

// NextWorkflows chains another workflow once this one finishes. The entry whose Option
// equals the contact's answer for Variable wins; an empty Variable means the last
// collect step's variable.
type NextWorkflows struct {
	Variable  string         `json:"variable,omitempty"`
	Workflows []NextWorkflow `json:"workflows"`
}

type NextWorkflow struct {
	Option     string `json:"option"`
	WorkflowID string `json:"workflow_id"`
}

// SortedSteps returns a copy of the steps ordered by Order.
func (w *WorkflowDefinition) SortedSteps() []WorkflowStep {
	steps := make([]WorkflowStep, len(w.Steps))
	copy(steps, w.Steps)

	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Order < steps[j].Order
	})

	return steps
}

// StepByOrder returns the step with the given 1-based order.
func (w *WorkflowDefinition) StepByOrder(order int) (*WorkflowStep, bool) {
	for i := range w.Steps {
		if w.Steps[i].Order == order {
			return &w.Steps[i], true
		}
	}

	return nil, false
}

// ChainVariable is the collected variable that selects the next workflow.
func (w *WorkflowDefinition) ChainVariable() string {
	if w.Next == nil {
		return ""
	}

	if w.Next.Variable != "" {
		return w.Next.Variable
	}

	steps := w.SortedSteps()
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i].Kind == StepKindCollect {
			return steps[i].VariableName
		}
	}

	return ""
}

// RepeatEnabled reports whether the run-again offer is configured.
func (w *WorkflowDefinition) RepeatEnabled() bool {
	return w.Repeat != nil && w.Repeat.Enabled
}

// Validate checks the structural rules a definition must satisfy before it is stored.
// Runtime execution stays tolerant of definitions saved before these rules existed.
func (w *WorkflowDefinition) Validate() error {
	if w.Trigger.Trigger == nil {
		return ErrMissingTrigger
	}

	if kt, ok := w.Trigger.Trigger.(KeywordTrigger); ok && len(kt.Keywords) == 0 {
		return ErrEmptyKeywordTrigger
	}

	if len(w.Steps) == 0 {
		return ErrNoSteps
	}

	steps := w.SortedSteps()

	for i, step := range steps {
		if step.Order != i+1 {
			return fmt.Errorf("%w: expected %d, got %d", ErrStepOrderNotDense, i+1, step.Order)
		}

		if err := step.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", step.Order, err)
		}

		if step.Kind == StepKindExecute && i != len(steps)-1 {
			return fmt.Errorf("step %d: %w", step.Order, ErrExecuteStepNotLast)
		}
	}

	if steps[0].Kind != StepKindCollect {
		return ErrFirstStepNotCollect
	}

	if w.RepeatEnabled() && (w.Repeat.FromStep < 1 || w.Repeat.FromStep > len(steps)) {
		return ErrInvalidRepeatStep
	}

	if w.Next != nil {
		for _, next := range w.Next.Workflows {
			if next.Option == "" || next.WorkflowID == "" || next.WorkflowID == w.ID {
				return ErrInvalidNextWorkflow
			}
		}
	}

	return nil
}

// Validate checks a single step.
func (s *WorkflowStep) Validate() error {
	switch s.Kind {
	case StepKindCollect:
		if s.VariableName == "" {
			return ErrMissingVariableName
		}
	case StepKindExecute:
		if s.EndpointID == "" {
			return ErrMissingEndpointID
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStepKind, s.Kind)
	}

	if s.Validation == nil {
		return nil
	}

	switch s.Validation.Kind {
	case ValidationRegex:
		if _, err := regexp.Compile("(?i)" + s.Validation.Pattern); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPattern, err)
		}
	case ValidationOption:
		if len(s.Validation.Options) == 0 {
			return ErrMissingOptions
		}
	case ValidationText, ValidationNumber:
	default:
		return fmt.Errorf("unknown validation kind %q", s.Validation.Kind)
	}

	return nil
}
