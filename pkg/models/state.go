package models

import (
	"maps"
	"time"
)

// WorkflowState is the persisted execution state of the single active workflow of a contact.
// CurrentStep is the number of the last completed step; 0 means none yet.
type WorkflowState struct {
	ContactKey             string         `json:"contact_key"`
	CompanyID              string         `json:"company_id"`
	WorkflowID             string         `json:"workflow_id"`
	SourceConfigID         string         `json:"source_config_id"`
	CurrentStep            int            `json:"current_step"`
	CollectedData          map[string]any `json:"collected_data"`
	ExecutedData           map[string]any `json:"executed_data,omitempty"`
	FailedAttempts         int            `json:"failed_attempts"`
	StartedAt              time.Time      `json:"started_at"`
	LastActivityAt         time.Time      `json:"last_activity_at"`
	AwaitingRepeatDecision bool           `json:"awaiting_repeat_decision"`
}

// Clone returns a copy whose maps can be mutated independently.
func (s *WorkflowState) Clone() *WorkflowState {
	if s == nil {
		return nil
	}

	c := *s
	c.CollectedData = maps.Clone(s.CollectedData)
	c.ExecutedData = maps.Clone(s.ExecutedData)

	if c.CollectedData == nil {
		c.CollectedData = make(map[string]any)
	}

	return &c
}

// Expired reports whether the state has been idle for longer than timeout.
func (s *WorkflowState) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActivityAt) > timeout
}
