// Package events defines the lifecycle notifications emitted while routing chat messages.
package events

import (
	"time"
)

type EventType string

// Topic is the single topic all chatflow events are published to.
const Topic = "chatflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowStartedEvent   EventType = "workflow.started"
	WorkflowCompletedEvent EventType = "workflow.completed"
	WorkflowAbandonedEvent EventType = "workflow.abandoned"
	WorkflowTimedOutEvent  EventType = "workflow.timed_out"
	KeywordExecutedEvent   EventType = "keyword.executed"
)

// Abandon reasons.
const (
	ReasonCancelled         = "cancelled"
	ReasonAttemptsExhausted = "attempts_exhausted"
	ReasonEndpointFailed    = "endpoint_failed"
	ReasonConfiguration     = "configuration_error"
	ReasonManual            = "manual"
	ReasonTimeout           = "timeout"
	ReasonStorageFailed     = "storage_failed"
)

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	CompanyID  string    `json:"company_id"`
	ContactKey string    `json:"contact_key"`
	WorkflowID string    `json:"workflow_id,omitempty"`
}

type WorkflowStarted struct {
	BaseEvent

	SourceConfigID string `json:"source_config_id,omitempty"`
}

func (WorkflowStarted) GetType() EventType {
	return WorkflowStartedEvent
}

type WorkflowCompleted struct {
	BaseEvent

	CollectedData map[string]any `json:"collected_data,omitempty"`
	Duration      time.Duration  `json:"duration"`
}

func (WorkflowCompleted) GetType() EventType {
	return WorkflowCompletedEvent
}

type WorkflowAbandoned struct {
	BaseEvent

	Reason      string `json:"reason"`
	CurrentStep int    `json:"current_step"`
}

func (WorkflowAbandoned) GetType() EventType {
	return WorkflowAbandonedEvent
}

type WorkflowTimedOut struct {
	BaseEvent

	IdleFor time.Duration `json:"idle_for"`
}

func (WorkflowTimedOut) GetType() EventType {
	return WorkflowTimedOutEvent
}

type KeywordExecuted struct {
	BaseEvent

	KeywordID  string        `json:"keyword_id"`
	EndpointID string        `json:"endpoint_id"`
	Success    bool          `json:"success"`
	Duration   time.Duration `json:"duration"`
}

func (KeywordExecuted) GetType() EventType {
	return KeywordExecutedEvent
}
