package web

import (
	"time"

	"github.com/dukex/chatflow/pkg/models"
)

// MessageRequest represents an inbound chat message.
type MessageRequest struct {
	CompanyID    string `json:"company_id"             validate:"required"`
	ContactPhone string `json:"contact_phone"          validate:"required"`
	Text         string `json:"text"`
	CurrentFlow  string `json:"current_flow,omitempty"`
}

func (r MessageRequest) toMessage() models.Message {
	return models.Message{
		Text:              r.Text,
		ContactPhone:      r.ContactPhone,
		CompanyID:         r.CompanyID,
		CurrentLegacyFlow: r.CurrentFlow,
	}
}

// BacktrackRequest represents the request body for moving a contact back in its workflow.
type BacktrackRequest struct {
	ToStep         int      `json:"to_step"                   validate:"min=0"`
	ClearVariables []string `json:"clear_variables,omitempty"`
}

// StateResponse is the public view of a contact's workflow state. Cached endpoint
// payloads are left out.
type StateResponse struct {
	ContactKey             string         `json:"contact_key"`
	WorkflowID             string         `json:"workflow_id"`
	CurrentStep            int            `json:"current_step"`
	CollectedData          map[string]any `json:"collected_data"`
	FailedAttempts         int            `json:"failed_attempts"`
	AwaitingRepeatDecision bool           `json:"awaiting_repeat_decision"`
	StartedAt              time.Time      `json:"started_at"`
	LastActivityAt         time.Time      `json:"last_activity_at"`
}

// TransformStateResponse transforms a WorkflowState into a StateResponse.
func TransformStateResponse(state *models.WorkflowState) StateResponse {
	return StateResponse{
		ContactKey:             state.ContactKey,
		WorkflowID:             state.WorkflowID,
		CurrentStep:            state.CurrentStep,
		CollectedData:          state.CollectedData,
		FailedAttempts:         state.FailedAttempts,
		AwaitingRepeatDecision: state.AwaitingRepeatDecision,
		StartedAt:              state.StartedAt,
		LastActivityAt:         state.LastActivityAt,
	}
}
