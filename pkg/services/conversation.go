package services

import (
	"context"

	"github.com/dukex/chatflow/pkg/events"
	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/workflowstate"
)

// Conversations exposes a contact's workflow state for support tooling.
type Conversations struct {
	store *workflowstate.Store
}

func NewConversations(store *workflowstate.Store) *Conversations {
	return &Conversations{store: store}
}

// BacktrackRequest moves a contact back to ToStep, forgetting ClearVariables.
type BacktrackRequest struct {
	ToStep         int
	ClearVariables []string
}

// Current returns the active state of a contact or ErrNoActiveWorkflow.
func (c *Conversations) Current(ctx context.Context, companyID, phone string) (*models.WorkflowState, error) {
	key, err := models.ContactKey(companyID, phone)
	if err != nil {
		return nil, err
	}

	state, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if state == nil {
		return nil, ErrNoActiveWorkflow
	}

	return state, nil
}

// Abandon drops the active workflow of a contact. It is a no-op without one.
func (c *Conversations) Abandon(ctx context.Context, companyID, phone string) error {
	key, err := models.ContactKey(companyID, phone)
	if err != nil {
		return err
	}

	return c.store.Abandon(ctx, key, events.ReasonManual)
}

func (c *Conversations) Backtrack(ctx context.Context, companyID, phone string, req BacktrackRequest) (*models.WorkflowState, error) {
	key, err := models.ContactKey(companyID, phone)
	if err != nil {
		return nil, err
	}

	if req.ToStep < 0 {
		return nil, NewValidationError("Backtrack", "INVALID_STEP", "to_step cannot be negative", ErrInvalidStep)
	}

	return c.store.Backtrack(ctx, key, req.ToStep, req.ClearVariables)
}
