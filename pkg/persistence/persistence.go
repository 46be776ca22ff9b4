// Package persistence provides the storage abstraction for workflow state, trigger
// configuration and contact counters.
package persistence

import (
	"context"

	"github.com/dukex/chatflow/pkg/models"
)

// StateRepository stores the single active WorkflowState of each contact.
type StateRepository interface {
	// GetState returns ErrStateNotFound when the contact has no active workflow.
	GetState(ctx context.Context, contactKey string) (*models.WorkflowState, error)
	SaveState(ctx context.Context, state *models.WorkflowState) error
	// DeleteState is a no-op when no state exists.
	DeleteState(ctx context.Context, contactKey string) error
	ListStates(ctx context.Context) ([]*models.WorkflowState, error)
}

// DefinitionRepository is the trigger configuration store.
type DefinitionRepository interface {
	// ActiveWorkflows returns the active definitions of a company in discovery order
	// (creation time, then id).
	ActiveWorkflows(ctx context.Context, companyID string) ([]*models.WorkflowDefinition, error)
	// WorkflowByID returns ErrWorkflowNotFound when missing.
	WorkflowByID(ctx context.Context, companyID, workflowID string) (*models.WorkflowDefinition, error)
	SaveWorkflow(ctx context.Context, def *models.WorkflowDefinition) error
	DeleteWorkflow(ctx context.Context, companyID, workflowID string) error

	// KeywordConfigs returns the active single-call keyword configurations of a company
	// in discovery order.
	KeywordConfigs(ctx context.Context, companyID string) ([]*models.KeywordConfig, error)
	SaveKeywordConfig(ctx context.Context, cfg *models.KeywordConfig) error
}

// ContactRepository reads and updates the contact counters used by first-message triggers.
type ContactRepository interface {
	// GetContact returns ErrContactNotFound for contacts never seen before.
	GetContact(ctx context.Context, contactKey string) (*models.Contact, error)
	SaveContact(ctx context.Context, contact *models.Contact) error
	// RecordInteraction increments the interaction counter, creating the contact if needed.
	RecordInteraction(ctx context.Context, companyID, phone string) (*models.Contact, error)
}

type Persistence interface {
	StateRepository() StateRepository
	DefinitionRepository() DefinitionRepository
	ContactRepository() ContactRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WithStateRepository overrides the state repository of p, e.g. to keep workflow
// state in redis while definitions stay in the database.
func WithStateRepository(p Persistence, states StateRepository) Persistence {
	return &overlay{Persistence: p, states: states}
}

type overlay struct {
	Persistence

	states StateRepository
}

func (o *overlay) StateRepository() StateRepository {
	return o.states
}
