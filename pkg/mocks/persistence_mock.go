package mocks

import (
	"context"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockStateRepository is a mock implementation of persistence.StateRepository.
type MockStateRepository struct {
	mock.Mock
}

func (m *MockStateRepository) GetState(ctx context.Context, contactKey string) (*models.WorkflowState, error) {
	args := m.Called(ctx, contactKey)

	state, _ := args.Get(0).(*models.WorkflowState)

	return state, args.Error(1)
}

func (m *MockStateRepository) SaveState(ctx context.Context, state *models.WorkflowState) error {
	args := m.Called(ctx, state)

	return args.Error(0)
}

func (m *MockStateRepository) DeleteState(ctx context.Context, contactKey string) error {
	args := m.Called(ctx, contactKey)

	return args.Error(0)
}

func (m *MockStateRepository) ListStates(ctx context.Context) ([]*models.WorkflowState, error) {
	args := m.Called(ctx)

	states, _ := args.Get(0).([]*models.WorkflowState)

	return states, args.Error(1)
}

// MockDefinitionRepository is a mock implementation of persistence.DefinitionRepository.
type MockDefinitionRepository struct {
	mock.Mock
}

func (m *MockDefinitionRepository) ActiveWorkflows(ctx context.Context, companyID string) ([]*models.WorkflowDefinition, error) {
	args := m.Called(ctx, companyID)

	defs, _ := args.Get(0).([]*models.WorkflowDefinition)

	return defs, args.Error(1)
}

func (m *MockDefinitionRepository) WorkflowByID(ctx context.Context, companyID, workflowID string) (*models.WorkflowDefinition, error) {
	args := m.Called(ctx, companyID, workflowID)

	def, _ := args.Get(0).(*models.WorkflowDefinition)

	return def, args.Error(1)
}

func (m *MockDefinitionRepository) SaveWorkflow(ctx context.Context, def *models.WorkflowDefinition) error {
	args := m.Called(ctx, def)

	return args.Error(0)
}

func (m *MockDefinitionRepository) DeleteWorkflow(ctx context.Context, companyID, workflowID string) error {
	args := m.Called(ctx, companyID, workflowID)

	return args.Error(0)
}

func (m *MockDefinitionRepository) KeywordConfigs(ctx context.Context, companyID string) ([]*models.KeywordConfig, error) {
	args := m.Called(ctx, companyID)

	configs, _ := args.Get(0).([]*models.KeywordConfig)

	return configs, args.Error(1)
}

func (m *MockDefinitionRepository) SaveKeywordConfig(ctx context.Context, cfg *models.KeywordConfig) error {
	args := m.Called(ctx, cfg)

	return args.Error(0)
}

// MockContactRepository is a mock implementation of persistence.ContactRepository.
type MockContactRepository struct {
	mock.Mock
}

func (m *MockContactRepository) GetContact(ctx context.Context, contactKey string) (*models.Contact, error) {
	args := m.Called(ctx, contactKey)

	contact, _ := args.Get(0).(*models.Contact)

	return contact, args.Error(1)
}

func (m *MockContactRepository) SaveContact(ctx context.Context, contact *models.Contact) error {
	args := m.Called(ctx, contact)

	return args.Error(0)
}

func (m *MockContactRepository) RecordInteraction(ctx context.Context, companyID, phone string) (*models.Contact, error) {
	args := m.Called(ctx, companyID, phone)

	contact, _ := args.Get(0).(*models.Contact)

	return contact, args.Error(1)
}
