package mocks

import (
	"context"

	"github.com/dukex/chatflow/pkg/endpoint"
	"github.com/stretchr/testify/mock"
)

// MockExecutor is a mock implementation of endpoint.Executor.
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(
	ctx context.Context,
	sourceConfigID, endpointID string,
	params endpoint.Params,
	execCtx endpoint.ExecContext,
) (*endpoint.Result, error) {
	args := m.Called(ctx, sourceConfigID, endpointID, params, execCtx)

	result, _ := args.Get(0).(*endpoint.Result)

	return result, args.Error(1)
}
