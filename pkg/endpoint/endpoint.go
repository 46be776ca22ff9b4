// Package endpoint calls the external APIs configured for a company.
package endpoint

import (
	"context"
	"errors"
)

var (
	ErrSourceNotFound   = errors.New("endpoint source config not found")
	ErrEndpointNotFound = errors.New("endpoint not found")
)

// Params is the parameter bag of a call. Chat handlers always fill Query.
type Params struct {
	Query map[string]any `json:"query,omitempty"`
	Path  map[string]any `json:"path,omitempty"`
	Body  map[string]any `json:"body,omitempty"`
}

// ExecContext identifies who the call is made for; it is logged and sent as headers.
type ExecContext struct {
	CompanyID  string
	ContactKey string
}

// Result is the outcome of a call. Success is false for non-2xx answers; Error then
// carries a diagnostic message that must never be shown to the contact.
type Result struct {
	Success    bool   `json:"success"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	StatusCode int    `json:"status_code"`
}

// Executor performs an outbound call for a configured endpoint.
type Executor interface {
	Execute(ctx context.Context, sourceConfigID, endpointID string, params Params, execCtx ExecContext) (*Result, error)
}
