package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrStateNotFound indicates the contact has no active workflow state.
	ErrStateNotFound = errors.New("workflow state not found")

	// ErrWorkflowNotFound indicates a workflow definition was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrKeywordNotFound indicates a keyword configuration was not found.
	ErrKeywordNotFound = errors.New("keyword config not found")

	// ErrContactNotFound indicates the contact has never been seen.
	ErrContactNotFound = errors.New("contact not found")

	// ErrInvalidID indicates an identifier that cannot be used as a storage key.
	ErrInvalidID = errors.New("invalid identifier")
)

// StateError wraps workflow-state errors with the contact they belong to.
type StateError struct {
	Op         string // Operation being performed (e.g., "Get", "Save", "Delete")
	ContactKey string
	Err        error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s operation failed for state of contact %s: %v", e.Op, e.ContactKey, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

func (e *StateError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewStateError(op, contactKey string, err error) *StateError {
	return &StateError{Op: op, ContactKey: contactKey, Err: err}
}

// DefinitionError wraps workflow and keyword configuration errors.
type DefinitionError struct {
	Op        string
	CompanyID string
	ID        string
	Err       error
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("%s operation failed for %s in company %s: %v", e.Op, e.ID, e.CompanyID, e.Err)
}

func (e *DefinitionError) Unwrap() error {
	return e.Err
}

func (e *DefinitionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewDefinitionError(op, companyID, id string, err error) *DefinitionError {
	return &DefinitionError{Op: op, CompanyID: companyID, ID: id, Err: err}
}

// IsStateNotFound checks if an error indicates a missing workflow state.
func IsStateNotFound(err error) bool {
	return errors.Is(err, ErrStateNotFound)
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsContactNotFound checks if an error indicates a contact was not found.
func IsContactNotFound(err error) bool {
	return errors.Is(err, ErrContactNotFound)
}
