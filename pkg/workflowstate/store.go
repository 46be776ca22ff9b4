// Package workflowstate manages the single active workflow state of each contact.
package workflowstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/chatflow/pkg/eventbus"
	"github.com/dukex/chatflow/pkg/events"
	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/persistence"
	"github.com/google/uuid"
)

// ErrNoActiveWorkflow is returned by mutations on a contact without state.
var ErrNoActiveWorkflow = errors.New("no active workflow")

// Store implements start/advance/backtrack/finish/abandon over a StateRepository.
// Writes are last-write-wins; callers serialize messages per contact.
type Store struct {
	repo      persistence.StateRepository
	publisher eventbus.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

type StoreOption func(*Store)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithPublisher emits lifecycle events through publisher.
func WithPublisher(publisher eventbus.EventPublisher) StoreOption {
	return func(s *Store) {
		if publisher != nil {
			s.publisher = publisher
		}
	}
}

func NewStore(logger *slog.Logger, repo persistence.StateRepository, opts ...StoreOption) *Store {
	s := &Store{
		repo:      repo,
		publisher: eventbus.Discard,
		logger:    logger.With("module", "workflow_state"),
		now:       func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start creates the state at step 0, overwriting any workflow already active for the contact.
func (s *Store) Start(ctx context.Context, contactKey, companyID, workflowID, sourceConfigID string) (*models.WorkflowState, error) {
	now := s.now()

	state := &models.WorkflowState{
		ContactKey:     contactKey,
		CompanyID:      companyID,
		WorkflowID:     workflowID,
		SourceConfigID: sourceConfigID,
		CurrentStep:    0,
		CollectedData:  make(map[string]any),
		StartedAt:      now,
		LastActivityAt: now,
	}

	if previous, _ := s.Get(ctx, contactKey); previous != nil {
		s.logger.InfoContext(ctx, "Replacing active workflow",
			"contact_key", contactKey,
			"previous_workflow_id", previous.WorkflowID,
			"workflow_id", workflowID)
	}

	if err := s.repo.SaveState(ctx, state); err != nil {
		return nil, err
	}

	s.publish(ctx, state, events.WorkflowStarted{
		BaseEvent:      s.base(state, events.WorkflowStartedEvent),
		SourceConfigID: sourceConfigID,
	})

	return state, nil
}

// Get returns the contact's state, or nil without error when there is none.
func (s *Store) Get(ctx context.Context, contactKey string) (*models.WorkflowState, error) {
	state, err := s.repo.GetState(ctx, contactKey)
	if err != nil {
		if persistence.IsStateNotFound(err) {
			return nil, nil
		}

		return nil, err
	}

	return state, nil
}

func (s *Store) mustGet(ctx context.Context, contactKey string) (*models.WorkflowState, error) {
	state, err := s.Get(ctx, contactKey)
	if err != nil {
		return nil, err
	}

	if state == nil {
		return nil, fmt.Errorf("%w for contact %s", ErrNoActiveWorkflow, contactKey)
	}

	return state, nil
}

func (s *Store) mutate(ctx context.Context, contactKey string, fn func(*models.WorkflowState)) (*models.WorkflowState, error) {
	state, err := s.mustGet(ctx, contactKey)
	if err != nil {
		return nil, err
	}

	if state.CollectedData == nil {
		state.CollectedData = make(map[string]any)
	}

	fn(state)
	state.LastActivityAt = s.now()

	if err := s.repo.SaveState(ctx, state); err != nil {
		return nil, err
	}

	return state, nil
}

// Advance completes the current step: step+1, newData merged, failed attempts reset.
func (s *Store) Advance(ctx context.Context, contactKey string, newData map[string]any) (*models.WorkflowState, error) {
	return s.mutate(ctx, contactKey, func(state *models.WorkflowState) {
		state.CurrentStep++
		state.FailedAttempts = 0

		for k, v := range newData {
			state.CollectedData[k] = v
		}
	})
}

// Backtrack moves the state back to toStep and clears each named variable and its
// <name>_label companion. Other collected data is kept.
func (s *Store) Backtrack(ctx context.Context, contactKey string, toStep int, clearVariables []string) (*models.WorkflowState, error) {
	if toStep < 0 {
		return nil, fmt.Errorf("invalid backtrack step %d", toStep)
	}

	return s.mutate(ctx, contactKey, func(state *models.WorkflowState) {
		state.CurrentStep = toStep
		state.FailedAttempts = 0
		state.AwaitingRepeatDecision = false

		for _, name := range clearVariables {
			delete(state.CollectedData, name)
			delete(state.CollectedData, LabelKey(name))
		}
	})
}

// RecordFailedAttempt increments and returns the failed attempt counter.
func (s *Store) RecordFailedAttempt(ctx context.Context, contactKey string) (int, error) {
	state, err := s.mutate(ctx, contactKey, func(state *models.WorkflowState) {
		state.FailedAttempts++
	})
	if err != nil {
		return 0, err
	}

	return state.FailedAttempts, nil
}

// UpdateData sets a single collected variable without advancing.
func (s *Store) UpdateData(ctx context.Context, contactKey, name string, value any) error {
	_, err := s.mutate(ctx, contactKey, func(state *models.WorkflowState) {
		state.CollectedData[name] = value
	})

	return err
}

// SaveExecutedData caches an endpoint payload under its endpoint id.
func (s *Store) SaveExecutedData(ctx context.Context, contactKey, endpointID string, data any) error {
	_, err := s.mutate(ctx, contactKey, func(state *models.WorkflowState) {
		if state.ExecutedData == nil {
			state.ExecutedData = make(map[string]any)
		}

		state.ExecutedData[endpointID] = data
	})

	return err
}

// MarkAwaitingRepeat flags the state as waiting for the run-again answer.
func (s *Store) MarkAwaitingRepeat(ctx context.Context, contactKey string) error {
	_, err := s.mutate(ctx, contactKey, func(state *models.WorkflowState) {
		state.AwaitingRepeatDecision = true
	})

	return err
}

// Finish deletes the state and returns the collected data.
func (s *Store) Finish(ctx context.Context, contactKey string) (map[string]any, error) {
	state, err := s.mustGet(ctx, contactKey)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeleteState(ctx, contactKey); err != nil {
		return nil, err
	}

	s.publish(ctx, state, events.WorkflowCompleted{
		BaseEvent:     s.base(state, events.WorkflowCompletedEvent),
		CollectedData: state.CollectedData,
		Duration:      s.now().Sub(state.StartedAt),
	})

	return state.CollectedData, nil
}

// Abandon deletes the state unconditionally.
func (s *Store) Abandon(ctx context.Context, contactKey, reason string) error {
	state, err := s.Get(ctx, contactKey)
	if err != nil {
		s.logger.WarnContext(ctx, "Could not read state before abandoning", "contact_key", contactKey, "error", err)
	}

	if err := s.repo.DeleteState(ctx, contactKey); err != nil {
		return err
	}

	if state != nil {
		s.logger.InfoContext(ctx, "Workflow abandoned",
			"contact_key", contactKey,
			"workflow_id", state.WorkflowID,
			"reason", reason)

		s.publish(ctx, state, events.WorkflowAbandoned{
			BaseEvent:   s.base(state, events.WorkflowAbandonedEvent),
			Reason:      reason,
			CurrentStep: state.CurrentStep,
		})
	}

	return nil
}

// CheckTimeout abandons the state when it has been idle longer than timeout and reports
// whether it did.
func (s *Store) CheckTimeout(ctx context.Context, contactKey string, timeout time.Duration) (bool, error) {
	state, err := s.Get(ctx, contactKey)
	if err != nil || state == nil {
		return false, err
	}

	return s.expire(ctx, state, timeout)
}

// ExpireIdle applies CheckTimeout to every stored state and returns how many expired.
func (s *Store) ExpireIdle(ctx context.Context, timeout time.Duration) (int, error) {
	states, err := s.repo.ListStates(ctx)
	if err != nil {
		return 0, err
	}

	expired := 0

	for _, state := range states {
		ok, err := s.expire(ctx, state, timeout)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to expire state", "contact_key", state.ContactKey, "error", err)

			continue
		}

		if ok {
			expired++
		}
	}

	return expired, nil
}

func (s *Store) expire(ctx context.Context, state *models.WorkflowState, timeout time.Duration) (bool, error) {
	now := s.now()
	if !state.Expired(now, timeout) {
		return false, nil
	}

	if err := s.repo.DeleteState(ctx, state.ContactKey); err != nil {
		return false, err
	}

	s.logger.InfoContext(ctx, "Workflow timed out",
		"contact_key", state.ContactKey,
		"workflow_id", state.WorkflowID,
		"idle_for", now.Sub(state.LastActivityAt))

	s.publish(ctx, state, events.WorkflowTimedOut{
		BaseEvent: s.base(state, events.WorkflowTimedOutEvent),
		IdleFor:   now.Sub(state.LastActivityAt),
	})

	return true, nil
}

func (s *Store) base(state *models.WorkflowState, eventType events.EventType) events.BaseEvent {
	return events.BaseEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Timestamp:  s.now(),
		CompanyID:  state.CompanyID,
		ContactKey: state.ContactKey,
		WorkflowID: state.WorkflowID,
	}
}

// publish never fails the caller; lost events are logged.
func (s *Store) publish(ctx context.Context, state *models.WorkflowState, event eventbus.Event) {
	if err := s.publisher.Publish(ctx, state.ContactKey, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(),
			"contact_key", state.ContactKey,
			"error", err)
	}
}

// LabelKey is the companion variable holding the display label of an option id.
func LabelKey(variable string) string {
	return variable + "_label"
}
