package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/persistence"
)

// StateRepository handles workflow state database operations.
type StateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStateRepository(db *sql.DB, logger *slog.Logger) *StateRepository {
	return &StateRepository{db: db, logger: logger}
}

const stateColumns = `contact_key, company_id, workflow_id, source_config_id, current_step,
	collected_data, executed_data, failed_attempts, awaiting_repeat_decision, started_at, last_activity_at`

func (r *StateRepository) GetState(ctx context.Context, contactKey string) (*models.WorkflowState, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+stateColumns+` FROM workflow_states WHERE contact_key = $1`, contactKey)

	state, err := scanState(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStateError("Get", contactKey, persistence.ErrStateNotFound)
		}

		return nil, persistence.NewStateError("Get", contactKey, err)
	}

	return state, nil
}

func (r *StateRepository) SaveState(ctx context.Context, state *models.WorkflowState) error {
	collectedJSON, err := json.Marshal(state.CollectedData)
	if err != nil {
		return persistence.NewStateError("Save", state.ContactKey, fmt.Errorf("failed to marshal collected data: %w", err))
	}

	executedJSON, err := json.Marshal(state.ExecutedData)
	if err != nil {
		return persistence.NewStateError("Save", state.ContactKey, fmt.Errorf("failed to marshal executed data: %w", err))
	}

	query := `
		INSERT INTO workflow_states (` + stateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (contact_key) DO UPDATE SET
			company_id = EXCLUDED.company_id,
			workflow_id = EXCLUDED.workflow_id,
			source_config_id = EXCLUDED.source_config_id,
			current_step = EXCLUDED.current_step,
			collected_data = EXCLUDED.collected_data,
			executed_data = EXCLUDED.executed_data,
			failed_attempts = EXCLUDED.failed_attempts,
			awaiting_repeat_decision = EXCLUDED.awaiting_repeat_decision,
			started_at = EXCLUDED.started_at,
			last_activity_at = EXCLUDED.last_activity_at
	`

	_, err = r.db.ExecContext(ctx, query,
		state.ContactKey,
		state.CompanyID,
		state.WorkflowID,
		state.SourceConfigID,
		state.CurrentStep,
		collectedJSON,
		executedJSON,
		state.FailedAttempts,
		state.AwaitingRepeatDecision,
		state.StartedAt,
		state.LastActivityAt,
	)
	if err != nil {
		return persistence.NewStateError("Save", state.ContactKey, err)
	}

	return nil
}

func (r *StateRepository) DeleteState(ctx context.Context, contactKey string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM workflow_states WHERE contact_key = $1`, contactKey)
	if err != nil {
		return persistence.NewStateError("Delete", contactKey, err)
	}

	return nil
}

func (r *StateRepository) ListStates(ctx context.Context) ([]*models.WorkflowState, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+stateColumns+` FROM workflow_states ORDER BY last_activity_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow states: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "Failed to close rows", "error", err)
		}
	}()

	var states []*models.WorkflowState

	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow state: %w", err)
		}

		states = append(states, state)
	}

	return states, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanState(row scanner) (*models.WorkflowState, error) {
	var (
		state         models.WorkflowState
		collectedJSON []byte
		executedJSON  []byte
	)

	err := row.Scan(
		&state.ContactKey,
		&state.CompanyID,
		&state.WorkflowID,
		&state.SourceConfigID,
		&state.CurrentStep,
		&collectedJSON,
		&executedJSON,
		&state.FailedAttempts,
		&state.AwaitingRepeatDecision,
		&state.StartedAt,
		&state.LastActivityAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(collectedJSON, &state.CollectedData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal collected data: %w", err)
	}

	if len(executedJSON) > 0 {
		if err := json.Unmarshal(executedJSON, &state.ExecutedData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal executed data: %w", err)
		}
	}

	if state.CollectedData == nil {
		state.CollectedData = make(map[string]any)
	}

	return &state, nil
}
