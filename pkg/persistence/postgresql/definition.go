package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/persistence"
)

// DefinitionRepository stores workflow definitions and keyword configs as JSONB documents.
type DefinitionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewDefinitionRepository(db *sql.DB, logger *slog.Logger) *DefinitionRepository {
	return &DefinitionRepository{db: db, logger: logger}
}

func (r *DefinitionRepository) ActiveWorkflows(ctx context.Context, companyID string) ([]*models.WorkflowDefinition, error) {
	query := `
		SELECT definition FROM workflow_definitions
		WHERE company_id = $1 AND active = TRUE
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, persistence.NewDefinitionError("ActiveWorkflows", companyID, "", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "Failed to close rows", "error", err)
		}
	}()

	var workflows []*models.WorkflowDefinition

	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, persistence.NewDefinitionError("ActiveWorkflows", companyID, "", err)
		}

		var def models.WorkflowDefinition
		if err := json.Unmarshal(body, &def); err != nil {
			return nil, persistence.NewDefinitionError("ActiveWorkflows", companyID, "", err)
		}

		workflows = append(workflows, &def)
	}

	return workflows, rows.Err()
}

func (r *DefinitionRepository) WorkflowByID(ctx context.Context, companyID, workflowID string) (*models.WorkflowDefinition, error) {
	var body []byte

	err := r.db.QueryRowContext(ctx,
		`SELECT definition FROM workflow_definitions WHERE company_id = $1 AND id = $2`,
		companyID, workflowID,
	).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = persistence.ErrWorkflowNotFound
		}

		return nil, persistence.NewDefinitionError("WorkflowByID", companyID, workflowID, err)
	}

	var def models.WorkflowDefinition
	if err := json.Unmarshal(body, &def); err != nil {
		return nil, persistence.NewDefinitionError("WorkflowByID", companyID, workflowID, err)
	}

	return &def, nil
}

func (r *DefinitionRepository) SaveWorkflow(ctx context.Context, def *models.WorkflowDefinition) error {
	now := time.Now().UTC()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}

	def.UpdatedAt = now

	body, err := json.Marshal(def)
	if err != nil {
		return persistence.NewDefinitionError("SaveWorkflow", def.CompanyID, def.ID, fmt.Errorf("failed to marshal definition: %w", err))
	}

	query := `
		INSERT INTO workflow_definitions (company_id, id, name, active, priority, definition, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (company_id, id) DO UPDATE SET
			name = EXCLUDED.name,
			active = EXCLUDED.active,
			priority = EXCLUDED.priority,
			definition = EXCLUDED.definition,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		def.CompanyID, def.ID, def.Name, def.Active, def.Priority, body, def.CreatedAt, def.UpdatedAt,
	)
	if err != nil {
		return persistence.NewDefinitionError("SaveWorkflow", def.CompanyID, def.ID, err)
	}

	return nil
}

func (r *DefinitionRepository) DeleteWorkflow(ctx context.Context, companyID, workflowID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM workflow_definitions WHERE company_id = $1 AND id = $2`, companyID, workflowID)
	if err != nil {
		return persistence.NewDefinitionError("DeleteWorkflow", companyID, workflowID, err)
	}

	return nil
}

func (r *DefinitionRepository) KeywordConfigs(ctx context.Context, companyID string) ([]*models.KeywordConfig, error) {
	query := `
		SELECT config FROM keyword_configs
		WHERE company_id = $1 AND active = TRUE
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, persistence.NewDefinitionError("KeywordConfigs", companyID, "", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "Failed to close rows", "error", err)
		}
	}()

	var configs []*models.KeywordConfig

	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, persistence.NewDefinitionError("KeywordConfigs", companyID, "", err)
		}

		var cfg models.KeywordConfig
		if err := json.Unmarshal(body, &cfg); err != nil {
			return nil, persistence.NewDefinitionError("KeywordConfigs", companyID, "", err)
		}

		configs = append(configs, &cfg)
	}

	return configs, rows.Err()
}

func (r *DefinitionRepository) SaveKeywordConfig(ctx context.Context, cfg *models.KeywordConfig) error {
	now := time.Now().UTC()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}

	cfg.UpdatedAt = now

	body, err := json.Marshal(cfg)
	if err != nil {
		return persistence.NewDefinitionError("SaveKeywordConfig", cfg.CompanyID, cfg.ID, err)
	}

	query := `
		INSERT INTO keyword_configs (company_id, id, keyword, endpoint_id, active, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (company_id, id) DO UPDATE SET
			keyword = EXCLUDED.keyword,
			endpoint_id = EXCLUDED.endpoint_id,
			active = EXCLUDED.active,
			config = EXCLUDED.config,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		cfg.CompanyID, cfg.ID, cfg.Keyword, cfg.EndpointID, cfg.Active, body, cfg.CreatedAt, cfg.UpdatedAt,
	)
	if err != nil {
		return persistence.NewDefinitionError("SaveKeywordConfig", cfg.CompanyID, cfg.ID, err)
	}

	return nil
}
