package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Definitions stores workflow definitions and keyword configurations after checking them.
type Definitions struct {
	persistence persistence.Persistence
	validate    *validator.Validate
}

// NewDefinitions creates a new definitions service.
func NewDefinitions(persistence persistence.Persistence, validate *validator.Validate) *Definitions {
	return &Definitions{
		persistence: persistence,
		validate:    validate,
	}
}

// HealthCheck checks the health of the persistence layer.
func (d *Definitions) HealthCheck(ctx context.Context) (string, bool) {
	if d.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := d.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// SaveWorkflow checks a raw JSON definition against the document schema, the struct
// tags and the structural rules, then stores it under companyID. A missing id is
// generated.
func (d *Definitions) SaveWorkflow(ctx context.Context, companyID string, raw []byte) (*models.WorkflowDefinition, error) {
	var document map[string]any
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil, NewValidationError("SaveWorkflow", "INVALID_JSON", "request body is not a JSON object", ErrInvalidRequest)
	}

	if err := models.ValidateDefinitionDocument(document); err != nil {
		return nil, NewValidationError("SaveWorkflow", "SCHEMA_VALIDATION", err.Error(), ErrInvalidDefinition)
	}

	var def models.WorkflowDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, NewValidationError("SaveWorkflow", "INVALID_DEFINITION", err.Error(), ErrInvalidDefinition)
	}

	def.CompanyID = strings.TrimSpace(companyID)
	if def.ID == "" {
		def.ID = uuid.NewString()
	}

	if err := d.validate.Struct(def); err != nil {
		return nil, NewValidationError("SaveWorkflow", "INVALID_DEFINITION", err.Error(), ErrInvalidDefinition)
	}

	if err := def.Validate(); err != nil {
		return nil, NewValidationError("SaveWorkflow", "INVALID_DEFINITION", err.Error(), ErrInvalidDefinition)
	}

	if err := d.persistence.DefinitionRepository().SaveWorkflow(ctx, &def); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return &def, nil
}

// FetchWorkflow returns a stored definition.
func (d *Definitions) FetchWorkflow(ctx context.Context, companyID, workflowID string) (*models.WorkflowDefinition, error) {
	return d.persistence.DefinitionRepository().WorkflowByID(ctx, companyID, workflowID)
}

// DeleteWorkflow removes a definition. Contacts already running it are moved off it by
// the router on their next message.
func (d *Definitions) DeleteWorkflow(ctx context.Context, companyID, workflowID string) error {
	return d.persistence.DefinitionRepository().DeleteWorkflow(ctx, companyID, workflowID)
}

// SaveKeyword stores a keyword configuration. Extraction patterns must compile.
func (d *Definitions) SaveKeyword(ctx context.Context, companyID string, cfg *models.KeywordConfig) (*models.KeywordConfig, error) {
	if cfg == nil {
		return nil, NewValidationError("SaveKeyword", "INVALID_REQUEST", "keyword configuration is required", ErrInvalidRequest)
	}

	cfg.CompanyID = strings.TrimSpace(companyID)
	cfg.Keyword = strings.TrimSpace(cfg.Keyword)

	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	if err := d.validate.Struct(cfg); err != nil {
		return nil, NewValidationError("SaveKeyword", "INVALID_KEYWORD", err.Error(), ErrInvalidKeyword)
	}

	for _, param := range cfg.Params {
		if param.From != models.ParamSourceMessage || param.Pattern == "" {
			continue
		}

		if _, err := regexp.Compile("(?i)" + param.Pattern); err != nil {
			return nil, NewValidationError("SaveKeyword", "INVALID_PATTERN",
				fmt.Sprintf("invalid pattern for parameter '%s': %v", param.Name, err), ErrInvalidKeyword)
		}
	}

	if err := d.persistence.DefinitionRepository().SaveKeywordConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to save keyword: %w", err)
	}

	return cfg, nil
}
