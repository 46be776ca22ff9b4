package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/persistence"
)

// DefinitionRepository stores definitions under <root>/companies/<company>/{workflows,keywords}.
type DefinitionRepository struct {
	root string
	mu   sync.RWMutex
	now  func() time.Time
}

func NewDefinitionRepository(root string) *DefinitionRepository {
	return &DefinitionRepository{root: root, now: func() time.Time { return time.Now().UTC() }}
}

func (r *DefinitionRepository) companyDir(companyID, kind string) string {
	return filepath.Join(r.root, "companies", companyID, kind)
}

func (r *DefinitionRepository) ActiveWorkflows(ctx context.Context, companyID string) ([]*models.WorkflowDefinition, error) {
	if err := validateID(companyID); err != nil {
		return nil, persistence.NewDefinitionError("ActiveWorkflows", companyID, "", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	dir := r.companyDir(companyID, "workflows")

	ids, err := listIDs(dir)
	if err != nil {
		return nil, persistence.NewDefinitionError("ActiveWorkflows", companyID, "", err)
	}

	workflows := make([]*models.WorkflowDefinition, 0, len(ids))

	for _, id := range ids {
		var def models.WorkflowDefinition
		if err := readJSON(dir, id, &def); err != nil {
			return nil, persistence.NewDefinitionError("ActiveWorkflows", companyID, id, err)
		}

		if def.Active {
			workflows = append(workflows, &def)
		}
	}

	sort.SliceStable(workflows, func(i, j int) bool {
		if !workflows[i].CreatedAt.Equal(workflows[j].CreatedAt) {
			return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
		}

		return workflows[i].ID < workflows[j].ID
	})

	return workflows, nil
}

func (r *DefinitionRepository) WorkflowByID(_ context.Context, companyID, workflowID string) (*models.WorkflowDefinition, error) {
	if err := errors.Join(validateID(companyID), validateID(workflowID)); err != nil {
		return nil, persistence.NewDefinitionError("WorkflowByID", companyID, workflowID, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var def models.WorkflowDefinition

	err := readJSON(r.companyDir(companyID, "workflows"), workflowID, &def)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = persistence.ErrWorkflowNotFound
		}

		return nil, persistence.NewDefinitionError("WorkflowByID", companyID, workflowID, err)
	}

	return &def, nil
}

func (r *DefinitionRepository) SaveWorkflow(_ context.Context, def *models.WorkflowDefinition) error {
	if err := errors.Join(validateID(def.CompanyID), validateID(def.ID)); err != nil {
		return persistence.NewDefinitionError("SaveWorkflow", def.CompanyID, def.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}

	def.UpdatedAt = now

	if err := writeJSON(r.companyDir(def.CompanyID, "workflows"), def.ID, def); err != nil {
		return persistence.NewDefinitionError("SaveWorkflow", def.CompanyID, def.ID, err)
	}

	return nil
}

func (r *DefinitionRepository) DeleteWorkflow(_ context.Context, companyID, workflowID string) error {
	if err := errors.Join(validateID(companyID), validateID(workflowID)); err != nil {
		return persistence.NewDefinitionError("DeleteWorkflow", companyID, workflowID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return removeJSON(r.companyDir(companyID, "workflows"), workflowID)
}

func (r *DefinitionRepository) KeywordConfigs(_ context.Context, companyID string) ([]*models.KeywordConfig, error) {
	if err := validateID(companyID); err != nil {
		return nil, persistence.NewDefinitionError("KeywordConfigs", companyID, "", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	dir := r.companyDir(companyID, "keywords")

	ids, err := listIDs(dir)
	if err != nil {
		return nil, persistence.NewDefinitionError("KeywordConfigs", companyID, "", err)
	}

	configs := make([]*models.KeywordConfig, 0, len(ids))

	for _, id := range ids {
		var cfg models.KeywordConfig
		if err := readJSON(dir, id, &cfg); err != nil {
			return nil, persistence.NewDefinitionError("KeywordConfigs", companyID, id, err)
		}

		if cfg.Active {
			configs = append(configs, &cfg)
		}
	}

	sort.SliceStable(configs, func(i, j int) bool {
		if !configs[i].CreatedAt.Equal(configs[j].CreatedAt) {
			return configs[i].CreatedAt.Before(configs[j].CreatedAt)
		}

		return configs[i].ID < configs[j].ID
	})

	return configs, nil
}

func (r *DefinitionRepository) SaveKeywordConfig(_ context.Context, cfg *models.KeywordConfig) error {
	if err := errors.Join(validateID(cfg.CompanyID), validateID(cfg.ID)); err != nil {
		return persistence.NewDefinitionError("SaveKeywordConfig", cfg.CompanyID, cfg.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}

	cfg.UpdatedAt = now

	if err := writeJSON(r.companyDir(cfg.CompanyID, "keywords"), cfg.ID, cfg); err != nil {
		return persistence.NewDefinitionError("SaveKeywordConfig", cfg.CompanyID, cfg.ID, err)
	}

	return nil
}
