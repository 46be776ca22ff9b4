package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/persistence"
)

// StateRepository keeps one JSON file per contact under <root>/states.
type StateRepository struct {
	dir string
	mu  sync.RWMutex
}

func NewStateRepository(root string) *StateRepository {
	return &StateRepository{dir: filepath.Join(root, "states")}
}

func (r *StateRepository) GetState(_ context.Context, contactKey string) (*models.WorkflowState, error) {
	if err := validateID(contactKey); err != nil {
		return nil, persistence.NewStateError("Get", contactKey, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var state models.WorkflowState

	err := readJSON(r.dir, contactKey, &state)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewStateError("Get", contactKey, persistence.ErrStateNotFound)
		}

		return nil, persistence.NewStateError("Get", contactKey, err)
	}

	if state.CollectedData == nil {
		state.CollectedData = make(map[string]any)
	}

	return &state, nil
}

func (r *StateRepository) SaveState(_ context.Context, state *models.WorkflowState) error {
	if err := validateID(state.ContactKey); err != nil {
		return persistence.NewStateError("Save", state.ContactKey, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := writeJSON(r.dir, state.ContactKey, state); err != nil {
		return persistence.NewStateError("Save", state.ContactKey, err)
	}

	return nil
}

func (r *StateRepository) DeleteState(_ context.Context, contactKey string) error {
	if err := validateID(contactKey); err != nil {
		return persistence.NewStateError("Delete", contactKey, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := removeJSON(r.dir, contactKey); err != nil {
		return persistence.NewStateError("Delete", contactKey, err)
	}

	return nil
}

func (r *StateRepository) ListStates(ctx context.Context) ([]*models.WorkflowState, error) {
	r.mu.RLock()
	ids, err := listIDs(r.dir)
	r.mu.RUnlock()

	if err != nil {
		return nil, err
	}

	states := make([]*models.WorkflowState, 0, len(ids))

	for _, id := range ids {
		state, err := r.GetState(ctx, id)
		if err != nil {
			// Skip files removed or corrupted since listing
			continue
		}

		states = append(states, state)
	}

	return states, nil
}
