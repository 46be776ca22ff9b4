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

// ContactRepository keeps contact counters under <root>/contacts.
type ContactRepository struct {
	dir string
	mu  sync.Mutex
}

func NewContactRepository(root string) *ContactRepository {
	return &ContactRepository{dir: filepath.Join(root, "contacts")}
}

func (r *ContactRepository) GetContact(_ context.Context, contactKey string) (*models.Contact, error) {
	if err := validateID(contactKey); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.read(contactKey)
}

func (r *ContactRepository) read(contactKey string) (*models.Contact, error) {
	var contact models.Contact

	err := readJSON(r.dir, contactKey, &contact)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.ErrContactNotFound
		}

		return nil, err
	}

	return &contact, nil
}

func (r *ContactRepository) SaveContact(_ context.Context, contact *models.Contact) error {
	if err := validateID(contact.Key); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return writeJSON(r.dir, contact.Key, contact)
}

func (r *ContactRepository) RecordInteraction(_ context.Context, companyID, phone string) (*models.Contact, error) {
	key, err := models.ContactKey(companyID, phone)
	if err != nil {
		return nil, err
	}

	if err := validateID(key); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	contact, err := r.read(key)
	if err != nil {
		if !errors.Is(err, persistence.ErrContactNotFound) {
			return nil, err
		}

		contact = &models.Contact{Key: key, CompanyID: companyID, Phone: phone}
	}

	contact.InteractionCount++
	contact.HistoryLength++

	if err := writeJSON(r.dir, key, contact); err != nil {
		return nil, err
	}

	return contact, nil
}
