package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/persistence"
)

// ContactRepository handles contact counter database operations.
type ContactRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewContactRepository(db *sql.DB, logger *slog.Logger) *ContactRepository {
	return &ContactRepository{db: db, logger: logger}
}

func (r *ContactRepository) GetContact(ctx context.Context, contactKey string) (*models.Contact, error) {
	var contact models.Contact

	err := r.db.QueryRowContext(ctx,
		`SELECT contact_key, company_id, phone, interaction_count, history_length FROM contacts WHERE contact_key = $1`,
		contactKey,
	).Scan(&contact.Key, &contact.CompanyID, &contact.Phone, &contact.InteractionCount, &contact.HistoryLength)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrContactNotFound
		}

		return nil, fmt.Errorf("failed to get contact %s: %w", contactKey, err)
	}

	return &contact, nil
}

func (r *ContactRepository) SaveContact(ctx context.Context, contact *models.Contact) error {
	query := `
		INSERT INTO contacts (contact_key, company_id, phone, interaction_count, history_length)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (contact_key) DO UPDATE SET
			interaction_count = EXCLUDED.interaction_count,
			history_length = EXCLUDED.history_length
	`

	_, err := r.db.ExecContext(ctx, query,
		contact.Key, contact.CompanyID, contact.Phone, contact.InteractionCount, contact.HistoryLength)
	if err != nil {
		return fmt.Errorf("failed to save contact %s: %w", contact.Key, err)
	}

	return nil
}

func (r *ContactRepository) RecordInteraction(ctx context.Context, companyID, phone string) (*models.Contact, error) {
	key, err := models.ContactKey(companyID, phone)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO contacts (contact_key, company_id, phone, interaction_count, history_length)
		VALUES ($1, $2, $3, 1, 1)
		ON CONFLICT (contact_key) DO UPDATE SET
			interaction_count = contacts.interaction_count + 1,
			history_length = contacts.history_length + 1
		RETURNING contact_key, company_id, phone, interaction_count, history_length
	`

	var contact models.Contact

	err = r.db.QueryRowContext(ctx, query, key, companyID, phone).
		Scan(&contact.Key, &contact.CompanyID, &contact.Phone, &contact.InteractionCount, &contact.HistoryLength)
	if err != nil {
		return nil, fmt.Errorf("failed to record interaction for %s: %w", key, err)
	}

	return &contact, nil
}
