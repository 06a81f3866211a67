package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"schoolgate/internal/database"
	"schoolgate/internal/models"
)

// ContactMessageRepository stores contact-form submissions.
type ContactMessageRepository struct {
	db *database.DB
}

// NewContactMessageRepository creates a new ContactMessageRepository
func NewContactMessageRepository(db *database.DB) *ContactMessageRepository {
	return &ContactMessageRepository{db: db}
}

// Create stores a contact message
func (r *ContactMessageRepository) Create(ctx context.Context, message *models.ContactMessage) error {
	message.ID = uuid.New().String()

	query := `
		INSERT INTO contact_messages (id, account_id, username, subject, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		message.ID, message.AccountID, message.Username,
		message.Subject, message.Body, message.CreatedAt,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}

	return nil
}

// ListRecent returns the most recent messages, newest first.
func (r *ContactMessageRepository) ListRecent(ctx context.Context, limit int) ([]*models.ContactMessage, error) {
	query := `
		SELECT id, account_id, username, subject, body, created_at
		FROM contact_messages ORDER BY created_at DESC LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query contact messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.ContactMessage, 0)
	for rows.Next() {
		var m models.ContactMessage
		if err := rows.Scan(&m.ID, &m.AccountID, &m.Username, &m.Subject, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact message: %w", err)
		}
		messages = append(messages, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return messages, nil
}
