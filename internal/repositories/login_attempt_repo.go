package repositories

import (
	"context"
	"time"

	"schoolgate/internal/database"
	"schoolgate/internal/models"
)

// LoginAttemptRepository stores the audit trail of guard decisions.
type LoginAttemptRepository struct {
	db *database.DB
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository
func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

// RecordAttempt records a login attempt in the database
func (r *LoginAttemptRepository) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	query := `
		INSERT INTO login_attempts (username, ip_address, user_agent, attempt_time, success, reject_kind, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		attempt.Username,
		attempt.IPAddress,
		attempt.UserAgent,
		attempt.AttemptTime,
		attempt.Success,
		attempt.RejectKind,
		attempt.ExpiresAt,
	)

	return err
}

// CountFailuresSince returns the number of failed attempts for an identifier
// within a time window. Operational queries only; session counters drive the
// lockout itself.
func (r *LoginAttemptRepository) CountFailuresSince(ctx context.Context, username string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_attempts
		WHERE username = $1 AND success = false AND attempt_time >= $2
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, username, since).Scan(&count)
	return count, err
}

// DeleteExpiredAttempts removes login attempts older than their retention
func (r *LoginAttemptRepository) DeleteExpiredAttempts(ctx context.Context) error {
	query := `DELETE FROM login_attempts WHERE expires_at <= CURRENT_TIMESTAMP`
	_, err := r.db.Pool.Exec(ctx, query)
	return err
}
