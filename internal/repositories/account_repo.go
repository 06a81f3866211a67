package repositories

import (
	"fmt"
	"time"

	"context"

	"github.com/google/uuid"

	"schoolgate/internal/database"
	"schoolgate/internal/models"
)

type AccountRepository struct {
	db *database.DB
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// rowScanner interface for scanning account rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanAccountRow handles nullable fields and populates an Account model from a database row
func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account
	var role string
	var passwordChangedAt *time.Time

	err := scanner.Scan(
		&account.ID, &account.Username, &account.PasswordHash, &account.DisplayName,
		&role, &passwordChangedAt,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	// Stored role strings are not trusted: an unknown value is carried
	// through as-is so the role router can classify it as a fault.
	account.Role = models.Role(role)
	account.PasswordChangedAt = passwordChangedAt

	return &account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `
		SELECT id, username, password_hash, display_name, role, password_changed_at, created_at, updated_at
		FROM accounts WHERE id = $1
	`

	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `
		SELECT id, username, password_hash, display_name, role, password_changed_at, created_at, updated_at
		FROM accounts WHERE username = $1
	`

	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, username))
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	account.ID = uuid.New().String()

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	query := `
		INSERT INTO accounts (id, username, password_hash, display_name, role, password_changed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, username, password_hash, display_name, role, password_changed_at, created_at, updated_at
	`

	created, err := scanAccountRow(r.db.Pool.QueryRow(ctx, query,
		account.ID, account.Username, account.PasswordHash, account.DisplayName,
		string(account.Role), account.PasswordChangedAt, account.CreatedAt, account.UpdatedAt,
	))
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	query := `
		UPDATE accounts SET password_hash = $1, password_changed_at = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.db.Pool.Exec(ctx, query, passwordHash, changedAt, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	query := `
		SELECT id, username, password_hash, display_name, role, password_changed_at, created_at, updated_at
		FROM accounts ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*models.Account, 0)
	for rows.Next() {
		account, err := scanAccountRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return accounts, nil
}
