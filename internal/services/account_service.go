package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"schoolgate/internal/models"
	pkgauth "schoolgate/pkg/auth"
	pkglogger "schoolgate/pkg/logger"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
)

// AccountService handles account lifecycle: creation at signup and password
// changes. Accounts are never deleted here.
type AccountService struct {
	repo   AccountRepository
	logger *slog.Logger
	audit  *pkglogger.AuditLogger
}

// NewAccountService creates a new AccountService
func NewAccountService(repo AccountRepository, logger *slog.Logger, audit *pkglogger.AuditLogger) *AccountService {
	return &AccountService{
		repo:   repo,
		logger: logger,
		audit:  audit,
	}
}

// Create registers a new account with a hashed secret and a known role.
func (s *AccountService) Create(ctx context.Context, username, password, displayName string, role models.Role) (*models.Account, error) {
	username = strings.TrimSpace(username)
	displayName = strings.TrimSpace(displayName)

	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return nil, models.ErrBadRequest
	}
	if !role.Valid() {
		return nil, models.ErrUnknownRole
	}
	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	// Uniqueness is also enforced by the store's unique index; this check
	// just produces the friendlier error on the common path.
	_, err := s.repo.GetByUsername(ctx, username)
	if err == nil {
		s.logger.Info("account creation failed: username taken",
			slog.String("username", pkglogger.SanitizedIdentifier(username)))
		return nil, models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check username availability", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	passwordHash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := time.Now()
	account := &models.Account{
		Username:          username,
		PasswordHash:      passwordHash,
		DisplayName:       displayName,
		Role:              role,
		PasswordChangedAt: &now,
	}

	created, err := s.repo.Create(ctx, account)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("account created", slog.String("account_id", created.ID), slog.String("role", string(created.Role)))
	s.audit.LogAccountAction("account_created", created.ID, "", map[string]string{"role": string(created.Role)})

	return created, nil
}

// ChangePassword verifies the current secret before storing a new hash.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, current, newPassword string) error {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		s.logger.Error("failed to load account for password change", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(account.PasswordHash, current); err != nil {
		s.audit.LogPasswordChange(accountID, "", false)
		return models.ErrUnauthorized
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	passwordHash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.UpdatePassword(ctx, accountID, passwordHash, time.Now()); err != nil {
		s.logger.Error("failed to update password", slog.String("account_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.LogPasswordChange(accountID, "", true)
	return nil
}
