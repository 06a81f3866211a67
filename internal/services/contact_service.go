package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"schoolgate/internal/models"
)

// ContactMessageRepository persists submitted contact messages
type ContactMessageRepository interface {
	Create(ctx context.Context, message *models.ContactMessage) error
}

// ContactService stores contact-form submissions and forwards them by email.
type ContactService struct {
	repo   ContactMessageRepository
	email  EmailService
	logger *slog.Logger
}

// NewContactService creates a new ContactService
func NewContactService(repo ContactMessageRepository, email EmailService, logger *slog.Logger) *ContactService {
	return &ContactService{
		repo:   repo,
		email:  email,
		logger: logger,
	}
}

// Submit stores the message, then forwards it. Email delivery is best
// effort: the stored row is the source of truth.
func (s *ContactService) Submit(ctx context.Context, accountID, username, subject, body string) error {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)

	if subject == "" || body == "" {
		return models.ErrBadRequest
	}

	message := &models.ContactMessage{
		AccountID: accountID,
		Username:  username,
		Subject:   subject,
		Body:      body,
		CreatedAt: time.Now(),
	}

	if err := s.repo.Create(ctx, message); err != nil {
		s.logger.Error("failed to store contact message", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if s.email != nil {
		if err := s.email.SendContactNotification(ctx, username, subject, body); err != nil {
			s.logger.Error("failed to forward contact message", slog.Any("error", err))
		}
	}

	return nil
}
