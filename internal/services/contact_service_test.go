package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolgate/internal/models"
)

func TestContactService_Submit_StoresAndSends(t *testing.T) {
	repo := &MockContactMessageRepository{}
	email := &MockEmailService{}
	service := NewContactService(repo, email, slog.Default())

	err := service.Submit(context.Background(), "acct1", "jsmith", "Report card", "Please resend it.")

	require.NoError(t, err)
	require.Len(t, repo.Created, 1)
	assert.Equal(t, "acct1", repo.Created[0].AccountID)
	assert.Equal(t, "Report card", repo.Created[0].Subject)
	assert.Equal(t, 1, email.Sent)
}

func TestContactService_Submit_EmailFailureIsNotFatal(t *testing.T) {
	repo := &MockContactMessageRepository{}
	email := &MockEmailService{
		SendContactNotificationFunc: func(ctx context.Context, fromUsername, subject, body string) error {
			return models.ErrInternalServer
		},
	}
	service := NewContactService(repo, email, slog.Default())

	// The message is stored, so delivery problems do not fail the submit
	err := service.Submit(context.Background(), "acct1", "jsmith", "Subject", "Body")

	assert.NoError(t, err)
	assert.Len(t, repo.Created, 1)
}

func TestContactService_Submit_NilEmailServiceAllowed(t *testing.T) {
	repo := &MockContactMessageRepository{}
	service := NewContactService(repo, nil, slog.Default())

	err := service.Submit(context.Background(), "acct1", "jsmith", "Subject", "Body")

	assert.NoError(t, err)
	assert.Len(t, repo.Created, 1)
}

func TestContactService_Submit_StoreFailure(t *testing.T) {
	repo := &MockContactMessageRepository{
		CreateFunc: func(ctx context.Context, message *models.ContactMessage) error {
			return models.ErrInternalServer
		},
	}
	service := NewContactService(repo, &MockEmailService{}, slog.Default())

	err := service.Submit(context.Background(), "acct1", "jsmith", "Subject", "Body")

	assert.Error(t, err)
}
