package services

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"schoolgate/internal/models"
)

// MockAccountRepository implements AccountRepository for testing
type MockAccountRepository struct {
	GetByIDFunc        func(ctx context.Context, id string) (*models.Account, error)
	GetByUsernameFunc  func(ctx context.Context, username string) (*models.Account, error)
	CreateFunc         func(ctx context.Context, account *models.Account) (*models.Account, error)
	UpdatePasswordFunc func(ctx context.Context, id, passwordHash string, changedAt time.Time) error
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash, changedAt)
	}
	return nil
}

// MockAttemptRecorder implements AttemptRecorder and collects recorded attempts
type MockAttemptRecorder struct {
	RecordAttemptFunc func(ctx context.Context, attempt *models.LoginAttempt) error
	Recorded          []*models.LoginAttempt
}

func (m *MockAttemptRecorder) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	if m.RecordAttemptFunc != nil {
		return m.RecordAttemptFunc(ctx, attempt)
	}
	m.Recorded = append(m.Recorded, attempt)
	return nil
}

// MockContactMessageRepository implements ContactMessageRepository for testing
type MockContactMessageRepository struct {
	CreateFunc func(ctx context.Context, message *models.ContactMessage) error
	Created    []*models.ContactMessage
}

func (m *MockContactMessageRepository) Create(ctx context.Context, message *models.ContactMessage) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, message)
	}
	m.Created = append(m.Created, message)
	return nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendContactNotificationFunc func(ctx context.Context, fromUsername, subject, body string) error
	Sent                        int
}

func (m *MockEmailService) SendContactNotification(ctx context.Context, fromUsername, subject, body string) error {
	if m.SendContactNotificationFunc != nil {
		return m.SendContactNotificationFunc(ctx, fromUsername, subject, body)
	}
	m.Sent++
	return nil
}

// NewTestAccount creates a test account with the given role
func NewTestAccount(id, username string, role models.Role) *models.Account {
	now := time.Now()
	return &models.Account{
		ID:          id,
		Username:    username,
		DisplayName: "Test Person",
		Role:        role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewTestAccountWithPassword creates a test account whose password hash
// matches the given plaintext. Uses the cheapest bcrypt cost to keep the
// suite fast; verification is cost-agnostic.
func NewTestAccountWithPassword(id, username, password string, role models.Role) *models.Account {
	account := NewTestAccount(id, username, role)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	account.PasswordHash = string(hash)
	return account
}
