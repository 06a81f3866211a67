package session

import (
	"context"
	"sync"
	"time"

	"schoolgate/internal/auth"
)

// MemoryStore keeps sessions in process memory with a TTL janitor. Sessions
// are ephemeral by design; nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	stop     chan struct{}
}

// NewMemoryStore creates a store whose sessions expire after ttl and starts
// the cleanup goroutine.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	store := &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}

	go store.cleanupExpired()

	return store
}

func (m *MemoryStore) Create(ctx context.Context) (*Session, error) {
	token, err := auth.NewToken()
	if err != nil {
		return nil, err
	}
	csrfToken, err := auth.NewToken()
	if err != nil {
		return nil, err
	}
	captcha, err := auth.NewCaptcha()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	s := &Session{
		Token:           token,
		CSRFToken:       csrfToken,
		CaptchaQuestion: captcha.Question,
		CaptchaAnswer:   captcha.Answer,
		CreatedAt:       now,
		ExpiresAt:       now.Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[s.Token] = s
	m.mu.Unlock()

	return s, nil
}

func (m *MemoryStore) Get(ctx context.Context, token string) (*Session, error) {
	m.mu.RLock()
	s, exists := m.sessions[token]
	m.mu.RUnlock()

	if !exists {
		return nil, ErrNotFound
	}

	if time.Now().After(s.ExpiresAt) {
		m.mu.Lock()
		delete(m.sessions, token)
		m.mu.Unlock()
		return nil, ErrNotFound
	}

	// Return a copy so callers mutate freely and commit via Save.
	copied := *s
	return &copied, nil
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.Token]; !exists {
		return ErrNotFound
	}

	copied := *s
	m.sessions[s.Token] = &copied
	return nil
}

func (m *MemoryStore) Regenerate(ctx context.Context, s *Session) error {
	newToken, err := auth.NewToken()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.Token]; !exists {
		return ErrNotFound
	}

	delete(m.sessions, s.Token)
	s.Token = newToken
	copied := *s
	m.sessions[s.Token] = &copied
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
	return nil
}

// Close stops the cleanup goroutine.
func (m *MemoryStore) Close() {
	close(m.stop)
}

// cleanupExpired periodically removes expired sessions
func (m *MemoryStore) cleanupExpired() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			now := time.Now()
			for token, s := range m.sessions {
				if now.After(s.ExpiresAt) {
					delete(m.sessions, token)
				}
			}
			m.mu.Unlock()
		}
	}
}
