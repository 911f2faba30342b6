// Package auth provides registration, login and opaque session tokens.
// Sessions live in memory with a TTL; a cleaner goroutine expires stale
// entries. Token mechanics are deliberately simple: the rest of the
// system only needs an authenticated user id.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"expensia/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidInput       = errors.New("invalid input")
)

// Session is an authenticated user attached to an opaque bearer token.
type Session struct {
	Token     string
	UserID    string
	FullName  string
	Email     string
	ExpiresAt time.Time
}

type Service struct {
	repo       *storage.SQLiteRepository
	sessionTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*Session

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewService(repo *storage.SQLiteRepository, sessionTTL time.Duration) *Service {
	return &Service{
		repo:       repo,
		sessionTTL: sessionTTL,
		sessions:   make(map[string]*Session),
		stopCh:     make(chan struct{}),
	}
}

// Start launches the session cleaner.
func (s *Service) Start() {
	go s.sessionCleaner()
}

// Stop terminates the session cleaner.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Register creates a user with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, fullName, email, password string) (*storage.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	if fullName == "" || email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidInput
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &storage.User{FullName: fullName, Email: email, PasswordHash: string(hash)}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies credentials and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	session := &Session{
		Token:     uuid.NewString(),
		UserID:    u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		ExpiresAt: time.Now().Add(s.sessionTTL),
	}

	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()

	slog.InfoContext(ctx, "User logged in", "user_id", u.ID, "email", u.Email)
	return session, nil
}

// Resolve maps a bearer token to its session. Expired or unknown tokens
// return ErrUnauthorized.
func (s *Service) Resolve(token string) (*Session, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return nil, ErrUnauthorized
	}
	if time.Now().After(session.ExpiresAt) {
		delete(s.sessions, token)
		return nil, ErrUnauthorized
	}
	return session, nil
}

// Logout invalidates the token. Unknown tokens are a no-op.
func (s *Service) Logout(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

func (s *Service) sessionCleaner() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.cleanupExpired()
		}
	}
}

func (s *Service) cleanupExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for token, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("Expired sessions removed", "count", removed)
	}
}
