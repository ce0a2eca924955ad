package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"facilitywatch/internal/models"
	"facilitywatch/internal/password"
	"facilitywatch/internal/repository"
	"facilitywatch/internal/sessioncache"
)

var (
	// ErrInvalidCredentials represents login failure.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrSessionExpired is returned for refresh tokens past their lifetime.
	ErrSessionExpired = errors.New("auth: session expired")
	// ErrSessionNotOwned is returned when revoking another user's session.
	ErrSessionNotOwned = errors.New("auth: session does not belong to user")
)

// UserReader is the storage contract the auth service needs for users.
type UserReader interface {
	GetByName(ctx context.Context, name string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// SessionStore is the storage contract for auth sessions.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByRefreshToken(ctx context.Context, token string) (*models.Session, error)
	FindByAccessToken(ctx context.Context, token string) (*models.Session, error)
	FindByID(ctx context.Context, id int64) (*models.Session, error)
	UpdateAccessToken(ctx context.Context, id int64, accessToken string) error
	Touch(ctx context.Context, id int64) error
	Deactivate(ctx context.Context, id int64) error
	DeactivateAllForUser(ctx context.Context, userID int64) error
	ActiveForUser(ctx context.Context, userID int64) ([]models.Session, error)
}

// SessionCache caches active sessions for the middleware fast path.
type SessionCache interface {
	Save(ctx context.Context, accessToken string, entry sessioncache.Entry) error
	Get(ctx context.Context, accessToken string) (*sessioncache.Entry, error)
	Delete(ctx context.Context, accessToken string) error
}

// LoginResult bundles the authenticated user with the issued tokens.
type LoginResult struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
	SessionID    int64
}

// AuthService implements login, token refresh, and session revocation.
type AuthService struct {
	users      UserReader
	sessions   SessionStore
	cache      SessionCache
	hasher     password.Hasher
	tokenizer  *TokenService
	sessionTTL time.Duration
	logger     *zap.Logger
}

// NewAuthService builds AuthService.
func NewAuthService(users UserReader, sessions SessionStore, cache SessionCache,
	hasher password.Hasher, tokenizer *TokenService, sessionTTL time.Duration, logger *zap.Logger) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	return &AuthService{
		users:      users,
		sessions:   sessions,
		cache:      cache,
		hasher:     hasher,
		tokenizer:  tokenizer,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// Login authenticates a user, issues a JWT, and records a session with a
// fresh refresh token.
func (s *AuthService) Login(ctx context.Context, name, pass, ipAddress, userAgent string) (*LoginResult, error) {
	name = strings.TrimSpace(name)
	if name == "" || pass == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, pass); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.tokenizer.GenerateToken(user.ID, user.Name, user.Role)
	if err != nil {
		return nil, err
	}

	refreshToken, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		UserID:       user.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
		IsActive:     true,
		ExpiresAt:    time.Now().UTC().Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.cacheSession(ctx, accessToken, session)
	s.logger.Info("user logged in", zap.Int64("user_id", user.ID), zap.String("name", user.Name))

	return &LoginResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    session.ID,
	}, nil
}

// Refresh validates the refresh token and issues a new access token for the
// session. The refresh token itself is kept.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	session, err := s.sessions.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if time.Now().After(session.ExpiresAt) {
		_ = s.sessions.Deactivate(ctx, session.ID)
		s.evictSession(ctx, session.AccessToken)
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.tokenizer.GenerateToken(user.ID, user.Name, user.Role)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.UpdateAccessToken(ctx, session.ID, accessToken); err != nil {
		return nil, err
	}
	if err := s.sessions.Touch(ctx, session.ID); err != nil {
		return nil, err
	}

	s.evictSession(ctx, session.AccessToken)
	session.AccessToken = accessToken
	s.cacheSession(ctx, accessToken, session)

	return &LoginResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: session.RefreshToken,
		SessionID:    session.ID,
	}, nil
}

// ValidateSession checks that the access token still maps to an active session.
func (s *AuthService) ValidateSession(ctx context.Context, accessToken string) (*sessioncache.Entry, error) {
	if s.cache != nil {
		if entry, err := s.cache.Get(ctx, accessToken); err == nil {
			if time.Now().Before(entry.ExpiresAt) {
				return entry, nil
			}
		} else if !errors.Is(err, sessioncache.ErrCacheMiss) {
			s.logger.Warn("session cache lookup failed", zap.Error(err))
		}
	}

	session, err := s.sessions.FindByAccessToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if time.Now().After(session.ExpiresAt) {
		_ = s.sessions.Deactivate(ctx, session.ID)
		return nil, ErrSessionExpired
	}

	if err := s.sessions.Touch(ctx, session.ID); err != nil {
		s.logger.Warn("failed to touch session", zap.Int64("session_id", session.ID), zap.Error(err))
	}
	s.cacheSession(ctx, accessToken, session)

	return &sessioncache.Entry{
		SessionID: session.ID,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Logout deactivates the session holding the access token. Unknown tokens are
// a no-op.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	session, err := s.sessions.FindByAccessToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil
		}
		return err
	}

	if err := s.sessions.Deactivate(ctx, session.ID); err != nil {
		return err
	}
	s.evictSession(ctx, accessToken)
	return nil
}

// LogoutAll deactivates every active session of the user.
func (s *AuthService) LogoutAll(ctx context.Context, userID int64) error {
	sessions, err := s.sessions.ActiveForUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.sessions.DeactivateAllForUser(ctx, userID); err != nil {
		return err
	}
	for _, session := range sessions {
		s.evictSession(ctx, session.AccessToken)
	}
	return nil
}

// ActiveSessions lists the user's active sessions.
func (s *AuthService) ActiveSessions(ctx context.Context, userID int64) ([]models.Session, error) {
	return s.sessions.ActiveForUser(ctx, userID)
}

// RevokeSession deactivates one session after checking ownership.
func (s *AuthService) RevokeSession(ctx context.Context, sessionID, userID int64) error {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.UserID != userID {
		return ErrSessionNotOwned
	}
	if err := s.sessions.Deactivate(ctx, sessionID); err != nil {
		return err
	}
	s.evictSession(ctx, session.AccessToken)
	return nil
}

func (s *AuthService) cacheSession(ctx context.Context, accessToken string, session *models.Session) {
	if s.cache == nil {
		return
	}
	entry := sessioncache.Entry{
		SessionID: session.ID,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
	}
	if err := s.cache.Save(ctx, accessToken, entry); err != nil {
		s.logger.Warn("failed to cache session", zap.Int64("session_id", session.ID), zap.Error(err))
	}
}

func (s *AuthService) evictSession(ctx context.Context, accessToken string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, accessToken); err != nil {
		s.logger.Warn("failed to evict session", zap.Error(err))
	}
}

func generateRefreshToken() (string, error) {
	buf := make([]byte, 64)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
