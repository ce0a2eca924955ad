package repository

import (
	"context"
	"database/sql"
	"errors"

	"facilitywatch/internal/models"
)

// ErrSessionNotFound represents missing session rows.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository handles the user_auth sessions table.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns repository instance.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, user_id, access_token, refresh_token, ip_address, user_agent,
	is_active, expires_at, last_used_at, created_at`

func scanSession(row interface{ Scan(...any) error }, s *models.Session) error {
	return row.Scan(&s.ID, &s.UserID, &s.AccessToken, &s.RefreshToken, &s.IPAddress,
		&s.UserAgent, &s.IsActive, &s.ExpiresAt, &s.LastUsedAt, &s.CreatedAt)
}

// Create inserts a new session row.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	const query = `
		INSERT INTO user_auth (user_id, access_token, refresh_token, ip_address, user_agent,
			is_active, expires_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, NOW())
		RETURNING id, created_at, last_used_at
	`
	return r.db.QueryRowContext(ctx, query,
		session.UserID,
		session.AccessToken,
		session.RefreshToken,
		session.IPAddress,
		session.UserAgent,
		session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt, &session.LastUsedAt)
}

// FindByRefreshToken fetches an active session by refresh token.
func (r *SessionRepository) FindByRefreshToken(ctx context.Context, token string) (*models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM user_auth
		WHERE refresh_token = $1 AND is_active = TRUE
		LIMIT 1
	`
	var session models.Session
	if err := scanSession(r.db.QueryRowContext(ctx, query, token), &session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// FindByAccessToken fetches an active session by access token.
func (r *SessionRepository) FindByAccessToken(ctx context.Context, token string) (*models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM user_auth
		WHERE access_token = $1 AND is_active = TRUE
		LIMIT 1
	`
	var session models.Session
	if err := scanSession(r.db.QueryRowContext(ctx, query, token), &session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// FindByID fetches a session by id.
func (r *SessionRepository) FindByID(ctx context.Context, id int64) (*models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM user_auth
		WHERE id = $1
		LIMIT 1
	`
	var session models.Session
	if err := scanSession(r.db.QueryRowContext(ctx, query, id), &session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// UpdateAccessToken swaps the access token stored for the session.
func (r *SessionRepository) UpdateAccessToken(ctx context.Context, id int64, accessToken string) error {
	const query = `
		UPDATE user_auth
		SET access_token = $2, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, accessToken)
	return err
}

// Touch records session usage.
func (r *SessionRepository) Touch(ctx context.Context, id int64) error {
	const query = `
		UPDATE user_auth
		SET last_used_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// Deactivate marks a session revoked.
func (r *SessionRepository) Deactivate(ctx context.Context, id int64) error {
	const query = `
		UPDATE user_auth
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// DeactivateAllForUser revokes every session belonging to the user.
func (r *SessionRepository) DeactivateAllForUser(ctx context.Context, userID int64) error {
	const query = `
		UPDATE user_auth
		SET is_active = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND is_active = TRUE
	`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

// ActiveForUser lists the user's active sessions, newest first.
func (r *SessionRepository) ActiveForUser(ctx context.Context, userID int64) ([]models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM user_auth
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var session models.Session
		if err := scanSession(rows, &session); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
