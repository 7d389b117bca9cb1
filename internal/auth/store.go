package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore implements Store on PostgreSQL.
type PgStore struct {
	Pool *pgxpool.Pool
}

func (s *PgStore) CreateUser(ctx context.Context, name, email, passwordHash string, roles []string) (StoredUser, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, roles)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, email, roles, password_hash, created_at, updated_at`,
		name, email, passwordHash, roles)
	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return StoredUser{}, ErrDuplicateEmail
		}
		return StoredUser{}, err
	}
	return user, nil
}

func (s *PgStore) GetUserByEmail(ctx context.Context, email string) (StoredUser, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, name, email, roles, password_hash, created_at, updated_at
		FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (s *PgStore) GetUserByID(ctx context.Context, id uuid.UUID) (StoredUser, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, name, email, roles, password_hash, created_at, updated_at
		FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *PgStore) UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := s.Pool.Exec(ctx,
		"UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1", id, passwordHash)
	return err
}

func (s *PgStore) CreateSession(ctx context.Context, sess Session) (Session, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO sessions (user_id, refresh_hash, user_agent, ip, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, refresh_hash, user_agent, ip, expires_at`,
		sess.UserID, sess.RefreshHash, sess.UserAgent, sess.IP, sess.ExpiresAt)
	return scanSession(row)
}

func (s *PgStore) GetSessionByHash(ctx context.Context, refreshHash string) (Session, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, user_id, refresh_hash, user_agent, ip, expires_at
		FROM sessions WHERE refresh_hash = $1`, refreshHash)
	return scanSession(row)
}

func (s *PgStore) RotateSession(ctx context.Context, id uuid.UUID, refreshHash string, expiresAt time.Time) error {
	tag, err := s.Pool.Exec(ctx,
		"UPDATE sessions SET refresh_hash = $2, expires_at = $3 WHERE id = $1", id, refreshHash, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) DeleteSessionByHash(ctx context.Context, refreshHash string) error {
	_, err := s.Pool.Exec(ctx, "DELETE FROM sessions WHERE refresh_hash = $1", refreshHash)
	return err
}

func (s *PgStore) DeleteSessionsByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.Pool.Exec(ctx, "DELETE FROM sessions WHERE user_id = $1", userID)
	return err
}

func (s *PgStore) CreatePasswordReset(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	_, err := s.Pool.Exec(ctx,
		"INSERT INTO password_resets (user_id, token, expires_at) VALUES ($1, $2, $3)",
		userID, token, expiresAt)
	return err
}

func (s *PgStore) GetPasswordResetByToken(ctx context.Context, token string) (PasswordReset, error) {
	var pr PasswordReset
	err := s.Pool.QueryRow(ctx, `
		SELECT id, user_id, token, expires_at, used_at IS NOT NULL
		FROM password_resets WHERE token = $1`, token).
		Scan(&pr.ID, &pr.UserID, &pr.Token, &pr.ExpiresAt, &pr.Used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PasswordReset{}, ErrNotFound
		}
		return PasswordReset{}, fmt.Errorf("scan password reset: %w", err)
	}
	return pr, nil
}

func (s *PgStore) ConsumePasswordResets(ctx context.Context, userID uuid.UUID) error {
	_, err := s.Pool.Exec(ctx,
		"UPDATE password_resets SET used_at = now() WHERE user_id = $1 AND used_at IS NULL", userID)
	return err
}

func scanUser(row pgx.Row) (StoredUser, error) {
	var u StoredUser
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Roles, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StoredUser{}, ErrNotFound
		}
		return StoredUser{}, err
	}
	return u, nil
}

func scanSession(row pgx.Row) (Session, error) {
	var sess Session
	err := row.Scan(&sess.ID, &sess.UserID, &sess.RefreshHash, &sess.UserAgent, &sess.IP, &sess.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("scan session: %w", err)
	}
	return sess, nil
}
