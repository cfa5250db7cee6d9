package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/storage"
)

// SaveRefreshToken сохраняет новый refresh-токен в БД.
func (s *Storage) SaveRefreshToken(ctx context.Context, rec *models.RefreshTokenRecord) error {
	const op = "storage.postgres.SaveRefreshToken"

	query := `
        INSERT INTO refresh_tokens(token_hash, username, login_session_id, expires_at)
        VALUES ($1, $2, $3, $4)
    `

	_, err := s.db.Exec(ctx, query,
		rec.TokenHash,
		rec.Username,
		rec.LoginSessionID,
		rec.ExpiresAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RefreshTokenByHash находит refresh-токен по его хэшу.
func (s *Storage) RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshTokenRecord, error) {
	const op = "storage.postgres.RefreshTokenByHash"

	query := `
        SELECT token_hash, username, login_session_id, expires_at
        FROM refresh_tokens
        WHERE token_hash = $1
    `

	var rec models.RefreshTokenRecord
	err := s.db.QueryRow(ctx, query, hash).Scan(
		&rec.TokenHash,
		&rec.Username,
		&rec.LoginSessionID,
		&rec.ExpiresAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &rec, nil
}

// UpdateTokenAndExpiry заменяет хэш и срок записи одним UPDATE.
// Условие WHERE token_hash = $1 и есть compare-and-replace: из двух
// конкурентных ротаций строку обновит только первая, вторая получит 0 строк.
func (s *Storage) UpdateTokenAndExpiry(ctx context.Context, oldHash, newHash string, newExpiry time.Time) error {
	const op = "storage.postgres.UpdateTokenAndExpiry"

	query := `
        UPDATE refresh_tokens
        SET token_hash = $2, expires_at = $3
        WHERE token_hash = $1
    `

	cmdTag, err := s.db.Exec(ctx, query, oldHash, newHash, newExpiry)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// DeleteByHash удаляет запись по хэшу токена.
func (s *Storage) DeleteByHash(ctx context.Context, hash string) error {
	const op = "storage.postgres.DeleteByHash"

	if _, err := s.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, hash); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteAllByUsername удаляет все сессии пользователя.
func (s *Storage) DeleteAllByUsername(ctx context.Context, username string) (int64, error) {
	const op = "storage.postgres.DeleteAllByUsername"

	cmdTag, err := s.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE username = $1`, username)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return cmdTag.RowsAffected(), nil
}

// DeleteAllByUsernameAndSession удаляет записи одной логин-сессии.
func (s *Storage) DeleteAllByUsernameAndSession(ctx context.Context, username string, sessionID int64) (int64, error) {
	const op = "storage.postgres.DeleteAllByUsernameAndSession"

	query := `
        DELETE FROM refresh_tokens
        WHERE username = $1 AND login_session_id = $2
    `

	cmdTag, err := s.db.Exec(ctx, query, username, sessionID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return cmdTag.RowsAffected(), nil
}

// DeleteExpiredBefore удаляет все токены с expires_at < ts.
func (s *Storage) DeleteExpiredBefore(ctx context.Context, ts time.Time) (int64, error) {
	const op = "storage.postgres.DeleteExpiredBefore"

	query := `
        DELETE FROM refresh_tokens
        WHERE expires_at < $1
    `

	cmdTag, err := s.db.Exec(ctx, query, ts)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return cmdTag.RowsAffected(), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
