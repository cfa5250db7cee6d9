package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"time"

	"github.com/pribylovaa/go-session-auth/internal/metrics"
	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/pkg/log"
	"github.com/pribylovaa/go-session-auth/internal/pkg/redact"
	"github.com/pribylovaa/go-session-auth/internal/storage"
	"github.com/pribylovaa/go-session-auth/internal/token"
)

// maxIssueAttempts - сколько раз пересоздаём токен при коллизии хэша.
const maxIssueAttempts = 5

// IssuedRefresh - выпущенный refresh-токен и параметры его сессии.
type IssuedRefresh struct {
	Token             string
	LoginSessionID    int64
	ExpiresAt         time.Time
	AbsoluteExpiresAt time.Time
}

// RefreshManager выпускает, ротирует и отзывает refresh-токены.
//
// Жизненный цикл записи: Active (создана при логине) -> Rotated (та же запись,
// заменены хэш и срок) -> удалена (logout, истечение, очистка).
// Ротация одноразовая: повторное предъявление обменянного токена даёт
// ErrRevoked, в том числе законному владельцу, проигравшему гонку с вором.
type RefreshManager struct {
	codec       *token.Codec
	store       storage.RefreshTokenStorage
	sliding     time.Duration
	maxLifetime time.Duration
	newSession  func() (int64, error)
}

func NewRefreshManager(codec *token.Codec, store storage.RefreshTokenStorage, sliding, maxLifetime time.Duration) *RefreshManager {
	return &RefreshManager{
		codec:       codec,
		store:       store,
		sliding:     sliding,
		maxLifetime: maxLifetime,
		newSession:  randomSessionID,
	}
}

// StartSession открывает новую логин-сессию: случайный положительный id
// и абсолютный предел now + maxLifetime, который не меняется при ротациях.
func (m *RefreshManager) StartSession(ctx context.Context, id models.Identity) (*IssuedRefresh, error) {
	const op = "service.refresh.StartSession"

	sid, err := m.newSession()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	absolute := m.codec.Now().Truncate(time.Second).Add(m.maxLifetime)

	issued, err := m.Issue(ctx, id, sid, absolute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("session_started",
		slog.String("op", op),
		slog.String("username", redact.Username(id.Username)),
		slog.Int64("session_id", sid),
	)

	return issued, nil
}

// Issue выпускает первый токен сессии и сохраняет запись о нём.
func (m *RefreshManager) Issue(ctx context.Context, id models.Identity, sessionID int64, absolute time.Time) (*IssuedRefresh, error) {
	const op = "service.refresh.Issue"

	lg := log.From(ctx)

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		raw, now, sliding, err := m.encode(id, sessionID, absolute)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !now.Before(absolute) {
			return nil, fmt.Errorf("%s: %w", op, ErrSessionExpired)
		}

		err = m.store.SaveRefreshToken(ctx, &models.RefreshTokenRecord{
			Username:       id.Username,
			LoginSessionID: sessionID,
			TokenHash:      HashToken(raw),
			ExpiresAt:      sliding,
		})
		if err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				// Редкая коллизия - пробуем сгенерировать заново.
				continue
			}

			lg.Error("save_refresh_token_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return &IssuedRefresh{
			Token:             raw,
			LoginSessionID:    sessionID,
			ExpiresAt:         sliding,
			AbsoluteExpiresAt: absolute,
		}, nil
	}

	lg.Error("refresh_collision_exceeded", slog.String("op", op))

	return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenCollision)
}

// Parse проверяет подпись и тип refresh-токена без обращения к хранилищу.
// При ErrExpired claims тоже возвращаются.
func (m *RefreshManager) Parse(presented string) (*token.RefreshClaims, error) {
	const op = "service.refresh.Parse"

	claims, err := m.codec.Decode(presented)
	if claims == nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rc, ok := claims.(*token.RefreshClaims)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrWrongTokenType)
	}

	if err != nil {
		return rc, fmt.Errorf("%s: %w", op, err)
	}

	return rc, nil
}

// Rotate обменивает предъявленный токен на новый в той же сессии.
// id - актуальная личность из справочника; её имя должно совпасть с subject.
func (m *RefreshManager) Rotate(ctx context.Context, presented string, id models.Identity) (*IssuedRefresh, error) {
	const op = "service.refresh.Rotate"

	issued, err := m.rotate(ctx, presented, id)
	metrics.RotationsTotal.WithLabelValues(rotationResult(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return issued, nil
}

func (m *RefreshManager) rotate(ctx context.Context, presented string, id models.Identity) (*IssuedRefresh, error) {
	const op = "service.refresh.rotate"

	lg := log.From(ctx).With(slog.String("op", op), slog.String("token", redact.Token(presented)))
	hash := HashToken(presented)

	claims, err := m.Parse(presented)
	if err != nil {
		if claims == nil {
			return nil, err
		}

		// Подпись верна, но истёк exp: запись больше не нужна.
		if delErr := m.store.DeleteByHash(ctx, hash); delErr != nil {
			return nil, delErr
		}

		if !m.codec.Now().Before(claims.AbsoluteExpiresAt) {
			lg.Info("refresh_session_expired", slog.Int64("session_id", claims.LoginSessionID))
			return nil, ErrSessionExpired
		}

		return nil, err
	}

	if claims.Subject != id.Username {
		lg.Warn("refresh_subject_mismatch")
		return nil, ErrInvalidSignatureOrFormat
	}

	rec, err := m.store.RefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("refresh_replay_detected",
				slog.String("username", redact.Username(id.Username)),
				slog.Int64("session_id", claims.LoginSessionID),
			)
			return nil, ErrRevoked
		}

		return nil, err
	}

	now := m.codec.Now()

	if !now.Before(claims.AbsoluteExpiresAt) {
		if err := m.store.DeleteByHash(ctx, hash); err != nil {
			return nil, err
		}

		lg.Info("refresh_session_expired", slog.Int64("session_id", rec.LoginSessionID))
		return nil, ErrSessionExpired
	}

	// Срок перепроверяется по записи: токен мог быть выпущен другим экземпляром.
	if !now.Before(rec.ExpiresAt) {
		if err := m.store.DeleteByHash(ctx, hash); err != nil {
			return nil, err
		}

		return nil, ErrExpired
	}

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		raw, _, sliding, err := m.encode(id, rec.LoginSessionID, claims.AbsoluteExpiresAt)
		if err != nil {
			return nil, err
		}

		err = m.store.UpdateTokenAndExpiry(ctx, hash, HashToken(raw), sliding)
		switch {
		case err == nil:
			lg.Debug("refresh_rotated", slog.Int64("session_id", rec.LoginSessionID))

			return &IssuedRefresh{
				Token:             raw,
				LoginSessionID:    rec.LoginSessionID,
				ExpiresAt:         sliding,
				AbsoluteExpiresAt: claims.AbsoluteExpiresAt,
			}, nil
		case errors.Is(err, storage.ErrAlreadyExists):
			continue
		case errors.Is(err, storage.ErrNotFound):
			// Конкурентная ротация того же токена успела первой.
			lg.Warn("refresh_replay_detected",
				slog.String("username", redact.Username(id.Username)),
				slog.Int64("session_id", rec.LoginSessionID),
			)
			return nil, ErrRevoked
		default:
			return nil, err
		}
	}

	lg.Error("refresh_collision_exceeded")

	return nil, ErrRefreshTokenCollision
}

// Revoke удаляет все сессии пользователя.
func (m *RefreshManager) Revoke(ctx context.Context, username string) (int64, error) {
	const op = "service.refresh.Revoke"

	n, err := m.store.DeleteAllByUsername(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	metrics.RevokedTotal.WithLabelValues("user").Add(float64(n))

	return n, nil
}

// RevokeSession удаляет записи одной логин-сессии, не трогая остальные.
func (m *RefreshManager) RevokeSession(ctx context.Context, username string, sessionID int64) (int64, error) {
	const op = "service.refresh.RevokeSession"

	n, err := m.store.DeleteAllByUsernameAndSession(ctx, username, sessionID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	metrics.RevokedTotal.WithLabelValues("session").Add(float64(n))

	return n, nil
}

// RevokeToken завершает сессию, которой принадлежит предъявленный токен.
// Истёкший, но корректно подписанный токен тоже принимается.
func (m *RefreshManager) RevokeToken(ctx context.Context, presented string) error {
	const op = "service.refresh.RevokeToken"

	claims, err := m.Parse(presented)
	if claims == nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := m.RevokeSession(ctx, claims.Subject, claims.LoginSessionID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Sweep удаляет все записи с expires_at < now.
func (m *RefreshManager) Sweep(ctx context.Context, now time.Time) (int64, error) {
	const op = "service.refresh.Sweep"

	n, err := m.store.DeleteExpiredBefore(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// encode подписывает refresh-токен сессии со скользящим сроком
// min(now + sliding, absolute).
func (m *RefreshManager) encode(id models.Identity, sessionID int64, absolute time.Time) (string, time.Time, time.Time, error) {
	now := m.codec.Now().Truncate(time.Second)

	sliding := now.Add(m.sliding)
	if sliding.After(absolute) {
		sliding = absolute
	}

	raw, err := m.codec.Encode(&token.RefreshClaims{
		Subject:           id.Username,
		UserID:            id.UserID,
		Roles:             id.Roles,
		LoginSessionID:    sessionID,
		AbsoluteExpiresAt: absolute,
	}, now, sliding)
	if err != nil {
		return "", time.Time{}, time.Time{}, err
	}

	return raw, now, sliding, nil
}

// HashToken - sha256(token) в base64url; в хранилище попадает только он.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// randomSessionID возвращает случайное число из [1, MaxInt64].
func randomSessionID() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return 0, err
	}

	return n.Int64() + 1, nil
}

func rotationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRevoked):
		return "revoked"
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrWrongTokenType), errors.Is(err, ErrInvalidSignatureOrFormat):
		return "invalid"
	default:
		return "error"
	}
}
