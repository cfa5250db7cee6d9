// Package redis - хранилище refresh-токенов поверх Redis.
//
// Раскладка ключей (prefix по умолчанию "auth:rt:"):
//
//	<prefix>t:<hash>      HASH {u: username, s: login session id, e: expires_at (unix ms), uk: ключ индекса}
//	<prefix>u:<username>  SET хэшей токенов пользователя (username в нижнем регистре)
//	<prefix>exp           ZSET хэшей со score = expires_at (unix ms)
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/storage"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "auth:rt:"

// Store - реестр refresh-токенов в одном инстансе Redis.
//
// Имя пользователя в ключе индекса приводится к нижнему регистру: справочник
// пользователей сравнивает имена без учёта регистра (CITEXT), и отзыв сессий
// по "ALICE" должен находить сессии "alice".
type Store struct {
	rdb    *redis.Client
	prefix string
}

// New создаёт клиент Redis из URL (например, redis://:pass@host:6379/0)
// и проверяет соединение.
func New(ctx context.Context, redisURL, prefix string) (*Store, error) {
	const op = "storage.redis.New"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewWithClient(rdb, prefix), nil
}

// NewWithClient оборачивает готовый клиент. Пустой prefix заменяется на "auth:rt:".
func NewWithClient(rdb *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) tokenPrefix() string         { return s.prefix + "t:" }
func (s *Store) userPrefix() string          { return s.prefix + "u:" }
func (s *Store) tokenKey(hash string) string { return s.tokenPrefix() + hash }
func (s *Store) userKey(name string) string  { return s.userPrefix() + strings.ToLower(name) }
func (s *Store) expKey() string              { return s.prefix + "exp" }

// SaveRefreshToken сохраняет новую запись. Занятый хэш - storage.ErrAlreadyExists.
func (s *Store) SaveRefreshToken(ctx context.Context, rec *models.RefreshTokenRecord) error {
	const op = "storage.redis.SaveRefreshToken"

	res, err := saveScript.Run(ctx, s.rdb,
		[]string{s.tokenKey(rec.TokenHash), s.userKey(rec.Username), s.expKey()},
		rec.TokenHash, rec.Username, rec.LoginSessionID, rec.ExpiresAt.UnixMilli(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	return nil
}

// RefreshTokenByHash читает запись по хэшу токена.
func (s *Store) RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshTokenRecord, error) {
	const op = "storage.redis.RefreshTokenByHash"

	m, err := s.rdb.HGetAll(ctx, s.tokenKey(hash)).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(m) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	sid, err := strconv.ParseInt(m["s"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: session id: %w", op, err)
	}

	expMs, err := strconv.ParseInt(m["e"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: expires_at: %w", op, err)
	}

	return &models.RefreshTokenRecord{
		Username:       m["u"],
		LoginSessionID: sid,
		TokenHash:      hash,
		ExpiresAt:      time.UnixMilli(expMs).UTC(),
	}, nil
}

// UpdateTokenAndExpiry атомарно переносит запись oldHash на newHash с новым сроком.
func (s *Store) UpdateTokenAndExpiry(ctx context.Context, oldHash, newHash string, newExpiry time.Time) error {
	const op = "storage.redis.UpdateTokenAndExpiry"

	res, err := rotateScript.Run(ctx, s.rdb,
		[]string{s.tokenKey(oldHash), s.tokenKey(newHash), s.expKey()},
		oldHash, newHash, newExpiry.UnixMilli(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	switch res {
	case 0:
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	case 2:
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	return nil
}

// DeleteByHash удаляет запись; отсутствие записи не ошибка.
func (s *Store) DeleteByHash(ctx context.Context, hash string) error {
	const op = "storage.redis.DeleteByHash"

	if err := deleteScript.Run(ctx, s.rdb,
		[]string{s.tokenKey(hash), s.expKey()},
		hash,
	).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteAllByUsername удаляет все записи пользователя.
func (s *Store) DeleteAllByUsername(ctx context.Context, username string) (int64, error) {
	const op = "storage.redis.DeleteAllByUsername"

	n, err := s.deleteUser(ctx, username, "")
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// DeleteAllByUsernameAndSession удаляет записи одной логин-сессии.
func (s *Store) DeleteAllByUsernameAndSession(ctx context.Context, username string, sessionID int64) (int64, error) {
	const op = "storage.redis.DeleteAllByUsernameAndSession"

	n, err := s.deleteUser(ctx, username, strconv.FormatInt(sessionID, 10))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

func (s *Store) deleteUser(ctx context.Context, username, sid string) (int64, error) {
	return deleteUserScript.Run(ctx, s.rdb,
		[]string{s.userKey(username), s.expKey()},
		s.tokenPrefix(), sid,
	).Int64()
}

// DeleteExpiredBefore удаляет записи с expires_at < ts.
func (s *Store) DeleteExpiredBefore(ctx context.Context, ts time.Time) (int64, error) {
	const op = "storage.redis.DeleteExpiredBefore"

	n, err := sweepScript.Run(ctx, s.rdb,
		[]string{s.expKey()},
		ts.UnixMilli(), s.tokenPrefix(),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// Ping проверяет доступность Redis (readiness).
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close закрывает клиент Redis.
func (s *Store) Close() error {
	if err := s.rdb.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}

	return nil
}

var _ storage.RefreshTokenStorage = (*Store)(nil)
