// storage задаёт контракты хранилищ auth-service: справочник пользователей
// и реестр активных refresh-токенов. Реализации: postgres (основная) и
// redis (альтернативная, только для refresh-токенов).
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pribylovaa/go-session-auth/internal/models"
)

var (
	// ErrNotFound - запись не найдена (пользователь/токен).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists - нарушение уникальности (username/хэш refresh-токена).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage - справочник пользователей.
type UserStorage interface {
	// SaveUser создаёт нового пользователя.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByUsername находит пользователя по имени.
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	// ExistsByUsername сообщает, существует ли пользователь.
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// RefreshTokenStorage - реестр активных refresh-токенов.
//
// Единственная операция, требующая атомарности, - UpdateTokenAndExpiry:
// реализация обязана выполнить её одним compare-and-replace, чтобы из двух
// конкурентных ротаций одного и того же токена успешной была ровно одна.
type RefreshTokenStorage interface {
	// SaveRefreshToken сохраняет новую запись. Коллизия хэша -> ErrAlreadyExists.
	SaveRefreshToken(ctx context.Context, rec *models.RefreshTokenRecord) error
	// RefreshTokenByHash находит запись по хэшу токена.
	RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshTokenRecord, error)
	// UpdateTokenAndExpiry заменяет хэш и срок действия на месте.
	// ErrNotFound - записи со старым хэшем уже нет (токен обменян/отозван);
	// ErrAlreadyExists - новый хэш уже занят.
	UpdateTokenAndExpiry(ctx context.Context, oldHash, newHash string, newExpiry time.Time) error
	// DeleteByHash удаляет запись по хэшу (идемпотентно).
	DeleteByHash(ctx context.Context, hash string) error
	// DeleteAllByUsername удаляет все сессии пользователя.
	DeleteAllByUsername(ctx context.Context, username string) (int64, error)
	// DeleteAllByUsernameAndSession удаляет записи одной логин-сессии.
	DeleteAllByUsernameAndSession(ctx context.Context, username string, sessionID int64) (int64, error)
	// DeleteExpiredBefore удаляет записи с expires_at < ts.
	DeleteExpiredBefore(ctx context.Context, ts time.Time) (int64, error)
}

// Storage задаёт контракт основной БД.
type Storage interface {
	UserStorage
	RefreshTokenStorage
	Close()
}
