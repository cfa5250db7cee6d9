package models

import "time"

// RefreshTokenRecord - запись активного refresh-токена в хранилище.
//
// Одна запись соответствует одной логин-сессии: при ротации у записи
// заменяются TokenHash и ExpiresAt, LoginSessionID остаётся прежним.
type RefreshTokenRecord struct {
	Username       string
	LoginSessionID int64
	// TokenHash - sha256(token) в base64url; сам токен в БД не хранится.
	TokenHash string
	ExpiresAt time.Time
}
