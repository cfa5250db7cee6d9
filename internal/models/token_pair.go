package models

import "time"

// TokenPair - пара токенов, выдаваемая при логине/регистрации/ротации.
//
// Описание:
//   - AccessToken - короткоживущий JWT для доступа к API (cookie access-token);
//   - RefreshToken - подписанный JWT, запись о котором хранится в БД
//     (cookie refresh-token); предъявляется для выпуска новой пары;
//   - LoginSessionID - идентификатор логин-сессии, общий для всей цепочки ротаций.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	LoginSessionID   int64
	Identity         Identity
}
