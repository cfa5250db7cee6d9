package service

import (
	"fmt"
	"time"

	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/token"
)

// AccessManager выпускает и проверяет access-токены. Состояния не хранит.
type AccessManager struct {
	codec *token.Codec
	ttl   time.Duration
}

func NewAccessManager(codec *token.Codec, ttl time.Duration) *AccessManager {
	return &AccessManager{codec: codec, ttl: ttl}
}

// Issue выпускает access-токен со сроком ровно ttl от момента выпуска.
// Момент выпуска округляется до секунды вниз (точность exp/iat в JWT).
func (m *AccessManager) Issue(id models.Identity) (string, time.Time, error) {
	const op = "service.access.Issue"

	now := m.codec.Now().Truncate(time.Second)
	exp := now.Add(m.ttl)

	raw, err := m.codec.Encode(&token.AccessClaims{
		Subject: id.Username,
		UserID:  id.UserID,
		Roles:   id.Roles,
	}, now, exp)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return raw, exp, nil
}

// Validate проверяет подпись, срок и тип токена.
func (m *AccessManager) Validate(raw string) (*token.AccessClaims, error) {
	const op = "service.access.Validate"

	claims, err := m.codec.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ac, ok := claims.(*token.AccessClaims)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrWrongTokenType)
	}

	return ac, nil
}

// TTL возвращает срок жизни access-токена.
func (m *AccessManager) TTL() time.Duration { return m.ttl }
