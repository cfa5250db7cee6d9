// token кодирует и декодирует подписанные наборы claims (HS256 JWT).
//
// Пакет не хранит состояния, кроме неизменяемого ключа подписи, и безопасен
// для конкурентного использования. Claims на границе кодека переводятся
// из типизированных структур (AccessClaims/RefreshClaims) в JSON-представление
// и обратно; наружу generic-карты не отдаются.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-session-auth/internal/models"
)

// MinSecretLength - минимальная длина секрета подписи в байтах.
const MinSecretLength = 32

var (
	// ErrInvalidSignatureOrFormat - токен повреждён, подписан другим ключом/алгоритмом,
	// выпущен другим издателем или содержит неизвестный тип.
	ErrInvalidSignatureOrFormat = errors.New("invalid token signature or format")
	// ErrExpired - истёк exp, зашитый в токен.
	ErrExpired = errors.New("token expired")
	// ErrWeakSecret - секрет подписи короче MinSecretLength.
	ErrWeakSecret = errors.New("signing secret is too short")
)

// wireClaims - JSON-представление claims обоих видов токенов.
type wireClaims struct {
	Type              Type             `json:"typ"`
	UserID            string           `json:"uid"`
	Roles             []models.Role    `json:"roles"`
	LoginSessionID    int64            `json:"sid,omitempty"`
	AbsoluteExpiresAt *jwt.NumericDate `json:"aexp,omitempty"`
	jwt.RegisteredClaims
}

// Codec подписывает и проверяет токены одним секретом.
type Codec struct {
	key      []byte
	issuer   string
	audience []string
	now      func() time.Time
}

// Option настраивает Codec.
type Option func(*Codec)

// WithClock подменяет источник времени для проверки exp/iat.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec создаёт кодек. Секрет копируется и далее не меняется.
func NewCodec(secret []byte, issuer string, audience []string, opts ...Option) (*Codec, error) {
	const op = "token.codec.NewCodec"

	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%s: %w", op, ErrWeakSecret)
	}

	c := &Codec{
		key:      append([]byte(nil), secret...),
		issuer:   issuer,
		audience: append([]string(nil), audience...),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Now возвращает текущее время часов кодека.
func (c *Codec) Now() time.Time {
	return c.now()
}

// Encode подписывает claims. Время выпуска и истечения задаются явно и
// округляются до секунд (точность NumericDate).
func (c *Codec) Encode(claims Claims, issuedAt, expiresAt time.Time) (string, error) {
	const op = "token.codec.Encode"

	w := wireClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if len(c.audience) > 0 {
		w.Audience = jwt.ClaimStrings(c.audience)
	}

	switch cl := claims.(type) {
	case *AccessClaims:
		w.Type = TypeAccess
		w.ID = cl.ID
		w.Subject = cl.Subject
		w.UserID = cl.UserID.String()
		w.Roles = cl.Roles
	case *RefreshClaims:
		if cl.LoginSessionID <= 0 || cl.AbsoluteExpiresAt.IsZero() {
			return "", fmt.Errorf("%s: refresh claims without session: %w", op, ErrInvalidSignatureOrFormat)
		}
		w.Type = TypeRefresh
		w.ID = cl.ID
		w.Subject = cl.Subject
		w.UserID = cl.UserID.String()
		w.Roles = cl.Roles
		w.LoginSessionID = cl.LoginSessionID
		w.AbsoluteExpiresAt = jwt.NewNumericDate(cl.AbsoluteExpiresAt)
	default:
		return "", fmt.Errorf("%s: unsupported claims %T: %w", op, claims, ErrInvalidSignatureOrFormat)
	}

	if w.Subject == "" {
		return "", fmt.Errorf("%s: empty subject: %w", op, ErrInvalidSignatureOrFormat)
	}
	// jti делает строку токена уникальной даже для одинаковых claims в одну секунду.
	if w.ID == "" {
		w.ID = uuid.NewString()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, w).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// Decode проверяет подпись, издателя, аудиторию и exp, после чего
// возвращает *AccessClaims или *RefreshClaims. При ErrExpired claims
// тоже возвращаются: подпись у такого токена корректна.
func (c *Codec) Decode(raw string) (Claims, error) {
	const op = "token.codec.Decode"

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	if len(c.audience) > 0 {
		opts = append(opts, jwt.WithAudience(c.audience...))
	}

	var w wireClaims
	_, err := jwt.NewParser(opts...).ParseWithClaims(raw, &w, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidSignatureOrFormat
		}

		return c.key, nil
	})
	if err != nil {
		if onlyExpired(err) {
			// подпись проверена до claims: вместе с ErrExpired отдаём
			// claims, чтобы вызывающий мог различить истечение сессии.
			claims, tErr := w.typed(op)
			if tErr != nil {
				return nil, tErr
			}

			return claims, fmt.Errorf("%s: %w", op, ErrExpired)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidSignatureOrFormat)
	}

	return w.typed(op)
}

// onlyExpired - единственная претензия парсера к токену это истёкший exp.
func onlyExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired) &&
		!errors.Is(err, jwt.ErrTokenInvalidIssuer) &&
		!errors.Is(err, jwt.ErrTokenInvalidAudience) &&
		!errors.Is(err, jwt.ErrTokenUsedBeforeIssued)
}

// typed переводит JSON-представление в типизированные claims.
func (w *wireClaims) typed(op string) (Claims, error) {
	if w.Subject == "" || w.IssuedAt == nil || w.ExpiresAt == nil {
		return nil, fmt.Errorf("%s: missing registered claims: %w", op, ErrInvalidSignatureOrFormat)
	}

	uid, err := uuid.Parse(w.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: bad uid: %w", op, ErrInvalidSignatureOrFormat)
	}

	switch w.Type {
	case TypeAccess:
		return &AccessClaims{
			ID:        w.ID,
			Subject:   w.Subject,
			UserID:    uid,
			Roles:     w.Roles,
			IssuedAt:  w.IssuedAt.Time,
			ExpiresAt: w.ExpiresAt.Time,
		}, nil
	case TypeRefresh:
		if w.LoginSessionID <= 0 || w.AbsoluteExpiresAt == nil {
			return nil, fmt.Errorf("%s: refresh without session: %w", op, ErrInvalidSignatureOrFormat)
		}

		return &RefreshClaims{
			ID:                w.ID,
			Subject:           w.Subject,
			UserID:            uid,
			Roles:             w.Roles,
			LoginSessionID:    w.LoginSessionID,
			AbsoluteExpiresAt: w.AbsoluteExpiresAt.Time,
			IssuedAt:          w.IssuedAt.Time,
			SlidingExpiresAt:  w.ExpiresAt.Time,
		}, nil
	default:
		return nil, fmt.Errorf("%s: unknown type %q: %w", op, w.Type, ErrInvalidSignatureOrFormat)
	}
}
