package token

import (
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-session-auth/internal/models"
)

// Type - вид токена, зашитый в claim "typ".
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// Claims - типизированный набор claims одного из видов токенов.
// Реализуется только *AccessClaims и *RefreshClaims.
type Claims interface {
	Type() Type
}

// AccessClaims - claims короткоживущего access-токена.
type AccessClaims struct {
	ID        string
	Subject   string
	UserID    uuid.UUID
	Roles     []models.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Type реализует Claims.
func (*AccessClaims) Type() Type { return TypeAccess }

// Identity восстанавливает субъекта из claims.
func (c *AccessClaims) Identity() models.Identity {
	return models.Identity{UserID: c.UserID, Username: c.Subject, Roles: c.Roles}
}

// RefreshClaims - claims refresh-токена.
//
// SlidingExpiresAt совпадает с exp самого JWT и никогда не превышает
// AbsoluteExpiresAt, который фиксируется при логине и переносится
// без изменений через все ротации вместе с LoginSessionID.
type RefreshClaims struct {
	ID                string
	Subject           string
	UserID            uuid.UUID
	Roles             []models.Role
	LoginSessionID    int64
	AbsoluteExpiresAt time.Time
	IssuedAt          time.Time
	SlidingExpiresAt  time.Time
}

// Type реализует Claims.
func (*RefreshClaims) Type() Type { return TypeRefresh }

// Identity восстанавливает субъекта из claims.
func (c *RefreshClaims) Identity() models.Identity {
	return models.Identity{UserID: c.UserID, Username: c.Subject, Roles: c.Roles}
}
