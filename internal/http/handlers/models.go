package handlers

import (
	"time"

	"github.com/pribylovaa/go-session-auth/internal/models"
)

// CredentialsRequest - тело /auth/login и /auth/register.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse - ответ на логин, регистрацию и обновление пары.
// Сами токены уходят только в HttpOnly cookie.
type SessionResponse struct {
	UserID          string    `json:"user_id"`
	Username        string    `json:"username"`
	Roles           []string  `json:"roles"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

// IdentityResponse - ответ /me.
type IdentityResponse struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// RevokedResponse - число закрытых сессий.
type RevokedResponse struct {
	Revoked int64 `json:"revoked"`
}

func sessionFromPair(p *models.TokenPair) SessionResponse {
	return SessionResponse{
		UserID:          p.Identity.UserID.String(),
		Username:        p.Identity.Username,
		Roles:           rolesToStrings(p.Identity.Roles),
		AccessExpiresAt: p.AccessExpiresAt.UTC(),
	}
}

func identityResponse(id models.Identity) IdentityResponse {
	return IdentityResponse{
		UserID:   id.UserID.String(),
		Username: id.Username,
		Roles:    rolesToStrings(id.Roles),
	}
}

func rolesToStrings(roles []models.Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}
