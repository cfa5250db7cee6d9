package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Role - роль пользователя.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleClient Role = "CLIENT"
)

// User - модель пользователя в справочнике пользователей.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity возвращает публикуемую часть пользователя.
func (u *User) Identity() Identity {
	return Identity{
		UserID:   u.ID,
		Username: u.Username,
		Roles:    slices.Clone(u.Roles),
	}
}

// Identity - аутентифицированный субъект запроса.
type Identity struct {
	UserID   uuid.UUID
	Username string
	Roles    []Role
}

// HasRole сообщает, есть ли у субъекта роль r.
func (i Identity) HasRole(r Role) bool {
	return slices.Contains(i.Roles, r)
}

// IsAnonymous - true, если субъект не аутентифицирован.
func (i Identity) IsAnonymous() bool {
	return i.Username == ""
}
