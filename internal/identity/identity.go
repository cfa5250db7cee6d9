// identity публикует аутентифицированного субъекта запроса через context.Context.
//
// Значение кладёт middleware аутентификации; прикладной код читает его
// через CurrentUsername/CurrentRoles/CurrentUserID и не знает о cookie и токенах.
package identity

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-session-auth/internal/models"
)

type ctxKey struct{}

// Into кладёт субъекта в контекст.
func Into(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// From достаёт субъекта. ok=false, если запрос анонимный.
func From(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(models.Identity)
	if !ok || id.IsAnonymous() {
		return models.Identity{}, false
	}

	return id, true
}

// CurrentUsername возвращает имя субъекта или "" для анонимного запроса.
func CurrentUsername(ctx context.Context) string {
	id, _ := From(ctx)
	return id.Username
}

// CurrentRoles возвращает копию ролей субъекта.
func CurrentRoles(ctx context.Context) []models.Role {
	id, _ := From(ctx)
	return slices.Clone(id.Roles)
}

// CurrentUserID возвращает uuid.Nil для анонимного запроса.
func CurrentUserID(ctx context.Context) uuid.UUID {
	id, _ := From(ctx)
	return id.UserID
}
