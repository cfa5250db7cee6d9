package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/stretchr/testify/require"
)

func TestFrom_Anonymous(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, ok := From(ctx)
	require.False(t, ok)
	require.Empty(t, CurrentUsername(ctx))
	require.Empty(t, CurrentRoles(ctx))
	require.Equal(t, uuid.Nil, CurrentUserID(ctx))

	// пустой username считается анонимом.
	_, ok = From(Into(ctx, models.Identity{UserID: uuid.New()}))
	require.False(t, ok)
}

func TestInto_RoundTrip(t *testing.T) {
	t.Parallel()

	id := models.Identity{
		UserID:   uuid.New(),
		Username: "alice",
		Roles:    []models.Role{models.RoleClient, models.RoleAdmin},
	}
	ctx := Into(context.Background(), id)

	got, ok := From(ctx)
	require.True(t, ok)
	require.Equal(t, id, got)
	require.Equal(t, "alice", CurrentUsername(ctx))
	require.Equal(t, id.UserID, CurrentUserID(ctx))

	roles := CurrentRoles(ctx)
	require.Equal(t, id.Roles, roles)

	// изменение копии не затрагивает опубликованную личность.
	roles[0] = "HACKED"
	require.Equal(t, models.RoleClient, CurrentRoles(ctx)[0])
}
