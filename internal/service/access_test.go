package service

import (
	"testing"
	"time"

	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/stretchr/testify/require"
)

func TestAccess_ValidUntilExactlyTTL(t *testing.T) {
	t.Parallel()

	clk := newClock()
	m := NewAccessManager(newTestCodec(t, clk), 300*time.Second)

	issuedAt := clk.Now().Truncate(time.Second)
	raw, exp, err := m.Issue(alice())
	require.NoError(t, err)
	require.True(t, exp.Equal(issuedAt.Add(300*time.Second)))

	claims, err := m.Validate(raw)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Subject)
	require.Equal(t, alice().UserID, claims.UserID)
	require.Equal(t, []models.Role{models.RoleClient}, claims.Roles)

	clk.Set(exp.Add(-time.Nanosecond))
	_, err = m.Validate(raw)
	require.NoError(t, err)

	clk.Set(exp)
	_, err = m.Validate(raw)
	require.ErrorIs(t, err, ErrExpired)
}

func TestAccess_RejectsRefreshToken(t *testing.T) {
	t.Parallel()

	clk := newClock()
	codec := newTestCodec(t, clk)
	access := NewAccessManager(codec, time.Minute)
	refresh := NewRefreshManager(codec, newRedisStore(t), time.Hour, 24*time.Hour)

	issued, err := refresh.StartSession(t.Context(), alice())
	require.NoError(t, err)

	_, err = access.Validate(issued.Token)
	require.ErrorIs(t, err, ErrWrongTokenType)
}

func TestAccess_RejectsGarbage(t *testing.T) {
	t.Parallel()

	m := NewAccessManager(newTestCodec(t, newClock()), time.Minute)

	_, err := m.Validate("not-a-token")
	require.ErrorIs(t, err, ErrInvalidSignatureOrFormat)
}
