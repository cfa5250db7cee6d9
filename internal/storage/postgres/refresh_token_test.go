package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/storage"
	"github.com/stretchr/testify/require"
)

func seedToken(t *testing.T, st *Storage, username string, sid int64, hash string, exp time.Time) {
	t.Helper()
	require.NoError(t, st.SaveRefreshToken(context.Background(), &models.RefreshTokenRecord{
		Username:       username,
		LoginSessionID: sid,
		TokenHash:      hash,
		ExpiresAt:      exp,
	}))
}

func TestIntegration_SaveRefreshToken_And_ByHash_OK(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	exp := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	seedToken(t, st, "alice", 42, "h1", exp)

	got, err := st.RefreshTokenByHash(ctx, "h1")
	require.NoError(t, err)
	require.Equal(t, "alice", got.Username)
	require.EqualValues(t, 42, got.LoginSessionID)
	require.True(t, exp.Equal(got.ExpiresAt))

	err = st.SaveRefreshToken(ctx, &models.RefreshTokenRecord{Username: "bob", LoginSessionID: 1, TokenHash: "h1", ExpiresAt: exp})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = st.RefreshTokenByHash(ctx, "absent")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_UpdateTokenAndExpiry(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	seedToken(t, st, "alice", 7, "old", now.Add(time.Hour))
	seedToken(t, st, "alice", 8, "other", now.Add(time.Hour))

	require.NoError(t, st.UpdateTokenAndExpiry(ctx, "old", "new", now.Add(2*time.Hour)))

	_, err := st.RefreshTokenByHash(ctx, "old")
	require.ErrorIs(t, err, storage.ErrNotFound)

	got, err := st.RefreshTokenByHash(ctx, "new")
	require.NoError(t, err)
	require.EqualValues(t, 7, got.LoginSessionID)
	require.True(t, now.Add(2*time.Hour).Equal(got.ExpiresAt))

	// старый хэш уже заменен.
	err = st.UpdateTokenAndExpiry(ctx, "old", "newer", now.Add(3*time.Hour))
	require.ErrorIs(t, err, storage.ErrNotFound)

	// новый хэш совпадает с существующей записью.
	err = st.UpdateTokenAndExpiry(ctx, "new", "other", now.Add(3*time.Hour))
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestIntegration_UpdateTokenAndExpiry_ConcurrentSingleWinner(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	exp := time.Now().UTC().Add(time.Hour)
	seedToken(t, st, "alice", 1, "shared", exp)

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := st.UpdateTokenAndExpiry(ctx, "shared", "next-"+string(rune('a'+i)), exp)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			require.ErrorIs(t, err, storage.ErrNotFound)
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, wins)
}

func TestIntegration_DeleteOperations(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()
	seedToken(t, st, "alice", 1, "a1", now.Add(time.Hour))
	seedToken(t, st, "alice", 2, "a2", now.Add(time.Hour))
	seedToken(t, st, "alice", 2, "a3", now.Add(time.Hour))
	seedToken(t, st, "bob", 1, "b1", now.Add(time.Hour))

	require.NoError(t, st.DeleteByHash(ctx, "a1"))
	// повторное удаление не ошибка.
	require.NoError(t, st.DeleteByHash(ctx, "a1"))

	n, err := st.DeleteAllByUsernameAndSession(ctx, "alice", 2)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	seedToken(t, st, "alice", 3, "a4", now.Add(time.Hour))
	n, err = st.DeleteAllByUsername(ctx, "alice")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = st.RefreshTokenByHash(ctx, "b1")
	require.NoError(t, err)
}

func TestIntegration_DeleteExpiredBefore(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	seedToken(t, st, "alice", 1, "past", now.Add(-time.Minute))
	seedToken(t, st, "alice", 2, "exact", now)
	seedToken(t, st, "alice", 3, "future", now.Add(time.Minute))

	n, err := st.DeleteExpiredBefore(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = st.RefreshTokenByHash(ctx, "exact")
	require.NoError(t, err)
	_, err = st.RefreshTokenByHash(ctx, "future")
	require.NoError(t, err)
}
