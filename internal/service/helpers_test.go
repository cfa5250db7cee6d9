package service

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/storage"
	rstore "github.com/pribylovaa/go-session-auth/internal/storage/redis"
	"github.com/pribylovaa/go-session-auth/internal/token"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// testClock - управляемые часы, общие для кодека и менеджеров.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *testClock {
	return &testClock{t: time.Date(2025, 3, 1, 10, 0, 0, 250_000_000, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestCodec(t *testing.T, clk *testClock) *token.Codec {
	t.Helper()
	c, err := token.NewCodec([]byte(testSecret), "auth-service", []string{"web"}, token.WithClock(clk.Now))
	require.NoError(t, err)
	return c
}

// newRedisStore - реальное хранилище поверх miniredis: CAS-скрипты
// исполняются так же, как на сервере.
func newRedisStore(t *testing.T) storage.RefreshTokenStorage {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rstore.NewWithClient(rdb, "test:")
}

func alice() models.Identity {
	return models.Identity{
		UserID:   uuid.MustParse("9b2d3c1e-5f6a-4b7c-8d9e-0a1b2c3d4e5f"),
		Username: "alice",
		Roles:    []models.Role{models.RoleClient},
	}
}
