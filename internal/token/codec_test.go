package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// fixedClock - управляемые часы для детерминированной проверки exp.
type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }

func newCodec(t *testing.T, clk *fixedClock) *Codec {
	t.Helper()
	c, err := NewCodec([]byte(testSecret), "auth-service", []string{"web"}, WithClock(clk.now))
	require.NoError(t, err)
	return c
}

func TestNewCodec_RejectsShortSecret(t *testing.T) {
	t.Parallel()

	_, err := NewCodec([]byte("short"), "auth-service", nil)
	require.ErrorIs(t, err, ErrWeakSecret)
}

func TestEncodeDecode_Access_TypedRoundTrip(t *testing.T) {
	t.Parallel()

	clk := &fixedClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := newCodec(t, clk)

	uid := uuid.New()
	in := &AccessClaims{
		Subject: "alice",
		UserID:  uid,
		Roles:   []models.Role{models.RoleAdmin, models.RoleClient},
	}

	raw, err := c.Encode(in, clk.t, clk.t.Add(5*time.Minute))
	require.NoError(t, err)

	got, err := c.Decode(raw)
	require.NoError(t, err)

	ac, ok := got.(*AccessClaims)
	require.True(t, ok, "ожидаем *AccessClaims, получили %T", got)
	require.Equal(t, "alice", ac.Subject)
	require.Equal(t, uid, ac.UserID)
	require.Equal(t, []models.Role{models.RoleAdmin, models.RoleClient}, ac.Roles)
	require.True(t, ac.IssuedAt.Equal(clk.t))
	require.True(t, ac.ExpiresAt.Equal(clk.t.Add(5*time.Minute)))
	require.NotEmpty(t, ac.ID)
}

func TestEncodeDecode_Refresh_PreservesSessionAndAbsolute(t *testing.T) {
	t.Parallel()

	clk := &fixedClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := newCodec(t, clk)

	abs := clk.t.Add(7 * 24 * time.Hour)
	in := &RefreshClaims{
		Subject:           "bob",
		UserID:            uuid.New(),
		Roles:             []models.Role{models.RoleClient},
		LoginSessionID:    9007199254740993, // > 2^53: не должен терять точность
		AbsoluteExpiresAt: abs,
	}

	raw, err := c.Encode(in, clk.t, clk.t.Add(24*time.Hour))
	require.NoError(t, err)

	got, err := c.Decode(raw)
	require.NoError(t, err)

	rc, ok := got.(*RefreshClaims)
	require.True(t, ok)
	require.Equal(t, int64(9007199254740993), rc.LoginSessionID)
	require.True(t, rc.AbsoluteExpiresAt.Equal(abs))
	require.True(t, rc.SlidingExpiresAt.Equal(clk.t.Add(24*time.Hour)))
	require.Equal(t, in.UserID, rc.UserID)
}

func TestEncode_SameClaimsSameSecond_ProduceDistinctTokens(t *testing.T) {
	t.Parallel()

	clk := &fixedClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := newCodec(t, clk)

	in := &AccessClaims{Subject: "alice", UserID: uuid.New()}
	a, err := c.Encode(in, clk.t, clk.t.Add(time.Minute))
	require.NoError(t, err)
	b, err := c.Encode(in, clk.t, clk.t.Add(time.Minute))
	require.NoError(t, err)

	require.NotEqual(t, a, b)
}

func TestDecode_ExpiredExactlyAtExp(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clk := &fixedClock{t: start}
	c := newCodec(t, clk)

	raw, err := c.Encode(&AccessClaims{Subject: "alice", UserID: uuid.New()}, start, start.Add(time.Minute))
	require.NoError(t, err)

	clk.t = start.Add(time.Minute - time.Nanosecond)
	_, err = c.Decode(raw)
	require.NoError(t, err)

	clk.t = start.Add(time.Minute)
	claims, err := c.Decode(raw)
	require.ErrorIs(t, err, ErrExpired)
	require.IsType(t, &AccessClaims{}, claims, "claims истёкшего токена доступны вызывающему")
}

func TestDecode_InvalidInputs(t *testing.T) {
	t.Parallel()

	clk := &fixedClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := newCodec(t, clk)

	valid, err := c.Encode(&AccessClaims{Subject: "alice", UserID: uuid.New()}, clk.t, clk.t.Add(time.Minute))
	require.NoError(t, err)

	other, err := NewCodec([]byte(strings.Repeat("x", 32)), "auth-service", []string{"web"}, WithClock(clk.now))
	require.NoError(t, err)
	foreign, err := other.Encode(&AccessClaims{Subject: "alice", UserID: uuid.New()}, clk.t, clk.t.Add(time.Minute))
	require.NoError(t, err)

	otherIssuer, err := NewCodec([]byte(testSecret), "someone-else", []string{"web"}, WithClock(clk.now))
	require.NoError(t, err)
	wrongIss, err := otherIssuer.Encode(&AccessClaims{Subject: "alice", UserID: uuid.New()}, clk.t, clk.t.Add(time.Minute))
	require.NoError(t, err)

	// alg=none с теми же claims.
	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"typ": "access", "sub": "alice", "uid": uuid.NewString(),
		"iss": "auth-service", "aud": "web",
		"iat": clk.t.Unix(), "exp": clk.t.Add(time.Minute).Unix(),
	})
	noneRaw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"tampered_signature", valid[:len(valid)-2] + "xx"},
		{"foreign_key", foreign},
		{"wrong_issuer", wrongIss},
		{"alg_none", noneRaw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode(tt.raw)
			require.ErrorIs(t, err, ErrInvalidSignatureOrFormat)
		})
	}
}

func TestDecode_UnknownType_IsInvalid(t *testing.T) {
	t.Parallel()

	clk := &fixedClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := newCodec(t, clk)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"typ": "magic", "sub": "alice", "uid": uuid.NewString(),
		"iss": "auth-service", "aud": "web",
		"iat": clk.t.Unix(), "exp": clk.t.Add(time.Minute).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = c.Decode(raw)
	require.ErrorIs(t, err, ErrInvalidSignatureOrFormat)
}

func TestEncode_RefreshWithoutSession_Rejected(t *testing.T) {
	t.Parallel()

	clk := &fixedClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := newCodec(t, clk)

	_, err := c.Encode(&RefreshClaims{Subject: "bob", UserID: uuid.New()}, clk.t, clk.t.Add(time.Hour))
	require.ErrorIs(t, err, ErrInvalidSignatureOrFormat)
}
