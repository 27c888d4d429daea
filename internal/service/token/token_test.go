package token_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pechorka/xmum-wiki/internal/notify"
	"github.com/pechorka/xmum-wiki/internal/service/token"
	"github.com/pechorka/xmum-wiki/internal/storage"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordNotifier struct {
	warnings []string
}

func (n *recordNotifier) Warning(id string, args map[string]string) {
	n.warnings = append(n.warnings, id)
}

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func setup(t *testing.T) (*token.Store, *storage.Storage, *recordNotifier, *clock) {
	s, err := storage.NewTempStorage()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	log, _ := test.NewNullLogger()
	n := &recordNotifier{}
	c := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	return token.NewStore(s, n, log, token.WithClock(c.now)), s, n, c
}

func signedToken(t *testing.T, exp time.Time) string {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "a@b.com",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestStoreThenTakeReturnsSameToken(t *testing.T) {
	ts, s, n, c := setup(t)
	exp := c.now().Add(2 * time.Hour)
	tok := signedToken(t, exp)

	require.NoError(t, ts.Store(tok))

	rec, err := s.GetToken()
	require.NoError(t, err)
	assert.Equal(t, exp.Unix()*1000, rec.Expire, "expiry comes from the exp claim")

	got, ok := ts.Take()
	require.True(t, ok)
	assert.Equal(t, tok, got)
	assert.False(t, ts.IsUnauthenticated())
	assert.Empty(t, n.warnings)
}

func TestStoreMalformedTokenUsesDefaultTTL(t *testing.T) {
	for name, tok := range map[string]string{
		"opaque":         "not-a-jwt",
		"two segments":   "a.b",
		"bad base64":     "a.%%%.c",
		"not json":       "a." + base64.RawURLEncoding.EncodeToString([]byte("hello")) + ".c",
		"no exp claim":   "a." + base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"x"}`)) + ".c",
		"exp not number": "a." + base64.RawURLEncoding.EncodeToString([]byte(`{"exp":"soon"}`)) + ".c",
		"empty":          "",
	} {
		t.Run(name, func(t *testing.T) {
			ts, s, _, c := setup(t)

			require.NoError(t, ts.Store(tok))

			rec, err := s.GetToken()
			require.NoError(t, err)
			assert.Equal(t, tok, rec.Token)
			assert.Equal(t, c.now().UnixMilli()+86_400_000, rec.Expire)
		})
	}
}

func TestStoreStandardBase64ClaimsUsesExpClaim(t *testing.T) {
	ts, s, _, _ := setup(t)
	// {"exp":1999999999,"sub":">>~~"} encodes with '+' and '/' in the standard alphabet.
	payload := base64.StdEncoding.EncodeToString([]byte(`{"exp":1999999999,"sub":">>~~"}`))
	require.True(t, strings.ContainsAny(payload, "+/"))

	require.NoError(t, ts.Store("h."+payload+".s"))

	rec, err := s.GetToken()
	require.NoError(t, err)
	assert.Equal(t, int64(1_999_999_999_000), rec.Expire)
}

func TestExpireAtReadsOnlyClaimsSegment(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"exp":1700003600}`))

	assert.Equal(t, int64(1_700_003_600_000), token.ExpireAt("garbage."+payload+".garbage", now))
	assert.Equal(t, int64(1_700_003_600_000), token.ExpireAt("h."+payload+"==.s", now), "padding is tolerated")
}

func TestTakeExpiredRemovesRecord(t *testing.T) {
	ts, s, n, c := setup(t)
	tok := signedToken(t, c.now().Add(time.Minute))
	require.NoError(t, ts.Store(tok))

	c.advance(time.Minute) // expire == now counts as expired

	got, ok := ts.Take()
	assert.False(t, ok)
	assert.Empty(t, got)
	assert.Equal(t, []string{notify.MsgSessionExpired}, n.warnings)

	_, err := s.GetToken()
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, ok = ts.Take()
	assert.False(t, ok)
	assert.Len(t, n.warnings, 1, "absent record does not warn again")
}

func TestTakeAbsent(t *testing.T) {
	ts, _, n, _ := setup(t)

	_, ok := ts.Take()
	assert.False(t, ok)
	assert.True(t, ts.IsUnauthenticated())
	assert.Empty(t, n.warnings)
}

func TestRemove(t *testing.T) {
	ts, _, _, c := setup(t)
	require.NoError(t, ts.Store(signedToken(t, c.now().Add(time.Hour))))
	require.False(t, ts.IsUnauthenticated())

	require.NoError(t, ts.Remove())
	assert.True(t, ts.IsUnauthenticated())

	require.NoError(t, ts.Remove(), "removing an absent token is fine")
}

func TestIsUnauthenticatedFollowsExpiry(t *testing.T) {
	ts, _, _, c := setup(t)
	require.NoError(t, ts.Store("opaque"))

	c.advance(token.DefaultTTL - time.Millisecond)
	assert.False(t, ts.IsUnauthenticated())

	c.advance(time.Millisecond)
	assert.True(t, ts.IsUnauthenticated())
}

func TestTakeDropsUnreadableRecord(t *testing.T) {
	s, err := storage.NewTempStorage(storage.WithEncryptor(flipEncryptor{}))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	log, _ := test.NewNullLogger()
	ts := token.NewStore(s, &recordNotifier{}, log)

	require.NoError(t, s.PutToken(storage.TokenRecord{Token: "x", Expire: time.Now().Add(time.Hour).UnixMilli()}))

	_, ok := ts.Take()
	assert.False(t, ok)
	_, err = s.GetToken()
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// flipEncryptor writes a record that never decodes back to JSON.
type flipEncryptor struct{}

func (flipEncryptor) EncryptString(plaintext string) (string, error) { return "{" + plaintext, nil }

func (flipEncryptor) DecryptString(ciphertext string) (string, error) { return ciphertext, nil }
