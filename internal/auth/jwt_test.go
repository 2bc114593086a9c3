package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testTokens(d time.Duration) TokenService {
	return TokenService{
		Secret:   []byte("test-secret"),
		Issuer:   "animehub-test",
		Duration: d,
	}
}

func TestSignAndParse(t *testing.T) {
	ts := testTokens(time.Hour)

	token, exp, err := ts.Sign(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ts.Parse(token)
	require.NoError(t, err)
	require.EqualValues(t, 42, claims.UserID)
	require.Equal(t, "animehub-test", claims.Issuer)
}

func TestParseExpiredToken(t *testing.T) {
	ts := testTokens(-time.Minute)

	token, _, err := ts.Sign(42)
	require.NoError(t, err)

	_, err = ts.Parse(token)
	require.Error(t, err)
}

func TestParseWrongSecret(t *testing.T) {
	ts := testTokens(time.Hour)
	token, _, err := ts.Sign(42)
	require.NoError(t, err)

	other := testTokens(time.Hour)
	other.Secret = []byte("different-secret")
	_, err = other.Parse(token)
	require.Error(t, err)
}

func TestParseGarbage(t *testing.T) {
	ts := testTokens(time.Hour)
	_, err := ts.Parse("not.a.token")
	require.Error(t, err)
}
