// The handler wires the real user repo, which itself depends on this
// package, so these tests live in an external package to keep the
// test binary cycle-free.
package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"animehub/internal/auth"
	"animehub/internal/testutil"
	"animehub/internal/user"
)

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenDB(t)
	repo := user.NewRepo(db)
	tokens := auth.TokenService{
		Secret:   []byte("test-secret"),
		Issuer:   "animehub-test",
		Duration: time.Hour,
	}
	h := auth.NewHandler(repo, tokens)

	r := gin.New()
	h.RegisterRoutes(r.Group("/api/auth"))
	return r
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterValidation(t *testing.T) {
	r := newAuthRouter(t)

	// missing fields
	w := postJSON(r, "/api/auth/register", gin.H{"username": "alice"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// bad email
	w = postJSON(r, "/api/auth/register", gin.H{
		"username": "alice", "email": "nope", "password": "pw",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// short passwords are fine; only the bcrypt length cap applies
	w = postJSON(r, "/api/auth/register", gin.H{
		"username": "alice", "email": "a@x.com", "password": "pw",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	long := make([]byte, 73)
	for i := range long {
		long[i] = 'x'
	}
	w = postJSON(r, "/api/auth/register", gin.H{
		"username": "bob", "email": "b@x.com", "password": string(long),
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterUniqueness(t *testing.T) {
	r := newAuthRouter(t)

	w := postJSON(r, "/api/auth/register", gin.H{
		"username": "alice", "email": "a@x.com", "password": "pw",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// duplicate email, case-insensitively
	w = postJSON(r, "/api/auth/register", gin.H{
		"username": "alice2", "email": "A@X.com", "password": "pw",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// duplicate username
	w = postJSON(r, "/api/auth/register", gin.H{
		"username": "alice", "email": "c@x.com", "password": "pw",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	r := newAuthRouter(t)

	w := postJSON(r, "/api/auth/register", gin.H{
		"username": "alice", "email": "a@x.com", "password": "secret",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(r, "/api/auth/login", gin.H{"email": "a@x.com", "password": "secret"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	// the failure message never says which part was wrong
	w = postJSON(r, "/api/auth/login", gin.H{"email": "a@x.com", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "invalid email or password")

	w = postJSON(r, "/api/auth/login", gin.H{"email": "nobody@x.com", "password": "secret"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "invalid email or password")
}

func TestMeAndVerify(t *testing.T) {
	r := newAuthRouter(t)

	w := postJSON(r, "/api/auth/register", gin.H{
		"username": "alice", "email": "a@x.com", "password": "pw",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var reg struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+reg.Token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "alice")

	req = httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
