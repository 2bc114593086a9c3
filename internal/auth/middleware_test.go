package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"animehub/pkg/models"
)

type fakeUsers map[int64]*models.User

func (f fakeUsers) FindByID(_ context.Context, id int64) (*models.User, error) {
	return f[id], nil
}

func newTestRouter(tokens TokenService, users UserStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	whoami := func(c *gin.Context) {
		ident := IdentityFrom(c)
		if ident == nil {
			c.JSON(http.StatusOK, gin.H{"anonymous": true})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": ident.ID})
	}

	r.GET("/strict", Required(tokens, users), whoami)
	r.GET("/relaxed", Optional(tokens, users), whoami)
	r.GET("/admin", Required(tokens, users), AdminOnly(), whoami)
	return r
}

func doGet(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequiredRejectsMissingToken(t *testing.T) {
	r := newTestRouter(testTokens(time.Hour), fakeUsers{})

	w := doGet(r, "/strict", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequiredRejectsMalformedHeader(t *testing.T) {
	tokens := testTokens(time.Hour)
	users := fakeUsers{1: {ID: 1, Username: "alice"}}
	r := newTestRouter(tokens, users)

	req := httptest.NewRequest(http.MethodGet, "/strict", nil)
	req.Header.Set("Authorization", "Basic abc123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequiredRejectsExpiredToken(t *testing.T) {
	tokens := testTokens(-time.Minute)
	users := fakeUsers{1: {ID: 1, Username: "alice"}}
	r := newTestRouter(tokens, users)

	token, _, err := tokens.Sign(1)
	require.NoError(t, err)

	w := doGet(r, "/strict", token)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequiredRejectsDeletedUser(t *testing.T) {
	tokens := testTokens(time.Hour)
	r := newTestRouter(tokens, fakeUsers{})

	token, _, err := tokens.Sign(99)
	require.NoError(t, err)

	w := doGet(r, "/strict", token)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequiredAttachesIdentity(t *testing.T) {
	tokens := testTokens(time.Hour)
	users := fakeUsers{1: {ID: 1, Username: "alice"}}
	r := newTestRouter(tokens, users)

	token, _, err := tokens.Sign(1)
	require.NoError(t, err)

	w := doGet(r, "/strict", token)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"id":1}`, w.Body.String())
}

func TestOptionalProceedsAnonymously(t *testing.T) {
	tokens := testTokens(time.Hour)
	users := fakeUsers{1: {ID: 1, Username: "alice"}}
	r := newTestRouter(tokens, users)

	// no token
	w := doGet(r, "/relaxed", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"anonymous":true}`, w.Body.String())

	// expired token is treated the same as none
	expired := testTokens(-time.Minute)
	token, _, err := expired.Sign(1)
	require.NoError(t, err)
	w = doGet(r, "/relaxed", token)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"anonymous":true}`, w.Body.String())

	// valid token attaches identity
	token, _, err = tokens.Sign(1)
	require.NoError(t, err)
	w = doGet(r, "/relaxed", token)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"id":1}`, w.Body.String())
}

func TestAdminOnly(t *testing.T) {
	tokens := testTokens(time.Hour)
	users := fakeUsers{
		1: {ID: 1, Username: "alice"},
		2: {ID: 2, Username: "root", IsAdmin: true},
	}
	r := newTestRouter(tokens, users)

	token, _, err := tokens.Sign(1)
	require.NoError(t, err)
	w := doGet(r, "/admin", token)
	require.Equal(t, http.StatusForbidden, w.Code)

	token, _, err = tokens.Sign(2)
	require.NoError(t, err)
	w = doGet(r, "/admin", token)
	require.Equal(t, http.StatusOK, w.Code)
}
