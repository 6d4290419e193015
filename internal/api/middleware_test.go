package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kishan-kumar-s-d-444/globalstore-chat/internal/testutil"
	"github.com/kishan-kumar-s-d-444/globalstore-chat/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestAuthMiddleware(t *testing.T) {
	app := &ChatApp{
		log:        testutil.TestLogger(t),
		signingKey: []byte("test-signing-key"),
	}

	protected := app.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		userId, ok := UserId(r.Context())
		assert.True(t, ok, "expected user id in request context")
		assert.Equal(t, 7, userId, "expected user id from token")
		w.WriteHeader(http.StatusOK)
	})

	t.Run("missing cookie", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/account", nil)

		protected(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "expected 401 without a token cookie")
	})

	t.Run("invalid token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/account", nil)
		req.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: "garbage"})

		protected(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "expected 401 for an invalid token")
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := app.createJwtForSession(types.User{Id: 7, Username: "alice"}, time.Hour)
		assert.NoError(t, err, "expected no error creating token")

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/account", nil)
		req.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: token})

		protected(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code, "expected 200 for a valid token")
		assert.NotEmpty(t, rr.Header().Get("Cache-Control"), "expected cache-control header on authenticated responses")
	})
}

func TestErrorHandler(t *testing.T) {
	app := &ChatApp{log: testutil.TestLogger(t)}

	h := app.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected panic to surface as 500")
	assert.Equal(t, "close", rr.Header().Get("Connection"), "expected connection close header after panic")
}
