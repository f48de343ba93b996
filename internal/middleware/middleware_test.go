package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stemsi/exstem-scores/internal/model"
	"github.com/stemsi/exstem-scores/internal/response"
	"github.com/stemsi/exstem-scores/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeValidator map[string]*service.Claims

func (f fakeValidator) ValidateToken(tokenStr string) (*service.Claims, error) {
	if c, ok := f[tokenStr]; ok {
		return c, nil
	}
	return nil, errors.New("bad token")
}

type fakeRevocations map[string]error

func (f fakeRevocations) CheckRevoked(_ context.Context, jti string) error {
	return f[jti]
}

// fakeAccounts mirrors service.AuthService.ActiveUser over an in-memory table.
type fakeAccounts map[int]*model.User

func (f fakeAccounts) ActiveUser(_ context.Context, userID int) (*model.User, error) {
	user, ok := f[userID]
	if !ok {
		return nil, service.ErrUserNotFound
	}
	if !user.Active {
		return nil, service.ErrUserInactive
	}
	return user, nil
}

type brokenAccounts struct{}

func (brokenAccounts) ActiveUser(context.Context, int) (*model.User, error) {
	return nil, errors.New("connection refused")
}

func claimsFor(userID int, admin bool) *service.Claims {
	return &service.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ID: "jti-" + strconv.Itoa(userID), Subject: strconv.Itoa(userID)},
		UserID:           userID,
		Admin:            admin,
	}
}

var tokens = fakeValidator{
	"user":  claimsFor(1, false),
	"admin": claimsFor(2, true),
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) response.ErrCode {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return body.Error.Code
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func ok(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user_id": GetClaims(c).UserID})
}

func TestRequireUserJWT(t *testing.T) {
	r := gin.New()
	r.GET("/me", RequireUserJWT(tokens), ok)

	tests := []struct {
		name   string
		header string
		status int
		code   response.ErrCode
	}{
		{"missing header", "", http.StatusUnauthorized, response.ErrTokenRequired},
		{"wrong scheme", "Basic user", http.StatusUnauthorized, response.ErrTokenRequired},
		{"invalid token", "Bearer nope", http.StatusUnauthorized, response.ErrTokenInvalid},
		{"valid", "Bearer user", http.StatusOK, ""},
		{"case insensitive scheme", "bearer user", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, w))
			}
		})
	}
}

func TestRequireUserJWT_IgnoresQueryToken(t *testing.T) {
	r := gin.New()
	r.GET("/me", RequireUserJWT(tokens), ok)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/me?token=user", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	r := gin.New()
	r.GET("/admin", RequireUserJWT(tokens), RequireAdmin(), ok)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer user")
	w := serve(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.ErrAdminAccessOnly, errorCode(t, w))

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer admin")
	assert.Equal(t, http.StatusOK, serve(r, req).Code)

	bare := gin.New()
	bare.GET("/admin", RequireAdmin(), ok)
	assert.Equal(t, http.StatusUnauthorized, serve(bare, httptest.NewRequest(http.MethodGet, "/admin", nil)).Code)
}

func TestRequireSelfOrAdmin(t *testing.T) {
	r := gin.New()
	r.GET("/progress/:user_id", RequireUserJWT(tokens), RequireSelfOrAdmin("user_id"), ok)

	get := func(path, token string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return serve(r, req).Code
	}

	assert.Equal(t, http.StatusOK, get("/progress/1", "user"))
	assert.Equal(t, http.StatusForbidden, get("/progress/2", "user"))
	assert.Equal(t, http.StatusOK, get("/progress/1", "admin"))
}

func TestRequireWSAuth(t *testing.T) {
	r := gin.New()
	r.GET("/ws", RequireWSAuth(tokens), ok)

	assert.Equal(t, http.StatusUnauthorized, serve(r, httptest.NewRequest(http.MethodGet, "/ws", nil)).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, httptest.NewRequest(http.MethodGet, "/ws?token=nope", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/ws?token=user", nil)).Code)
}

func TestRequireActiveUser(t *testing.T) {
	accounts := fakeAccounts{
		1: {ID: 1, Active: true},
		2: {ID: 2, Active: true, Admin: true},
	}
	r := gin.New()
	r.GET("/me", RequireUserJWT(tokens), RequireActiveUser(accounts), ok)
	r.GET("/admin", RequireUserJWT(tokens), RequireActiveUser(accounts), RequireAdmin(), ok)

	get := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return serve(r, req)
	}

	assert.Equal(t, http.StatusOK, get("/me", "user").Code)
	assert.Equal(t, http.StatusOK, get("/admin", "admin").Code)

	t.Run("demoted admin", func(t *testing.T) {
		accounts[2] = &model.User{ID: 2, Active: true, Admin: false}
		t.Cleanup(func() { accounts[2] = &model.User{ID: 2, Active: true, Admin: true} })

		w := get("/admin", "admin")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, response.ErrAdminAccessOnly, errorCode(t, w))
		assert.True(t, tokens["admin"].Admin, "token claims must not be mutated")
	})

	t.Run("promoted user", func(t *testing.T) {
		accounts[1] = &model.User{ID: 1, Active: true, Admin: true}
		t.Cleanup(func() { accounts[1] = &model.User{ID: 1, Active: true} })

		assert.Equal(t, http.StatusOK, get("/admin", "user").Code)
	})

	t.Run("deactivated", func(t *testing.T) {
		accounts[1] = &model.User{ID: 1, Active: false}
		t.Cleanup(func() { accounts[1] = &model.User{ID: 1, Active: true} })

		w := get("/me", "user")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, response.ErrUserInactive, errorCode(t, w))
	})

	t.Run("deleted", func(t *testing.T) {
		delete(accounts, 1)
		t.Cleanup(func() { accounts[1] = &model.User{ID: 1, Active: true} })

		w := get("/me", "user")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, response.ErrTokenInvalid, errorCode(t, w))
	})

	t.Run("lookup failure", func(t *testing.T) {
		failing := gin.New()
		failing.GET("/me", RequireUserJWT(tokens), RequireActiveUser(brokenAccounts{}), ok)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer user")
		assert.Equal(t, http.StatusServiceUnavailable, serve(failing, req).Code)
	})
}

func TestRejectRevokedTokens(t *testing.T) {
	revocations := fakeRevocations{
		"jti-1": service.ErrTokenRevoked,
		"jti-2": errors.New("redis down"),
	}
	r := gin.New()
	r.GET("/me", RequireUserJWT(tokens), RejectRevokedTokens(revocations), ok)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer user")
	w := serve(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.ErrTokenRevoked, errorCode(t, w))

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer admin")
	assert.Equal(t, http.StatusServiceUnavailable, serve(r, req).Code)
}

func TestNoStore(t *testing.T) {
	r := gin.New()
	r.GET("/", NoStore(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(3, time.Minute)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("1.2.3.4"), "request %d", i)
	}
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "buckets are per key")

	now = now.Add(20 * time.Second)
	assert.True(t, rl.Allow("1.2.3.4"), "one token refills every interval/burst")
	assert.False(t, rl.Allow("1.2.3.4"))

	now = now.Add(10 * time.Minute)
	rl.Cleanup(3 * time.Minute)
	rl.mu.Lock()
	assert.Empty(t, rl.visitors)
	rl.mu.Unlock()
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	r := gin.New()
	r.POST("/login", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, serve(r, httptest.NewRequest(http.MethodPost, "/login", nil)).Code)

	w := serve(r, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, response.ErrRateLimitExceeded, errorCode(t, w))
}

func TestBrotli(t *testing.T) {
	large := strings.Repeat("abcdefgh", 512)

	r := gin.New()
	r.Use(Brotli())
	r.GET("/large", func(c *gin.Context) { c.String(http.StatusOK, large) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "tiny") })

	req := httptest.NewRequest(http.MethodGet, "/large", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	w := serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "br", w.Header().Get("Content-Encoding"))
	assert.Equal(t, "Accept-Encoding", w.Header().Get("Vary"))

	decoded, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, large, string(decoded))

	req = httptest.NewRequest(http.MethodGet, "/small", nil)
	req.Header.Set("Accept-Encoding", "br")
	w = serve(r, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "tiny", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/large", nil)
	w = serve(r, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, large, w.Body.String())
}
