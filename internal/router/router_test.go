package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-scores/internal/config"
	"github.com/stemsi/exstem-scores/internal/handler"
	"github.com/stemsi/exstem-scores/internal/middleware"
	"github.com/stemsi/exstem-scores/internal/model"
	"github.com/stemsi/exstem-scores/internal/response"
	"github.com/stemsi/exstem-scores/internal/service"
	"github.com/stemsi/exstem-scores/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	validator.Setup()
}

type fakeAuth struct {
	tokens map[string]*service.Claims
	users  map[int]*model.User
}

func (f fakeAuth) ValidateToken(tokenStr string) (*service.Claims, error) {
	if c, ok := f.tokens[tokenStr]; ok {
		return c, nil
	}
	return nil, errors.New("bad token")
}

func (f fakeAuth) CheckRevoked(context.Context, string) error { return nil }

func (f fakeAuth) ActiveUser(_ context.Context, userID int) (*model.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, service.ErrUserNotFound
	}
	if !user.Active {
		return nil, service.ErrUserInactive
	}
	return user, nil
}

func newTestRouter(limiter *middleware.RateLimiter) *gin.Engine {
	log := zerolog.Nop()
	up := handler.PingerFunc(func(context.Context) error { return nil })

	handlers := &Handlers{
		Auth:       handler.NewAuthHandler(nil, nil, log),
		User:       handler.NewUserHandler(nil, log),
		Score:      handler.NewScoreHandler(nil, log),
		Statistics: handler.NewStatisticsHandler(nil, log),
		Dashboard:  handler.NewDashboardHandler(nil, log),
		Activity:   handler.NewActivityHandler(nil, log, nil),
		System:     handler.NewSystemHandler(up, up, log),
	}
	auth := fakeAuth{
		tokens: map[string]*service.Claims{
			"user":     {UserID: 1},
			"demoted":  {UserID: 2, Admin: true},
			"disabled": {UserID: 3},
		},
		users: map[int]*model.User{
			1: {ID: 1, Active: true},
			2: {ID: 2, Active: true, Admin: false},
			3: {ID: 3, Active: false},
		},
	}
	return SetupRouter(auth, handlers, &config.Config{GinMode: gin.TestMode, AuthRateLimit: 30}, limiter)
}

func do(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_PublicRoutes(t *testing.T) {
	r := newTestRouter(nil)

	w := do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = do(r, http.MethodGet, "/api/v1/scores/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong!")
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter(nil)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodGet, "/api/v1/auth/verify"},
		{http.MethodPost, "/api/v1/auth/logout"},
		{http.MethodGet, "/api/v1/scores/user"},
		{http.MethodGet, "/api/v1/scores/user/1"},
		{http.MethodPost, "/api/v1/scores"},
		{http.MethodPut, "/api/v1/scores/1"},
		{http.MethodGet, "/api/v1/scores/statistics"},
		{http.MethodGet, "/api/v1/scores/progress/1"},
		{http.MethodGet, "/api/v1/admin/dashboard"},
		{http.MethodGet, "/api/v1/admin/users"},
		{http.MethodGet, "/api/v1/admin/users/stats"},
		{http.MethodGet, "/api/v1/admin/users/1/statistics"},
		{http.MethodDelete, "/api/v1/admin/scores/1"},
		{http.MethodGet, "/ws/v1/admin/activity"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := do(r, rt.method, rt.path, "")
			require.Equal(t, http.StatusUnauthorized, w.Code)

			var body response.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.NotNil(t, body.Error)
			assert.Equal(t, response.ErrTokenRequired, body.Error.Code)
		})
	}
}

func TestRouter_AdminRoutesRejectUsers(t *testing.T) {
	r := newTestRouter(nil)

	for _, path := range []string{"/api/v1/admin/dashboard", "/api/v1/admin/users", "/api/v1/admin/scores"} {
		w := do(r, http.MethodGet, path, "user")
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}

	w := do(r, http.MethodGet, "/ws/v1/admin/activity?token=user", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/api/v1/scores/progress/2", "user")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_AccountStateOverridesTokenClaims(t *testing.T) {
	r := newTestRouter(nil)

	// Admin at login, demoted since.
	for _, path := range []string{"/api/v1/admin/dashboard", "/api/v1/admin/users"} {
		w := do(r, http.MethodGet, path, "demoted")
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}
	w := do(r, http.MethodGet, "/ws/v1/admin/activity?token=demoted", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/api/v1/scores/progress/1", "demoted")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/api/v1/auth/me", "disabled")
	require.Equal(t, http.StatusForbidden, w.Code)

	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, response.ErrUserInactive, body.Error.Code)
}

func TestRouter_AuthRoutesAreRateLimited(t *testing.T) {
	r := newTestRouter(middleware.NewRateLimiter(2, time.Hour))

	login := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
		return w.Code
	}

	assert.Equal(t, http.StatusBadRequest, login())
	assert.Equal(t, http.StatusBadRequest, login())
	assert.Equal(t, http.StatusTooManyRequests, login())
}
