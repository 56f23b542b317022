package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"talos-admin-panel/app/server/auth"
	"talos-admin-panel/app/server/constants"
	"talos-admin-panel/app/server/models"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubResolver struct {
	session *auth.SessionInfo
	err     error

	calledWith string
}

func (s *stubResolver) GetSession(_ context.Context, token string) (*auth.SessionInfo, error) {
	s.calledWith = token
	return s.session, s.err
}

func sessionFor(role string) *auth.SessionInfo {
	return &auth.SessionInfo{
		User: models.User{
			ID:    "11111111-1111-1111-1111-111111111111",
			Name:  "Test User",
			Email: "test@example.com",
			Role:  role,
		},
		Session: models.Session{
			ID:        "22222222-2222-2222-2222-222222222222",
			UserID:    "11111111-1111-1111-1111-111111111111",
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
}

func invoke(mw echo.MiddlewareFunc, withCookie bool) (*httptest.ResponseRecorder, *auth.SessionInfo, bool) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if withCookie {
		req.AddCookie(&http.Cookie{Name: constants.SessionCookieName, Value: "token"})
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var (
		attached *auth.SessionInfo
		reached  bool
	)
	handler := mw(func(c echo.Context) error {
		reached = true
		attached, _ = c.Get(SessionContextKey).(*auth.SessionInfo)
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}

	return rec, attached, reached
}

func TestAuth_RejectsMissingCookie(t *testing.T) {
	r := &stubResolver{}
	rec, _, reached := invoke(Auth(r, zap.NewNop()), false)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
	assert.Empty(t, r.calledWith, "resolver should not be called without a cookie")
	assert.JSONEq(t, `{"error":"Unauthorized","message":"Authentication required"}`, rec.Body.String())
}

func TestAuth_RejectsUnresolvedSession(t *testing.T) {
	r := &stubResolver{session: nil}
	rec, _, reached := invoke(Auth(r, zap.NewNop()), true)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
	assert.Equal(t, "token", r.calledWith)
}

func TestAuth_AttachesSession(t *testing.T) {
	r := &stubResolver{session: sessionFor(models.RoleUser)}
	rec, attached, reached := invoke(Auth(r, zap.NewNop()), true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
	require.NotNil(t, attached)
	assert.Equal(t, "test@example.com", attached.User.Email)
}

func TestAuth_ResolverFailureIsServerError(t *testing.T) {
	r := &stubResolver{err: errors.New("redis down")}
	rec, _, reached := invoke(Auth(r, zap.NewNop()), true)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, reached)
	assert.NotContains(t, rec.Body.String(), "redis", "internal detail must not leak")
}

func TestAdminAuth_RejectsNonAdmin(t *testing.T) {
	r := &stubResolver{session: sessionFor(models.RoleUser)}
	rec, _, reached := invoke(AdminAuth(r, zap.NewNop()), true)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)
	assert.JSONEq(t, `{"error":"Forbidden","message":"Admin access required"}`, rec.Body.String())
}

func TestAdminAuth_RejectsAnonymous(t *testing.T) {
	r := &stubResolver{}
	rec, _, reached := invoke(AdminAuth(r, zap.NewNop()), false)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestAdminAuth_AllowsAdmin(t *testing.T) {
	r := &stubResolver{session: sessionFor(models.RoleAdmin)}
	rec, attached, reached := invoke(AdminAuth(r, zap.NewNop()), true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
	require.NotNil(t, attached)
	assert.Equal(t, models.RoleAdmin, attached.User.Role)
}

func TestOptionalAuth_PassesThroughAnonymous(t *testing.T) {
	r := &stubResolver{}
	rec, attached, reached := invoke(OptionalAuth(r, zap.NewNop()), false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
	assert.Nil(t, attached)
}

func TestOptionalAuth_AttachesResolvedSession(t *testing.T) {
	r := &stubResolver{session: sessionFor(models.RoleUser)}
	rec, attached, reached := invoke(OptionalAuth(r, zap.NewNop()), true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
	require.NotNil(t, attached)
}
