package middlewares

import (
	"context"
	"net/http"

	"talos-admin-panel/app/server/auth"
	"talos-admin-panel/app/server/constants"
	"talos-admin-panel/app/server/models"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SessionContextKey 下存放解析出的 *auth.SessionInfo ，
// 经过门卫的 handler 可以直接信任这个值，不需要重新解析。
const SessionContextKey = "session"

// SessionResolver 是会话解析的唯一入口，生产环境由 *auth.Auth 实现。
type SessionResolver interface {
	GetSession(ctx context.Context, token string) (*auth.SessionInfo, error)
}

type errorMessage struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func resolveSession(c echo.Context, r SessionResolver) (*auth.SessionInfo, error) {
	cookie, err := c.Cookie(constants.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	return r.GetSession(c.Request().Context(), cookie.Value)
}

// OptionalAuth 解析会话但不拦截：匿名可读的接口用它拿到“可能为空”的会话。
func OptionalAuth(r SessionResolver, l *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session, err := resolveSession(c, r)
			if err != nil {
				l.Error("failed to resolve session", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, &errorMessage{
					Error:   "Internal Server Error",
					Message: "An unexpected error occurred",
				})
			}

			// 允许为空
			c.Set(SessionContextKey, session)

			return next(c)
		}
	}
}

// Auth 要求任意已认证用户。
func Auth(r SessionResolver, l *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session, err := resolveSession(c, r)
			if err != nil {
				l.Error("failed to resolve session", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, &errorMessage{
					Error:   "Internal Server Error",
					Message: "An unexpected error occurred",
				})
			}

			if session == nil {
				return c.JSON(http.StatusUnauthorized, &errorMessage{
					Error:   "Unauthorized",
					Message: "Authentication required",
				})
			}

			c.Set(SessionContextKey, session)

			return next(c)
		}
	}
}

// AdminAuth 要求已认证的管理员。
func AdminAuth(r SessionResolver, l *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session, err := resolveSession(c, r)
			if err != nil {
				l.Error("failed to resolve session", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, &errorMessage{
					Error:   "Internal Server Error",
					Message: "An unexpected error occurred",
				})
			}

			if session == nil {
				return c.JSON(http.StatusUnauthorized, &errorMessage{
					Error:   "Unauthorized",
					Message: "Authentication required",
				})
			}

			// 验证权限
			if session.User.Role != models.RoleAdmin {
				return c.JSON(http.StatusForbidden, &errorMessage{
					Error:   "Forbidden",
					Message: "Admin access required",
				})
			}

			c.Set(SessionContextKey, session)

			return next(c)
		}
	}
}
