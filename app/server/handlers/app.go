package handlers

import (
	"talos-admin-panel/app/server/auth"
	"talos-admin-panel/app/server/middlewares"
	"talos-admin-panel/app/server/ratelimit"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	l      *zap.Logger        // 日志
	db     *gorm.DB           // 数据库
	auth   *auth.Auth         // 凭据与会话的唯一入口
	rl     *ratelimit.Limiter // 未认证敏感接口的限流
	isProd bool               // 生产环境下会话 cookie 标记 Secure
}

func NewApp(l *zap.Logger, db *gorm.DB, a *auth.Auth, rl *ratelimit.Limiter, isProd bool) *App {
	return &App{
		l:      l,
		db:     db,
		auth:   a,
		rl:     rl,
		isProd: isProd,
	}
}

// session 取出门卫解析好的会话；只在挂了认证中间件的路由上调用。
func (a *App) session(c echo.Context) *auth.SessionInfo {
	s, _ := c.Get(middlewares.SessionContextKey).(*auth.SessionInfo)
	return s
}
