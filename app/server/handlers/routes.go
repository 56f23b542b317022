package handlers

import (
	"talos-admin-panel/app/server/middlewares"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes 绑定所有路由。写操作走管理员门卫，读操作走普通认证门卫，
// 会话查询与系统状态允许匿名。
func (a *App) RegisterRoutes(e *echo.Echo) {
	optional := middlewares.OptionalAuth(a.auth, a.l)
	authed := middlewares.Auth(a.auth, a.l)
	admin := middlewares.AdminAuth(a.auth, a.l)

	e.GET("/", a.Root)

	v1 := e.Group("/v1")

	system := v1.Group("/system")
	system.GET("/status", a.SystemStatus)
	system.GET("/health", a.SystemHealth)

	authGroup := v1.Group("/auth")
	authGroup.POST("/init", a.AuthInit)
	authGroup.POST("/sign-in", a.AuthSignIn)
	authGroup.POST("/sign-out", a.AuthSignOut, authed)
	authGroup.GET("/session", a.AuthSession, optional)

	users := v1.Group("/users")
	users.GET("/me", a.UserMe, authed)
	users.PUT("/me", a.UserMeUpdate, authed)
	users.PUT("/me/password", a.UserMePassword, authed)
	users.POST("/me/avatar", a.UserMeAvatar, authed)
	users.GET("", a.UserList, admin)
	users.POST("", a.UserCreate, admin)
	users.DELETE("/:id", a.UserDelete, admin)
	users.PUT("/:id/role", a.UserRoleUpdate, admin)

	downloads := v1.Group("/downloads")
	downloads.GET("", a.DownloadList, authed)
	downloads.GET("/stats", a.DownloadStats, authed)
	downloads.GET("/recent", a.DownloadRecent, authed)
	downloads.GET("/:id", a.DownloadGet, authed)
	downloads.POST("", a.DownloadCreate, admin)
	downloads.PUT("/:id", a.DownloadUpdate, admin)
	downloads.DELETE("/:id", a.DownloadDelete, admin)
}
