package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"talos-admin-panel/app/server/auth"
	"talos-admin-panel/app/server/constants"
	"talos-admin-panel/app/server/models"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type initRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128,strongpassword"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthInit 创建第一个管理员账号，只在系统尚无任何用户时可用。
func (a *App) AuthInit(c echo.Context) error {
	// 限流在所有检查之前，不暴露剩余次数
	key := fmt.Sprintf(constants.RateLimitKeyInit, clientIP(c))
	if !a.rl.Allow(key, constants.RateLimitInitAttempts, constants.RateLimitInitWindow) {
		return a.erMsg(c, http.StatusTooManyRequests, "Too many requests", "Please try again later")
	}

	rctx := c.Request().Context()

	initialized, err := a.isSystemInitialized(rctx)
	if err != nil {
		a.l.Error("failed to check initialization", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}
	if initialized {
		return a.erMsg(c, http.StatusForbidden, "Forbidden", "System is already initialized")
	}

	// 绑定请求体
	var req initRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return a.validationError(c, err)
	}

	user, err := a.auth.SignUp(rctx, req.Name, req.Email, req.Password)
	if err != nil {
		a.l.Error("failed to create admin account", zap.Error(err))
		return a.erMsg(c, http.StatusInternalServerError, "Failed to create admin account", "")
	}

	// 注册路径固定产出普通用户，初始管理员在创建后提升
	if err := a.db.WithContext(rctx).Model(&models.User{}).Where("id = ?", user.ID).
		Update("role", models.RoleAdmin).Error; err != nil {
		a.l.Error("failed to promote initial admin", zap.String("id", user.ID), zap.Error(err))
		return a.erMsg(c, http.StatusInternalServerError, "Failed to create admin account", "")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Admin account created successfully",
		"user": echo.Map{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  models.RoleAdmin,
		},
	})
}

func (a *App) AuthSignIn(c echo.Context) error {
	key := fmt.Sprintf(constants.RateLimitKeySignIn, clientIP(c))
	if !a.rl.Allow(key, constants.RateLimitSignInAttempts, constants.RateLimitSignInWindow) {
		return a.erMsg(c, http.StatusTooManyRequests, "Too many attempts", "Please try again in 15 minutes")
	}

	rctx := c.Request().Context()

	// 绑定请求体
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return a.validationError(c, err)
	}

	info, token, err := a.auth.SignIn(rctx, req.Email, req.Password, clientIP(c), c.Request().UserAgent())
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			// 不区分用户不存在与密码错误
			return a.erMsg(c, http.StatusUnauthorized, "Invalid credentials", "")
		}
		a.l.Error("failed to sign in", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	c.SetCookie(auth.SessionCookie(token, info.Session.ExpiresAt, a.isProd))

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    newUserInfo(&info.User),
	})
}

func (a *App) AuthSignOut(c echo.Context) error {
	session := a.session(c)

	if err := a.auth.SignOut(c.Request().Context(), session.Session.ID); err != nil {
		a.l.Error("failed to sign out", zap.String("sessionID", session.Session.ID), zap.Error(err))
		return a.erMsg(c, http.StatusInternalServerError, "Failed to sign out", "")
	}

	c.SetCookie(auth.ExpiredSessionCookie(a.isProd))

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
	})
}

// AuthSession 返回当前会话状态，匿名访问时 user 为 null 。
func (a *App) AuthSession(c echo.Context) error {
	session := a.session(c)

	if session == nil {
		return c.JSON(http.StatusOK, echo.Map{
			"authenticated": false,
			"user":          nil,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"authenticated": true,
		"user": echo.Map{
			"id":    session.User.ID,
			"name":  session.User.Name,
			"email": session.User.Email,
			"role":  session.User.Role,
			"image": session.User.Image,
		},
	})
}
