package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"talos-admin-panel/app/server/models"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func (a *App) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"name":    "Talos API",
		"version": "1.0.0",
		"status":  "ok",
	})
}

func (a *App) SystemHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *App) SystemStatus(c echo.Context) error {
	initialized, err := a.isSystemInitialized(c.Request().Context())
	if err != nil {
		a.l.Error("failed to check system status", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"initialized": initialized,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

// isSystemInitialized ：只要存在任何用户即视为已初始化。
func (a *App) isSystemInitialized(ctx context.Context) (bool, error) {
	var count int64
	if err := a.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count > 0, nil
}
