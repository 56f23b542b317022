package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (a *App) er(c echo.Context, statusCode int) error {
	return c.JSON(statusCode, &errorResponse{
		Error: http.StatusText(statusCode),
	})
}

func (a *App) erMsg(c echo.Context, statusCode int, errText, message string) error {
	return c.JSON(statusCode, &errorResponse{
		Error:   errText,
		Message: message,
	})
}

// HTTPErrorHandler 统一收口没有被 handler 处理的错误：
// 未匹配的路由返回结构化 404 ，其余一律返回不带内部细节的 500 。
func (a *App) HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code == http.StatusNotFound {
			_ = a.erMsg(c, http.StatusNotFound, "Not Found", "The requested endpoint does not exist")
			return
		}
		_ = a.er(c, he.Code)
		return
	}

	a.l.Error("unhandled error", zap.Error(err))
	_ = a.erMsg(c, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred")
}
