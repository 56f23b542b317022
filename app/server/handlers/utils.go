package handlers

import (
	"github.com/labstack/echo/v4"
)

// clientIP 提取限流用的客户端标识。
// 没有转发头的请求统一落入 "unknown" 桶，同一代理后的所有客户端会共享配额。
func clientIP(c echo.Context) string {
	if ip := c.Request().Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := c.Request().Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	return "unknown"
}
