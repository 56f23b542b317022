package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"talos-admin-panel/app/server/auth"
	"talos-admin-panel/app/server/middlewares"
	"talos-admin-panel/app/server/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// newTestApp 基于内存 SQLite 构造 App ，用于需要真实数据库语义的 handler 测试。
// cache=shared 让连接池里的所有连接看到同一个库，唯一命名避免测试间串库。
func newTestApp(t *testing.T) *App {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.Session{},
		&models.Download{},
		&models.DownloadCommand{},
	))

	l := zap.NewNop()

	return &App{
		l:    l,
		db:   db,
		auth: auth.New(l, db, nil, nil),
	}
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func seedUser(t *testing.T, db *gorm.DB, name, email, role string) *models.User {
	t.Helper()

	user := &models.User{Name: name, Email: email, Role: role}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&models.Account{UserID: user.ID, Password: "argon2id-hash"}).Error)

	return user
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

// authedContext 模拟门卫已经解析好会话的请求上下文。
func authedContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, user *models.User) echo.Context {
	c := e.NewContext(req, rec)
	c.Set(middlewares.SessionContextKey, &auth.SessionInfo{
		User: *user,
		Session: models.Session{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			ExpiresAt: time.Now().Add(time.Hour),
		},
	})
	return c
}
