package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"talos-admin-panel/app/server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestDownload(t *testing.T, a *App, admin *models.User, body string) *models.Download {
	t.Helper()

	e := newTestEcho()
	rec := httptest.NewRecorder()
	c := authedContext(e, jsonRequest(http.MethodPost, "/", body), rec, admin)

	require.NoError(t, a.DownloadCreate(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var download models.Download
	require.NoError(t, a.db.First(&download).Error)
	return &download
}

func commandsOf(t *testing.T, a *App, downloadID string) []models.DownloadCommand {
	t.Helper()

	var commands []models.DownloadCommand
	require.NoError(t, a.db.Where("download_id = ?", downloadID).
		Order("sort_order ASC").Find(&commands).Error)
	return commands
}

func TestDownloadCreate_AssignsSortOrderByIndex(t *testing.T) {
	a := newTestApp(t)
	admin := seedUser(t, a.db, "Admin", "admin@example.com", models.RoleAdmin)

	download := createTestDownload(t, a, admin,
		`{"displayName":"7-Zip","provider":"winget","commands":["winget install one","winget install two","winget install three"]}`)

	assert.Equal(t, admin.ID, download.CreatedByID)
	assert.Equal(t, models.InstallTypeSingle, download.InstallType)

	commands := commandsOf(t, a, download.ID)
	require.Len(t, commands, 3)
	for i, cmd := range commands {
		assert.Equal(t, i, cmd.SortOrder)
	}
	assert.Equal(t, "winget install one", commands[0].Command)
	assert.Equal(t, "winget install three", commands[2].Command)
}

func TestDownloadUpdate_ReplacesCommandSet(t *testing.T) {
	a := newTestApp(t)
	e := newTestEcho()
	admin := seedUser(t, a.db, "Admin", "admin@example.com", models.RoleAdmin)

	download := createTestDownload(t, a, admin,
		`{"displayName":"7-Zip","provider":"winget","commands":["winget install one","winget install two","winget install three"]}`)

	oldIDs := map[string]bool{}
	for _, cmd := range commandsOf(t, a, download.ID) {
		oldIDs[cmd.ID] = true
	}
	require.Len(t, oldIDs, 3)

	rec := httptest.NewRecorder()
	c := authedContext(e, jsonRequest(http.MethodPut, "/",
		`{"commands":["choco install x","choco install y"]}`), rec, admin)
	c.SetParamNames("id")
	c.SetParamValues(download.ID)

	require.NoError(t, a.DownloadUpdate(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// 整组替换：旧命令全部消失，新命令按提交顺序从 0 重新编号
	commands := commandsOf(t, a, download.ID)
	require.Len(t, commands, 2)
	assert.Equal(t, "choco install x", commands[0].Command)
	assert.Equal(t, 0, commands[0].SortOrder)
	assert.Equal(t, "choco install y", commands[1].Command)
	assert.Equal(t, 1, commands[1].SortOrder)
	for _, cmd := range commands {
		assert.False(t, oldIDs[cmd.ID], "old command rows must be replaced, not reused")
	}

	// 没有出现在请求里的字段保持不变
	var kept models.Download
	require.NoError(t, a.db.First(&kept, "id = ?", download.ID).Error)
	assert.Equal(t, "7-Zip", kept.DisplayName)
	assert.Equal(t, models.ProviderWinget, kept.Provider)
}

func TestDownloadUpdate_EmptyCommandsClears(t *testing.T) {
	a := newTestApp(t)
	e := newTestEcho()
	admin := seedUser(t, a.db, "Admin", "admin@example.com", models.RoleAdmin)

	download := createTestDownload(t, a, admin,
		`{"displayName":"7-Zip","provider":"winget","commands":["winget install one"]}`)

	rec := httptest.NewRecorder()
	c := authedContext(e, jsonRequest(http.MethodPut, "/", `{"commands":[]}`), rec, admin)
	c.SetParamNames("id")
	c.SetParamValues(download.ID)

	require.NoError(t, a.DownloadUpdate(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, commandsOf(t, a, download.ID))
}

func TestDownloadUpdate_OmittedCommandsUntouched(t *testing.T) {
	a := newTestApp(t)
	e := newTestEcho()
	admin := seedUser(t, a.db, "Admin", "admin@example.com", models.RoleAdmin)

	download := createTestDownload(t, a, admin,
		`{"displayName":"7-Zip","provider":"winget","commands":["winget install one","winget install two"]}`)

	rec := httptest.NewRecorder()
	c := authedContext(e, jsonRequest(http.MethodPut, "/", `{"displayName":"7-Zip Beta"}`), rec, admin)
	c.SetParamNames("id")
	c.SetParamValues(download.ID)

	require.NoError(t, a.DownloadUpdate(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var updated models.Download
	require.NoError(t, a.db.First(&updated, "id = ?", download.ID).Error)
	assert.Equal(t, "7-Zip Beta", updated.DisplayName)
	assert.Len(t, commandsOf(t, a, download.ID), 2)
}

func TestDownloadDelete_RemovesCommands(t *testing.T) {
	a := newTestApp(t)
	e := newTestEcho()
	admin := seedUser(t, a.db, "Admin", "admin@example.com", models.RoleAdmin)

	download := createTestDownload(t, a, admin,
		`{"displayName":"7-Zip","provider":"winget","commands":["winget install one","winget install two"]}`)

	rec := httptest.NewRecorder()
	c := authedContext(e, httptest.NewRequest(http.MethodDelete, "/", nil), rec, admin)
	c.SetParamNames("id")
	c.SetParamValues(download.ID)

	require.NoError(t, a.DownloadDelete(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var downloadCount, commandCount int64
	require.NoError(t, a.db.Model(&models.Download{}).Count(&downloadCount).Error)
	require.NoError(t, a.db.Model(&models.DownloadCommand{}).Count(&commandCount).Error)
	assert.Zero(t, downloadCount)
	assert.Zero(t, commandCount)
}
