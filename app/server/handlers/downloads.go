package handlers

import (
	"errors"
	"net/http"
	"time"

	"talos-admin-panel/app/server/models"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type downloadCommandInfo struct {
	ID         string `json:"id"`
	DownloadID string `json:"downloadId"`
	Command    string `json:"command"`
	SortOrder  int    `json:"sortOrder"`
}

func newDownloadCommandInfos(commands []models.DownloadCommand) []downloadCommandInfo {
	res := make([]downloadCommandInfo, 0, len(commands))
	for _, cmd := range commands {
		res = append(res, downloadCommandInfo{
			ID:         cmd.ID,
			DownloadID: cmd.DownloadID,
			Command:    cmd.Command,
			SortOrder:  cmd.SortOrder,
		})
	}
	return res
}

// downloadInfo 是完整投影；列表接口用 scriptContent=false 的瘦身版本。
type downloadInfo struct {
	ID            string                `json:"id"`
	DisplayName   string                `json:"displayName"`
	PackageID     *string               `json:"packageId"`
	Description   *string               `json:"description"`
	Provider      string                `json:"provider"`
	InstallType   string                `json:"installType"`
	CardArtwork   *string               `json:"cardArtwork"`
	Icon          *string               `json:"icon"`
	PreviewImage  *string               `json:"previewImage"`
	ScriptPath    *string               `json:"scriptPath"`
	ScriptContent *string               `json:"scriptContent,omitempty"`
	IsInteractive bool                  `json:"isInteractive"`
	CreatedByID   string                `json:"createdById"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
	Commands      []downloadCommandInfo `json:"commands"`
}

func newDownloadInfo(d *models.Download, commands []models.DownloadCommand, withScript bool) *downloadInfo {
	info := &downloadInfo{
		ID:            d.ID,
		DisplayName:   d.DisplayName,
		PackageID:     d.PackageID,
		Description:   d.Description,
		Provider:      d.Provider,
		InstallType:   d.InstallType,
		CardArtwork:   d.CardArtwork,
		Icon:          d.Icon,
		PreviewImage:  d.PreviewImage,
		ScriptPath:    d.ScriptPath,
		IsInteractive: d.IsInteractive,
		CreatedByID:   d.CreatedByID,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
		Commands:      newDownloadCommandInfos(commands),
	}
	if withScript {
		info.ScriptContent = d.ScriptContent
	}
	return info
}

type downloadCreateRequest struct {
	DisplayName   string   `json:"displayName" validate:"required,min=1,max=200"`
	PackageID     *string  `json:"packageId" validate:"omitempty,max=200"`
	Description   *string  `json:"description" validate:"omitempty,max=5000"`
	Provider      string   `json:"provider" validate:"required,oneof=winget chocolatey custom"`
	InstallType   string   `json:"installType" validate:"omitempty,oneof=single multi"`
	CardArtwork   *string  `json:"cardArtwork" validate:"omitempty,max=500000"`
	Icon          *string  `json:"icon" validate:"omitempty,max=500000"`
	PreviewImage  *string  `json:"previewImage" validate:"omitempty,max=500000"`
	ScriptPath    *string  `json:"scriptPath" validate:"omitempty,max=500"`
	ScriptContent *string  `json:"scriptContent" validate:"omitempty,max=100000"`
	IsInteractive *bool    `json:"isInteractive"`
	Commands      []string `json:"commands" validate:"required,min=1,dive,required"`
}

type downloadUpdateRequest struct {
	DisplayName   *string   `json:"displayName" validate:"omitempty,min=1,max=200"`
	PackageID     *string   `json:"packageId" validate:"omitempty,max=200"`
	Description   *string   `json:"description" validate:"omitempty,max=5000"`
	Provider      *string   `json:"provider" validate:"omitempty,oneof=winget chocolatey custom"`
	InstallType   *string   `json:"installType" validate:"omitempty,oneof=single multi"`
	CardArtwork   *string   `json:"cardArtwork" validate:"omitempty,max=500000"`
	Icon          *string   `json:"icon" validate:"omitempty,max=500000"`
	PreviewImage  *string   `json:"previewImage" validate:"omitempty,max=500000"`
	ScriptPath    *string   `json:"scriptPath" validate:"omitempty,max=500"`
	ScriptContent *string   `json:"scriptContent" validate:"omitempty,max=100000"`
	IsInteractive *bool     `json:"isInteractive"`
	Commands      *[]string `json:"commands" validate:"omitempty,dive,required"`
}

func downloadUpdates(req *downloadUpdateRequest) map[string]interface{} {
	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		updates["display_name"] = *req.DisplayName
	}
	if req.PackageID != nil {
		updates["package_id"] = *req.PackageID
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Provider != nil {
		updates["provider"] = *req.Provider
	}
	if req.InstallType != nil {
		updates["install_type"] = *req.InstallType
	}
	if req.CardArtwork != nil {
		updates["card_artwork"] = *req.CardArtwork
	}
	if req.Icon != nil {
		updates["icon"] = *req.Icon
	}
	if req.PreviewImage != nil {
		updates["preview_image"] = *req.PreviewImage
	}
	if req.ScriptPath != nil {
		updates["script_path"] = *req.ScriptPath
	}
	if req.ScriptContent != nil {
		updates["script_content"] = *req.ScriptContent
	}
	if req.IsInteractive != nil {
		updates["is_interactive"] = *req.IsInteractive
	}
	return updates
}

// DownloadList 返回全部蓝图，按创建时间倒序，命令单独批量拉取后按蓝图分组，
// 避免每行一次查询。
func (a *App) DownloadList(c echo.Context) error {
	rctx := c.Request().Context()

	var downloads []models.Download
	if err := a.db.WithContext(rctx).Order("created_at DESC").Find(&downloads).Error; err != nil {
		a.l.Error("failed to get download list", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	commandsByDownload := map[string][]models.DownloadCommand{}
	if len(downloads) > 0 {
		ids := make([]string, 0, len(downloads))
		for _, d := range downloads {
			ids = append(ids, d.ID)
		}

		var commands []models.DownloadCommand
		if err := a.db.WithContext(rctx).Where("download_id IN ?", ids).
			Order("sort_order ASC").Find(&commands).Error; err != nil {
			a.l.Error("failed to get download commands", zap.Error(err))
			return a.er(c, http.StatusInternalServerError)
		}

		for _, cmd := range commands {
			commandsByDownload[cmd.DownloadID] = append(commandsByDownload[cmd.DownloadID], cmd)
		}
	}

	res := make([]*downloadInfo, 0, len(downloads))
	for i := range downloads {
		res = append(res, newDownloadInfo(&downloads[i], commandsByDownload[downloads[i].ID], false))
	}

	return c.JSON(http.StatusOK, echo.Map{"downloads": res})
}

func (a *App) DownloadStats(c echo.Context) error {
	rctx := c.Request().Context()

	var totalCount, singleCount, multiCount, userCount int64

	if err := a.db.WithContext(rctx).Model(&models.Download{}).Count(&totalCount).Error; err != nil {
		a.l.Error("failed to count downloads", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}
	if err := a.db.WithContext(rctx).Model(&models.Download{}).
		Where("install_type = ?", models.InstallTypeSingle).Count(&singleCount).Error; err != nil {
		a.l.Error("failed to count single installs", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}
	if err := a.db.WithContext(rctx).Model(&models.Download{}).
		Where("install_type = ?", models.InstallTypeMulti).Count(&multiCount).Error; err != nil {
		a.l.Error("failed to count multi installs", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}
	if err := a.db.WithContext(rctx).Model(&models.User{}).Count(&userCount).Error; err != nil {
		a.l.Error("failed to count users", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"stats": echo.Map{
			"totalDownloads": totalCount,
			"singleInstall":  singleCount,
			"multiInstall":   multiCount,
			"activeUsers":    userCount,
		},
	})
}

func (a *App) DownloadRecent(c echo.Context) error {
	var downloads []models.Download
	if err := a.db.WithContext(c.Request().Context()).
		Order("created_at DESC").Limit(5).Find(&downloads).Error; err != nil {
		a.l.Error("failed to get recent downloads", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	// 精简投影：不带命令和脚本
	res := make([]echo.Map, 0, len(downloads))
	for _, d := range downloads {
		res = append(res, echo.Map{
			"id":          d.ID,
			"displayName": d.DisplayName,
			"provider":    d.Provider,
			"installType": d.InstallType,
			"icon":        d.Icon,
			"createdAt":   d.CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"downloads": res})
}

func (a *App) DownloadGet(c echo.Context) error {
	id := c.Param("id")
	rctx := c.Request().Context()

	var download models.Download
	if err := a.db.WithContext(rctx).First(&download, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return a.erMsg(c, http.StatusNotFound, "Download not found", "")
		}
		a.l.Error("failed to get download", zap.String("id", id), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	commands, err := a.downloadCommands(c, id)
	if err != nil {
		return a.er(c, http.StatusInternalServerError)
	}

	return c.JSON(http.StatusOK, echo.Map{"download": newDownloadInfo(&download, commands, true)})
}

func (a *App) DownloadCreate(c echo.Context) error {
	session := a.session(c)
	rctx := c.Request().Context()

	// 绑定请求体
	var req downloadCreateRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return a.validationError(c, err)
	}
	if req.InstallType == "" {
		req.InstallType = models.InstallTypeSingle
	}

	download := models.Download{
		DisplayName:   req.DisplayName,
		PackageID:     req.PackageID,
		Description:   req.Description,
		Provider:      req.Provider,
		InstallType:   req.InstallType,
		CardArtwork:   req.CardArtwork,
		Icon:          req.Icon,
		PreviewImage:  req.PreviewImage,
		ScriptPath:    req.ScriptPath,
		ScriptContent: req.ScriptContent,
		CreatedByID:   session.User.ID,
	}
	if req.IsInteractive != nil {
		download.IsInteractive = *req.IsInteractive
	}

	// 蓝图和命令一并写入，sortOrder 即提交数组的下标
	if err := a.db.WithContext(rctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&download).Error; err != nil {
			return err
		}
		for i, cmd := range req.Commands {
			if err := tx.Create(&models.DownloadCommand{
				DownloadID: download.ID,
				Command:    cmd,
				SortOrder:  i,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		a.l.Error("failed to create download", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	commands, err := a.downloadCommands(c, download.ID)
	if err != nil {
		return a.er(c, http.StatusInternalServerError)
	}

	return c.JSON(http.StatusCreated, echo.Map{"download": newDownloadInfo(&download, commands, true)})
}

// DownloadUpdate 部分更新。commands 一旦出现就整组替换——
// 空数组会清空命令集，最少一条的业务规则由管理面板前端保证。
func (a *App) DownloadUpdate(c echo.Context) error {
	id := c.Param("id")
	rctx := c.Request().Context()

	var existing models.Download
	if err := a.db.WithContext(rctx).First(&existing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return a.erMsg(c, http.StatusNotFound, "Download not found", "")
		}
		a.l.Error("failed to get download", zap.String("id", id), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	// 绑定请求体
	var req downloadUpdateRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return a.validationError(c, err)
	}

	if err := a.db.WithContext(rctx).Transaction(func(tx *gorm.DB) error {
		if updates := downloadUpdates(&req); len(updates) > 0 {
			if err := tx.Model(&models.Download{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}

		if req.Commands != nil {
			if err := tx.Delete(&models.DownloadCommand{}, "download_id = ?", id).Error; err != nil {
				return err
			}
			for i, cmd := range *req.Commands {
				if err := tx.Create(&models.DownloadCommand{
					DownloadID: id,
					Command:    cmd,
					SortOrder:  i,
				}).Error; err != nil {
					return err
				}
			}
		}

		return nil
	}); err != nil {
		a.l.Error("failed to update download", zap.String("id", id), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	var download models.Download
	if err := a.db.WithContext(rctx).First(&download, "id = ?", id).Error; err != nil {
		a.l.Error("failed to reload download", zap.String("id", id), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	commands, err := a.downloadCommands(c, id)
	if err != nil {
		return a.er(c, http.StatusInternalServerError)
	}

	return c.JSON(http.StatusOK, echo.Map{"download": newDownloadInfo(&download, commands, true)})
}

func (a *App) DownloadDelete(c echo.Context) error {
	id := c.Param("id")
	rctx := c.Request().Context()

	var existing models.Download
	if err := a.db.WithContext(rctx).First(&existing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return a.erMsg(c, http.StatusNotFound, "Download not found", "")
		}
		a.l.Error("failed to get download", zap.String("id", id), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	// 显式先删命令再删蓝图；外键的级联约束同样兜底
	if err := a.db.WithContext(rctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.DownloadCommand{}, "download_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Download{}, "id = ?", id).Error
	}); err != nil {
		a.l.Error("failed to delete download", zap.String("id", id), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Download deleted successfully",
	})
}

func (a *App) downloadCommands(c echo.Context, downloadID string) ([]models.DownloadCommand, error) {
	var commands []models.DownloadCommand
	if err := a.db.WithContext(c.Request().Context()).Where("download_id = ?", downloadID).
		Order("sort_order ASC").Find(&commands).Error; err != nil {
		a.l.Error("failed to get download commands", zap.String("downloadID", downloadID), zap.Error(err))
		return nil, err
	}
	return commands, nil
}
