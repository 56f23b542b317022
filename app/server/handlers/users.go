package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"talos-admin-panel/app/server/models"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type userInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Image     *string   `json:"image"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserInfo(user *models.User) *userInfo {
	return &userInfo{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Image:     user.Image,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

type profileUpdateRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email *string `json:"email" validate:"omitempty,email"`
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=128,strongpassword"`
}

type avatarUpdateRequest struct {
	Image *string `json:"image" validate:"omitempty,max=500000"`
}

type userCreateRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128,strongpassword"`
	Role     string `json:"role" validate:"omitempty,oneof=admin user"`
}

type roleUpdateRequest struct {
	Role string `json:"role" validate:"required,oneof=admin user"`
}

// 事务内部的判定结果，由调用方翻译成状态码
var (
	errLastAdmin  = errors.New("operation would leave zero admins")
	errTargetGone = errors.New("target user not found")
)

// UserMe 返回调用者自己的信息。
// 会话解析和这里的查询之间用户可能刚好被并发删除，此时返回 404 。
func (a *App) UserMe(c echo.Context) error {
	session := a.session(c)

	var user models.User
	if err := a.db.WithContext(c.Request().Context()).First(&user, "id = ?", session.User.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return a.erMsg(c, http.StatusNotFound, "User not found", "")
		}
		a.l.Error("failed to get user", zap.String("id", session.User.ID), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	return c.JSON(http.StatusOK, echo.Map{"user": newUserInfo(&user)})
}

func (a *App) UserMeUpdate(c echo.Context) error {
	session := a.session(c)
	rctx := c.Request().Context()

	// 绑定请求体
	var req profileUpdateRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return a.validationError(c, err)
	}

	// 换邮箱前确认没有被其他用户占用（大小写敏感的精确匹配）
	if req.Email != nil {
		var count int64
		if err := a.db.WithContext(rctx).Model(&models.User{}).
			Where("email = ? AND id <> ?", *req.Email, session.User.ID).
			Count(&count).Error; err != nil {
			a.l.Error("failed to check email", zap.Error(err))
			return a.er(c, http.StatusInternalServerError)
		}
		if count > 0 {
			return a.erMsg(c, http.StatusConflict, "Email already in use", "")
		}
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if len(updates) == 0 {
		return a.erMsg(c, http.StatusBadRequest, "No fields to update", "")
	}

	if err := a.db.WithContext(rctx).Model(&models.User{}).Where("id = ?", session.User.ID).
		Updates(updates).Error; err != nil {
		a.l.Error("failed to update profile", zap.String("id", session.User.ID), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	var user models.User
	if err := a.db.WithContext(rctx).First(&user, "id = ?", session.User.ID).Error; err != nil {
		a.l.Error("failed to reload user", zap.String("id", session.User.ID), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	return c.JSON(http.StatusOK, echo.Map{"user": newUserInfo(&user)})
}

// UserMePassword 改密全权交给 auth 包，任何失败对客户端都只说“当前密码错误”。
func (a *App) UserMePassword(c echo.Context) error {
	session := a.session(c)

	// 绑定请求体
	var req passwordChangeRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return a.validationError(c, err)
	}

	if err := a.auth.ChangePassword(c.Request().Context(), session.User.ID, req.CurrentPassword, req.NewPassword); err != nil {
		a.l.Error("failed to change password", zap.String("id", session.User.ID), zap.Error(err))
		return a.erMsg(c, http.StatusBadRequest, "Current password is incorrect", "")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Password changed successfully",
	})
}

// UserMeAvatar 接受不超过长度上限的不透明字符串，null 表示清除头像。
func (a *App) UserMeAvatar(c echo.Context) error {
	session := a.session(c)
	rctx := c.Request().Context()

	// 绑定请求体
	var req avatarUpdateRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return a.validationError(c, err)
	}

	if err := a.db.WithContext(rctx).Model(&models.User{}).Where("id = ?", session.User.ID).
		Update("image", req.Image).Error; err != nil {
		a.l.Error("failed to update avatar", zap.String("id", session.User.ID), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	var user models.User
	if err := a.db.WithContext(rctx).First(&user, "id = ?", session.User.ID).Error; err != nil {
		a.l.Error("failed to reload user", zap.String("id", session.User.ID), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	return c.JSON(http.StatusOK, echo.Map{"user": newUserInfo(&user)})
}

func (a *App) UserList(c echo.Context) error {
	var users []models.User
	if err := a.db.WithContext(c.Request().Context()).Order("created_at ASC").Find(&users).Error; err != nil {
		a.l.Error("failed to get user list", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	resUsers := make([]*userInfo, 0, len(users))
	for i := range users {
		resUsers = append(resUsers, newUserInfo(&users[i]))
	}

	return c.JSON(http.StatusOK, echo.Map{"users": resUsers})
}

func (a *App) UserCreate(c echo.Context) error {
	rctx := c.Request().Context()

	// 绑定请求体
	var req userCreateRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return a.validationError(c, err)
	}
	if req.Role == "" {
		req.Role = models.RoleUser
	}

	var count int64
	if err := a.db.WithContext(rctx).Model(&models.User{}).Where("email = ?", req.Email).
		Count(&count).Error; err != nil {
		a.l.Error("failed to check email", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}
	if count > 0 {
		return a.erMsg(c, http.StatusConflict, "Email already in use", "")
	}

	user, err := a.auth.SignUp(rctx, req.Name, req.Email, req.Password)
	if err != nil {
		a.l.Error("failed to create user", zap.Error(err))
		return a.erMsg(c, http.StatusInternalServerError, "Failed to create user", "")
	}

	// 注册路径固定产出普通用户，需要管理员的在创建后提升
	if req.Role == models.RoleAdmin {
		if err := a.db.WithContext(rctx).Model(&models.User{}).Where("id = ?", user.ID).
			Update("role", models.RoleAdmin).Error; err != nil {
			a.l.Error("failed to promote user", zap.String("id", user.ID), zap.Error(err))
			return a.erMsg(c, http.StatusInternalServerError, "Failed to create user", "")
		}
	}

	var created models.User
	if err := a.db.WithContext(rctx).First(&created, "id = ?", user.ID).Error; err != nil {
		a.l.Error("failed to reload user", zap.String("id", user.ID), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	return c.JSON(http.StatusCreated, echo.Map{"user": newUserInfo(&created)})
}

// UserDelete 删除用户。自删除始终拒绝；目标是管理员时，
// 计数与删除放在同一个可串行化事务里，保证不会把最后一个管理员删掉。
func (a *App) UserDelete(c echo.Context) error {
	session := a.session(c)
	id := c.Param("id")

	if id == session.User.ID {
		return a.erMsg(c, http.StatusBadRequest, "You cannot delete yourself", "")
	}

	err := a.db.WithContext(c.Request().Context()).Transaction(func(tx *gorm.DB) error {
		var target models.User
		if err := tx.First(&target, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errTargetGone
			}
			return err
		}

		if target.Role == models.RoleAdmin {
			var adminCount int64
			if err := tx.Model(&models.User{}).Where("role = ?", models.RoleAdmin).
				Count(&adminCount).Error; err != nil {
				return err
			}
			if adminCount <= 1 {
				return errLastAdmin
			}
		}

		// 先清理凭据与会话，再删除用户本体
		if err := tx.Delete(&models.Account{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Session{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "id = ?", id).Error
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})

	if err != nil {
		switch {
		case errors.Is(err, errTargetGone):
			return a.erMsg(c, http.StatusNotFound, "User not found", "")
		case errors.Is(err, errLastAdmin):
			return a.erMsg(c, http.StatusBadRequest, "Cannot delete the last admin", "")
		default:
			a.l.Error("failed to delete user", zap.String("id", id), zap.Error(err))
			return a.er(c, http.StatusInternalServerError)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "User deleted successfully",
	})
}

// UserRoleUpdate 调整角色，降级管理员时同样在可串行化事务里校验数量下限。
func (a *App) UserRoleUpdate(c echo.Context) error {
	id := c.Param("id")
	rctx := c.Request().Context()

	// 绑定请求体
	var req roleUpdateRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return a.validationError(c, err)
	}

	err := a.db.WithContext(rctx).Transaction(func(tx *gorm.DB) error {
		var target models.User
		if err := tx.First(&target, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errTargetGone
			}
			return err
		}

		if target.Role == models.RoleAdmin && req.Role == models.RoleUser {
			var adminCount int64
			if err := tx.Model(&models.User{}).Where("role = ?", models.RoleAdmin).
				Count(&adminCount).Error; err != nil {
				return err
			}
			if adminCount <= 1 {
				return errLastAdmin
			}
		}

		return tx.Model(&models.User{}).Where("id = ?", id).Update("role", req.Role).Error
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})

	if err != nil {
		switch {
		case errors.Is(err, errTargetGone):
			return a.erMsg(c, http.StatusNotFound, "User not found", "")
		case errors.Is(err, errLastAdmin):
			return a.erMsg(c, http.StatusBadRequest, "Cannot demote the last admin", "")
		default:
			a.l.Error("failed to update role", zap.String("id", id), zap.Error(err))
			return a.er(c, http.StatusInternalServerError)
		}
	}

	var user models.User
	if err := a.db.WithContext(rctx).First(&user, "id = ?", id).Error; err != nil {
		a.l.Error("failed to reload user", zap.String("id", id), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	return c.JSON(http.StatusOK, echo.Map{"user": newUserInfo(&user)})
}
