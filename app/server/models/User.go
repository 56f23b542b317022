package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`

	// 基础信息
	Name  string  `gorm:"column:name"`              // 显示名称
	Email string  `gorm:"column:email;uniqueIndex"` // 邮箱，全局唯一，用于登录
	Image *string `gorm:"column:image"`             // 头像，data URL 或外部 URL ，不做格式校验
	Role  string  `gorm:"column:role;default:user"` // 角色：管理员可以写入（更改），普通用户只能读取（浏览）
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
