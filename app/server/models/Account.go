package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account 保存用户的登录凭据，只由 auth 包读写。
// 删除用户时需要先删除对应的 Account 记录。
type Account struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`

	UserID   string `gorm:"column:user_id;type:uuid;index"` // 所属用户
	Password string `gorm:"column:password"`                // 密码，使用 argon2id 储存
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
