package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session 是登录会话，cookie 中只携带签名后的会话 ID 。
// 删除记录即可让对应会话立即失效。
type Session struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`

	UserID    string    `gorm:"column:user_id;type:uuid;index"` // 所属用户
	ExpiresAt time.Time `gorm:"column:expires_at"`              // 过期时间
	IPAddress string    `gorm:"column:ip_address"`              // 登录时的客户端 IP
	UserAgent string    `gorm:"column:user_agent"`              // 登录时的 User-Agent
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
