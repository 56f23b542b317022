package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DownloadCommand 是蓝图的单条安装命令，按 SortOrder 顺序执行。
// 更新蓝图时整组替换：先删除旧命令，再按提交顺序重新插入。
type DownloadCommand struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`

	DownloadID string `gorm:"column:download_id;type:uuid;index"` // 所属蓝图
	Command    string `gorm:"column:command"`                     // 命令文本
	SortOrder  int    `gorm:"column:sort_order;default:0"`        // 执行顺序，等于提交数组中的下标
}

func (dc *DownloadCommand) BeforeCreate(tx *gorm.DB) error {
	if dc.ID == "" {
		dc.ID = uuid.NewString()
	}
	return nil
}
