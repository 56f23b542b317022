package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ProviderWinget     = "winget"
	ProviderChocolatey = "chocolatey"
	ProviderCustom     = "custom"
)

const (
	InstallTypeSingle = "single"
	InstallTypeMulti  = "multi"
)

// Download 是下载蓝图：桌面客户端据此安装软件。
type Download struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`

	DisplayName string  `gorm:"column:display_name"`   // 展示名称
	PackageID   *string `gorm:"column:package_id"`     // 包管理器中的包 ID
	Description *string `gorm:"column:description"`    // 描述
	Provider    string  `gorm:"column:provider;index"` // winget | chocolatey | custom
	InstallType string  `gorm:"column:install_type;default:single"`

	// 图片字段均为不透明字符串（data URL 或外部 URL），只限制长度
	CardArtwork  *string `gorm:"column:card_artwork"`
	Icon         *string `gorm:"column:icon"`
	PreviewImage *string `gorm:"column:preview_image"`

	ScriptPath    *string `gorm:"column:script_path"`    // 自定义脚本的落盘路径
	ScriptContent *string `gorm:"column:script_content"` // 自定义脚本内容
	IsInteractive bool    `gorm:"column:is_interactive"` // 安装过程是否需要用户交互

	CreatedByID string `gorm:"column:created_by_id;type:uuid;index"` // 创建者
	CreatedBy   *User  `gorm:"foreignKey:CreatedByID;constraint:OnDelete:CASCADE"`

	Commands []DownloadCommand `gorm:"foreignKey:DownloadID;constraint:OnDelete:CASCADE"`
}

func (d *Download) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
