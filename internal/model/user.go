package model

import (
	"time"

	"gorm.io/gorm"
)

// User 用户模型
// 用户名唯一；密码仅存储哈希（PasswordHash），任何响应都不得携带
// Bio/Avatar/Theme 为资料字段，仅允许通过白名单更新
// Status/LastSeen 记录在线状态与最近在线时间

type User struct {
	ID           uint           `gorm:"primaryKey"`
	Username     string         `gorm:"type:varchar(64);not null;uniqueIndex;comment:用户名"`
	Email        string         `gorm:"type:varchar(128);comment:邮箱"`
	PasswordHash string         `gorm:"type:varchar(255);not null;comment:密码哈希"`
	Bio          string         `gorm:"type:varchar(255);comment:个人简介"`
	Avatar       string         `gorm:"type:varchar(255);comment:头像URL"`
	Theme        string         `gorm:"type:varchar(32);default:'light';comment:界面主题"`
	Status       string         `gorm:"type:varchar(32);default:'offline';comment:状态"`
	LastSeen     time.Time      `gorm:"comment:最近在线时间"`
	CreatedAt    time.Time      `gorm:"comment:创建时间"`
	UpdatedAt    time.Time      `gorm:"comment:更新时间"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// TableName 指定表名（全局配置使用单数表名）
func (User) TableName() string { return "user" }

// ProfileFields 资料更新白名单
// PUT /users/:id 只接受这些字段，其余一律拒绝
var ProfileFields = map[string]bool{
	"username": true,
	"email":    true,
	"bio":      true,
	"avatar":   true,
	"theme":    true,
}
