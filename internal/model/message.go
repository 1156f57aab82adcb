package model

import (
	"time"

	"gorm.io/gorm"
)

// Message 两人私信消息
// 除 Seen 外消息不可变；Seen 只做 false→true 的单向转换
// 发送者与接收者都必须指向已存在的用户

type Message struct {
	ID         uint           `gorm:"primaryKey"`
	SenderID   uint           `gorm:"not null;index;comment:发送者ID"`
	ReceiverID uint           `gorm:"not null;index;comment:接收者ID"`
	Content    string         `gorm:"type:text;not null;comment:消息内容"`
	Seen       bool           `gorm:"default:false;comment:是否已读"`
	CreatedAt  time.Time      `gorm:"index;comment:创建时间"`
	UpdatedAt  time.Time      `gorm:"comment:更新时间"`
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (Message) TableName() string { return "message" }
