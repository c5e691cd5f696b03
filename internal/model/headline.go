package model

import (
	"time"
)

// Headline 公告文案，只追加，取最新一条展示
type Headline struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`
}

func (Headline) TableName() string {
	return "headline"
}
