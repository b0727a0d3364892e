package models

import (
	"time"
)

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OpenID    string    `gorm:"uniqueIndex;size:128;not null" json:"-"` // 外部身份（微信 openid）
	Nickname  string    `gorm:"size:64;not null" json:"nickname"`        // 可由本人修改
	AvatarURL string    `gorm:"size:255" json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
