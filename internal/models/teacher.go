package models

import (
	"time"
)

type Teacher struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Department   string    `gorm:"size:100;index" json:"department"`
	Title        string    `gorm:"size:100" json:"title"` // 职称
	Introduction string    `gorm:"type:text" json:"introduction"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
