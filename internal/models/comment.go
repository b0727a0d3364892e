package models

import (
	"time"
)

// Comment 课程讨论；ParentID 为空是顶级讨论，否则是回复
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;index" json:"course_id"`
	Course    Course    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	UserID    *uint     `gorm:"index" json:"user_id"` // 匿名讨论没有用户
	UserName  string    `gorm:"size:64" json:"user_name"`
	ParentID  *uint     `gorm:"index" json:"parent_id"` // Nullable for top-level comments
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
