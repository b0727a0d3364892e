package models

import (
	"time"
)

// Evaluation 课程评价，每个用户对每门课程最多一条（唯一索引保证）
type Evaluation struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CourseID      uint      `gorm:"not null;uniqueIndex:idx_course_user" json:"course_id"`
	Course        Course    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_course_user;index" json:"user_id"`
	Score         float64   `gorm:"not null" json:"score"` // 1-5
	WorkloadScore *float64  `json:"workload_score"`
	ContentScore  *float64  `json:"content_score"`
	TeachingScore *float64  `json:"teaching_score"`
	Tags          string    `gorm:"size:500" json:"tags"` // 逗号分隔
	Comment       string    `gorm:"type:text" json:"comment"`
	IsAnonymous   bool      `gorm:"default:false" json:"is_anonymous"`
	UserName      string    `gorm:"size:64" json:"user_name"` // 创建/更新时的昵称快照
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
