package models

import (
	"time"
)

type Course struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CourseCode  string    `gorm:"uniqueIndex;size:50;not null" json:"course_code"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Credit      float64   `json:"credit"`
	Semester    string    `gorm:"size:20;index" json:"semester"`
	TeacherID   *uint     `gorm:"index" json:"teacher_id"`
	Teacher     *Teacher  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"teacher,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
