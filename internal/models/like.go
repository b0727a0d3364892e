package models

import (
	"time"
)

type LikeTarget string

const (
	LikeTargetComment    LikeTarget = "comment"
	LikeTargetEvaluation LikeTarget = "evaluation"
)

func (t LikeTarget) Valid() bool {
	return t == LikeTargetComment || t == LikeTargetEvaluation
}

// Like 点赞记录。点赞数与"是否已赞"都以此表为准，没有冗余计数字段。
// (user_id, target_type, target_id) 唯一，由数据库保证。
type Like struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;uniqueIndex:idx_like_user_target" json:"user_id"`
	TargetType LikeTarget `gorm:"type:varchar(20);not null;uniqueIndex:idx_like_user_target;index:idx_like_target" json:"target_type"`
	TargetID   uint       `gorm:"not null;uniqueIndex:idx_like_user_target;index:idx_like_target" json:"target_id"`
	CreatedAt  time.Time  `json:"created_at"`
}
