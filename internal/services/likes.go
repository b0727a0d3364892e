package services

import (
	"context"
	"errors"

	"coursehub/internal/logger"
	"coursehub/internal/models"

	"gorm.io/gorm"
)

// errAlreadyLiked 并发插入撞上唯一索引，视为已点赞
var errAlreadyLiked = errors.New("already liked")

type LikeResult struct {
	Liked bool  `json:"liked"`
	Count int64 `json:"count"`
}

type LikeService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLikeService(db *gorm.DB, log *logger.Logger) *LikeService {
	return &LikeService{db: db, log: log.With("service", "LikeService")}
}

// Toggle 切换点赞状态：已赞则取消，未赞则点赞，返回最新计数
func (s *LikeService) Toggle(ctx context.Context, user *models.User, target models.LikeTarget, targetID uint) (*LikeResult, error) {
	if user == nil {
		return nil, unauthorized()
	}
	if !target.Valid() {
		return nil, invalid("不支持的点赞类型")
	}

	result := &LikeResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureTarget(tx, target, targetID); err != nil {
			return err
		}

		var existing models.Like
		err := tx.Where("user_id = ? AND target_type = ? AND target_id = ?", user.ID, target, targetID).Take(&existing).Error
		switch {
		case err == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			result.Liked = false
		case errors.Is(err, gorm.ErrRecordNotFound):
			like := models.Like{UserID: user.ID, TargetType: target, TargetID: targetID}
			if err := tx.Create(&like).Error; err != nil {
				if isUniqueViolation(err) {
					return errAlreadyLiked
				}
				return err
			}
			result.Liked = true
		default:
			return err
		}
		return tx.Model(&models.Like{}).
			Where("target_type = ? AND target_id = ?", target, targetID).
			Count(&result.Count).Error
	})

	if errors.Is(err, errAlreadyLiked) {
		s.log.Debug("concurrent like resolved as already liked", "user_id", user.ID, "target", target, "target_id", targetID)
		result.Liked = true
		if err := s.db.WithContext(ctx).Model(&models.Like{}).
			Where("target_type = ? AND target_id = ?", target, targetID).
			Count(&result.Count).Error; err != nil {
			return nil, err
		}
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Counts 批量统计点赞数
func (s *LikeService) Counts(ctx context.Context, target models.LikeTarget, ids []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}
	var rows []struct {
		TargetID uint
		Count    int64
	}
	err := s.db.WithContext(ctx).Model(&models.Like{}).
		Select("target_id, COUNT(*) AS count").
		Where("target_type = ? AND target_id IN ?", target, ids).
		Group("target_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.TargetID] = r.Count
	}
	return counts, nil
}

// LikedBy 批量查询当前用户是否已点赞；未登录时全部为 false
func (s *LikeService) LikedBy(ctx context.Context, user *models.User, target models.LikeTarget, ids []uint) (map[uint]bool, error) {
	liked := make(map[uint]bool, len(ids))
	if user == nil || len(ids) == 0 {
		return liked, nil
	}
	var targetIDs []uint
	err := s.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND target_type = ? AND target_id IN ?", user.ID, target, ids).
		Pluck("target_id", &targetIDs).Error
	if err != nil {
		return nil, err
	}
	for _, id := range targetIDs {
		liked[id] = true
	}
	return liked, nil
}

func ensureTarget(tx *gorm.DB, target models.LikeTarget, id uint) error {
	var model interface{}
	var msg string
	switch target {
	case models.LikeTargetComment:
		model, msg = &models.Comment{}, "讨论不存在"
	case models.LikeTargetEvaluation:
		model, msg = &models.Evaluation{}, "评价不存在"
	default:
		return invalid("不支持的点赞类型")
	}
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return notFound(msg)
	}
	return nil
}

// deleteLikes 删除指向给定目标的所有点赞，须在事务中调用
func deleteLikes(tx *gorm.DB, target models.LikeTarget, ids ...uint) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Where("target_type = ? AND target_id IN ?", target, ids).Delete(&models.Like{}).Error
}
