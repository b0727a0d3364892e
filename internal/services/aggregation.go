package services

import (
	"context"

	"coursehub/internal/logger"
	"coursehub/internal/models"
	"coursehub/internal/utils"

	"gorm.io/gorm"
)

// CourseStats 课程评分汇总，每次请求现算
type CourseStats struct {
	AvgScore           float64                 `json:"avg_score"`
	EvaluationCount    int                     `json:"evaluation_count"`
	DimensionAverages  utils.DimensionAverages `json:"dimension_averages"`
	PopularTags        []utils.TagCount        `json:"popular_tags"`
	RatingDistribution map[int]int             `json:"rating_distribution"`
}

func NewCourseStats(evals []models.Evaluation) *CourseStats {
	avg, count := utils.AverageScore(evals)
	tags := utils.TagFrequency(evals, utils.PopularTagLimit)
	if tags == nil {
		tags = []utils.TagCount{}
	}
	return &CourseStats{
		AvgScore:           avg,
		EvaluationCount:    count,
		DimensionAverages:  utils.AverageDimensions(evals),
		PopularTags:        tags,
		RatingDistribution: utils.RatingDistribution(evals),
	}
}

type AggregationService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAggregationService(db *gorm.DB, log *logger.Logger) *AggregationService {
	return &AggregationService{db: db, log: log.With("service", "AggregationService")}
}

func (s *AggregationService) CourseStats(ctx context.Context, courseID uint) (*CourseStats, error) {
	evals, err := s.courseEvaluations(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return NewCourseStats(evals), nil
}

// PopularTags 课程热门标签
func (s *AggregationService) PopularTags(ctx context.Context, courseID uint) ([]utils.TagCount, error) {
	evals, err := s.courseEvaluations(ctx, courseID)
	if err != nil {
		return nil, err
	}
	tags := utils.TagFrequency(evals, utils.PopularTagLimit)
	if tags == nil {
		tags = []utils.TagCount{}
	}
	return tags, nil
}

// RatingDistribution 课程评分分布
func (s *AggregationService) RatingDistribution(ctx context.Context, courseID uint) (map[int]int, error) {
	evals, err := s.courseEvaluations(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return utils.RatingDistribution(evals), nil
}

// courseEvaluations 按创建顺序读取课程的全部评价，标签并列时以此为先后
func (s *AggregationService) courseEvaluations(ctx context.Context, courseID uint) ([]models.Evaluation, error) {
	if err := ensureCourse(s.db.WithContext(ctx), courseID); err != nil {
		return nil, err
	}
	var evals []models.Evaluation
	err := s.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC, id ASC").
		Find(&evals).Error
	return evals, err
}

type courseScore struct {
	CourseID uint
	Score    float64
}

// scoresByCourse 批量读取课程的评分，用于列表里的平均分
func scoresByCourse(db *gorm.DB, courseIDs []uint) (map[uint][]models.Evaluation, error) {
	out := make(map[uint][]models.Evaluation, len(courseIDs))
	if len(courseIDs) == 0 {
		return out, nil
	}
	var rows []courseScore
	if err := db.Model(&models.Evaluation{}).
		Select("course_id, score").
		Where("course_id IN ?", courseIDs).
		Order("id ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.CourseID] = append(out[r.CourseID], models.Evaluation{CourseID: r.CourseID, Score: r.Score})
	}
	return out, nil
}
