package services

import (
	"coursehub/internal/config"
	"coursehub/internal/logger"

	"gorm.io/gorm"
)

// Container 组装所有服务
type Container struct {
	Identity    *IdentityService
	Catalog     *CatalogService
	Evaluations *EvaluationService
	Comments    *CommentService
	Likes       *LikeService
	Aggregation *AggregationService
	Rankings    *RankingService
}

func NewContainer(db *gorm.DB, cfg *config.Config, exchanger CodeExchanger, log *logger.Logger) (*Container, error) {
	identity, err := NewIdentityService(db, cfg, exchanger, log)
	if err != nil {
		return nil, err
	}
	likes := NewLikeService(db, log)
	aggregation := NewAggregationService(db, log)
	return &Container{
		Identity:    identity,
		Catalog:     NewCatalogService(db, aggregation, log),
		Evaluations: NewEvaluationService(db, likes, log),
		Comments:    NewCommentService(db, likes, log),
		Likes:       likes,
		Aggregation: aggregation,
		Rankings:    NewRankingService(db, log),
	}, nil
}
