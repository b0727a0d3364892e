package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"coursehub/internal/logger"
	"coursehub/internal/models"
	"coursehub/internal/utils"

	"gorm.io/gorm"
)

const (
	maxTags       = 10
	maxTagLen     = 20
	maxReviewText = 2000
)

// TagList 同时接受 ["a","b"] 和 "a,b" 两种写法
type TagList struct {
	Values []string
	Set    bool
}

func (t *TagList) UnmarshalJSON(data []byte) error {
	t.Set = true
	if string(data) == "null" {
		t.Values = nil
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		t.Values = list
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("tags must be a string or a list of strings")
	}
	t.Values = []string{raw}
	return nil
}

func (t TagList) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Values)
}

// EvaluationInput 创建/更新评价，nil 字段表示不修改
type EvaluationInput struct {
	CourseID      *uint    `json:"course_id"`
	Score         *float64 `json:"score" binding:"omitempty,gte=1,lte=5"`
	WorkloadScore *float64 `json:"workload_score" binding:"omitempty,gte=1,lte=5"`
	ContentScore  *float64 `json:"content_score" binding:"omitempty,gte=1,lte=5"`
	TeachingScore *float64 `json:"teaching_score" binding:"omitempty,gte=1,lte=5"`
	Tags          TagList  `json:"tags"`
	Comment       *string  `json:"comment"`
	IsAnonymous   *bool    `json:"is_anonymous"`
}

type EvaluationView struct {
	models.Evaluation
	CourseName string   `json:"course_name"`
	TagList    []string `json:"tag_list"`
	LikeCount  int64    `json:"like_count"`
	IsLiked    bool     `json:"is_liked"`
	IsMine     bool     `json:"is_mine"`
}

type EvaluationFilter struct {
	CourseID *uint
	SortBy   string // created_at | score | likes
	PageQuery
}

type EvaluationService struct {
	db    *gorm.DB
	likes *LikeService
	log   *logger.Logger
}

func NewEvaluationService(db *gorm.DB, likes *LikeService, log *logger.Logger) *EvaluationService {
	return &EvaluationService{db: db, likes: likes, log: log.With("service", "EvaluationService")}
}

func checkScore(name string, v *float64) error {
	if v != nil && (*v < 1 || *v > 5) {
		return invalid(name + " 必须在 1-5 之间")
	}
	return nil
}

func normalizeTags(values []string) (string, error) {
	var tags []string
	for _, v := range values {
		for _, t := range utils.SplitTags(utils.StripHTML(v)) {
			if utf8.RuneCountInString(t) > maxTagLen {
				return "", invalid(fmt.Sprintf("单个标签不能超过 %d 个字符", maxTagLen))
			}
			tags = append(tags, t)
		}
	}
	if len(tags) > maxTags {
		return "", invalid(fmt.Sprintf("标签不能超过 %d 个", maxTags))
	}
	return utils.JoinTags(tags), nil
}

func snapshotName(user *models.User, anonymous bool) string {
	if anonymous {
		return utils.AnonymousName
	}
	return user.Nickname
}

// apply 把输入合并到评价上并校验
func (in EvaluationInput) apply(e *models.Evaluation) error {
	for _, c := range []struct {
		name string
		v    *float64
	}{
		{"score", in.Score},
		{"workload_score", in.WorkloadScore},
		{"content_score", in.ContentScore},
		{"teaching_score", in.TeachingScore},
	} {
		if err := checkScore(c.name, c.v); err != nil {
			return err
		}
	}
	if in.Score != nil {
		e.Score = *in.Score
	}
	if in.WorkloadScore != nil {
		e.WorkloadScore = in.WorkloadScore
	}
	if in.ContentScore != nil {
		e.ContentScore = in.ContentScore
	}
	if in.TeachingScore != nil {
		e.TeachingScore = in.TeachingScore
	}
	if in.Tags.Set {
		tags, err := normalizeTags(in.Tags.Values)
		if err != nil {
			return err
		}
		e.Tags = tags
	}
	if in.Comment != nil {
		text := strings.TrimSpace(utils.StripHTML(*in.Comment))
		if utf8.RuneCountInString(text) > maxReviewText {
			return invalid("评价内容过长")
		}
		e.Comment = text
	}
	if in.IsAnonymous != nil {
		e.IsAnonymous = *in.IsAnonymous
	}
	return nil
}

// Create 提交评价，每个用户每门课只能评价一次
func (s *EvaluationService) Create(ctx context.Context, user *models.User, in EvaluationInput) (*EvaluationView, error) {
	if user == nil {
		return nil, unauthorized()
	}
	if in.CourseID == nil || *in.CourseID == 0 {
		return nil, invalid("缺少 course_id")
	}
	if in.Score == nil {
		return nil, invalid("缺少评分")
	}

	eval := models.Evaluation{CourseID: *in.CourseID, UserID: user.ID}
	if err := in.apply(&eval); err != nil {
		return nil, err
	}
	eval.UserName = snapshotName(user, eval.IsAnonymous)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureCourse(tx, eval.CourseID); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.Evaluation{}).Where("course_id = ? AND user_id = ?", eval.CourseID, user.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return conflict("您已经评价过该课程")
		}
		// 唯一索引兜住并发提交
		return mapStoreError(tx.Create(&eval).Error, "")
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, conflict("您已经评价过该课程")
		}
		return nil, err
	}
	s.log.Info("evaluation created", "evaluation_id", eval.ID, "course_id", eval.CourseID, "user_id", user.ID)
	return s.viewOne(ctx, eval, user)
}

// loadOwned 读取评价并校验作者
func (s *EvaluationService) loadOwned(tx *gorm.DB, id uint, user *models.User) (*models.Evaluation, error) {
	if user == nil {
		return nil, unauthorized()
	}
	var eval models.Evaluation
	if err := tx.Take(&eval, id).Error; err != nil {
		return nil, mapStoreError(err, "评价不存在")
	}
	if eval.UserID != user.ID {
		return nil, forbidden("只能修改自己的评价")
	}
	return &eval, nil
}

// Authorize 校验 user 是否为评价作者，不读取请求内容
func (s *EvaluationService) Authorize(ctx context.Context, user *models.User, id uint) error {
	_, err := s.loadOwned(s.db.WithContext(ctx), id, user)
	return err
}

// Update 修改本人评价，署名快照随匿名状态重新计算
func (s *EvaluationService) Update(ctx context.Context, user *models.User, id uint, in EvaluationInput) (*EvaluationView, error) {
	eval, err := s.loadOwned(s.db.WithContext(ctx), id, user)
	if err != nil {
		return nil, err
	}
	if in.CourseID != nil && *in.CourseID != eval.CourseID {
		return nil, invalid("不能修改评价所属课程")
	}
	if err := in.apply(eval); err != nil {
		return nil, err
	}
	eval.UserName = snapshotName(user, eval.IsAnonymous)
	if err := s.db.WithContext(ctx).Omit("Course").Save(eval).Error; err != nil {
		return nil, mapStoreError(err, "")
	}
	return s.viewOne(ctx, *eval, user)
}

// Delete 删除本人评价及其点赞
func (s *EvaluationService) Delete(ctx context.Context, user *models.User, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		eval, err := s.loadOwned(tx, id, user)
		if err != nil {
			return err
		}
		if err := deleteLikes(tx, models.LikeTargetEvaluation, eval.ID); err != nil {
			return err
		}
		return tx.Delete(&models.Evaluation{}, eval.ID).Error
	})
}

func (s *EvaluationService) Get(ctx context.Context, id uint, viewer *models.User) (*EvaluationView, error) {
	var eval models.Evaluation
	if err := s.db.WithContext(ctx).Take(&eval, id).Error; err != nil {
		return nil, mapStoreError(err, "评价不存在")
	}
	return s.viewOne(ctx, eval, viewer)
}

const likeCountOrder = "(SELECT COUNT(*) FROM likes WHERE likes.target_type = 'evaluation' AND likes.target_id = evaluations.id) DESC"

// List 评价列表，可按课程筛选
func (s *EvaluationService) List(ctx context.Context, f EvaluationFilter, viewer *models.User) (*Page[EvaluationView], error) {
	query := s.db.WithContext(ctx).Model(&models.Evaluation{})
	if f.CourseID != nil {
		query = query.Where("course_id = ?", *f.CourseID)
	}
	switch f.SortBy {
	case "score":
		query = query.Order("score DESC")
	case "likes":
		query = query.Order(likeCountOrder)
	}
	return s.page(ctx, query.Order("created_at DESC, id DESC"), f.PageQuery, viewer)
}

// ListByUser 某用户的评价；他人查看时不含匿名评价
func (s *EvaluationService) ListByUser(ctx context.Context, userID uint, q PageQuery, viewer *models.User) (*Page[EvaluationView], error) {
	query := s.db.WithContext(ctx).Model(&models.Evaluation{}).Where("user_id = ?", userID)
	if viewer == nil || viewer.ID != userID {
		query = query.Where("is_anonymous = ?", false)
	}
	return s.page(ctx, query.Order("created_at DESC, id DESC"), q, viewer)
}

func (s *EvaluationService) page(ctx context.Context, query *gorm.DB, q PageQuery, viewer *models.User) (*Page[EvaluationView], error) {
	q = q.Normalize()
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}
	var evals []models.Evaluation
	if err := query.Offset(q.Offset()).Limit(q.PerPage).Find(&evals).Error; err != nil {
		return nil, err
	}
	views, err := s.enrich(ctx, evals, viewer)
	if err != nil {
		return nil, err
	}
	return newPage(views, total, q.Page, q.PerPage), nil
}

func (s *EvaluationService) viewOne(ctx context.Context, eval models.Evaluation, viewer *models.User) (*EvaluationView, error) {
	views, err := s.enrich(ctx, []models.Evaluation{eval}, viewer)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// enrich 补充课程名、点赞数和点赞状态；匿名评价对他人隐藏作者 ID
func (s *EvaluationService) enrich(ctx context.Context, evals []models.Evaluation, viewer *models.User) ([]EvaluationView, error) {
	views := make([]EvaluationView, len(evals))
	if len(evals) == 0 {
		return views, nil
	}
	ids := make([]uint, len(evals))
	courseIDs := make([]uint, 0, len(evals))
	for i, e := range evals {
		ids[i] = e.ID
		courseIDs = append(courseIDs, e.CourseID)
	}

	var courses []models.Course
	if err := s.db.WithContext(ctx).Select("id", "name").Where("id IN ?", courseIDs).Find(&courses).Error; err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(courses))
	for _, c := range courses {
		names[c.ID] = c.Name
	}
	likeCounts, err := s.likes.Counts(ctx, models.LikeTargetEvaluation, ids)
	if err != nil {
		return nil, err
	}
	liked, err := s.likes.LikedBy(ctx, viewer, models.LikeTargetEvaluation, ids)
	if err != nil {
		return nil, err
	}

	for i, e := range evals {
		mine := viewer != nil && viewer.ID == e.UserID
		if e.IsAnonymous && !mine {
			e.UserID = 0
		}
		tags := utils.SplitTags(e.Tags)
		if tags == nil {
			tags = []string{}
		}
		views[i] = EvaluationView{
			Evaluation: e,
			CourseName: names[e.CourseID],
			TagList:    tags,
			LikeCount:  likeCounts[e.ID],
			IsLiked:    liked[e.ID],
			IsMine:     mine,
		}
	}
	return views, nil
}
