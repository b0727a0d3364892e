package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"coursehub/internal/logger"
	"coursehub/internal/models"
	"coursehub/internal/utils"

	"gorm.io/gorm"
)

const (
	maxCommentLen     = 2000
	replyPreviewCount = 3
)

// CommentView 讨论/回复的展示结构
type CommentView struct {
	models.Comment
	ContentHTML string        `json:"content_html"`
	ReplyCount  int64         `json:"reply_count"`
	LikeCount   int64         `json:"like_count"`
	IsLiked     bool          `json:"is_liked"`
	Replies     []CommentView `json:"replies,omitempty"`
}

type CommentService struct {
	db    *gorm.DB
	likes *LikeService
	log   *logger.Logger
}

func NewCommentService(db *gorm.DB, likes *LikeService, log *logger.Logger) *CommentService {
	return &CommentService{db: db, likes: likes, log: log.With("service", "CommentService")}
}

func normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", invalid("内容不能为空")
	}
	if utf8.RuneCountInString(content) > maxCommentLen {
		return "", invalid("内容过长")
	}
	return content, nil
}

// authorOf 未登录时以匿名身份发表
func authorOf(user *models.User) (*uint, string) {
	if user == nil {
		return nil, utils.AnonymousName
	}
	id := user.ID
	return &id, user.Nickname
}

// CreateTopLevel 发表顶级讨论
func (s *CommentService) CreateTopLevel(ctx context.Context, courseID uint, author *models.User, content string) (*CommentView, error) {
	content, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}
	if err := ensureCourse(s.db.WithContext(ctx), courseID); err != nil {
		return nil, err
	}

	userID, userName := authorOf(author)
	comment := models.Comment{
		CourseID: courseID,
		UserID:   userID,
		UserName: userName,
		Content:  content,
	}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, mapStoreError(err, "")
	}
	return s.viewOne(ctx, comment, author)
}

// CreateReply 回复讨论，课程继承自父评论；显式给出的课程与父评论不一致时拒绝
func (s *CommentService) CreateReply(ctx context.Context, parentID uint, courseID *uint, author *models.User, content string) (*CommentView, error) {
	content, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}

	var parent models.Comment
	if err := s.db.WithContext(ctx).Take(&parent, parentID).Error; err != nil {
		return nil, mapStoreError(err, "父评论不存在")
	}
	if courseID != nil && *courseID != parent.CourseID {
		return nil, invalid("父评论不属于该课程")
	}

	userID, userName := authorOf(author)
	reply := models.Comment{
		CourseID: parent.CourseID,
		UserID:   userID,
		UserName: userName,
		ParentID: &parent.ID,
		Content:  content,
	}
	if err := s.db.WithContext(ctx).Create(&reply).Error; err != nil {
		return nil, mapStoreError(err, "")
	}
	return s.viewOne(ctx, reply, author)
}

// loadOwned 读取评论并校验作者；匿名评论没有作者，任何人都不能修改
func (s *CommentService) loadOwned(tx *gorm.DB, id uint, author *models.User) (*models.Comment, error) {
	if author == nil {
		return nil, unauthorized()
	}
	var comment models.Comment
	if err := tx.Take(&comment, id).Error; err != nil {
		return nil, mapStoreError(err, "评论不存在")
	}
	if comment.UserID == nil || *comment.UserID != author.ID {
		return nil, forbidden("只能修改自己的评论")
	}
	return &comment, nil
}

// Authorize 校验 author 是否为评论作者，不读取请求内容
func (s *CommentService) Authorize(ctx context.Context, id uint, author *models.User) error {
	_, err := s.loadOwned(s.db.WithContext(ctx), id, author)
	return err
}

// Update 修改评论内容
func (s *CommentService) Update(ctx context.Context, id uint, author *models.User, content string) (*CommentView, error) {
	comment, err := s.loadOwned(s.db.WithContext(ctx), id, author)
	if err != nil {
		return nil, err
	}
	content, err = normalizeContent(content)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(comment).Update("content", content).Error; err != nil {
		return nil, err
	}
	comment.Content = content
	return s.viewOne(ctx, *comment, author)
}

// Delete 删除评论及其全部子回复，连同这些节点上的点赞，在同一事务中完成。返回删除的评论数
func (s *CommentService) Delete(ctx context.Context, id uint, author *models.User) (int, error) {
	var removed int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		root, err := s.loadOwned(tx, id, author)
		if err != nil {
			return err
		}

		var nodes []models.Comment
		if err := tx.Select("id", "parent_id").Where("course_id = ?", root.CourseID).Find(&nodes).Error; err != nil {
			return err
		}
		ids := subtree(root.ID, childrenIndex(nodes))

		if err := deleteLikes(tx, models.LikeTargetComment, ids...); err != nil {
			return err
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		removed = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("comment subtree deleted", "comment_id", id, "removed", removed)
	return removed, nil
}

// childrenIndex 由 parent_id 推出的子节点索引，不存储
func childrenIndex(nodes []models.Comment) map[uint][]uint {
	children := make(map[uint][]uint, len(nodes))
	for _, n := range nodes {
		if n.ParentID != nil {
			children[*n.ParentID] = append(children[*n.ParentID], n.ID)
		}
	}
	return children
}

// subtree 深度优先遍历，子节点排在父节点之前
func subtree(root uint, children map[uint][]uint) []uint {
	var order []uint
	visited := map[uint]bool{}
	var walk func(id uint)
	walk = func(id uint) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, child := range children[id] {
			walk(child)
		}
		order = append(order, id)
	}
	walk(root)
	return order
}

// ListTopLevel 顶级讨论列表，最新在前，附带前几条回复预览
func (s *CommentService) ListTopLevel(ctx context.Context, courseID *uint, q PageQuery, viewer *models.User) (*Page[CommentView], error) {
	q = q.Normalize()
	query := s.db.WithContext(ctx).Model(&models.Comment{}).Where("parent_id IS NULL")
	if courseID != nil {
		query = query.Where("course_id = ?", *courseID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}
	var comments []models.Comment
	if err := query.Order("created_at DESC, id DESC").Offset(q.Offset()).Limit(q.PerPage).Find(&comments).Error; err != nil {
		return nil, err
	}
	views, err := s.enrich(ctx, comments, viewer)
	if err != nil {
		return nil, err
	}
	if err := s.attachPreviews(ctx, views, viewer); err != nil {
		return nil, err
	}
	return newPage(views, total, q.Page, q.PerPage), nil
}

func (s *CommentService) attachPreviews(ctx context.Context, views []CommentView, viewer *models.User) error {
	if len(views) == 0 {
		return nil
	}
	ids := make([]uint, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	var replies []models.Comment
	if err := s.db.WithContext(ctx).Where("parent_id IN ?", ids).Order("created_at ASC, id ASC").Find(&replies).Error; err != nil {
		return err
	}

	perParent := make(map[uint]int)
	var preview []models.Comment
	for _, r := range replies {
		if perParent[*r.ParentID] < replyPreviewCount {
			perParent[*r.ParentID]++
			preview = append(preview, r)
		}
	}
	previewViews, err := s.enrich(ctx, preview, viewer)
	if err != nil {
		return err
	}
	pos := make(map[uint]int, len(views))
	for i, v := range views {
		pos[v.ID] = i
	}
	for _, r := range previewViews {
		i := pos[*r.ParentID]
		views[i].Replies = append(views[i].Replies, r)
	}
	return nil
}

// ListReplies 父评论的直接回复，按创建顺序
func (s *CommentService) ListReplies(ctx context.Context, commentID uint, viewer *models.User) ([]CommentView, error) {
	if err := s.db.WithContext(ctx).Take(&models.Comment{}, commentID).Error; err != nil {
		return nil, mapStoreError(err, "评论不存在")
	}
	var replies []models.Comment
	if err := s.db.WithContext(ctx).Where("parent_id = ?", commentID).Order("created_at ASC, id ASC").Find(&replies).Error; err != nil {
		return nil, err
	}
	return s.enrich(ctx, replies, viewer)
}

// Get 单条讨论及其全部直接回复
func (s *CommentService) Get(ctx context.Context, id uint, viewer *models.User) (*CommentView, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).Take(&comment, id).Error; err != nil {
		return nil, mapStoreError(err, "评论不存在")
	}
	view, err := s.viewOne(ctx, comment, viewer)
	if err != nil {
		return nil, err
	}
	replies, err := s.ListReplies(ctx, id, viewer)
	if err != nil {
		return nil, err
	}
	view.Replies = replies
	return view, nil
}

// ListByUser 某用户发表的评论，最新在前
func (s *CommentService) ListByUser(ctx context.Context, userID uint, q PageQuery, viewer *models.User) (*Page[CommentView], error) {
	q = q.Normalize()
	query := s.db.WithContext(ctx).Model(&models.Comment{}).Where("user_id = ?", userID)
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}
	var comments []models.Comment
	if err := query.Order("created_at DESC, id DESC").Offset(q.Offset()).Limit(q.PerPage).Find(&comments).Error; err != nil {
		return nil, err
	}
	views, err := s.enrich(ctx, comments, viewer)
	if err != nil {
		return nil, err
	}
	return newPage(views, total, q.Page, q.PerPage), nil
}

func (s *CommentService) viewOne(ctx context.Context, comment models.Comment, viewer *models.User) (*CommentView, error) {
	views, err := s.enrich(ctx, []models.Comment{comment}, viewer)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// enrich 批量补充回复数、点赞数和当前用户的点赞状态
func (s *CommentService) enrich(ctx context.Context, comments []models.Comment, viewer *models.User) ([]CommentView, error) {
	views := make([]CommentView, len(comments))
	if len(comments) == 0 {
		return views, nil
	}
	ids := make([]uint, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}

	var rows []struct {
		ParentID uint
		Count    int64
	}
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Select("parent_id, COUNT(*) AS count").
		Where("parent_id IN ?", ids).
		Group("parent_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	replyCounts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		replyCounts[r.ParentID] = r.Count
	}

	likeCounts, err := s.likes.Counts(ctx, models.LikeTargetComment, ids)
	if err != nil {
		return nil, err
	}
	liked, err := s.likes.LikedBy(ctx, viewer, models.LikeTargetComment, ids)
	if err != nil {
		return nil, err
	}

	for i, c := range comments {
		views[i] = CommentView{
			Comment:     c,
			ContentHTML: utils.RenderMarkdown(c.Content),
			ReplyCount:  replyCounts[c.ID],
			LikeCount:   likeCounts[c.ID],
			IsLiked:     liked[c.ID],
		}
	}
	return views, nil
}
