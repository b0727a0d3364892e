package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"coursehub/internal/logger"
	"coursehub/internal/models"
	"coursehub/internal/utils"

	"gorm.io/gorm"
)

// TeacherInput 创建/更新教师，nil 字段表示不修改
type TeacherInput struct {
	Name         *string `json:"name"`
	Department   *string `json:"department"`
	Title        *string `json:"title"`
	Introduction *string `json:"introduction"`
}

// CourseInput 创建/更新课程，nil 字段表示不修改
type CourseInput struct {
	CourseCode  *string  `json:"course_code"`
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Credit      *float64 `json:"credit" binding:"omitempty,gte=0,lte=30"`
	Semester    *string  `json:"semester"`
	TeacherID   *uint    `json:"teacher_id"`
}

type TeacherSummary struct {
	models.Teacher
	CourseCount     int64   `json:"course_count"`
	AvgScore        float64 `json:"avg_score"`
	EvaluationCount int     `json:"evaluation_count"`
}

type CourseSummary struct {
	models.Course
	AvgScore        float64 `json:"avg_score"`
	EvaluationCount int     `json:"evaluation_count"`
	CommentCount    int64   `json:"comment_count"`
}

type CourseDetail struct {
	CourseSummary
	Stats *CourseStats `json:"stats"`
}

// CourseFilter 课程列表筛选
type CourseFilter struct {
	Semester    string
	Departments []string
	TeacherID   *uint
	Keyword     string
	SortBy      string
	PageQuery
}

type TeacherFilter struct {
	Department string
	Keyword    string
	PageQuery
}

type CatalogService struct {
	db          *gorm.DB
	aggregation *AggregationService
	log         *logger.Logger
}

func NewCatalogService(db *gorm.DB, aggregation *AggregationService, log *logger.Logger) *CatalogService {
	return &CatalogService{db: db, aggregation: aggregation, log: log.With("service", "CatalogService")}
}

func ensureCourse(db *gorm.DB, id uint) error {
	var n int64
	if err := db.Model(&models.Course{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return notFound("课程不存在")
	}
	return nil
}

func ensureTeacher(db *gorm.DB, id uint) error {
	var n int64
	if err := db.Model(&models.Teacher{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return notFound("教师不存在")
	}
	return nil
}

func trimmed(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

// ---- 教师 ----

func (s *CatalogService) ListTeachers(ctx context.Context, f TeacherFilter) (*Page[TeacherSummary], error) {
	q := f.PageQuery.Normalize()
	query := s.db.WithContext(ctx).Model(&models.Teacher{})
	if f.Department != "" {
		query = query.Where("department = ?", f.Department)
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		query = query.Where("name LIKE ?", "%"+kw+"%")
	}
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}
	var teachers []models.Teacher
	if err := query.Order("id ASC").Offset(q.Offset()).Limit(q.PerPage).Find(&teachers).Error; err != nil {
		return nil, err
	}
	items, err := s.summarizeTeachers(ctx, teachers)
	if err != nil {
		return nil, err
	}
	return newPage(items, total, q.Page, q.PerPage), nil
}

func (s *CatalogService) GetTeacher(ctx context.Context, id uint) (*TeacherSummary, error) {
	var teacher models.Teacher
	if err := s.db.WithContext(ctx).Take(&teacher, id).Error; err != nil {
		return nil, mapStoreError(err, "教师不存在")
	}
	items, err := s.summarizeTeachers(ctx, []models.Teacher{teacher})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (s *CatalogService) summarizeTeachers(ctx context.Context, teachers []models.Teacher) ([]TeacherSummary, error) {
	out := make([]TeacherSummary, len(teachers))
	if len(teachers) == 0 {
		return out, nil
	}
	ids := make([]uint, len(teachers))
	for i, t := range teachers {
		ids[i] = t.ID
	}
	var courses []models.Course
	if err := s.db.WithContext(ctx).Select("id", "teacher_id").Where("teacher_id IN ?", ids).Find(&courses).Error; err != nil {
		return nil, err
	}
	courseIDs := make([]uint, len(courses))
	for i, c := range courses {
		courseIDs[i] = c.ID
	}
	scores, err := scoresByCourse(s.db.WithContext(ctx), courseIDs)
	if err != nil {
		return nil, err
	}

	courseCount := make(map[uint]int64)
	evals := make(map[uint][]models.Evaluation)
	for _, c := range courses {
		courseCount[*c.TeacherID]++
		evals[*c.TeacherID] = append(evals[*c.TeacherID], scores[c.ID]...)
	}
	for i, t := range teachers {
		avg, n := utils.AverageScore(evals[t.ID])
		out[i] = TeacherSummary{Teacher: t, CourseCount: courseCount[t.ID], AvgScore: avg, EvaluationCount: n}
	}
	return out, nil
}

func (s *CatalogService) CreateTeacher(ctx context.Context, in TeacherInput) (*models.Teacher, error) {
	name := utils.StripHTML(trimmed(in.Name))
	if name == "" {
		return nil, invalid("教师姓名不能为空")
	}
	teacher := models.Teacher{
		Name:         name,
		Department:   trimmed(in.Department),
		Title:        trimmed(in.Title),
		Introduction: trimmed(in.Introduction),
	}
	if err := s.db.WithContext(ctx).Create(&teacher).Error; err != nil {
		return nil, mapStoreError(err, "")
	}
	return &teacher, nil
}

func (s *CatalogService) UpdateTeacher(ctx context.Context, id uint, in TeacherInput) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := s.db.WithContext(ctx).Take(&teacher, id).Error; err != nil {
		return nil, mapStoreError(err, "教师不存在")
	}
	if in.Name != nil {
		name := utils.StripHTML(*in.Name)
		if name == "" {
			return nil, invalid("教师姓名不能为空")
		}
		teacher.Name = name
	}
	if in.Department != nil {
		teacher.Department = trimmed(in.Department)
	}
	if in.Title != nil {
		teacher.Title = trimmed(in.Title)
	}
	if in.Introduction != nil {
		teacher.Introduction = trimmed(in.Introduction)
	}
	if err := s.db.WithContext(ctx).Save(&teacher).Error; err != nil {
		return nil, mapStoreError(err, "")
	}
	return &teacher, nil
}

// DeleteTeacher 仍有课程时不允许删除
func (s *CatalogService) DeleteTeacher(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureTeacher(tx, id); err != nil {
			return err
		}
		var courses int64
		if err := tx.Model(&models.Course{}).Where("teacher_id = ?", id).Count(&courses).Error; err != nil {
			return err
		}
		if courses > 0 {
			return blocked("该教师仍有关联课程，无法删除")
		}
		return mapStoreError(tx.Delete(&models.Teacher{}, id).Error, "")
	})
}

// TeacherCourses 教师名下的课程
func (s *CatalogService) TeacherCourses(ctx context.Context, teacherID uint) ([]CourseSummary, error) {
	if err := ensureTeacher(s.db.WithContext(ctx), teacherID); err != nil {
		return nil, err
	}
	var courses []models.Course
	if err := s.db.WithContext(ctx).Preload("Teacher").Where("teacher_id = ?", teacherID).Order("id ASC").Find(&courses).Error; err != nil {
		return nil, err
	}
	return s.summarizeCourses(ctx, courses)
}

// ---- 课程 ----

// ListCourses 课程列表，平均分与评价数现算，排序后分页
func (s *CatalogService) ListCourses(ctx context.Context, f CourseFilter) (*Page[CourseSummary], error) {
	q := f.PageQuery.Normalize()
	query := s.db.WithContext(ctx).Model(&models.Course{}).
		Select("courses.*").
		Joins("LEFT JOIN teachers ON teachers.id = courses.teacher_id")
	if f.Semester != "" {
		query = query.Where("courses.semester = ?", f.Semester)
	}
	if len(f.Departments) > 0 {
		query = query.Where("teachers.department IN ?", f.Departments)
	}
	if f.TeacherID != nil {
		query = query.Where("courses.teacher_id = ?", *f.TeacherID)
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		like := "%" + kw + "%"
		query = query.Where("courses.name LIKE ? OR courses.course_code LIKE ? OR teachers.name LIKE ?", like, like, like)
	}

	var courses []models.Course
	if err := query.Preload("Teacher").Order("courses.id ASC").Find(&courses).Error; err != nil {
		return nil, err
	}
	items, err := s.summarizeCourses(ctx, courses)
	if err != nil {
		return nil, err
	}
	sortCourses(items, f.SortBy)

	total := int64(len(items))
	start := q.Offset()
	if start < 0 || start > len(items) {
		start = len(items)
	}
	end := start + q.PerPage
	if end > len(items) {
		end = len(items)
	}
	return newPage(items[start:end], total, q.Page, q.PerPage), nil
}

func sortCourses(items []CourseSummary, sortBy string) {
	var less func(a, b CourseSummary) bool
	switch sortBy {
	case "name":
		less = func(a, b CourseSummary) bool { return a.Name < b.Name }
	case "score", "score_desc":
		less = func(a, b CourseSummary) bool { return a.AvgScore > b.AvgScore }
	case "score_asc":
		less = func(a, b CourseSummary) bool { return a.AvgScore < b.AvgScore }
	case "comments_desc":
		less = func(a, b CourseSummary) bool { return a.CommentCount > b.CommentCount }
	case "evaluations_desc":
		less = func(a, b CourseSummary) bool { return a.EvaluationCount > b.EvaluationCount }
	default:
		less = func(a, b CourseSummary) bool {
			if a.CreatedAt.Equal(b.CreatedAt) {
				return a.ID > b.ID
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

func (s *CatalogService) summarizeCourses(ctx context.Context, courses []models.Course) ([]CourseSummary, error) {
	out := make([]CourseSummary, len(courses))
	if len(courses) == 0 {
		return out, nil
	}
	ids := make([]uint, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}
	scores, err := scoresByCourse(s.db.WithContext(ctx), ids)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		CourseID uint
		Count    int64
	}
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Select("course_id, COUNT(*) AS count").
		Where("course_id IN ?", ids).
		Group("course_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	comments := make(map[uint]int64, len(rows))
	for _, r := range rows {
		comments[r.CourseID] = r.Count
	}
	for i, c := range courses {
		avg, n := utils.AverageScore(scores[c.ID])
		out[i] = CourseSummary{Course: c, AvgScore: avg, EvaluationCount: n, CommentCount: comments[c.ID]}
	}
	return out, nil
}

// GetCourse 课程详情，附带评分汇总
func (s *CatalogService) GetCourse(ctx context.Context, id uint) (*CourseDetail, error) {
	var course models.Course
	if err := s.db.WithContext(ctx).Preload("Teacher").Take(&course, id).Error; err != nil {
		return nil, mapStoreError(err, "课程不存在")
	}
	summaries, err := s.summarizeCourses(ctx, []models.Course{course})
	if err != nil {
		return nil, err
	}
	stats, err := s.aggregation.CourseStats(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CourseDetail{CourseSummary: summaries[0], Stats: stats}, nil
}

func (s *CatalogService) CreateCourse(ctx context.Context, in CourseInput) (*models.Course, error) {
	course := models.Course{
		CourseCode:  utils.StripHTML(trimmed(in.CourseCode)),
		Name:        utils.StripHTML(trimmed(in.Name)),
		Description: trimmed(in.Description),
		Semester:    trimmed(in.Semester),
		TeacherID:   in.TeacherID,
	}
	if course.CourseCode == "" || course.Name == "" {
		return nil, invalid("课程代码和名称不能为空")
	}
	if in.Credit != nil {
		course.Credit = *in.Credit
	}
	if err := s.saveCourse(ctx, &course, true); err != nil {
		return nil, err
	}
	return &course, nil
}

func (s *CatalogService) UpdateCourse(ctx context.Context, id uint, in CourseInput) (*models.Course, error) {
	var course models.Course
	if err := s.db.WithContext(ctx).Take(&course, id).Error; err != nil {
		return nil, mapStoreError(err, "课程不存在")
	}
	if in.CourseCode != nil {
		if course.CourseCode = utils.StripHTML(*in.CourseCode); course.CourseCode == "" {
			return nil, invalid("课程代码不能为空")
		}
	}
	if in.Name != nil {
		if course.Name = utils.StripHTML(*in.Name); course.Name == "" {
			return nil, invalid("课程名称不能为空")
		}
	}
	if in.Description != nil {
		course.Description = trimmed(in.Description)
	}
	if in.Credit != nil {
		course.Credit = *in.Credit
	}
	if in.Semester != nil {
		course.Semester = trimmed(in.Semester)
	}
	if in.TeacherID != nil {
		course.TeacherID = in.TeacherID
		course.Teacher = nil
	}
	if err := s.saveCourse(ctx, &course, false); err != nil {
		return nil, err
	}
	return &course, nil
}

func (s *CatalogService) saveCourse(ctx context.Context, course *models.Course, create bool) error {
	if course.Credit < 0 {
		return invalid("学分不能为负数")
	}
	if course.TeacherID != nil {
		if err := ensureTeacher(s.db.WithContext(ctx), *course.TeacherID); err != nil {
			return err
		}
	}
	var err error
	if create {
		err = s.db.WithContext(ctx).Create(course).Error
	} else {
		err = s.db.WithContext(ctx).Omit("Teacher").Save(course).Error
	}
	if err = mapStoreError(err, ""); err != nil {
		if errors.Is(err, ErrConflict) {
			return conflict("课程代码已存在")
		}
		return err
	}
	return nil
}

// DeleteCourse 仍有评价或讨论时不允许删除
func (s *CatalogService) DeleteCourse(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureCourse(tx, id); err != nil {
			return err
		}
		var evals, comments int64
		if err := tx.Model(&models.Evaluation{}).Where("course_id = ?", id).Count(&evals).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Comment{}).Where("course_id = ?", id).Count(&comments).Error; err != nil {
			return err
		}
		if evals > 0 || comments > 0 {
			return blocked("该课程仍有评价或讨论，无法删除")
		}
		return mapStoreError(tx.Delete(&models.Course{}, id).Error, "")
	})
}
