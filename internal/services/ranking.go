package services

import (
	"context"
	"time"

	"coursehub/internal/logger"
	"coursehub/internal/models"
	"coursehub/internal/utils"

	"gorm.io/gorm"
)

// UnknownDepartment 教师未填写院系时的归类
const UnknownDepartment = "未知"

// RankingQuery 排行榜参数；Window 取 week/month/year，其他值不限时间
type RankingQuery struct {
	Semester   string
	Department string
	Window     string
	Limit      int
}

type CourseRankEntry struct {
	Rank            int     `json:"rank"`
	CourseID        uint    `json:"course_id"`
	CourseCode      string  `json:"course_code"`
	Name            string  `json:"name"`
	Semester        string  `json:"semester"`
	TeacherName     string  `json:"teacher_name"`
	AvgScore        float64 `json:"avg_score"`
	EvaluationCount int     `json:"evaluation_count"`
}

type TeacherRankEntry struct {
	Rank            int     `json:"rank"`
	TeacherID       uint    `json:"teacher_id"`
	Name            string  `json:"name"`
	Department      string  `json:"department"`
	Title           string  `json:"title"`
	AvgScore        float64 `json:"avg_score"`
	EvaluationCount int     `json:"evaluation_count"`
	CourseCount     int     `json:"course_count"`
}

type TagRankEntry struct {
	Rank  int    `json:"rank"`
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type DepartmentRankEntry struct {
	Rank            int     `json:"rank"`
	Department      string  `json:"department"`
	AvgScore        float64 `json:"avg_score"`
	EvaluationCount int     `json:"evaluation_count"`
	CourseCount     int     `json:"course_count"`
}

// RankingService 排行榜，每次请求按当前数据现算
type RankingService struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func NewRankingService(db *gorm.DB, log *logger.Logger) *RankingService {
	return &RankingService{db: db, log: log.With("service", "RankingService"), now: time.Now}
}

type windowedScore struct {
	ID       uint
	CourseID uint
	Score    float64
	Tags     string
}

// evaluationsIn 时间窗口内的评价，按 id 顺序
func (s *RankingService) evaluationsIn(ctx context.Context, window string, courseIDs []uint) ([]windowedScore, error) {
	query := s.db.WithContext(ctx).Model(&models.Evaluation{}).Select("id, course_id, score, tags")
	if courseIDs != nil {
		if len(courseIDs) == 0 {
			return nil, nil
		}
		query = query.Where("course_id IN ?", courseIDs)
	}
	if start, ok := utils.WindowStart(window, s.now()); ok {
		query = query.Where("created_at >= ?", start)
	}
	var rows []windowedScore
	err := query.Order("id ASC").Scan(&rows).Error
	return rows, err
}

// Courses 课程排行
func (s *RankingService) Courses(ctx context.Context, q RankingQuery) ([]CourseRankEntry, error) {
	query := s.db.WithContext(ctx).Preload("Teacher").Order("id ASC")
	if q.Semester != "" {
		query = query.Where("semester = ?", q.Semester)
	}
	var courses []models.Course
	if err := query.Find(&courses).Error; err != nil {
		return nil, err
	}

	tally := utils.NewTally[uint]()
	byID := make(map[uint]models.Course, len(courses))
	ids := make([]uint, len(courses))
	for i, c := range courses {
		tally.Seed(c.ID)
		byID[c.ID] = c
		ids[i] = c.ID
	}
	evals, err := s.evaluationsIn(ctx, q.Window, ids)
	if err != nil {
		return nil, err
	}
	for _, e := range evals {
		tally.Add(e.CourseID, e.CourseID, e.Score)
	}

	ranked := tally.Rank(utils.NormalizeLimit(q.Limit, utils.DefaultRankLimit))
	out := make([]CourseRankEntry, len(ranked))
	for i, r := range ranked {
		c := byID[r.Key]
		entry := CourseRankEntry{
			Rank:            r.Rank,
			CourseID:        c.ID,
			CourseCode:      c.CourseCode,
			Name:            c.Name,
			Semester:        c.Semester,
			AvgScore:        r.Score,
			EvaluationCount: r.Count,
		}
		if c.Teacher != nil {
			entry.TeacherName = c.Teacher.Name
		}
		out[i] = entry
	}
	return out, nil
}

// Teachers 教师排行，分数为其全部课程评价的总体均值
func (s *RankingService) Teachers(ctx context.Context, q RankingQuery) ([]TeacherRankEntry, error) {
	query := s.db.WithContext(ctx).Order("id ASC")
	if q.Department != "" {
		query = query.Where("department = ?", q.Department)
	}
	var teachers []models.Teacher
	if err := query.Find(&teachers).Error; err != nil {
		return nil, err
	}

	tally := utils.NewTally[uint]()
	byID := make(map[uint]models.Teacher, len(teachers))
	teacherIDs := make([]uint, len(teachers))
	for i, t := range teachers {
		tally.Seed(t.ID)
		byID[t.ID] = t
		teacherIDs[i] = t.ID
	}

	courseOwner, courseIDs, err := s.courseOwners(ctx, teacherIDs)
	if err != nil {
		return nil, err
	}
	evals, err := s.evaluationsIn(ctx, q.Window, courseIDs)
	if err != nil {
		return nil, err
	}
	for _, e := range evals {
		tally.Add(courseOwner[e.CourseID], e.CourseID, e.Score)
	}

	ranked := tally.Rank(utils.NormalizeLimit(q.Limit, utils.DefaultRankLimit))
	out := make([]TeacherRankEntry, len(ranked))
	for i, r := range ranked {
		t := byID[r.Key]
		out[i] = TeacherRankEntry{
			Rank:            r.Rank,
			TeacherID:       t.ID,
			Name:            t.Name,
			Department:      t.Department,
			Title:           t.Title,
			AvgScore:        r.Score,
			EvaluationCount: r.Count,
			CourseCount:     r.MemberCount,
		}
	}
	return out, nil
}

func (s *RankingService) courseOwners(ctx context.Context, teacherIDs []uint) (map[uint]uint, []uint, error) {
	owners := make(map[uint]uint)
	courseIDs := []uint{}
	if len(teacherIDs) == 0 {
		return owners, courseIDs, nil
	}
	var courses []models.Course
	if err := s.db.WithContext(ctx).Select("id", "teacher_id").Where("teacher_id IN ?", teacherIDs).Order("id ASC").Find(&courses).Error; err != nil {
		return nil, nil, err
	}
	for _, c := range courses {
		owners[c.ID] = *c.TeacherID
		courseIDs = append(courseIDs, c.ID)
	}
	return owners, courseIDs, nil
}

// Tags 全站标签词频排行，统计全部评价，不受时间窗口限制
func (s *RankingService) Tags(ctx context.Context, q RankingQuery) ([]TagRankEntry, error) {
	evals, err := s.evaluationsIn(ctx, "", nil)
	if err != nil {
		return nil, err
	}
	fields := make([]string, len(evals))
	for i, e := range evals {
		fields[i] = e.Tags
	}
	counts := utils.CountTags(fields, utils.NormalizeLimit(q.Limit, utils.DefaultTagRankLimit))
	out := make([]TagRankEntry, len(counts))
	for i, c := range counts {
		out[i] = TagRankEntry{Rank: i + 1, Tag: c.Tag, Count: c.Count}
	}
	return out, nil
}

// Departments 院系排行：按教师院系归并课程，没有教师的课程不参与
func (s *RankingService) Departments(ctx context.Context, q RankingQuery) ([]DepartmentRankEntry, error) {
	var courses []models.Course
	if err := s.db.WithContext(ctx).Preload("Teacher").Where("teacher_id IS NOT NULL").Order("id ASC").Find(&courses).Error; err != nil {
		return nil, err
	}

	tally := utils.NewTally[string]()
	department := make(map[uint]string, len(courses))
	ids := make([]uint, 0, len(courses))
	for _, c := range courses {
		if c.Teacher == nil {
			continue
		}
		name := c.Teacher.Department
		if name == "" {
			name = UnknownDepartment
		}
		tally.Seed(name)
		department[c.ID] = name
		ids = append(ids, c.ID)
	}
	evals, err := s.evaluationsIn(ctx, q.Window, ids)
	if err != nil {
		return nil, err
	}
	for _, e := range evals {
		tally.Add(department[e.CourseID], e.CourseID, e.Score)
	}

	ranked := tally.Rank(utils.NormalizeLimit(q.Limit, utils.DefaultRankLimit))
	out := make([]DepartmentRankEntry, len(ranked))
	for i, r := range ranked {
		out[i] = DepartmentRankEntry{
			Rank:            r.Rank,
			Department:      r.Key,
			AvgScore:        r.Score,
			EvaluationCount: r.Count,
			CourseCount:     r.MemberCount,
		}
	}
	return out, nil
}
