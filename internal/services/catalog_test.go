package services

import (
	"context"
	"testing"

	"coursehub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteTeacher_BlockedByCourses(t *testing.T) {
	svc, database := newTestContainer(t)
	ctx := context.Background()
	wang := createTeacher(t, database, "王老师", "计算机学院")
	course := createCourse(t, database, "CS101", wang)

	err := svc.Catalog.DeleteTeacher(ctx, wang.ID)
	assert.ErrorIs(t, err, ErrDependencyBlocked)

	require.NoError(t, database.Delete(&models.Course{}, course.ID).Error)
	require.NoError(t, svc.Catalog.DeleteTeacher(ctx, wang.ID))

	err = svc.Catalog.DeleteTeacher(ctx, wang.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCourse_BlockedByContent(t *testing.T) {
	svc, database := newTestContainer(t)
	ctx := context.Background()
	alice := createUser(t, database, "alice")
	withEval := createCourse(t, database, "CS101", nil)
	withComment := createCourse(t, database, "CS102", nil)
	empty := createCourse(t, database, "CS103", nil)

	createEvaluation(t, database, withEval, alice, 4, "")
	_, err := svc.Comments.CreateTopLevel(ctx, withComment.ID, nil, "hello")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Catalog.DeleteCourse(ctx, withEval.ID), ErrDependencyBlocked)
	assert.ErrorIs(t, svc.Catalog.DeleteCourse(ctx, withComment.ID), ErrDependencyBlocked)
	require.NoError(t, svc.Catalog.DeleteCourse(ctx, empty.ID))
}

func TestCreateCourse(t *testing.T) {
	svc, database := newTestContainer(t)
	ctx := context.Background()
	wang := createTeacher(t, database, "王老师", "计算机学院")

	course, err := svc.Catalog.CreateCourse(ctx, CourseInput{
		CourseCode: ptr("CS201"),
		Name:       ptr("数据结构"),
		Credit:     ptr(3.0),
		TeacherID:  &wang.ID,
	})
	require.NoError(t, err)
	assert.NotZero(t, course.ID)

	_, err = svc.Catalog.CreateCourse(ctx, CourseInput{CourseCode: ptr("CS201"), Name: ptr("重复")})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Catalog.CreateCourse(ctx, CourseInput{Name: ptr("没有代码")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	missing := uint(999)
	_, err = svc.Catalog.CreateCourse(ctx, CourseInput{CourseCode: ptr("CS202"), Name: ptr("x"), TeacherID: &missing})
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := svc.Catalog.UpdateCourse(ctx, course.ID, CourseInput{Semester: ptr("2025-春")})
	require.NoError(t, err)
	assert.Equal(t, "2025-春", updated.Semester)
	assert.Equal(t, "数据结构", updated.Name)
}

func TestListCourses_FiltersAndSort(t *testing.T) {
	svc, database := newTestContainer(t)
	ctx := context.Background()
	users := seedUsers(t, database, 2)
	wang := createTeacher(t, database, "王老师", "计算机学院")
	li := createTeacher(t, database, "李老师", "数学学院")

	c1 := createCourse(t, database, "CS101", wang)
	c2 := createCourse(t, database, "MA101", li)
	c3 := createCourse(t, database, "CS102", wang)

	createEvaluation(t, database, c1, users[0], 3, "")
	createEvaluation(t, database, c2, users[0], 5, "")
	createEvaluation(t, database, c2, users[1], 4, "")

	page, err := svc.Catalog.ListCourses(ctx, CourseFilter{SortBy: "score"})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, c2.ID, page.Items[0].ID)
	assert.Equal(t, 4.5, page.Items[0].AvgScore)
	assert.Equal(t, 2, page.Items[0].EvaluationCount)
	assert.Equal(t, c3.ID, page.Items[2].ID)

	page, err = svc.Catalog.ListCourses(ctx, CourseFilter{Departments: []string{"计算机学院"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, c3.ID, page.Items[0].ID)

	page, err = svc.Catalog.ListCourses(ctx, CourseFilter{Keyword: "李老师"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, c2.ID, page.Items[0].ID)
	require.NotNil(t, page.Items[0].Teacher)
	assert.Equal(t, "李老师", page.Items[0].Teacher.Name)

	page, err = svc.Catalog.ListCourses(ctx, CourseFilter{PageQuery: PageQuery{Page: 2, PerPage: 2}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Items, 1)
}

func TestGetCourseAndTeacher(t *testing.T) {
	svc, database := newTestContainer(t)
	ctx := context.Background()
	alice := createUser(t, database, "alice")
	wang := createTeacher(t, database, "王老师", "计算机学院")
	course := createCourse(t, database, "CS101", wang)
	createEvaluation(t, database, course, alice, 4, "有趣")

	detail, err := svc.Catalog.GetCourse(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, detail.AvgScore)
	require.NotNil(t, detail.Stats)
	assert.Equal(t, "有趣", detail.Stats.PopularTags[0].Tag)

	teacher, err := svc.Catalog.GetTeacher(ctx, wang.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), teacher.CourseCount)
	assert.Equal(t, 4.0, teacher.AvgScore)

	courses, err := svc.Catalog.TeacherCourses(ctx, wang.ID)
	require.NoError(t, err)
	assert.Len(t, courses, 1)

	_, err = svc.Catalog.GetCourse(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Catalog.TeacherCourses(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTeacherCreateUpdate(t *testing.T) {
	svc, _ := newTestContainer(t)
	ctx := context.Background()

	_, err := svc.Catalog.CreateTeacher(ctx, TeacherInput{Name: ptr("  ")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	teacher, err := svc.Catalog.CreateTeacher(ctx, TeacherInput{Name: ptr("王老师"), Department: ptr("计算机学院")})
	require.NoError(t, err)

	updated, err := svc.Catalog.UpdateTeacher(ctx, teacher.ID, TeacherInput{Title: ptr("教授")})
	require.NoError(t, err)
	assert.Equal(t, "教授", updated.Title)
	assert.Equal(t, "计算机学院", updated.Department)

	page, err := svc.Catalog.ListTeachers(ctx, TeacherFilter{Department: "计算机学院"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}
