package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"coursehub/internal/config"
	"coursehub/internal/db"
	"coursehub/internal/logger"
	"coursehub/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB 每个测试一个独立的内存库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(database))
	return database
}

func testConfig() *config.Config {
	return &config.Config{SecretKey: "test-secret", TokenTTL: time.Hour, AuthDevMode: true}
}

func newTestContainer(t *testing.T) (*Container, *gorm.DB) {
	t.Helper()
	database := newTestDB(t)
	svc, err := NewContainer(database, testConfig(), DevExchanger{}, logger.Nop())
	require.NoError(t, err)
	return svc, database
}

func createUser(t *testing.T, database *gorm.DB, nickname string) *models.User {
	t.Helper()
	u := &models.User{OpenID: "openid_" + nickname, Nickname: nickname}
	require.NoError(t, database.Create(u).Error)
	return u
}

func createTeacher(t *testing.T, database *gorm.DB, name, department string) *models.Teacher {
	t.Helper()
	teacher := &models.Teacher{Name: name, Department: department}
	require.NoError(t, database.Create(teacher).Error)
	return teacher
}

func createCourse(t *testing.T, database *gorm.DB, code string, teacher *models.Teacher) *models.Course {
	t.Helper()
	course := &models.Course{CourseCode: code, Name: "课程" + code, Semester: "2024-秋"}
	if teacher != nil {
		course.TeacherID = &teacher.ID
	}
	require.NoError(t, database.Create(course).Error)
	return course
}

func createEvaluation(t *testing.T, database *gorm.DB, course *models.Course, user *models.User, score float64, tags string) *models.Evaluation {
	t.Helper()
	eval := &models.Evaluation{CourseID: course.ID, UserID: user.ID, Score: score, Tags: tags, UserName: user.Nickname}
	require.NoError(t, database.Create(eval).Error)
	return eval
}

func ptr[T any](v T) *T { return &v }
