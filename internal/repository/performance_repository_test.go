package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

var performanceRowColumns = []string{"id", "student_id", "course_name", "assignments_score", "quizzes_score", "exams_score", "overall_grade", "created_at", "updated_at"}

func TestPerformanceUpdateScoreTouchesOneColumn(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPerformanceRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE performance_metrics SET quizzes_score = $2, updated_at = $3 WHERE id = $1 RETURNING")).
		WithArgs("m1", 88.5, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(performanceRowColumns).AddRow("m1", "s1", "Physics", 70.0, 88.5, nil, nil, now, now))

	metric, err := repo.UpdateScore(context.Background(), "m1", models.AssessmentQuizzes, 88.5)
	require.NoError(t, err)
	require.NotNil(t, metric.QuizzesScore)
	assert.Equal(t, 88.5, *metric.QuizzesScore)
	assert.Nil(t, metric.ExamsScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPerformanceUpdateScoreRejectsUnknownAssessment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPerformanceRepository(db)

	_, err := repo.UpdateScore(context.Background(), "m1", models.Assessment("homework; DROP TABLE"), 1)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPerformanceInsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPerformanceRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO performance_metrics (id, student_id, course_name, exams_score, created_at, updated_at)")).
		WithArgs(sqlmock.AnyArg(), "s1", "Physics", 91.0, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(performanceRowColumns).AddRow("m1", "s1", "Physics", nil, nil, 91.0, nil, now, now))

	metric, err := repo.Insert(context.Background(), "s1", "Physics", models.AssessmentExams, 91)
	require.NoError(t, err)
	require.NotNil(t, metric.ExamsScore)
	assert.Nil(t, metric.AssignmentsScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPerformanceCourses(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPerformanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT course_name FROM performance_metrics ORDER BY course_name ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"course_name"}).AddRow("Chemistry").AddRow("Physics"))

	courses, err := repo.Courses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Chemistry", "Physics"}, courses)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPerformanceListByStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPerformanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM performance_metrics WHERE 1=1 AND student_id = $1 ORDER BY course_name ASC, student_id ASC")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(performanceRowColumns))

	metrics, err := repo.List(context.Background(), models.PerformanceFilter{StudentID: "s1"})
	require.NoError(t, err)
	assert.Empty(t, metrics)
	assert.NoError(t, mock.ExpectationsWereMet())
}
