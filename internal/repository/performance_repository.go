package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

const performanceColumns = `id, student_id, course_name, assignments_score, quizzes_score, exams_score, overall_grade, created_at, updated_at`

// PerformanceRepository persists per-course student scores.
type PerformanceRepository struct {
	db *sqlx.DB
}

// NewPerformanceRepository constructs the repository.
func NewPerformanceRepository(db *sqlx.DB) *PerformanceRepository {
	return &PerformanceRepository{db: db}
}

// FindByStudentCourse returns the single row for (student, course).
func (r *PerformanceRepository) FindByStudentCourse(ctx context.Context, studentID, courseName string) (*models.PerformanceMetric, error) {
	query := `SELECT ` + performanceColumns + ` FROM performance_metrics WHERE student_id = $1 AND course_name = $2 LIMIT 1`
	var metric models.PerformanceMetric
	if err := r.db.GetContext(ctx, &metric, query, studentID, courseName); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find performance metric: %w", err)
	}
	return &metric, nil
}

// UpdateScore sets one assessment column on an existing row. Other columns are untouched.
func (r *PerformanceRepository) UpdateScore(ctx context.Context, id string, assessment models.Assessment, score float64) (*models.PerformanceMetric, error) {
	column, ok := assessment.Column()
	if !ok {
		return nil, fmt.Errorf("unknown assessment %q", assessment)
	}
	query := fmt.Sprintf(`UPDATE performance_metrics SET %s = $2, updated_at = $3 WHERE id = $1 RETURNING %s`, column, performanceColumns)
	var metric models.PerformanceMetric
	if err := r.db.GetContext(ctx, &metric, query, id, score, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update performance score: %w", err)
	}
	return &metric, nil
}

// Insert creates a row for (student, course) with only the given assessment set.
func (r *PerformanceRepository) Insert(ctx context.Context, studentID, courseName string, assessment models.Assessment, score float64) (*models.PerformanceMetric, error) {
	column, ok := assessment.Column()
	if !ok {
		return nil, fmt.Errorf("unknown assessment %q", assessment)
	}
	now := time.Now().UTC()
	query := fmt.Sprintf(`INSERT INTO performance_metrics (id, student_id, course_name, %s, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
RETURNING %s`, column, performanceColumns)
	var metric models.PerformanceMetric
	if err := r.db.GetContext(ctx, &metric, query, uuid.NewString(), studentID, courseName, score, now); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert performance metric: %w", err)
	}
	return &metric, nil
}

// List returns metrics ordered by course then student.
func (r *PerformanceRepository) List(ctx context.Context, filter models.PerformanceFilter) ([]models.PerformanceMetric, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.CourseName != "" {
		args = append(args, filter.CourseName)
		where = append(where, fmt.Sprintf("course_name = $%d", len(args)))
	}
	query := fmt.Sprintf(`SELECT %s FROM performance_metrics WHERE %s ORDER BY course_name ASC, student_id ASC`, performanceColumns, strings.Join(where, " AND "))
	var metrics []models.PerformanceMetric
	if err := r.db.SelectContext(ctx, &metrics, query, args...); err != nil {
		return nil, fmt.Errorf("list performance metrics: %w", err)
	}
	return metrics, nil
}

// Courses returns the distinct course names that have at least one metric.
func (r *PerformanceRepository) Courses(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT course_name FROM performance_metrics ORDER BY course_name ASC`
	var courses []string
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}
