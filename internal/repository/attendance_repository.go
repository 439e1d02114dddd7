package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

const attendanceColumns = `id, student_id, faculty_id, course_name, date, status, created_at, updated_at`

// AttendanceRepository handles persistence for per-course attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert writes the record keyed by (student_id, course_name, date) in one statement.
// An existing row keeps its id and created_at; status, faculty_id and updated_at are replaced.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	query := `INSERT INTO attendance_records (` + attendanceColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (student_id, course_name, date)
DO UPDATE SET status = EXCLUDED.status, faculty_id = EXCLUDED.faculty_id, updated_at = EXCLUDED.updated_at
RETURNING ` + attendanceColumns
	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query,
		record.ID,
		record.StudentID,
		record.FacultyID,
		record.CourseName,
		record.Date,
		record.Status,
		record.CreatedAt,
		record.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &stored, nil
}

// List returns attendance rows matching the filter, newest date first.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.FacultyID != "" {
		where = append(where, fmt.Sprintf("faculty_id = $%d", len(args)+1))
		args = append(args, filter.FacultyID)
	}
	if filter.CourseName != "" {
		where = append(where, fmt.Sprintf("course_name = $%d", len(args)+1))
		args = append(args, filter.CourseName)
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE %s ORDER BY date DESC, course_name ASC`, attendanceColumns, strings.Join(where, " AND "))
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return rows, nil
}
