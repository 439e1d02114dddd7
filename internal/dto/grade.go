package dto

import "time"

// GradeRow is a performance metric with the student's resolved profile.
type GradeRow struct {
	ID               string      `json:"id"`
	StudentID        string      `json:"student_id"`
	Student          *ProfileRef `json:"student"`
	CourseName       string      `json:"course_name"`
	AssignmentsScore *float64    `json:"assignments_score"`
	QuizzesScore     *float64    `json:"quizzes_score"`
	ExamsScore       *float64    `json:"exams_score"`
	OverallGrade     *string     `json:"overall_grade"`
	UpdatedAt        time.Time   `json:"updated_at"`
}
