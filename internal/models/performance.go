package models

import "time"

// Assessment names one scored column of a performance metric.
type Assessment string

const (
	AssessmentAssignments Assessment = "assignments"
	AssessmentQuizzes     Assessment = "quizzes"
	AssessmentExams       Assessment = "exams"
)

// Column returns the performance_metrics column for the assessment.
func (a Assessment) Column() (string, bool) {
	switch a {
	case AssessmentAssignments:
		return "assignments_score", true
	case AssessmentQuizzes:
		return "quizzes_score", true
	case AssessmentExams:
		return "exams_score", true
	default:
		return "", false
	}
}

// PerformanceMetric is one row per (student, course). OverallGrade is set outside this service.
type PerformanceMetric struct {
	ID               string    `db:"id" json:"id"`
	StudentID        string    `db:"student_id" json:"student_id"`
	CourseName       string    `db:"course_name" json:"course_name"`
	AssignmentsScore *float64  `db:"assignments_score" json:"assignments_score"`
	QuizzesScore     *float64  `db:"quizzes_score" json:"quizzes_score"`
	ExamsScore       *float64  `db:"exams_score" json:"exams_score"`
	OverallGrade     *string   `db:"overall_grade" json:"overall_grade"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// PerformanceFilter scopes metric listings.
type PerformanceFilter struct {
	StudentID  string
	CourseName string
}

// SubmitGradeRequest sets one assessment score for a student in a course.
type SubmitGradeRequest struct {
	StudentID  string   `json:"student_id" validate:"required,uuid"`
	CourseName string   `json:"course_name" validate:"required,max=120"`
	Assessment string   `json:"assessment" validate:"required,oneof=assignments quizzes exams"`
	Score      *float64 `json:"score" validate:"required,min=0,max=100"`
}
