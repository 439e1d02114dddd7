package dto

import "time"

// AttendanceRow is an attendance record as rendered to clients.
type AttendanceRow struct {
	ID         string      `json:"id"`
	CourseName string      `json:"course_name"`
	Date       string      `json:"date"`
	Status     string      `json:"status"`
	StudentID  string      `json:"student_id"`
	Student    *ProfileRef `json:"student,omitempty"`
	FacultyID  string      `json:"faculty_id"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// AttendanceStats counts present and absent marks.
type AttendanceStats struct {
	Total      int     `json:"total"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Percentage float64 `json:"percentage"`
}

// CourseAttendance is the per-course breakdown of a summary.
type CourseAttendance struct {
	CourseName string `json:"course_name"`
	AttendanceStats
}

// AttendanceSummary aggregates a filtered listing.
type AttendanceSummary struct {
	Overall AttendanceStats    `json:"overall"`
	Courses []CourseAttendance `json:"courses"`
}
