package models

import (
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// ParseAttendanceStatus accepts any letter case.
func ParseAttendanceStatus(raw string) (AttendanceStatus, bool) {
	status := AttendanceStatus(strings.ToLower(strings.TrimSpace(raw)))
	return status, status.Valid()
}

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s == AttendancePresent || s == AttendanceAbsent
}

// AttendanceRecord is one row per (student, course, date).
type AttendanceRecord struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	FacultyID  string           `db:"faculty_id" json:"faculty_id"`
	CourseName string           `db:"course_name" json:"course_name"`
	Date       time.Time        `db:"date" json:"date"`
	Status     AttendanceStatus `db:"status" json:"status"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceRange is a window relative to the current day.
type AttendanceRange string

const (
	RangeWeek  AttendanceRange = "week"
	RangeMonth AttendanceRange = "month"
	RangeAll   AttendanceRange = "all"
)

// Since returns the inclusive lower bound for the range, or nil for "all".
func (r AttendanceRange) Since(now time.Time) *time.Time {
	var from time.Time
	switch r {
	case RangeWeek:
		from = now.AddDate(0, 0, -7)
	case RangeMonth:
		from = now.AddDate(0, -1, 0)
	default:
		return nil
	}
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	return &day
}

// AttendanceFilter scopes listing queries. Exactly one of StudentID or FacultyID is set by the service.
type AttendanceFilter struct {
	StudentID  string
	FacultyID  string
	CourseName string
	Status     AttendanceStatus
	DateFrom   *time.Time
	DateTo     *time.Time
}

// MarkAttendanceRequest is submitted by faculty for one student.
type MarkAttendanceRequest struct {
	StudentID  string `json:"student_id" validate:"required,uuid"`
	CourseName string `json:"course_name" validate:"required,max=120"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	Status     string `json:"status" validate:"required,attendance_status"`
}

// AttendanceListRequest carries query parameters.
type AttendanceListRequest struct {
	Course string `form:"course"`
	Status string `form:"status" validate:"omitempty,attendance_status"`
	Range  string `form:"range" validate:"omitempty,oneof=week month all"`
	From   string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To     string `form:"to" validate:"omitempty,datetime=2006-01-02"`
}
