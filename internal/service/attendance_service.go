package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/export"
)

type attendanceRepository interface {
	Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// AttendanceService coordinates attendance marking and reporting.
type AttendanceService struct {
	repo      attendanceRepository
	users     studentLookup
	profiles  profileResolver
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, users studentLookup, profiles profileResolver, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AttendanceService{repo: repo, users: users, profiles: profiles, metrics: metrics, validator: validate, logger: logger, now: time.Now}
	_ = svc.validator.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseAttendanceStatus(fl.Field().String())
		return ok
	})
	return svc
}

// Mark records the status for (student, course, date). Repeating the call overwrites the status.
func (s *AttendanceService) Mark(ctx context.Context, facultyID string, req models.MarkAttendanceRequest) (*dto.AttendanceRow, error) {
	req.CourseName = strings.TrimSpace(req.CourseName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	status, _ := models.ParseAttendanceStatus(req.Status)
	date, err := time.Parse(models.DateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date")
	}

	student, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "attendance can only be recorded for students")
	}

	start := time.Now()
	stored, err := s.repo.Upsert(ctx, &models.AttendanceRecord{
		StudentID:  student.ID,
		FacultyID:  facultyID,
		CourseName: req.CourseName,
		Date:       date,
		Status:     status,
	})
	s.metrics.ObserveDBQuery("attendance_upsert", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
	}

	row := toAttendanceRow(*stored)
	row.Student = dto.NewProfileRef(models.Profile{ID: student.ID, FullName: student.FullName, Role: student.Role})
	return &row, nil
}

// List returns the caller's attendance view: students see their own rows, faculty see rows they recorded.
func (s *AttendanceService) List(ctx context.Context, actor *models.JWTClaims, req models.AttendanceListRequest) ([]dto.AttendanceRow, error) {
	filter, err := s.filterFor(actor, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	records, err := s.repo.List(ctx, filter)
	s.metrics.ObserveDBQuery("attendance_list", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}

	rows := make([]dto.AttendanceRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, toAttendanceRow(record))
	}
	if !actor.IsFaculty() || len(rows) == 0 {
		return rows, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.StudentID)
	}
	profiles, err := s.profiles.Resolve(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if p, ok := profiles[rows[i].StudentID]; ok {
			rows[i].Student = dto.NewProfileRef(p)
		}
	}
	return rows, nil
}

// Summary computes overall and per-course attendance for the same view as List.
// A status filter is ignored: percentages are always over both statuses.
func (s *AttendanceService) Summary(ctx context.Context, actor *models.JWTClaims, req models.AttendanceListRequest) (*dto.AttendanceSummary, error) {
	filter, err := s.filterFor(actor, req)
	if err != nil {
		return nil, err
	}
	filter.Status = ""
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	summary := summarize(records)
	return &summary, nil
}

// Export renders the listing and its summary as CSV or PDF.
func (s *AttendanceService) Export(ctx context.Context, actor *models.JWTClaims, req models.AttendanceListRequest, rawFormat string) ([]byte, export.Format, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export format")
	}
	rows, err := s.List(ctx, actor, req)
	if err != nil {
		return nil, "", err
	}

	sheet := export.Sheet{
		Title:   "Attendance report",
		Headers: []string{"Date", "Course", "Student", "Status"},
		Rows:    make([][]string, 0, len(rows)),
	}
	present := 0
	for _, row := range rows {
		name := row.StudentID
		if row.Student != nil {
			name = row.Student.FullName
		} else if !actor.IsFaculty() {
			name = actor.FullName
		}
		if row.Status == string(models.AttendancePresent) {
			present++
		}
		sheet.Rows = append(sheet.Rows, []string{row.Date, row.CourseName, name, row.Status})
	}
	sheet.Footer = []string{
		fmt.Sprintf("Total: %d", len(rows)),
		fmt.Sprintf("Present: %d", present),
		fmt.Sprintf("Attendance: %.2f%%", percentage(present, len(rows))),
	}

	data, err := export.RendererFor(format).Render(sheet)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Debug("attendance exported", zap.String("format", string(format)), zap.Int("rows", len(rows)))
	return data, format, nil
}

func (s *AttendanceService) filterFor(actor *models.JWTClaims, req models.AttendanceListRequest) (models.AttendanceFilter, error) {
	if actor == nil {
		return models.AttendanceFilter{}, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return models.AttendanceFilter{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance query")
	}

	filter := models.AttendanceFilter{CourseName: strings.TrimSpace(req.Course)}
	if req.Status != "" {
		filter.Status, _ = models.ParseAttendanceStatus(req.Status)
	}
	if actor.IsFaculty() {
		filter.FacultyID = actor.UserID
	} else {
		filter.StudentID = actor.UserID
	}

	rangeValue := models.AttendanceRange(req.Range)
	if rangeValue == "" {
		rangeValue = models.RangeAll
	}
	filter.DateFrom = rangeValue.Since(s.now().UTC())

	if req.From != "" {
		from, err := time.Parse(models.DateLayout, req.From)
		if err != nil {
			return filter, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid from date")
		}
		filter.DateFrom = &from
	}
	if req.To != "" {
		to, err := time.Parse(models.DateLayout, req.To)
		if err != nil {
			return filter, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid to date")
		}
		filter.DateTo = &to
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return filter, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	return filter, nil
}

func toAttendanceRow(record models.AttendanceRecord) dto.AttendanceRow {
	return dto.AttendanceRow{
		ID:         record.ID,
		CourseName: record.CourseName,
		Date:       record.Date.Format(models.DateLayout),
		Status:     string(record.Status),
		StudentID:  record.StudentID,
		FacultyID:  record.FacultyID,
		UpdatedAt:  record.UpdatedAt,
	}
}

func summarize(records []models.AttendanceRecord) dto.AttendanceSummary {
	var overall dto.AttendanceStats
	byCourse := make(map[string]*dto.AttendanceStats)
	for _, record := range records {
		stats, ok := byCourse[record.CourseName]
		if !ok {
			stats = &dto.AttendanceStats{}
			byCourse[record.CourseName] = stats
		}
		for _, st := range []*dto.AttendanceStats{&overall, stats} {
			st.Total++
			if record.Status == models.AttendancePresent {
				st.Present++
			} else {
				st.Absent++
			}
		}
	}
	overall.Percentage = percentage(overall.Present, overall.Total)

	courses := make([]dto.CourseAttendance, 0, len(byCourse))
	for name, stats := range byCourse {
		stats.Percentage = percentage(stats.Present, stats.Total)
		courses = append(courses, dto.CourseAttendance{CourseName: name, AttendanceStats: *stats})
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CourseName < courses[j].CourseName })

	return dto.AttendanceSummary{Overall: overall, Courses: courses}
}

// percentage rounds present/total to two decimals; zero when total is zero.
func percentage(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(present)*10000/float64(total)) / 100
}
