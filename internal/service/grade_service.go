package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/repository"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type performanceRepository interface {
	FindByStudentCourse(ctx context.Context, studentID, courseName string) (*models.PerformanceMetric, error)
	UpdateScore(ctx context.Context, id string, assessment models.Assessment, score float64) (*models.PerformanceMetric, error)
	Insert(ctx context.Context, studentID, courseName string, assessment models.Assessment, score float64) (*models.PerformanceMetric, error)
	List(ctx context.Context, filter models.PerformanceFilter) ([]models.PerformanceMetric, error)
	Courses(ctx context.Context) ([]string, error)
}

// GradeListRequest filters the grade table.
type GradeListRequest struct {
	Course string `form:"course"`
	Search string `form:"q"`
}

// GradeService handles per-assessment score entry and grade listings.
type GradeService struct {
	repo      performanceRepository
	users     studentLookup
	profiles  profileResolver
	cache     *CacheService
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService constructs the grade service.
func NewGradeService(repo performanceRepository, users studentLookup, profiles profileResolver, cache *CacheService, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{repo: repo, users: users, profiles: profiles, cache: cache, audit: audit, validator: validate, logger: logger}
}

// Submit sets one assessment score. The (student, course) row is updated when it exists and
// inserted otherwise; the other score columns and the overall grade are left untouched.
func (s *GradeService) Submit(ctx context.Context, facultyID string, req models.SubmitGradeRequest, meta models.RequestMeta) (*dto.GradeRow, error) {
	req.CourseName = strings.TrimSpace(req.CourseName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	assessment := models.Assessment(req.Assessment)
	score := *req.Score

	student, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grades can only be recorded for students")
	}

	metric, created, err := s.write(ctx, student.ID, req.CourseName, assessment, score)
	if err != nil {
		return nil, err
	}

	if created {
		_ = s.cache.Invalidate(ctx, cacheKeyCourses+"*")
	}
	s.audit.Record(ctx, auditEntry(facultyID, models.AuditActionGradeSubmit, "performance_metric", metric.ID, meta, map[string]interface{}{
		"student_id":  student.ID,
		"course_name": req.CourseName,
		"assessment":  req.Assessment,
		"score":       score,
	}))

	row := toGradeRow(*metric)
	row.Student = dto.NewProfileRef(models.Profile{ID: student.ID, FullName: student.FullName, Role: student.Role})
	return &row, nil
}

func (s *GradeService) write(ctx context.Context, studentID, course string, assessment models.Assessment, score float64) (*models.PerformanceMetric, bool, error) {
	existing, err := s.repo.FindByStudentCourse(ctx, studentID, course)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	if existing != nil {
		metric, err := s.repo.UpdateScore(ctx, existing.ID, assessment, score)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade")
		}
		return metric, false, nil
	}

	metric, err := s.repo.Insert(ctx, studentID, course, assessment, score)
	if errors.Is(err, repository.ErrDuplicate) {
		// A concurrent submission created the row first.
		existing, err = s.repo.FindByStudentCourse(ctx, studentID, course)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
		}
		metric, err = s.repo.UpdateScore(ctx, existing.ID, assessment, score)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade")
		}
		return metric, false, nil
	}
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grade")
	}
	return metric, true, nil
}

// List returns grade rows. Students only see their own; faculty see everyone with names resolved.
func (s *GradeService) List(ctx context.Context, actor *models.JWTClaims, req GradeListRequest) ([]dto.GradeRow, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.PerformanceFilter{CourseName: strings.TrimSpace(req.Course)}
	if !actor.IsFaculty() {
		filter.StudentID = actor.UserID
	}

	metrics, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}

	ids := make([]string, 0, len(metrics))
	for _, m := range metrics {
		ids = append(ids, m.StudentID)
	}
	profiles, err := s.profiles.Resolve(ctx, ids)
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(req.Search))
	rows := make([]dto.GradeRow, 0, len(metrics))
	for _, m := range metrics {
		row := toGradeRow(m)
		row.Student = profileRef(profiles, m.StudentID)
		if search != "" && !gradeMatches(row, search) {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Courses lists distinct course names. The boolean reports a cache hit.
func (s *GradeService) Courses(ctx context.Context) ([]string, bool, error) {
	key := cacheKey(cacheKeyCourses, "all")
	var cached []string
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, true, nil
	}

	courses, err := s.repo.Courses(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if courses == nil {
		courses = []string{}
	}
	_ = s.cache.Set(ctx, key, courses, 0)
	return courses, false, nil
}

func gradeMatches(row dto.GradeRow, search string) bool {
	if strings.Contains(strings.ToLower(row.CourseName), search) {
		return true
	}
	return row.Student != nil && strings.Contains(strings.ToLower(row.Student.FullName), search)
}

func toGradeRow(m models.PerformanceMetric) dto.GradeRow {
	return dto.GradeRow{
		ID:               m.ID,
		StudentID:        m.StudentID,
		CourseName:       m.CourseName,
		AssignmentsScore: m.AssignmentsScore,
		QuizzesScore:     m.QuizzesScore,
		ExamsScore:       m.ExamsScore,
		OverallGrade:     m.OverallGrade,
		UpdatedAt:        m.UpdatedAt,
	}
}

