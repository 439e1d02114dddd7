package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/repository"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type memoryPerformance struct {
	mu          sync.Mutex
	rows        map[string]*models.PerformanceMetric
	inserts     int
	updates     int
	raceOnce    bool
	coursesHits int
}

func newMemoryPerformance() *memoryPerformance {
	return &memoryPerformance{rows: map[string]*models.PerformanceMetric{}}
}

func perfKey(studentID, course string) string { return studentID + "|" + course }

func setScore(m *models.PerformanceMetric, assessment models.Assessment, score float64) {
	v := score
	switch assessment {
	case models.AssessmentAssignments:
		m.AssignmentsScore = &v
	case models.AssessmentQuizzes:
		m.QuizzesScore = &v
	case models.AssessmentExams:
		m.ExamsScore = &v
	}
}

func (m *memoryPerformance) FindByStudentCourse(ctx context.Context, studentID, courseName string) (*models.PerformanceMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.raceOnce {
		// Another writer lands between the lookup and the insert.
		m.raceOnce = false
		m.rows[perfKey(studentID, courseName)] = &models.PerformanceMetric{ID: "raced", StudentID: studentID, CourseName: courseName}
		return nil, sql.ErrNoRows
	}
	row, ok := m.rows[perfKey(studentID, courseName)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *row
	return &clone, nil
}

func (m *memoryPerformance) UpdateScore(ctx context.Context, id string, assessment models.Assessment, score float64) (*models.PerformanceMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ID == id {
			m.updates++
			setScore(row, assessment, score)
			clone := *row
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryPerformance) Insert(ctx context.Context, studentID, courseName string, assessment models.Assessment, score float64) (*models.PerformanceMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := perfKey(studentID, courseName)
	if _, ok := m.rows[key]; ok {
		return nil, repository.ErrDuplicate
	}
	m.inserts++
	row := &models.PerformanceMetric{ID: fmt.Sprintf("perf-%d", m.inserts), StudentID: studentID, CourseName: courseName}
	setScore(row, assessment, score)
	m.rows[key] = row
	clone := *row
	return &clone, nil
}

func (m *memoryPerformance) List(ctx context.Context, filter models.PerformanceFilter) ([]models.PerformanceMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PerformanceMetric
	for _, row := range m.rows {
		if filter.StudentID != "" && row.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseName != "" && row.CourseName != filter.CourseName {
			continue
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryPerformance) Courses(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coursesHits++
	seen := map[string]bool{}
	var out []string
	for _, row := range m.rows {
		if !seen[row.CourseName] {
			seen[row.CourseName] = true
			out = append(out, row.CourseName)
		}
	}
	sort.Strings(out)
	return out, nil
}

const otherStudentID = "44444444-4444-4444-4444-444444444444"

func newGradeFixture() (*GradeService, *memoryPerformance, *memoryCache, *fakeAuditRepo) {
	repo := newMemoryPerformance()
	users := fakeUsers{
		testStudentID:  {ID: testStudentID, FullName: "Ada", Role: models.RoleStudent},
		otherStudentID: {ID: otherStudentID, FullName: "Grace", Role: models.RoleStudent},
		"f1":           {ID: "f1", FullName: "Prof f1", Role: models.RoleFaculty},
	}
	profiles := newFakeProfiles(
		models.Profile{ID: testStudentID, FullName: "Ada", Role: models.RoleStudent},
		models.Profile{ID: otherStudentID, FullName: "Grace", Role: models.RoleStudent},
	)
	store := newMemoryCache()
	cache := NewCacheService(store, nil, 0, zap.NewNop(), true)
	auditRepo := &fakeAuditRepo{}
	audit := NewAuditService(auditRepo, jobsQueueConfig(), nil, zap.NewNop())
	svc := NewGradeService(repo, users, profiles, cache, audit, validator.New(), zap.NewNop())
	return svc, repo, store, auditRepo
}

func score(v float64) *float64 { return &v }

func TestSubmitGradeInsertsThenUpdatesSameRow(t *testing.T) {
	svc, repo, _, auditRepo := newGradeFixture()
	ctx := context.Background()

	first, err := svc.Submit(ctx, "f1", models.SubmitGradeRequest{StudentID: testStudentID, CourseName: "Physics", Assessment: "quizzes", Score: score(80)}, models.RequestMeta{})
	require.NoError(t, err)
	require.NotNil(t, first.QuizzesScore)
	assert.Equal(t, 80.0, *first.QuizzesScore)
	assert.Nil(t, first.ExamsScore)
	assert.Equal(t, "Ada", first.Student.FullName)

	second, err := svc.Submit(ctx, "f1", models.SubmitGradeRequest{StudentID: testStudentID, CourseName: " Physics ", Assessment: "exams", Score: score(91.5)}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 80.0, *second.QuizzesScore)
	assert.Equal(t, 91.5, *second.ExamsScore)
	assert.Nil(t, second.AssignmentsScore)
	assert.Nil(t, second.OverallGrade)

	assert.Equal(t, 1, repo.inserts)
	assert.Equal(t, 1, repo.updates)
	assert.Equal(t, []string{models.AuditActionGradeSubmit, models.AuditActionGradeSubmit}, auditRepo.actions())
}

func TestSubmitGradeInsertRaceFallsBackToUpdate(t *testing.T) {
	svc, repo, _, _ := newGradeFixture()
	repo.raceOnce = true

	row, err := svc.Submit(context.Background(), "f1", models.SubmitGradeRequest{StudentID: testStudentID, CourseName: "Physics", Assessment: "assignments", Score: score(70)}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "raced", row.ID)
	assert.Equal(t, 70.0, *row.AssignmentsScore)
	assert.Zero(t, repo.inserts)
}

func TestSubmitGradeRejects(t *testing.T) {
	svc, _, _, _ := newGradeFixture()
	ctx := context.Background()

	cases := []struct {
		name string
		req  models.SubmitGradeRequest
		code string
	}{
		{"score above range", models.SubmitGradeRequest{StudentID: testStudentID, CourseName: "Physics", Assessment: "exams", Score: score(101)}, appErrors.ErrValidation.Code},
		{"missing score", models.SubmitGradeRequest{StudentID: testStudentID, CourseName: "Physics", Assessment: "exams"}, appErrors.ErrValidation.Code},
		{"unknown assessment", models.SubmitGradeRequest{StudentID: testStudentID, CourseName: "Physics", Assessment: "homework", Score: score(50)}, appErrors.ErrValidation.Code},
		{"unknown student", models.SubmitGradeRequest{StudentID: "55555555-5555-5555-5555-555555555555", CourseName: "Physics", Assessment: "exams", Score: score(50)}, appErrors.ErrNotFound.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, "f1", tc.req, models.RequestMeta{})
			require.Error(t, err)
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
		})
	}
}

func TestSubmitGradeAcceptsZero(t *testing.T) {
	svc, _, _, _ := newGradeFixture()

	row, err := svc.Submit(context.Background(), "f1", models.SubmitGradeRequest{StudentID: testStudentID, CourseName: "Physics", Assessment: "exams", Score: score(0)}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, *row.ExamsScore)
}

func TestListGradesScopesStudentsAndSearches(t *testing.T) {
	svc, _, _, _ := newGradeFixture()
	ctx := context.Background()
	for _, req := range []models.SubmitGradeRequest{
		{StudentID: testStudentID, CourseName: "Physics", Assessment: "exams", Score: score(90)},
		{StudentID: testStudentID, CourseName: "History", Assessment: "exams", Score: score(75)},
		{StudentID: otherStudentID, CourseName: "Physics", Assessment: "exams", Score: score(88)},
	} {
		_, err := svc.Submit(ctx, "f1", req, models.RequestMeta{})
		require.NoError(t, err)
	}

	own, err := svc.List(ctx, studentClaims(otherStudentID), GradeListRequest{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, otherStudentID, own[0].StudentID)

	all, err := svc.List(ctx, facultyClaims("f1"), GradeListRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byName, err := svc.List(ctx, facultyClaims("f1"), GradeListRequest{Search: "GRACE"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Grace", byName[0].Student.FullName)

	byCourse, err := svc.List(ctx, facultyClaims("f1"), GradeListRequest{Search: "hist"})
	require.NoError(t, err)
	require.Len(t, byCourse, 1)
	assert.Equal(t, "History", byCourse[0].CourseName)

	filtered, err := svc.List(ctx, facultyClaims("f1"), GradeListRequest{Course: "Physics"})
	require.NoError(t, err)
	assert.Len(t, filtered, 2)

	_, err = svc.List(ctx, nil, GradeListRequest{})
	require.Error(t, err)
}

func TestCoursesAreCachedUntilANewRowAppears(t *testing.T) {
	svc, repo, store, _ := newGradeFixture()
	ctx := context.Background()
	_, err := svc.Submit(ctx, "f1", models.SubmitGradeRequest{StudentID: testStudentID, CourseName: "Physics", Assessment: "exams", Score: score(90)}, models.RequestMeta{})
	require.NoError(t, err)

	courses, hit, err := svc.Courses(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"Physics"}, courses)
	assert.Equal(t, []string{"grades:courses:all"}, store.keys())

	courses, hit, err = svc.Courses(ctx)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"Physics"}, courses)
	assert.Equal(t, 1, repo.coursesHits)

	// Updating an existing row keeps the cache.
	_, err = svc.Submit(ctx, "f1", models.SubmitGradeRequest{StudentID: testStudentID, CourseName: "Physics", Assessment: "quizzes", Score: score(60)}, models.RequestMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, store.keys())

	_, err = svc.Submit(ctx, "f1", models.SubmitGradeRequest{StudentID: testStudentID, CourseName: "Biology", Assessment: "quizzes", Score: score(60)}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Empty(t, store.keys())

	courses, hit, err = svc.Courses(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"Biology", "Physics"}, courses)
}
