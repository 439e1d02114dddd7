package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/export"
)

// memoryAttendance keys rows by (student, course, date) like the unique constraint.
type memoryAttendance struct {
	mu      sync.Mutex
	rows    map[string]*models.AttendanceRecord
	filters []models.AttendanceFilter
	listErr error
}

func newMemoryAttendance() *memoryAttendance {
	return &memoryAttendance{rows: map[string]*models.AttendanceRecord{}}
}

func (m *memoryAttendance) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := record.StudentID + "|" + record.CourseName + "|" + record.Date.Format(models.DateLayout)
	if existing, ok := m.rows[key]; ok {
		existing.Status = record.Status
		existing.FacultyID = record.FacultyID
		clone := *existing
		return &clone, nil
	}
	stored := *record
	stored.ID = key
	m.rows[key] = &stored
	clone := stored
	return &clone, nil
}

func (m *memoryAttendance) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters = append(m.filters, filter)
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.AttendanceRecord
	for _, r := range m.rows {
		if filter.StudentID != "" && r.StudentID != filter.StudentID {
			continue
		}
		if filter.FacultyID != "" && r.FacultyID != filter.FacultyID {
			continue
		}
		if filter.CourseName != "" && r.CourseName != filter.CourseName {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func newAttendanceFixture() (*AttendanceService, *memoryAttendance, *fakeProfiles) {
	repo := newMemoryAttendance()
	users := fakeUsers{
		"11111111-1111-1111-1111-111111111111": {ID: "11111111-1111-1111-1111-111111111111", FullName: "Ada", Role: models.RoleStudent},
		"22222222-2222-2222-2222-222222222222": {ID: "22222222-2222-2222-2222-222222222222", FullName: "Grace", Role: models.RoleFaculty},
	}
	profiles := newFakeProfiles(models.Profile{ID: "11111111-1111-1111-1111-111111111111", FullName: "Ada", Role: models.RoleStudent})
	svc := NewAttendanceService(repo, users, profiles, nil, validator.New(), zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }
	return svc, repo, profiles
}

const testStudentID = "11111111-1111-1111-1111-111111111111"

func TestMarkAttendanceTwiceKeepsLatestStatus(t *testing.T) {
	svc, repo, _ := newAttendanceFixture()
	ctx := context.Background()

	first, err := svc.Mark(ctx, "f1", models.MarkAttendanceRequest{StudentID: testStudentID, CourseName: "Physics", Date: "2024-03-14", Status: "present"})
	require.NoError(t, err)
	second, err := svc.Mark(ctx, "f1", models.MarkAttendanceRequest{StudentID: testStudentID, CourseName: " Physics ", Date: "2024-03-14", Status: "ABSENT"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.rows, 1)
	assert.Equal(t, "absent", second.Status)
	assert.Equal(t, "2024-03-14", second.Date)
	require.NotNil(t, second.Student)
	assert.Equal(t, "Ada", second.Student.FullName)
}

func TestMarkAttendanceRejects(t *testing.T) {
	svc, _, _ := newAttendanceFixture()
	ctx := context.Background()

	cases := []struct {
		name string
		req  models.MarkAttendanceRequest
		code string
	}{
		{"bad status", models.MarkAttendanceRequest{StudentID: testStudentID, CourseName: "Physics", Date: "2024-03-14", Status: "late"}, appErrors.ErrValidation.Code},
		{"bad date", models.MarkAttendanceRequest{StudentID: testStudentID, CourseName: "Physics", Date: "14/03/2024", Status: "present"}, appErrors.ErrValidation.Code},
		{"unknown student", models.MarkAttendanceRequest{StudentID: "33333333-3333-3333-3333-333333333333", CourseName: "Physics", Date: "2024-03-14", Status: "present"}, appErrors.ErrNotFound.Code},
		{"faculty target", models.MarkAttendanceRequest{StudentID: "22222222-2222-2222-2222-222222222222", CourseName: "Physics", Date: "2024-03-14", Status: "present"}, appErrors.ErrValidation.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Mark(ctx, "f1", tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
		})
	}
}

func TestListAttendanceScopesByRole(t *testing.T) {
	svc, repo, profiles := newAttendanceFixture()
	ctx := context.Background()
	_, err := svc.Mark(ctx, "f1", models.MarkAttendanceRequest{StudentID: testStudentID, CourseName: "Physics", Date: "2024-03-14", Status: "present"})
	require.NoError(t, err)

	facultyRows, err := svc.List(ctx, facultyClaims("f1"), models.AttendanceListRequest{Range: "week"})
	require.NoError(t, err)
	require.Len(t, facultyRows, 1)
	require.NotNil(t, facultyRows[0].Student)
	assert.Equal(t, 1, profiles.callCount())

	last := repo.filters[len(repo.filters)-1]
	assert.Equal(t, "f1", last.FacultyID)
	assert.Empty(t, last.StudentID)
	require.NotNil(t, last.DateFrom)
	assert.Equal(t, "2024-03-08", last.DateFrom.Format(models.DateLayout))

	studentRows, err := svc.List(ctx, studentClaims(testStudentID), models.AttendanceListRequest{})
	require.NoError(t, err)
	assert.Len(t, studentRows, 1)
	assert.Nil(t, studentRows[0].Student)
	assert.Equal(t, 1, profiles.callCount())
	last = repo.filters[len(repo.filters)-1]
	assert.Equal(t, testStudentID, last.StudentID)
	assert.Nil(t, last.DateFrom)
}

func TestListAttendanceMonthRangeAndBadWindow(t *testing.T) {
	svc, repo, _ := newAttendanceFixture()
	ctx := context.Background()

	_, err := svc.List(ctx, studentClaims("s1"), models.AttendanceListRequest{Range: "month"})
	require.NoError(t, err)
	assert.Equal(t, "2024-02-15", repo.filters[0].DateFrom.Format(models.DateLayout))

	_, err = svc.List(ctx, studentClaims("s1"), models.AttendanceListRequest{From: "2024-03-10", To: "2024-03-01"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.List(ctx, studentClaims("s1"), models.AttendanceListRequest{Range: "year"})
	require.Error(t, err)
}

func TestListAttendanceStatusFilter(t *testing.T) {
	svc, repo, _ := newAttendanceFixture()
	ctx := context.Background()
	_, err := svc.Mark(ctx, "f1", models.MarkAttendanceRequest{StudentID: testStudentID, CourseName: "Physics", Date: "2024-03-13", Status: "present"})
	require.NoError(t, err)
	_, err = svc.Mark(ctx, "f1", models.MarkAttendanceRequest{StudentID: testStudentID, CourseName: "Physics", Date: "2024-03-14", Status: "absent"})
	require.NoError(t, err)

	rows, err := svc.List(ctx, studentClaims(testStudentID), models.AttendanceListRequest{Status: "Absent"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "absent", rows[0].Status)
	assert.Equal(t, models.AttendanceAbsent, repo.filters[len(repo.filters)-1].Status)

	summary, err := svc.Summary(ctx, studentClaims(testStudentID), models.AttendanceListRequest{Status: "absent"})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Overall.Total)
	assert.Equal(t, 50.0, summary.Overall.Percentage)

	_, err = svc.List(ctx, studentClaims(testStudentID), models.AttendanceListRequest{Status: "late"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestListAttendanceRepositoryFailure(t *testing.T) {
	svc, repo, _ := newAttendanceFixture()
	repo.listErr = errors.New("connection reset")

	_, err := svc.List(context.Background(), studentClaims("s1"), models.AttendanceListRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
	assert.Equal(t, "failed to list attendance", appErr.Message)
}

func TestSummarizeAttendance(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []models.AttendanceRecord{
		{CourseName: "Physics", Date: day, Status: models.AttendancePresent},
		{CourseName: "Physics", Date: day.AddDate(0, 0, 1), Status: models.AttendanceAbsent},
		{CourseName: "Physics", Date: day.AddDate(0, 0, 2), Status: models.AttendancePresent},
		{CourseName: "Chemistry", Date: day, Status: models.AttendancePresent},
	}

	summary := summarize(records)
	assert.Equal(t, 4, summary.Overall.Total)
	assert.Equal(t, 3, summary.Overall.Present)
	assert.Equal(t, 1, summary.Overall.Absent)
	assert.Equal(t, 75.0, summary.Overall.Percentage)
	require.Len(t, summary.Courses, 2)
	assert.Equal(t, "Chemistry", summary.Courses[0].CourseName)
	assert.Equal(t, 100.0, summary.Courses[0].Percentage)
	assert.Equal(t, 66.67, summary.Courses[1].Percentage)

	empty := summarize(nil)
	assert.Zero(t, empty.Overall.Percentage)
	assert.Empty(t, empty.Courses)
}

func TestExportAttendanceCSV(t *testing.T) {
	svc, _, _ := newAttendanceFixture()
	ctx := context.Background()
	_, err := svc.Mark(ctx, "f1", models.MarkAttendanceRequest{StudentID: testStudentID, CourseName: "Physics", Date: "2024-03-14", Status: "present"})
	require.NoError(t, err)

	data, format, err := svc.Export(ctx, facultyClaims("f1"), models.AttendanceListRequest{}, "csv")
	require.NoError(t, err)
	assert.Equal(t, export.FormatCSV, format)
	body := string(data)
	assert.True(t, strings.HasPrefix(body, "Date,Course,Student,Status"))
	assert.Contains(t, body, "2024-03-14,Physics,Ada,present")
	assert.Contains(t, body, "Attendance: 100.00%")

	_, _, err = svc.Export(ctx, facultyClaims("f1"), models.AttendanceListRequest{}, "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
