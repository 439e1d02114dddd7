package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ProfilesByIDs(ctx context.Context, ids []string) ([]models.Profile, error)
	ListProfiles(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, error)
	UpdateFullName(ctx context.Context, id, fullName string, updatedAt time.Time) error
}

// profileResolver maps user ids to display profiles.
type profileResolver interface {
	Resolve(ctx context.Context, ids []string) (map[string]models.Profile, error)
}

// UserService serves profiles, directories and batched identity resolution.
type UserService struct {
	repo      userRepository
	cache     *CacheService
	metrics   *MetricsService
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, cache *CacheService, metrics *MetricsService, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, cache: cache, metrics: metrics, audit: audit, validator: validate, logger: logger}
}

// Resolve deduplicates ids and loads their profiles in a single query.
// Empty input does not touch the database. Unknown ids are absent from the map.
func (s *UserService) Resolve(ctx context.Context, ids []string) (map[string]models.Profile, error) {
	unique := uniqueIDs(ids)
	result := make(map[string]models.Profile, len(unique))
	if len(unique) == 0 {
		return result, nil
	}

	start := time.Now()
	profiles, err := s.repo.ProfilesByIDs(ctx, unique)
	s.metrics.ObserveDBQuery("profiles_by_ids", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve profiles")
	}
	for _, p := range profiles {
		result[p.ID] = p
	}
	return result, nil
}

// GetProfile returns the caller's account details.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// UpdateProfile changes the caller's display name and returns the updated account.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest, meta models.RequestMeta) (*models.User, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	current, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateFullName(ctx, userID, req.FullName, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}

	s.InvalidateDirectory(ctx, current.Role)

	entry := auditEntry(userID, models.AuditActionProfileUpdate, "user", userID, meta, map[string]interface{}{"full_name": req.FullName})
	entry.OldValues = auditValues(map[string]interface{}{"full_name": current.FullName})
	s.audit.Record(ctx, entry)

	current.FullName = req.FullName
	return current, nil
}

// InvalidateDirectory drops cached listings that include role. Only the faculty directory is cached.
func (s *UserService) InvalidateDirectory(ctx context.Context, role models.UserRole) {
	if role == models.RoleFaculty {
		_ = s.cache.Invalidate(ctx, cacheKeyFaculty+"*")
	}
}

// Faculty lists active faculty profiles. The boolean reports a cache hit.
func (s *UserService) Faculty(ctx context.Context, search string) ([]models.Profile, bool, error) {
	key := cacheKey(cacheKeyFaculty, search)
	var cached []models.Profile
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, true, nil
	}

	profiles, err := s.listProfiles(ctx, models.ProfileFilter{Role: models.RoleFaculty, Search: search}, "list_faculty")
	if err != nil {
		return nil, false, err
	}
	_ = s.cache.Set(ctx, key, profiles, 0)
	return profiles, false, nil
}

// Students lists active student profiles.
func (s *UserService) Students(ctx context.Context, search string) ([]models.Profile, error) {
	return s.listProfiles(ctx, models.ProfileFilter{Role: models.RoleStudent, Search: search}, "list_students")
}

func (s *UserService) listProfiles(ctx context.Context, filter models.ProfileFilter, label string) ([]models.Profile, error) {
	start := time.Now()
	profiles, err := s.repo.ListProfiles(ctx, filter)
	s.metrics.ObserveDBQuery(label, time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list profiles")
	}
	if profiles == nil {
		profiles = []models.Profile{}
	}
	return profiles, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
