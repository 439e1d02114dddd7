package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type eventRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	Create(ctx context.Context, event *models.Event) error
}

// EventService serves the campus calendar.
type EventService struct {
	repo      eventRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEventService constructs the calendar service.
func NewEventService(repo eventRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// List returns events filtered by search text, category and day, earliest first.
// The boolean reports a cache hit.
func (s *EventService) List(ctx context.Context, req models.EventListRequest) ([]dto.EventView, bool, error) {
	req.Search = strings.TrimSpace(req.Search)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event query")
	}

	filter := models.EventFilter{Search: req.Search}
	if category, ok := models.ParseEventCategory(req.Category); ok {
		filter.Category = category
	}
	if req.Date != "" {
		day, err := time.Parse(models.DateLayout, req.Date)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event date")
		}
		filter.Date = &day
	}

	key := cacheKey(cacheKeyEvents, filter.Search, string(filter.Category), req.Date)
	var cached []dto.EventView
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, true, nil
	}

	start := time.Now()
	events, err := s.repo.List(ctx, filter)
	s.metrics.ObserveDBQuery("list_events", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}

	views := make([]dto.EventView, 0, len(events))
	for _, e := range events {
		views = append(views, dto.NewEventView(e))
	}
	_ = s.cache.Set(ctx, key, views, 0)
	return views, false, nil
}

// Create publishes an event. Status defaults to upcoming.
func (s *EventService) Create(ctx context.Context, userID string, req models.CreateEventRequest) (*dto.EventView, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Location = strings.TrimSpace(req.Location)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	day, err := time.Parse(models.DateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event date")
	}

	category, _ := models.ParseEventCategory(req.Category)
	status := models.EventStatus(req.Status)
	if status == "" {
		status = models.EventUpcoming
	}
	event := &models.Event{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Category:    category,
		Status:      status,
		EventDate:   day,
		StartTime:   req.Time,
		CreatedBy:   &userID,
	}
	if image := strings.TrimSpace(req.ImageURL); image != "" {
		event.ImageURL = &image
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	_ = s.cache.Invalidate(ctx, cacheKeyEvents+"*")

	view := dto.NewEventView(*event)
	return &view, nil
}
