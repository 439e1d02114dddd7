package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

const eventColumns = `id, title, description, location, category, status, event_date, start_time, image_url, created_by, created_at`

// EventRepository persists the campus calendar.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// List returns matching events in calendar order. Search matches title, description or location.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(description) LIKE $%d OR LOWER(location) LIKE $%d)", n, n, n))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Date != nil {
		args = append(args, *filter.Date)
		where = append(where, fmt.Sprintf("event_date = $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM events WHERE %s ORDER BY event_date ASC, start_time ASC, title ASC`, eventColumns, strings.Join(where, " AND "))
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// Create inserts an event.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO events (` + eventColumns + `) VALUES (:id, :title, :description, :location, :category, :status, :event_date, :start_time, :image_url, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}
