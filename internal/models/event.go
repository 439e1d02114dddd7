package models

import (
	"strings"
	"time"
)

// EventCategory groups calendar events.
type EventCategory string

const (
	EventAcademic EventCategory = "academic"
	EventCultural EventCategory = "cultural"
	EventSports   EventCategory = "sports"
	EventWorkshop EventCategory = "workshop"
)

// EventCategories lists every category in display order.
var EventCategories = []EventCategory{EventAcademic, EventCultural, EventSports, EventWorkshop}

// ParseEventCategory accepts any letter case.
func ParseEventCategory(raw string) (EventCategory, bool) {
	category := EventCategory(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range EventCategories {
		if category == known {
			return category, true
		}
	}
	return category, false
}

// EventStatus tracks where an event is in its lifecycle.
type EventStatus string

const (
	EventUpcoming  EventStatus = "upcoming"
	EventOngoing   EventStatus = "ongoing"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

// Event is a campus calendar entry.
type Event struct {
	ID          string        `db:"id" json:"id"`
	Title       string        `db:"title" json:"title"`
	Description string        `db:"description" json:"description"`
	Location    string        `db:"location" json:"location"`
	Category    EventCategory `db:"category" json:"category"`
	Status      EventStatus   `db:"status" json:"status"`
	EventDate   time.Time     `db:"event_date" json:"event_date"`
	StartTime   string        `db:"start_time" json:"start_time"`
	ImageURL    *string       `db:"image_url" json:"image_url"`
	CreatedBy   *string       `db:"created_by" json:"created_by"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

// EventFilter narrows the calendar. Zero values match everything.
type EventFilter struct {
	Search   string
	Category EventCategory
	Date     *time.Time
}

// EventListRequest carries query parameters. Category "all" is the same as no category.
type EventListRequest struct {
	Search   string `form:"q" validate:"max=200"`
	Category string `form:"category" validate:"omitempty,oneof=all academic cultural sports workshop"`
	Date     string `form:"date" validate:"omitempty,datetime=2006-01-02"`
}

// CreateEventRequest is submitted by faculty to publish an event.
type CreateEventRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Location    string `json:"location" validate:"max=200"`
	Category    string `json:"category" validate:"required,oneof=academic cultural sports workshop"`
	Status      string `json:"status" validate:"omitempty,oneof=upcoming ongoing completed cancelled"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Time        string `json:"time" validate:"omitempty,datetime=15:04"`
	ImageURL    string `json:"image_url" validate:"omitempty,url,max=500"`
}
