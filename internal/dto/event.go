package dto

import (
	"time"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// EventView is a calendar entry as rendered to clients.
type EventView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	ImageURL    *string   `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewEventView formats the event date as YYYY-MM-DD.
func NewEventView(e models.Event) EventView {
	return EventView{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		Category:    string(e.Category),
		Status:      string(e.Status),
		Date:        e.EventDate.Format(models.DateLayout),
		Time:        e.StartTime,
		ImageURL:    e.ImageURL,
		CreatedAt:   e.CreatedAt,
	}
}
