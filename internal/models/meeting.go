package models

import (
	"time"

	"github.com/lib/pq"
)

// Meeting is a scheduled video call. Only its creator can delete it.
type Meeting struct {
	ID              string         `db:"id" json:"id"`
	CreatorID       string         `db:"creator_id" json:"creator_id"`
	Title           string         `db:"title" json:"title"`
	RoomName        string         `db:"room_name" json:"room_name"`
	MeetingDate     time.Time      `db:"meeting_date" json:"meeting_date"`
	DurationMinutes int            `db:"duration_minutes" json:"duration_minutes"`
	Participants    pq.StringArray `db:"participants" json:"participants"`
	Agenda          *string        `db:"agenda" json:"agenda"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}

// CreateMeetingRequest mirrors the scheduling form.
type CreateMeetingRequest struct {
	Title           string `json:"title" validate:"required,max=200"`
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	Time            string `json:"time" validate:"required,datetime=15:04"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,min=1,max=1440"`
	Participants    string `json:"participants" validate:"max=2000"`
	Agenda          string `json:"agenda" validate:"max=5000"`
}
