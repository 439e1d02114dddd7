package dto

import "time"

// MeetingView is a scheduled meeting with its join link.
type MeetingView struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	RoomName        string    `json:"room_name"`
	JoinURL         string    `json:"join_url"`
	MeetingDate     time.Time `json:"meeting_date"`
	DurationMinutes int       `json:"duration_minutes"`
	Participants    []string  `json:"participants"`
	Agenda          *string   `json:"agenda"`
	CreatedAt       time.Time `json:"created_at"`
}
