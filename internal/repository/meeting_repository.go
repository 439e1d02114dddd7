package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

const meetingColumns = `id, creator_id, title, room_name, meeting_date, duration_minutes, participants, agenda, created_at`

// MeetingRepository persists scheduled meetings.
type MeetingRepository struct {
	db *sqlx.DB
}

// NewMeetingRepository constructs the repository.
func NewMeetingRepository(db *sqlx.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

// Create inserts a meeting. ErrDuplicate signals a room name collision.
func (r *MeetingRepository) Create(ctx context.Context, meeting *models.Meeting) error {
	if meeting.ID == "" {
		meeting.ID = uuid.NewString()
	}
	if meeting.CreatedAt.IsZero() {
		meeting.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO meetings (` + meetingColumns + `) VALUES (:id, :creator_id, :title, :room_name, :meeting_date, :duration_minutes, :participants, :agenda, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, meeting); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create meeting: %w", err)
	}
	return nil
}

// ListByCreator returns the creator's meetings, earliest first.
func (r *MeetingRepository) ListByCreator(ctx context.Context, creatorID string) ([]models.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE creator_id = $1 ORDER BY meeting_date ASC`
	var meetings []models.Meeting
	if err := r.db.SelectContext(ctx, &meetings, query, creatorID); err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	return meetings, nil
}

// FindByID returns a meeting by id.
func (r *MeetingRepository) FindByID(ctx context.Context, id string) (*models.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE id = $1`
	var meeting models.Meeting
	if err := r.db.GetContext(ctx, &meeting, query, id); err != nil {
		if err = notFoundOnBadID(err); err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find meeting: %w", err)
	}
	return &meeting, nil
}

// Delete removes a meeting owned by creatorID. sql.ErrNoRows when nothing matched.
func (r *MeetingRepository) Delete(ctx context.Context, id, creatorID string) error {
	const query = `DELETE FROM meetings WHERE id = $1 AND creator_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, creatorID)
	if err != nil {
		if err = notFoundOnBadID(err); err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("delete meeting: %w", err)
	}
	return expectAffected(res)
}
