package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/repository"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

const (
	defaultMeetingMinutes = 60
	roomSuffixLength      = 8
	roomNameAttempts      = 3
	roomAlphabet          = "0123456789abcdefghijklmnopqrstuvwxyz"
)

var (
	roomInvalidChars = regexp.MustCompile(`[^a-z0-9]`)
	roomDashRuns     = regexp.MustCompile(`-+`)
)

type meetingRepository interface {
	Create(ctx context.Context, meeting *models.Meeting) error
	ListByCreator(ctx context.Context, creatorID string) ([]models.Meeting, error)
	FindByID(ctx context.Context, id string) (*models.Meeting, error)
	Delete(ctx context.Context, id, creatorID string) error
}

// MeetingService schedules video meetings and builds their join links.
type MeetingService struct {
	repo      meetingRepository
	audit     *AuditService
	baseURL   string
	validator *validator.Validate
	logger    *zap.Logger
	suffix    func() (string, error)
}

// NewMeetingService constructs the meeting service. baseURL is the conferencing host, without a trailing slash.
func NewMeetingService(repo meetingRepository, audit *AuditService, baseURL string, validate *validator.Validate, logger *zap.Logger) *MeetingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeetingService{
		repo:      repo,
		audit:     audit,
		baseURL:   strings.TrimRight(baseURL, "/"),
		validator: validate,
		logger:    logger,
		suffix:    randomRoomSuffix,
	}
}

// Create schedules a meeting for the caller.
func (s *MeetingService) Create(ctx context.Context, userID string, req models.CreateMeetingRequest) (*dto.MeetingView, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid meeting payload")
	}
	startsAt, err := time.Parse(models.DateLayout+" 15:04", req.Date+" "+req.Time)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid meeting date or time")
	}
	duration := req.DurationMinutes
	if duration == 0 {
		duration = defaultMeetingMinutes
	}

	meeting := &models.Meeting{
		CreatorID:       userID,
		Title:           req.Title,
		MeetingDate:     startsAt,
		DurationMinutes: duration,
		Participants:    splitParticipants(req.Participants),
	}
	if agenda := strings.TrimSpace(req.Agenda); agenda != "" {
		meeting.Agenda = &agenda
	}

	base := roomBase(req.Title)
	for attempt := 1; ; attempt++ {
		suffix, err := s.suffix()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate room name")
		}
		meeting.ID = ""
		meeting.RoomName = base + "-" + suffix
		err = s.repo.Create(ctx, meeting)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicate) && attempt < roomNameAttempts {
			s.logger.Debug("room name collision, retrying", zap.String("room", meeting.RoomName))
			continue
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create meeting")
	}

	view := s.toView(*meeting)
	return &view, nil
}

// List returns the caller's meetings, earliest first.
func (s *MeetingService) List(ctx context.Context, userID string) ([]dto.MeetingView, error) {
	meetings, err := s.repo.ListByCreator(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list meetings")
	}
	views := make([]dto.MeetingView, 0, len(meetings))
	for _, m := range meetings {
		views = append(views, s.toView(m))
	}
	return views, nil
}

// Delete removes a meeting created by the caller.
func (s *MeetingService) Delete(ctx context.Context, userID, meetingID string, meta models.RequestMeta) error {
	err := s.repo.Delete(ctx, meetingID, userID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete meeting")
		}
		if _, findErr := s.repo.FindByID(ctx, meetingID); findErr != nil {
			if errors.Is(findErr, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "meeting not found")
			}
			return appErrors.Wrap(findErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load meeting")
		}
		return appErrors.Clone(appErrors.ErrForbidden, "only the meeting creator can delete it")
	}
	s.audit.Record(ctx, auditEntry(userID, models.AuditActionMeetingDelete, "meeting", meetingID, meta, nil))
	return nil
}

// JoinURL returns the conferencing link for a room.
func (s *MeetingService) JoinURL(room string) string {
	return s.baseURL + "/" + room
}

func (s *MeetingService) toView(m models.Meeting) dto.MeetingView {
	participants := []string(m.Participants)
	if participants == nil {
		participants = []string{}
	}
	return dto.MeetingView{
		ID:              m.ID,
		Title:           m.Title,
		RoomName:        m.RoomName,
		JoinURL:         s.JoinURL(m.RoomName),
		MeetingDate:     m.MeetingDate,
		DurationMinutes: m.DurationMinutes,
		Participants:    participants,
		Agenda:          m.Agenda,
		CreatedAt:       m.CreatedAt,
	}
}

// roomBase lowercases the title, replaces anything outside [a-z0-9] with dashes,
// collapses dash runs and trims dashes at both ends.
func roomBase(title string) string {
	base := roomInvalidChars.ReplaceAllString(strings.ToLower(title), "-")
	base = strings.Trim(roomDashRuns.ReplaceAllString(base, "-"), "-")
	if base == "" {
		return "meeting"
	}
	return base
}

func randomRoomSuffix() (string, error) {
	limit := big.NewInt(int64(len(roomAlphabet)))
	buf := make([]byte, roomSuffixLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("room suffix: %w", err)
		}
		buf[i] = roomAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// splitParticipants splits a comma separated list; nil when nothing remains.
func splitParticipants(raw string) pq.StringArray {
	var out pq.StringArray
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
