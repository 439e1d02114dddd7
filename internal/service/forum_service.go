package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type forumRepository interface {
	List(ctx context.Context, filter models.ForumFilter) ([]models.Forum, error)
	FindByID(ctx context.Context, id string) (*models.Forum, error)
	Create(ctx context.Context, forum *models.Forum) error
	SetArchived(ctx context.Context, id, creatorID string, archived bool) error
	CommentsByForumIDs(ctx context.Context, forumIDs []string) ([]models.ForumComment, error)
	CreateComment(ctx context.Context, comment *models.ForumComment) error
}

// ForumListRequest selects which forums a listing returns.
type ForumListRequest struct {
	Scope    string `form:"scope" validate:"omitempty,oneof=all mine"`
	Search   string `form:"q" validate:"max=200"`
	Archived bool   `form:"-"`
}

// ForumService lists forums with creators, reply counts and comment threads.
type ForumService struct {
	repo      forumRepository
	profiles  profileResolver
	audit     *AuditService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewForumService constructs the forum service.
func NewForumService(repo forumRepository, profiles profileResolver, audit *AuditService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ForumService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ForumService{repo: repo, profiles: profiles, audit: audit, metrics: metrics, validator: validate, logger: logger}
}

// List returns forum cards for the caller. Scope "mine" restricts to forums the caller created.
func (s *ForumService) List(ctx context.Context, userID string, req ForumListRequest) ([]dto.ForumView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid forum query")
	}
	filter := models.ForumFilter{Archived: req.Archived, Search: req.Search}
	if models.ForumScope(req.Scope) == models.ForumScopeMine {
		filter.CreatorID = userID
	}

	start := time.Now()
	forums, err := s.repo.List(ctx, filter)
	s.metrics.ObserveDBQuery("forums_list", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list forums")
	}
	return s.aggregate(ctx, forums)
}

// Get returns a single forum card with its full comment thread.
func (s *ForumService) Get(ctx context.Context, id string) (*dto.ForumView, error) {
	forum, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.aggregate(ctx, []models.Forum{*forum})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Comments returns the comment thread of a forum, oldest first.
func (s *ForumService) Comments(ctx context.Context, forumID string) ([]dto.CommentView, error) {
	view, err := s.Get(ctx, forumID)
	if err != nil {
		return nil, err
	}
	return view.Comments, nil
}

// Create opens a forum owned by the caller.
func (s *ForumService) Create(ctx context.Context, userID string, req models.CreateForumRequest) (*dto.ForumView, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid forum payload")
	}

	forum := &models.Forum{Title: req.Title, Description: req.Description, CreatorID: userID}
	if err := s.repo.Create(ctx, forum); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create forum")
	}
	views, err := s.aggregate(ctx, []models.Forum{*forum})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// SetArchived archives or restores a forum. Only its creator may do so; repeating is a no-op.
func (s *ForumService) SetArchived(ctx context.Context, userID, forumID string, archived bool, meta models.RequestMeta) error {
	err := s.repo.SetArchived(ctx, forumID, userID, archived)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update forum")
		}
		if _, findErr := s.find(ctx, forumID); findErr != nil {
			return findErr
		}
		return appErrors.Clone(appErrors.ErrForbidden, "only the forum creator can change its archive state")
	}

	action := models.AuditActionForumUnarchive
	if archived {
		action = models.AuditActionForumArchive
	}
	s.audit.Record(ctx, auditEntry(userID, action, "forum", forumID, meta, map[string]interface{}{"is_archived": archived}))
	return nil
}

// PostComment appends a reply from the caller. Archived forums still accept comments.
func (s *ForumService) PostComment(ctx context.Context, userID, forumID string, req models.PostCommentRequest) (*dto.CommentView, error) {
	req.Comment = strings.TrimSpace(req.Comment)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}
	if _, err := s.find(ctx, forumID); err != nil {
		return nil, err
	}

	comment := &models.ForumComment{ForumID: forumID, AuthorID: userID, Comment: req.Comment}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to post comment")
	}

	view := dto.CommentView{ID: comment.ID, ForumID: forumID, Comment: comment.Comment, CreatedAt: comment.CreatedAt}
	profiles, err := s.profiles.Resolve(ctx, []string{userID})
	if err != nil {
		s.logger.Warn("failed to resolve comment author", zap.String("user_id", userID), zap.Error(err))
	} else if p, ok := profiles[userID]; ok {
		view.Author = dto.NewProfileRef(p)
	}
	return &view, nil
}

func (s *ForumService) find(ctx context.Context, id string) (*models.Forum, error) {
	forum, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "forum not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load forum")
	}
	return forum, nil
}

// aggregate attaches creators, comments and reply counts. Creator profiles and comments are
// fetched concurrently; commenters not already known are resolved in one more query.
// Comments whose forum is not in forums are dropped.
func (s *ForumService) aggregate(ctx context.Context, forums []models.Forum) ([]dto.ForumView, error) {
	views := make([]dto.ForumView, 0, len(forums))
	if len(forums) == 0 {
		return views, nil
	}

	forumIDs := make([]string, 0, len(forums))
	creatorIDs := make([]string, 0, len(forums))
	for _, f := range forums {
		forumIDs = append(forumIDs, f.ID)
		creatorIDs = append(creatorIDs, f.CreatorID)
	}

	var (
		creators map[string]models.Profile
		comments []models.ForumComment
	)
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		creators, err = s.profiles.Resolve(gctx, creatorIDs)
		return err
	})
	g.Go(func() error {
		var err error
		comments, err = s.repo.CommentsByForumIDs(gctx, forumIDs)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comments")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.metrics.ObserveDBQuery("forums_aggregate_fanout", time.Since(start))

	missing := make([]string, 0)
	for _, c := range comments {
		if _, ok := creators[c.AuthorID]; !ok {
			missing = append(missing, c.AuthorID)
		}
	}
	people := creators
	if len(missing) > 0 {
		commenters, err := s.profiles.Resolve(ctx, missing)
		if err != nil {
			return nil, err
		}
		people = make(map[string]models.Profile, len(creators)+len(commenters))
		for id, p := range creators {
			people[id] = p
		}
		for id, p := range commenters {
			people[id] = p
		}
	}

	index := make(map[string]int, len(forums))
	for _, f := range forums {
		index[f.ID] = len(views)
		views = append(views, dto.ForumView{
			ID:          f.ID,
			Title:       f.Title,
			Description: f.Description,
			IsArchived:  f.IsArchived,
			CreatedAt:   f.CreatedAt,
			UpdatedAt:   f.UpdatedAt,
			Creator:     profileRef(people, f.CreatorID),
			Comments:    []dto.CommentView{},
		})
	}
	for _, c := range comments {
		i, ok := index[c.ForumID]
		if !ok {
			continue
		}
		views[i].Comments = append(views[i].Comments, dto.CommentView{
			ID:        c.ID,
			ForumID:   c.ForumID,
			Comment:   c.Comment,
			CreatedAt: c.CreatedAt,
			Author:    profileRef(people, c.AuthorID),
		})
	}
	for i := range views {
		views[i].ReplyCount = len(views[i].Comments)
	}
	return views, nil
}

func profileRef(profiles map[string]models.Profile, id string) *dto.ProfileRef {
	p, ok := profiles[id]
	if !ok {
		return nil
	}
	return dto.NewProfileRef(p)
}
