package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

const forumColumns = `id, title, description, creator_id, is_archived, created_at, updated_at`

// ForumRepository persists forums and their comments.
type ForumRepository struct {
	db *sqlx.DB
}

// NewForumRepository constructs the repository.
func NewForumRepository(db *sqlx.DB) *ForumRepository {
	return &ForumRepository{db: db}
}

// List returns forums in the requested archive state, newest first.
func (r *ForumRepository) List(ctx context.Context, filter models.ForumFilter) ([]models.Forum, error) {
	where := []string{"is_archived = $1"}
	args := []interface{}{filter.Archived}
	if filter.CreatorID != "" {
		args = append(args, filter.CreatorID)
		where = append(where, fmt.Sprintf("creator_id = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		where = append(where, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(description) LIKE $%d)", len(args), len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM forums WHERE %s ORDER BY created_at DESC`, forumColumns, strings.Join(where, " AND "))
	var forums []models.Forum
	if err := r.db.SelectContext(ctx, &forums, query, args...); err != nil {
		return nil, fmt.Errorf("list forums: %w", err)
	}
	return forums, nil
}

// FindByID returns a forum regardless of archive state.
func (r *ForumRepository) FindByID(ctx context.Context, id string) (*models.Forum, error) {
	query := `SELECT ` + forumColumns + ` FROM forums WHERE id = $1`
	var forum models.Forum
	if err := r.db.GetContext(ctx, &forum, query, id); err != nil {
		if err = notFoundOnBadID(err); err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find forum: %w", err)
	}
	return &forum, nil
}

// Create inserts a forum. New forums are never archived.
func (r *ForumRepository) Create(ctx context.Context, forum *models.Forum) error {
	now := time.Now().UTC()
	if forum.ID == "" {
		forum.ID = uuid.NewString()
	}
	forum.IsArchived = false
	forum.CreatedAt = now
	forum.UpdatedAt = now

	query := `INSERT INTO forums (` + forumColumns + `) VALUES (:id, :title, :description, :creator_id, :is_archived, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, forum); err != nil {
		return fmt.Errorf("create forum: %w", err)
	}
	return nil
}

// SetArchived flips the archive flag on a forum owned by creatorID.
// sql.ErrNoRows means the forum is missing or belongs to someone else.
func (r *ForumRepository) SetArchived(ctx context.Context, id, creatorID string, archived bool) error {
	const query = `UPDATE forums SET is_archived = $3, updated_at = $4 WHERE id = $1 AND creator_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, creatorID, archived, time.Now().UTC())
	if err != nil {
		if err = notFoundOnBadID(err); err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("set forum archived: %w", err)
	}
	return expectAffected(res)
}

// CommentsByForumIDs returns every comment on the given forums, oldest first.
func (r *ForumRepository) CommentsByForumIDs(ctx context.Context, forumIDs []string) ([]models.ForumComment, error) {
	forumIDs = validUUIDs(forumIDs)
	if len(forumIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT id, forum_id, author_id, comment, created_at FROM forum_comments WHERE forum_id = ANY($1) ORDER BY created_at ASC`
	var comments []models.ForumComment
	if err := r.db.SelectContext(ctx, &comments, query, pq.Array(forumIDs)); err != nil {
		return nil, fmt.Errorf("list forum comments: %w", err)
	}
	return comments, nil
}

// CreateComment appends a comment.
func (r *ForumRepository) CreateComment(ctx context.Context, comment *models.ForumComment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO forum_comments (id, forum_id, author_id, comment, created_at) VALUES (:id, :forum_id, :author_id, :comment, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("create forum comment: %w", err)
	}
	return nil
}
