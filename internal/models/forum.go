package models

import "time"

// Forum is a discussion thread. Archiving is a reversible soft delete.
type Forum struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	CreatorID   string    `db:"creator_id" json:"creator_id"`
	IsArchived  bool      `db:"is_archived" json:"is_archived"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ForumComment is append-only.
type ForumComment struct {
	ID        string    `db:"id" json:"id"`
	ForumID   string    `db:"forum_id" json:"forum_id"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	Comment   string    `db:"comment" json:"comment"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ForumScope selects every forum or only the caller's own.
type ForumScope string

const (
	ForumScopeAll  ForumScope = "all"
	ForumScopeMine ForumScope = "mine"
)

// ForumFilter scopes forum listings.
type ForumFilter struct {
	Archived  bool
	CreatorID string
	Search    string
}

// CreateForumRequest opens a new discussion.
type CreateForumRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

// PostCommentRequest appends a reply to a forum.
type PostCommentRequest struct {
	Comment string `json:"comment" validate:"required,max=5000"`
}
