package dto

import "time"

// CommentView is a forum comment with its author's profile.
type CommentView struct {
	ID        string      `json:"id"`
	ForumID   string      `json:"forum_id"`
	Comment   string      `json:"comment"`
	CreatedAt time.Time   `json:"created_at"`
	Author    *ProfileRef `json:"author"`
}

// ForumView is a forum card with creator, reply count and ordered comments.
type ForumView struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	IsArchived  bool          `json:"is_archived"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Creator     *ProfileRef   `json:"creator"`
	ReplyCount  int           `json:"reply_count"`
	Comments    []CommentView `json:"comments"`
}
