package model

import "time"

// Comment is a top-level comment on an event.
type Comment struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	AuthorID  *string   `json:"author_id,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentReply is a threaded reply under a comment.
type CommentReply struct {
	ID        string    `json:"id"`
	CommentID string    `json:"comment_id"`
	AuthorID  *string   `json:"author_id,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Reaction is an emoji reaction on a comment or a reply; one per user per
// target, re-reacting replaces the emoji.
type Reaction struct {
	ID        string    `json:"id"`
	TargetID  string    `json:"target_id"`
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}
