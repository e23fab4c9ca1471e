package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/eyengage/engage-api/internal/model"
)

type CommentRepo struct{ DB *sql.DB }

func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{DB: db} }

// Create inserts a top-level comment.
func (r *CommentRepo) Create(ctx context.Context, c *model.Comment) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO comments (id, event_id, author_id, content) VALUES (?,?,?,?)",
		c.ID, c.EventID, c.AuthorID, c.Content)
	return err
}

// ListByEvent returns comments for an event, oldest first.
func (r *CommentRepo) ListByEvent(ctx context.Context, eventID string) ([]model.Comment, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,event_id,author_id,content,created_at FROM comments WHERE event_id=? ORDER BY created_at",
		eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Comment
	for rows.Next() {
		var (
			c      model.Comment
			author sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.EventID, &author, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		if author.Valid {
			c.AuthorID = &author.String
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateReply inserts a reply under a comment.
func (r *CommentRepo) CreateReply(ctx context.Context, reply *model.CommentReply) error {
	if reply.ID == "" {
		reply.ID = uuid.NewString()
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO comment_replies (id, comment_id, author_id, content) VALUES (?,?,?,?)",
		reply.ID, reply.CommentID, reply.AuthorID, reply.Content)
	return err
}

// ReactToComment upserts the caller's emoji on a comment; one reaction per
// user, re-reacting replaces the emoji.
func (r *CommentRepo) ReactToComment(ctx context.Context, commentID, userID, emoji string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO comment_reactions (id, comment_id, user_id, emoji) VALUES (?,?,?,?)
		 ON DUPLICATE KEY UPDATE emoji=VALUES(emoji), created_at=CURRENT_TIMESTAMP`,
		uuid.NewString(), commentID, userID, emoji)
	return err
}

// ReactToReply upserts the caller's emoji on a reply.
func (r *CommentRepo) ReactToReply(ctx context.Context, replyID, userID, emoji string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO reply_reactions (id, reply_id, user_id, emoji) VALUES (?,?,?,?)
		 ON DUPLICATE KEY UPDATE emoji=VALUES(emoji), created_at=CURRENT_TIMESTAMP`,
		uuid.NewString(), replyID, userID, emoji)
	return err
}

// DeleteOwned removes a comment plus its replies and reactions, but only
// when authorID wrote it. Reply reactions go first because the user-side
// foreign keys restrict; the order mirrors the event cascade.
func (r *CommentRepo) DeleteOwned(ctx context.Context, commentID, authorID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var owner sql.NullString
	err = tx.QueryRowContext(ctx,
		"SELECT author_id FROM comments WHERE id=?", commentID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !owner.Valid || owner.String != authorID {
		return ErrForbidden
	}

	steps := []string{
		`DELETE rr FROM reply_reactions rr
		 JOIN comment_replies cr ON cr.id = rr.reply_id
		 WHERE cr.comment_id = ?`,
		`DELETE FROM comment_reactions WHERE comment_id = ?`,
		`DELETE FROM comment_replies WHERE comment_id = ?`,
		`DELETE FROM comments WHERE id = ?`,
	}
	for _, q := range steps {
		if _, err := tx.ExecContext(ctx, q, commentID); err != nil {
			return err
		}
	}
	return tx.Commit()
}
