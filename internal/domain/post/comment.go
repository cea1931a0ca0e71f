package post

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"esocial/internal/domain/user"
)

var (
	ErrCommentContentRequired = errors.New("post: comment content is required")
	ErrCommentTooLong         = errors.New("post: comment exceeds 1000 characters")
	ErrCommentNotFound        = errors.New("post: comment not found")
	ErrParentComment          = errors.New("post: parent comment does not belong to this post")
)

const maxCommentLength = 1000

type CommentID string

type Comment struct {
	ID           CommentID
	PostID       ID
	AuthorID     user.ID
	Content      string
	ParentID     CommentID
	Likes        []user.ID
	RepliesCount int
	Deleted      bool
	DeletedAt    time.Time
	CreatedAt    time.Time
}

type CreateCommentParams struct {
	ID        CommentID
	PostID    ID
	AuthorID  user.ID
	Content   string
	ParentID  CommentID
	CreatedAt time.Time
}

func NewComment(params CreateCommentParams) (*Comment, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.PostID)) == "" {
		return nil, ErrNotFound
	}
	if strings.TrimSpace(string(params.AuthorID)) == "" {
		return nil, ErrAuthorRequired
	}
	if strings.TrimSpace(params.Content) == "" {
		return nil, ErrCommentContentRequired
	}
	if utf8.RuneCountInString(params.Content) > maxCommentLength {
		return nil, ErrCommentTooLong
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	return &Comment{
		ID:        CommentID(id),
		PostID:    params.PostID,
		AuthorID:  params.AuthorID,
		Content:   params.Content,
		ParentID:  params.ParentID,
		CreatedAt: now.UTC(),
	}, nil
}

func (c *Comment) LikedBy(id user.ID) bool {
	for _, u := range c.Likes {
		if u == id {
			return true
		}
	}
	return false
}

type CommentRepository interface {
	Save(ctx context.Context, c *Comment) error
	ByID(ctx context.Context, id CommentID) (*Comment, error)
	// ListForPost returns non-deleted top-level comments oldest-first,
	// sliced by offset/limit, with replies attached by the caller.
	ListForPost(ctx context.Context, postID ID, offset, limit int) ([]Comment, int, error)
	// Replies returns non-deleted replies of a comment oldest-first.
	Replies(ctx context.Context, parentID CommentID) ([]Comment, error)
	ToggleLike(ctx context.Context, id CommentID, by user.ID) (liked bool, count int, err error)
	AdjustReplyCount(ctx context.Context, id CommentID, delta int) error
	SoftDelete(ctx context.Context, id CommentID, at time.Time) error
}
