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
	ErrIDRequired       = errors.New("post: id is required")
	ErrAuthorRequired   = errors.New("post: author is required")
	ErrContentRequired  = errors.New("post: content is required")
	ErrContentTooLong   = errors.New("post: content exceeds 2000 characters")
	ErrInvalidType      = errors.New("post: invalid type")
	ErrInvalidMentoring = errors.New("post: mentorship type must be offer or request")
	ErrNotFound         = errors.New("post: not found")
	ErrNotAuthor        = errors.New("post: only the author may modify this post")
)

const maxContentLength = 2000

type ID string

type Type string

const (
	TypeText  Type = "text"
	TypeImage Type = "image"
	TypeLink  Type = "link"
	TypeFile  Type = "file"
)

type MentorshipType string

const (
	MentorshipOffer   MentorshipType = "offer"
	MentorshipRequest MentorshipType = "request"
)

type Post struct {
	ID               ID
	AuthorID         user.ID
	Content          string
	Images           []Image
	Attachments      []Attachment
	Links            []Link
	Type             Type
	Likes            []user.ID
	Reposts          []user.ID
	CommentsCount    int
	IsMentorshipPost bool
	MentorshipType   MentorshipType
	Subject          string
	GroupID          string
	Deleted          bool
	DeletedAt        time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Image struct {
	URL     string
	Key     string
	Caption string
}

type Attachment struct {
	Name        string
	URL         string
	ContentType string
	Size        int64
}

type Link struct {
	URL         string
	Title       string
	Description string
	Image       string
}

type CreateParams struct {
	ID               ID
	AuthorID         user.ID
	Content          string
	Images           []Image
	Attachments      []Attachment
	Links            []Link
	Type             Type
	IsMentorshipPost bool
	MentorshipType   MentorshipType
	Subject          string
	GroupID          string
	CreatedAt        time.Time
}

func NewPost(params CreateParams) (*Post, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.AuthorID)) == "" {
		return nil, ErrAuthorRequired
	}
	if strings.TrimSpace(params.Content) == "" {
		return nil, ErrContentRequired
	}
	if utf8.RuneCountInString(params.Content) > maxContentLength {
		return nil, ErrContentTooLong
	}
	kind := params.Type
	if kind == "" {
		kind = TypeText
	}
	switch kind {
	case TypeText, TypeImage, TypeLink, TypeFile:
	default:
		return nil, ErrInvalidType
	}
	if params.IsMentorshipPost {
		switch params.MentorshipType {
		case MentorshipOffer, MentorshipRequest:
		default:
			return nil, ErrInvalidMentoring
		}
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Post{
		ID:               ID(id),
		AuthorID:         params.AuthorID,
		Content:          params.Content,
		Images:           append([]Image(nil), params.Images...),
		Attachments:      append([]Attachment(nil), params.Attachments...),
		Links:            append([]Link(nil), params.Links...),
		Type:             kind,
		IsMentorshipPost: params.IsMentorshipPost,
		MentorshipType:   params.MentorshipType,
		Subject:          strings.TrimSpace(params.Subject),
		GroupID:          strings.TrimSpace(params.GroupID),
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (p *Post) LikedBy(id user.ID) bool {
	for _, u := range p.Likes {
		if u == id {
			return true
		}
	}
	return false
}

func (p *Post) RepostedBy(id user.ID) bool {
	for _, u := range p.Reposts {
		if u == id {
			return true
		}
	}
	return false
}

func (p *Post) UpdateContent(content string, now time.Time) error {
	if strings.TrimSpace(content) == "" {
		return ErrContentRequired
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return ErrContentTooLong
	}
	p.Content = content
	if now.IsZero() {
		now = time.Now()
	}
	p.UpdatedAt = now.UTC()
	return nil
}

// ListFilter narrows the feed query. Zero values mean "no constraint".
type ListFilter struct {
	Type           Type
	AuthorID       user.ID
	AuthorRole     user.Role
	GroupID        string
	MentorshipOnly bool
}

type Repository interface {
	Save(ctx context.Context, p *Post) error
	// ByID returns a non-deleted post, ErrNotFound otherwise.
	ByID(ctx context.Context, id ID) (*Post, error)
	// List returns non-deleted posts newest-first, sliced by
	// offset/limit, plus the total match count.
	List(ctx context.Context, filter ListFilter, offset, limit int) ([]Post, int, error)
	// ToggleLike atomically adds or removes the user from the like set
	// and reports the resulting state and count.
	ToggleLike(ctx context.Context, id ID, by user.ID) (liked bool, count int, err error)
	// ToggleRepost atomically adds or removes the user from the repost set.
	ToggleRepost(ctx context.Context, id ID, by user.ID) (reposted bool, count int, err error)
	// AdjustCommentCount bumps the denormalized comment counter.
	AdjustCommentCount(ctx context.Context, id ID, delta int) error
	// SoftDelete hides the post; ErrNotFound when absent or already hidden.
	SoftDelete(ctx context.Context, id ID, at time.Time) error
}
