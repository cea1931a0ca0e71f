// Package posts implements the feed: publishing, like and repost toggles,
// and the one-level comment tree underneath each post.
package posts

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	appoutbox "esocial/internal/app/outbox"
	"esocial/internal/app/pagination"
	domaingroup "esocial/internal/domain/group"
	domainpost "esocial/internal/domain/post"
	"esocial/internal/domain/shared/events"
	domainuser "esocial/internal/domain/user"
)

const (
	// DefaultFeedLimit is the feed page size.
	DefaultFeedLimit = 20
	// DefaultCommentLimit is the comment page size.
	DefaultCommentLimit = 20
)

type Service struct {
	Posts    domainpost.Repository
	Comments domainpost.CommentRepository
	Groups   domaingroup.Repository
	Outbox   appoutbox.Outbox
	Encoder  appoutbox.EventEncoder
	Logger   *slog.Logger
	Now      func() time.Time
}

type CreateParams struct {
	AuthorID         domainuser.ID
	Content          string
	Images           []domainpost.Image
	Attachments      []domainpost.Attachment
	Links            []domainpost.Link
	Type             domainpost.Type
	IsMentorshipPost bool
	MentorshipType   domainpost.MentorshipType
	Subject          string
	GroupID          string
}

// CommentView is a top-level comment with its replies attached.
type CommentView struct {
	Comment domainpost.Comment
	Replies []domainpost.Comment
}

// Create publishes a post. Posting into a group requires membership.
func (s *Service) Create(ctx context.Context, params CreateParams) (*domainpost.Post, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if params.GroupID != "" {
		if err := s.requireMembership(ctx, params.GroupID, params.AuthorID); err != nil {
			return nil, err
		}
	}
	post, err := domainpost.NewPost(domainpost.CreateParams{
		ID:               domainpost.ID(uuid.NewString()),
		AuthorID:         params.AuthorID,
		Content:          params.Content,
		Images:           params.Images,
		Attachments:      params.Attachments,
		Links:            params.Links,
		Type:             params.Type,
		IsMentorshipPost: params.IsMentorshipPost,
		MentorshipType:   params.MentorshipType,
		Subject:          params.Subject,
		GroupID:          params.GroupID,
		CreatedAt:        s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Posts.Save(ctx, post); err != nil {
		return nil, err
	}
	s.record(ctx, events.PostCreated{
		BaseEvent: events.NewBase("post.created", string(post.ID), post.CreatedAt),
		PostID:    string(post.ID),
		AuthorID:  string(post.AuthorID),
		GroupID:   post.GroupID,
	})
	if s.Logger != nil {
		s.Logger.Info("post published", "post_id", post.ID, "author_id", post.AuthorID)
	}
	return post, nil
}

func (s *Service) ByID(ctx context.Context, id domainpost.ID) (*domainpost.Post, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	return s.Posts.ByID(ctx, id)
}

// Feed pages through posts newest-first under the filter. A private group's
// feed is visible to its members only.
func (s *Service) Feed(ctx context.Context, viewerID domainuser.ID, filter domainpost.ListFilter, page, limit int) ([]domainpost.Post, pagination.PageInfo, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, pagination.PageInfo{}, err
	}
	params, err := pagination.New(page, limit, DefaultFeedLimit)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	if filter.GroupID != "" {
		if err := s.requireGroupVisibility(ctx, filter.GroupID, viewerID); err != nil {
			return nil, pagination.PageInfo{}, err
		}
	}
	posts, total, err := s.Posts.List(ctx, filter, params.Offset(), params.Limit)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	return posts, params.Info(total), nil
}

// UpdateContent edits the post body. Author-only.
func (s *Service) UpdateContent(ctx context.Context, actorID domainuser.ID, id domainpost.ID, content string) (*domainpost.Post, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	post, err := s.Posts.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actorID {
		return nil, domainpost.ErrNotAuthor
	}
	if err := post.UpdateContent(content, s.now()); err != nil {
		return nil, err
	}
	if err := s.Posts.Save(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete soft-deletes the post. Author-only; admins override in the handler
// layer by passing the author's identity check through the role.
func (s *Service) Delete(ctx context.Context, actorID domainuser.ID, actorRole domainuser.Role, id domainpost.ID) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	post, err := s.Posts.ByID(ctx, id)
	if err != nil {
		return err
	}
	if post.AuthorID != actorID && actorRole != domainuser.RoleAdmin {
		return domainpost.ErrNotAuthor
	}
	return s.Posts.SoftDelete(ctx, id, s.now())
}

// ToggleLike flips the actor's like on the post and reports the new state.
func (s *Service) ToggleLike(ctx context.Context, actorID domainuser.ID, id domainpost.ID) (bool, int, error) {
	if err := s.ensureDependencies(); err != nil {
		return false, 0, err
	}
	liked, count, err := s.Posts.ToggleLike(ctx, id, actorID)
	if err != nil {
		return false, 0, err
	}
	if liked {
		s.record(ctx, events.PostLiked{
			BaseEvent: events.NewBase("post.liked", string(id), s.now()),
			PostID:    string(id),
			LikedBy:   string(actorID),
		})
	}
	return liked, count, nil
}

// ToggleRepost flips the actor's repost on the post.
func (s *Service) ToggleRepost(ctx context.Context, actorID domainuser.ID, id domainpost.ID) (bool, int, error) {
	if err := s.ensureDependencies(); err != nil {
		return false, 0, err
	}
	return s.Posts.ToggleRepost(ctx, id, actorID)
}

// AddComment attaches a comment, or a reply when ParentID is set. Replies
// nest one level only.
func (s *Service) AddComment(ctx context.Context, actorID domainuser.ID, postID domainpost.ID, content string, parentID domainpost.CommentID) (*domainpost.Comment, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if s.Comments == nil {
		return nil, errors.New("posts: comment repository required")
	}
	if _, err := s.Posts.ByID(ctx, postID); err != nil {
		return nil, err
	}
	if parentID != "" {
		parent, err := s.Comments.ByID(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != postID {
			return nil, domainpost.ErrParentComment
		}
		// Flatten deeper nesting onto the top-level parent.
		if parent.ParentID != "" {
			parentID = parent.ParentID
		}
	}
	comment, err := domainpost.NewComment(domainpost.CreateCommentParams{
		ID:        domainpost.CommentID(uuid.NewString()),
		PostID:    postID,
		AuthorID:  actorID,
		Content:   content,
		ParentID:  parentID,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Comments.Save(ctx, comment); err != nil {
		return nil, err
	}
	if err := s.Posts.AdjustCommentCount(ctx, postID, 1); err != nil {
		return nil, err
	}
	if parentID != "" {
		if err := s.Comments.AdjustReplyCount(ctx, parentID, 1); err != nil {
			return nil, err
		}
	}
	return comment, nil
}

// CommentsForPost pages through top-level comments oldest-first, with each
// comment's replies attached.
func (s *Service) CommentsForPost(ctx context.Context, postID domainpost.ID, page, limit int) ([]CommentView, pagination.PageInfo, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, pagination.PageInfo{}, err
	}
	if s.Comments == nil {
		return nil, pagination.PageInfo{}, errors.New("posts: comment repository required")
	}
	params, err := pagination.New(page, limit, DefaultCommentLimit)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	if _, err := s.Posts.ByID(ctx, postID); err != nil {
		return nil, pagination.PageInfo{}, err
	}
	comments, total, err := s.Comments.ListForPost(ctx, postID, params.Offset(), params.Limit)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	views := make([]CommentView, 0, len(comments))
	for i := range comments {
		replies, err := s.Comments.Replies(ctx, comments[i].ID)
		if err != nil {
			return nil, pagination.PageInfo{}, err
		}
		views = append(views, CommentView{Comment: comments[i], Replies: replies})
	}
	return views, params.Info(total), nil
}

// ToggleCommentLike flips the actor's like on a comment.
func (s *Service) ToggleCommentLike(ctx context.Context, actorID domainuser.ID, id domainpost.CommentID) (bool, int, error) {
	if err := s.ensureDependencies(); err != nil {
		return false, 0, err
	}
	if s.Comments == nil {
		return false, 0, errors.New("posts: comment repository required")
	}
	return s.Comments.ToggleLike(ctx, id, actorID)
}

// DeleteComment soft-deletes a comment and rolls back the counters.
func (s *Service) DeleteComment(ctx context.Context, actorID domainuser.ID, actorRole domainuser.Role, id domainpost.CommentID) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	if s.Comments == nil {
		return errors.New("posts: comment repository required")
	}
	comment, err := s.Comments.ByID(ctx, id)
	if err != nil {
		return err
	}
	if comment.AuthorID != actorID && actorRole != domainuser.RoleAdmin {
		return domainpost.ErrNotAuthor
	}
	if err := s.Comments.SoftDelete(ctx, id, s.now()); err != nil {
		return err
	}
	if err := s.Posts.AdjustCommentCount(ctx, comment.PostID, -1); err != nil {
		return err
	}
	if comment.ParentID != "" {
		return s.Comments.AdjustReplyCount(ctx, comment.ParentID, -1)
	}
	return nil
}

func (s *Service) requireGroupVisibility(ctx context.Context, groupID string, viewerID domainuser.ID) error {
	if s.Groups == nil {
		return errors.New("posts: group repository required")
	}
	grp, err := s.Groups.ByID(ctx, domaingroup.ID(groupID))
	if err != nil {
		return err
	}
	if grp.Private && !grp.IsMember(viewerID) {
		return domaingroup.ErrNotMember
	}
	return nil
}

func (s *Service) requireMembership(ctx context.Context, groupID string, actorID domainuser.ID) error {
	if s.Groups == nil {
		return errors.New("posts: group repository required")
	}
	grp, err := s.Groups.ByID(ctx, domaingroup.ID(groupID))
	if err != nil {
		return err
	}
	if !grp.IsMember(actorID) {
		return domaingroup.ErrNotMember
	}
	return nil
}

func (s *Service) record(ctx context.Context, ev events.DomainEvent) {
	if err := appoutbox.Record(ctx, s.Outbox, s.Encoder, ev); err != nil && s.Logger != nil {
		s.Logger.Warn("event record failed", "event", ev.EventName(), "error", err)
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) ensureDependencies() error {
	if s.Posts == nil {
		return errors.New("posts: post repository required")
	}
	return nil
}
