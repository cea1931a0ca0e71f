package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainpost "esocial/internal/domain/post"
	domainuser "esocial/internal/domain/user"
)

// CommentRepository stores comments in memory.
type CommentRepository struct {
	mu   sync.RWMutex
	byID map[domainpost.CommentID]*domainpost.Comment
}

func NewCommentRepository() *CommentRepository {
	return &CommentRepository{byID: make(map[domainpost.CommentID]*domainpost.Comment)}
}

func (r *CommentRepository) Save(ctx context.Context, c *domainpost.Comment) error {
	if c == nil {
		return domainpost.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[c.ID] = cloneComment(c)
	return nil
}

func (r *CommentRepository) ByID(ctx context.Context, id domainpost.CommentID) (*domainpost.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok || c.Deleted {
		return nil, domainpost.ErrCommentNotFound
	}
	return cloneComment(c), nil
}

func (r *CommentRepository) ListForPost(ctx context.Context, postID domainpost.ID, offset, limit int) ([]domainpost.Comment, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*domainpost.Comment
	for _, c := range r.byID {
		if c.Deleted || c.PostID != postID || c.ParentID != "" {
			continue
		}
		matched = append(matched, c)
	}
	sortCommentsOldestFirst(matched)
	total := len(matched)
	if offset >= total {
		return []domainpost.Comment{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	out := make([]domainpost.Comment, 0, end-offset)
	for _, c := range matched[offset:end] {
		out = append(out, *cloneComment(c))
	}
	return out, total, nil
}

func (r *CommentRepository) Replies(ctx context.Context, parentID domainpost.CommentID) ([]domainpost.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*domainpost.Comment
	for _, c := range r.byID {
		if c.Deleted || c.ParentID != parentID {
			continue
		}
		matched = append(matched, c)
	}
	sortCommentsOldestFirst(matched)
	out := make([]domainpost.Comment, 0, len(matched))
	for _, c := range matched {
		out = append(out, *cloneComment(c))
	}
	return out, nil
}

func (r *CommentRepository) ToggleLike(ctx context.Context, id domainpost.CommentID, by domainuser.ID) (bool, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok || c.Deleted {
		return false, 0, domainpost.ErrCommentNotFound
	}
	c.Likes, _ = toggleMembership(c.Likes, by)
	return containsUser(c.Likes, by), len(c.Likes), nil
}

func (r *CommentRepository) AdjustReplyCount(ctx context.Context, id domainpost.CommentID, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok || c.Deleted {
		return domainpost.ErrCommentNotFound
	}
	c.RepliesCount += delta
	if c.RepliesCount < 0 {
		c.RepliesCount = 0
	}
	return nil
}

func (r *CommentRepository) SoftDelete(ctx context.Context, id domainpost.CommentID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok || c.Deleted {
		return domainpost.ErrCommentNotFound
	}
	c.Deleted = true
	c.DeletedAt = at.UTC()
	return nil
}

func sortCommentsOldestFirst(comments []*domainpost.Comment) {
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return comments[i].ID < comments[j].ID
	})
}

func cloneComment(c *domainpost.Comment) *domainpost.Comment {
	if c == nil {
		return nil
	}
	copyComment := *c
	copyComment.Likes = append([]domainuser.ID(nil), c.Likes...)
	return &copyComment
}

var _ domainpost.CommentRepository = (*CommentRepository)(nil)
