package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainpost "esocial/internal/domain/post"
	domainuser "esocial/internal/domain/user"
)

// PostRepository stores posts in memory.
type PostRepository struct {
	mu    sync.RWMutex
	byID  map[domainpost.ID]*domainpost.Post
	roles RoleResolver
}

// RoleResolver lets the post feed filter by author role without the
// repository importing the user repository directly.
type RoleResolver func(id domainuser.ID) (domainuser.Role, bool)

func NewPostRepository(roles RoleResolver) *PostRepository {
	return &PostRepository{byID: make(map[domainpost.ID]*domainpost.Post), roles: roles}
}

func (r *PostRepository) Save(ctx context.Context, p *domainpost.Post) error {
	if p == nil {
		return domainpost.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = clonePost(p)
	return nil
}

func (r *PostRepository) ByID(ctx context.Context, id domainpost.ID) (*domainpost.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok || p.Deleted {
		return nil, domainpost.ErrNotFound
	}
	return clonePost(p), nil
}

func (r *PostRepository) List(ctx context.Context, filter domainpost.ListFilter, offset, limit int) ([]domainpost.Post, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*domainpost.Post
	for _, p := range r.byID {
		if p.Deleted {
			continue
		}
		if filter.Type != "" && p.Type != filter.Type {
			continue
		}
		if filter.AuthorID != "" && p.AuthorID != filter.AuthorID {
			continue
		}
		if filter.GroupID != "" && p.GroupID != filter.GroupID {
			continue
		}
		if filter.MentorshipOnly && !p.IsMentorshipPost {
			continue
		}
		if filter.AuthorRole != "" {
			if r.roles == nil {
				continue
			}
			role, ok := r.roles(p.AuthorID)
			if !ok || role != filter.AuthorRole {
				continue
			}
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	total := len(matched)
	if offset >= total {
		return []domainpost.Post{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	out := make([]domainpost.Post, 0, end-offset)
	for _, p := range matched[offset:end] {
		out = append(out, *clonePost(p))
	}
	return out, total, nil
}

func (r *PostRepository) ToggleLike(ctx context.Context, id domainpost.ID, by domainuser.ID) (bool, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.Deleted {
		return false, 0, domainpost.ErrNotFound
	}
	p.Likes, _ = toggleMembership(p.Likes, by)
	return containsUser(p.Likes, by), len(p.Likes), nil
}

func (r *PostRepository) ToggleRepost(ctx context.Context, id domainpost.ID, by domainuser.ID) (bool, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.Deleted {
		return false, 0, domainpost.ErrNotFound
	}
	p.Reposts, _ = toggleMembership(p.Reposts, by)
	return containsUser(p.Reposts, by), len(p.Reposts), nil
}

func (r *PostRepository) AdjustCommentCount(ctx context.Context, id domainpost.ID, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.Deleted {
		return domainpost.ErrNotFound
	}
	p.CommentsCount += delta
	if p.CommentsCount < 0 {
		p.CommentsCount = 0
	}
	return nil
}

func (r *PostRepository) SoftDelete(ctx context.Context, id domainpost.ID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.Deleted {
		return domainpost.ErrNotFound
	}
	p.Deleted = true
	p.DeletedAt = at.UTC()
	return nil
}

func toggleMembership(set []domainuser.ID, id domainuser.ID) ([]domainuser.ID, bool) {
	for i, u := range set {
		if u == id {
			return append(set[:i], set[i+1:]...), false
		}
	}
	return append(set, id), true
}

func containsUser(set []domainuser.ID, id domainuser.ID) bool {
	for _, u := range set {
		if u == id {
			return true
		}
	}
	return false
}

func clonePost(p *domainpost.Post) *domainpost.Post {
	if p == nil {
		return nil
	}
	copyPost := *p
	copyPost.Images = append([]domainpost.Image(nil), p.Images...)
	copyPost.Attachments = append([]domainpost.Attachment(nil), p.Attachments...)
	copyPost.Links = append([]domainpost.Link(nil), p.Links...)
	copyPost.Likes = append([]domainuser.ID(nil), p.Likes...)
	copyPost.Reposts = append([]domainuser.ID(nil), p.Reposts...)
	return &copyPost
}

var _ domainpost.Repository = (*PostRepository)(nil)
