package memory

import (
	"context"
	"sort"
	"sync"

	domaingroup "esocial/internal/domain/group"
	domainuser "esocial/internal/domain/user"
)

// GroupRepository stores groups in memory.
type GroupRepository struct {
	mu   sync.RWMutex
	byID map[domaingroup.ID]*domaingroup.Group
}

func NewGroupRepository() *GroupRepository {
	return &GroupRepository{byID: make(map[domaingroup.ID]*domaingroup.Group)}
}

func (r *GroupRepository) Save(ctx context.Context, g *domaingroup.Group) error {
	if g == nil {
		return domaingroup.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[g.ID] = cloneGroup(g)
	return nil
}

func (r *GroupRepository) ByID(ctx context.Context, id domaingroup.ID) (*domaingroup.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.byID[id]
	if !ok || !g.Active {
		return nil, domaingroup.ErrNotFound
	}
	return cloneGroup(g), nil
}

func (r *GroupRepository) List(ctx context.Context, filter domaingroup.ListFilter, offset, limit int) ([]domaingroup.Group, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*domaingroup.Group
	for _, g := range r.byID {
		if !g.Active {
			continue
		}
		if filter.Category != "" && g.Category != filter.Category {
			continue
		}
		if filter.University != "" && g.University != filter.University {
			continue
		}
		if filter.MemberID != "" && !g.IsMember(filter.MemberID) {
			continue
		}
		matched = append(matched, g)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	total := len(matched)
	if offset >= total {
		return []domaingroup.Group{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	out := make([]domaingroup.Group, 0, end-offset)
	for _, g := range matched[offset:end] {
		out = append(out, *cloneGroup(g))
	}
	return out, total, nil
}

func (r *GroupRepository) AddMember(ctx context.Context, id domaingroup.ID, member domainuser.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.byID[id]
	if !ok || !g.Active {
		return domaingroup.ErrNotFound
	}
	if g.IsMember(member) {
		return domaingroup.ErrAlreadyMember
	}
	g.Members = append(g.Members, member)
	return nil
}

func (r *GroupRepository) RemoveMember(ctx context.Context, id domaingroup.ID, member domainuser.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.byID[id]
	if !ok || !g.Active {
		return domaingroup.ErrNotFound
	}
	if !g.IsMember(member) {
		return domaingroup.ErrNotMember
	}
	g.Members = removeUser(g.Members, member)
	g.Admins = removeUser(g.Admins, member)
	return nil
}

func removeUser(set []domainuser.ID, id domainuser.ID) []domainuser.ID {
	out := set[:0]
	for _, u := range set {
		if u != id {
			out = append(out, u)
		}
	}
	return out
}

func cloneGroup(g *domaingroup.Group) *domaingroup.Group {
	if g == nil {
		return nil
	}
	copyGroup := *g
	copyGroup.Members = append([]domainuser.ID(nil), g.Members...)
	copyGroup.Admins = append([]domainuser.ID(nil), g.Admins...)
	return &copyGroup
}

var _ domaingroup.Repository = (*GroupRepository)(nil)
