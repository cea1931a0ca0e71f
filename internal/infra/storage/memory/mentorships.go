package memory

import (
	"context"
	"sort"
	"sync"

	domainmentor "esocial/internal/domain/mentorship"
)

// MentorshipRepository stores mentorships in memory.
type MentorshipRepository struct {
	mu   sync.RWMutex
	byID map[domainmentor.ID]*domainmentor.Mentorship
}

func NewMentorshipRepository() *MentorshipRepository {
	return &MentorshipRepository{byID: make(map[domainmentor.ID]*domainmentor.Mentorship)}
}

func (r *MentorshipRepository) Save(ctx context.Context, m *domainmentor.Mentorship) error {
	if m == nil {
		return domainmentor.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[m.ID] = cloneMentorship(m)
	return nil
}

func (r *MentorshipRepository) ByID(ctx context.Context, id domainmentor.ID) (*domainmentor.Mentorship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	if !ok {
		return nil, domainmentor.ErrNotFound
	}
	return cloneMentorship(m), nil
}

func (r *MentorshipRepository) List(ctx context.Context, filter domainmentor.ListFilter, offset, limit int) ([]domainmentor.Mentorship, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*domainmentor.Mentorship
	for _, m := range r.byID {
		if filter.ParticipantID != "" && !m.Participant(filter.ParticipantID) {
			continue
		}
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		matched = append(matched, m)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	total := len(matched)
	if offset >= total {
		return []domainmentor.Mentorship{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	out := make([]domainmentor.Mentorship, 0, end-offset)
	for _, m := range matched[offset:end] {
		out = append(out, *cloneMentorship(m))
	}
	return out, total, nil
}

func cloneMentorship(m *domainmentor.Mentorship) *domainmentor.Mentorship {
	if m == nil {
		return nil
	}
	copyMentorship := *m
	copyMentorship.Goals = append([]string(nil), m.Goals...)
	copyMentorship.Notes = append([]domainmentor.Note(nil), m.Notes...)
	return &copyMentorship
}

var _ domainmentor.Repository = (*MentorshipRepository)(nil)
