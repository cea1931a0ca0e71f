package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainmsg "esocial/internal/domain/messaging"
	domainuser "esocial/internal/domain/user"
)

// MessageStore keeps the message log in memory. Used by tests and by the
// no-database dev mode; every mutation runs under one lock so the predicate
// semantics match the Mongo implementation.
type MessageStore struct {
	mu   sync.RWMutex
	byID map[domainmsg.ID]*domainmsg.Message
	seq  int64
}

func NewMessageStore() *MessageStore {
	return &MessageStore{byID: make(map[domainmsg.ID]*domainmsg.Message)}
}

func (s *MessageStore) Append(ctx context.Context, msg *domainmsg.Message) error {
	if msg == nil {
		return domainmsg.ErrIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	msg.Seq = s.seq
	s.byID[msg.ID] = cloneMessage(msg)
	return nil
}

func (s *MessageStore) ByID(ctx context.Context, id domainmsg.ID) (*domainmsg.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.byID[id]
	if !ok || msg.Deleted {
		return nil, domainmsg.ErrNotFound
	}
	return cloneMessage(msg), nil
}

func (s *MessageStore) Thread(ctx context.Context, a, b domainuser.ID, offset, limit int) ([]domainmsg.Message, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var thread []*domainmsg.Message
	for _, msg := range s.byID {
		if msg.Deleted {
			continue
		}
		if (msg.SenderID == a && msg.ReceiverID == b) || (msg.SenderID == b && msg.ReceiverID == a) {
			thread = append(thread, msg)
		}
	}
	sort.Slice(thread, func(i, j int) bool {
		return thread[i].After(thread[j])
	})
	total := len(thread)
	if offset >= total {
		return []domainmsg.Message{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	out := make([]domainmsg.Message, 0, end-offset)
	for _, msg := range thread[offset:end] {
		out = append(out, *cloneMessage(msg))
	}
	return out, total, nil
}

func (s *MessageStore) ListForUser(ctx context.Context, id domainuser.ID) ([]domainmsg.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domainmsg.Message
	for _, msg := range s.byID {
		if msg.Deleted || !msg.Touches(id) {
			continue
		}
		out = append(out, *cloneMessage(msg))
	}
	return out, nil
}

func (s *MessageStore) MarkThreadRead(ctx context.Context, viewer, counterpart domainuser.ID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.byID {
		if msg.Deleted || msg.Read {
			continue
		}
		if msg.ReceiverID == viewer && msg.SenderID == counterpart {
			msg.Read = true
			msg.ReadAt = at.UTC()
		}
	}
	return nil
}

func (s *MessageStore) MarkRead(ctx context.Context, id domainmsg.ID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.byID[id]
	if !ok || msg.Deleted {
		return domainmsg.ErrNotFound
	}
	if msg.Read {
		return nil
	}
	msg.Read = true
	msg.ReadAt = at.UTC()
	return nil
}

func (s *MessageStore) SoftDelete(ctx context.Context, id domainmsg.ID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.byID[id]
	if !ok || msg.Deleted {
		return domainmsg.ErrNotFound
	}
	msg.Deleted = true
	msg.DeletedAt = at.UTC()
	return nil
}

func cloneMessage(m *domainmsg.Message) *domainmsg.Message {
	if m == nil {
		return nil
	}
	copyMsg := *m
	copyMsg.Attachments = append([]domainmsg.Attachment(nil), m.Attachments...)
	return &copyMsg
}

var _ domainmsg.Store = (*MessageStore)(nil)
