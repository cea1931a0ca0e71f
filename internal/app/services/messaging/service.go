// Package messaging implements the conversation subsystem: sending, thread
// retrieval with read-marking, per-viewer conversation aggregation, and soft
// deletion over the append-only message log.
package messaging

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	appoutbox "esocial/internal/app/outbox"
	"esocial/internal/app/pagination"
	domainmsg "esocial/internal/domain/messaging"
	"esocial/internal/domain/shared/events"
	domainuser "esocial/internal/domain/user"
)

const (
	// DefaultConversationLimit is the conversation-list page size.
	DefaultConversationLimit = 10
	// DefaultThreadLimit is the thread page size.
	DefaultThreadLimit = 50
)

type Service struct {
	Messages  domainmsg.Store
	Directory domainuser.Directory
	Outbox    appoutbox.Outbox
	Encoder   appoutbox.EventEncoder
	Logger    *slog.Logger
	Now       func() time.Time
}

type SendParams struct {
	SenderID    domainuser.ID
	ReceiverID  domainuser.ID
	Content     string
	Attachments []domainmsg.Attachment
}

// Send validates and appends a message. Both endpoints must resolve in the
// user directory.
func (s *Service) Send(ctx context.Context, params SendParams) (*domainmsg.Message, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if _, err := s.Directory.ByID(ctx, params.SenderID); err != nil {
		return nil, err
	}
	if _, err := s.Directory.ByID(ctx, params.ReceiverID); err != nil {
		return nil, err
	}
	msg, err := domainmsg.NewMessage(domainmsg.CreateParams{
		ID:          domainmsg.ID(uuid.NewString()),
		SenderID:    params.SenderID,
		ReceiverID:  params.ReceiverID,
		Content:     params.Content,
		Attachments: params.Attachments,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Messages.Append(ctx, msg); err != nil {
		return nil, err
	}
	s.record(ctx, events.MessageSent{
		BaseEvent:  events.NewBase("message.sent", string(msg.ID), msg.CreatedAt),
		MessageID:  string(msg.ID),
		SenderID:   string(msg.SenderID),
		ReceiverID: string(msg.ReceiverID),
	})
	if s.Logger != nil {
		s.Logger.Info("message sent", "message_id", msg.ID, "sender_id", msg.SenderID, "receiver_id", msg.ReceiverID)
	}
	return msg, nil
}

// ListConversations derives the viewer's conversation list: one row per
// counterpart, newest exchange first. Read state is never mutated here.
func (s *Service) ListConversations(ctx context.Context, viewerID domainuser.ID, page, limit int) ([]domainmsg.Conversation, pagination.PageInfo, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, pagination.PageInfo{}, err
	}
	params, err := pagination.New(page, limit, DefaultConversationLimit)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	msgs, err := s.Messages.ListForUser(ctx, viewerID)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}

	// First pass: partition by counterpart, tracking the newest message
	// and the inbound unread count per partition.
	type partition struct {
		last   domainmsg.Message
		unread int
	}
	partitions := make(map[domainuser.ID]*partition)
	for i := range msgs {
		msg := msgs[i]
		counterpart := msg.CounterpartOf(viewerID)
		part, ok := partitions[counterpart]
		if !ok {
			part = &partition{last: msg}
			partitions[counterpart] = part
		} else if msg.After(&part.last) {
			part.last = msg
		}
		if msg.ReceiverID == viewerID && !msg.Read {
			part.unread++
		}
	}

	// Second pass: resolve directory snapshots. Counterparts whose
	// directory record is gone (deleted account) drop out of the list.
	conversations := make([]domainmsg.Conversation, 0, len(partitions))
	for counterpart, part := range partitions {
		snapshot, err := s.Directory.ByID(ctx, counterpart)
		if err != nil {
			if errors.Is(err, domainuser.ErrNotFound) {
				continue
			}
			return nil, pagination.PageInfo{}, err
		}
		conversations = append(conversations, domainmsg.Conversation{
			Counterpart: snapshot.Snapshot(),
			LastMessage: domainmsg.LastMessage{
				ID:        part.last.ID,
				Content:   part.last.Content,
				SenderID:  part.last.SenderID,
				CreatedAt: part.last.CreatedAt,
				Read:      part.last.Read,
			},
			UnreadCount: part.unread,
		})
	}
	sort.Slice(conversations, func(i, j int) bool {
		a, b := conversations[i].LastMessage, conversations[j].LastMessage
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	pageItems, info := pagination.Slice(conversations, params)
	return pageItems, info, nil
}

// Thread returns one chronological page of the conversation with the
// counterpart, newest page first, and marks the fetched-direction inbound
// messages read as a side effect.
func (s *Service) Thread(ctx context.Context, viewerID, counterpartID domainuser.ID, page, limit int) ([]domainmsg.Message, domainuser.Snapshot, pagination.PageInfo, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, domainuser.Snapshot{}, pagination.PageInfo{}, err
	}
	params, err := pagination.New(page, limit, DefaultThreadLimit)
	if err != nil {
		return nil, domainuser.Snapshot{}, pagination.PageInfo{}, err
	}
	counterpart, err := s.Directory.ByID(ctx, counterpartID)
	if err != nil {
		return nil, domainuser.Snapshot{}, pagination.PageInfo{}, err
	}

	msgs, total, err := s.Messages.Thread(ctx, viewerID, counterpartID, params.Offset(), params.Limit)
	if err != nil {
		return nil, domainuser.Snapshot{}, pagination.PageInfo{}, err
	}
	// The store pages newest-first; flip each page into display order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	if err := s.markThreadRead(ctx, viewerID, counterpartID); err != nil {
		return nil, domainuser.Snapshot{}, pagination.PageInfo{}, err
	}
	return msgs, counterpart.Snapshot(), params.Info(total), nil
}

// markThreadRead is the bulk read-state transition behind Thread. The store
// update is predicate-based, so concurrent invocations are redundant, not
// conflicting.
func (s *Service) markThreadRead(ctx context.Context, viewerID, counterpartID domainuser.ID) error {
	return s.Messages.MarkThreadRead(ctx, viewerID, counterpartID, s.now())
}

// MarkRead transitions a single message to read. Receiver-only; already-read
// messages succeed silently without touching readAt.
func (s *Service) MarkRead(ctx context.Context, viewerID domainuser.ID, id domainmsg.ID) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	msg, err := s.Messages.ByID(ctx, id)
	if err != nil {
		return err
	}
	if msg.ReceiverID != viewerID {
		return domainmsg.ErrNotReceiver
	}
	if msg.Read {
		return nil
	}
	return s.Messages.MarkRead(ctx, id, s.now())
}

// Delete soft-deletes a message for both participants. A second delete of
// the same message reports not-found: deleted messages are invisible.
func (s *Service) Delete(ctx context.Context, actorID domainuser.ID, id domainmsg.ID) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	msg, err := s.Messages.ByID(ctx, id)
	if err != nil {
		return err
	}
	if !msg.Touches(actorID) {
		return domainmsg.ErrNotParticipant
	}
	return s.Messages.SoftDelete(ctx, id, s.now())
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
	switch {
	case s.Messages == nil:
		return errors.New("messaging: message store required")
	case s.Directory == nil:
		return errors.New("messaging: user directory required")
	default:
		return nil
	}
}
