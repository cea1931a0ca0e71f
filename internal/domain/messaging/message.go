package messaging

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"esocial/internal/domain/user"
)

var (
	ErrIDRequired      = errors.New("messaging: message id is required")
	ErrSenderRequired  = errors.New("messaging: sender is required")
	ErrReceiverMissing = errors.New("messaging: receiver is required")
	ErrSelfMessage     = errors.New("messaging: cannot send a message to yourself")
	ErrContentRequired = errors.New("messaging: content is required")
	ErrContentTooLong  = errors.New("messaging: content exceeds 2000 characters")
	ErrNotFound        = errors.New("messaging: message not found")
	ErrNotReceiver     = errors.New("messaging: only the receiver may mark a message read")
	ErrNotParticipant  = errors.New("messaging: only a participant may delete a message")
)

// MaxContentLength bounds message content, counted in runes.
const MaxContentLength = 2000

type ID string

// Message is a directed point-to-point message. Read and deletion state only
// move forward: once read a message never becomes unread again, once deleted
// it stays hidden from every view.
type Message struct {
	ID          ID
	SenderID    user.ID
	ReceiverID  user.ID
	Content     string
	Attachments []Attachment
	Read        bool
	ReadAt      time.Time
	Deleted     bool
	DeletedAt   time.Time
	CreatedAt   time.Time
	// Seq is the store-assigned insertion sequence, used to break
	// ordering ties between messages created in the same instant.
	Seq int64
}

type Attachment struct {
	Name        string
	URL         string
	ContentType string
	Size        int64
}

type CreateParams struct {
	ID          ID
	SenderID    user.ID
	ReceiverID  user.ID
	Content     string
	Attachments []Attachment
	CreatedAt   time.Time
}

func NewMessage(params CreateParams) (*Message, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	sender := user.ID(strings.TrimSpace(string(params.SenderID)))
	if sender == "" {
		return nil, ErrSenderRequired
	}
	receiver := user.ID(strings.TrimSpace(string(params.ReceiverID)))
	if receiver == "" {
		return nil, ErrReceiverMissing
	}
	if sender == receiver {
		return nil, ErrSelfMessage
	}
	content := params.Content
	if strings.TrimSpace(content) == "" {
		return nil, ErrContentRequired
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, ErrContentTooLong
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	return &Message{
		ID:          ID(id),
		SenderID:    sender,
		ReceiverID:  receiver,
		Content:     content,
		Attachments: append([]Attachment(nil), params.Attachments...),
		CreatedAt:   now.UTC(),
	}, nil
}

// Touches reports whether the user is either endpoint of the message.
func (m *Message) Touches(id user.ID) bool {
	return m.SenderID == id || m.ReceiverID == id
}

// CounterpartOf returns the other endpoint relative to the viewer.
func (m *Message) CounterpartOf(viewer user.ID) user.ID {
	if m.SenderID == viewer {
		return m.ReceiverID
	}
	return m.SenderID
}

// After orders messages by creation time with the insertion sequence as a
// stable tie-break.
func (m *Message) After(other *Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.After(other.CreatedAt)
	}
	return m.Seq > other.Seq
}

// Store is the append-only message log. Mutations are atomic predicate
// updates in every implementation: mark-read and delete never round-trip
// state through the caller.
type Store interface {
	// Append persists a new message and assigns its insertion sequence.
	Append(ctx context.Context, msg *Message) error
	// ByID returns a non-deleted message, ErrNotFound otherwise.
	ByID(ctx context.Context, id ID) (*Message, error)
	// Thread returns non-deleted messages between the pair ordered
	// newest-first, sliced by offset/limit, plus the total thread size.
	Thread(ctx context.Context, a, b user.ID, offset, limit int) ([]Message, int, error)
	// ListForUser returns every non-deleted message touching the user,
	// in no particular order.
	ListForUser(ctx context.Context, id user.ID) ([]Message, error)
	// MarkThreadRead flips every unread message sent by counterpart to
	// viewer to read in one bulk update. Safe to run redundantly.
	MarkThreadRead(ctx context.Context, viewer, counterpart user.ID, at time.Time) error
	// MarkRead flips a single message to read. Already-read messages are
	// left untouched (readAt keeps its original stamp).
	MarkRead(ctx context.Context, id ID, at time.Time) error
	// SoftDelete hides a message. Returns ErrNotFound when the message
	// is absent or already deleted.
	SoftDelete(ctx context.Context, id ID, at time.Time) error
}
