package messaging

import (
	"time"

	"esocial/internal/domain/user"
)

// Conversation is the derived per-viewer summary of one counterpart: the
// directory snapshot, the latest exchanged message, and how many inbound
// messages the viewer has not read yet. It is recomputed on every request
// and never persisted.
type Conversation struct {
	Counterpart user.Snapshot
	LastMessage LastMessage
	UnreadCount int
}

// LastMessage is the trimmed-down view of the newest non-deleted message in
// a conversation.
type LastMessage struct {
	ID        ID
	Content   string
	SenderID  user.ID
	CreatedAt time.Time
	Read      bool
}
