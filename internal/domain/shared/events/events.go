package events

import "time"

type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

type BaseEvent struct {
	Name      string
	Aggregate string
	Time      time.Time
}

func (e BaseEvent) EventName() string {
	return e.Name
}

func (e BaseEvent) AggregateID() string {
	return e.Aggregate
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Time
}

// MessageSent is emitted after a message is appended to the log.
type MessageSent struct {
	BaseEvent
	MessageID  string `json:"message_id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
}

// PostCreated is emitted after a post is published.
type PostCreated struct {
	BaseEvent
	PostID   string `json:"post_id"`
	AuthorID string `json:"author_id"`
	GroupID  string `json:"group_id,omitempty"`
}

// PostLiked is emitted when a like toggle lands in the "liked" state.
type PostLiked struct {
	BaseEvent
	PostID  string `json:"post_id"`
	LikedBy string `json:"liked_by"`
}

// GroupMemberJoined is emitted after a successful group join.
type GroupMemberJoined struct {
	BaseEvent
	GroupID  string `json:"group_id"`
	MemberID string `json:"member_id"`
}

// MentorshipStatusChanged is emitted on every status transition.
type MentorshipStatusChanged struct {
	BaseEvent
	MentorshipID string `json:"mentorship_id"`
	MentorID     string `json:"mentor_id"`
	MenteeID     string `json:"mentee_id"`
	Status       string `json:"status"`
}

func NewBase(name, aggregate string, at time.Time) BaseEvent {
	if at.IsZero() {
		at = time.Now()
	}
	return BaseEvent{Name: name, Aggregate: aggregate, Time: at.UTC()}
}
