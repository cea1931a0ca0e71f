package dto

import (
	"time"

	"esocial/internal/app/pagination"
	domainmsg "esocial/internal/domain/messaging"
)

type Message struct {
	ID          string       `json:"id"`
	SenderID    string       `json:"sender_id"`
	ReceiverID  string       `json:"receiver_id"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Read        bool         `json:"read"`
	ReadAt      *time.Time   `json:"read_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

type Attachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

type LastMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	SenderID  string    `json:"sender_id"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
}

type Conversation struct {
	User        UserSnapshot `json:"user"`
	LastMessage LastMessage  `json:"last_message"`
	UnreadCount int          `json:"unread_count"`
}

type ConversationList struct {
	Conversations []Conversation      `json:"conversations"`
	Pagination    pagination.PageInfo `json:"pagination"`
}

type Thread struct {
	Messages   []Message           `json:"messages"`
	User       UserSnapshot        `json:"user"`
	Pagination pagination.PageInfo `json:"pagination"`
}

func MapMessage(m *domainmsg.Message) Message {
	if m == nil {
		return Message{}
	}
	msg := Message{
		ID:         string(m.ID),
		SenderID:   string(m.SenderID),
		ReceiverID: string(m.ReceiverID),
		Content:    m.Content,
		Read:       m.Read,
		CreatedAt:  m.CreatedAt,
	}
	if !m.ReadAt.IsZero() {
		at := m.ReadAt
		msg.ReadAt = &at
	}
	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, Attachment{
			Name:        a.Name,
			URL:         a.URL,
			ContentType: a.ContentType,
			Size:        a.Size,
		})
	}
	return msg
}

func MapMessages(msgs []domainmsg.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for i := range msgs {
		out = append(out, MapMessage(&msgs[i]))
	}
	return out
}

func MapConversation(c domainmsg.Conversation) Conversation {
	return Conversation{
		User: MapUserSnapshot(c.Counterpart),
		LastMessage: LastMessage{
			ID:        string(c.LastMessage.ID),
			Content:   c.LastMessage.Content,
			SenderID:  string(c.LastMessage.SenderID),
			CreatedAt: c.LastMessage.CreatedAt,
			Read:      c.LastMessage.Read,
		},
		UnreadCount: c.UnreadCount,
	}
}

func NewConversationList(convs []domainmsg.Conversation, info pagination.PageInfo) ConversationList {
	out := ConversationList{
		Conversations: make([]Conversation, 0, len(convs)),
		Pagination:    info,
	}
	for _, c := range convs {
		out.Conversations = append(out.Conversations, MapConversation(c))
	}
	return out
}
