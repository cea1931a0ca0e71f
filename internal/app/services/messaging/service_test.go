package messaging

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domainmsg "esocial/internal/domain/messaging"
	domainuser "esocial/internal/domain/user"
	"esocial/internal/infra/storage/memory"
)

type fixture struct {
	svc   *Service
	store *memory.MessageStore
	users *memory.UserRepository
	clock *time.Time
}

func newFixture(t *testing.T, ids ...domainuser.ID) *fixture {
	t.Helper()
	users := memory.NewUserRepository()
	for _, id := range ids {
		u, err := domainuser.NewUser(domainuser.CreateParams{
			ID:           id,
			Email:        string(id) + "@student.example.edu",
			FirstName:    strings.ToUpper(string(id)),
			LastName:     "Tester",
			PasswordHash: "x",
			University:   "Example University",
		})
		if err != nil {
			t.Fatalf("NewUser(%s): %v", id, err)
		}
		if err := users.Save(context.Background(), u); err != nil {
			t.Fatalf("Save(%s): %v", id, err)
		}
	}
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	f := &fixture{
		store: memory.NewMessageStore(),
		users: users,
		clock: &now,
	}
	f.svc = &Service{
		Messages:  f.store,
		Directory: users,
		Now:       func() time.Time { return *f.clock },
	}
	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func (f *fixture) send(t *testing.T, from, to domainuser.ID, content string) *domainmsg.Message {
	t.Helper()
	msg, err := f.svc.Send(context.Background(), SendParams{SenderID: from, ReceiverID: to, Content: content})
	if err != nil {
		t.Fatalf("Send(%s->%s): %v", from, to, err)
	}
	f.advance(time.Second)
	return msg
}

func TestSendThenThreadContainsMessageOnceAsLast(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	f.send(t, "alice", "bob", "first")
	sent := f.send(t, "alice", "bob", "second")

	msgs, _, info, err := f.svc.Thread(context.Background(), "alice", "bob", 1, 0)
	if err != nil {
		t.Fatalf("Thread: %v", err)
	}
	if info.Total != 2 || len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d (total %d)", len(msgs), info.Total)
	}
	seen := 0
	for _, m := range msgs {
		if m.ID == sent.ID {
			seen++
		}
	}
	if seen != 1 {
		t.Fatalf("sent message appears %d times", seen)
	}
	if msgs[len(msgs)-1].ID != sent.ID {
		t.Fatalf("sent message is not last, got %s", msgs[len(msgs)-1].ID)
	}
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()

	if _, err := f.svc.Send(ctx, SendParams{SenderID: "alice", ReceiverID: "alice", Content: "hi"}); !errors.Is(err, domainmsg.ErrSelfMessage) {
		t.Fatalf("self message: expected ErrSelfMessage, got %v", err)
	}
	if _, err := f.svc.Send(ctx, SendParams{SenderID: "alice", ReceiverID: "bob", Content: "  "}); !errors.Is(err, domainmsg.ErrContentRequired) {
		t.Fatalf("empty content: expected ErrContentRequired, got %v", err)
	}
	oversized := strings.Repeat("x", domainmsg.MaxContentLength+1)
	if _, err := f.svc.Send(ctx, SendParams{SenderID: "alice", ReceiverID: "bob", Content: oversized}); !errors.Is(err, domainmsg.ErrContentTooLong) {
		t.Fatalf("oversized content: expected ErrContentTooLong, got %v", err)
	}
	if _, err := f.svc.Send(ctx, SendParams{SenderID: "alice", ReceiverID: "ghost", Content: "hi"}); !errors.Is(err, domainuser.ErrNotFound) {
		t.Fatalf("unknown receiver: expected user.ErrNotFound, got %v", err)
	}
}

func TestThreadMarksInboundReadIdempotently(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	inbound := f.send(t, "bob", "alice", "hello alice")

	if _, _, _, err := f.svc.Thread(ctx, "alice", "bob", 1, 0); err != nil {
		t.Fatalf("Thread: %v", err)
	}
	first, err := f.store.ByID(ctx, inbound.ID)
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if !first.Read || first.ReadAt.IsZero() {
		t.Fatalf("message not marked read: %+v", first)
	}

	f.advance(time.Hour)
	if _, _, _, err := f.svc.Thread(ctx, "alice", "bob", 1, 0); err != nil {
		t.Fatalf("second Thread: %v", err)
	}
	second, err := f.store.ByID(ctx, inbound.ID)
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if !second.ReadAt.Equal(first.ReadAt) {
		t.Fatalf("readAt changed on redundant mark: %v -> %v", first.ReadAt, second.ReadAt)
	}

	convs, _, err := f.svc.ListConversations(ctx, "alice", 1, 0)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(convs) != 1 || convs[0].UnreadCount != 0 {
		t.Fatalf("expected zero unread after thread read, got %+v", convs)
	}
}

func TestUnreadCountInvariant(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()
	f.send(t, "bob", "alice", "one")
	f.send(t, "bob", "alice", "two")
	f.send(t, "carol", "alice", "three")
	f.send(t, "alice", "bob", "outbound")

	convs, _, err := f.svc.ListConversations(ctx, "alice", 1, 0)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	sum := 0
	for _, c := range convs {
		sum += c.UnreadCount
	}

	msgs, err := f.store.ListForUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	unread := 0
	for _, m := range msgs {
		if m.ReceiverID == "alice" && !m.Read {
			unread++
		}
	}
	if sum != unread {
		t.Fatalf("conversation unread sum %d != log unread count %d", sum, unread)
	}
	if sum != 3 {
		t.Fatalf("expected 3 unread, got %d", sum)
	}
}

func TestSoftDeletedMessagesDisappearEverywhere(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	doomed := f.send(t, "alice", "bob", "retract me")
	f.send(t, "alice", "bob", "keep me")

	if err := f.svc.Delete(ctx, "alice", doomed.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	for _, viewer := range []domainuser.ID{"alice", "bob"} {
		counterpart := domainuser.ID("bob")
		if viewer == "bob" {
			counterpart = "alice"
		}
		msgs, _, _, err := f.svc.Thread(ctx, viewer, counterpart, 1, 0)
		if err != nil {
			t.Fatalf("Thread(%s): %v", viewer, err)
		}
		for _, m := range msgs {
			if m.ID == doomed.ID {
				t.Fatalf("deleted message visible to %s", viewer)
			}
		}
		convs, _, err := f.svc.ListConversations(ctx, viewer, 1, 0)
		if err != nil {
			t.Fatalf("ListConversations(%s): %v", viewer, err)
		}
		for _, c := range convs {
			if c.LastMessage.ID == doomed.ID {
				t.Fatalf("deleted message surfaced as last message for %s", viewer)
			}
		}
	}

	// Deleted messages are invisible: a second delete is a not-found.
	if err := f.svc.Delete(ctx, "alice", doomed.ID); !errors.Is(err, domainmsg.ErrNotFound) {
		t.Fatalf("repeat delete: expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRequiresParticipant(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	msg := f.send(t, "alice", "bob", "private")

	if err := f.svc.Delete(context.Background(), "carol", msg.ID); !errors.Is(err, domainmsg.ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
}

func TestMarkReadReceiverOnlyAndIdempotent(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	msg := f.send(t, "alice", "bob", "read me")

	if err := f.svc.MarkRead(ctx, "alice", msg.ID); !errors.Is(err, domainmsg.ErrNotReceiver) {
		t.Fatalf("sender mark: expected ErrNotReceiver, got %v", err)
	}
	if err := f.svc.MarkRead(ctx, "bob", msg.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	marked, _ := f.store.ByID(ctx, msg.ID)

	f.advance(time.Hour)
	if err := f.svc.MarkRead(ctx, "bob", msg.ID); err != nil {
		t.Fatalf("repeat MarkRead: %v", err)
	}
	again, _ := f.store.ByID(ctx, msg.ID)
	if !again.ReadAt.Equal(marked.ReadAt) {
		t.Fatalf("readAt changed on repeat mark: %v -> %v", marked.ReadAt, again.ReadAt)
	}

	if err := f.svc.MarkRead(ctx, "bob", "missing"); !errors.Is(err, domainmsg.ErrNotFound) {
		t.Fatalf("missing message: expected ErrNotFound, got %v", err)
	}
}

func TestConversationPagination(t *testing.T) {
	ids := []domainuser.ID{"viewer"}
	for _, suffix := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"} {
		ids = append(ids, domainuser.ID("peer-"+suffix))
	}
	f := newFixture(t, ids...)
	ctx := context.Background()
	// Oldest conversation first, so descending recency reverses the order.
	for _, peer := range ids[1:] {
		f.send(t, peer, "viewer", "hi from "+string(peer))
	}

	page, info, err := f.svc.ListConversations(ctx, "viewer", 2, 5)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if info.Total != 11 || info.Pages != 3 || info.Current != 2 {
		t.Fatalf("unexpected page info: %+v", info)
	}
	if len(page) != 5 {
		t.Fatalf("expected 5 conversations, got %d", len(page))
	}
	// Items 6-10 of the descending ordering are peers f..b.
	want := []domainuser.ID{"peer-f", "peer-e", "peer-d", "peer-c", "peer-b"}
	for i, c := range page {
		if c.Counterpart.ID != want[i] {
			t.Fatalf("page[%d]: expected %s, got %s", i, want[i], c.Counterpart.ID)
		}
	}

	empty, info, err := f.svc.ListConversations(ctx, "viewer", 9, 5)
	if err != nil {
		t.Fatalf("past-the-end page: %v", err)
	}
	if len(empty) != 0 || info.Pages != 3 || info.Total != 11 {
		t.Fatalf("expected empty page with intact info, got %d items %+v", len(empty), info)
	}

	if _, _, err := f.svc.ListConversations(ctx, "viewer", -1, 5); err == nil {
		t.Fatal("expected validation error for negative page")
	}
}

func TestThreadPagesFromTheTail(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		f.send(t, "alice", "bob", "msg")
	}

	page1, _, info, err := f.svc.Thread(ctx, "bob", "alice", 1, 3)
	if err != nil {
		t.Fatalf("Thread page 1: %v", err)
	}
	if info.Total != 7 || info.Pages != 3 {
		t.Fatalf("unexpected info: %+v", info)
	}
	if len(page1) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(page1))
	}
	// Page 1 is the newest three, in chronological order.
	for i := 1; i < len(page1); i++ {
		if page1[i].CreatedAt.Before(page1[i-1].CreatedAt) {
			t.Fatalf("page not chronological: %v after %v", page1[i].CreatedAt, page1[i-1].CreatedAt)
		}
	}
	page2, _, _, err := f.svc.Thread(ctx, "bob", "alice", 2, 3)
	if err != nil {
		t.Fatalf("Thread page 2: %v", err)
	}
	if !page2[len(page2)-1].CreatedAt.Before(page1[0].CreatedAt) {
		t.Fatal("page 2 should be strictly older than page 1")
	}
}

func TestConversationScenarioReadFlow(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	f.send(t, "alice", "bob", "hello")
	f.send(t, "bob", "alice", "hi back")
	f.send(t, "alice", "bob", "how are you")

	convs, _, err := f.svc.ListConversations(ctx, "alice", 1, 0)
	if err != nil {
		t.Fatalf("ListConversations(alice): %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("expected one conversation, got %d", len(convs))
	}
	if convs[0].Counterpart.ID != "bob" || convs[0].LastMessage.Content != "how are you" {
		t.Fatalf("unexpected conversation: %+v", convs[0])
	}
	if convs[0].UnreadCount != 1 {
		t.Fatalf("alice should have 1 unread (bob's reply), got %d", convs[0].UnreadCount)
	}

	if _, _, _, err := f.svc.Thread(ctx, "alice", "bob", 1, 0); err != nil {
		t.Fatalf("Thread(alice,bob): %v", err)
	}

	convs, _, err = f.svc.ListConversations(ctx, "alice", 1, 0)
	if err != nil {
		t.Fatalf("ListConversations(alice) after read: %v", err)
	}
	if convs[0].UnreadCount != 0 {
		t.Fatalf("alice should have 0 unread after opening thread, got %d", convs[0].UnreadCount)
	}

	bobConvs, _, err := f.svc.ListConversations(ctx, "bob", 1, 0)
	if err != nil {
		t.Fatalf("ListConversations(bob): %v", err)
	}
	if bobConvs[0].UnreadCount != 2 {
		t.Fatalf("bob should have 2 unread from alice, got %d", bobConvs[0].UnreadCount)
	}
}

func TestConversationDropsUnresolvedCounterpart(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	// A message from a user the directory no longer resolves.
	ghost, err := domainmsg.NewMessage(domainmsg.CreateParams{
		ID:         "ghost-msg",
		SenderID:   "ghost",
		ReceiverID: "alice",
		Content:    "from beyond",
		CreatedAt:  time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if err := f.store.Append(ctx, ghost); err != nil {
		t.Fatalf("Append: %v", err)
	}
	f.send(t, "bob", "alice", "still here")

	convs, info, err := f.svc.ListConversations(ctx, "alice", 1, 0)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(convs) != 1 || convs[0].Counterpart.ID != "bob" {
		t.Fatalf("expected only bob's conversation, got %+v", convs)
	}
	if info.Total != 1 {
		t.Fatalf("unresolved counterpart should not count, got total %d", info.Total)
	}
}
