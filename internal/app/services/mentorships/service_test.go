package mentorships

import (
	"context"
	"errors"
	"testing"
	"time"

	domainment "esocial/internal/domain/mentorship"
	domainuser "esocial/internal/domain/user"
	"esocial/internal/infra/storage/memory"
)

const (
	mentor   = domainuser.ID("mentor")
	mentee   = domainuser.ID("mentee")
	outsider = domainuser.ID("outsider")
)

type mentorshipFixture struct {
	svc   *Service
	clock *time.Time
}

func newMentorshipFixture(t *testing.T) *mentorshipFixture {
	t.Helper()
	start := time.Date(2025, time.April, 10, 12, 0, 0, 0, time.UTC)
	clock := &start
	users := memory.NewUserRepository()
	seedUser(t, users, mentor, domainuser.RoleTeacher)
	seedUser(t, users, mentee, domainuser.RoleStudent)
	seedUser(t, users, outsider, domainuser.RoleStudent)
	svc := &Service{
		Mentorships: memory.NewMentorshipRepository(),
		Directory:   users,
		Outbox:      memory.NewOutbox(),
		Now:         func() time.Time { return *clock },
	}
	return &mentorshipFixture{svc: svc, clock: clock}
}

func seedUser(t *testing.T, users *memory.UserRepository, id domainuser.ID, role domainuser.Role) {
	t.Helper()
	user, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           id,
		Email:        string(id) + "@bsu.edu.az",
		FirstName:    "User",
		LastName:     string(id),
		PasswordHash: "hash",
		Role:         role,
		University:   "Baku State University",
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	if err := users.Save(context.Background(), user); err != nil {
		t.Fatalf("save user %s: %v", id, err)
	}
}

func (f *mentorshipFixture) request(t *testing.T) *domainment.Mentorship {
	t.Helper()
	m, err := f.svc.Request(context.Background(), RequestParams{
		MentorID:    mentor,
		MenteeID:    mentee,
		Subject:     "Discrete mathematics",
		Description: "Exam preparation over the spring term",
	})
	if err != nil {
		t.Fatalf("request mentorship: %v", err)
	}
	return m
}

func TestRequestOpensPendingEngagement(t *testing.T) {
	f := newMentorshipFixture(t)
	m := f.request(t)

	if m.Status != domainment.StatusPending {
		t.Fatalf("status = %s, want pending", m.Status)
	}
	if m.Frequency != domainment.FrequencyWeekly || m.Method != domainment.MethodVideoCall {
		t.Fatalf("defaults not applied: %s / %s", m.Frequency, m.Method)
	}
}

func TestRequestRequiresTeacherMentor(t *testing.T) {
	f := newMentorshipFixture(t)

	_, err := f.svc.Request(context.Background(), RequestParams{
		MentorID:    outsider,
		MenteeID:    mentee,
		Subject:     "Discrete mathematics",
		Description: "Exam preparation",
	})
	if !errors.Is(err, domainment.ErrMentorNotTeacher) {
		t.Fatalf("student mentor: got %v", err)
	}

	_, err = f.svc.Request(context.Background(), RequestParams{
		MentorID:    "ghost",
		MenteeID:    mentee,
		Subject:     "Discrete mathematics",
		Description: "Exam preparation",
	})
	if !errors.Is(err, domainuser.ErrNotFound) {
		t.Fatalf("unknown mentor: got %v", err)
	}
}

func TestStatusTransitions(t *testing.T) {
	f := newMentorshipFixture(t)
	m := f.request(t)

	if _, err := f.svc.Accept(context.Background(), mentee, m.ID); !errors.Is(err, domainment.ErrNotParticipant) {
		t.Fatalf("mentee accept: got %v", err)
	}
	active, err := f.svc.Accept(context.Background(), mentor, m.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if active.Status != domainment.StatusActive || active.StartDate.IsZero() {
		t.Fatalf("accept result: status=%s start=%v", active.Status, active.StartDate)
	}

	if _, err := f.svc.Accept(context.Background(), mentor, m.ID); !errors.Is(err, domainment.ErrInvalidTransition) {
		t.Fatalf("double accept: got %v", err)
	}

	done, err := f.svc.Complete(context.Background(), mentee, m.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != domainment.StatusCompleted || done.EndDate.IsZero() {
		t.Fatalf("complete result: status=%s end=%v", done.Status, done.EndDate)
	}

	if _, err := f.svc.Cancel(context.Background(), mentor, m.ID); !errors.Is(err, domainment.ErrInvalidTransition) {
		t.Fatalf("cancel after completion: got %v", err)
	}
}

func TestCancelFromPending(t *testing.T) {
	f := newMentorshipFixture(t)
	m := f.request(t)

	if _, err := f.svc.Cancel(context.Background(), outsider, m.ID); !errors.Is(err, domainment.ErrNotParticipant) {
		t.Fatalf("outsider cancel: got %v", err)
	}
	cancelled, err := f.svc.Cancel(context.Background(), mentee, m.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domainment.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}
}

func TestRateRules(t *testing.T) {
	f := newMentorshipFixture(t)
	m := f.request(t)

	if _, err := f.svc.Rate(context.Background(), mentee, m.ID, 5, "great"); !errors.Is(err, domainment.ErrNotCompleted) {
		t.Fatalf("rate pending: got %v", err)
	}

	if _, err := f.svc.Accept(context.Background(), mentor, m.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.svc.Complete(context.Background(), mentor, m.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := f.svc.Rate(context.Background(), mentor, m.ID, 5, "great"); !errors.Is(err, domainment.ErrNotParticipant) {
		t.Fatalf("mentor rating: got %v", err)
	}
	rated, err := f.svc.Rate(context.Background(), mentee, m.ID, 4, "helpful sessions")
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if rated.Rating != 4 || rated.Feedback != "helpful sessions" {
		t.Fatalf("rating not stored: %d %q", rated.Rating, rated.Feedback)
	}
	if _, err := f.svc.Rate(context.Background(), mentee, m.ID, 5, "again"); !errors.Is(err, domainment.ErrAlreadyRated) {
		t.Fatalf("second rating: got %v", err)
	}
}

func TestAddNoteParticipantsOnly(t *testing.T) {
	f := newMentorshipFixture(t)
	m := f.request(t)

	if _, err := f.svc.AddNote(context.Background(), outsider, m.ID, "spying"); !errors.Is(err, domainment.ErrNotParticipant) {
		t.Fatalf("outsider note: got %v", err)
	}
	noted, err := f.svc.AddNote(context.Background(), mentor, m.ID, "covered graph theory")
	if err != nil {
		t.Fatalf("add note: %v", err)
	}
	if len(noted.Notes) != 1 || noted.Notes[0].AddedBy != mentor {
		t.Fatalf("note not recorded: %+v", noted.Notes)
	}
}

func TestListScopesToParticipant(t *testing.T) {
	f := newMentorshipFixture(t)
	m := f.request(t)
	if _, err := f.svc.Accept(context.Background(), mentor, m.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	mine, info, err := f.svc.ListForUser(context.Background(), mentee, domainment.StatusActive, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 || info.Total != 1 {
		t.Fatalf("active list: %d items, total %d", len(mine), info.Total)
	}

	none, _, err := f.svc.ListForUser(context.Background(), outsider, "", 1, 10)
	if err != nil {
		t.Fatalf("outsider list: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("outsider should see nothing, got %d", len(none))
	}
}
