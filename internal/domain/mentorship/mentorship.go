package mentorship

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"esocial/internal/domain/user"
)

var (
	ErrIDRequired          = errors.New("mentorship: id is required")
	ErrMentorRequired      = errors.New("mentorship: mentor is required")
	ErrMenteeRequired      = errors.New("mentorship: mentee is required")
	ErrSelfMentorship      = errors.New("mentorship: mentor and mentee must differ")
	ErrSubjectRequired     = errors.New("mentorship: subject is required")
	ErrDescriptionRequired = errors.New("mentorship: description is required")
	ErrDescriptionTooLong  = errors.New("mentorship: description exceeds 1000 characters")
	ErrInvalidFrequency    = errors.New("mentorship: invalid meeting frequency")
	ErrInvalidMethod       = errors.New("mentorship: invalid meeting method")
	ErrInvalidTransition   = errors.New("mentorship: invalid status transition")
	ErrInvalidRating       = errors.New("mentorship: rating must be between 1 and 5")
	ErrAlreadyRated        = errors.New("mentorship: already rated")
	ErrNotCompleted        = errors.New("mentorship: rating requires a completed engagement")
	ErrNoteRequired        = errors.New("mentorship: note content is required")
	ErrMentorNotTeacher    = errors.New("mentorship: mentor must hold the teacher role")
	ErrNotFound            = errors.New("mentorship: not found")
	ErrNotParticipant      = errors.New("mentorship: participants only")
)

type ID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiWeekly Frequency = "bi-weekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyAsNeeded Frequency = "as-needed"
)

type Method string

const (
	MethodInPerson  Method = "in-person"
	MethodVideoCall Method = "video-call"
	MethodPhone     Method = "phone"
	MethodText      Method = "text"
)

type Mentorship struct {
	ID          ID
	MentorID    user.ID
	MenteeID    user.ID
	Subject     string
	Description string
	Status      Status
	StartDate   time.Time
	EndDate     time.Time
	Frequency   Frequency
	Method      Method
	Goals       []string
	Notes       []Note
	Rating      int
	Feedback    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Note struct {
	Content string
	AddedBy user.ID
	AddedAt time.Time
}

type CreateParams struct {
	ID          ID
	MentorID    user.ID
	MenteeID    user.ID
	Subject     string
	Description string
	Frequency   Frequency
	Method      Method
	Goals       []string
	CreatedAt   time.Time
}

func NewMentorship(params CreateParams) (*Mentorship, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	mentor := user.ID(strings.TrimSpace(string(params.MentorID)))
	if mentor == "" {
		return nil, ErrMentorRequired
	}
	mentee := user.ID(strings.TrimSpace(string(params.MenteeID)))
	if mentee == "" {
		return nil, ErrMenteeRequired
	}
	if mentor == mentee {
		return nil, ErrSelfMentorship
	}
	subject := strings.TrimSpace(params.Subject)
	if subject == "" {
		return nil, ErrSubjectRequired
	}
	description := strings.TrimSpace(params.Description)
	if description == "" {
		return nil, ErrDescriptionRequired
	}
	if utf8.RuneCountInString(description) > 1000 {
		return nil, ErrDescriptionTooLong
	}
	frequency := params.Frequency
	if frequency == "" {
		frequency = FrequencyWeekly
	}
	switch frequency {
	case FrequencyWeekly, FrequencyBiWeekly, FrequencyMonthly, FrequencyAsNeeded:
	default:
		return nil, ErrInvalidFrequency
	}
	method := params.Method
	if method == "" {
		method = MethodVideoCall
	}
	switch method {
	case MethodInPerson, MethodVideoCall, MethodPhone, MethodText:
	default:
		return nil, ErrInvalidMethod
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Mentorship{
		ID:          ID(id),
		MentorID:    mentor,
		MenteeID:    mentee,
		Subject:     subject,
		Description: description,
		Status:      StatusPending,
		Frequency:   frequency,
		Method:      method,
		Goals:       append([]string(nil), params.Goals...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (m *Mentorship) Participant(id user.ID) bool {
	return m.MentorID == id || m.MenteeID == id
}

// Accept moves pending → active. Mentor only; the caller checks identity.
func (m *Mentorship) Accept(now time.Time) error {
	if m.Status != StatusPending {
		return ErrInvalidTransition
	}
	m.Status = StatusActive
	m.StartDate = utc(now)
	m.touch(now)
	return nil
}

// Complete moves active → completed.
func (m *Mentorship) Complete(now time.Time) error {
	if m.Status != StatusActive {
		return ErrInvalidTransition
	}
	m.Status = StatusCompleted
	m.EndDate = utc(now)
	m.touch(now)
	return nil
}

// Cancel is allowed from pending or active.
func (m *Mentorship) Cancel(now time.Time) error {
	if m.Status != StatusPending && m.Status != StatusActive {
		return ErrInvalidTransition
	}
	m.Status = StatusCancelled
	m.EndDate = utc(now)
	m.touch(now)
	return nil
}

func (m *Mentorship) AddNote(content string, by user.ID, now time.Time) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrNoteRequired
	}
	m.Notes = append(m.Notes, Note{Content: content, AddedBy: by, AddedAt: utc(now)})
	m.touch(now)
	return nil
}

// Rate records the mentee's one-time rating of a completed engagement.
func (m *Mentorship) Rate(rating int, feedback string, now time.Time) error {
	if m.Status != StatusCompleted {
		return ErrNotCompleted
	}
	if m.Rating != 0 {
		return ErrAlreadyRated
	}
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	m.Rating = rating
	m.Feedback = strings.TrimSpace(feedback)
	m.touch(now)
	return nil
}

func (m *Mentorship) touch(now time.Time) {
	m.UpdatedAt = utc(now)
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC()
}

// ListFilter narrows mentorship listings. Zero values mean "no constraint".
type ListFilter struct {
	ParticipantID user.ID
	Status        Status
}

type Repository interface {
	Save(ctx context.Context, m *Mentorship) error
	ByID(ctx context.Context, id ID) (*Mentorship, error)
	// List returns mentorships newest-first, sliced by offset/limit,
	// plus the total match count.
	List(ctx context.Context, filter ListFilter, offset, limit int) ([]Mentorship, int, error)
}
