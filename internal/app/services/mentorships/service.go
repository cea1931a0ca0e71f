// Package mentorships implements mentor engagements: requests, the status
// transitions, session notes and the mentee's final rating.
package mentorships

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	appoutbox "esocial/internal/app/outbox"
	"esocial/internal/app/pagination"
	domainment "esocial/internal/domain/mentorship"
	"esocial/internal/domain/shared/events"
	domainuser "esocial/internal/domain/user"
)

// DefaultListLimit is the mentorship listing page size.
const DefaultListLimit = 20

type Service struct {
	Mentorships domainment.Repository
	Directory   domainuser.Directory
	Outbox      appoutbox.Outbox
	Encoder     appoutbox.EventEncoder
	Logger      *slog.Logger
	Now         func() time.Time
}

type RequestParams struct {
	MentorID    domainuser.ID
	MenteeID    domainuser.ID
	Subject     string
	Description string
	Frequency   domainment.Frequency
	Method      domainment.Method
	Goals       []string
}

// Request opens a pending engagement from the mentee toward the mentor. The
// mentor must hold the teacher role.
func (s *Service) Request(ctx context.Context, params RequestParams) (*domainment.Mentorship, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if s.Directory != nil {
		mentor, err := s.Directory.ByID(ctx, params.MentorID)
		if err != nil {
			return nil, err
		}
		if !mentor.HasRole(domainuser.RoleTeacher) {
			return nil, domainment.ErrMentorNotTeacher
		}
		if _, err := s.Directory.ByID(ctx, params.MenteeID); err != nil {
			return nil, err
		}
	}
	m, err := domainment.NewMentorship(domainment.CreateParams{
		ID:          domainment.ID(uuid.NewString()),
		MentorID:    params.MentorID,
		MenteeID:    params.MenteeID,
		Subject:     params.Subject,
		Description: params.Description,
		Frequency:   params.Frequency,
		Method:      params.Method,
		Goals:       params.Goals,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Mentorships.Save(ctx, m); err != nil {
		return nil, err
	}
	s.recordStatus(ctx, m)
	if s.Logger != nil {
		s.Logger.Info("mentorship requested", "mentorship_id", m.ID, "mentor_id", m.MentorID, "mentee_id", m.MenteeID)
	}
	return m, nil
}

// ByID returns an engagement to one of its participants.
func (s *Service) ByID(ctx context.Context, actorID domainuser.ID, id domainment.ID) (*domainment.Mentorship, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	m, err := s.Mentorships.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.Participant(actorID) {
		return nil, domainment.ErrNotParticipant
	}
	return m, nil
}

// ListForUser pages through the actor's engagements, optionally filtered by
// status.
func (s *Service) ListForUser(ctx context.Context, actorID domainuser.ID, status domainment.Status, page, limit int) ([]domainment.Mentorship, pagination.PageInfo, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, pagination.PageInfo{}, err
	}
	params, err := pagination.New(page, limit, DefaultListLimit)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	list, total, err := s.Mentorships.List(ctx, domainment.ListFilter{ParticipantID: actorID, Status: status}, params.Offset(), params.Limit)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	return list, params.Info(total), nil
}

// Accept moves a pending engagement active. Mentor only.
func (s *Service) Accept(ctx context.Context, actorID domainuser.ID, id domainment.ID) (*domainment.Mentorship, error) {
	return s.transition(ctx, actorID, id, func(m *domainment.Mentorship, now time.Time) error {
		if m.MentorID != actorID {
			return domainment.ErrNotParticipant
		}
		return m.Accept(now)
	})
}

// Complete closes an active engagement. Either participant may complete.
func (s *Service) Complete(ctx context.Context, actorID domainuser.ID, id domainment.ID) (*domainment.Mentorship, error) {
	return s.transition(ctx, actorID, id, func(m *domainment.Mentorship, now time.Time) error {
		if !m.Participant(actorID) {
			return domainment.ErrNotParticipant
		}
		return m.Complete(now)
	})
}

// Cancel aborts a pending or active engagement. Either participant.
func (s *Service) Cancel(ctx context.Context, actorID domainuser.ID, id domainment.ID) (*domainment.Mentorship, error) {
	return s.transition(ctx, actorID, id, func(m *domainment.Mentorship, now time.Time) error {
		if !m.Participant(actorID) {
			return domainment.ErrNotParticipant
		}
		return m.Cancel(now)
	})
}

// AddNote appends a session note. Participants only.
func (s *Service) AddNote(ctx context.Context, actorID domainuser.ID, id domainment.ID, content string) (*domainment.Mentorship, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	m, err := s.Mentorships.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.Participant(actorID) {
		return nil, domainment.ErrNotParticipant
	}
	if err := m.AddNote(content, actorID, s.now()); err != nil {
		return nil, err
	}
	if err := s.Mentorships.Save(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Rate records the mentee's one-time rating of a completed engagement.
func (s *Service) Rate(ctx context.Context, actorID domainuser.ID, id domainment.ID, rating int, feedback string) (*domainment.Mentorship, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	m, err := s.Mentorships.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.MenteeID != actorID {
		return nil, domainment.ErrNotParticipant
	}
	if err := m.Rate(rating, feedback, s.now()); err != nil {
		return nil, err
	}
	if err := s.Mentorships.Save(ctx, m); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("mentorship rated", "mentorship_id", m.ID, "rating", rating)
	}
	return m, nil
}

func (s *Service) transition(ctx context.Context, actorID domainuser.ID, id domainment.ID, apply func(*domainment.Mentorship, time.Time) error) (*domainment.Mentorship, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	m, err := s.Mentorships.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(m, s.now()); err != nil {
		return nil, err
	}
	if err := s.Mentorships.Save(ctx, m); err != nil {
		return nil, err
	}
	s.recordStatus(ctx, m)
	if s.Logger != nil {
		s.Logger.Info("mentorship status changed", "mentorship_id", m.ID, "status", m.Status)
	}
	return m, nil
}

func (s *Service) recordStatus(ctx context.Context, m *domainment.Mentorship) {
	ev := events.MentorshipStatusChanged{
		BaseEvent:    events.NewBase("mentorship.status_changed", string(m.ID), s.now()),
		MentorshipID: string(m.ID),
		MentorID:     string(m.MentorID),
		MenteeID:     string(m.MenteeID),
		Status:       string(m.Status),
	}
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
	if s.Mentorships == nil {
		return errors.New("mentorships: mentorship repository required")
	}
	return nil
}
