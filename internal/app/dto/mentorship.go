package dto

import (
	"time"

	"esocial/internal/app/pagination"
	domainment "esocial/internal/domain/mentorship"
)

type Mentorship struct {
	ID          string           `json:"id"`
	MentorID    string           `json:"mentor_id"`
	MenteeID    string           `json:"mentee_id"`
	Subject     string           `json:"subject"`
	Description string           `json:"description"`
	Status      string           `json:"status"`
	StartDate   *time.Time       `json:"start_date,omitempty"`
	EndDate     *time.Time       `json:"end_date,omitempty"`
	Frequency   string           `json:"frequency"`
	Method      string           `json:"method"`
	Goals       []string         `json:"goals,omitempty"`
	Notes       []MentorshipNote `json:"notes,omitempty"`
	Rating      int              `json:"rating,omitempty"`
	Feedback    string           `json:"feedback,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type MentorshipNote struct {
	Content string    `json:"content"`
	AddedBy string    `json:"added_by"`
	AddedAt time.Time `json:"added_at"`
}

type MentorshipList struct {
	Mentorships []Mentorship        `json:"mentorships"`
	Pagination  pagination.PageInfo `json:"pagination"`
}

func MapMentorship(m *domainment.Mentorship) Mentorship {
	if m == nil {
		return Mentorship{}
	}
	out := Mentorship{
		ID:          string(m.ID),
		MentorID:    string(m.MentorID),
		MenteeID:    string(m.MenteeID),
		Subject:     m.Subject,
		Description: m.Description,
		Status:      string(m.Status),
		Frequency:   string(m.Frequency),
		Method:      string(m.Method),
		Goals:       append([]string(nil), m.Goals...),
		Rating:      m.Rating,
		Feedback:    m.Feedback,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if !m.StartDate.IsZero() {
		start := m.StartDate
		out.StartDate = &start
	}
	if !m.EndDate.IsZero() {
		end := m.EndDate
		out.EndDate = &end
	}
	for _, n := range m.Notes {
		out.Notes = append(out.Notes, MentorshipNote{Content: n.Content, AddedBy: string(n.AddedBy), AddedAt: n.AddedAt})
	}
	return out
}

func NewMentorshipList(list []domainment.Mentorship, info pagination.PageInfo) MentorshipList {
	out := MentorshipList{Mentorships: make([]Mentorship, 0, len(list)), Pagination: info}
	for i := range list {
		out.Mentorships = append(out.Mentorships, MapMentorship(&list[i]))
	}
	return out
}
