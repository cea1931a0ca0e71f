package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"esocial/internal/app/dto"
	"esocial/internal/app/pagination"
	mentsvc "esocial/internal/app/services/mentorships"
	domainment "esocial/internal/domain/mentorship"
	domainuser "esocial/internal/domain/user"
)

type MentorshipHTTP interface {
	Request(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Accept(c *gin.Context)
	Complete(c *gin.Context)
	Cancel(c *gin.Context)
	AddNote(c *gin.Context)
	Rate(c *gin.Context)
}

type MentorshipHandler struct {
	Service *mentsvc.Service
	Logger  *slog.Logger
}

type requestMentorshipRequest struct {
	MentorID    string   `json:"mentor_id"`
	Subject     string   `json:"subject"`
	Description string   `json:"description"`
	Frequency   string   `json:"frequency"`
	Method      string   `json:"method"`
	Goals       []string `json:"goals"`
}

type mentorshipNoteRequest struct {
	Content string `json:"content"`
}

type rateMentorshipRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

func (h MentorshipHandler) Request(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req requestMentorshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	m, err := h.Service.Request(c.Request.Context(), mentsvc.RequestParams{
		MentorID:    domainuser.ID(req.MentorID),
		MenteeID:    p.UserID(),
		Subject:     req.Subject,
		Description: req.Description,
		Frequency:   domainment.Frequency(req.Frequency),
		Method:      domainment.Method(req.Method),
		Goals:       req.Goals,
	})
	if err != nil {
		h.respondMentorshipError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.MapMentorship(m))
}

func (h MentorshipHandler) List(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	page, limit, ok := pageParams(c)
	if !ok {
		return
	}
	list, info, err := h.Service.ListForUser(c.Request.Context(), p.UserID(), domainment.Status(c.Query("status")), page, limit)
	if err != nil {
		h.respondMentorshipError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewMentorshipList(list, info))
}

func (h MentorshipHandler) Get(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	m, err := h.Service.ByID(c.Request.Context(), p.UserID(), domainment.ID(c.Param("id")))
	if err != nil {
		h.respondMentorshipError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapMentorship(m))
}

func (h MentorshipHandler) Accept(c *gin.Context) {
	h.transition(c, h.Service.Accept)
}

func (h MentorshipHandler) Complete(c *gin.Context) {
	h.transition(c, h.Service.Complete)
}

func (h MentorshipHandler) Cancel(c *gin.Context) {
	h.transition(c, h.Service.Cancel)
}

func (h MentorshipHandler) AddNote(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req mentorshipNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	m, err := h.Service.AddNote(c.Request.Context(), p.UserID(), domainment.ID(c.Param("id")), req.Content)
	if err != nil {
		h.respondMentorshipError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapMentorship(m))
}

func (h MentorshipHandler) Rate(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req rateMentorshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	m, err := h.Service.Rate(c.Request.Context(), p.UserID(), domainment.ID(c.Param("id")), req.Rating, req.Feedback)
	if err != nil {
		h.respondMentorshipError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapMentorship(m))
}

func (h MentorshipHandler) transition(c *gin.Context, apply func(ctx context.Context, actorID domainuser.ID, id domainment.ID) (*domainment.Mentorship, error)) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	m, err := apply(c.Request.Context(), p.UserID(), domainment.ID(c.Param("id")))
	if err != nil {
		h.respondMentorshipError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapMentorship(m))
}

func (h MentorshipHandler) respondMentorshipError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainment.ErrSelfMentorship),
		errors.Is(err, domainment.ErrSubjectRequired),
		errors.Is(err, domainment.ErrDescriptionRequired),
		errors.Is(err, domainment.ErrDescriptionTooLong),
		errors.Is(err, domainment.ErrInvalidFrequency),
		errors.Is(err, domainment.ErrInvalidMethod),
		errors.Is(err, domainment.ErrInvalidRating),
		errors.Is(err, domainment.ErrNoteRequired),
		errors.Is(err, pagination.ErrInvalidPage),
		errors.Is(err, pagination.ErrInvalidLimit):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domainment.ErrNotFound),
		errors.Is(err, domainuser.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domainment.ErrNotParticipant),
		errors.Is(err, domainment.ErrMentorNotTeacher):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domainment.ErrInvalidTransition),
		errors.Is(err, domainment.ErrAlreadyRated),
		errors.Is(err, domainment.ErrNotCompleted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error("mentorship operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ MentorshipHTTP = (*MentorshipHandler)(nil)
