package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"esocial/internal/app/dto"
	"esocial/internal/app/pagination"
	userssvc "esocial/internal/app/services/users"
	domainuser "esocial/internal/domain/user"
)

type UserHTTP interface {
	Profile(c *gin.Context)
	UpdateProfile(c *gin.Context)
	Search(c *gin.Context)
	Heartbeat(c *gin.Context)
}

type UserHandler struct {
	Service *userssvc.Service
	Logger  *slog.Logger
}

type updateProfileRequest struct {
	FirstName    *string          `json:"first_name"`
	LastName     *string          `json:"last_name"`
	Bio          *string          `json:"bio"`
	AvatarURL    *string          `json:"avatar_url"`
	Faculty      *string          `json:"faculty"`
	Major        *string          `json:"major"`
	StudentGroup *string          `json:"student_group"`
	SocialLinks  []dto.SocialLink `json:"social_links"`
}

func (h UserHandler) Profile(c *gin.Context) {
	if _, ok := requireAuth(c); !ok {
		return
	}
	id := domainuser.ID(c.Param("id"))
	user, err := h.Service.Profile(c.Request.Context(), id)
	if err != nil {
		h.respondUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapUserProfile(user))
}

func (h UserHandler) UpdateProfile(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	params := userssvc.UpdateProfileParams{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Bio:          req.Bio,
		AvatarURL:    req.AvatarURL,
		Faculty:      req.Faculty,
		Major:        req.Major,
		StudentGroup: req.StudentGroup,
	}
	if req.SocialLinks != nil {
		params.SocialLinks = make([]domainuser.SocialLink, 0, len(req.SocialLinks))
		for _, link := range req.SocialLinks {
			params.SocialLinks = append(params.SocialLinks, domainuser.SocialLink{Platform: link.Platform, URL: link.URL})
		}
	}
	user, err := h.Service.UpdateProfile(c.Request.Context(), p.UserID(), params)
	if err != nil {
		h.respondUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapUserProfile(user))
}

func (h UserHandler) Search(c *gin.Context) {
	if _, ok := requireAuth(c); !ok {
		return
	}
	page, limit, ok := pageParams(c)
	if !ok {
		return
	}
	filter := domainuser.SearchFilter{
		Query:      c.Query("q"),
		Role:       domainuser.Role(c.Query("role")),
		University: c.Query("university"),
	}
	snapshots, info, err := h.Service.SearchDirectory(c.Request.Context(), filter, page, limit)
	if err != nil {
		h.respondUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users":      dto.MapUserSnapshots(snapshots),
		"pagination": info,
	})
}

// Heartbeat records the caller as online. Clients poll it; a missing poll
// simply leaves last_seen stale.
func (h UserHandler) Heartbeat(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	if err := h.Service.SetPresence(c.Request.Context(), p.UserID(), true); err != nil {
		h.respondUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h UserHandler) respondUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainuser.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domainuser.ErrNameRequired),
		errors.Is(err, domainuser.ErrBioTooLong),
		errors.Is(err, pagination.ErrInvalidPage),
		errors.Is(err, pagination.ErrInvalidLimit):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error("user operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ UserHTTP = (*UserHandler)(nil)
