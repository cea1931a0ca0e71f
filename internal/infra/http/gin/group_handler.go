package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"esocial/internal/app/dto"
	"esocial/internal/app/pagination"
	groupssvc "esocial/internal/app/services/groups"
	domaingroup "esocial/internal/domain/group"
	domainuser "esocial/internal/domain/user"
)

type GroupHTTP interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Join(c *gin.Context)
	Leave(c *gin.Context)
	RotateInviteCode(c *gin.Context)
}

type GroupHandler struct {
	Service *groupssvc.Service
	Logger  *slog.Logger
}

type createGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
	Category    string `json:"category"`
	University  string `json:"university"`
	Faculty     string `json:"faculty"`
}

type updateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Private     *bool  `json:"private"`
}

type joinGroupRequest struct {
	InviteCode string `json:"invite_code"`
}

func (h GroupHandler) Create(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	grp, err := h.Service.Create(c.Request.Context(), groupssvc.CreateParams{
		Name:        req.Name,
		Description: req.Description,
		CreatorID:   p.UserID(),
		Private:     req.Private,
		Category:    domaingroup.Category(req.Category),
		University:  req.University,
		Faculty:     req.Faculty,
	})
	if err != nil {
		h.respondGroupError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.MapGroup(grp, p.UserID()))
}

func (h GroupHandler) List(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	page, limit, ok := pageParams(c)
	if !ok {
		return
	}
	filter := domaingroup.ListFilter{
		Category:   domaingroup.Category(c.Query("category")),
		University: c.Query("university"),
	}
	if c.Query("mine") == "true" {
		filter.MemberID = p.UserID()
	}
	groups, info, err := h.Service.List(c.Request.Context(), filter, page, limit)
	if err != nil {
		h.respondGroupError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewGroupList(groups, p.UserID(), info))
}

func (h GroupHandler) Get(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	grp, err := h.Service.ByID(c.Request.Context(), domaingroup.ID(c.Param("id")))
	if err != nil {
		h.respondGroupError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapGroup(grp, p.UserID()))
}

func (h GroupHandler) Update(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req updateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	grp, err := h.Service.Update(c.Request.Context(), p.UserID(), domaingroup.ID(c.Param("id")), domaingroup.UpdateParams{
		Name:        req.Name,
		Description: req.Description,
		Category:    domaingroup.Category(req.Category),
		Private:     req.Private,
	})
	if err != nil {
		h.respondGroupError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapGroup(grp, p.UserID()))
}

func (h GroupHandler) Join(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req joinGroupRequest
	// The body is optional for public groups.
	_ = c.ShouldBindJSON(&req)
	grp, err := h.Service.Join(c.Request.Context(), p.UserID(), domaingroup.ID(c.Param("id")), req.InviteCode)
	if err != nil {
		h.respondGroupError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapGroup(grp, p.UserID()))
}

func (h GroupHandler) Leave(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	if err := h.Service.Leave(c.Request.Context(), p.UserID(), domaingroup.ID(c.Param("id"))); err != nil {
		h.respondGroupError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h GroupHandler) RotateInviteCode(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	code, err := h.Service.RotateInviteCode(c.Request.Context(), p.UserID(), domaingroup.ID(c.Param("id")))
	if err != nil {
		h.respondGroupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invite_code": code})
}

func (h GroupHandler) respondGroupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domaingroup.ErrNameRequired),
		errors.Is(err, domaingroup.ErrNameTooLong),
		errors.Is(err, domaingroup.ErrDescriptionRequired),
		errors.Is(err, domaingroup.ErrDescriptionTooLong),
		errors.Is(err, domaingroup.ErrInvalidCategory),
		errors.Is(err, pagination.ErrInvalidPage),
		errors.Is(err, pagination.ErrInvalidLimit):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domaingroup.ErrNotFound),
		errors.Is(err, domainuser.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domaingroup.ErrNotAdmin),
		errors.Is(err, domaingroup.ErrNotMember),
		errors.Is(err, domaingroup.ErrInviteCodeMismatch),
		errors.Is(err, domaingroup.ErrCreatorCannotLeave):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domaingroup.ErrAlreadyMember):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error("group operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ GroupHTTP = (*GroupHandler)(nil)
