package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"esocial/internal/app/dto"
	"esocial/internal/app/pagination"
	postssvc "esocial/internal/app/services/posts"
	domaingroup "esocial/internal/domain/group"
	domainpost "esocial/internal/domain/post"
	domainuser "esocial/internal/domain/user"
)

type PostHTTP interface {
	Create(c *gin.Context)
	Feed(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	ToggleLike(c *gin.Context)
	ToggleRepost(c *gin.Context)
}

type PostHandler struct {
	Service *postssvc.Service
	Logger  *slog.Logger
}

type createPostRequest struct {
	Content          string                  `json:"content"`
	Images           []postImageRequest      `json:"images"`
	Attachments      []sendAttachmentRequest `json:"attachments"`
	Links            []postLinkRequest       `json:"links"`
	Type             string                  `json:"type"`
	IsMentorshipPost bool                    `json:"is_mentorship_post"`
	MentorshipType   string                  `json:"mentorship_type"`
	Subject          string                  `json:"subject"`
	GroupID          string                  `json:"group_id"`
}

type postImageRequest struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

type postLinkRequest struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

type updatePostRequest struct {
	Content string `json:"content"`
}

func (h PostHandler) Create(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	params := postssvc.CreateParams{
		AuthorID:         p.UserID(),
		Content:          req.Content,
		Type:             domainpost.Type(req.Type),
		IsMentorshipPost: req.IsMentorshipPost,
		MentorshipType:   domainpost.MentorshipType(req.MentorshipType),
		Subject:          req.Subject,
		GroupID:          req.GroupID,
	}
	for _, img := range req.Images {
		params.Images = append(params.Images, domainpost.Image{URL: img.URL, Caption: img.Caption})
	}
	for _, a := range req.Attachments {
		params.Attachments = append(params.Attachments, domainpost.Attachment{Name: a.Name, URL: a.URL, ContentType: a.ContentType, Size: a.Size})
	}
	for _, l := range req.Links {
		params.Links = append(params.Links, domainpost.Link{URL: l.URL, Title: l.Title, Description: l.Description, Image: l.Image})
	}
	post, err := h.Service.Create(c.Request.Context(), params)
	if err != nil {
		h.respondPostError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.MapPost(post, p.UserID()))
}

func (h PostHandler) Feed(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	page, limit, ok := pageParams(c)
	if !ok {
		return
	}
	filter := domainpost.ListFilter{
		Type:           domainpost.Type(c.Query("type")),
		AuthorID:       domainuser.ID(c.Query("author_id")),
		AuthorRole:     domainuser.Role(c.Query("author_role")),
		GroupID:        c.Query("group_id"),
		MentorshipOnly: c.Query("mentorship") == "true",
	}
	posts, info, err := h.Service.Feed(c.Request.Context(), p.UserID(), filter, page, limit)
	if err != nil {
		h.respondPostError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPostList(posts, p.UserID(), info))
}

func (h PostHandler) Get(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	post, err := h.Service.ByID(c.Request.Context(), domainpost.ID(c.Param("id")))
	if err != nil {
		h.respondPostError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapPost(post, p.UserID()))
}

func (h PostHandler) Update(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	post, err := h.Service.UpdateContent(c.Request.Context(), p.UserID(), domainpost.ID(c.Param("id")), req.Content)
	if err != nil {
		h.respondPostError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapPost(post, p.UserID()))
}

func (h PostHandler) Delete(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	err := h.Service.Delete(c.Request.Context(), p.UserID(), domainuser.Role(p.Role), domainpost.ID(c.Param("id")))
	if err != nil {
		h.respondPostError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h PostHandler) ToggleLike(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	liked, count, err := h.Service.ToggleLike(c.Request.Context(), p.UserID(), domainpost.ID(c.Param("id")))
	if err != nil {
		h.respondPostError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToggleResult{Active: liked, Count: count})
}

func (h PostHandler) ToggleRepost(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	reposted, count, err := h.Service.ToggleRepost(c.Request.Context(), p.UserID(), domainpost.ID(c.Param("id")))
	if err != nil {
		h.respondPostError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToggleResult{Active: reposted, Count: count})
}

func (h PostHandler) respondPostError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainpost.ErrContentRequired),
		errors.Is(err, domainpost.ErrContentTooLong),
		errors.Is(err, domainpost.ErrInvalidType),
		errors.Is(err, domainpost.ErrInvalidMentoring),
		errors.Is(err, domainpost.ErrCommentContentRequired),
		errors.Is(err, domainpost.ErrCommentTooLong),
		errors.Is(err, domainpost.ErrParentComment),
		errors.Is(err, pagination.ErrInvalidPage),
		errors.Is(err, pagination.ErrInvalidLimit):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domainpost.ErrNotFound),
		errors.Is(err, domainpost.ErrCommentNotFound),
		errors.Is(err, domaingroup.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domainpost.ErrNotAuthor),
		errors.Is(err, domaingroup.ErrNotMember):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error("post operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ PostHTTP = (*PostHandler)(nil)
