package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"esocial/internal/app/dto"
	postssvc "esocial/internal/app/services/posts"
	domainpost "esocial/internal/domain/post"
	domainuser "esocial/internal/domain/user"
)

type CommentHTTP interface {
	Add(c *gin.Context)
	List(c *gin.Context)
	ToggleLike(c *gin.Context)
	Delete(c *gin.Context)
}

// CommentHandler shares the posts service; comments always hang off a post.
type CommentHandler struct {
	Service *postssvc.Service
	Posts   PostHandler
}

type addCommentRequest struct {
	Content  string `json:"content"`
	ParentID string `json:"parent_id"`
}

func (h CommentHandler) Add(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	comment, err := h.Service.AddComment(
		c.Request.Context(),
		p.UserID(),
		domainpost.ID(c.Param("id")),
		req.Content,
		domainpost.CommentID(req.ParentID),
	)
	if err != nil {
		h.Posts.respondPostError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.MapComment(comment, p.UserID()))
}

func (h CommentHandler) List(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	page, limit, ok := pageParams(c)
	if !ok {
		return
	}
	views, info, err := h.Service.CommentsForPost(c.Request.Context(), domainpost.ID(c.Param("id")), page, limit)
	if err != nil {
		h.Posts.respondPostError(c, err)
		return
	}
	comments := make([]dto.Comment, 0, len(views))
	for i := range views {
		comment := dto.MapComment(&views[i].Comment, p.UserID())
		for j := range views[i].Replies {
			comment.Replies = append(comment.Replies, dto.MapComment(&views[i].Replies[j], p.UserID()))
		}
		comments = append(comments, comment)
	}
	c.JSON(http.StatusOK, dto.CommentList{Comments: comments, Pagination: info})
}

func (h CommentHandler) ToggleLike(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	liked, count, err := h.Service.ToggleCommentLike(c.Request.Context(), p.UserID(), domainpost.CommentID(c.Param("commentId")))
	if err != nil {
		h.Posts.respondPostError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToggleResult{Active: liked, Count: count})
}

func (h CommentHandler) Delete(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	err := h.Service.DeleteComment(c.Request.Context(), p.UserID(), domainuser.Role(p.Role), domainpost.CommentID(c.Param("commentId")))
	if err != nil {
		h.Posts.respondPostError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

var _ CommentHTTP = (*CommentHandler)(nil)
