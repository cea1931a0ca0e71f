package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"esocial/internal/app/dto"
	"esocial/internal/app/pagination"
	msgsvc "esocial/internal/app/services/messaging"
	domainmsg "esocial/internal/domain/messaging"
	domainuser "esocial/internal/domain/user"
)

type MessageHTTP interface {
	Send(c *gin.Context)
	Conversations(c *gin.Context)
	Thread(c *gin.Context)
	MarkRead(c *gin.Context)
	Delete(c *gin.Context)
}

type MessageHandler struct {
	Service *msgsvc.Service
	Logger  *slog.Logger
}

type sendMessageRequest struct {
	ReceiverID  string                  `json:"receiver_id"`
	Content     string                  `json:"content"`
	Attachments []sendAttachmentRequest `json:"attachments"`
}

type sendAttachmentRequest struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

func (h MessageHandler) Send(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	params := msgsvc.SendParams{
		SenderID:   p.UserID(),
		ReceiverID: domainuser.ID(req.ReceiverID),
		Content:    req.Content,
	}
	for _, a := range req.Attachments {
		params.Attachments = append(params.Attachments, domainmsg.Attachment{
			Name:        a.Name,
			URL:         a.URL,
			ContentType: a.ContentType,
			Size:        a.Size,
		})
	}
	msg, err := h.Service.Send(c.Request.Context(), params)
	if err != nil {
		h.respondMessageError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.MapMessage(msg))
}

func (h MessageHandler) Conversations(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	page, limit, ok := pageParams(c)
	if !ok {
		return
	}
	convs, info, err := h.Service.ListConversations(c.Request.Context(), p.UserID(), page, limit)
	if err != nil {
		h.respondMessageError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewConversationList(convs, info))
}

func (h MessageHandler) Thread(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	counterpart := domainuser.ID(c.Param("userId"))
	page, limit, ok := pageParams(c)
	if !ok {
		return
	}
	msgs, snapshot, info, err := h.Service.Thread(c.Request.Context(), p.UserID(), counterpart, page, limit)
	if err != nil {
		h.respondMessageError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Thread{
		Messages:   dto.MapMessages(msgs),
		User:       dto.MapUserSnapshot(snapshot),
		Pagination: info,
	})
}

func (h MessageHandler) MarkRead(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	id := domainmsg.ID(c.Param("id"))
	if err := h.Service.MarkRead(c.Request.Context(), p.UserID(), id); err != nil {
		h.respondMessageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h MessageHandler) Delete(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	id := domainmsg.ID(c.Param("id"))
	if err := h.Service.Delete(c.Request.Context(), p.UserID(), id); err != nil {
		h.respondMessageError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h MessageHandler) respondMessageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainmsg.ErrSelfMessage),
		errors.Is(err, domainmsg.ErrContentRequired),
		errors.Is(err, domainmsg.ErrContentTooLong),
		errors.Is(err, pagination.ErrInvalidPage),
		errors.Is(err, pagination.ErrInvalidLimit):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domainmsg.ErrNotFound),
		errors.Is(err, domainuser.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domainmsg.ErrNotReceiver),
		errors.Is(err, domainmsg.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error("message operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// pageParams reads page and limit query values. Zero means "use defaults";
// non-numeric input is a client error.
func pageParams(c *gin.Context) (int, int, bool) {
	page, ok := queryInt(c, "page")
	if !ok {
		return 0, 0, false
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return 0, 0, false
	}
	return page, limit, true
}

func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
		return 0, false
	}
	return val, true
}

var _ MessageHTTP = (*MessageHandler)(nil)
