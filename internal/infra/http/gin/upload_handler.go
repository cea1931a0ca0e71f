package ginserver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"esocial/internal/infra/storage/s3"
)

const maxUploadSizeBytes int64 = 10 * 1024 * 1024

type UploadHTTP interface {
	Upload(c *gin.Context)
}

// UploadHandler stores user supplied files (avatars, message and post
// attachments) in the object store and returns their public URL.
type UploadHandler struct {
	Uploader s3.Uploader
	Logger   *slog.Logger
}

type uploadResponse struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

func (h UploadHandler) Upload(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	if h.Uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "uploads are not configured"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.respondUploadError(c, http.StatusBadRequest, fmt.Errorf("file is required: %w", err))
		return
	}
	if fileHeader.Size <= 0 {
		h.respondUploadError(c, http.StatusBadRequest, errors.New("file is empty"))
		return
	}
	if fileHeader.Size > maxUploadSizeBytes {
		h.respondUploadError(c, http.StatusBadRequest, fmt.Errorf("file too large (max %d MB)", maxUploadSizeBytes/1024/1024))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.respondUploadError(c, http.StatusBadRequest, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSizeBytes+1024))
	if err != nil {
		h.respondUploadError(c, http.StatusInternalServerError, fmt.Errorf("cannot read file: %w", err))
		return
	}
	if len(data) == 0 {
		h.respondUploadError(c, http.StatusBadRequest, errors.New("file is empty"))
		return
	}
	if int64(len(data)) > maxUploadSizeBytes {
		h.respondUploadError(c, http.StatusBadRequest, fmt.Errorf("file too large (max %d MB)", maxUploadSizeBytes/1024/1024))
		return
	}

	contentType := http.DetectContentType(data)
	if !isAllowedUploadType(contentType) {
		h.respondUploadError(c, http.StatusBadRequest, fmt.Errorf("unsupported content type: %s", contentType))
		return
	}

	kind := strings.TrimSpace(c.PostForm("kind"))
	objectKey := buildUploadObjectKey(string(p.UserID()), kind, fileHeader.Filename, contentType)
	publicURL, err := h.Uploader.Upload(c.Request.Context(), objectKey, bytes.NewReader(data), contentType)
	if err != nil {
		if errors.Is(err, s3.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "uploads are not configured"})
			return
		}
		h.respondUploadError(c, http.StatusInternalServerError, fmt.Errorf("upload failed: %w", err))
		return
	}

	c.JSON(http.StatusCreated, uploadResponse{
		URL:         publicURL,
		ContentType: contentType,
		Size:        int64(len(data)),
	})
}

func (h UploadHandler) respondUploadError(c *gin.Context, status int, err error) {
	if h.Logger != nil && status >= http.StatusInternalServerError {
		h.Logger.Error("upload failed", "error", err, "path", c.FullPath())
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func isAllowedUploadType(contentType string) bool {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp", "image/gif", "application/pdf":
		return true
	default:
		return false
	}
}

func extensionForContentType(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "application/pdf":
		return ".pdf"
	default:
		return ""
	}
}

func buildUploadObjectKey(userID, kind, filename, contentType string) string {
	ext := extensionForContentType(contentType)
	if ext == "" {
		ext = strings.ToLower(path.Ext(filename))
	}
	if ext == "" {
		ext = ".bin"
	}
	folder := sanitizePathToken(kind)
	if folder == "" {
		folder = "files"
	}
	return fmt.Sprintf("users/%s/%s/%s%s", sanitizePathToken(userID), folder, uuid.NewString(), ext)
}

func sanitizePathToken(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}

var _ UploadHTTP = (*UploadHandler)(nil)
