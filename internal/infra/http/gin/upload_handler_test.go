package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gin "github.com/gin-gonic/gin"

	domainuser "esocial/internal/domain/user"
	"esocial/internal/infra/storage/s3"
)

type recordingUploader struct {
	key         string
	contentType string
}

func (u *recordingUploader) Upload(_ context.Context, key string, reader io.Reader, contentType string) (string, error) {
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return "", err
	}
	u.key = key
	u.contentType = contentType
	return "https://cdn.example/" + key, nil
}

func newUploadRouter(t *testing.T, uploader s3.Uploader) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler := UploadHandler{Uploader: uploader}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if id := c.GetHeader(userHeader); id != "" {
			setPrincipal(c, principal{ID: id, Role: string(domainuser.RoleStudent)})
		}
		c.Next()
	})
	router.POST("/api/v1/uploads", handler.Upload)
	return router
}

func doUpload(t *testing.T, router *gin.Engine, user, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.WriteField("kind", "avatars"); err != nil {
		t.Fatalf("write kind field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if user != "" {
		req.Header.Set(userHeader, user)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// pngBytes is a minimal payload the content sniffer reports as image/png.
func pngBytes() []byte {
	return append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
}

func TestUploadStoresFileUnderUserPrefix(t *testing.T) {
	uploader := &recordingUploader{}
	router := newUploadRouter(t, uploader)

	rec := doUpload(t, router, "alice", "avatar.png", pngBytes())
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		URL         string `json:"url"`
		ContentType string `json:"content_type"`
		Size        int64  `json:"size"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ContentType != "image/png" || resp.Size != int64(len(pngBytes())) {
		t.Fatalf("response %+v", resp)
	}
	if !strings.HasPrefix(uploader.key, "users/alice/avatars/") || !strings.HasSuffix(uploader.key, ".png") {
		t.Fatalf("object key %q", uploader.key)
	}
}

func TestUploadRequiresAuthentication(t *testing.T) {
	router := newUploadRouter(t, &recordingUploader{})
	rec := doUpload(t, router, "", "avatar.png", pngBytes())
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUploadRejectsUnsupportedContent(t *testing.T) {
	router := newUploadRouter(t, &recordingUploader{})
	rec := doUpload(t, router, "alice", "notes.txt", []byte("plain text, not an image"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestUploadWithoutObjectStoreIsUnavailable(t *testing.T) {
	router := newUploadRouter(t, s3.NoopUploader{})
	rec := doUpload(t, router, "alice", "avatar.png", pngBytes())
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}
