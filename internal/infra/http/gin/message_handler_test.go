package ginserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"

	"esocial/internal/app/dto"
	msgsvc "esocial/internal/app/services/messaging"
	domainuser "esocial/internal/domain/user"
	"esocial/internal/infra/storage/memory"
)

// userHeader carries the acting user in tests; an injected middleware maps it
// to a request principal the way the auth middleware would.
const userHeader = "X-Test-User"

func newMessageRouter(t *testing.T, userIDs ...string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := memory.NewUserRepository()
	now := time.Date(2025, time.May, 5, 10, 0, 0, 0, time.UTC)
	for _, id := range userIDs {
		user, err := domainuser.NewUser(domainuser.CreateParams{
			ID:           domainuser.ID(id),
			Email:        id + "@student.example.edu",
			FirstName:    "User-" + id,
			LastName:     "Testov",
			PasswordHash: "hash",
			Role:         domainuser.RoleStudent,
			University:   "Test University",
			CreatedAt:    now,
		})
		if err != nil {
			t.Fatalf("seed user %s: %v", id, err)
		}
		if err := users.Save(context.Background(), user); err != nil {
			t.Fatalf("save user %s: %v", id, err)
		}
	}

	svc := &msgsvc.Service{
		Messages:  memory.NewMessageStore(),
		Directory: users,
		Now:       func() time.Time { return now },
	}
	handler := MessageHandler{Service: svc}

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if id := c.GetHeader(userHeader); id != "" {
			setPrincipal(c, principal{ID: id, Role: string(domainuser.RoleStudent)})
		}
		c.Next()
	})
	api := router.Group("/api/v1")
	api.POST("/messages", handler.Send)
	api.GET("/messages/conversations", handler.Conversations)
	api.GET("/messages/with/:userId", handler.Thread)
	api.PUT("/messages/:id/read", handler.MarkRead)
	api.DELETE("/messages/:id", handler.Delete)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(userHeader, user)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSendAndThreadRoundTrip(t *testing.T) {
	router := newMessageRouter(t, "alice", "bob")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/messages", "alice", `{"receiver_id":"bob","content":"hello bob"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("send status = %d, body %s", rec.Code, rec.Body.String())
	}
	var sent dto.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &sent); err != nil {
		t.Fatalf("decode send response: %v", err)
	}
	if sent.Content != "hello bob" || sent.SenderID != "alice" {
		t.Fatalf("unexpected message %+v", sent)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/messages/with/alice", "bob", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("thread status = %d, body %s", rec.Code, rec.Body.String())
	}
	var thread dto.Thread
	if err := json.Unmarshal(rec.Body.Bytes(), &thread); err != nil {
		t.Fatalf("decode thread: %v", err)
	}
	if len(thread.Messages) != 1 || thread.Messages[0].ID != sent.ID {
		t.Fatalf("thread should contain the sent message, got %d", len(thread.Messages))
	}
	if thread.User.ID != "alice" {
		t.Fatalf("thread counterpart = %s, want alice", thread.User.ID)
	}
}

func TestSendRequiresAuthentication(t *testing.T) {
	router := newMessageRouter(t, "alice", "bob")
	rec := doJSON(t, router, http.MethodPost, "/api/v1/messages", "", `{"receiver_id":"bob","content":"hi"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestSendToUnknownReceiver(t *testing.T) {
	router := newMessageRouter(t, "alice")
	rec := doJSON(t, router, http.MethodPost, "/api/v1/messages", "alice", `{"receiver_id":"ghost","content":"hi"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body %s", rec.Code, rec.Body.String())
	}
}

func TestMarkReadIsReceiverOnly(t *testing.T) {
	router := newMessageRouter(t, "alice", "bob")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/messages", "alice", `{"receiver_id":"bob","content":"hello"}`)
	var sent dto.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &sent); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doJSON(t, router, http.MethodPut, "/api/v1/messages/"+sent.ID+"/read", "alice", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("sender mark read status = %d, want 403", rec.Code)
	}
	rec = doJSON(t, router, http.MethodPut, "/api/v1/messages/"+sent.ID+"/read", "bob", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("receiver mark read status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteMessage(t *testing.T) {
	router := newMessageRouter(t, "alice", "bob")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/messages", "alice", `{"receiver_id":"bob","content":"oops"}`)
	var sent dto.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &sent); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/messages/"+sent.ID, "alice", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, router, http.MethodDelete, "/api/v1/messages/"+sent.ID, "alice", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("repeat delete status = %d, want 404", rec.Code)
	}
}

func TestConversationsRejectBadPagination(t *testing.T) {
	router := newMessageRouter(t, "alice")
	rec := doJSON(t, router, http.MethodGet, "/api/v1/messages/conversations?page=abc", "alice", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/messages/conversations?page=-1", "alice", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("negative page status = %d, want 400", rec.Code)
	}
}
