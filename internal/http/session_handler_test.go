package http

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"deepchat/internal/domain"
	"deepchat/internal/service"
)

func newSessionTestRouter() (*gin.Engine, *fakeSessionRepo, *fakeMessageRepo) {
	gin.SetMode(gin.TestMode)
	sessions := newFakeSessionRepo()
	messages := &fakeMessageRepo{}
	handler := NewSessionHandler(zap.NewNop(), service.NewSessionService(sessions, messages))

	r := gin.New()
	authed := func(c *gin.Context) {
		c.Set(authClaimsKey, service.Claims{UserID: "u1", Username: "alice"})
	}
	r.GET("/api/sessions", authed, handler.List)
	r.POST("/api/sessions", authed, handler.Create)
	r.GET("/api/sessions/:sessionId", authed, handler.Get)
	r.PUT("/api/sessions/:sessionId", authed, handler.Update)
	r.GET("/api/sessions/:sessionId/export", authed, handler.Export)
	return r, sessions, messages
}

func TestSessionHandlerCreate(t *testing.T) {
	r, repo, _ := newSessionTestRouter()

	rec := performRequest(r, http.MethodPost, "/api/sessions", map[string]string{"title": "  Mi sesion  "})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Success bool               `json:"success"`
		Data    domain.ChatSession `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Data.Title != "Mi sesion" {
		t.Fatalf("expected trimmed title, got %q", body.Data.Title)
	}
	if _, err := repo.GetByIDForUser(nil, body.Data.ID, "u1"); err != nil {
		t.Fatalf("session not persisted: %v", err)
	}
}

func TestSessionHandlerCreate_BlankTitle(t *testing.T) {
	r, _, _ := newSessionTestRouter()

	rec := performRequest(r, http.MethodPost, "/api/sessions", map[string]string{"title": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSessionHandlerGet_UnknownSession(t *testing.T) {
	r, _, _ := newSessionTestRouter()

	rec := performRequest(r, http.MethodGet, "/api/sessions/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSessionHandlerUpdate_UnknownSession(t *testing.T) {
	r, _, _ := newSessionTestRouter()

	rec := performRequest(r, http.MethodPut, "/api/sessions/nope", map[string]string{"title": "Nueva"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSessionHandlerExport(t *testing.T) {
	r, repo, messages := newSessionTestRouter()

	now := time.Now().UTC()
	repo.sessions["s1"] = domain.ChatSession{ID: "s1", UserID: "u1", Title: "Charla", CreatedAt: now, UpdatedAt: now}
	messages.created = []domain.Message{
		{ID: "m1", SessionID: "s1", Content: "hola", Role: domain.MessageRoleUser, CreatedAt: now},
		{ID: "m2", SessionID: "s1", Content: "buenas", Role: domain.MessageRoleAssistant, CreatedAt: now},
	}

	rec := performRequest(r, http.MethodGet, "/api/sessions/s1/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="chat-s1.json"` {
		t.Fatalf("unexpected disposition: %s", got)
	}

	var doc struct {
		Session struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"session"`
		Messages []struct {
			Content string `json:"content"`
			Role    string `json:"role"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if doc.Session.Title != "Charla" || len(doc.Messages) != 2 {
		t.Fatalf("unexpected export: %s", rec.Body.String())
	}
	if doc.Messages[1].Role != string(domain.MessageRoleAssistant) || doc.Messages[1].Content != "buenas" {
		t.Fatalf("unexpected second message: %+v", doc.Messages[1])
	}
}
