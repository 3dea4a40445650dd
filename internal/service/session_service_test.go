package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"deepchat/internal/domain"
	"deepchat/internal/repository"
)

type stubSessionRepo struct {
	sessions map[string]domain.ChatSession
	cleared  []string
	deleted  []string
	titles   map[string]string
	searched string
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{
		sessions: make(map[string]domain.ChatSession),
		titles:   make(map[string]string),
	}
}

func (m *stubSessionRepo) Create(_ context.Context, session domain.ChatSession) error {
	m.sessions[session.ID] = session
	return nil
}

func (m *stubSessionRepo) GetByIDForUser(_ context.Context, id, userID string) (domain.ChatSession, error) {
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return domain.ChatSession{}, repository.ErrNotFound
	}
	return s, nil
}

func (m *stubSessionRepo) ListByUser(_ context.Context, userID string) ([]domain.ChatSession, error) {
	var out []domain.ChatSession
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *stubSessionRepo) UpdateTitle(_ context.Context, id, title string) error {
	s, ok := m.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.Title = title
	m.sessions[id] = s
	m.titles[id] = title
	return nil
}

func (m *stubSessionRepo) Delete(_ context.Context, id string) error {
	delete(m.sessions, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *stubSessionRepo) ClearMessages(_ context.Context, id string) (int64, error) {
	m.cleared = append(m.cleared, id)
	return 3, nil
}

func (m *stubSessionRepo) AddToMessageCount(context.Context, string, int) error {
	return errors.New("not implemented")
}

func (m *stubSessionRepo) Search(_ context.Context, userID, query string) ([]domain.ChatSession, error) {
	m.searched = query
	return m.ListByUser(context.Background(), userID)
}

type stubMessageRepo struct {
	bySession map[string][]domain.Message
	deleted   []string
	deleteErr error
}

func newStubMessageRepo() *stubMessageRepo {
	return &stubMessageRepo{bySession: make(map[string][]domain.Message)}
}

func (m *stubMessageRepo) Create(_ context.Context, message domain.Message) error {
	m.bySession[message.SessionID] = append(m.bySession[message.SessionID], message)
	return nil
}

func (m *stubMessageRepo) ListBySessionID(_ context.Context, sessionID string) ([]domain.Message, error) {
	return m.bySession[sessionID], nil
}

func (m *stubMessageRepo) DeleteOwned(_ context.Context, messageID, _ string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, messageID)
	return nil
}

func TestSessionServiceCreate_RejectsInvalidTitle(t *testing.T) {
	svc := NewSessionService(newStubSessionRepo(), newStubMessageRepo())

	cases := []string{"", "   ", strings.Repeat("t", 101)}
	for _, title := range cases {
		if _, err := svc.Create(context.Background(), "u1", title); !errors.Is(err, ErrSessionInvalidTitle) {
			t.Fatalf("title %q: expected ErrSessionInvalidTitle, got %v", title, err)
		}
	}
}

func TestSessionServiceCreate_TrimsAndPersists(t *testing.T) {
	repo := newStubSessionRepo()
	svc := NewSessionService(repo, newStubMessageRepo())

	session, err := svc.Create(context.Background(), "u1", "  mi sesion  ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if session.Title != "mi sesion" {
		t.Fatalf("expected trimmed title, got %q", session.Title)
	}
	if _, ok := repo.sessions[session.ID]; !ok {
		t.Fatal("session not persisted")
	}
}

func TestSessionServiceRename_UpdatesTitleForOwner(t *testing.T) {
	repo := newStubSessionRepo()
	repo.sessions["s1"] = domain.ChatSession{ID: "s1", UserID: "u1", Title: "vieja"}
	svc := NewSessionService(repo, newStubMessageRepo())

	session, err := svc.Rename(context.Background(), "s1", "u1", "nueva")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if session.Title != "nueva" {
		t.Fatalf("expected renamed session, got %q", session.Title)
	}
}

func TestSessionServiceRename_RejectsWrongOwner(t *testing.T) {
	repo := newStubSessionRepo()
	repo.sessions["s1"] = domain.ChatSession{ID: "s1", UserID: "owner"}
	svc := NewSessionService(repo, newStubMessageRepo())

	_, err := svc.Rename(context.Background(), "s1", "intruder", "nueva")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if repo.sessions["s1"].Title != "" {
		t.Fatalf("title must not change, got %q", repo.sessions["s1"].Title)
	}
}

func TestSessionServiceDelete_ChecksOwnership(t *testing.T) {
	repo := newStubSessionRepo()
	repo.sessions["s1"] = domain.ChatSession{ID: "s1", UserID: "owner"}
	svc := NewSessionService(repo, newStubMessageRepo())

	if err := svc.Delete(context.Background(), "s1", "intruder"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Fatalf("expected no deletion, got %v", repo.deleted)
	}

	if err := svc.Delete(context.Background(), "s1", "owner"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "s1" {
		t.Fatalf("expected s1 deleted, got %v", repo.deleted)
	}
}

func TestSessionServiceClear_ReturnsDeletedCount(t *testing.T) {
	repo := newStubSessionRepo()
	repo.sessions["s1"] = domain.ChatSession{ID: "s1", UserID: "u1"}
	svc := NewSessionService(repo, newStubMessageRepo())

	deleted, err := svc.Clear(context.Background(), "s1", "u1")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("expected 3 deleted, got %d", deleted)
	}
	if len(repo.cleared) != 1 || repo.cleared[0] != "s1" {
		t.Fatalf("expected clear on s1, got %v", repo.cleared)
	}
}

func TestSessionServiceMessages_RequiresOwnership(t *testing.T) {
	repo := newStubSessionRepo()
	repo.sessions["s1"] = domain.ChatSession{ID: "s1", UserID: "owner"}
	messages := newStubMessageRepo()
	messages.bySession["s1"] = []domain.Message{{ID: "m1", SessionID: "s1", Content: "hola"}}
	svc := NewSessionService(repo, messages)

	if _, err := svc.Messages(context.Background(), "s1", "intruder"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, err := svc.Messages(context.Background(), "s1", "owner")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(got) != 1 || got[0].ID != "m1" {
		t.Fatalf("unexpected messages: %+v", got)
	}
}

func TestSessionServiceSearch_EmptyQueryShortCircuits(t *testing.T) {
	repo := newStubSessionRepo()
	svc := NewSessionService(repo, newStubMessageRepo())

	got, err := svc.Search(context.Background(), "u1", "   ")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
	if repo.searched != "" {
		t.Fatalf("repo search must not run, got query %q", repo.searched)
	}
}

func TestSessionServiceExport_BuildsDocument(t *testing.T) {
	now := time.Now().UTC()
	repo := newStubSessionRepo()
	repo.sessions["s1"] = domain.ChatSession{ID: "s1", UserID: "u1", Title: "charla", CreatedAt: now, UpdatedAt: now}
	messages := newStubMessageRepo()
	messages.bySession["s1"] = []domain.Message{
		{ID: "m1", SessionID: "s1", Content: "hola", Role: domain.MessageRoleUser, CreatedAt: now},
		{ID: "m2", SessionID: "s1", Content: "buenas", Role: domain.MessageRoleAssistant, CreatedAt: now},
	}
	svc := NewSessionService(repo, messages)

	doc, err := svc.Export(context.Background(), "s1", "u1")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if doc.Session.ID != "s1" || doc.Session.Title != "charla" {
		t.Fatalf("unexpected session block: %+v", doc.Session)
	}
	if len(doc.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(doc.Messages))
	}
	if doc.Messages[0].Role != domain.MessageRoleUser || doc.Messages[1].Role != domain.MessageRoleAssistant {
		t.Fatalf("unexpected roles: %+v", doc.Messages)
	}
}

func TestSessionServiceDeleteMessage_DelegatesOwnership(t *testing.T) {
	messages := newStubMessageRepo()
	messages.deleteErr = repository.ErrNotFound
	svc := NewSessionService(newStubSessionRepo(), messages)

	if err := svc.DeleteMessage(context.Background(), "m1", "u1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
