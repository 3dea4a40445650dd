package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"deepchat/internal/domain"
	"deepchat/internal/repository"
)

// SessionService encapsula las reglas de negocio sobre sesiones y sus mensajes.
type SessionService struct {
	sessions repository.SessionRepository
	messages repository.MessageRepository
}

var ErrSessionInvalidTitle = errors.New("session title invalid")

const sessionTitleMaxLen = 100

func NewSessionService(sessions repository.SessionRepository, messages repository.MessageRepository) *SessionService {
	return &SessionService{sessions: sessions, messages: messages}
}

func (s *SessionService) List(ctx context.Context, userID string) ([]domain.ChatSession, error) {
	return s.sessions.ListByUser(ctx, userID)
}

func (s *SessionService) Get(ctx context.Context, id, userID string) (domain.ChatSession, error) {
	return s.sessions.GetByIDForUser(ctx, id, userID)
}

func (s *SessionService) Create(ctx context.Context, userID, title string) (domain.ChatSession, error) {
	title = strings.TrimSpace(title)
	if title == "" || len(title) > sessionTitleMaxLen {
		return domain.ChatSession{}, ErrSessionInvalidTitle
	}

	now := time.Now().UTC()
	session := domain.ChatSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return domain.ChatSession{}, err
	}
	return session, nil
}

func (s *SessionService) Rename(ctx context.Context, id, userID, title string) (domain.ChatSession, error) {
	title = strings.TrimSpace(title)
	if title == "" || len(title) > sessionTitleMaxLen {
		return domain.ChatSession{}, ErrSessionInvalidTitle
	}

	if _, err := s.sessions.GetByIDForUser(ctx, id, userID); err != nil {
		return domain.ChatSession{}, err
	}
	if err := s.sessions.UpdateTitle(ctx, id, title); err != nil {
		return domain.ChatSession{}, err
	}
	return s.sessions.GetByIDForUser(ctx, id, userID)
}

func (s *SessionService) Delete(ctx context.Context, id, userID string) error {
	if _, err := s.sessions.GetByIDForUser(ctx, id, userID); err != nil {
		return err
	}
	return s.sessions.Delete(ctx, id)
}

// Clear borra los mensajes de la sesión sin borrar la sesión misma.
func (s *SessionService) Clear(ctx context.Context, id, userID string) (int64, error) {
	if _, err := s.sessions.GetByIDForUser(ctx, id, userID); err != nil {
		return 0, err
	}
	return s.sessions.ClearMessages(ctx, id)
}

func (s *SessionService) Messages(ctx context.Context, id, userID string) ([]domain.Message, error) {
	if _, err := s.sessions.GetByIDForUser(ctx, id, userID); err != nil {
		return nil, err
	}
	return s.messages.ListBySessionID(ctx, id)
}

func (s *SessionService) DeleteMessage(ctx context.Context, messageID, userID string) error {
	return s.messages.DeleteOwned(ctx, messageID, userID)
}

func (s *SessionService) Search(ctx context.Context, userID, query string) ([]domain.ChatSession, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.ChatSession{}, nil
	}
	return s.sessions.Search(ctx, userID, query)
}

// ExportDocument es el documento descargable con la conversación completa.
type ExportDocument struct {
	Session  ExportSession   `json:"session"`
	Messages []ExportMessage `json:"messages"`
}

type ExportSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ExportMessage struct {
	Content   string    `json:"content"`
	Role      string    `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *SessionService) Export(ctx context.Context, id, userID string) (ExportDocument, error) {
	session, err := s.sessions.GetByIDForUser(ctx, id, userID)
	if err != nil {
		return ExportDocument{}, err
	}
	messages, err := s.messages.ListBySessionID(ctx, id)
	if err != nil {
		return ExportDocument{}, err
	}

	doc := ExportDocument{
		Session: ExportSession{
			ID:        session.ID,
			Title:     session.Title,
			CreatedAt: session.CreatedAt,
			UpdatedAt: session.UpdatedAt,
		},
		Messages: make([]ExportMessage, 0, len(messages)),
	}
	for _, msg := range messages {
		doc.Messages = append(doc.Messages, ExportMessage{
			Content:   msg.Content,
			Role:      msg.Role,
			Timestamp: msg.CreatedAt,
		})
	}
	return doc, nil
}
