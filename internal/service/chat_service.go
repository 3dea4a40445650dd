package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"deepchat/internal/domain"
	"deepchat/internal/llm"
	"deepchat/internal/repository"
)

// ChatService orquesta un envío de chat: resuelve la sesión, persiste el
// turno del usuario, arma el historial, invoca al gateway y persiste la
// respuesta del asistente exactamente una vez.
type ChatService struct {
	logger        *zap.Logger
	gateway       llm.Gateway
	sessions      repository.SessionRepository
	messages      repository.MessageRepository
	documents     repository.DocumentRepository
	contextBudget int
}

var (
	ErrChatInvalidInput = errors.New("chat invalid input")
)

const (
	chatMessageMaxLen = 10000
	sessionTitleLimit = 50
)

func NewChatService(
	logger *zap.Logger,
	gateway llm.Gateway,
	sessions repository.SessionRepository,
	messages repository.MessageRepository,
	documents repository.DocumentRepository,
	contextBudget int,
) *ChatService {
	if contextBudget <= 0 {
		contextBudget = 4000
	}
	return &ChatService{
		logger:        logger,
		gateway:       gateway,
		sessions:      sessions,
		messages:      messages,
		documents:     documents,
		contextBudget: contextBudget,
	}
}

type SendInput struct {
	UserID      string
	SessionID   string
	Message     string
	DocumentIDs []string
}

type SendResult struct {
	SessionID string
	Message   domain.Message
	Usage     llm.Usage
}

// Send ejecuta el camino síncrono: una invocación, una respuesta completa.
func (s *ChatService) Send(ctx context.Context, in SendInput) (SendResult, error) {
	session, history, err := s.prepare(ctx, in)
	if err != nil {
		return SendResult{}, err
	}

	completion, err := s.gateway.Complete(ctx, history)
	if err != nil {
		// El turno del usuario ya quedó persistido; el próximo envío
		// reintenta la completion con el mismo historial.
		return SendResult{SessionID: session.ID}, err
	}

	assistant, err := s.persistAssistantTurn(ctx, session.ID, completion.Text, completion.Usage.CompletionTokens)
	if err != nil {
		return SendResult{SessionID: session.ID}, err
	}

	return SendResult{
		SessionID: session.ID,
		Message:   assistant,
		Usage:     completion.Usage,
	}, nil
}

// SendStream ejecuta el camino streaming: cada delta se acumula y se reenvía
// por sink. Si sink falla (cliente desconectado) se deja de reenviar pero el
// stream del proveedor se drena igual, para no perder el texto acumulado.
func (s *ChatService) SendStream(ctx context.Context, in SendInput, sink func(delta string) error) (SendResult, error) {
	session, history, err := s.prepare(ctx, in)
	if err != nil {
		return SendResult{}, err
	}

	// El abandono del cliente no debe cancelar el fetch al proveedor.
	upstreamCtx := context.WithoutCancel(ctx)

	stream, err := s.gateway.StreamComplete(upstreamCtx, history)
	if err != nil {
		return SendResult{SessionID: session.ID}, err
	}
	defer stream.Close()

	var full strings.Builder
	forwarding := sink != nil

	for {
		delta, recvErr := stream.Recv()
		if recvErr != nil {
			if errors.Is(recvErr, io.EOF) {
				break
			}
			return SendResult{SessionID: session.ID}, recvErr
		}

		full.WriteString(delta)
		if forwarding {
			if sinkErr := sink(delta); sinkErr != nil {
				s.logger.Warn("client gone, draining upstream",
					zap.String("session_id", session.ID),
					zap.Error(sinkErr),
				)
				forwarding = false
			}
		}
	}

	assistant, err := s.persistAssistantTurn(upstreamCtx, session.ID, full.String(), 0)
	if err != nil {
		return SendResult{SessionID: session.ID}, err
	}

	return SendResult{SessionID: session.ID, Message: assistant}, nil
}

// prepare cubre los estados previos al dispatch: sesión, turno del usuario,
// historial completo y contexto de conocimiento opcional.
func (s *ChatService) prepare(ctx context.Context, in SendInput) (domain.ChatSession, []llm.Message, error) {
	in.Message = strings.TrimSpace(in.Message)
	if in.UserID == "" || in.Message == "" || len(in.Message) > chatMessageMaxLen {
		return domain.ChatSession{}, nil, ErrChatInvalidInput
	}

	session, err := s.resolveSession(ctx, in)
	if err != nil {
		return domain.ChatSession{}, nil, err
	}

	// El turno del usuario se persiste antes de llamar al gateway: el input
	// nunca se pierde aunque la completion falle.
	userTurn := domain.Message{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Content:   in.Message,
		Role:      domain.MessageRoleUser,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, userTurn); err != nil {
		return domain.ChatSession{}, nil, fmt.Errorf("persist user turn: %w", err)
	}

	// Se recarga el historial completo, no solo el mensaje nuevo, para
	// conservar contexto multi-turno.
	stored, err := s.messages.ListBySessionID(ctx, session.ID)
	if err != nil {
		return domain.ChatSession{}, nil, fmt.Errorf("load history: %w", err)
	}

	history := make([]llm.Message, 0, len(stored)+1)
	if len(in.DocumentIDs) > 0 {
		docs, err := s.documents.ListByIDsForUser(ctx, in.DocumentIDs, in.UserID)
		if err != nil {
			return domain.ChatSession{}, nil, fmt.Errorf("load documents: %w", err)
		}
		if systemTurn, ok := KnowledgeContext(docs); ok {
			history = append(history, systemTurn)
		}
	}
	for _, msg := range stored {
		history = append(history, llm.Message{Role: msg.Role, Content: msg.Content})
	}

	return session, llm.TruncateToBudget(history, s.contextBudget), nil
}

func (s *ChatService) resolveSession(ctx context.Context, in SendInput) (domain.ChatSession, error) {
	if in.SessionID != "" {
		session, err := s.sessions.GetByIDForUser(ctx, in.SessionID, in.UserID)
		if err != nil {
			return domain.ChatSession{}, err
		}
		return session, nil
	}

	now := time.Now().UTC()
	session := domain.ChatSession{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Title:     sessionTitle(in.Message),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return domain.ChatSession{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

func (s *ChatService) persistAssistantTurn(ctx context.Context, sessionID, content string, tokensUsed int) (domain.Message, error) {
	assistant := domain.Message{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Content:    content,
		Role:       domain.MessageRoleAssistant,
		TokensUsed: tokensUsed,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, assistant); err != nil {
		return domain.Message{}, fmt.Errorf("persist assistant turn: %w", err)
	}

	// Un intercambio completo suma dos turnos: usuario y asistente.
	if err := s.sessions.AddToMessageCount(ctx, sessionID, 2); err != nil {
		return domain.Message{}, fmt.Errorf("update session counters: %w", err)
	}
	return assistant, nil
}

// sessionTitle deriva el título de una sesión nueva del primer mensaje.
func sessionTitle(message string) string {
	runes := []rune(message)
	if len(runes) <= sessionTitleLimit {
		return message
	}
	return string(runes[:sessionTitleLimit]) + "..."
}
