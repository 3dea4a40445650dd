package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"deepchat/internal/llm"
	"deepchat/internal/repository"
	"deepchat/internal/service"
)

// ChatHandler mantiene dependencias para los endpoints de chat.
type ChatHandler struct {
	logger   *zap.Logger
	chatServ *service.ChatService
	sessions *service.SessionService
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
func NewChatHandler(logger *zap.Logger, chatServ *service.ChatService, sessions *service.SessionService) *ChatHandler {
	return &ChatHandler{
		logger:   logger,
		chatServ: chatServ,
		sessions: sessions,
	}
}

// Send maneja POST /api/chat/send.
func (h *ChatHandler) Send(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Access token required"})
		return
	}

	var req struct {
		Message     string   `json:"message" binding:"required"`
		SessionID   string   `json:"sessionId"`
		Stream      bool     `json:"stream"`
		DocumentIDs []string `json:"documentIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid send request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Validation failed"})
		return
	}

	in := service.SendInput{
		UserID:      claims.UserID,
		SessionID:   req.SessionID,
		Message:     req.Message,
		DocumentIDs: req.DocumentIDs,
	}

	if req.Stream {
		h.sendStream(c, in)
		return
	}

	result, err := h.chatServ.Send(c.Request.Context(), in)
	if err != nil {
		h.respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message":   result.Message.Content,
			"sessionId": result.SessionID,
			"usage":     result.Usage,
		},
	})
}

// sendStream reenvia la respuesta del modelo como server-sent events.
func (h *ChatHandler) sendStream(c *gin.Context, in service.SendInput) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	flusher, canFlush := c.Writer.(http.Flusher)
	sent := false

	_, err := h.chatServ.SendStream(c.Request.Context(), in, func(delta string) error {
		payload, marshalErr := json.Marshal(gin.H{"content": delta})
		if marshalErr != nil {
			return marshalErr
		}
		if _, writeErr := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); writeErr != nil {
			return writeErr
		}
		if canFlush {
			flusher.Flush()
		}
		sent = true
		return nil
	})
	if err != nil {
		// Si ya enviamos bytes no podemos cambiar el status ni el content type.
		if sent {
			h.logger.Error("stream interrupted", zap.Error(err))
			return
		}
		h.respondChatError(c, err)
		return
	}

	fmt.Fprint(c.Writer, "data: [DONE]\n\n")
	if canFlush {
		flusher.Flush()
	}
}

// GetMessages maneja GET /api/chat/messages/:sessionId.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Access token required"})
		return
	}

	messages, err := h.sessions.Messages(c.Request.Context(), c.Param("sessionId"), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Session not found"})
			return
		}
		h.logger.Error("list messages failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": messages})
}

// DeleteMessage maneja DELETE /api/chat/messages/:messageId.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Access token required"})
		return
	}

	err := h.sessions.DeleteMessage(c.Request.Context(), c.Param("messageId"), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Message not found"})
			return
		}
		h.logger.Error("delete message failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Message deleted successfully"})
}

// respondChatError traduce errores de servicio a respuestas HTTP sin filtrar
// detalles del proveedor.
func (h *ChatHandler) respondChatError(c *gin.Context, err error) {
	var gwErr *llm.GatewayError

	switch {
	case errors.Is(err, service.ErrChatInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Validation failed"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Session not found"})
	case errors.As(err, &gwErr):
		h.logger.Error("llm gateway failure", zap.String("kind", string(gwErr.Kind)), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "Upstream model unavailable"})
	default:
		h.logger.Error("chat send failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
	}
}
