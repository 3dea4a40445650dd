package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"deepchat/internal/repository"
	"deepchat/internal/service"
)

// KnowledgeHandler mantiene dependencias para los endpoints de documentos.
type KnowledgeHandler struct {
	logger    *zap.Logger
	documents *service.KnowledgeService
}

// NewKnowledgeHandler crea una instancia de KnowledgeHandler con dependencias necesarias.
func NewKnowledgeHandler(logger *zap.Logger, documents *service.KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{logger: logger, documents: documents}
}

type documentRequest struct {
	Title        string `json:"title" binding:"required"`
	Description  string `json:"description"`
	Tags         string `json:"tags"`
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	FileSize     int64  `json:"fileSize"`
}

func (r documentRequest) toInput() service.DocumentInput {
	return service.DocumentInput{
		Title:        r.Title,
		Description:  r.Description,
		Tags:         r.Tags,
		Filename:     r.Filename,
		OriginalName: r.OriginalName,
		FileSize:     r.FileSize,
	}
}

// List maneja GET /api/knowledge/documents.
func (h *KnowledgeHandler) List(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Access token required"})
		return
	}

	docs, err := h.documents.List(c.Request.Context(), claims.UserID, c.Query("search"), c.Query("tag"))
	if err != nil {
		h.logger.Error("list documents failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": docs})
}

// Create maneja POST /api/knowledge/documents.
func (h *KnowledgeHandler) Create(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Access token required"})
		return
	}

	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create document request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Validation failed"})
		return
	}

	doc, err := h.documents.Create(c.Request.Context(), claims.UserID, req.toInput())
	if err != nil {
		if errors.Is(err, service.ErrDocumentInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Validation failed"})
			return
		}
		h.logger.Error("create document failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": doc})
}

// Get maneja GET /api/knowledge/documents/:id.
func (h *KnowledgeHandler) Get(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Access token required"})
		return
	}

	doc, err := h.documents.Get(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Document not found"})
			return
		}
		h.logger.Error("get document failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": doc})
}

// Update maneja PUT /api/knowledge/documents/:id.
func (h *KnowledgeHandler) Update(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Access token required"})
		return
	}

	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update document request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Validation failed"})
		return
	}

	doc, err := h.documents.Update(c.Request.Context(), c.Param("id"), claims.UserID, req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDocumentInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Validation failed"})
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Document not found"})
		default:
			h.logger.Error("update document failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": doc})
}

// Delete maneja DELETE /api/knowledge/documents/:id.
func (h *KnowledgeHandler) Delete(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Access token required"})
		return
	}

	err := h.documents.Delete(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Document not found"})
			return
		}
		h.logger.Error("delete document failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Document deleted successfully"})
}
