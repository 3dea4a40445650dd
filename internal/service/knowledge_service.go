package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"deepchat/internal/domain"
	"deepchat/internal/llm"
	"deepchat/internal/repository"
)

// KnowledgeService administra los metadatos de documentos de la base de
// conocimiento. El contenido de los archivos vive fuera del sistema.
type KnowledgeService struct {
	documents repository.DocumentRepository
}

var ErrDocumentInvalidInput = errors.New("document invalid input")

const (
	documentTitleMaxLen       = 200
	documentDescriptionMaxLen = 1000
)

func NewKnowledgeService(documents repository.DocumentRepository) *KnowledgeService {
	return &KnowledgeService{documents: documents}
}

type DocumentInput struct {
	Title        string
	Description  string
	Tags         string
	Filename     string
	OriginalName string
	FileSize     int64
}

func (in *DocumentInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Tags = strings.TrimSpace(in.Tags)
	if in.Title == "" || len(in.Title) > documentTitleMaxLen {
		return ErrDocumentInvalidInput
	}
	if len(in.Description) > documentDescriptionMaxLen {
		return ErrDocumentInvalidInput
	}
	return nil
}

func (s *KnowledgeService) Create(ctx context.Context, userID string, in DocumentInput) (domain.KnowledgeDocument, error) {
	if err := in.validate(); err != nil {
		return domain.KnowledgeDocument{}, err
	}

	now := time.Now().UTC()
	doc := domain.KnowledgeDocument{
		ID:           uuid.NewString(),
		UserID:       userID,
		Title:        in.Title,
		Description:  in.Description,
		Filename:     in.Filename,
		OriginalName: in.OriginalName,
		FileSize:     in.FileSize,
		Tags:         in.Tags,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return domain.KnowledgeDocument{}, err
	}
	return doc, nil
}

func (s *KnowledgeService) Get(ctx context.Context, id, userID string) (domain.KnowledgeDocument, error) {
	return s.documents.GetByIDForUser(ctx, id, userID)
}

func (s *KnowledgeService) List(ctx context.Context, userID, search, tag string) ([]domain.KnowledgeDocument, error) {
	return s.documents.ListByUser(ctx, userID, search, tag)
}

func (s *KnowledgeService) Update(ctx context.Context, id, userID string, in DocumentInput) (domain.KnowledgeDocument, error) {
	if err := in.validate(); err != nil {
		return domain.KnowledgeDocument{}, err
	}

	doc, err := s.documents.GetByIDForUser(ctx, id, userID)
	if err != nil {
		return domain.KnowledgeDocument{}, err
	}
	doc.Title = in.Title
	doc.Description = in.Description
	doc.Tags = in.Tags
	if err := s.documents.Update(ctx, doc); err != nil {
		return domain.KnowledgeDocument{}, err
	}
	return s.documents.GetByIDForUser(ctx, id, userID)
}

func (s *KnowledgeService) Delete(ctx context.Context, id, userID string) error {
	if _, err := s.documents.GetByIDForUser(ctx, id, userID); err != nil {
		return err
	}
	return s.documents.Delete(ctx, id)
}

// KnowledgeContext compone un turno system sintético con los metadatos de los
// documentos seleccionados. Es una función pura: sin efectos, mismo input
// produce siempre el mismo turno.
func KnowledgeContext(docs []domain.KnowledgeDocument) (llm.Message, bool) {
	if len(docs) == 0 {
		return llm.Message{}, false
	}

	var sb strings.Builder
	sb.WriteString("The user has selected the following reference documents for this conversation:\n")
	for _, doc := range docs {
		sb.WriteString("- ")
		sb.WriteString(doc.Title)
		if doc.Description != "" {
			sb.WriteString(": ")
			sb.WriteString(doc.Description)
		}
		if doc.Tags != "" {
			sb.WriteString(" [")
			sb.WriteString(doc.Tags)
			sb.WriteString("]")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Take these documents into account when answering.")

	return llm.Message{Role: llm.RoleSystem, Content: sb.String()}, true
}
