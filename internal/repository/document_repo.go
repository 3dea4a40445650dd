package repository

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"deepchat/internal/domain"
)

// DocumentRepository persiste metadatos de documentos de la base de conocimiento.
type DocumentRepository interface {
	Create(ctx context.Context, doc domain.KnowledgeDocument) error
	GetByIDForUser(ctx context.Context, id, userID string) (domain.KnowledgeDocument, error)
	ListByUser(ctx context.Context, userID, search, tag string) ([]domain.KnowledgeDocument, error)
	ListByIDsForUser(ctx context.Context, ids []string, userID string) ([]domain.KnowledgeDocument, error)
	Update(ctx context.Context, doc domain.KnowledgeDocument) error
	Delete(ctx context.Context, id string) error
}

type PgDocumentRepository struct {
	pool *pgxpool.Pool
}

func NewPgDocumentRepository(pool *pgxpool.Pool) *PgDocumentRepository {
	return &PgDocumentRepository{pool: pool}
}

const documentColumns = `id, user_id, title, description, filename, original_name, file_size, tags, created_at, updated_at`

func (r *PgDocumentRepository) Create(ctx context.Context, doc domain.KnowledgeDocument) error {
	const query = `
		INSERT INTO knowledge_documents (id, user_id, title, description, filename, original_name, file_size, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		doc.ID,
		doc.UserID,
		doc.Title,
		doc.Description,
		doc.Filename,
		doc.OriginalName,
		doc.FileSize,
		doc.Tags,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return err
}

func (r *PgDocumentRepository) GetByIDForUser(ctx context.Context, id, userID string) (domain.KnowledgeDocument, error) {
	const query = `SELECT ` + documentColumns + ` FROM knowledge_documents WHERE id = $1 AND user_id = $2`
	var d domain.KnowledgeDocument
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&d.ID,
		&d.UserID,
		&d.Title,
		&d.Description,
		&d.Filename,
		&d.OriginalName,
		&d.FileSize,
		&d.Tags,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return domain.KnowledgeDocument{}, mapNoRows(err)
	}
	return d, nil
}

func (r *PgDocumentRepository) ListByUser(ctx context.Context, userID, search, tag string) ([]domain.KnowledgeDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM knowledge_documents WHERE user_id = $1`
	args := []any{userID}

	if search != "" {
		args = append(args, "%"+search+"%")
		query += ` AND (title ILIKE $2 OR description ILIKE $2 OR tags ILIKE $2)`
	}
	if tag != "" {
		args = append(args, "%"+tag+"%")
		query += ` AND tags ILIKE $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDocuments(rows)
}

func (r *PgDocumentRepository) ListByIDsForUser(ctx context.Context, ids []string, userID string) ([]domain.KnowledgeDocument, error) {
	if len(ids) == 0 {
		return []domain.KnowledgeDocument{}, nil
	}
	const query = `
		SELECT ` + documentColumns + `
		FROM knowledge_documents
		WHERE id = ANY($1) AND user_id = $2
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, ids, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDocuments(rows)
}

func (r *PgDocumentRepository) Update(ctx context.Context, doc domain.KnowledgeDocument) error {
	const query = `
		UPDATE knowledge_documents
		SET title = $2, description = $3, tags = $4, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, doc.ID, doc.Title, doc.Description, doc.Tags)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgDocumentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM knowledge_documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDocuments(rows pgx.Rows) ([]domain.KnowledgeDocument, error) {
	docs := []domain.KnowledgeDocument{}
	for rows.Next() {
		var d domain.KnowledgeDocument
		err := rows.Scan(
			&d.ID,
			&d.UserID,
			&d.Title,
			&d.Description,
			&d.Filename,
			&d.OriginalName,
			&d.FileSize,
			&d.Tags,
			&d.CreatedAt,
			&d.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}
