package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"deepchat/internal/domain"
)

// SessionRepository define el contrato de persistencia para sesiones de chat.
// Toda lectura o escritura va acotada al dueño de la sesión.
type SessionRepository interface {
	Create(ctx context.Context, session domain.ChatSession) error
	GetByIDForUser(ctx context.Context, id, userID string) (domain.ChatSession, error)
	ListByUser(ctx context.Context, userID string) ([]domain.ChatSession, error)
	UpdateTitle(ctx context.Context, id, title string) error
	Delete(ctx context.Context, id string) error
	ClearMessages(ctx context.Context, id string) (int64, error)
	AddToMessageCount(ctx context.Context, id string, delta int) error
	Search(ctx context.Context, userID, query string) ([]domain.ChatSession, error)
}

type PgSessionRepository struct {
	pool *pgxpool.Pool
}

func NewPgSessionRepository(pool *pgxpool.Pool) *PgSessionRepository {
	return &PgSessionRepository{pool: pool}
}

func (r *PgSessionRepository) Create(ctx context.Context, session domain.ChatSession) error {
	const query = `
		INSERT INTO chat_sessions (id, user_id, title, message_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.Title,
		session.MessageCount,
		session.CreatedAt,
		session.UpdatedAt,
	)
	return err
}

func (r *PgSessionRepository) GetByIDForUser(ctx context.Context, id, userID string) (domain.ChatSession, error) {
	const query = `
		SELECT id, user_id, title, message_count, created_at, updated_at
		FROM chat_sessions
		WHERE id = $1 AND user_id = $2
	`
	var s domain.ChatSession
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&s.ID,
		&s.UserID,
		&s.Title,
		&s.MessageCount,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return domain.ChatSession{}, mapNoRows(err)
	}
	return s, nil
}

func (r *PgSessionRepository) ListByUser(ctx context.Context, userID string) ([]domain.ChatSession, error) {
	const query = `
		SELECT id, user_id, title, message_count, created_at, updated_at
		FROM chat_sessions
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSessions(rows)
}

func (r *PgSessionRepository) UpdateTitle(ctx context.Context, id, title string) error {
	const query = `
		UPDATE chat_sessions
		SET title = $2, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, title)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete elimina la sesión; los mensajes caen por el CASCADE del esquema.
func (r *PgSessionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearMessages borra los mensajes y deja la sesión con contador en cero.
func (r *PgSessionRepository) ClearMessages(ctx context.Context, id string) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM messages WHERE session_id = $1`, id)
	if err != nil {
		return 0, err
	}
	_, err = tx.Exec(ctx, `
		UPDATE chat_sessions
		SET message_count = 0, updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// AddToMessageCount ajusta el contador denormalizado y toca updated_at.
func (r *PgSessionRepository) AddToMessageCount(ctx context.Context, id string, delta int) error {
	const query = `
		UPDATE chat_sessions
		SET message_count = message_count + $2, updated_at = now()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, delta)
	return err
}

func (r *PgSessionRepository) Search(ctx context.Context, userID, q string) ([]domain.ChatSession, error) {
	const query = `
		SELECT DISTINCT cs.id, cs.user_id, cs.title, cs.message_count, cs.created_at, cs.updated_at
		FROM chat_sessions cs
		LEFT JOIN messages m ON cs.id = m.session_id
		WHERE cs.user_id = $1
		AND (cs.title ILIKE $2 OR m.content ILIKE $2)
		ORDER BY cs.updated_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID, "%"+q+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSessions(rows)
}

func scanSessions(rows pgx.Rows) ([]domain.ChatSession, error) {
	sessions := []domain.ChatSession{}
	for rows.Next() {
		var s domain.ChatSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.MessageCount, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
