package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"deepchat/internal/domain"
)

// MessageRepository define el contrato de persistencia para mensajes.
// La inserción no toca el contador de la sesión; eso lo decide el caller.
type MessageRepository interface {
	Create(ctx context.Context, message domain.Message) error
	ListBySessionID(ctx context.Context, sessionID string) ([]domain.Message, error)
	DeleteOwned(ctx context.Context, messageID, userID string) error
}

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

func (r *PgMessageRepository) Create(ctx context.Context, message domain.Message) error {
	const query = `
		INSERT INTO messages (id, session_id, content, role, tokens_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		message.ID,
		message.SessionID,
		message.Content,
		message.Role,
		message.TokensUsed,
		message.CreatedAt,
	)
	return err
}

// ListBySessionID devuelve los mensajes en orden cronológico ascendente;
// ese orden es el contexto canónico que se reenvía al proveedor.
func (r *PgMessageRepository) ListBySessionID(ctx context.Context, sessionID string) ([]domain.Message, error) {
	const query = `
		SELECT id, session_id, content, role, tokens_used, created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		err = rows.Scan(
			&msg.ID,
			&msg.SessionID,
			&msg.Content,
			&msg.Role,
			&msg.TokensUsed,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// DeleteOwned borra un mensaje solo si la sesión que lo contiene es del usuario.
func (r *PgMessageRepository) DeleteOwned(ctx context.Context, messageID, userID string) error {
	const query = `
		DELETE FROM messages m
		USING chat_sessions cs
		WHERE m.id = $1 AND m.session_id = cs.id AND cs.user_id = $2
	`
	tag, err := r.pool.Exec(ctx, query, messageID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
