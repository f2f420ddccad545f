package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/medtranslate/internal/domain/conversation"
	"github.com/geocoder89/medtranslate/internal/domain/message"
	"github.com/geocoder89/medtranslate/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessagesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewMessagesRepo(pool *pgxpool.Pool, prom *observability.Prom) *MessagesRepo {
	return &MessagesRepo{pool: pool, prom: prom}
}

// Append locks the conversation row so concurrent senders are serialized, then
// stores the message with a created_at that never precedes the last one.
func (r *MessagesRepo) Append(ctx context.Context, in message.AppendInput) (m message.Message, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	err = observe(r.prom, "messages.append.lock", func() error {
		var id int64
		return tx.QueryRow(ctx, `SELECT id FROM conversations WHERE id = $1 FOR UPDATE`, in.ConversationID).Scan(&id)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = conversation.ErrNotFound
		}
		return
	}

	m = message.Message{
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		SenderRole:     in.SenderRole,
		OriginalText:   in.OriginalText,
		TranslatedText: &in.TranslatedText,
		Language:       in.Language,
	}

	err = observe(r.prom, "messages.append.insert", func() error {
		return tx.QueryRow(ctx, `
			WITH last AS (
				SELECT MAX(created_at) AS at FROM messages WHERE conversation_id = $1
			)
			INSERT INTO messages (conversation_id, sender_id, sender_role, original_text, translated_text, language, created_at)
			SELECT $1, $2, $3, $4, $5, $6, GREATEST($7::timestamptz, COALESCE(last.at, $7::timestamptz))
			FROM last
			RETURNING id, created_at`,
			in.ConversationID, in.SenderID, in.SenderRole, in.OriginalText, in.TranslatedText, in.Language, in.At,
		).Scan(&m.ID, &m.CreatedAt)
	})
	if err != nil {
		return
	}

	err = observe(r.prom, "messages.append.sender", func() error {
		return tx.QueryRow(ctx, `SELECT name FROM users WHERE id = $1`, in.SenderID).Scan(&m.SenderName)
	})
	if err != nil {
		return
	}

	err = tx.Commit(ctx)
	return
}

func (r *MessagesRepo) ListByConversation(ctx context.Context, conversationID int64) ([]message.Message, error) {
	out := make([]message.Message, 0)

	err := observe(r.prom, "messages.list_by_conversation", func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT m.id, m.conversation_id, m.sender_id, m.sender_role, u.name,
			       m.original_text, m.translated_text, m.language, m.created_at
			FROM messages m
			JOIN users u ON u.id = m.sender_id
			WHERE m.conversation_id = $1
			ORDER BY m.created_at ASC, m.id ASC`, conversationID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var m message.Message
			if err := rows.Scan(
				&m.ID,
				&m.ConversationID,
				&m.SenderID,
				&m.SenderRole,
				&m.SenderName,
				&m.OriginalText,
				&m.TranslatedText,
				&m.Language,
				&m.CreatedAt,
			); err != nil {
				return err
			}
			out = append(out, m)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}
