package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/medtranslate/internal/domain/conversation"
	"github.com/geocoder89/medtranslate/internal/domain/user"
	"github.com/geocoder89/medtranslate/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConversationsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewConversationsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ConversationsRepo {
	return &ConversationsRepo{pool: pool, prom: prom}
}

// FindOrCreate inserts the pair or returns the row a concurrent caller already
// committed. The unique constraint on (doctor_id, patient_id) decides the winner.
func (r *ConversationsRepo) FindOrCreate(ctx context.Context, doctorID, patientID int64) (c conversation.Conversation, created bool, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	err = observe(r.prom, "conversations.insert", func() error {
		return tx.QueryRow(ctx, `
			INSERT INTO conversations (doctor_id, patient_id)
			VALUES ($1, $2)
			ON CONFLICT (doctor_id, patient_id) DO NOTHING
			RETURNING id, doctor_id, patient_id, created_at`,
			doctorID, patientID,
		).Scan(&c.ID, &c.DoctorID, &c.PatientID, &c.CreatedAt)
	})

	switch {
	case err == nil:
		created = true
	case errors.Is(err, pgx.ErrNoRows):
		err = observe(r.prom, "conversations.get_by_pair", func() error {
			return tx.QueryRow(ctx, `
				SELECT id, doctor_id, patient_id, created_at
				FROM conversations
				WHERE doctor_id = $1 AND patient_id = $2`,
				doctorID, patientID,
			).Scan(&c.ID, &c.DoctorID, &c.PatientID, &c.CreatedAt)
		})
		if err != nil {
			return
		}
	case IsForeignKeyViolation(err):
		err = user.ErrNotFound
		return
	default:
		return
	}

	err = tx.Commit(ctx)
	return
}

func (r *ConversationsRepo) GetByID(ctx context.Context, id int64) (conversation.Conversation, error) {
	var c conversation.Conversation

	err := observe(r.prom, "conversations.get_by_id", func() error {
		return r.pool.QueryRow(ctx, `
			SELECT id, doctor_id, patient_id, created_at
			FROM conversations
			WHERE id = $1`, id,
		).Scan(&c.ID, &c.DoctorID, &c.PatientID, &c.CreatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return conversation.Conversation{}, conversation.ErrNotFound
		}
		return conversation.Conversation{}, err
	}
	return c, nil
}

func (r *ConversationsRepo) GetDetails(ctx context.Context, id int64) (conversation.Details, error) {
	var d conversation.Details

	err := observe(r.prom, "conversations.get_details", func() error {
		return r.pool.QueryRow(ctx, `
			SELECT c.id, c.doctor_id, c.patient_id, c.created_at, d.name, p.name
			FROM conversations c
			JOIN users d ON d.id = c.doctor_id
			JOIN users p ON p.id = c.patient_id
			WHERE c.id = $1`, id,
		).Scan(&d.ID, &d.DoctorID, &d.PatientID, &d.CreatedAt, &d.DoctorName, &d.PatientName)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return conversation.Details{}, conversation.ErrNotFound
		}
		return conversation.Details{}, err
	}
	return d, nil
}

func (r *ConversationsRepo) ListForUser(ctx context.Context, userID int64, role string) ([]conversation.Summary, error) {
	var self, other string
	switch role {
	case user.RoleDoctor:
		self, other = "doctor_id", "patient_id"
	case user.RolePatient:
		self, other = "patient_id", "doctor_id"
	default:
		return []conversation.Summary{}, nil
	}

	query := fmt.Sprintf(`
		SELECT c.id, c.created_at, u.id, u.name, u.role,
		       COUNT(m.id) AS message_count,
		       MAX(m.created_at) AS last_message_at
		FROM conversations c
		JOIN users u ON u.id = c.%s
		LEFT JOIN messages m ON m.conversation_id = c.id
		WHERE c.%s = $1
		GROUP BY c.id, u.id
		ORDER BY COALESCE(MAX(m.created_at), c.created_at) DESC, c.id DESC`, other, self)

	out := make([]conversation.Summary, 0)

	err := observe(r.prom, "conversations.list_for_user", func() error {
		rows, err := r.pool.Query(ctx, query, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var s conversation.Summary
			if err := rows.Scan(
				&s.ID,
				&s.CreatedAt,
				&s.CounterpartID,
				&s.CounterpartName,
				&s.CounterpartRole,
				&s.MessageCount,
				&s.LastMessageAt,
			); err != nil {
				return err
			}
			out = append(out, s)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}
