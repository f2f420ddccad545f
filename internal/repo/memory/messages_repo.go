package memory

import (
	"context"

	"github.com/geocoder89/medtranslate/internal/domain/conversation"
	"github.com/geocoder89/medtranslate/internal/domain/message"
)

type MessagesRepo struct {
	s *Store
}

func (r *MessagesRepo) Append(_ context.Context, in message.AppendInput) (message.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.conversations[in.ConversationID]; !ok {
		return message.Message{}, conversation.ErrNotFound
	}

	at := in.At
	if at.IsZero() {
		at = r.s.now()
	}
	ledger := r.s.messages[in.ConversationID]
	if n := len(ledger); n > 0 && at.Before(ledger[n-1].CreatedAt) {
		at = ledger[n-1].CreatedAt
	}

	translated := in.TranslatedText
	r.s.nextMessageID++
	m := message.Message{
		ID:             r.s.nextMessageID,
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		SenderRole:     in.SenderRole,
		OriginalText:   in.OriginalText,
		TranslatedText: &translated,
		Language:       in.Language,
		CreatedAt:      at,
	}
	r.s.messages[in.ConversationID] = append(ledger, m)

	m.SenderName = r.s.userName(m.SenderID)
	return m, nil
}

func (r *MessagesRepo) ListByConversation(_ context.Context, conversationID int64) ([]message.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ledger := r.s.messages[conversationID]
	out := make([]message.Message, len(ledger))
	for i, m := range ledger {
		// names are read at query time, not snapshotted
		m.SenderName = r.s.userName(m.SenderID)
		out[i] = m
	}
	return out, nil
}
