// Package conversations owns the doctor/patient conversation registry and its
// append-only message ledger. Every conversation-scoped operation loads the
// conversation first and then applies the participant check, so a missing id
// is always reported as not found before a foreign caller is refused.
package conversations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/medtranslate/internal/access"
	"github.com/geocoder89/medtranslate/internal/actorctx"
	"github.com/geocoder89/medtranslate/internal/domain"
	"github.com/geocoder89/medtranslate/internal/domain/conversation"
	"github.com/geocoder89/medtranslate/internal/domain/message"
	"github.com/geocoder89/medtranslate/internal/domain/user"
	"github.com/geocoder89/medtranslate/internal/gateway"
)

type ConversationStore interface {
	FindOrCreate(ctx context.Context, doctorID, patientID int64) (conversation.Conversation, bool, error)
	GetByID(ctx context.Context, id int64) (conversation.Conversation, error)
	GetDetails(ctx context.Context, id int64) (conversation.Details, error)
	ListForUser(ctx context.Context, userID int64, role string) ([]conversation.Summary, error)
}

type MessageStore interface {
	Append(ctx context.Context, in message.AppendInput) (message.Message, error)
	ListByConversation(ctx context.Context, conversationID int64) ([]message.Message, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id int64) (user.User, error)
}

// Translator is the language-model side of the service.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
	Summarize(ctx context.Context, msgs []message.Message) (string, error)
}

type SendInput struct {
	ConversationID int64
	Text           string
	TargetLanguage string
}

type Service struct {
	conversations ConversationStore
	messages      MessageStore
	users         UserLookup
	translator    Translator
	now           func() time.Time
}

func NewService(conversations ConversationStore, messages MessageStore, users UserLookup, translator Translator) *Service {
	return &Service{
		conversations: conversations,
		messages:      messages,
		users:         users,
		translator:    translator,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// FindOrCreate returns the conversation between the caller and counterpartID,
// creating it on first contact. A patient names a doctor and a doctor names a patient.
func (s *Service) FindOrCreate(ctx context.Context, id actorctx.Identity, counterpartID int64) (conversation.Conversation, bool, error) {
	if id.UserID <= 0 {
		return conversation.Conversation{}, false, access.ErrAnonymous
	}
	if !user.ValidRole(id.Role) {
		return conversation.Conversation{}, false, domain.NewValidationError("role", "caller has no conversation role")
	}

	want := user.Counterpart(id.Role)
	field := want + "_id"

	if counterpartID <= 0 {
		return conversation.Conversation{}, false, domain.NewValidationError(field, "is required")
	}

	other, err := s.users.GetByID(ctx, counterpartID)
	if err != nil {
		return conversation.Conversation{}, false, err
	}
	if other.Role != want {
		return conversation.Conversation{}, false, domain.NewValidationError(field, "must reference a "+want)
	}

	doctorID, patientID := id.UserID, other.ID
	if id.Role == user.RolePatient {
		doctorID, patientID = other.ID, id.UserID
	}

	conv, created, err := s.conversations.FindOrCreate(ctx, doctorID, patientID)
	if err != nil {
		return conversation.Conversation{}, false, fmt.Errorf("find or create conversation: %w", err)
	}
	return conv, created, nil
}

func (s *Service) Get(ctx context.Context, id actorctx.Identity, conversationID int64) (conversation.Details, error) {
	d, err := s.conversations.GetDetails(ctx, conversationID)
	if err != nil {
		return conversation.Details{}, err
	}
	if err := access.Require(&id, d.Conversation); err != nil {
		return conversation.Details{}, err
	}
	return d, nil
}

func (s *Service) ListForUser(ctx context.Context, id actorctx.Identity) ([]conversation.Summary, error) {
	if id.UserID <= 0 {
		return nil, access.ErrAnonymous
	}
	return s.conversations.ListForUser(ctx, id.UserID, id.Role)
}

// Send translates the text and appends it to the ledger. Nothing is stored when
// translation fails.
func (s *Service) Send(ctx context.Context, id actorctx.Identity, in SendInput) (message.Message, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return message.Message{}, domain.NewValidationError("text", "is required")
	}

	lang := strings.TrimSpace(in.TargetLanguage)
	if lang == "" {
		lang = message.DefaultLanguage
	}

	conv, err := s.authorized(ctx, id, in.ConversationID)
	if err != nil {
		return message.Message{}, err
	}

	translated, err := s.translator.Translate(ctx, text, lang)
	if err != nil {
		return message.Message{}, err
	}

	m, err := s.messages.Append(ctx, message.AppendInput{
		ConversationID: conv.ID,
		SenderID:       id.UserID,
		SenderRole:     id.Role,
		OriginalText:   text,
		TranslatedText: translated,
		Language:       lang,
		At:             s.now(),
	})
	if err != nil {
		return message.Message{}, err
	}

	if m.SenderName == "" {
		m.SenderName = id.Name
	}
	return m, nil
}

func (s *Service) Messages(ctx context.Context, id actorctx.Identity, conversationID int64) ([]message.Message, error) {
	if _, err := s.authorized(ctx, id, conversationID); err != nil {
		return nil, err
	}
	return s.messages.ListByConversation(ctx, conversationID)
}

// Summary re-reads the full ledger and asks the model to summarize it.
func (s *Service) Summary(ctx context.Context, id actorctx.Identity, conversationID int64) (string, error) {
	msgs, err := s.Messages(ctx, id, conversationID)
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return "", gateway.ErrEmptyConversation
	}
	return s.translator.Summarize(ctx, msgs)
}

func (s *Service) authorized(ctx context.Context, id actorctx.Identity, conversationID int64) (conversation.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if err := access.Require(&id, conv); err != nil {
		return conversation.Conversation{}, err
	}
	return conv, nil
}
