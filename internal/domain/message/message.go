package message

import "time"

const DefaultLanguage = "English"

type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	SenderRole     string    `json:"sender_role"`
	SenderName     string    `json:"sender_name,omitempty"`
	OriginalText   string    `json:"original_text"`
	TranslatedText *string   `json:"translated_text"`
	Language       string    `json:"language"`
	CreatedAt      time.Time `json:"created_at"`
}

// AppendInput is a fully translated message ready for the ledger.
// At is the sender's clock; storage never lets it move a conversation backwards.
type AppendInput struct {
	ConversationID int64
	SenderID       int64
	SenderRole     string
	OriginalText   string
	TranslatedText string
	Language       string
	At             time.Time
}

type SendRequest struct {
	ConversationID int64  `json:"conversation_id" binding:"required,min=1"`
	Text           string `json:"text" binding:"required,max=4000"`
	TargetLanguage string `json:"target_language" binding:"omitempty,max=64"`
}

// Translation returns the translated text or falls back to the original.
func (m Message) Translation() string {
	if m.TranslatedText != nil && *m.TranslatedText != "" {
		return *m.TranslatedText
	}
	return m.OriginalText
}
