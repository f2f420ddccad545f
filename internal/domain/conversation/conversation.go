package conversation

import (
	"errors"
	"time"
)

type Conversation struct {
	ID        int64     `json:"id"`
	DoctorID  int64     `json:"doctor_id"`
	PatientID int64     `json:"patient_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Details is a conversation joined with both participants' display names.
type Details struct {
	Conversation
	DoctorName  string `json:"doctor_name"`
	PatientName string `json:"patient_name"`
}

// Summary is one row of a participant's conversation list.
type Summary struct {
	ID              int64      `json:"id"`
	CreatedAt       time.Time  `json:"created_at"`
	CounterpartID   int64      `json:"counterpart_id"`
	CounterpartName string     `json:"counterpart_name"`
	CounterpartRole string     `json:"counterpart_role"`
	MessageCount    int        `json:"message_count"`
	LastMessageAt   *time.Time `json:"last_message_at"`
}

var (
	ErrNotFound  = errors.New("conversation not found")
	ErrForbidden = errors.New("not a participant of this conversation")
)

// CreateRequest carries whichever counterpart id matches the caller's role.
type CreateRequest struct {
	DoctorID  int64 `json:"doctor_id" binding:"omitempty,min=1"`
	PatientID int64 `json:"patient_id" binding:"omitempty,min=1"`
}

func (c Conversation) HasParticipant(userID int64) bool {
	return userID != 0 && (userID == c.DoctorID || userID == c.PatientID)
}
