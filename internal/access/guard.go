// Package access decides whether a caller may touch a conversation.
package access

import (
	"errors"

	"github.com/geocoder89/medtranslate/internal/actorctx"
	"github.com/geocoder89/medtranslate/internal/domain/conversation"
)

var ErrAnonymous = errors.New("authentication required")

type Decision int

const (
	Anonymous Decision = iota
	Unauthorized
	Authorized
)

func (d Decision) String() string {
	switch d {
	case Authorized:
		return "authorized"
	case Unauthorized:
		return "unauthorized"
	default:
		return "anonymous"
	}
}

// Authorize reports whether userID is the doctor or the patient of conv.
func Authorize(userID int64, conv conversation.Conversation) bool {
	return conv.HasParticipant(userID)
}

func Check(id *actorctx.Identity, conv conversation.Conversation) Decision {
	if id == nil || id.UserID <= 0 {
		return Anonymous
	}
	if !Authorize(id.UserID, conv) {
		return Unauthorized
	}
	return Authorized
}

// Require turns a decision into the error the caller should return.
// Callers load the conversation first so a missing id is reported as not found.
func Require(id *actorctx.Identity, conv conversation.Conversation) error {
	switch Check(id, conv) {
	case Authorized:
		return nil
	case Unauthorized:
		return conversation.ErrForbidden
	default:
		return ErrAnonymous
	}
}
