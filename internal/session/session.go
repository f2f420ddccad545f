package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/geocoder89/medtranslate/internal/actorctx"
)

var ErrNotFound = errors.New("session not found")

// Session is the server-side payload behind a session cookie.
type Session struct {
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type Store interface {
	Create(ctx context.Context, s Session) (string, error)
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

func FromIdentity(id actorctx.Identity) Session {
	return Session{
		UserID:    id.UserID,
		Name:      id.Name,
		Email:     id.Email,
		Role:      id.Role,
		CreatedAt: time.Now().UTC(),
	}
}

func (s Session) Identity() actorctx.Identity {
	return actorctx.Identity{
		UserID: s.UserID,
		Name:   s.Name,
		Email:  s.Email,
		Role:   s.Role,
	}
}

// NewID returns 32 random bytes, hex encoded.
func NewID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func validID(id string) bool {
	if len(id) != 64 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}
