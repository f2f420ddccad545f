package session

import (
	"context"
	"time"

	"github.com/geocoder89/medtranslate/internal/cache"
)

// MemoryStore keeps sessions in the process. Used when no Redis address is configured;
// sessions do not survive a restart.
type MemoryStore struct {
	c   *cache.Cache
	ttl time.Duration
}

func NewMemoryStore(c *cache.Cache, ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryStore{c: c, ttl: ttl}
}

func (s *MemoryStore) Create(_ context.Context, sess Session) (string, error) {
	id, err := NewID()
	if err != nil {
		return "", err
	}
	s.c.SetWithTTL(keyPrefix+id, sess, s.ttl)
	return id, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	if !validID(id) {
		return Session{}, ErrNotFound
	}
	v, ok := s.c.Get(keyPrefix + id)
	if !ok {
		return Session{}, ErrNotFound
	}
	sess, ok := v.(Session)
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.c.Delete(keyPrefix + id)
	return nil
}
