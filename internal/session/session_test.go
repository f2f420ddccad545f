package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/medtranslate/internal/actorctx"
	"github.com/geocoder89/medtranslate/internal/cache"
	"github.com/geocoder89/medtranslate/internal/redisclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	a, err := NewID()
	require.NoError(t, err)
	b, err := NewID()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.True(t, validID(a))
	assert.False(t, validID("not-hex"))
}

func TestIdentityRoundTrip(t *testing.T) {
	id := actorctx.Identity{UserID: 4, Name: "Dr. A", Email: "a@x.com", Role: "doctor"}
	assert.Equal(t, id, FromIdentity(id).Identity())
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	id, err := store.Create(ctx, Session{UserID: 7, Name: "P", Email: "p@x.com", Role: "patient"})
	require.NoError(t, err)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, "patient", got.Role)

	require.NoError(t, store.Delete(ctx, id))

	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(ctx, "garbage")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(cache.New(time.Minute), time.Minute))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := redisclient.Connect(ctx, redisclient.Config{Addr: addr})
	require.NoError(t, err)
	defer client.Close()

	exerciseStore(t, NewRedisStore(client.Raw(), time.Minute))
}
