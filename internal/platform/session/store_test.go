package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "leukemia-care-portal/internal/platform/redis"
)

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "short", []byte("a"), time.Minute))
	require.NoError(t, s.Set(ctx, "forever", []byte("b"), 0))

	v, err := s.Get(ctx, "short")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), v)

	now = now.Add(time.Minute)
	_, err = s.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrNotFound)

	v, err = s.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), v)

	require.NoError(t, s.Delete(ctx, "forever"))
	_, err = s.Get(ctx, "forever")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var out []string
	ok, err := GetJSON(ctx, s, "missing", &out)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetJSON(ctx, s, "list", []string{"x", "y"}, 0))
	ok, err = GetJSON(ctx, s, "list", &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, out)

	require.NoError(t, s.Set(ctx, "broken", []byte("{"), 0))
	_, err = GetJSON(ctx, s, "broken", &out)
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()
	client, err := redisclient.NewClient(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	s := NewRedisStore(client, "portal-test:")
	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}
