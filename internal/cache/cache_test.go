package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetAndGet(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(got))

	_, ok, err = c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_ValuesAreCopied(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	buf := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", buf, 0))
	buf[0] = 'z'

	got, _, _ := c.Get(ctx, "k")
	assert.Equal(t, "abc", string(got))
}

func TestMemory_Expiration(t *testing.T) {
	c := NewMemory()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	now = now.Add(30 * time.Second)
	_, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok, "entry should live until its ttl")

	now = now.Add(time.Minute)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok, "entry should expire")
	assert.Equal(t, 0, c.Len(), "expired entry is dropped on read")
}

func TestMemory_Delete(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))

	require.NoError(t, c.Delete(ctx, "a", "b", "absent"))
	assert.Equal(t, 0, c.Len())
}

func TestJSONHelpers(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, SetJSON(ctx, c, "p", payload{Name: "Apollo"}, 0))

	var out payload
	ok, err := GetJSON(ctx, c, "p", &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Apollo", out.Name)

	require.NoError(t, c.Set(ctx, "bad", []byte("{"), 0))
	_, err = GetJSON(ctx, c, "bad", &out)
	assert.Error(t, err)

	ok, err = GetJSON(ctx, Nop{}, "p", &out)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisIntegration(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set; skipping redis integration test")
	}

	ctx := context.Background()
	c, err := NewRedis(ctx, url, "tracker-test:")
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(got))

	require.NoError(t, c.Delete(ctx, "k"))
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not-a-url", "")
	assert.Error(t, err)
}
