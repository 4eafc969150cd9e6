package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Step  string `json:"step"`
	Price int64  `json:"price"`
}

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r := New(Config{Addr: mr.Addr()}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func TestJSONRoundTripAndDelete(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Ping(ctx))
	require.NoError(t, r.SetJSON(ctx, "k", entry{Step: "promo", Price: 450000}, time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("k"))

	var got entry
	ok, err := r.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entry{Step: "promo", Price: 450000}, got)

	require.NoError(t, r.Delete(ctx, "k", "missing"))
	ok, err = r.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Delete(ctx))
}

func TestGetJSONErrors(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("bad", "{not json"))
	var got entry
	_, err := r.GetJSON(ctx, "bad", &got)
	assert.Error(t, err)

	mr.Close()
	_, err = r.GetJSON(ctx, "k", &got)
	assert.Error(t, err)
	assert.Error(t, r.Ping(ctx))
}

func TestKeyPrefix(t *testing.T) {
	r, _ := newTestRedis(t)
	assert.Equal(t, "aibot:session:42", r.Key("session", "42"))

	custom := New(Config{Addr: "localhost:0", KeyPrefix: "staging:"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = custom.Close() })
	assert.Equal(t, "staging:translation:ab", custom.Key("translation", "ab"))
}

func TestTouchJSONRestartsTTL(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()
	key := r.Key("session", "1")

	require.NoError(t, r.SetJSON(ctx, key, entry{Step: "select"}, time.Minute))
	mr.FastForward(50 * time.Second)

	var got entry
	ok, err := r.TouchJSON(ctx, key, &got, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "select", got.Step)
	assert.Equal(t, time.Minute, mr.TTL(key))

	ok, err = r.TouchJSON(ctx, r.Key("session", "2"), &got, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}
