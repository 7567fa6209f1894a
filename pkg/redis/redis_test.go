package redis

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

func newTestClient(t *testing.T) (*miniredis.Miniredis, Config) {
	t.Helper()

	mr := miniredis.RunT(t)
	return mr, Config{Addr: mr.Addr(), NoInstrumentation: true}
}

func TestNewClient_Ping_Set_Get(t *testing.T) {
	_, cfg := newTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rdb := NewClient(cfg, logger)
	t.Cleanup(func() { _ = rdb.Close() })

	err := Ping(ctx, rdb)

	require.NoErrorf(t, err, "Ping(ctx, rdb) returned an error: %v", err)

	key := "cb:test:foo"

	err = rdb.Set(ctx, key, "bar", 5*time.Second).Err()

	require.NoErrorf(t, err, `rdb.Set(ctx, key, "bar", 5*time.Second).Err() return an error: %v`, err)

	result, err := rdb.Get(ctx, key).Result()
	require.NoError(t, err)

	expected := "bar"

	assert.Equalf(t, expected, result, "Expected: %q; Got: %q", expected, result)
}

func TestNewClient_NilLogger(t *testing.T) {
	_, cfg := newTestClient(t)

	rdb := NewClient(cfg, nil)
	t.Cleanup(func() { _ = rdb.Close() })

	assert.NotNil(t, rdb, "NewClient with a nil logger should not be nil")
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	mr, cfg := newTestClient(t)

	rdb := NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = rdb.Close() })

	assert.Equal(t, StatusDisabled, Status(ctx, nil))
	assert.Equal(t, StatusUp, Status(ctx, rdb))

	mr.Close()
	assert.Equal(t, StatusDown, Status(ctx, rdb))
}
