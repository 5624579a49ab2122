package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetpotato0/ai-autopilot/config"
)

// exerciseLog runs the shared contract against a live backend.
func exerciseLog(t *testing.T, l Log[record]) {
	t.Helper()
	ctx := context.Background()

	rw, ok := l.(Rewriter[record])
	require.True(t, ok)
	require.NoError(t, rw.Rewrite(ctx, nil))

	require.NoError(t, l.Append(ctx, record{ID: "a", Score: 1}))
	require.NoError(t, l.Append(ctx, record{ID: "b", Score: 2}))

	recs, err := l.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []record{{ID: "a", Score: 1}, {ID: "b", Score: 2}}, recs)

	require.NoError(t, rw.Rewrite(ctx, []record{{ID: "c"}}))
	recs, err = l.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []record{{ID: "c"}}, recs)
}

// Note: these tests require running servers and are skipped otherwise.

func TestRedisLog(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping Redis log tests")
	}
	l, err := NewRedisLog[record](context.Background(), config.RedisConfig{Addr: addr, Key: "ai-autopilot:test"})
	if err != nil {
		t.Skipf("Failed to connect to Redis: %v", err)
	}
	defer l.Close()
	exerciseLog(t, l)
}

func TestMongoLog(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set, skipping MongoDB log tests")
	}
	l, err := NewMongoLog[record](context.Background(), config.MongoConfig{URI: uri, Database: "ai_autopilot_test", Collection: "records_test"})
	if err != nil {
		t.Skipf("Failed to connect to MongoDB: %v", err)
	}
	defer l.Close()
	exerciseLog(t, l)
}

func TestPostgresLog(t *testing.T) {
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		t.Skip("POSTGRES_HOST not set, skipping PostgreSQL log tests")
	}
	cfg := config.Default().Memory.Postgres
	cfg.Host = host
	cfg.Password = os.Getenv("POSTGRES_PASSWORD")
	cfg.Table = "autopilot_records_test"
	l, err := NewPostgresLog[record](context.Background(), cfg, "test")
	if err != nil {
		t.Skipf("Failed to connect to PostgreSQL: %v", err)
	}
	defer l.Close()
	exerciseLog(t, l)
}

func TestDecodePayloadsSkipsBadDocuments(t *testing.T) {
	out := decodePayloads[record](testLogger(), []mongoRecord{
		{Seq: 1, Payload: `{"id":"a"}`},
		{Seq: 2, Payload: `{`},
		{Seq: 3, Payload: `{"id":"b"}`},
	})
	assert.Equal(t, []record{{ID: "a"}, {ID: "b"}}, out)
}
