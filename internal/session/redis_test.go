package session

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}

	st := NewRedisStore(rdb, "supply-test-"+t.Name())
	t.Cleanup(func() {
		_ = st.Delete(ctx, KeyToken)
		_ = st.Delete(ctx, KeyRole)
	})

	if err := st.Set(ctx, KeyRole, "worker"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok, err := st.Get(ctx, KeyRole); err != nil || !ok || v != "worker" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}
	if err := st.Delete(ctx, KeyRole); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, err := st.Get(ctx, KeyRole); err != nil || ok {
		t.Fatalf("Get after delete = %v, %v", ok, err)
	}
}
