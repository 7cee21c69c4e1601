package settings

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// newTestRedisStore connects to SATURN_TEST_REDIS_ADDR under a unique prefix
// or skips the test.
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("SATURN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SATURN_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable at %s: %v", addr, err)
	}

	prefix := fmt.Sprintf("saturn-test:%d:tenant", time.Now().UnixNano())
	t.Cleanup(func() {
		keys, _ := client.Keys(context.Background(), prefix+":*").Result()
		if len(keys) > 0 {
			client.Del(context.Background(), keys...)
		}
		client.Close()
	})
	return NewRedisStore(client, prefix, nil)
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	if got, err := store.Get(ctx, "acme"); err != nil || got != nil {
		t.Fatalf("Expected (nil, nil), got (%v, %v)", got, err)
	}

	for _, id := range []string{"globex", "acme"} {
		s := &Settings{TenantID: id, Rerank: &UpstreamOverride{Model: ptr("r-" + id)}}
		if err := store.Put(ctx, s); err != nil {
			t.Fatalf("Put(%s): %v", id, err)
		}
	}

	got, err := store.Get(ctx, "acme")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Rerank == nil || *got.Rerank.Model != "r-acme" {
		t.Errorf("Expected rerank override, got %+v", got.Rerank)
	}

	ids, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 2 || ids[0] != "acme" || ids[1] != "globex" {
		t.Errorf("Expected [acme globex], got %v", ids)
	}

	if ok, _ := store.Delete(ctx, "acme"); !ok {
		t.Error("Expected delete to report true")
	}
	if ok, _ := store.Delete(ctx, "acme"); ok {
		t.Error("Expected second delete to report false")
	}
}
