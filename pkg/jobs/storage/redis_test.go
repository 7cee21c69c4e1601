package storage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"mercator-hq/saturn/pkg/jobs"
)

// newTestRedis connects to SATURN_TEST_REDIS_ADDR under a unique prefix or
// skips the test.
func newTestRedis(t *testing.T) *Redis {
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

	prefix := fmt.Sprintf("saturn-test:%d", time.Now().UnixNano())
	r := NewRedis(client, RedisConfig{Prefix: prefix, IndexTTL: time.Hour})
	t.Cleanup(func() {
		keys, _ := client.Keys(context.Background(), prefix+":*").Result()
		if len(keys) > 0 {
			client.Del(context.Background(), keys...)
		}
		r.Close()
	})
	return r
}

func TestRedis_Backend(t *testing.T) {
	runBackendSuite(t, newTestRedis(t))
}

func TestRedis_ListPrunesExpired(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()

	if err := r.PutJob(ctx, testJob("tenant-a", "gone", jobs.StatusCompleted), time.Second); err != nil {
		t.Fatalf("PutJob failed: %v", err)
	}
	if err := r.PutJob(ctx, testJob("tenant-a", "kept", jobs.StatusPending), time.Hour); err != nil {
		t.Fatalf("PutJob failed: %v", err)
	}
	time.Sleep(1500 * time.Millisecond)

	list, err := r.ListJobs(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != "kept" {
		t.Errorf("Expected only kept job, got %d jobs", len(list))
	}

	members, err := r.client.SMembers(ctx, r.jobIndexKey("tenant-a")).Result()
	if err != nil {
		t.Fatalf("SMembers failed: %v", err)
	}
	if len(members) != 1 {
		t.Errorf("Expected stale index member pruned, got %v", members)
	}
}
