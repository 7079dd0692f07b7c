package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisKey(t *testing.T) {
	if got := redisKey("abc"); got != "policylens:session:abc" {
		t.Fatalf("unexpected key: %s", got)
	}
}

func TestRedisRepoSurfacesTransportErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	repo := &RedisRepo{Client: client, TTL: time.Hour}

	_, err := repo.Get(context.Background(), "s-1")
	if err == nil {
		t.Fatalf("expected error from unreachable redis")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("transport failure must not look like a missing session")
	}
}
