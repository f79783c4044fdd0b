package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestTokenBucket(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	bucket := NewTokenBucket(client, 2, 1, time.Minute)

	allowed, _, err := bucket.Allow(ctx, "user-1")
	if err != nil || !allowed {
		t.Fatalf("expected first token allowed got allowed=%v err=%v", allowed, err)
	}
	allowed, _, _ = bucket.Allow(ctx, "user-1")
	if !allowed {
		t.Fatalf("expected second token allowed")
	}
	allowed, _, _ = bucket.Allow(ctx, "user-1")
	if allowed {
		t.Fatalf("expected third token to be rejected")
	}

	// Limits are per user, not global.
	allowed, _, _ = bucket.Allow(ctx, "user-2")
	if !allowed {
		t.Fatalf("expected a fresh bucket for a different user")
	}

	// Note: Cannot test refill with miniredis.FastForward() because the Lua script
	// receives time from Go's time.Now(), not Redis's internal clock.
}

func TestTokenBucketWeightedCost(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	bucket := NewTokenBucket(client, 5, 0, time.Minute)

	allowed, remaining, err := bucket.AllowN(ctx, "user-1", 3)
	if err != nil || !allowed {
		t.Fatalf("expected charge of 3 allowed, got allowed=%v err=%v", allowed, err)
	}
	if remaining != 2 {
		t.Fatalf("remaining = %v, want 2", remaining)
	}

	// An unaffordable charge drains nothing.
	allowed, remaining, err = bucket.AllowN(ctx, "user-1", 3)
	if err != nil || allowed {
		t.Fatalf("expected charge of 3 rejected, got allowed=%v err=%v", allowed, err)
	}
	if remaining != 2 {
		t.Fatalf("rejected charge must not drain tokens, remaining = %v", remaining)
	}

	if allowed, _, _ = bucket.AllowN(ctx, "user-1", 2); !allowed {
		t.Fatal("expected the untouched balance to cover a charge of 2")
	}
}

func TestMemoryBucket(t *testing.T) {
	ctx := context.Background()
	bucket := NewMemoryBucket(2, 1)
	base := time.Now()
	bucket.now = func() time.Time { return base }

	for i := 0; i < 2; i++ {
		allowed, _, err := bucket.Allow(ctx, "user-1")
		if err != nil || !allowed {
			t.Fatalf("request %d: allowed=%v err=%v", i, allowed, err)
		}
	}
	if allowed, _, _ := bucket.Allow(ctx, "user-1"); allowed {
		t.Fatal("expected empty bucket to reject")
	}
	if allowed, _, _ := bucket.Allow(ctx, "user-2"); !allowed {
		t.Fatal("expected a fresh bucket for a different user")
	}

	base = base.Add(1500 * time.Millisecond)
	if allowed, _, _ := bucket.Allow(ctx, "user-1"); !allowed {
		t.Fatal("expected refill after waiting")
	}
}

func TestMemoryBucketWeightedCost(t *testing.T) {
	ctx := context.Background()
	bucket := NewMemoryBucket(5, 0)
	base := time.Now()
	bucket.now = func() time.Time { return base }

	allowed, remaining, err := bucket.AllowN(ctx, "user-1", 3)
	if err != nil || !allowed || remaining != 2 {
		t.Fatalf("charge of 3: allowed=%v remaining=%v err=%v", allowed, remaining, err)
	}
	allowed, remaining, _ = bucket.AllowN(ctx, "user-1", 3)
	if allowed || remaining != 2 {
		t.Fatalf("rejected charge must not drain tokens: allowed=%v remaining=%v", allowed, remaining)
	}
	if allowed, _, _ := bucket.AllowN(ctx, "user-1", 2); !allowed {
		t.Fatal("expected the untouched balance to cover a charge of 2")
	}
}
