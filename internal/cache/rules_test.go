package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/promo-engine/internal/rule"
)

func newTestCache(t *testing.T) (*RuleSet, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRuleSet(client, time.Minute), mr
}

func TestRuleSetRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if _, hit, err := c.Get(ctx); err != nil || hit {
		t.Fatalf("expected cold miss, hit=%v err=%v", hit, err)
	}

	in := []rule.Rule{
		{ID: 1, Name: "ten off", Active: true, Action: rule.ActionByFixed, DiscountAmount: 1000},
		{ID: 2, Name: "half", Active: true, CouponCode: "HALF", Action: rule.ActionByPercent, DiscountPercentBps: 5000},
	}
	if err := c.Set(ctx, in); err != nil {
		t.Fatalf("set: %v", err)
	}

	out, hit, err := c.Get(ctx)
	if err != nil || !hit {
		t.Fatalf("expected hit, hit=%v err=%v", hit, err)
	}
	if len(out) != 2 || out[0].ID != 1 || out[1].CouponCode != "HALF" {
		t.Fatalf("unexpected snapshot: %+v", out)
	}
}

func TestRuleSetExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	if err := c.Set(ctx, []rule.Rule{{ID: 1, Active: true}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, hit, err := c.Get(ctx); err != nil || hit {
		t.Fatalf("expected miss after TTL, hit=%v err=%v", hit, err)
	}
}

func TestRuleSetInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	if err := c.Set(ctx, []rule.Rule{{ID: 1, Active: true}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, hit, err := c.Get(ctx); err != nil || hit {
		t.Fatalf("expected miss after invalidate, hit=%v err=%v", hit, err)
	}
}

func TestRuleSetNilClientIsNoop(t *testing.T) {
	var c *RuleSet
	ctx := context.Background()
	if _, hit, err := c.Get(ctx); err != nil || hit {
		t.Fatalf("nil cache must miss silently, hit=%v err=%v", hit, err)
	}
	if err := c.Set(ctx, nil); err != nil {
		t.Fatalf("nil cache set must be a no-op: %v", err)
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("nil cache invalidate must be a no-op: %v", err)
	}
}
