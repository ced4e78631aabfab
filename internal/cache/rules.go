package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/promo-engine/internal/rule"
)

const defaultRuleSetKey = "promo:rules:active"

// RuleSet caches the active rule snapshot in Redis so a pricing pass does not
// hit the database on every request. Admin writes invalidate the key; a nil
// client degrades to a no-op cache.
type RuleSet struct {
	client *redis.Client
	ttl    time.Duration
	key    string
}

// NewRuleSet constructs a rule set cache with the given TTL.
func NewRuleSet(client *redis.Client, ttl time.Duration) *RuleSet {
	return &RuleSet{client: client, ttl: ttl, key: defaultRuleSetKey}
}

// Get returns the cached snapshot and whether the key existed.
func (c *RuleSet) Get(ctx context.Context) ([]rule.Rule, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}
	var rules []rule.Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, false, err
	}
	return rules, true, nil
}

// Set stores the snapshot with the configured TTL.
func (c *RuleSet) Set(ctx context.Context, rules []rule.Rule) error {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(rules)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key, data, c.ttl).Err()
}

// Invalidate drops the snapshot. Called after rule writes.
func (c *RuleSet) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.key).Err()
}
