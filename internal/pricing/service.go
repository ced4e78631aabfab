package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/promo-engine/internal/cache"
	"github.com/noah-isme/promo-engine/internal/discount"
	"github.com/noah-isme/promo-engine/internal/lock"
	"github.com/noah-isme/promo-engine/internal/obs"
	"github.com/noah-isme/promo-engine/internal/quote"
	"github.com/noah-isme/promo-engine/internal/rule"
)

// snapshotLockKey guards the active rule snapshot rebuild so a cold cache does
// not stampede the database across instances.
const snapshotLockKey = "promo:rules:rebuild"

// ErrInvalidInput is returned when the submitted quote payload is unusable.
var ErrInvalidInput = errors.New("invalid input")

// RuleSource loads the active rule snapshot for a pricing pass. Failures are
// fatal for the pass: a broken rule store means pricing cannot be trusted.
type RuleSource interface {
	ListActive(ctx context.Context, now time.Time) ([]rule.Rule, error)
}

// Service runs the total collection pipeline for ad-hoc quote pricing.
// Currency is reported back on results; amounts are minor units of it.
type Service struct {
	Rules    RuleSource
	Cache    *cache.RuleSet
	Lock     *lock.Locker
	Currency string
	Now      func() time.Time
}

// ItemResult reports the priced state of one line.
type ItemResult struct {
	ID             string       `json:"id"`
	SKU            string       `json:"sku"`
	RowTotal       quote.Money  `json:"rowTotal"`
	DiscountAmount quote.Money  `json:"discountAmount"`
	Children       []ItemResult `json:"children,omitempty"`
}

// Result is the outcome of one pricing pass.
type Result struct {
	QuoteID          uuid.UUID    `json:"quoteId"`
	Currency         string       `json:"currency,omitempty"`
	Subtotal         quote.Money  `json:"subtotal"`
	DiscountAmount   quote.Money  `json:"discountAmount"`
	ShippingDiscount quote.Money  `json:"shippingDiscount"`
	GrandTotal       quote.Money  `json:"grandTotal"`
	AppliedRuleIDs   []int64      `json:"appliedRuleIds,omitempty"`
	Items            []ItemResult `json:"items"`
}

// PriceQuote loads the active rules and runs the collector pipeline over the
// quote: subtotal first, then discounts. The quote's items and addresses are
// mutated in place; the returned Result is a read model over that state.
func (s *Service) PriceQuote(ctx context.Context, q *quote.Quote) (Result, error) {
	if s == nil || s.Rules == nil {
		return Result{}, errors.New("pricing service not configured")
	}
	if q == nil || len(q.Items) == 0 {
		return Result{}, fmt.Errorf("quote has no items: %w", ErrInvalidInput)
	}
	start := time.Now()
	rules, err := s.activeRules(ctx)
	if err != nil {
		return Result{}, err
	}
	if q.ShippingAddress == nil {
		q.ShippingAddress = &quote.Address{}
	}
	assignment := quote.AssignmentFor(q)
	total := &quote.Total{}
	pipeline := quote.Pipeline{Collectors: []quote.Collector{
		quote.SubtotalCollector{},
		&discount.Collector{Rules: rules, Now: s.Now},
	}}
	if err := pipeline.Run(ctx, q, assignment, total); err != nil {
		return Result{}, err
	}
	if obs.RulesAppliedTotal != nil {
		obs.RulesAppliedTotal.Add(float64(len(total.AppliedRuleIDs)))
	}
	if obs.PricingPassDuration != nil {
		obs.PricingPassDuration.Observe(obs.DurationMillis(time.Since(start)))
	}
	return buildResult(q, total, s.Currency), nil
}

func (s *Service) activeRules(ctx context.Context) ([]rule.Rule, error) {
	if rules, hit, err := s.Cache.Get(ctx); err == nil && hit {
		observeSnapshot("cache")
		return rules, nil
	}
	var out []rule.Rule
	rebuild := func(ctx context.Context) error {
		// Another instance may have rebuilt while we waited on the lock.
		if rules, hit, err := s.Cache.Get(ctx); err == nil && hit {
			observeSnapshot("cache")
			out = rules
			return nil
		}
		rules, err := s.Rules.ListActive(ctx, s.now())
		if err != nil {
			return fmt.Errorf("load active rules: %w", err)
		}
		_ = s.Cache.Set(ctx, rules)
		observeSnapshot("db")
		out = rules
		return nil
	}
	if s.Lock != nil {
		if err := s.Lock.WithLock(ctx, snapshotLockKey, 5*time.Second, rebuild); err != nil {
			return nil, err
		}
		return out, nil
	}
	if err := rebuild(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func observeSnapshot(source string) {
	if obs.RuleSnapshotTotal != nil {
		obs.RuleSnapshotTotal.WithLabelValues(source).Inc()
	}
}

func buildResult(q *quote.Quote, total *quote.Total, currency string) Result {
	res := Result{
		QuoteID:        q.ID,
		Currency:       currency,
		Subtotal:       total.Subtotal,
		DiscountAmount: total.DiscountAmount,
		GrandTotal:     total.GrandTotal,
		AppliedRuleIDs: total.AppliedRuleIDs,
	}
	if q.ShippingAddress != nil {
		res.ShippingDiscount = q.ShippingAddress.ShippingDiscountAmount
	}
	res.Items = make([]ItemResult, 0, len(q.Items))
	for _, it := range q.Items {
		res.Items = append(res.Items, itemResult(it))
	}
	return res
}

func itemResult(it *quote.Item) ItemResult {
	out := ItemResult{
		ID:             it.ID,
		SKU:            it.SKU,
		RowTotal:       it.RowTotal,
		DiscountAmount: it.DiscountAmount,
	}
	for _, child := range it.Children {
		out.Children = append(out.Children, itemResult(child))
	}
	return out
}
