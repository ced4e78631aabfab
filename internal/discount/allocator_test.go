package discount

import (
	"context"
	"testing"
	"time"

	"github.com/noah-isme/promo-engine/internal/condition"
	"github.com/noah-isme/promo-engine/internal/quote"
	"github.com/noah-isme/promo-engine/internal/rule"
)

func fixedNow() time.Time {
	return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
}

func collect(t *testing.T, q *quote.Quote, rules []rule.Rule) *quote.Total {
	t.Helper()
	total := &quote.Total{}
	assignment := quote.AssignmentFor(q)
	if err := (quote.SubtotalCollector{}).Collect(context.Background(), q, assignment, total); err != nil {
		t.Fatalf("subtotal: %v", err)
	}
	c := &Collector{Rules: rules, Now: fixedNow}
	if err := c.Collect(context.Background(), q, assignment, total); err != nil {
		t.Fatalf("discount: %v", err)
	}
	return total
}

func simpleQuote(prices ...quote.Money) *quote.Quote {
	q := &quote.Quote{ShippingAddress: &quote.Address{}}
	for i, p := range prices {
		q.Items = append(q.Items, &quote.Item{
			ID:        string(rune('a' + i)),
			SKU:       "sku-" + string(rune('a'+i)),
			UnitPrice: p,
			Qty:       1,
		})
	}
	return q
}

func TestByPercent(t *testing.T) {
	q := simpleQuote(4000, 2000)
	total := collect(t, q, []rule.Rule{
		{ID: 1, Active: true, Action: rule.ActionByPercent, DiscountPercentBps: 2500},
	})
	if q.Items[0].DiscountAmount != 1000 || q.Items[1].DiscountAmount != 500 {
		t.Fatalf("unexpected item discounts: %d, %d", q.Items[0].DiscountAmount, q.Items[1].DiscountAmount)
	}
	if total.DiscountAmount != -1500 {
		t.Fatalf("expected total discount -1500, got %d", total.DiscountAmount)
	}
	if total.GrandTotal != 4500 {
		t.Fatalf("expected grand total 4500, got %d", total.GrandTotal)
	}
	if len(total.AppliedRuleIDs) != 1 || total.AppliedRuleIDs[0] != 1 {
		t.Fatalf("unexpected applied rules: %v", total.AppliedRuleIDs)
	}
}

func TestByPercentOnRemainingRowTotal(t *testing.T) {
	// The second rule sees the row already reduced by the first.
	q := simpleQuote(10000)
	collect(t, q, []rule.Rule{
		{ID: 1, Active: true, SortOrder: 0, Action: rule.ActionByFixed, DiscountAmount: 2000},
		{ID: 2, Active: true, SortOrder: 1, Action: rule.ActionByPercent, DiscountPercentBps: 5000},
	})
	// 10000 - 2000 = 8000 remaining; 50% of 8000 = 4000.
	if got := q.Items[0].DiscountAmount; got != 6000 {
		t.Fatalf("expected cumulative discount 6000, got %d", got)
	}
}

func TestByFixedMultipliesQty(t *testing.T) {
	q := &quote.Quote{Items: []*quote.Item{
		{ID: "a", SKU: "sku-a", UnitPrice: 1000, Qty: 3},
	}}
	collect(t, q, []rule.Rule{
		{ID: 1, Active: true, Action: rule.ActionByFixed, DiscountAmount: 200},
	})
	if got := q.Items[0].DiscountAmount; got != 600 {
		t.Fatalf("expected 600, got %d", got)
	}
}

func TestByFixedClampsToRowTotal(t *testing.T) {
	q := simpleQuote(500)
	total := collect(t, q, []rule.Rule{
		{ID: 1, Active: true, Action: rule.ActionByFixed, DiscountAmount: 2000},
	})
	if got := q.Items[0].DiscountAmount; got != 500 {
		t.Fatalf("expected discount clamped to 500, got %d", got)
	}
	if total.GrandTotal != 0 {
		t.Fatalf("grand total must not go negative, got %d", total.GrandTotal)
	}
}

func TestCartFixedSplitsAcrossItems(t *testing.T) {
	q := simpleQuote(3000, 1000)
	total := collect(t, q, []rule.Rule{
		{ID: 1, Active: true, Action: rule.ActionCartFixed, DiscountAmount: 1000},
	})
	if q.Items[0].DiscountAmount != 750 || q.Items[1].DiscountAmount != 250 {
		t.Fatalf("unexpected split: %d, %d", q.Items[0].DiscountAmount, q.Items[1].DiscountAmount)
	}
	if total.DiscountAmount != -1000 {
		t.Fatalf("expected -1000, got %d", total.DiscountAmount)
	}
}

func TestCartFixedHonoursActionScope(t *testing.T) {
	q := simpleQuote(3000, 1000)
	scope := condition.Attr(condition.AttrSKU, condition.OpEquals, "sku-a")
	collect(t, q, []rule.Rule{
		{ID: 1, Active: true, Action: rule.ActionCartFixed, DiscountAmount: 1000, ActionCondition: &scope},
	})
	if q.Items[0].DiscountAmount != 1000 || q.Items[1].DiscountAmount != 0 {
		t.Fatalf("expected whole amount on the qualifying line: %d, %d",
			q.Items[0].DiscountAmount, q.Items[1].DiscountAmount)
	}
}

func TestCartFixedNeverExceedsConfiguredAmount(t *testing.T) {
	// Ten equal lines round every half-cent share up; the trimmed split must
	// still reconcile to the configured amount without negative shares.
	prices := make([]quote.Money, 10)
	for i := range prices {
		prices[i] = 100
	}
	q := simpleQuote(prices...)
	total := collect(t, q, []rule.Rule{
		{ID: 1, Active: true, Action: rule.ActionCartFixed, DiscountAmount: 5},
	})
	var sum quote.Money
	for _, it := range q.Items {
		if it.DiscountAmount < 0 {
			t.Fatalf("item %s carries negative discount %d", it.ID, it.DiscountAmount)
		}
		sum += it.DiscountAmount
	}
	if sum != 5 {
		t.Fatalf("expected item discounts to sum to 5, got %d", sum)
	}
	if total.DiscountAmount != -5 {
		t.Fatalf("expected total discount -5, got %d", total.DiscountAmount)
	}
}

func TestCartFixedBundleChildrenNeverNegative(t *testing.T) {
	parent := &quote.Item{ID: "bundle", SKU: "bundle", Qty: 1}
	for i := 0; i < 10; i++ {
		parent.Children = append(parent.Children, &quote.Item{
			ID:        "child-" + string(rune('a'+i)),
			SKU:       "child-" + string(rune('a'+i)),
			UnitPrice: 100,
			Qty:       1,
		})
	}
	q := &quote.Quote{ShippingAddress: &quote.Address{}, Items: []*quote.Item{parent}}
	total := collect(t, q, []rule.Rule{
		{ID: 1, Active: true, Action: rule.ActionCartFixed, DiscountAmount: 5},
	})
	if parent.DiscountAmount != 0 {
		t.Fatalf("bundle parent must report zero, got %d", parent.DiscountAmount)
	}
	var sum quote.Money
	for _, child := range parent.Children {
		if child.DiscountAmount < 0 {
			t.Fatalf("child %s carries negative discount %d", child.ID, child.DiscountAmount)
		}
		sum += child.DiscountAmount
	}
	if sum != 5 {
		t.Fatalf("expected child discounts to sum to 5, got %d", sum)
	}
	if total.DiscountAmount != -5 {
		t.Fatalf("expected total discount -5, got %d", total.DiscountAmount)
	}
}

func TestAssignmentScopesDiscountedItems(t *testing.T) {
	q := simpleQuote(4000, 2000)
	assignment := &quote.ShippingAssignment{
		Shipping: &quote.Shipping{Address: q.ShippingAddress},
		Items:    q.Items[:1],
	}
	total := &quote.Total{}
	if err := (quote.SubtotalCollector{}).Collect(context.Background(), q, assignment, total); err != nil {
		t.Fatalf("subtotal: %v", err)
	}
	c := &Collector{Rules: []rule.Rule{
		{ID: 1, Active: true, Action: rule.ActionByPercent, DiscountPercentBps: 5000},
	}, Now: fixedNow}
	if err := c.Collect(context.Background(), q, assignment, total); err != nil {
		t.Fatalf("discount: %v", err)
	}
	if q.Items[0].DiscountAmount != 2000 {
		t.Fatalf("expected scoped item discounted 2000, got %d", q.Items[0].DiscountAmount)
	}
	if q.Items[1].DiscountAmount != 0 {
		t.Fatalf("item outside the assignment must stay untouched, got %d", q.Items[1].DiscountAmount)
	}
	if total.DiscountAmount != -2000 {
		t.Fatalf("expected total discount -2000, got %d", total.DiscountAmount)
	}
}

func TestBuyXGetY(t *testing.T) {
	cases := []struct {
		qty  int32
		want quote.Money
	}{
		{3, 100},  // one full period, one free unit
		{5, 100},  // remainder 2 does not exceed x
		{7, 200},  // two full periods
		{2, 0},    // not enough for a period and remainder within x
		{1, 0},
	}
	for _, tc := range cases {
		q := &quote.Quote{Items: []*quote.Item{
			{ID: "a", SKU: "sku-a", UnitPrice: 100, Qty: tc.qty},
		}}
		collect(t, q, []rule.Rule{
			{ID: 1, Active: true, Action: rule.ActionBuyXGetY, DiscountStep: 2, DiscountAmount: 1},
		})
		if got := q.Items[0].DiscountAmount; got != tc.want {
			t.Fatalf("qty %d: expected %d, got %d", tc.qty, tc.want, got)
		}
	}
}

func TestApplyToShipping(t *testing.T) {
	q := simpleQuote(4000)
	q.ShippingAddress.ShippingAmount = 1000
	total := collect(t, q, []rule.Rule{
		{ID: 1, Active: true, Action: rule.ActionByPercent, DiscountPercentBps: 5000, ApplyToShipping: true},
	})
	if q.ShippingAddress.ShippingDiscountAmount != 500 {
		t.Fatalf("expected shipping discount 500, got %d", q.ShippingAddress.ShippingDiscountAmount)
	}
	// 2000 off items plus 500 off shipping.
	if total.DiscountAmount != -2500 {
		t.Fatalf("expected -2500, got %d", total.DiscountAmount)
	}
}

func TestIdempotentCollect(t *testing.T) {
	q := simpleQuote(4000, 2000)
	rules := []rule.Rule{
		{ID: 1, Active: true, Action: rule.ActionByPercent, DiscountPercentBps: 2500},
		{ID: 2, Active: true, SortOrder: 1, Action: rule.ActionByFixed, DiscountAmount: 100},
	}
	first := collect(t, q, rules)
	firstItem := q.Items[0].DiscountAmount

	second := collect(t, q, rules)
	if second.DiscountAmount != first.DiscountAmount || second.GrandTotal != first.GrandTotal {
		t.Fatalf("repeat pass changed totals: %+v vs %+v", first, second)
	}
	if q.Items[0].DiscountAmount != firstItem {
		t.Fatalf("repeat pass changed item discount: %d vs %d", firstItem, q.Items[0].DiscountAmount)
	}
	if len(second.AppliedRuleIDs) != 2 {
		t.Fatalf("expected applied rules to be rebuilt, got %v", second.AppliedRuleIDs)
	}
}

func TestStopWithoutMatchesSuppressesNothing(t *testing.T) {
	q := simpleQuote(4000)
	scope := condition.Attr(condition.AttrSKU, condition.OpEquals, "sku-missing")
	total := collect(t, q, []rule.Rule{
		{ID: 1, Active: true, SortOrder: 0, StopRulesProcessing: true, Action: rule.ActionByFixed, DiscountAmount: 500, ActionCondition: &scope},
		{ID: 2, Active: true, SortOrder: 1, Action: rule.ActionByFixed, DiscountAmount: 300},
	})
	if q.Items[0].DiscountAmount != 300 {
		t.Fatalf("expected later rule to apply, got %d", q.Items[0].DiscountAmount)
	}
	if len(total.AppliedRuleIDs) != 1 || total.AppliedRuleIDs[0] != 2 {
		t.Fatalf("a rule that matched nothing must not be reported as applied: %v", total.AppliedRuleIDs)
	}
}

func TestStopHaltsOnlyMatchedItems(t *testing.T) {
	q := simpleQuote(4000, 2000)
	scopeA := condition.Attr(condition.AttrSKU, condition.OpEquals, "sku-a")
	total := collect(t, q, []rule.Rule{
		{ID: 1, Active: true, SortOrder: 0, StopRulesProcessing: true, Action: rule.ActionByFixed, DiscountAmount: 500, ActionCondition: &scopeA},
		{ID: 2, Active: true, SortOrder: 1, Action: rule.ActionByFixed, DiscountAmount: 300},
	})
	if q.Items[0].DiscountAmount != 500 {
		t.Fatalf("halted item must keep only the stopping rule's discount, got %d", q.Items[0].DiscountAmount)
	}
	if q.Items[1].DiscountAmount != 300 {
		t.Fatalf("untouched item must still collect later rules, got %d", q.Items[1].DiscountAmount)
	}
	if total.DiscountAmount != -800 {
		t.Fatalf("expected -800, got %d", total.DiscountAmount)
	}
}

func TestMisconfiguredRuleYieldsNothing(t *testing.T) {
	q := simpleQuote(4000)
	total := collect(t, q, []rule.Rule{
		{ID: 1, Active: true, Action: "teleport"},
		{ID: 2, Active: true, Action: rule.ActionByPercent}, // zero bps
	})
	if q.Items[0].DiscountAmount != 0 {
		t.Fatalf("expected no discount, got %d", q.Items[0].DiscountAmount)
	}
	if len(total.AppliedRuleIDs) != 0 {
		t.Fatalf("expected no applied rules, got %v", total.AppliedRuleIDs)
	}
}
