package rule

import (
	"testing"
	"time"

	"github.com/noah-isme/promo-engine/internal/condition"
	"github.com/noah-isme/promo-engine/internal/quote"
)

func testQuote() *quote.Quote {
	q := &quote.Quote{
		CouponCode:      "SAVE10",
		CustomerGroupID: 2,
		Items: []*quote.Item{
			{ID: "a", SKU: "sku-a", UnitPrice: 4000, Qty: 1, RowTotal: 4000},
			{ID: "b", SKU: "sku-b", UnitPrice: 1000, Qty: 2, RowTotal: 2000},
		},
	}
	return q
}

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestSelectFilters(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	rules := []Rule{
		{ID: 1, Active: true},
		{ID: 2, Active: false},
		{ID: 3, Active: true, CouponCode: "OTHER"},
		{ID: 4, Active: true, CouponCode: "save10"},
		{ID: 5, Active: true, CustomerGroupIDs: []int64{7}},
		{ID: 6, Active: true, CustomerGroupIDs: []int64{1, 2}},
		{ID: 7, Active: true, FromDate: ts("2026-07-01T00:00:00Z")},
		{ID: 8, Active: true, ToDate: ts("2026-06-01T00:00:00Z")},
		{ID: 9, Active: true, FromDate: ts("2026-06-01T00:00:00Z"), ToDate: ts("2026-07-01T00:00:00Z")},
		{ID: 10, Active: true, Condition: condition.Attr(condition.AttrSubtotal, condition.OpGreaterEqual, "10000")},
		{ID: 11, Active: true, Condition: condition.Attr(condition.AttrSubtotal, condition.OpGreaterEqual, "5000")},
	}

	got := Select(testQuote(), rules, now)
	want := []int64{1, 4, 6, 9, 11}
	if len(got) != len(want) {
		t.Fatalf("expected %d rules, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: expected rule %d, got %d", i, id, got[i].ID)
		}
	}
}

func TestSelectCouponIsCaseInsensitive(t *testing.T) {
	q := testQuote()
	q.CouponCode = "  Save10 "
	rules := []Rule{{ID: 1, Active: true, CouponCode: "SAVE10"}}
	if got := Select(q, rules, time.Now()); len(got) != 1 {
		t.Fatalf("expected coupon to match ignoring case and spacing, got %d rules", len(got))
	}
}

func TestSelectOrdering(t *testing.T) {
	rules := []Rule{
		{ID: 1, Active: true, SortOrder: 2},
		{ID: 3, Active: true, SortOrder: 1},
		{ID: 2, Active: true, SortOrder: 1},
	}
	q := testQuote()
	q.CouponCode = ""
	got := Select(q, rules, time.Now())
	want := []int64{2, 3, 1}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: expected rule %d, got %d", i, id, got[i].ID)
		}
	}

	// Same input must yield the same order on every invocation.
	again := Select(q, rules, time.Now())
	for i := range got {
		if got[i].ID != again[i].ID {
			t.Fatal("selection order is not stable")
		}
	}
}

func TestSelectFoundInCartCondition(t *testing.T) {
	q := testQuote()
	q.CouponCode = ""
	rules := []Rule{
		{ID: 1, Active: true, Condition: condition.FoundInCart(
			condition.Attr(condition.AttrSKU, condition.OpEquals, "sku-b"),
			condition.Attr(condition.AttrQty, condition.OpGreaterEqual, "2"),
		)},
		{ID: 2, Active: true, Condition: condition.FoundInCart(
			condition.Attr(condition.AttrSKU, condition.OpEquals, "sku-missing"),
		)},
	}
	got := Select(q, rules, time.Now())
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected only the matching found-in-cart rule, got %v", got)
	}
}
