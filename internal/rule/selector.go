package rule

import (
	"sort"
	"time"

	"github.com/noah-isme/promo-engine/internal/condition"
	"github.com/noah-isme/promo-engine/internal/quote"
)

// Select filters the active rules applicable to the quote and orders them for
// application. The output order is the application order: later rules see
// totals already reduced by earlier ones. Ordering is by sort order ascending
// with ties broken by rule id ascending, so repeated invocations are stable.
func Select(q *quote.Quote, rules []Rule, now time.Time) []Rule {
	if q == nil {
		return nil
	}
	cartCtx := condition.CartContextOf(q)
	selected := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if !r.Active {
			continue
		}
		if !r.CouponMatches(q.CouponCode) {
			continue
		}
		if !r.AppliesToGroup(q.CustomerGroupID) {
			continue
		}
		if !r.InWindow(now) {
			continue
		}
		if !condition.Evaluate(r.Condition, cartCtx) {
			continue
		}
		selected = append(selected, r)
	}
	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].SortOrder != selected[j].SortOrder {
			return selected[i].SortOrder < selected[j].SortOrder
		}
		return selected[i].ID < selected[j].ID
	})
	return selected
}
