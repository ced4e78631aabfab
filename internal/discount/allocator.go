package discount

import (
	"context"
	"time"

	"github.com/noah-isme/promo-engine/internal/quote"
	"github.com/noah-isme/promo-engine/internal/rule"
)

// Collector is the discount slot in the total collection pipeline. It selects
// the applicable rules for the quote, applies them in priority order and
// accumulates the results into the address and pass totals. It assumes the
// subtotal collector already ran in the same pass.
type Collector struct {
	Rules []rule.Rule
	Now   func() time.Time
}

// Collect implements quote.Collector. Item discounts and address totals are
// reset up front, so collecting the same quote twice yields identical
// amounts.
func (c *Collector) Collect(_ context.Context, q *quote.Quote, assignment *quote.ShippingAssignment, total *quote.Total) error {
	if c == nil || q == nil || total == nil {
		return nil
	}
	address := addressFor(q, assignment)
	items := itemsFor(q, assignment)
	reset(items, address, total)

	candidates := rule.Select(q, c.Rules, c.now())
	halted := make(map[*quote.Item]struct{})
	for _, r := range candidates {
		matched, applied := c.apply(items, r, address, halted)
		if len(matched) == 0 {
			continue
		}
		if applied > 0 {
			total.AppliedRuleIDs = append(total.AppliedRuleIDs, r.ID)
		}
		// Stop-further-rules suppresses later rules only for the lines this
		// rule matched; untouched lines keep collecting discounts.
		if r.StopRulesProcessing {
			for _, it := range matched {
				halted[it] = struct{}{}
				for _, child := range it.Children {
					halted[child] = struct{}{}
				}
			}
		}
	}

	aggregate(items, address, total)
	return nil
}

// itemsFor scopes the pass to the assignment's item set when one is present,
// mirroring the subtotal collector.
func itemsFor(q *quote.Quote, assignment *quote.ShippingAssignment) []*quote.Item {
	if assignment != nil && len(assignment.Items) > 0 {
		return assignment.Items
	}
	return q.Items
}

func (c *Collector) now() time.Time {
	if c != nil && c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// apply runs one rule over the scoped item set, returning the lines it
// matched and the total amount it actually took off. A bundle parent matched
// by the rule's action scope represents the whole bundle; otherwise its
// children are considered individually.
func (c *Collector) apply(items []*quote.Item, r rule.Rule, address *quote.Address, halted map[*quote.Item]struct{}) ([]*quote.Item, quote.Money) {
	qualifying := qualifyingItems(items, r, halted)
	if len(qualifying) == 0 {
		return nil, 0
	}
	var applied quote.Money
	if r.Action == rule.ActionCartFixed {
		applied = applyCartFixed(r, qualifying)
	} else {
		for _, it := range qualifying {
			applied += applyToItem(r, it, computeAmount(r, it))
		}
	}
	if r.ApplyToShipping {
		applied += applyToShipping(r, address)
	}
	return qualifying, applied
}

func qualifyingItems(items []*quote.Item, r rule.Rule, halted map[*quote.Item]struct{}) []*quote.Item {
	var out []*quote.Item
	for _, it := range items {
		if _, stop := halted[it]; stop {
			continue
		}
		if !it.IsBundleParent() {
			if r.QualifiesItem(it) {
				out = append(out, it)
			}
			continue
		}
		if r.QualifiesItem(it) {
			out = append(out, it)
			continue
		}
		for _, child := range it.Children {
			if _, stop := halted[child]; stop {
				continue
			}
			if r.QualifiesItem(child) {
				out = append(out, child)
			}
		}
	}
	return out
}

// applyCartFixed splits the rule amount once across the qualifying set,
// weighted by row total share, and clamps each share on application.
func applyCartFixed(r rule.Rule, items []*quote.Item) quote.Money {
	weights := make([]quote.Money, len(items))
	for i, it := range items {
		weights[i] = it.RowTotal
	}
	shares := Split(r.DiscountAmount, weights)
	var applied quote.Money
	for i, it := range items {
		applied += applyToItem(r, it, shares[i])
	}
	return applied
}

// applyToItem clamps and records the discount on a line, returning the amount
// actually taken. A bundle parent is a pass-through container: its discount is
// pushed down to the children proportionally to their contribution and its own
// reported amount stays zero.
func applyToItem(r rule.Rule, it *quote.Item, amount quote.Money) quote.Money {
	remaining := remainingOf(it)
	if amount > remaining {
		amount = remaining
	}
	if amount <= 0 {
		return 0
	}
	if !it.IsBundleParent() {
		it.DiscountAmount += amount
		return amount
	}
	weights := make([]quote.Money, len(it.Children))
	for i, child := range it.Children {
		weights[i] = child.RowTotal
	}
	shares := Split(amount, weights)
	var applied quote.Money
	for i, child := range it.Children {
		share := shares[i]
		if rem := child.RemainingDiscountable(); share > rem {
			share = rem
		}
		child.DiscountAmount += share
		applied += share
	}
	return applied
}

// computeAmount returns the raw (unclamped) discount for a single line under
// the rule's action. Unknown or misconfigured actions yield zero, so a broken
// rule never aborts the pass.
func computeAmount(r rule.Rule, it *quote.Item) quote.Money {
	switch r.Action {
	case rule.ActionByPercent:
		if r.DiscountPercentBps <= 0 {
			return 0
		}
		return roundHalfUp(remainingOf(it)*quote.Money(r.DiscountPercentBps), 10000)
	case rule.ActionByFixed:
		if r.DiscountAmount <= 0 {
			return 0
		}
		return r.DiscountAmount * quote.Money(it.Qty)
	case rule.ActionBuyXGetY:
		x := quote.Money(r.DiscountStep)
		y := r.DiscountAmount
		if x <= 0 || y <= 0 || it.Qty <= 0 {
			return 0
		}
		qty := quote.Money(it.Qty)
		period := x + y
		free := (qty / period) * y
		if rem := qty % period; rem > x {
			free += rem - x
		}
		return free * unitPriceOf(it)
	default:
		return 0
	}
}

func applyToShipping(r rule.Rule, address *quote.Address) quote.Money {
	if address == nil {
		return 0
	}
	remaining := address.ShippingAmount - address.ShippingDiscountAmount
	if remaining <= 0 {
		return 0
	}
	var amount quote.Money
	switch r.Action {
	case rule.ActionByPercent:
		amount = roundHalfUp(remaining*quote.Money(r.DiscountPercentBps), 10000)
	case rule.ActionByFixed, rule.ActionCartFixed:
		amount = r.DiscountAmount
	}
	if amount > remaining {
		amount = remaining
	}
	if amount <= 0 {
		return 0
	}
	address.ShippingDiscountAmount += amount
	return amount
}

// remainingOf is RemainingDiscountable generalised to bundle parents, whose
// applied discount lives on their children.
func remainingOf(it *quote.Item) quote.Money {
	if !it.IsBundleParent() {
		return it.RemainingDiscountable()
	}
	var applied quote.Money
	for _, child := range it.Children {
		applied += child.DiscountAmount
	}
	rem := it.RowTotal - applied
	if rem < 0 {
		return 0
	}
	return rem
}

func unitPriceOf(it *quote.Item) quote.Money {
	if !it.IsBundleParent() {
		return it.UnitPrice
	}
	if it.Qty <= 0 {
		return 0
	}
	return it.RowTotal / quote.Money(it.Qty)
}

func addressFor(q *quote.Quote, assignment *quote.ShippingAssignment) *quote.Address {
	if assignment != nil && assignment.Shipping != nil && assignment.Shipping.Address != nil {
		return assignment.Shipping.Address
	}
	return q.ShippingAddress
}

func reset(items []*quote.Item, address *quote.Address, total *quote.Total) {
	for _, it := range items {
		it.DiscountAmount = 0
		for _, child := range it.Children {
			child.DiscountAmount = 0
		}
	}
	if address != nil {
		address.DiscountAmount = 0
		address.ShippingDiscountAmount = 0
	}
	total.DiscountAmount = 0
	total.AppliedRuleIDs = nil
}
