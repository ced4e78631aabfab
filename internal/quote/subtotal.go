package quote

import "context"

// SubtotalCollector populates per-item row totals and the pass subtotal.
// Dynamically priced bundle parents take the sum of their children as row
// total and are excluded from the subtotal themselves; their children carry
// the priced amounts.
type SubtotalCollector struct{}

// Collect implements the Collector contract.
func (SubtotalCollector) Collect(_ context.Context, q *Quote, assignment *ShippingAssignment, total *Total) error {
	if q == nil || total == nil {
		return nil
	}
	items := q.Items
	if assignment != nil && len(assignment.Items) > 0 {
		items = assignment.Items
	}
	var subtotal Money
	for _, it := range items {
		if it.IsBundleParent() {
			var parentTotal Money
			for _, child := range it.Children {
				child.RowTotal = rowTotal(child)
				parentTotal += child.RowTotal
			}
			it.RowTotal = parentTotal
			subtotal += parentTotal
			continue
		}
		it.RowTotal = rowTotal(it)
		subtotal += it.RowTotal
	}
	total.Subtotal = subtotal
	total.GrandTotal = subtotal
	return nil
}

func rowTotal(it *Item) Money {
	if it == nil || it.Qty <= 0 {
		return 0
	}
	return Money(it.Qty) * it.UnitPrice
}
