package discount

import "github.com/noah-isme/promo-engine/internal/quote"

// aggregate folds the per-item discount amounts of the scoped item set into
// the address and pass totals using the negative-sign convention external
// callers read. Bundle parents report zero after propagation, so summing
// every line never double counts.
func aggregate(items []*quote.Item, address *quote.Address, total *quote.Total) {
	var itemSum quote.Money
	for _, it := range items {
		itemSum += it.DiscountAmount
		for _, child := range it.Children {
			itemSum += child.DiscountAmount
		}
	}
	var shippingSum quote.Money
	if address != nil {
		shippingSum = address.ShippingDiscountAmount
	}
	discount := -(itemSum + shippingSum)
	total.DiscountAmount = discount
	total.GrandTotal = total.Subtotal + discount
	if address != nil {
		address.DiscountAmount = discount
	}
}
