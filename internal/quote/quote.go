package quote

import "github.com/google/uuid"

// Money represents a monetary value stored in minor units.
type Money = int64

// Item is a single cart line. Bundle parents carry their constituent lines in
// Children; a dynamically priced parent derives its row total from them and is
// never discounted directly.
type Item struct {
	ID          string            `json:"id"`
	SKU         string            `json:"sku"`
	UnitPrice   Money             `json:"unitPrice"`
	Qty         int32             `json:"qty"`
	CategoryIDs []string          `json:"categoryIds,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Children    []*Item           `json:"children,omitempty"`

	// RowTotal is populated by the subtotal collector before discounting.
	RowTotal Money `json:"rowTotal"`
	// DiscountAmount is the positive discount applied to this line so far.
	DiscountAmount Money `json:"discountAmount"`
}

// IsBundleParent reports whether the item is a container for child lines.
func (it *Item) IsBundleParent() bool {
	return it != nil && len(it.Children) > 0
}

// RemainingDiscountable returns how much of the row total is still open for
// further discounts. Never negative.
func (it *Item) RemainingDiscountable() Money {
	if it == nil {
		return 0
	}
	rem := it.RowTotal - it.DiscountAmount
	if rem < 0 {
		return 0
	}
	return rem
}

// Address represents a quote address with its accumulated totals. The
// discount amount follows the negative-sign convention read by callers.
type Address struct {
	DiscountAmount         Money `json:"discountAmount"`
	ShippingAmount         Money `json:"shippingAmount"`
	ShippingDiscountAmount Money `json:"shippingDiscountAmount"`
}

// Quote is the cart aggregate a pricing pass operates on.
type Quote struct {
	ID              uuid.UUID `json:"id"`
	CouponCode      string    `json:"couponCode,omitempty"`
	CustomerGroupID int64     `json:"customerGroupId"`
	Items           []*Item   `json:"items"`
	ShippingAddress *Address  `json:"shippingAddress,omitempty"`
	BillingAddress  *Address  `json:"billingAddress,omitempty"`
}

// AllItems flattens top level items and their children in insertion order,
// each parent immediately followed by its children. Iteration order matters:
// rounding residuals land on the last visited line.
func (q *Quote) AllItems() []*Item {
	if q == nil {
		return nil
	}
	out := make([]*Item, 0, len(q.Items))
	for _, it := range q.Items {
		out = append(out, it)
		out = append(out, it.Children...)
	}
	return out
}

// TotalQty sums quantities across priced lines (children for bundles,
// the line itself otherwise).
func (q *Quote) TotalQty() int64 {
	var total int64
	for _, it := range q.pricedItems() {
		total += int64(it.Qty)
	}
	return total
}

func (q *Quote) pricedItems() []*Item {
	if q == nil {
		return nil
	}
	out := make([]*Item, 0, len(q.Items))
	for _, it := range q.Items {
		if it.IsBundleParent() {
			out = append(out, it.Children...)
			continue
		}
		out = append(out, it)
	}
	return out
}

// Shipping binds a shipping method to the address being priced.
type Shipping struct {
	Address *Address
	Method  string
}

// ShippingAssignment scopes a collector pass to a shipping destination and
// the set of items priced against it.
type ShippingAssignment struct {
	Shipping *Shipping
	Items    []*Item
}

// AssignmentFor builds the default single-destination assignment covering
// every item on the quote.
func AssignmentFor(q *Quote) *ShippingAssignment {
	if q == nil {
		return &ShippingAssignment{}
	}
	return &ShippingAssignment{
		Shipping: &Shipping{Address: q.ShippingAddress},
		Items:    q.Items,
	}
}
