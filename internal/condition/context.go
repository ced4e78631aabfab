package condition

import (
	"github.com/noah-isme/promo-engine/internal/quote"
)

// Well-known attribute names exposed by the built-in contexts. Custom item
// attributes are resolved by their own names.
const (
	AttrSKU         = "sku"
	AttrPrice       = "price"
	AttrQty         = "qty"
	AttrRowTotal    = "row_total"
	AttrCategoryIDs = "category_ids"
	AttrSubtotal    = "subtotal"
	AttrTotalQty    = "total_qty"
	AttrCouponCode  = "coupon_code"
)

type itemContext struct {
	item *quote.Item
}

// ItemContextOf exposes a single cart line to the evaluator.
func ItemContextOf(it *quote.Item) Context {
	return itemContext{item: it}
}

func (c itemContext) Attribute(name string) (Value, bool) {
	it := c.item
	if it == nil {
		return Value{}, false
	}
	switch name {
	case AttrSKU:
		return StringValue(it.SKU), true
	case AttrPrice:
		return NumberValue(it.UnitPrice), true
	case AttrQty:
		return NumberValue(int64(it.Qty)), true
	case AttrRowTotal:
		return NumberValue(it.RowTotal), true
	case AttrCategoryIDs:
		return SetValue(it.CategoryIDs), true
	}
	if v, ok := it.Attributes[name]; ok {
		return StringValue(v), true
	}
	return Value{}, false
}

type cartContext struct {
	q *quote.Quote
}

// CartContextOf exposes quote-level aggregates to the evaluator. It also
// implements ItemSource so found-in-cart predicates can probe every line.
func CartContextOf(q *quote.Quote) Context {
	return cartContext{q: q}
}

func (c cartContext) Attribute(name string) (Value, bool) {
	if c.q == nil {
		return Value{}, false
	}
	switch name {
	case AttrSubtotal:
		var subtotal quote.Money
		for _, it := range c.q.AllItems() {
			if it.IsBundleParent() {
				continue
			}
			subtotal += it.RowTotal
		}
		return NumberValue(subtotal), true
	case AttrTotalQty:
		return NumberValue(c.q.TotalQty()), true
	case AttrCouponCode:
		return StringValue(c.q.CouponCode), true
	case AttrCategoryIDs:
		seen := map[string]struct{}{}
		var union []string
		for _, it := range c.q.AllItems() {
			for _, id := range it.CategoryIDs {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				union = append(union, id)
			}
		}
		return SetValue(union), true
	}
	return Value{}, false
}

func (c cartContext) ItemContexts() []Context {
	items := c.q.AllItems()
	out := make([]Context, 0, len(items))
	for _, it := range items {
		out = append(out, ItemContextOf(it))
	}
	return out
}

// static context used in tests and rule previews.
type mapContext map[string]Value

// MapContext builds a context from explicit attribute values.
func MapContext(values map[string]Value) Context {
	return mapContext(values)
}

func (m mapContext) Attribute(name string) (Value, bool) {
	v, ok := m[name]
	return v, ok
}
