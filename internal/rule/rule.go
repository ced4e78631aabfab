package rule

import (
	"strings"
	"time"

	"github.com/noah-isme/promo-engine/internal/condition"
	"github.com/noah-isme/promo-engine/internal/quote"
)

// Action identifies how a rule's discount is computed.
type Action string

const (
	// ActionByPercent discounts each qualifying item's remaining row total by
	// a percentage.
	ActionByPercent Action = "by_percent"
	// ActionByFixed discounts amount x quantity per qualifying item.
	ActionByFixed Action = "by_fixed"
	// ActionCartFixed applies the amount once across the whole qualifying
	// set, split proportionally by item subtotal share.
	ActionCartFixed Action = "cart_fixed"
	// ActionBuyXGetY makes Y units free for every X paid units of a
	// qualifying item.
	ActionBuyXGetY Action = "buy_x_get_y"
)

// Rule is a promotional rule. Immutable during one collection pass; loaded
// fresh per evaluation.
type Rule struct {
	ID                  int64           `json:"id"`
	Name                string          `json:"name"`
	CouponCode          string          `json:"couponCode,omitempty"`
	CustomerGroupIDs    []int64         `json:"customerGroupIds,omitempty"`
	FromDate            *time.Time      `json:"fromDate,omitempty"`
	ToDate              *time.Time      `json:"toDate,omitempty"`
	SortOrder           int32           `json:"sortOrder"`
	StopRulesProcessing bool            `json:"stopRulesProcessing"`
	Action              Action          `json:"action"`
	DiscountAmount      quote.Money     `json:"discountAmount"`
	DiscountPercentBps  int32           `json:"discountPercentBps,omitempty"`
	DiscountStep        int32           `json:"discountStep,omitempty"`
	ApplyToShipping     bool            `json:"applyToShipping,omitempty"`
	Condition           condition.Node  `json:"condition"`
	ActionCondition     *condition.Node `json:"actionCondition,omitempty"`
	Active              bool            `json:"active"`
}

// CouponMatches reports whether the rule's coupon gate passes for the given
// quote coupon. Rules without a coupon auto-apply.
func (r Rule) CouponMatches(code string) bool {
	if strings.TrimSpace(r.CouponCode) == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(r.CouponCode), strings.TrimSpace(code))
}

// AppliesToGroup reports whether the customer group is covered by the rule.
// An empty group list means all groups.
func (r Rule) AppliesToGroup(groupID int64) bool {
	if len(r.CustomerGroupIDs) == 0 {
		return true
	}
	for _, id := range r.CustomerGroupIDs {
		if id == groupID {
			return true
		}
	}
	return false
}

// InWindow reports whether the rule's date range contains now.
func (r Rule) InWindow(now time.Time) bool {
	if r.FromDate != nil && now.Before(*r.FromDate) {
		return false
	}
	if r.ToDate != nil && now.After(*r.ToDate) {
		return false
	}
	return true
}

// QualifiesItem evaluates the rule's action condition tree against a single
// line. A rule without action conditions qualifies every item.
func (r Rule) QualifiesItem(it *quote.Item) bool {
	if r.ActionCondition == nil {
		return true
	}
	return condition.Evaluate(*r.ActionCondition, condition.ItemContextOf(it))
}
