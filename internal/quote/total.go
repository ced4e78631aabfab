package quote

import "context"

// Total is the shared accumulator threaded through one calculation pass.
// Collectors mutate it sequentially; DiscountAmount is negative by convention.
type Total struct {
	Subtotal       Money   `json:"subtotal"`
	DiscountAmount Money   `json:"discountAmount"`
	GrandTotal     Money   `json:"grandTotal"`
	AppliedRuleIDs []int64 `json:"appliedRuleIds,omitempty"`
}

// Collector is the contract every total collector implements. The orchestrator
// invokes collectors in a fixed order; the subtotal collector runs before the
// discount collector within the same pass.
type Collector interface {
	Collect(ctx context.Context, q *Quote, assignment *ShippingAssignment, total *Total) error
}

// Pipeline runs collectors in sequence against a single quote.
type Pipeline struct {
	Collectors []Collector
}

// Run executes the configured collectors in order, stopping at the first
// failure. A failed collector leaves the total in an undefined state; callers
// retry the whole pass, not individual steps.
func (p Pipeline) Run(ctx context.Context, q *Quote, assignment *ShippingAssignment, total *Total) error {
	for _, c := range p.Collectors {
		if err := c.Collect(ctx, q, assignment, total); err != nil {
			return err
		}
	}
	return nil
}
