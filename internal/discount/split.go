package discount

import "github.com/noah-isme/promo-engine/internal/quote"

// Split distributes amount across weights proportionally, rounding each share
// half-up to the minor unit. Shares are never negative and always reconcile
// exactly with the whole: an under-allocation lands on the last weighted
// share, an over-allocation is trimmed from the tail. Iteration order is the
// caller's order and must be deterministic, since the residual target depends
// on it.
func Split(amount quote.Money, weights []quote.Money) []quote.Money {
	shares := make([]quote.Money, len(weights))
	if len(weights) == 0 || amount <= 0 {
		return shares
	}
	var totalWeight quote.Money
	for _, w := range weights {
		if w > 0 {
			totalWeight += w
		}
	}
	if totalWeight <= 0 {
		return shares
	}
	var allocated quote.Money
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		shares[i] = roundHalfUp(amount*w, totalWeight)
		allocated += shares[i]
	}
	// Half-up rounding can leave the shares over or under the whole, e.g.
	// when every share rounds a half-cent up. Walk the weighted shares from
	// the tail: an undershoot lands on the last one, an overshoot is trimmed
	// off share by share without driving any of them negative.
	diff := amount - allocated
	for i := len(shares) - 1; i >= 0 && diff != 0; i-- {
		if weights[i] <= 0 {
			continue
		}
		if diff > 0 {
			shares[i] += diff
			break
		}
		trim := -diff
		if trim > shares[i] {
			trim = shares[i]
		}
		shares[i] -= trim
		diff += trim
	}
	return shares
}

// roundHalfUp divides num by den rounding half away from zero for
// non-negative inputs.
func roundHalfUp(num, den quote.Money) quote.Money {
	if den <= 0 {
		return 0
	}
	return (num + den/2) / den
}
