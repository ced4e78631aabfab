package condition

import "strconv"

// Context resolves named attributes during evaluation. Implementations exist
// for item-level and cart-level scopes.
type Context interface {
	Attribute(name string) (Value, bool)
}

// ItemSource is implemented by cart-level contexts that can enumerate item
// scopes, enabling the found-in-cart predicate.
type ItemSource interface {
	ItemContexts() []Context
}

// Evaluate walks the condition tree against the given context. Evaluation is
// fail-closed: unknown attributes, unparsable comparison values and malformed
// nodes all evaluate false rather than erroring, so a misconfigured rule
// simply does not apply.
func Evaluate(node Node, ctx Context) bool {
	switch node.Kind {
	case KindCombine, "":
		return evaluateCombine(node, ctx)
	case KindAttribute:
		return evaluateLeaf(node, ctx)
	case KindFoundInCart:
		return evaluateFound(node, ctx)
	default:
		return false
	}
}

func evaluateCombine(node Node, ctx Context) bool {
	switch node.Aggregator {
	case AggregatorAny:
		for _, child := range node.Children {
			if Evaluate(child, ctx) {
				return true
			}
		}
		return false
	case AggregatorNone:
		for _, child := range node.Children {
			if Evaluate(child, ctx) {
				return false
			}
		}
		return true
	case AggregatorAll, "":
		for _, child := range node.Children {
			if !Evaluate(child, ctx) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func evaluateFound(node Node, ctx Context) bool {
	src, ok := ctx.(ItemSource)
	if !ok {
		return false
	}
	inner := Node{Kind: KindCombine, Aggregator: node.Aggregator, Children: node.Children}
	for _, itemCtx := range src.ItemContexts() {
		if !Evaluate(inner, itemCtx) {
			continue
		}
		if node.Attribute != "" && !evaluateLeaf(node, itemCtx) {
			continue
		}
		return true
	}
	return false
}

func evaluateLeaf(node Node, ctx Context) bool {
	if ctx == nil || node.Attribute == "" {
		return false
	}
	v, ok := ctx.Attribute(node.Attribute)
	if !ok {
		return false
	}
	switch node.Operator {
	case OpEquals:
		if v.IsSet() {
			return v.Contains(node.Value)
		}
		return v.String() == node.Value
	case OpNotEquals:
		if v.IsSet() {
			return !v.Contains(node.Value)
		}
		return v.String() != node.Value
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		return compareOrdered(node.Operator, v, node.Value)
	case OpIn:
		return intersects(v, node.Values)
	case OpNotIn:
		if len(node.Values) == 0 {
			return false
		}
		return !intersects(v, node.Values)
	default:
		return false
	}
}

func compareOrdered(op Operator, v Value, target string) bool {
	left, ok := v.Number()
	if !ok {
		return false
	}
	right, err := strconv.ParseFloat(target, 64)
	if err != nil {
		return false
	}
	switch op {
	case OpGreater:
		return left > right
	case OpLess:
		return left < right
	case OpGreaterEqual:
		return left >= right
	case OpLessEqual:
		return left <= right
	}
	return false
}

func intersects(v Value, targets []string) bool {
	if len(targets) == 0 {
		return false
	}
	if v.IsSet() {
		for _, t := range targets {
			if v.Contains(t) {
				return true
			}
		}
		return false
	}
	s := v.String()
	for _, t := range targets {
		if s == t {
			return true
		}
	}
	return false
}
