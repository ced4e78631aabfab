package condition

// Kind discriminates the condition node variants.
type Kind string

const (
	// KindCombine aggregates child conditions with an aggregator.
	KindCombine Kind = "combine"
	// KindAttribute compares a single context attribute against a value.
	KindAttribute Kind = "attribute"
	// KindFoundInCart is true when at least one cart item satisfies the
	// embedded predicate. Used for rules whose eligibility depends on cart
	// composition rather than the triggering item.
	KindFoundInCart Kind = "found_in_cart"
)

// Aggregator selects how a combine node folds its children.
type Aggregator string

const (
	AggregatorAll  Aggregator = "all"
	AggregatorAny  Aggregator = "any"
	AggregatorNone Aggregator = "none"
)

// Operator is a leaf comparison operator.
type Operator string

const (
	OpEquals       Operator = "=="
	OpNotEquals    Operator = "!="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpIn           Operator = "in"
	OpNotIn        Operator = "not_in"
)

// Node is one node of a condition tree. The zero value is a combine node with
// no children and the "all" aggregator, which is vacuously true. Trees are
// persisted as JSONB on rules, so the shape is part of the storage format.
type Node struct {
	Kind       Kind       `json:"kind"`
	Aggregator Aggregator `json:"aggregator,omitempty"`
	Children   []Node     `json:"children,omitempty"`
	Attribute  string     `json:"attribute,omitempty"`
	Operator   Operator   `json:"operator,omitempty"`
	Value      string     `json:"value,omitempty"`
	Values     []string   `json:"values,omitempty"`
}

// All builds a combine node requiring every child to hold.
func All(children ...Node) Node {
	return Node{Kind: KindCombine, Aggregator: AggregatorAll, Children: children}
}

// Any builds a combine node requiring at least one child to hold.
func Any(children ...Node) Node {
	return Node{Kind: KindCombine, Aggregator: AggregatorAny, Children: children}
}

// None builds a combine node requiring no child to hold.
func None(children ...Node) Node {
	return Node{Kind: KindCombine, Aggregator: AggregatorNone, Children: children}
}

// Attr builds an attribute leaf.
func Attr(attribute string, op Operator, value string) Node {
	return Node{Kind: KindAttribute, Attribute: attribute, Operator: op, Value: value}
}

// AttrIn builds a set membership leaf.
func AttrIn(attribute string, op Operator, values ...string) Node {
	return Node{Kind: KindAttribute, Attribute: attribute, Operator: op, Values: values}
}

// FoundInCart builds a predicate satisfied when any cart item matches all of
// the given item-level conditions.
func FoundInCart(children ...Node) Node {
	return Node{Kind: KindFoundInCart, Aggregator: AggregatorAll, Children: children}
}
