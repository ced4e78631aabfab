package condition

import "strconv"

type valueKind int

const (
	valueString valueKind = iota
	valueNumber
	valueSet
)

// Value is a typed attribute value yielded by a Context. Scalar values are
// strings or numbers; multi-valued attributes such as category memberships
// are sets where equality means membership.
type Value struct {
	kind valueKind
	str  string
	num  int64
	set  []string
}

// StringValue wraps a scalar string attribute.
func StringValue(s string) Value {
	return Value{kind: valueString, str: s}
}

// NumberValue wraps a numeric attribute (prices in minor units, quantities).
func NumberValue(n int64) Value {
	return Value{kind: valueNumber, num: n}
}

// SetValue wraps a multi-valued attribute.
func SetValue(members []string) Value {
	return Value{kind: valueSet, set: members}
}

// IsSet reports whether the value is multi-valued.
func (v Value) IsSet() bool { return v.kind == valueSet }

// String returns the scalar string form of the value.
func (v Value) String() string {
	if v.kind == valueNumber {
		return strconv.FormatInt(v.num, 10)
	}
	return v.str
}

// Number returns the value as a float for ordered comparisons and whether the
// conversion succeeded.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case valueNumber:
		return float64(v.num), true
	case valueString:
		f, err := strconv.ParseFloat(v.str, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Contains reports set membership. False for scalar values that differ.
func (v Value) Contains(member string) bool {
	if v.kind != valueSet {
		return v.String() == member
	}
	for _, m := range v.set {
		if m == member {
			return true
		}
	}
	return false
}
