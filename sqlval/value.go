// Package sqlval defines the dynamically-typed value model shared by
// every layer of corvid: the lexer emits literals, the executor
// produces rows, and the storage engine serializes both as Values.
package sqlval

import (
	"fmt"
	"math"

	goerrors "gopkg.in/src-d/go-errors.v1"
)

// Kind tags the variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindVarchar
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindInt:
		return "INT"
	case KindFloat:
		return "FLOAT"
	case KindVarchar:
		return "VARCHAR"
	default:
		return "UNKNOWN"
	}
}

// Value is a single dynamically-typed cell: Int, Float, Varchar, or Null.
// Exactly one of the payload fields is meaningful, selected by Kind.
type Value struct {
	Kind Kind
	I    int64
	F    float64
	S    string
}

// Null is the singleton NULL value.
var Null = Value{Kind: KindNull}

// NewInt constructs an Int value.
func NewInt(i int64) Value { return Value{Kind: KindInt, I: i} }

// NewFloat constructs a Float value.
func NewFloat(f float64) Value { return Value{Kind: KindFloat, F: f} }

// NewVarchar constructs a Varchar value.
func NewVarchar(s string) Value { return Value{Kind: KindVarchar, S: s} }

// IsNull reports whether v holds Null.
func (v Value) IsNull() bool { return v.Kind == KindNull }

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindInt:
		return fmt.Sprintf("%d", v.I)
	case KindFloat:
		return fmt.Sprintf("%g", v.F)
	case KindVarchar:
		return v.S
	default:
		return "?"
	}
}

// ErrTypeMismatch is raised when an operator is applied to incompatible variants.
var ErrTypeMismatch = goerrors.NewKind("type error: incompatible operand types: %s and %s")

// numeric reports whether k is Int or Float.
func numeric(k Kind) bool { return k == KindInt || k == KindFloat }

// asFloat widens an Int or Float value to float64.
func (v Value) asFloat() float64 {
	if v.Kind == KindInt {
		return float64(v.I)
	}
	return v.F
}

// Add returns a+b, promoting Int+Float to Float. NULL propagates.
func (a Value) Add(b Value) (Value, error) { return arith(a, b, func(x, y int64) int64 { return x + y }, func(x, y float64) float64 { return x + y }) }

// Sub returns a-b.
func (a Value) Sub(b Value) (Value, error) { return arith(a, b, func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y }) }

// Mul returns a*b.
func (a Value) Mul(b Value) (Value, error) { return arith(a, b, func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y }) }

// Div returns a/b as a Float always (integer division is not part of this dialect).
func (a Value) Div(b Value) (Value, error) {
	if a.IsNull() || b.IsNull() {
		return Null, nil
	}
	if !numeric(a.Kind) || !numeric(b.Kind) {
		return Value{}, ErrTypeMismatch.New(a.Kind, b.Kind)
	}
	if b.asFloat() == 0 {
		return Value{}, ErrDivByZero.New()
	}
	return NewFloat(a.asFloat() / b.asFloat()), nil
}

func arith(a, b Value, iop func(int64, int64) int64, fop func(float64, float64) float64) (Value, error) {
	if a.IsNull() || b.IsNull() {
		return Null, nil
	}
	if !numeric(a.Kind) || !numeric(b.Kind) {
		return Value{}, ErrTypeMismatch.New(a.Kind, b.Kind)
	}
	if a.Kind == KindInt && b.Kind == KindInt {
		return NewInt(iop(a.I, b.I)), nil
	}
	return NewFloat(fop(a.asFloat(), b.asFloat())), nil
}

// Compare returns -1, 0, 1 for a<b, a==b, a>b between same-variant (or
// numeric-compatible) pairs. NULL is never comparable: ok is false
// whenever either side is NULL, and the caller must treat that as
// "unknown" (SQL three-valued logic collapses to falsy in corvid,
// per spec).
func (a Value) Compare(b Value) (cmp int, ok bool, err error) {
	if a.IsNull() || b.IsNull() {
		return 0, false, nil
	}
	switch {
	case a.Kind == KindVarchar && b.Kind == KindVarchar:
		switch {
		case a.S < b.S:
			return -1, true, nil
		case a.S > b.S:
			return 1, true, nil
		default:
			return 0, true, nil
		}
	case numeric(a.Kind) && numeric(b.Kind):
		x, y := a.asFloat(), b.asFloat()
		switch {
		case x < y:
			return -1, true, nil
		case x > y:
			return 1, true, nil
		default:
			return 0, true, nil
		}
	default:
		return 0, false, ErrTypeMismatch.New(a.Kind, b.Kind)
	}
}

// Equal reports value equality; NULL = NULL is false per SQL semantics
// (use IsNull to test for NULL directly).
func (a Value) Equal(b Value) (bool, error) {
	if a.IsNull() || b.IsNull() {
		return false, nil
	}
	c, ok, err := a.Compare(b)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return c == 0, nil
}

// Truthy implements the "NULL result is falsy" rule used by Filter
// predicates: only a non-NULL, non-zero value is truthy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNull:
		return false
	case KindInt:
		return v.I != 0
	case KindFloat:
		return v.F != 0 && !math.IsNaN(v.F)
	case KindVarchar:
		return v.S != ""
	default:
		return false
	}
}
