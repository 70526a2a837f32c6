package model

import (
	"math"
	"strconv"
)

// Kind tags the type held by a Value.
type Kind uint8

const (
	KindNA Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
)

var kindNames = [...]string{
	KindNA:     "na",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindBool:   "bool",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// KindByName returns the Kind for the given name, or ok=false.
func KindByName(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return KindNA, false
}

// Value is one cell of a result table. The zero Value is NA ("not applicable"),
// which is how a column missing from a record is represented; it is never zero.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
}

func NA() Value             { return Value{} }
func Int(v int64) Value     { return Value{Kind: KindInt, Num: float64(v)} }
func Float(v float64) Value { return Value{Kind: KindFloat, Num: v} }
func String(s string) Value { return Value{Kind: KindString, Str: s} }

func Bool(b bool) Value {
	v := Value{Kind: KindBool}
	if b {
		v.Num = 1
	}
	return v
}

// IsNA reports whether v is the not-applicable marker.
func (v Value) IsNA() bool { return v.Kind == KindNA }

// IsNumeric reports whether v can take part in numeric reductions.
func (v Value) IsNumeric() bool { return v.Kind == KindInt || v.Kind == KindFloat }

// Float returns the numeric value and whether v is numeric.
func (v Value) Float() (float64, bool) {
	if !v.IsNumeric() {
		return 0, false
	}
	return v.Num, true
}

// Truth returns the boolean held by v; non-bool values are false.
func (v Value) Truth() bool { return v.Kind == KindBool && v.Num != 0 }

// String renders v the way it appears in reports and CSV cells.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(int64(v.Num), 10)
	case KindFloat:
		if math.IsNaN(v.Num) {
			return "n/a"
		}
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindString:
		return v.Str
	case KindBool:
		return strconv.FormatBool(v.Truth())
	default:
		return "n/a"
	}
}

// Compare orders values for stable report output: numeric values compare
// numerically, everything else lexicographically, and NA sorts last.
func (v Value) Compare(o Value) int {
	switch {
	case v.IsNA() && o.IsNA():
		return 0
	case v.IsNA():
		return 1
	case o.IsNA():
		return -1
	}
	a, aok := v.Float()
	b, bok := o.Float()
	if aok && bok {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	}
	as, bs := v.String(), o.String()
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}

// Equal reports whether v and o hold the same kind and content.
func (v Value) Equal(o Value) bool {
	return v.Kind == o.Kind && v.Str == o.Str && (v.Num == o.Num || (math.IsNaN(v.Num) && math.IsNaN(o.Num)))
}
