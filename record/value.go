package record

import (
	"fmt"
	"strconv"
)

// Kind is the type of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
	KindSentinel
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindSentinel:
		return "sentinel"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a single field value within a Record.
//
// The zero Value is null.
type Value struct {
	kind     Kind
	b        bool
	n        float64
	i        int64
	integral bool
	s        string
	list     []Value
	m        Record
	sentinel *Sentinel
}

// Null returns a null value.
func Null() Value {
	return Value{}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Int returns a number value that reads back as an integer.
func Int(n int64) Value {
	return Value{kind: KindNumber, n: float64(n), i: n, integral: true}
}

// Float returns a number value.
func Float(f float64) Value {
	return Value{kind: KindNumber, n: f}
}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, s: s}
}

// List returns a list value containing the given values.
func List(values ...Value) Value {
	if values == nil {
		values = []Value{}
	}
	return Value{kind: KindList, list: values}
}

// Map returns a nested record value.
func Map(r Record) Value {
	if r == nil {
		r = Record{}
	}
	return Value{kind: KindMap, m: r}
}

// Tag returns a value holding the given sentinel.
func Tag(s *Sentinel) Value {
	return Value{kind: KindSentinel, sentinel: s}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == KindNull
}

func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

func (v Value) AsNumber() (float64, bool) {
	return v.n, v.kind == KindNumber
}

// AsInt returns the exact integer of a value written as an integer.
func (v Value) AsInt() (int64, bool) {
	return v.i, v.IsIntegral()
}

func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

func (v Value) AsList() ([]Value, bool) {
	return v.list, v.kind == KindList
}

func (v Value) AsMap() (Record, bool) {
	return v.m, v.kind == KindMap
}

func (v Value) AsSentinel() (*Sentinel, bool) {
	return v.sentinel, v.kind == KindSentinel
}

// IsIntegral returns true if the value is a number that was written as an integer.
func (v Value) IsIntegral() bool {
	return v.kind == KindNumber && v.integral
}

// Truthy reports whether the value would be considered true in a boolean context.
//
// Null, false, zero, the empty string, and empty lists and records are falsy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0
	case KindString:
		return v.s != ""
	case KindList:
		return len(v.list) > 0
	case KindMap:
		return len(v.m) > 0
	default:
		return true
	}
}

// Text returns the string form of the value used for pattern matching.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		if v.IsIntegral() {
			return strconv.FormatInt(v.i, 10)
		}
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindString:
		return v.s
	default:
		return fmt.Sprint(v.Interface())
	}
}

// Interface returns the go value for this value.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		if v.IsIntegral() {
			return v.i
		}
		return v.n
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.Interface()
		}
		return out
	case KindMap:
		return v.m.Map()
	case KindSentinel:
		return v.sentinel
	default:
		return nil
	}
}

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		list := make([]Value, len(v.list))
		for i, e := range v.list {
			list[i] = e.Clone()
		}
		v.list = list
	case KindMap:
		v.m = v.m.Clone()
	}
	return v
}

// Equal returns true if both values are deeply equal.
//
// Numbers are compared by value regardless of how they were written. Two
// integers are compared exactly.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		if v.integral && other.integral {
			return v.i == other.i
		}
		return v.n == other.n
	case KindString:
		return v.s == other.s
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.Equal(other.m)
	case KindSentinel:
		return v.sentinel.Equal(other.sentinel)
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return strconv.Quote(v.s)
	default:
		return v.Text()
	}
}
