// Package filter evaluates conjunctive field conditions against records.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nasdf/meeple/record"
)

var ErrInvalidOperator = errors.New("invalid filter operator")

// Operator is a comparison applied to a single record field.
type Operator string

const (
	Equal          Operator = "eq"
	NotEqual       Operator = "neq"
	Greater        Operator = "gt"
	GreaterOrEqual Operator = "gte"
	Less           Operator = "lt"
	LessOrEqual    Operator = "lte"
	In             Operator = "in"
	NotIn          Operator = "nin"
	Contains       Operator = "contains"
	ContainsAny    Operator = "containsAny"
	Like           Operator = "like"
	ILike          Operator = "ilike"
	Is             Operator = "is"
)

// likeWildcard is the wildcard marker stripped from like patterns.
const likeWildcard = "%"

var operatorNames = map[string]Operator{
	"==":                 Equal,
	"=":                  Equal,
	"eq":                 Equal,
	"!=":                 NotEqual,
	"neq":                NotEqual,
	">":                  Greater,
	"gt":                 Greater,
	">=":                 GreaterOrEqual,
	"gte":                GreaterOrEqual,
	"<":                  Less,
	"lt":                 Less,
	"<=":                 LessOrEqual,
	"lte":                LessOrEqual,
	"in":                 In,
	"not-in":             NotIn,
	"not_in":             NotIn,
	"nin":                NotIn,
	"array-contains":     Contains,
	"array_contains":     Contains,
	"contains":           Contains,
	"array-contains-any": ContainsAny,
	"array_contains_any": ContainsAny,
	"containsAny":        ContainsAny,
	"like":               Like,
	"ilike":              ILike,
	"is":                 Is,
}

// ParseOperator returns the operator with the given name.
//
// Both document style (==, array-contains) and relational style (eq, ilike) names are accepted.
func ParseOperator(name string) (Operator, error) {
	op, ok := operatorNames[name]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrInvalidOperator, name)
	}
	return op, nil
}

// Condition is a single field comparison.
type Condition struct {
	Field string
	Op    Operator
	Value record.Value
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %s", c.Field, c.Op, c.Value)
}

// Conditions is an ordered list of conditions combined with AND.
type Conditions []Condition

// Append returns a copy of the conditions with c added to the end.
func (cs Conditions) Append(c Condition) Conditions {
	out := make(Conditions, len(cs), len(cs)+1)
	copy(out, cs)
	return append(out, c)
}

// Set returns a copy of the conditions where c replaces any existing condition on the same field.
//
// A replaced condition keeps its original position.
func (cs Conditions) Set(c Condition) Conditions {
	out := make(Conditions, len(cs), len(cs)+1)
	copy(out, cs)
	for i := range out {
		if out[i].Field == c.Field {
			out[i] = c
			return out
		}
	}
	return append(out, c)
}

// Match returns true if the record satisfies every condition.
//
// Evaluation stops at the first condition that fails.
func Match(rec record.Record, conds Conditions) (bool, error) {
	for _, c := range conds {
		match, err := matchCondition(rec, c)
		if err != nil || !match {
			return false, err
		}
	}
	return true, nil
}

func matchCondition(rec record.Record, c Condition) (bool, error) {
	field, _ := rec.Lookup(c.Field)
	switch c.Op {
	case Equal, Is:
		return field.Equal(c.Value), nil
	case NotEqual:
		return !field.Equal(c.Value), nil
	case Greater:
		match, ok := filterCompare(field, c.Value)
		return ok && match > 0, nil
	case GreaterOrEqual:
		match, ok := filterCompare(field, c.Value)
		return ok && match >= 0, nil
	case Less:
		match, ok := filterCompare(field, c.Value)
		return ok && match < 0, nil
	case LessOrEqual:
		match, ok := filterCompare(field, c.Value)
		return ok && match <= 0, nil
	case In:
		return filterIn(field, c.Value)
	case NotIn:
		match, err := filterIn(field, c.Value)
		return !match, err
	case Contains:
		return filterContains(field, c.Value), nil
	case ContainsAny:
		return filterContainsAny(field, c.Value)
	case Like:
		return filterLike(field, c.Value, false), nil
	case ILike:
		return filterLike(field, c.Value, true), nil
	default:
		return false, fmt.Errorf("%w %q", ErrInvalidOperator, c.Op)
	}
}

// filterCompare orders the field against the value.
//
// Absent or falsy fields and values of a different kind never match.
func filterCompare(field, value record.Value) (int, bool) {
	if !field.Truthy() || field.Kind() != value.Kind() {
		return 0, false
	}
	switch field.Kind() {
	case record.KindNumber, record.KindString:
		return Compare(field, value), true
	default:
		return 0, false
	}
}

func filterIn(field, value record.Value) (bool, error) {
	set, ok := value.AsList()
	if !ok {
		return false, fmt.Errorf("in filter requires a list value but got %s", value.Kind())
	}
	for _, v := range set {
		if field.Equal(v) {
			return true, nil
		}
	}
	return false, nil
}

func filterContains(field, value record.Value) bool {
	switch field.Kind() {
	case record.KindList:
		list, _ := field.AsList()
		for _, v := range list {
			if v.Equal(value) {
				return true
			}
		}
		return false
	case record.KindMap:
		doc, _ := field.AsMap()
		sub, ok := value.AsMap()
		if !ok {
			return false
		}
		for k, v := range sub {
			if !doc[k].Equal(v) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func filterContainsAny(field, value record.Value) (bool, error) {
	set, ok := value.AsList()
	if !ok {
		return false, fmt.Errorf("contains any filter requires a list value but got %s", value.Kind())
	}
	if field.Kind() != record.KindList {
		return false, nil
	}
	for _, v := range set {
		if filterContains(field, v) {
			return true, nil
		}
	}
	return false, nil
}

func filterLike(field, value record.Value, fold bool) bool {
	if !field.Truthy() {
		return false
	}
	pattern := strings.ReplaceAll(value.Text(), likeWildcard, "")
	text := field.Text()
	if fold {
		pattern = strings.ToLower(pattern)
		text = strings.ToLower(text)
	}
	return strings.Contains(text, pattern)
}
