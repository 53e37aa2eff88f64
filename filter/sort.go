package filter

import (
	"cmp"
	"slices"

	"github.com/nasdf/meeple/record"
	"github.com/nasdf/meeple/storage"
)

// kindRank orders values of different kinds.
var kindRank = map[record.Kind]int{
	record.KindNull:     0,
	record.KindBool:     1,
	record.KindNumber:   2,
	record.KindString:   3,
	record.KindList:     4,
	record.KindMap:      5,
	record.KindSentinel: 6,
}

// Compare returns the total order of two values.
//
// Values of different kinds are ordered null < bool < number < string < list < map < sentinel.
func Compare(a, b record.Value) int {
	if a.Kind() != b.Kind() {
		return cmp.Compare(kindRank[a.Kind()], kindRank[b.Kind()])
	}
	switch a.Kind() {
	case record.KindBool:
		x, _ := a.AsBool()
		y, _ := b.AsBool()
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case record.KindNumber:
		if i, ok := a.AsInt(); ok {
			if j, ok := b.AsInt(); ok {
				return cmp.Compare(i, j)
			}
		}
		x, _ := a.AsNumber()
		y, _ := b.AsNumber()
		return cmp.Compare(x, y)
	case record.KindString:
		x, _ := a.AsString()
		y, _ := b.AsString()
		return cmp.Compare(x, y)
	case record.KindList:
		x, _ := a.AsList()
		y, _ := b.AsList()
		for i := 0; i < len(x) && i < len(y); i++ {
			if c := Compare(x[i], y[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(x), len(y))
	case record.KindMap:
		x, _ := a.AsMap()
		y, _ := b.AsMap()
		return cmp.Compare(len(x), len(y))
	default:
		return 0
	}
}

// Sort orders the entries by the given field in place.
//
// The sort is stable in both directions and entries missing the field sort as null.
func Sort(entries []storage.Entry, field string, desc bool) {
	slices.SortStableFunc(entries, func(a, b storage.Entry) int {
		x, _ := a.Record.Lookup(field)
		y, _ := b.Record.Lookup(field)
		if desc {
			return Compare(y, x)
		}
		return Compare(x, y)
	})
}

// Window returns the entries after skipping offset entries and keeping at most limit.
//
// A limit less than or equal to zero keeps every remaining entry.
func Window(entries []storage.Entry, offset, limit int) []storage.Entry {
	if offset > 0 {
		if offset >= len(entries) {
			return entries[:0]
		}
		entries = entries[offset:]
	}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}

// Apply filters, sorts, and windows the entries in that order.
func Apply(entries []storage.Entry, q Query) ([]storage.Entry, error) {
	out := make([]storage.Entry, 0, len(entries))
	for _, e := range entries {
		match, err := Match(e.Record, q.Conditions)
		if err != nil {
			return nil, err
		}
		if match {
			out = append(out, e)
		}
	}
	if q.OrderBy != "" {
		Sort(out, q.OrderBy, q.Desc)
	}
	return Window(out, q.Offset, q.Limit), nil
}

// Query is the shape shared by both dialects' query builders.
type Query struct {
	Conditions Conditions
	OrderBy    string
	Desc       bool
	Offset     int
	Limit      int
}
