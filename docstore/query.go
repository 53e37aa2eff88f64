package docstore

import (
	"context"

	"github.com/nasdf/meeple/filter"
	"github.com/nasdf/meeple/record"
)

// Direction is the sort order of a query.
type Direction int

const (
	Asc Direction = iota + 1
	Desc
)

// Query selects documents directly within a single collection.
//
// Query values are immutable; every builder method returns a new Query.
type Query struct {
	client *Client
	path   string
	query  filter.Query
	err    error
}

func newQuery(c *Client, path string) Query {
	return Query{client: c, path: path}
}

// Where returns a new query with an added condition.
//
// An unknown operator or unsupported value makes the query fail when it is run.
func (q Query) Where(field, op string, value any) Query {
	if q.err != nil {
		return q
	}
	operator, err := filter.ParseOperator(op)
	if err != nil {
		q.err = err
		return q
	}
	val, err := record.ValueOf(value)
	if err != nil {
		q.err = err
		return q
	}
	return q.WhereCondition(filter.Condition{Field: field, Op: operator, Value: val})
}

// WhereCondition returns a new query with the given condition added.
func (q Query) WhereCondition(c filter.Condition) Query {
	q.query.Conditions = q.query.Conditions.Append(c)
	return q
}

// OrderBy returns a new query sorted by the given field.
//
// Only one sort key is kept; a later call replaces an earlier one.
func (q Query) OrderBy(field string, dir Direction) Query {
	q.query.OrderBy = field
	q.query.Desc = dir == Desc
	return q
}

// Limit returns a new query that returns at most n documents.
//
// A value of zero or less removes the limit.
func (q Query) Limit(n int) Query {
	q.query.Limit = n
	return q
}

// Get runs the query and returns a snapshot of every matching document.
func (q Query) Get(ctx context.Context) ([]*Snapshot, error) {
	if q.err != nil {
		return nil, q.err
	}
	entries, err := q.client.store.Scan(ctx, collectionKey(q.path))
	if err != nil {
		return nil, err
	}
	entries, err = filter.Apply(entries, q.query)
	if err != nil {
		return nil, err
	}
	col := q.client.Collection(q.path)
	readTime := q.client.now()
	snaps := make([]*Snapshot, len(entries))
	for i, e := range entries {
		snaps[i] = newSnapshot(col.Doc(e.ID), e.Record, readTime)
	}
	return snaps, nil
}

// Documents returns an iterator over the documents matching the query.
func (q Query) Documents(ctx context.Context) *DocumentIterator {
	snaps, err := q.Get(ctx)
	return &DocumentIterator{snaps: snaps, err: err}
}

// Subscribe registers fn to receive the query results now and after every change to the collection.
func (q Query) Subscribe(fn QueryListener) *Subscription {
	return q.client.listeners.subscribe(queryKey(q.path), func(ctx context.Context) error {
		snaps, err := q.Get(ctx)
		if err != nil {
			return err
		}
		return fn(snaps)
	})
}

// DocumentIterator iterates over the results of a query.
type DocumentIterator struct {
	snaps []*Snapshot
	err   error
}

// Done returns true when there are no more documents.
func (i *DocumentIterator) Done() bool {
	return i.err == nil && len(i.snaps) == 0
}

// Next returns the next document.
//
// ErrIteratorDone is returned once every document has been read.
func (i *DocumentIterator) Next() (*Snapshot, error) {
	if i.err != nil {
		return nil, i.err
	}
	if len(i.snaps) == 0 {
		return nil, ErrIteratorDone
	}
	snap := i.snaps[0]
	i.snaps = i.snaps[1:]
	return snap, nil
}

// All returns the remaining documents.
func (i *DocumentIterator) All() ([]*Snapshot, error) {
	var out []*Snapshot
	for !i.Done() {
		snap, err := i.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

func collectionKey(path string) string {
	return keyPrefix + path
}
