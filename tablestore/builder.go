package tablestore

import (
	"context"
	"errors"

	"github.com/nasdf/meeple/filter"
	"github.com/nasdf/meeple/record"
	"github.com/nasdf/meeple/storage"
)

// Builder accumulates filters, ordering, and a window for a single table.
//
// Builder values are immutable; every method returns a new Builder.
type Builder struct {
	client  *Client
	table   string
	columns []string
	query   filter.Query
	err     *Error
}

func (b *Builder) clone() *Builder {
	out := *b
	return &out
}

// Select sets the returned columns.
//
// Every column is always returned; the selection is only recorded.
func (b *Builder) Select(columns ...string) *Builder {
	out := b.clone()
	out.columns = columns
	return out
}

// Filter adds a condition using an operator name such as "eq" or "ilike".
func (b *Builder) Filter(column, op string, value any) *Builder {
	operator, err := filter.ParseOperator(op)
	if err != nil {
		return b.fail(newError(CodeInvalidFilter, "%s", err))
	}
	return b.where(column, operator, value)
}

func (b *Builder) Eq(column string, value any) *Builder {
	return b.where(column, filter.Equal, value)
}

func (b *Builder) Neq(column string, value any) *Builder {
	return b.where(column, filter.NotEqual, value)
}

func (b *Builder) Gt(column string, value any) *Builder {
	return b.where(column, filter.Greater, value)
}

func (b *Builder) Gte(column string, value any) *Builder {
	return b.where(column, filter.GreaterOrEqual, value)
}

func (b *Builder) Lt(column string, value any) *Builder {
	return b.where(column, filter.Less, value)
}

func (b *Builder) Lte(column string, value any) *Builder {
	return b.where(column, filter.LessOrEqual, value)
}

// Like matches rows whose column contains pattern with % markers removed.
func (b *Builder) Like(column, pattern string) *Builder {
	return b.where(column, filter.Like, pattern)
}

// ILike is a case insensitive Like.
func (b *Builder) ILike(column, pattern string) *Builder {
	return b.where(column, filter.ILike, pattern)
}

// Is matches rows whose column equals value, typically nil.
func (b *Builder) Is(column string, value any) *Builder {
	return b.where(column, filter.Is, value)
}

// IsNull matches rows where column is null or missing.
func (b *Builder) IsNull(column string) *Builder {
	return b.Is(column, nil)
}

// In matches rows whose column is one of values.
func (b *Builder) In(column string, values any) *Builder {
	return b.where(column, filter.In, values)
}

// Contains matches rows whose list column contains value or whose map column contains every pair in value.
func (b *Builder) Contains(column string, value any) *Builder {
	return b.where(column, filter.Contains, value)
}

// Order sorts the results by column.
func (b *Builder) Order(column string, desc bool) *Builder {
	out := b.clone()
	out.query.OrderBy = column
	out.query.Desc = desc
	return out
}

// Limit returns at most n rows. A value of zero or less removes the limit.
func (b *Builder) Limit(n int) *Builder {
	out := b.clone()
	out.query.Limit = n
	return out
}

// Offset skips the first n rows.
func (b *Builder) Offset(n int) *Builder {
	out := b.clone()
	out.query.Offset = n
	return out
}

func (b *Builder) where(column string, op filter.Operator, value any) *Builder {
	val, err := record.ValueOf(value)
	if err != nil {
		return b.fail(newError(CodeInvalidValue, "column %s: %s", column, err))
	}
	out := b.clone()
	out.query.Conditions = b.query.Conditions.Set(filter.Condition{Field: column, Op: op, Value: val})
	return out
}

func (b *Builder) fail(err *Error) *Builder {
	out := b.clone()
	if out.err == nil {
		out.err = err
	}
	return out
}

func (b *Builder) key() string {
	return keyPrefix + b.table
}

// Execute returns every matching row after filtering, sorting, and windowing in that order.
func (b *Builder) Execute(ctx context.Context) *Response {
	if b.err != nil {
		return errorResponse(b.err)
	}
	entries, err := b.client.store.Scan(ctx, b.key())
	if err != nil {
		return b.storageError(err)
	}
	entries, err = filter.Apply(entries, b.query)
	if err != nil {
		return errorResponse(newError(CodeInvalidFilter, "%s", err))
	}
	return dataResponse(entryRecords(entries))
}

// Insert appends rows to the table and returns them as stored.
//
// A missing id is allocated and a missing created_at is set to the current time.
// Inserting an id that already exists fails with a duplicate key error and
// no row of the batch is written.
func (b *Builder) Insert(ctx context.Context, rows ...map[string]any) *Response {
	recs := make([]record.Record, len(rows))
	entries := make([]storage.Entry, len(rows))
	for i, row := range rows {
		rec, err := record.FromMap(row)
		if err != nil {
			return errorResponse(newError(CodeInvalidValue, "%s", err))
		}
		id, ok := rec[ColumnID]
		if !ok || id.IsNull() {
			id = record.String(b.client.newID())
			rec[ColumnID] = id
		}
		if !validID(id) {
			return errorResponse(newError(CodeInvalidValue, "column %s must be a string or number", ColumnID))
		}
		if _, ok := rec[ColumnCreatedAt]; !ok {
			rec[ColumnCreatedAt] = record.String(b.client.timestamp())
		}
		recs[i] = rec
		entries[i] = storage.Entry{ID: id.Text(), Record: rec}
	}
	err := b.client.store.CreateAll(ctx, b.key(), entries)
	if errors.Is(err, storage.ErrExists) {
		return errorResponse(newError(CodeDuplicateKey, "%s", err))
	}
	if err != nil {
		return b.storageError(err)
	}
	return dataResponse(recs)
}

// Update merges data into every matching row and returns the updated rows.
//
// The updated_at column is set unless data supplies it. Changing a row id is rejected.
func (b *Builder) Update(ctx context.Context, data map[string]any) *Response {
	if b.err != nil {
		return errorResponse(b.err)
	}
	patch, err := record.FromMap(data)
	if err != nil {
		return errorResponse(newError(CodeInvalidValue, "%s", err))
	}
	if _, ok := patch[ColumnUpdatedAt]; !ok {
		patch[ColumnUpdatedAt] = record.String(b.client.timestamp())
	}
	newID, changesID := patch[ColumnID]

	var respErr *Error
	entries, err := b.client.store.UpdateWhere(ctx, b.key(), func(id string, rec record.Record) (record.Record, bool, error) {
		match, err := filter.Match(rec, b.query.Conditions)
		if err != nil {
			respErr = newError(CodeInvalidFilter, "%s", err)
			return nil, false, err
		}
		if !match {
			return nil, false, nil
		}
		if changesID && !newID.Equal(rec[ColumnID]) {
			respErr = newError(CodeImmutableColumn, "column %s cannot be updated", ColumnID)
			return nil, false, respErr
		}
		rec.Merge(patch)
		return rec, true, nil
	})
	if respErr != nil {
		return errorResponse(respErr)
	}
	if err != nil {
		return b.storageError(err)
	}
	return dataResponse(entryRecords(entries))
}

// Delete removes every matching row and returns the removed rows.
//
// Remaining rows keep their relative order.
func (b *Builder) Delete(ctx context.Context) *Response {
	if b.err != nil {
		return errorResponse(b.err)
	}
	var respErr *Error
	entries, err := b.client.store.DeleteWhere(ctx, b.key(), func(id string, rec record.Record) (bool, error) {
		match, err := filter.Match(rec, b.query.Conditions)
		if err != nil {
			respErr = newError(CodeInvalidFilter, "%s", err)
		}
		return match, err
	})
	if respErr != nil {
		return errorResponse(respErr)
	}
	if err != nil {
		return b.storageError(err)
	}
	return dataResponse(entryRecords(entries))
}

func (b *Builder) storageError(err error) *Response {
	b.client.logger.Error().Err(err).Str("table", b.table).Msg("storage failure")
	return errorResponse(newError(CodeStorage, "%s", err))
}

func validID(v record.Value) bool {
	switch v.Kind() {
	case record.KindString, record.KindNumber:
		return true
	default:
		return false
	}
}

func entryRecords(entries []storage.Entry) []record.Record {
	recs := make([]record.Record, len(entries))
	for i, e := range entries {
		recs[i] = e.Record
	}
	return recs
}
