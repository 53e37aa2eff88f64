// Package tablestore emulates a relational table service in memory.
//
// Tables are queried through an immutable fluent Builder. Filters are
// recorded one per column, so a later filter on the same column replaces the
// earlier one. Every terminal call answers with a Response; malformed queries
// and unsupported calls are reported in Response.Error instead of a Go error.
package tablestore

import (
	"context"
	"io"
	"time"

	"github.com/nasdf/meeple/log"
	"github.com/nasdf/meeple/record"
	"github.com/nasdf/meeple/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// keyPrefix namespaces tables within the shared storage.
const keyPrefix = "tables:"

// Column names maintained by the emulator.
const (
	ColumnID        = "id"
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
)

// Client is the entry point to the relational dialect.
type Client struct {
	store  storage.Storage
	logger zerolog.Logger
	newID  func() string
	now    func() time.Time
}

type Option func(*Client)

// WithLogger sets the logger used by the client.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithIDGenerator sets the function used to allocate row ids.
func WithIDGenerator(fn func() string) Option {
	return func(c *Client) {
		c.newID = fn
	}
}

// WithClock sets the function used for created_at and updated_at timestamps.
func WithClock(fn func() time.Time) Option {
	return func(c *Client) {
		c.now = fn
	}
}

// New returns a table client backed by the given storage.
func New(store storage.Storage, opts ...Option) *Client {
	c := &Client{
		store:  store,
		logger: log.Tables,
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Table returns a query builder for the named table.
func (c *Client) Table(name string) *Builder {
	return &Builder{client: c, table: name}
}

// From is an alias for Table.
func (c *Client) From(name string) *Builder {
	return c.Table(name)
}

// RPC calls a stored procedure.
//
// Stored procedures are not available in emulation mode and always answer with a not supported error.
func (c *Client) RPC(ctx context.Context, fn string, params map[string]any) *Response {
	c.logger.Warn().Str("function", fn).Msg("rpc not supported in emulation mode")
	return errorResponse(newError(CodeNotSupported, "rpc %s is not supported in emulation mode", fn))
}

// Dump writes every table to w.
//
// This function is primarily used for testing.
func (c *Client) Dump(ctx context.Context, w io.Writer) error {
	return storage.Dump(ctx, c.store, w, keyPrefix)
}

// Clear removes every table.
func (c *Client) Clear(ctx context.Context) error {
	err := storage.DropPrefix(ctx, c.store, keyPrefix)
	if err != nil {
		return err
	}
	c.logger.Info().Msg("table data cleared")
	return nil
}

// timestamp returns the current time in the format stored in timestamp columns.
func (c *Client) timestamp() string {
	return c.now().UTC().Format(record.TimeFormat)
}
