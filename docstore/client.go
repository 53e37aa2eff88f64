package docstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nasdf/meeple/log"
	"github.com/nasdf/meeple/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound      = fmt.Errorf("document %w", storage.ErrNotFound)
	ErrFieldNotFound = errors.New("field not found")
	ErrInvalidPath   = errors.New("invalid document path")
	ErrIteratorDone  = errors.New("no more documents in iterator")
)

// keyPrefix namespaces document collections within the shared storage.
const keyPrefix = "documents:"

// pathSeparator separates collection and document segments in a path.
const pathSeparator = "/"

// Client is the entry point to the document dialect.
type Client struct {
	store     storage.Storage
	logger    zerolog.Logger
	newID     func() string
	now       func() time.Time
	listeners *registry
}

type Option func(*Client)

// WithLogger sets the logger used to report listener failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithIDGenerator sets the function used to allocate document ids.
func WithIDGenerator(fn func() string) Option {
	return func(c *Client) {
		c.newID = fn
	}
}

// WithClock sets the function used to stamp snapshot read times.
func WithClock(fn func() time.Time) Option {
	return func(c *Client) {
		c.now = fn
	}
}

// New returns a document client backed by the given storage.
func New(store storage.Storage, opts ...Option) *Client {
	c := &Client{
		store:  store,
		logger: log.Documents,
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.listeners = newRegistry(c.logger)
	return c
}

// Collection returns a reference to the collection at the given path.
//
// The path must contain an odd number of segments. Nil is returned for an invalid path.
func (c *Client) Collection(path string) *CollectionRef {
	parts, ok := splitPath(path)
	if !ok || len(parts)%2 != 1 {
		return nil
	}
	col := c.newCollectionRef(nil, parts[0])
	for i := 1; i < len(parts); i += 2 {
		col = col.Doc(parts[i]).Collection(parts[i+1])
	}
	return col
}

// Doc returns a reference to the document at the given path.
//
// The path must contain an even number of segments. Nil is returned for an invalid path.
func (c *Client) Doc(path string) *DocumentRef {
	parts, ok := splitPath(path)
	if !ok || len(parts)%2 != 0 {
		return nil
	}
	col := c.Collection(strings.Join(parts[:len(parts)-1], pathSeparator))
	return col.Doc(parts[len(parts)-1])
}

// Dump writes every document collection to w.
//
// This function is primarily used for testing.
func (c *Client) Dump(ctx context.Context, w io.Writer) error {
	return storage.Dump(ctx, c.store, w, keyPrefix)
}

// Clear removes every document collection.
//
// Registered listeners are kept but are not notified.
func (c *Client) Clear(ctx context.Context) error {
	err := storage.DropPrefix(ctx, c.store, keyPrefix)
	if err != nil {
		return err
	}
	c.logger.Info().Msg("document data cleared")
	return nil
}

func splitPath(path string) ([]string, bool) {
	path = strings.Trim(path, pathSeparator)
	if path == "" {
		return nil, false
	}
	parts := strings.Split(path, pathSeparator)
	for _, p := range parts {
		if p == "" {
			return nil, false
		}
	}
	return parts, true
}
