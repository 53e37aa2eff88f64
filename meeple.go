// Package meeple opens the document and relational backends used by the lobby service.
//
// Each dialect connects to a real service when credentials are configured and
// a connector is registered for it. Otherwise it falls back to a shared
// in-memory storage substrate.
package meeple

import (
	"context"
	"fmt"
	"io"

	"github.com/nasdf/meeple/config"
	"github.com/nasdf/meeple/docstore"
	"github.com/nasdf/meeple/log"
	"github.com/nasdf/meeple/storage"
	"github.com/nasdf/meeple/tablestore"

	"github.com/rs/zerolog"
)

const (
	StatusConnected = "connected"
	StatusMock      = "mock_mode"
)

// maxInfoURL is the number of url characters shown in ConnectionInfo.
const maxInfoURL = 40

// Connector returns the storage for a remote backend.
type Connector func(ctx context.Context, cfg *config.Config) (storage.Storage, error)

// ConnectionInfo describes how a dialect is backed.
type ConnectionInfo struct {
	Mock   bool   `json:"is_mock"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

// Backends holds the clients for both dialects.
type Backends struct {
	// Storage is the in-memory substrate shared by every emulated dialect.
	Storage   storage.Storage
	Documents *docstore.Client
	Tables    *tablestore.Client

	documentsInfo ConnectionInfo
	tablesInfo    ConnectionInfo
}

type options struct {
	store     storage.Storage
	logger    zerolog.Logger
	documents Connector
	tables    Connector
}

type Option func(*options)

// WithStorage sets the substrate used by emulated dialects.
func WithStorage(store storage.Storage) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithLogger sets the logger used to report backend selection.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDocumentsConnector registers the connector for a remote document database.
func WithDocumentsConnector(fn Connector) Option {
	return func(o *options) {
		o.documents = fn
	}
}

// WithTablesConnector registers the connector for a remote relational service.
func WithTablesConnector(fn Connector) Option {
	return func(o *options) {
		o.tables = fn
	}
}

// Open returns the backends selected by the given config.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Backends, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	o := options{logger: log.Root}
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		o.store = storage.NewMemory()
	}

	docStore, docRemote := connect(ctx, o, "documents", cfg.Documents.Configured(), o.documents, cfg)
	tableStore, tableRemote := connect(ctx, o, "tables", cfg.Tables.Configured(), o.tables, cfg)

	return &Backends{
		Storage:       o.store,
		Documents:     docstore.New(docStore),
		Tables:        tablestore.New(tableStore),
		documentsInfo: newConnectionInfo(docRemote, ""),
		tablesInfo:    newConnectionInfo(tableRemote, cfg.Tables.URL),
	}, nil
}

// connect returns the remote storage for a dialect or the shared substrate if it cannot be used.
func connect(ctx context.Context, o options, name string, configured bool, fn Connector, cfg *config.Config) (storage.Storage, bool) {
	logger := o.logger.With().Str("backend", name).Logger()
	switch {
	case !configured:
		logger.Info().Msg("credentials not set, using emulator")
	case fn == nil:
		logger.Warn().Msg("no connector registered, using emulator")
	default:
		store, err := fn(ctx, cfg)
		if err == nil {
			logger.Info().Msg("connected")
			return store, true
		}
		logger.Warn().Err(err).Msg("connection failed, using emulator")
	}
	return o.store, false
}

func newConnectionInfo(remote bool, url string) ConnectionInfo {
	if len(url) > maxInfoURL {
		url = url[:maxInfoURL] + "..."
	}
	if !remote {
		return ConnectionInfo{Mock: true, URL: url, Status: StatusMock}
	}
	return ConnectionInfo{URL: url, Status: StatusConnected}
}

// Info returns the connection info of the relational dialect.
func (b *Backends) Info() ConnectionInfo {
	return b.tablesInfo
}

// DocumentsInfo returns the connection info of the document dialect.
func (b *Backends) DocumentsInfo() ConnectionInfo {
	return b.documentsInfo
}

// Connected returns true if the relational dialect uses a remote service.
func (b *Backends) Connected() bool {
	return !b.tablesInfo.Mock
}

// Dump writes the contents of both dialects to w.
//
// This function is primarily used for testing.
func (b *Backends) Dump(ctx context.Context, w io.Writer) error {
	if _, err := io.WriteString(w, "=== documents ===\n"); err != nil {
		return err
	}
	if err := b.Documents.Dump(ctx, w); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "=== tables ===\n"); err != nil {
		return err
	}
	return b.Tables.Dump(ctx, w)
}

// Clear removes all data from both dialects.
func (b *Backends) Clear(ctx context.Context) error {
	if err := b.Documents.Clear(ctx); err != nil {
		return err
	}
	return b.Tables.Clear(ctx)
}
