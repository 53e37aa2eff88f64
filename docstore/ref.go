package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nasdf/meeple/record"
	"github.com/nasdf/meeple/storage"
)

// CollectionRef is a reference to a collection of documents.
//
// The embedded Query matches every document in the collection.
type CollectionRef struct {
	Query

	// ID is the last segment of the collection path.
	ID string
	// Path is the full slash separated path of the collection.
	Path string

	client *Client
	parent *DocumentRef
}

func (c *Client) newCollectionRef(parent *DocumentRef, id string) *CollectionRef {
	path := id
	if parent != nil {
		path = parent.Path + pathSeparator + id
	}
	return &CollectionRef{
		Query:  newQuery(c, path),
		ID:     id,
		Path:   path,
		client: c,
		parent: parent,
	}
}

// Parent returns the document containing this collection, or nil for a top level collection.
func (c *CollectionRef) Parent() *DocumentRef {
	return c.parent
}

// Doc returns a reference to the document with the given id.
//
// An empty id allocates a new unique id. Nil is returned if the id contains a path separator.
func (c *CollectionRef) Doc(id string) *DocumentRef {
	if id == "" {
		return c.NewDoc()
	}
	if strings.Contains(id, pathSeparator) {
		return nil
	}
	return &DocumentRef{
		ID:     id,
		Path:   c.Path + pathSeparator + id,
		client: c.client,
		parent: c,
	}
}

// NewDoc returns a reference to a document with a newly allocated id.
func (c *CollectionRef) NewDoc() *DocumentRef {
	return c.Doc(c.client.newID())
}

// Add creates a document with a newly allocated id and the given data.
func (c *CollectionRef) Add(ctx context.Context, data map[string]any) (*DocumentRef, error) {
	ref := c.NewDoc()
	if err := ref.Set(ctx, data); err != nil {
		return nil, err
	}
	return ref, nil
}

// DocumentRef is a reference to a single document.
//
// Creating a reference never reads or writes storage.
type DocumentRef struct {
	// ID is the last segment of the document path.
	ID string
	// Path is the full slash separated path of the document.
	Path string

	client *Client
	parent *CollectionRef
}

// Parent returns the collection containing this document.
func (d *DocumentRef) Parent() *CollectionRef {
	return d.parent
}

// Collection returns a reference to the sub-collection with the given name.
//
// Nil is returned if the name is empty or contains a path separator.
func (d *DocumentRef) Collection(name string) *CollectionRef {
	if name == "" || strings.Contains(name, pathSeparator) {
		return nil
	}
	return d.client.newCollectionRef(d, name)
}

// Get returns a snapshot of the document.
//
// A missing document is not an error; the snapshot reports it does not exist.
func (d *DocumentRef) Get(ctx context.Context) (*Snapshot, error) {
	rec, err := d.client.store.Get(ctx, d.parent.key(), d.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return newSnapshot(d, nil, d.client.now()), nil
	}
	if err != nil {
		return nil, err
	}
	return newSnapshot(d, rec, d.client.now()), nil
}

type setOptions struct {
	merge bool
}

// SetOption changes the behavior of Set.
type SetOption func(*setOptions)

// MergeAll makes Set merge the given fields into the document instead of replacing it.
var MergeAll SetOption = func(o *setOptions) {
	o.merge = true
}

// Set writes the document, creating it if it does not exist.
//
// Without MergeAll the document is replaced by data.
func (d *DocumentRef) Set(ctx context.Context, data map[string]any, opts ...SetOption) error {
	var options setOptions
	for _, opt := range opts {
		opt(&options)
	}
	rec, err := record.FromMap(data)
	if err != nil {
		return err
	}
	if options.merge {
		_, err = d.client.store.Merge(ctx, d.parent.key(), d.ID, rec, true)
	} else {
		err = d.client.store.Put(ctx, d.parent.key(), d.ID, rec)
	}
	if err != nil {
		return err
	}
	d.client.notify(ctx, d)
	return nil
}

// Update merges the given fields into an existing document.
//
// ErrNotFound is returned if the collection or document does not exist.
func (d *DocumentRef) Update(ctx context.Context, data map[string]any) error {
	rec, err := record.FromMap(data)
	if err != nil {
		return err
	}
	_, err = d.client.store.Merge(ctx, d.parent.key(), d.ID, rec, false)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, d.Path)
	}
	if err != nil {
		return err
	}
	d.client.notify(ctx, d)
	return nil
}

// Delete removes the document.
//
// Deleting a document that does not exist does nothing. Sub-collections are not removed.
func (d *DocumentRef) Delete(ctx context.Context) error {
	_, err := d.client.store.Delete(ctx, d.parent.key(), d.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	d.client.notify(ctx, d)
	return nil
}

// Subscribe registers fn to receive a snapshot of the document now and after every change.
func (d *DocumentRef) Subscribe(fn DocumentListener) *Subscription {
	return d.client.listeners.subscribe(documentKey(d.Path), func(ctx context.Context) error {
		snap, err := d.Get(ctx)
		if err != nil {
			return err
		}
		return fn(snap)
	})
}

// key returns the storage collection name for this collection.
func (c *CollectionRef) key() string {
	return collectionKey(c.Path)
}

// notify delivers the current state to listeners of the document and of its collection.
func (c *Client) notify(ctx context.Context, d *DocumentRef) {
	c.listeners.notify(ctx, documentKey(d.Path))
	c.listeners.notify(ctx, queryKey(d.parent.Path))
}
