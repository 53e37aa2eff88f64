package storage

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sort"
	"sync"

	"github.com/nasdf/meeple/record"
)

type collection struct {
	mu   sync.Mutex
	ids  []string
	docs map[string]record.Record
}

func newCollection() *collection {
	return &collection{
		docs: make(map[string]record.Record),
	}
}

func (c *collection) put(id string, rec record.Record) {
	if _, ok := c.docs[id]; !ok {
		c.ids = append(c.ids, id)
	}
	c.docs[id] = rec
}

func (c *collection) remove(id string) {
	delete(c.docs, id)
	c.ids = slices.DeleteFunc(c.ids, func(v string) bool { return v == id })
}

// Memory is a Storage that keeps every collection in process memory.
//
// Each collection has its own lock so writers to different collections
// never block each other.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]*collection),
	}
}

// lookup returns the named collection, creating it if create is true.
func (m *Memory) lookup(name string, create bool) *collection {
	m.mu.RLock()
	c, ok := m.collections[name]
	m.mu.RUnlock()
	if ok || !create {
		return c
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok = m.collections[name]
	if !ok {
		c = newCollection()
		m.collections[name] = c
	}
	return c
}

func (m *Memory) Get(ctx context.Context, name, id string) (record.Record, error) {
	c := m.lookup(name, false)
	if c == nil {
		return nil, ErrNotFound
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (m *Memory) CreateAll(ctx context.Context, name string, entries []Entry) error {
	c := m.lookup(name, true)
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := c.docs[e.ID]; ok {
			return fmt.Errorf("%w: %s", ErrExists, e.ID)
		}
		if _, ok := seen[e.ID]; ok {
			return fmt.Errorf("%w: %s", ErrExists, e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	for _, e := range entries {
		rec := e.Record
		if rec == nil {
			rec = record.Record{}
		}
		c.put(e.ID, rec.Clone())
	}
	return nil
}

func (m *Memory) Put(ctx context.Context, name, id string, rec record.Record) error {
	c := m.lookup(name, true)
	c.mu.Lock()
	defer c.mu.Unlock()

	if rec == nil {
		rec = record.Record{}
	}
	c.put(id, rec.Clone())
	return nil
}

func (m *Memory) Merge(ctx context.Context, name, id string, patch record.Record, create bool) (record.Record, error) {
	c := m.lookup(name, create)
	if c == nil {
		return nil, ErrNotFound
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.docs[id]
	if !ok && !create {
		return nil, ErrNotFound
	}
	if !ok {
		rec = record.Record{}
	}
	rec.Merge(patch)
	c.put(id, rec)
	return rec.Clone(), nil
}

func (m *Memory) Delete(ctx context.Context, name, id string) (record.Record, error) {
	c := m.lookup(name, false)
	if c == nil {
		return nil, ErrNotFound
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.remove(id)
	return rec, nil
}

func (m *Memory) Scan(ctx context.Context, name string) ([]Entry, error) {
	c := m.lookup(name, false)
	if c == nil {
		return []Entry{}, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make([]Entry, len(c.ids))
	for i, id := range c.ids {
		entries[i] = Entry{ID: id, Record: c.docs[id].Clone()}
	}
	return entries, nil
}

func (m *Memory) UpdateWhere(ctx context.Context, name string, fn UpdateFunc) ([]Entry, error) {
	c := m.lookup(name, false)
	if c == nil {
		return []Entry{}, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// compute every update before applying any so a failure leaves the collection untouched
	updates := make(map[string]record.Record)
	for _, id := range c.ids {
		rec, ok, err := fn(id, c.docs[id].Clone())
		if err != nil {
			return nil, err
		}
		if ok {
			updates[id] = rec
		}
	}
	entries := make([]Entry, 0, len(updates))
	for _, id := range c.ids {
		rec, ok := updates[id]
		if !ok {
			continue
		}
		c.docs[id] = rec
		entries = append(entries, Entry{ID: id, Record: rec.Clone()})
	}
	return entries, nil
}

func (m *Memory) DeleteWhere(ctx context.Context, name string, fn MatchFunc) ([]Entry, error) {
	c := m.lookup(name, false)
	if c == nil {
		return []Entry{}, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed []Entry
	remaining := make([]string, 0, len(c.ids))
	for _, id := range c.ids {
		match, err := fn(id, c.docs[id].Clone())
		if err != nil {
			return nil, err
		}
		if match {
			removed = append(removed, Entry{ID: id, Record: c.docs[id]})
		} else {
			remaining = append(remaining, id)
		}
	}
	for _, e := range removed {
		delete(c.docs, e.ID)
	}
	c.ids = remaining
	return removed, nil
}

func (m *Memory) HasCollection(ctx context.Context, name string) (bool, error) {
	return m.lookup(name, false) != nil, nil
}

func (m *Memory) Collections(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.collections = make(map[string]*collection)
	return nil
}

func (m *Memory) Drop(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.collections, name)
	return nil
}

// Dump writes every collection and record to w.
//
// This function is primarily used for testing.
func (m *Memory) Dump(ctx context.Context, w io.Writer) error {
	return Dump(ctx, m, w, "")
}
