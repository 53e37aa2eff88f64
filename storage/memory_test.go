package storage

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/nasdf/meeple/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPutGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	expect := record.Record{"name": record.String("Bob")}
	err := store.Put(ctx, "players", "1", expect)
	require.NoError(t, err)

	actual, err := store.Get(ctx, "players", "1")
	require.NoError(t, err)
	assert.True(t, expect.Equal(actual))

	// mutating the returned copy must not change the stored record
	actual["name"] = record.String("Alice")
	again, err := store.Get(ctx, "players", "1")
	require.NoError(t, err)
	assert.True(t, expect.Equal(again))
}

func TestMemoryGetNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	_, err := store.Get(ctx, "players", "1")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.Put(ctx, "players", "1", record.Record{})
	require.NoError(t, err)

	_, err = store.Get(ctx, "players", "2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryMerge(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	_, err := store.Merge(ctx, "players", "1", record.Record{"a": record.Int(1)}, false)
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := store.HasCollection(ctx, "players")
	require.NoError(t, err)
	assert.False(t, ok, "failed merge must not create the collection")

	rec, err := store.Merge(ctx, "players", "1", record.Record{"a": record.Int(1), "b": record.Int(2)}, true)
	require.NoError(t, err)
	assert.True(t, rec.Equal(record.Record{"a": record.Int(1), "b": record.Int(2)}))

	rec, err = store.Merge(ctx, "players", "1", record.Record{"b": record.Int(3)}, false)
	require.NoError(t, err)
	assert.True(t, rec.Equal(record.Record{"a": record.Int(1), "b": record.Int(3)}))
}

func TestMemoryScanOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	for _, id := range []string{"c", "a", "b"} {
		err := store.Put(ctx, "rows", id, record.Record{"id": record.String(id)})
		require.NoError(t, err)
	}
	// overwriting keeps the original position
	err := store.Put(ctx, "rows", "c", record.Record{"id": record.String("c"), "v": record.Int(1)})
	require.NoError(t, err)

	_, err = store.Delete(ctx, "rows", "a")
	require.NoError(t, err)

	entries, err := store.Scan(ctx, "rows")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].ID)
	assert.Equal(t, "b", entries[1].ID)

	entries, err = store.Scan(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMemoryDeleteKeepsCollection(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	err := store.Put(ctx, "rows", "1", record.Record{})
	require.NoError(t, err)

	_, err = store.Delete(ctx, "rows", "1")
	require.NoError(t, err)

	_, err = store.Delete(ctx, "rows", "1")
	assert.ErrorIs(t, err, ErrNotFound)

	names, err := store.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"rows"}, names)
}

func TestMemoryUpdateWhere(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	for i := 0; i < 4; i++ {
		err := store.Put(ctx, "rows", fmt.Sprint(i), record.Record{"n": record.Int(int64(i))})
		require.NoError(t, err)
	}
	updated, err := store.UpdateWhere(ctx, "rows", func(id string, rec record.Record) (record.Record, bool, error) {
		n, _ := rec["n"].AsNumber()
		if int(n)%2 != 0 {
			return nil, false, nil
		}
		rec["even"] = record.Bool(true)
		return rec, true, nil
	})
	require.NoError(t, err)
	require.Len(t, updated, 2)
	assert.Equal(t, "0", updated[0].ID)
	assert.Equal(t, "2", updated[1].ID)

	rec, err := store.Get(ctx, "rows", "2")
	require.NoError(t, err)
	assert.Equal(t, record.Bool(true), rec["even"])
}

func TestMemoryUpdateWhereFailureIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	for i := 0; i < 3; i++ {
		err := store.Put(ctx, "rows", fmt.Sprint(i), record.Record{"n": record.Int(int64(i))})
		require.NoError(t, err)
	}
	_, err := store.UpdateWhere(ctx, "rows", func(id string, rec record.Record) (record.Record, bool, error) {
		if id == "2" {
			return nil, false, fmt.Errorf("boom")
		}
		rec["n"] = record.Int(100)
		return rec, true, nil
	})
	require.Error(t, err)

	rec, err := store.Get(ctx, "rows", "0")
	require.NoError(t, err)
	assert.Equal(t, record.Int(0), rec["n"])
}

func TestMemoryDeleteWhere(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	for i := 0; i < 5; i++ {
		err := store.Put(ctx, "rows", fmt.Sprint(i), record.Record{"n": record.Int(int64(i))})
		require.NoError(t, err)
	}
	removed, err := store.DeleteWhere(ctx, "rows", func(id string, rec record.Record) (bool, error) {
		return id == "1" || id == "3", nil
	})
	require.NoError(t, err)
	require.Len(t, removed, 2)

	entries, err := store.Scan(ctx, "rows")
	require.NoError(t, err)

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	assert.Equal(t, []string{"0", "2", "4"}, ids)
}

func TestMemoryClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	err := store.Put(ctx, "rows", "1", record.Record{})
	require.NoError(t, err)

	err = store.Clear(ctx)
	require.NoError(t, err)

	names, err := store.Collections(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestMemoryDump(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	err := store.Put(ctx, "players", "1", record.Record{"name": record.String("Bob"), "level": record.Int(3)})
	require.NoError(t, err)

	var out bytes.Buffer
	err = store.Dump(ctx, &out)
	require.NoError(t, err)

	assert.Equal(t, "[players]: 1 records\n  1 {\"level\":3,\"name\":\"Bob\"}\n", out.String())
}

func TestMemoryConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := fmt.Sprintf("%d-%d", w, i)
				_ = store.Put(ctx, fmt.Sprintf("c%d", w%2), id, record.Record{"w": record.Int(int64(w))})
			}
		}(w)
	}
	wg.Wait()

	a, err := store.Scan(ctx, "c0")
	require.NoError(t, err)
	b, err := store.Scan(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, a, 400)
	assert.Len(t, b, 400)
}

func TestMemoryCreateAll(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	err := store.CreateAll(ctx, "rows", []Entry{
		{ID: "1", Record: record.Record{"n": record.Int(1)}},
		{ID: "2", Record: record.Record{"n": record.Int(2)}},
	})
	require.NoError(t, err)

	err = store.CreateAll(ctx, "rows", []Entry{
		{ID: "3", Record: record.Record{"n": record.Int(3)}},
		{ID: "1", Record: record.Record{"n": record.Int(10)}},
	})
	assert.ErrorIs(t, err, ErrExists)

	err = store.CreateAll(ctx, "rows", []Entry{
		{ID: "4", Record: record.Record{"n": record.Int(4)}},
		{ID: "4", Record: record.Record{"n": record.Int(5)}},
	})
	assert.ErrorIs(t, err, ErrExists)

	entries, err := store.Scan(ctx, "rows")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "1", entries[0].ID)
	assert.Equal(t, "2", entries[1].ID)
	assert.True(t, entries[0].Record.Equal(record.Record{"n": record.Int(1)}))
}

func TestMemoryCreateAllConcurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				shared := strconv.Itoa(i)
				own := fmt.Sprintf("%d-%d", w, i)
				err := store.CreateAll(ctx, "rows", []Entry{
					{ID: own, Record: record.Record{}},
					{ID: shared, Record: record.Record{}},
				})
				if err != nil {
					assert.ErrorIs(t, err, ErrExists)
				}
			}
		}(w)
	}
	wg.Wait()

	entries, err := store.Scan(ctx, "rows")
	require.NoError(t, err)
	// exactly one batch per shared id wins and every winning batch is complete
	assert.Len(t, entries, 200)
}

func TestDumpPrefix(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	err := store.Put(ctx, "tables:players", "1", record.Record{"name": record.String("Bob")})
	require.NoError(t, err)
	err = store.Put(ctx, "documents:players", "2", record.Record{"name": record.String("Alice")})
	require.NoError(t, err)

	var out bytes.Buffer
	err = Dump(ctx, store, &out, "tables:")
	require.NoError(t, err)
	assert.Equal(t, "[players]: 1 records\n  1 {\"name\":\"Bob\"}\n", out.String())

	err = DropPrefix(ctx, store, "tables:")
	require.NoError(t, err)

	names, err := store.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"documents:players"}, names)
}
