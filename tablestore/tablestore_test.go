package tablestore

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nasdf/meeple/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func newTestClient(opts ...Option) *Client {
	opts = append([]Option{WithClock(func() time.Time { return testTime })}, opts...)
	return New(storage.NewMemory(), opts...)
}

func insertPlayers(t *testing.T, client *Client) {
	res := client.Table("players").Insert(context.Background(),
		map[string]any{"id": "p1", "username": "alice", "level": 5, "status": "online", "priority": 3},
		map[string]any{"id": "p2", "username": "Bob", "level": 2, "status": "offline", "priority": 1},
		map[string]any{"id": "p3", "username": "carol", "level": 8, "status": "online", "priority": 2},
		map[string]any{"id": "p4", "username": "dave", "status": "away"},
	)
	require.NoError(t, res.Err())
	require.Len(t, res.Data, 4)
}

func TestInsertAssignsIDAndCreatedAt(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(WithIDGenerator(func() string { return "generated" }))

	res := client.Table("players").Insert(ctx, map[string]any{"username": "alice"})
	require.NoError(t, res.Err())
	require.Len(t, res.Data, 1)

	rows := res.Rows()
	assert.Equal(t, "generated", rows[0]["id"])
	assert.Equal(t, "2024-05-06T07:08:09.000000Z", rows[0]["created_at"])
	assert.Equal(t, "alice", rows[0]["username"])

	res = client.Table("players").Insert(ctx, map[string]any{"id": "p2", "created_at": "yesterday"})
	require.NoError(t, res.Err())
	assert.Equal(t, "yesterday", res.Rows()[0]["created_at"])
}

func TestInsertUniqueIDs(t *testing.T) {
	ctx := context.Background()
	client := New(storage.NewMemory())
	table := client.Table("events")

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		res := table.Insert(ctx, map[string]any{"n": i})
		require.NoError(t, res.Err())

		id := res.Rows()[0]["id"].(string)
		_, ok := seen[id]
		require.False(t, ok, "duplicate id %s", id)
		seen[id] = struct{}{}

		if i%4 == 0 {
			res = table.Eq("id", id).Delete(ctx)
			require.NoError(t, res.Err())
		}
	}
	assert.Len(t, seen, 1000)
}

func TestInsertDuplicateID(t *testing.T) {
	ctx := context.Background()
	client := newTestClient()
	insertPlayers(t, client)

	res := client.Table("players").Insert(ctx,
		map[string]any{"id": "p9", "username": "erin"},
		map[string]any{"id": "p1", "username": "impostor"},
	)
	require.NotNil(t, res.Error)
	assert.Equal(t, CodeDuplicateKey, res.Error.Code)
	assert.Empty(t, res.Data)

	// the batch is rejected as a whole
	res = client.Table("players").Eq("id", "p9").Execute(ctx)
	require.NoError(t, res.Err())
	assert.Empty(t, res.Data)

	res = client.Table("players").Insert(ctx,
		map[string]any{"id": "x"},
		map[string]any{"id": "x"},
	)
	require.NotNil(t, res.Error)
	assert.Equal(t, CodeDuplicateKey, res.Error.Code)
}

func TestInsertConcurrentBatchesAreAtomic(t *testing.T) {
	ctx := context.Background()
	client := newTestClient()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				res := client.Table("events").Insert(ctx,
					map[string]any{"id": fmt.Sprintf("own-%d-%d", w, i)},
					map[string]any{"id": fmt.Sprintf("shared-%d", i)},
				)
				if res.Error != nil {
					assert.Equal(t, CodeDuplicateKey, res.Error.Code)
				}
			}
		}(w)
	}
	wg.Wait()

	res := client.Table("events").Like("id", "own-%").Execute(ctx)
	require.NoError(t, res.Err())
	assert.Len(t, res.Data, 50)
}

func TestInsertLargeNumericIDs(t *testing.T) {
	ctx := context.Background()
	client := newTestClient()

	large := int64(1) << 53
	res := client.Table("orders").Insert(ctx,
		map[string]any{"id": large},
		map[string]any{"id": large + 1},
		map[string]any{"id": int64(math.MaxInt64)},
	)
	require.NoError(t, res.Err())

	res = client.Table("orders").Eq("id", large+1).Execute(ctx)
	require.NoError(t, res.Err())
	require.Len(t, res.Data, 1)
	assert.Equal(t, large+1, res.Rows()[0]["id"])

	res = client.Table("orders").Order("id", true).Limit(1).Execute(ctx)
	require.NoError(t, res.Err())
	assert.Equal(t, int64(math.MaxInt64), res.Rows()[0]["id"])

	res = client.Table("orders").Insert(ctx, map[string]any{"id": uint64(math.MaxUint64)})
	require.NotNil(t, res.Error)
	assert.Equal(t, CodeInvalidValue, res.Error.Code)
}

func TestInsertInvalidValue(t *testing.T) {
	ctx := context.Background()
	client := newTestClient()

	res := client.Table("players").Insert(ctx, map[string]any{"id": []string{"a"}})
	require.NotNil(t, res.Error)
	assert.Equal(t, CodeInvalidValue, res.Error.Code)

	res = client.Table("players").Insert(ctx, map[string]any{"ch": make(chan int)})
	require.NotNil(t, res.Error)
	assert.Equal(t, CodeInvalidValue, res.Error.Code)
}

func TestExecuteFilters(t *testing.T) {
	ctx := context.Background()
	client := newTestClient()
	insertPlayers(t, client)
	players := client.Table("players")

	tests := []struct {
		name   string
		query  *Builder
		expect []string
	}{
		{"all", players, []string{"p1", "p2", "p3", "p4"}},
		{"eq", players.Eq("status", "online"), []string{"p1", "p3"}},
		{"neq", players.Neq("status", "online"), []string{"p2", "p4"}},
		{"gt", players.Gt("level", 2), []string{"p1", "p3"}},
		{"gte", players.Gte("level", 2), []string{"p1", "p2", "p3"}},
		{"lt missing field", players.Lt("level", 6), []string{"p1", "p2"}},
		{"lte", players.Lte("level", 8), []string{"p1", "p2", "p3"}},
		{"like", players.Like("username", "%aro%"), []string{"p3"}},
		{"like case sensitive", players.Like("username", "bob"), []string{}},
		{"ilike", players.ILike("username", "%BOB%"), []string{"p2"}},
		{"is null", players.IsNull("level"), []string{"p4"}},
		{"in", players.In("status", []string{"away", "offline"}), []string{"p2", "p4"}},
		{"filter", players.Filter("level", "gte", 5), []string{"p1", "p3"}},
		{"and", players.Eq("status", "online").Gt("level", 6), []string{"p3"}},
		{"same column replaces", players.Eq("status", "online").Eq("status", "away"), []string{"p4"}},
		{"select is ignored", players.Select("id").Eq("id", "p2"), []string{"p2"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			res := test.query.Execute(ctx)
			require.NoError(t, res.Err())
			assert.Equal(t, test.expect, rowIDs(res))
		})
	}
}

func TestExecuteContains(t *testing.T) {
	ctx := context.Background()
	client := newTestClient()

	res := client.Table("decks").Insert(ctx,
		map[string]any{"id": "d1", "tags": []string{"red", "fast"}, "meta": map[string]any{"owner": "u1", "public": true}},
		map[string]any{"id": "d2", "tags": []string{"blue"}, "meta": map[string]any{"owner": "u2", "public": true}},
		map[string]any{"id": "d3", "tags": "red"},
	)
	require.NoError(t, res.Err())

	res = client.Table("decks").Contains("tags", "red").Execute(ctx)
	require.NoError(t, res.Err())
	assert.Equal(t, []string{"d1"}, rowIDs(res))

	res = client.Table("decks").Contains("meta", map[string]any{"public": true, "owner": "u2"}).Execute(ctx)
	require.NoError(t, res.Err())
	assert.Equal(t, []string{"d2"}, rowIDs(res))
}

func TestExecuteOrder(t *testing.T) {
	ctx := context.Background()
	client := newTestClient()

	res := client.Table("tasks").Insert(ctx,
		map[string]any{"id": "a", "priority": 3},
		map[string]any{"id": "b", "priority": 1},
		map[string]any{"id": "c", "priority": 2},
	)
	require.NoError(t, res.Err())

	res = client.Table("tasks").Order("priority", false).Execute(ctx)
	require.NoError(t, res.Err())
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, column(res, "priority"))

	res = client.Table("tasks").Order("priority", true).Execute(ctx)
	require.NoError(t, res.Err())
	assert.Equal(t, []any{int64(3), int64(2), int64(1)}, column(res, "priority"))
}

func TestExecuteWindow(t *testing.T) {
	ctx := context.Background()
	client := newTestClient()
	insertPlayers(t, client)
	players := client.Table("players").Order("id", false)

	res := players.Limit(2).Execute(ctx)
	require.NoError(t, res.Err())
	assert.Equal(t, []string{"p1", "p2"}, rowIDs(res))

	res = players.Offset(1).Limit(2).Execute(ctx)
	require.NoError(t, res.Err())
	assert.Equal(t, []string{"p2", "p3"}, rowIDs(res))

	res = players.Offset(3).Execute(ctx)
	require.NoError(t, res.Err())
	assert.Equal(t, []string{"p4"}, rowIDs(res))

	res = players.Offset(10).Execute(ctx)
	require.NoError(t, res.Err())
	assert.Empty(t, res.Data)

	// offset applies after the filter
	res = players.Eq("status", "online").Offset(1).Execute(ctx)
	require.NoError(t, res.Err())
	assert.Equal(t, []string{"p3"}, rowIDs(res))
}

func TestBuilderIsImmutable(t *testing.T) {
	ctx := context.Background()
	client := newTestClient()
	insertPlayers(t, client)

	online := client.Table("players").Eq("status", "online")
	_ = online.Gt("level", 6).Limit(1)

	res := online.Execute(ctx)
	require.NoError(t, res.Err())
	assert.Equal(t, []string{"p1", "p3"}, rowIDs(res))
}

func TestExecuteUnknownTable(t *testing.T) {
	res := newTestClient().Table("missing").Execute(context.Background())
	require.NoError(t, res.Err())
	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Data)
}

func TestInvalidFilter(t *testing.T) {
	ctx := context.Background()
	client := newTestClient()
	insertPlayers(t, client)

	res := client.Table("players").Filter("level", "~", 1).Execute(ctx)
	require.NotNil(t, res.Error)
	assert.Equal(t, CodeInvalidFilter, res.Error.Code)

	res = client.Table("players").In("status", "online").Execute(ctx)
	require.NotNil(t, res.Error)
	assert.Equal(t, CodeInvalidFilter, res.Error.Code)

	res = client.Table("players").In("status", "online").Delete(ctx)
	require.NotNil(t, res.Error)
	assert.Equal(t, CodeInvalidFilter, res.Error.Code)

	res = client.Table("players").Eq("id", func() {}).Execute(ctx)
	require.NotNil(t, res.Error)
	assert.Equal(t, CodeInvalidValue, res.Error.Code)

	// nothing was removed by the failed delete
	res = client.Table("players").Execute(ctx)
	require.NoError(t, res.Err())
	assert.Len(t, res.Data, 4)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	client := newTestClient()
	insertPlayers(t, client)

	later := testTime.Add(time.Hour)
	client.now = func() time.Time { return later }

	res := client.Table("players").Eq("status", "online").Update(ctx, map[string]any{"status": "in_game"})
	require.NoError(t, res.Err())
	require.Equal(t, []string{"p1", "p3"}, rowIDs(res))

	for _, row := range res.Rows() {
		assert.Equal(t, "in_game", row["status"])
		assert.Equal(t, "2024-05-06T07:08:09.000000Z", row["created_at"])
		assert.Equal(t, "2024-05-06T08:08:09.000000Z", row["updated_at"])
	}

	res = client.Table("players").Eq("id", "p1").Execute(ctx)
	require.NoError(t, res.Err())
	row := res.Rows()[0]
	assert.Equal(t, "alice", row["username"])
	assert.Equal(t, int64(5), row["level"])
	assert.Equal(t, "in_game", row["status"])

	res = client.Table("players").Eq("id", "p2").Execute(ctx)
	require.NoError(t, res.Err())
	assert.NotContains(t, res.Rows()[0], "updated_at")
}

func TestUpdateNoMatch(t *testing.T) {
	ctx := context.Background()
	client := newTestClient()

	res := client.Table("players").Eq("id", "p1").Update(ctx, map[string]any{"level": 1})
	require.NoError(t, res.Err())
	assert.Empty(t, res.Data)

	insertPlayers(t, client)
	res = client.Table("players").Eq("id", "nobody").Update(ctx, map[string]any{"level": 1})
	require.NoError(t, res.Err())
	assert.Empty(t, res.Data)
}

func TestUpdateRejectsIDChange(t *testing.T) {
	ctx := context.Background()
	client := newTestClient()
	insertPlayers(t, client)

	res := client.Table("players").Eq("status", "online").Update(ctx, map[string]any{"id": "p1", "level": 9})
	require.NotNil(t, res.Error)
	assert.Equal(t, CodeImmutableColumn, res.Error.Code)

	// the failed update leaves every row untouched
	res = client.Table("players").Eq("id", "p1").Execute(ctx)
	require.NoError(t, res.Err())
	assert.Equal(t, int64(5), res.Rows()[0]["level"])

	res = client.Table("players").Eq("id", "p1").Update(ctx, map[string]any{"id": "p1", "level": 9})
	require.NoError(t, res.Err())
	assert.Equal(t, int64(9), res.Rows()[0]["level"])
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	client := newTestClient()
	insertPlayers(t, client)

	before := client.Table("players").Neq("status", "online").Execute(ctx)
	require.NoError(t, before.Err())

	res := client.Table("players").Eq("status", "online").Delete(ctx)
	require.NoError(t, res.Err())
	assert.Equal(t, []string{"p1", "p3"}, rowIDs(res))

	res = client.Table("players").Eq("status", "online").Execute(ctx)
	require.NoError(t, res.Err())
	assert.Empty(t, res.Data)

	after := client.Table("players").Execute(ctx)
	require.NoError(t, after.Err())
	assert.Equal(t, before.Rows(), after.Rows())

	res = client.Table("missing").Delete(ctx)
	require.NoError(t, res.Err())
	assert.Empty(t, res.Data)
}

func TestResponseDataIsCopy(t *testing.T) {
	ctx := context.Background()
	client := newTestClient()
	insertPlayers(t, client)

	res := client.Table("players").Eq("id", "p1").Execute(ctx)
	require.NoError(t, res.Err())
	delete(res.Data[0], "username")

	res = client.Table("players").Eq("id", "p1").Execute(ctx)
	require.NoError(t, res.Err())
	assert.Equal(t, "alice", res.Rows()[0]["username"])
}

func TestRPC(t *testing.T) {
	var logs bytes.Buffer
	client := newTestClient(WithLogger(zerolog.New(&logs)))

	res := client.RPC(context.Background(), "match_players", map[string]any{"level": 3})
	require.Error(t, res.Err())
	assert.Equal(t, CodeNotSupported, res.Error.Code)
	assert.Contains(t, res.Error.Message, "not supported in emulation mode")
	assert.Empty(t, res.Data)
	assert.Contains(t, logs.String(), "match_players")
}

func TestFromAlias(t *testing.T) {
	ctx := context.Background()
	client := newTestClient()
	insertPlayers(t, client)

	res := client.From("players").Eq("id", "p2").Execute(ctx)
	require.NoError(t, res.Err())
	assert.Equal(t, []string{"p2"}, rowIDs(res))
}

func TestDumpAndClear(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	client := New(store, WithClock(func() time.Time { return testTime }))

	res := client.Table("players").Insert(ctx, map[string]any{"id": "p1", "username": "alice"})
	require.NoError(t, res.Err())

	var out strings.Builder
	require.NoError(t, client.Dump(ctx, &out))
	expect := fmt.Sprintf("[players]: 1 records\n  p1 {\"created_at\":%q,\"id\":\"p1\",\"username\":\"alice\"}\n", "2024-05-06T07:08:09.000000Z")
	assert.Equal(t, expect, out.String())

	require.NoError(t, client.Clear(ctx))

	res = client.Table("players").Execute(ctx)
	require.NoError(t, res.Err())
	assert.Empty(t, res.Data)

	names, err := store.Collections(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func rowIDs(res *Response) []string {
	ids := make([]string, len(res.Data))
	for i, row := range res.Rows() {
		ids[i] = fmt.Sprint(row["id"])
	}
	return ids
}

func column(res *Response, name string) []any {
	values := make([]any, len(res.Data))
	for i, row := range res.Rows() {
		values[i] = row[name]
	}
	return values
}
