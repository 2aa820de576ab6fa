package routecache_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GadCoder/BikeRoutes/internal/domain"
	"github.com/GadCoder/BikeRoutes/internal/routecache"
	"github.com/GadCoder/BikeRoutes/internal/store"
)

// memKV is an in-memory store.KV. Set putErr or getErr to simulate failures.
type memKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	putErr error
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (m *memKV) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

var _ store.KV = (*memKV)(nil)

// ---- helpers ---------------------------------------------------------------

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func route(id, title, updatedAt string) domain.Route {
	return domain.Route{
		ID:   id,
		Type: domain.FeatureType,
		Geometry: domain.LineStringGeometry(domain.NewLineString(
			domain.Position{-77.0428, -12.0464},
			domain.Position{-77.0328, -12.0464},
		)),
		Properties: domain.RouteProperties{Title: title, UpdatedAt: updatedAt},
	}
}

func ids(entries []domain.CachedRoute) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Route.ID
	}
	return out
}

// ---- Load / Save -----------------------------------------------------------

func TestCache_Load_Absent(t *testing.T) {
	c := routecache.New(newMemKV())

	got := c.Load(context.Background())

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCache_Load_Unreadable(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"corrupt json", `{"version":2,"routes":[`},
		{"version mismatch", `{"version":1,"routes":[]}`},
		{"routes missing", `{"version":2}`},
		{"routes not a list", `{"version":2,"routes":{}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kv := newMemKV()
			kv.data[routecache.Key] = []byte(tc.raw)

			got := routecache.New(kv).Load(context.Background())

			assert.Empty(t, got)
		})
	}
}

func TestCache_Load_StoreError(t *testing.T) {
	kv := newMemKV()
	kv.getErr = errors.New("disk on fire")

	got := routecache.New(kv).Load(context.Background())

	assert.Empty(t, got)
}

func TestCache_SaveThenLoad(t *testing.T) {
	kv := newMemKV()
	c := routecache.New(kv)
	entries := []domain.CachedRoute{
		{Route: route("r1", "Costa Verde", "2026-02-01T00:00:00Z"), CachedAt: "2026-02-02T00:00:00.000Z"},
	}

	require.NoError(t, c.Save(context.Background(), entries))
	got := c.Load(context.Background())

	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].Route.ID)
	assert.Equal(t, "2026-02-02T00:00:00.000Z", got[0].CachedAt)

	var stored map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(kv.data[routecache.Key], &stored))
	assert.JSONEq(t, `2`, string(stored["version"]))
}

func TestCache_Save_PropagatesStoreError(t *testing.T) {
	kv := newMemKV()
	kv.putErr = errors.New("read-only filesystem")

	err := routecache.New(kv).Save(context.Background(), nil)

	assert.ErrorIs(t, err, kv.putErr)
}

func TestCache_Save_NilWritesEmptyList(t *testing.T) {
	kv := newMemKV()

	require.NoError(t, routecache.New(kv).Save(context.Background(), nil))

	assert.JSONEq(t, `{"version":2,"routes":[]}`, string(kv.data[routecache.Key]))
}

// ---- Upsert / Remove -------------------------------------------------------

func TestCache_Upsert_NewGoesToFront(t *testing.T) {
	c := routecache.New(newMemKV(), routecache.WithClock(fixedClock(t0)))
	ctx := context.Background()

	require.NoError(t, c.Upsert(ctx, route("r1", "A", "")))
	require.NoError(t, c.Upsert(ctx, route("r2", "B", "")))

	got := c.Load(ctx)
	assert.Equal(t, []string{"r2", "r1"}, ids(got))
	assert.Equal(t, "2026-03-01T12:00:00.000Z", got[0].CachedAt)
	assert.Equal(t, "2026-03-01T12:00:00.000Z", got[0].RefreshedAt)
}

func TestCache_Upsert_PreservesCachedAtAndPosition(t *testing.T) {
	now := t0
	c := routecache.New(newMemKV(), routecache.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, c.Upsert(ctx, route("r1", "Old title", "")))
	require.NoError(t, c.Upsert(ctx, route("r2", "Other", "")))

	now = t0.Add(time.Hour)
	require.NoError(t, c.Upsert(ctx, route("r1", "New title", "")))

	got := c.Load(ctx)
	require.Equal(t, []string{"r2", "r1"}, ids(got))
	assert.Equal(t, "New title", got[1].Route.Properties.Title)
	assert.Equal(t, "2026-03-01T12:00:00.000Z", got[1].CachedAt)
	assert.Equal(t, "2026-03-01T13:00:00.000Z", got[1].RefreshedAt)
}

func TestCache_Upsert_WithCachedAtOverrides(t *testing.T) {
	c := routecache.New(newMemKV(), routecache.WithClock(fixedClock(t0)))
	ctx := context.Background()

	require.NoError(t, c.Upsert(ctx, route("r1", "A", "")))
	require.NoError(t, c.Upsert(ctx, route("r1", "A", ""), routecache.WithCachedAt("2020-01-01T00:00:00.000Z")))

	got := c.Load(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "2020-01-01T00:00:00.000Z", got[0].CachedAt)
}

func TestCache_Remove(t *testing.T) {
	c := routecache.New(newMemKV())
	ctx := context.Background()
	require.NoError(t, c.Upsert(ctx, route("r1", "A", "")))
	require.NoError(t, c.Upsert(ctx, route("r2", "B", "")))

	require.NoError(t, c.Remove(ctx, "r1"))
	require.NoError(t, c.Remove(ctx, "does-not-exist"))

	assert.Equal(t, []string{"r2"}, ids(c.Load(ctx)))
}

func TestCache_ConcurrentUpsertsAreNotLost(t *testing.T) {
	c := routecache.New(newMemKV())
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, c.Upsert(ctx, route(id, id, "")))
		}(id)
	}
	wg.Wait()

	assert.Len(t, c.Load(ctx), 8)
}

// ---- MergeRemote -----------------------------------------------------------

func TestMergeRemote_PreservesCachedAtForKnownIDs(t *testing.T) {
	existing := []domain.CachedRoute{
		{Route: route("r1", "Stale title", ""), CachedAt: "2026-01-01T00:00:00.000Z"},
	}
	remote := []domain.Route{route("r1", "Fresh title", "2026-02-01T00:00:00Z")}

	got := routecache.MergeRemote(remote, existing, t0)

	require.Len(t, got, 1)
	assert.Equal(t, "Fresh title", got[0].Route.Properties.Title)
	assert.Equal(t, "2026-01-01T00:00:00.000Z", got[0].CachedAt)
	assert.Equal(t, "2026-03-01T12:00:00.000Z", got[0].RefreshedAt)
}

func TestMergeRemote_NewIDsGetNow(t *testing.T) {
	got := routecache.MergeRemote([]domain.Route{route("r9", "New", "")}, nil, t0)

	require.Len(t, got, 1)
	assert.Equal(t, "2026-03-01T12:00:00.000Z", got[0].CachedAt)
}

func TestMergeRemote_KeepsLocalOnlyEntries(t *testing.T) {
	existing := []domain.CachedRoute{
		{Route: route("local-only", "Offline", ""), CachedAt: "2026-01-01T00:00:00.000Z"},
	}

	got := routecache.MergeRemote(nil, existing, t0)

	assert.Equal(t, []string{"local-only"}, ids(got))
}

func TestMergeRemote_Order(t *testing.T) {
	existing := []domain.CachedRoute{
		{Route: route("b", "", "")},
		{Route: route("a", "", "")},
	}
	remote := []domain.Route{route("d", "", ""), route("a", "", ""), route("c", "", "")}

	got := routecache.MergeRemote(remote, existing, t0)

	assert.Equal(t, []string{"b", "a", "d", "c"}, ids(got))
}

func TestMergeRemote_DuplicateRemoteIDLastWins(t *testing.T) {
	remote := []domain.Route{route("a", "first", ""), route("a", "second", "")}

	got := routecache.MergeRemote(remote, nil, t0)

	require.Len(t, got, 1)
	assert.Equal(t, "second", got[0].Route.Properties.Title)
}

func TestMergeRemote_DoesNotModifyExisting(t *testing.T) {
	existing := []domain.CachedRoute{{Route: route("a", "old", ""), CachedAt: "x"}}

	_ = routecache.MergeRemote([]domain.Route{route("a", "new", "")}, existing, t0)

	assert.Equal(t, "old", existing[0].Route.Properties.Title)
}

func TestCache_Merge_SavesAndReturns(t *testing.T) {
	kv := newMemKV()
	c := routecache.New(kv, routecache.WithClock(fixedClock(t0)))
	ctx := context.Background()
	require.NoError(t, c.Upsert(ctx, route("old", "", "")))

	got, err := c.Merge(ctx, []domain.Route{route("new", "", "")})

	require.NoError(t, err)
	assert.Equal(t, []string{"old", "new"}, ids(got))
	assert.Equal(t, []string{"old", "new"}, ids(c.Load(ctx)))
}

func TestCache_Merge_ReturnsEntriesOnSaveFailure(t *testing.T) {
	kv := newMemKV()
	kv.putErr = errors.New("quota exceeded")
	c := routecache.New(kv)

	got, err := c.Merge(context.Background(), []domain.Route{route("r1", "", "")})

	assert.ErrorIs(t, err, kv.putErr)
	assert.Equal(t, []string{"r1"}, ids(got))
}

// ---- Sort / Filter ---------------------------------------------------------

func TestSort_ByLaterOfUpdatedAndCachedAt(t *testing.T) {
	entries := []domain.CachedRoute{
		{Route: route("old", "", "2026-01-01T00:00:00Z"), CachedAt: "2026-01-02T00:00:00.000Z"},
		{Route: route("server-new", "", "2026-02-10T00:00:00Z"), CachedAt: "2026-01-01T00:00:00.000Z"},
		{Route: route("cache-new", "", ""), CachedAt: "2026-02-05T00:00:00.000Z"},
	}

	got := routecache.Sort(entries)

	assert.Equal(t, []string{"server-new", "cache-new", "old"}, ids(got))
	assert.Equal(t, "old", entries[0].Route.ID, "input must not be reordered")
}

func TestSort_StableForTies(t *testing.T) {
	entries := []domain.CachedRoute{
		{Route: route("first", "", ""), CachedAt: "2026-01-01T00:00:00.000Z"},
		{Route: route("second", "", ""), CachedAt: "2026-01-01T00:00:00.000Z"},
	}

	assert.Equal(t, []string{"first", "second"}, ids(routecache.Sort(entries)))
}

func TestFilter(t *testing.T) {
	entries := []domain.CachedRoute{
		{Route: route("1", "Costa Verde loop", "")},
		{Route: route("2", "Malecón Miraflores", "")},
		{Route: route("3", "", "")},
	}

	assert.Equal(t, []string{"1"}, ids(routecache.Filter(entries, "  costa ")))
	assert.Equal(t, []string{"2"}, ids(routecache.Filter(entries, "MALECÓN")))
	assert.Len(t, routecache.Filter(entries, ""), 3)
	assert.Empty(t, routecache.Filter(entries, "nowhere"))
}

func TestTimestamp(t *testing.T) {
	lima := time.FixedZone("PET", -5*60*60)

	got := routecache.Timestamp(time.Date(2026, 3, 1, 7, 0, 0, 123_000_000, lima))

	assert.Equal(t, "2026-03-01T12:00:00.123Z", got)
}
