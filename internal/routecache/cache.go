// Package routecache keeps an offline copy of the user's routes in a single
// versioned JSON blob stored under one key of a store.KV.
//
// The cache is additive: merging a server listing refreshes known routes and
// appends new ones, but never drops local entries the server did not return.
// Routes deleted elsewhere therefore linger until removed through this client.
package routecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GadCoder/BikeRoutes/internal/domain"
	"github.com/GadCoder/BikeRoutes/internal/store"
)

// Key is the store key holding the cache blob.
const Key = "routes-cache-v2.json"

// Version is the blob format version. Blobs with any other version are ignored.
const Version = 2

// timestampLayout renders UTC instants with millisecond precision so that
// cached timestamps sort lexicographically alongside server timestamps.
const timestampLayout = "2006-01-02T15:04:05.000Z"

type blob struct {
	Version int                   `json:"version"`
	Routes  *[]domain.CachedRoute `json:"routes"`
}

// Cache reads and writes the route cache blob. Its methods are safe for
// concurrent use; read-modify-write sequences are serialised.
type Cache struct {
	kv     store.KV
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source used for bookkeeping timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger used to report unreadable cache blobs.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// New returns a Cache over kv.
func New(kv store.KV, opts ...Option) *Cache {
	c := &Cache{kv: kv, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timestamp formats t as an ISO-8601 UTC string in the cache's layout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// Load returns the cached entries in stored order. A missing, unreadable,
// or mismatched blob yields an empty slice; Load never fails.
func (c *Cache) Load(ctx context.Context) []domain.CachedRoute {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

func (c *Cache) load(ctx context.Context) []domain.CachedRoute {
	raw, err := c.kv.Get(ctx, Key)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.CachedRoute{}
	}
	if err != nil {
		c.logger.WarnContext(ctx, "route cache unreadable", "error", err)
		return []domain.CachedRoute{}
	}

	var b blob
	if err := json.Unmarshal(raw, &b); err != nil {
		c.logger.WarnContext(ctx, "route cache corrupt", "error", err)
		return []domain.CachedRoute{}
	}
	if b.Version != Version || b.Routes == nil {
		c.logger.WarnContext(ctx, "route cache version mismatch", "version", b.Version)
		return []domain.CachedRoute{}
	}
	return *b.Routes
}

// Save replaces the whole blob with entries.
func (c *Cache) Save(ctx context.Context, entries []domain.CachedRoute) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save(ctx, entries)
}

func (c *Cache) save(ctx context.Context, entries []domain.CachedRoute) error {
	if entries == nil {
		entries = []domain.CachedRoute{}
	}
	raw, err := json.Marshal(blob{Version: Version, Routes: &entries})
	if err != nil {
		return fmt.Errorf("routecache.Cache.Save: encode: %w", err)
	}
	if err := c.kv.Put(ctx, Key, raw); err != nil {
		return fmt.Errorf("routecache.Cache.Save: %w", err)
	}
	return nil
}

type upsertConfig struct {
	cachedAt string
}

// UpsertOption configures a single Upsert call.
type UpsertOption func(*upsertConfig)

// WithCachedAt sets the entry's first-seen timestamp explicitly instead of
// preserving the existing one.
func WithCachedAt(ts string) UpsertOption {
	return func(u *upsertConfig) { u.cachedAt = ts }
}

// Upsert stores route. An existing entry keeps its position and CachedAt; a
// new entry is inserted at the front with CachedAt set to now. RefreshedAt is
// always set to now.
func (c *Cache) Upsert(ctx context.Context, route domain.Route, opts ...UpsertOption) error {
	var cfg upsertConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := Timestamp(c.now())
	entries := c.load(ctx)

	idx := indexOf(entries, route.ID)
	if idx >= 0 {
		entry := domain.CachedRoute{
			Route:       route,
			CachedAt:    entries[idx].CachedAt,
			RefreshedAt: now,
		}
		if cfg.cachedAt != "" {
			entry.CachedAt = cfg.cachedAt
		}
		entries[idx] = entry
	} else {
		entry := domain.CachedRoute{Route: route, CachedAt: now, RefreshedAt: now}
		if cfg.cachedAt != "" {
			entry.CachedAt = cfg.cachedAt
		}
		entries = append([]domain.CachedRoute{entry}, entries...)
	}

	if err := c.save(ctx, entries); err != nil {
		return fmt.Errorf("routecache.Cache.Upsert: %w", err)
	}
	return nil
}

// Remove deletes the entry for id. Removing an absent id still rewrites the
// blob and is not an error.
func (c *Cache) Remove(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.load(ctx)
	kept := entries[:0]
	for _, e := range entries {
		if e.Route.ID != id {
			kept = append(kept, e)
		}
	}
	if err := c.save(ctx, kept); err != nil {
		return fmt.Errorf("routecache.Cache.Remove: %w", err)
	}
	return nil
}

// Merge loads the cache, merges remote into it, and saves the result. The
// merged entries are returned even when saving fails.
func (c *Cache) Merge(ctx context.Context, remote []domain.Route) ([]domain.CachedRoute, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	merged := MergeRemote(remote, c.load(ctx), c.now())
	if err := c.save(ctx, merged); err != nil {
		return merged, fmt.Errorf("routecache.Cache.Merge: %w", err)
	}
	return merged, nil
}

// MergeRemote combines a server listing with existing cache entries.
//
// Known ids take the remote payload and keep their CachedAt; new ids get
// CachedAt = now. Entries absent from remote are kept. Existing order comes
// first, then new ids in remote order. When remote repeats an id the last
// payload wins.
func MergeRemote(remote []domain.Route, existing []domain.CachedRoute, now time.Time) []domain.CachedRoute {
	ts := Timestamp(now)

	out := make([]domain.CachedRoute, len(existing), len(existing)+len(remote))
	copy(out, existing)

	pos := make(map[string]int, len(out)+len(remote))
	for i, e := range out {
		pos[e.Route.ID] = i
	}

	for _, r := range remote {
		if i, ok := pos[r.ID]; ok {
			out[i] = domain.CachedRoute{Route: r, CachedAt: out[i].CachedAt, RefreshedAt: ts}
			continue
		}
		pos[r.ID] = len(out)
		out = append(out, domain.CachedRoute{Route: r, CachedAt: ts, RefreshedAt: ts})
	}
	return out
}

// Sort returns entries ordered by SortKey, newest first. Ties keep their
// input order. The input slice is not modified.
func Sort(entries []domain.CachedRoute) []domain.CachedRoute {
	out := make([]domain.CachedRoute, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortKey() > out[j].SortKey()
	})
	return out
}

// Filter returns the entries whose title contains query, ignoring case. A
// blank query matches everything.
func Filter(entries []domain.CachedRoute, query string) []domain.CachedRoute {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.CachedRoute, 0, len(entries))
	for _, e := range entries {
		if q == "" || strings.Contains(strings.ToLower(e.Route.Properties.Title), q) {
			out = append(out, e)
		}
	}
	return out
}

func indexOf(entries []domain.CachedRoute, id string) int {
	for i, e := range entries {
		if e.Route.ID == id {
			return i
		}
	}
	return -1
}
