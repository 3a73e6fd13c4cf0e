// Package directory caches the remote client directory.
package directory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cleared-dev/recibo/internal/model"
)

// PageLister fetches one page of the remote client listing.
type PageLister interface {
	ListClientsPage(ctx context.Context, page, size int) ([]model.Client, error)
	Token() string
}

// Snapshot is one complete fetch of the directory.
type Snapshot struct {
	Clients   []model.Client `json:"clients"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Store keeps snapshots between calls.
type Store interface {
	Load(ctx context.Context, key string) (Snapshot, bool, error)
	Save(ctx context.Context, key string, snap Snapshot) error
}

// Options configures a Cache.
type Options struct {
	TTL       time.Duration
	PageSize  int
	PagePause time.Duration
	Store     Store // defaults to a MemoryStore
	Logger    *slog.Logger
}

// Cache returns the client directory sorted by name, refetching it from the
// remote listing once the snapshot is older than the TTL.
type Cache struct {
	lister    PageLister
	store     Store
	ttl       time.Duration
	pageSize  int
	pagePause time.Duration
	logger    *slog.Logger

	refresh sync.Mutex // one fetch at a time
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewCache creates a Cache over lister.
func NewCache(lister PageLister, opts Options) *Cache {
	c := &Cache{
		lister:    lister,
		store:     opts.Store,
		ttl:       opts.TTL,
		pageSize:  opts.PageSize,
		pagePause: opts.PagePause,
		logger:    opts.Logger,
		now:       time.Now,
		sleep:     sleepCtx,
	}
	if c.store == nil {
		c.store = NewMemoryStore()
	}
	if c.ttl <= 0 {
		c.ttl = 300 * time.Second
	}
	if c.pageSize <= 0 {
		c.pageSize = 50
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Clients returns the cached directory, fetching it when absent or expired.
// Fetch failures are returned as is; nothing is retried.
func (c *Cache) Clients(ctx context.Context) ([]model.Client, error) {
	key := cacheKey(c.lister.Token())

	if snap, ok := c.fresh(ctx, key); ok {
		return snap.Clients, nil
	}

	c.refresh.Lock()
	defer c.refresh.Unlock()

	// Another caller may have refreshed while we waited.
	if snap, ok := c.fresh(ctx, key); ok {
		return snap.Clients, nil
	}

	clients, err := c.fetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching client directory: %w", err)
	}

	snap := Snapshot{Clients: clients, FetchedAt: c.now()}
	if err := c.store.Save(ctx, key, snap); err != nil {
		c.logger.Warn("saving directory snapshot", "error", err)
	}
	c.logger.Info("client directory refreshed", "clients", len(clients))
	return clients, nil
}

// Invalidate forgets the current snapshot so the next call refetches.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.store.Save(ctx, cacheKey(c.lister.Token()), Snapshot{})
}

func (c *Cache) fresh(ctx context.Context, key string) (Snapshot, bool) {
	snap, ok, err := c.store.Load(ctx, key)
	if err != nil {
		c.logger.Warn("loading directory snapshot", "error", err)
		return Snapshot{}, false
	}
	if !ok || snap.FetchedAt.IsZero() {
		return Snapshot{}, false
	}
	if c.now().Sub(snap.FetchedAt) >= c.ttl {
		return Snapshot{}, false
	}
	return snap, true
}

// fetchAll pages through the listing until a short page, pausing between
// page requests.
func (c *Cache) fetchAll(ctx context.Context) ([]model.Client, error) {
	var all []model.Client
	for page := 1; ; page++ {
		if page > 1 && c.pagePause > 0 {
			if err := c.sleep(ctx, c.pagePause); err != nil {
				return nil, err
			}
		}
		items, err := c.lister.ListClientsPage(ctx, page, c.pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < c.pageSize {
			break
		}
	}
	SortByName(all)
	return all, nil
}

// SortByName orders clients case-insensitively by display name.
func SortByName(clients []model.Client) {
	sort.SliceStable(clients, func(i, j int) bool {
		return strings.ToLower(clients[i].Name) < strings.ToLower(clients[j].Name)
	})
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
