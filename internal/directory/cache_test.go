package directory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/recibo/internal/model"
)

// fakeLister serves a fixed directory in pages.
type fakeLister struct {
	mu      sync.Mutex
	token   string
	clients []model.Client
	err     error
	pages   []int
}

func (f *fakeLister) Token() string { return f.token }

func (f *fakeLister) ListClientsPage(_ context.Context, page, size int) ([]model.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = append(f.pages, page)
	if f.err != nil {
		return nil, f.err
	}
	start := (page - 1) * size
	if start >= len(f.clients) {
		return nil, nil
	}
	end := min(start+size, len(f.clients))
	return append([]model.Client(nil), f.clients[start:end]...), nil
}

func (f *fakeLister) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pages)
}

func makeClients(n int) []model.Client {
	out := make([]model.Client, n)
	for i := range out {
		out[i] = model.Client{ID: int64(i + 1), Name: fmt.Sprintf("client %03d", n-i), TaxID: "20-0"}
	}
	return out
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestCache(l *fakeLister, ttl time.Duration) (*Cache, *fakeClock, *[]time.Duration) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	var pauses []time.Duration
	c := NewCache(l, Options{TTL: ttl, PageSize: 2, PagePause: 200 * time.Millisecond})
	c.now = clock.now
	c.sleep = func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}
	return c, clock, &pauses
}

func TestClients_PaginatesUntilShortPage(t *testing.T) {
	l := &fakeLister{token: "tok", clients: makeClients(5)}
	c, _, pauses := newTestCache(l, time.Minute)

	got, err := c.Clients(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, []int{1, 2, 3}, l.pages, "pages of 2,2,1")
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 200 * time.Millisecond}, *pauses, "pause between pages only")
}

func TestClients_ExactMultipleFetchesEmptyTrailingPage(t *testing.T) {
	l := &fakeLister{token: "tok", clients: makeClients(4)}
	c, _, _ := newTestCache(l, time.Minute)

	got, err := c.Clients(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 4)
	assert.Equal(t, []int{1, 2, 3}, l.pages)
}

func TestClients_SortedCaseInsensitive(t *testing.T) {
	l := &fakeLister{token: "tok", clients: []model.Client{
		{ID: 1, Name: "beta"},
		{ID: 2, Name: "Alpha"},
		{ID: 3, Name: "ALPHA Two"},
		{ID: 4, Name: "Gamma"},
	}}
	c, _, _ := newTestCache(l, time.Minute)

	got, err := c.Clients(context.Background())
	require.NoError(t, err)
	names := make([]string, len(got))
	for i, cl := range got {
		names[i] = cl.Name
	}
	assert.Equal(t, []string{"Alpha", "ALPHA Two", "beta", "Gamma"}, names)
}

func TestClients_CachedWithinTTL(t *testing.T) {
	l := &fakeLister{token: "tok", clients: makeClients(3)}
	c, clock, _ := newTestCache(l, 300*time.Second)

	_, err := c.Clients(context.Background())
	require.NoError(t, err)
	first := l.calls()

	clock.t = clock.t.Add(299 * time.Second)
	_, err = c.Clients(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, l.calls(), "no refetch inside TTL")

	clock.t = clock.t.Add(time.Second)
	_, err = c.Clients(context.Background())
	require.NoError(t, err)
	assert.Greater(t, l.calls(), first, "refetch once TTL elapsed")
}

func TestClients_KeyedByCredential(t *testing.T) {
	store := NewMemoryStore()
	l1 := &fakeLister{token: "one", clients: makeClients(1)}
	l2 := &fakeLister{token: "two", clients: makeClients(2)}

	c1 := NewCache(l1, Options{Store: store, PageSize: 10})
	c2 := NewCache(l2, Options{Store: store, PageSize: 10})

	got1, err := c1.Clients(context.Background())
	require.NoError(t, err)
	got2, err := c2.Clients(context.Background())
	require.NoError(t, err)

	assert.Len(t, got1, 1)
	assert.Len(t, got2, 2)
	assert.Len(t, store.snaps, 2)
	for key := range store.snaps {
		assert.NotContains(t, key, "one", "raw token never used as key")
		assert.Len(t, key, 64)
	}
}

func TestClients_FetchErrorPropagates(t *testing.T) {
	boom := errors.New("status 500")
	l := &fakeLister{token: "tok", err: boom}
	c, _, _ := newTestCache(l, time.Minute)

	_, err := c.Clients(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, l.calls(), "no retry")
}

func TestClients_ConcurrentCallersShareOneFetch(t *testing.T) {
	l := &fakeLister{token: "tok", clients: makeClients(1)}
	c := NewCache(l, Options{PageSize: 10})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Clients(context.Background())
			assert.NoError(t, err)
			assert.Len(t, got, 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, l.calls())
}

func TestInvalidate(t *testing.T) {
	l := &fakeLister{token: "tok", clients: makeClients(1)}
	c, _, _ := newTestCache(l, time.Hour)

	_, err := c.Clients(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(context.Background()))
	_, err = c.Clients(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, l.calls())
}

func TestSleepCtx_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sleepCtx(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping redis store test")
	}
	ctx := context.Background()
	rdb, err := DialRedis(ctx, addr)
	require.NoError(t, err)
	defer rdb.Close()

	store := NewRedisStore(rdb, time.Minute)
	key := cacheKey(t.Name())

	_, ok, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	snap := Snapshot{Clients: makeClients(2), FetchedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, store.Save(ctx, key, snap))

	got, ok, err := store.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snap.Clients, got.Clients)
	assert.True(t, snap.FetchedAt.Equal(got.FetchedAt))

	require.NoError(t, store.Save(ctx, key, Snapshot{}))
	_, ok, err = store.Load(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
