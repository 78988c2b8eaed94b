package nodes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgoodz/bitcoin-heatmap/internal/logger"
)

// countingServer returns a snapshot server that counts how many requests it
// actually receives.
func countingServer(t *testing.T, status int, body string) (*httptest.Server, *int64) {
	t.Helper()
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestService(t *testing.T, url string, store Store) *Service {
	t.Helper()
	logger.Setup("error", t.TempDir())
	svc := NewService(NewFetcher(url), store, DefaultCacheTTL, 0)
	svc.now = func() time.Time { return time.Unix(1700000600, 0) }
	return svc
}

func TestLoadSuccessWritesCache(t *testing.T) {
	srv, hits := countingServer(t, http.StatusOK, sampleSnapshot)
	store := NewMemStore()
	svc := newTestService(t, srv.URL, store)

	res := svc.Load(context.Background())

	require.Empty(t, res.Err)
	assert.False(t, res.FromCache)
	assert.Equal(t, 2, res.Stats.TotalNodes)
	assert.Equal(t, 2, res.Stats.Countries)
	assert.EqualValues(t, 1, atomic.LoadInt64(hits))

	rawTS, err := store.Get(cacheKeyFetch)
	require.NoError(t, err)
	ts, err := strconv.ParseInt(string(rawTS), 10, 64)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1700000600, 0).UnixMilli(), ts)

	rawData, err := store.Get(cacheKeyData)
	require.NoError(t, err)
	var cached Stats
	require.NoError(t, json.Unmarshal(rawData, &cached))
	assert.Equal(t, res.Stats, cached)
}

func TestLoadMemoryCacheShortCircuits(t *testing.T) {
	srv, hits := countingServer(t, http.StatusOK, sampleSnapshot)
	svc := newTestService(t, srv.URL, NewMemStore())

	first := svc.Load(context.Background())
	second := svc.Load(context.Background())

	assert.EqualValues(t, 1, atomic.LoadInt64(hits), "second load must not hit the network")
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Stats, second.Stats)
	assert.Equal(t, first.Cells, second.Cells)
}

func TestLoadDiskCacheShortCircuits(t *testing.T) {
	srv, hits := countingServer(t, http.StatusOK, sampleSnapshot)
	store := NewMemStore()

	cached := Stats{TotalNodes: 1234, Countries: 42}
	blob, err := json.Marshal(cached)
	require.NoError(t, err)
	now := time.Unix(1700000600, 0)
	require.NoError(t, store.Put(cacheKeyFetch, []byte(strconv.FormatInt(now.Add(-time.Minute).UnixMilli(), 10))))
	require.NoError(t, store.Put(cacheKeyData, blob))

	svc := newTestService(t, srv.URL, store)
	res := svc.Load(context.Background())

	assert.Zero(t, atomic.LoadInt64(hits), "fresh cache must short-circuit the fetch")
	assert.True(t, res.FromCache)
	assert.Equal(t, cached, res.Stats)
	// Peer-level data is not cacheable: a disk hit serves the mock map data.
	assert.Equal(t, MockCells(), res.Cells)
	assert.Equal(t, MockPeers(), res.Peers)
}

func TestLoadExpiredCacheRefetches(t *testing.T) {
	srv, hits := countingServer(t, http.StatusOK, sampleSnapshot)
	store := NewMemStore()

	now := time.Unix(1700000600, 0)
	stale := now.Add(-DefaultCacheTTL) // exactly at the TTL boundary counts as stale
	require.NoError(t, store.Put(cacheKeyFetch, []byte(strconv.FormatInt(stale.UnixMilli(), 10))))
	require.NoError(t, store.Put(cacheKeyData, []byte(`{"total_nodes":1}`)))

	svc := newTestService(t, srv.URL, store)
	res := svc.Load(context.Background())

	assert.EqualValues(t, 1, atomic.LoadInt64(hits))
	assert.False(t, res.FromCache)
	assert.Equal(t, 2, res.Stats.TotalNodes)

	// The stale entry is overwritten by the new fetch.
	rawTS, err := store.Get(cacheKeyFetch)
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(now.UnixMilli(), 10), string(rawTS))
}

func TestLoadServerErrorFallsBackToMocks(t *testing.T) {
	srv, _ := countingServer(t, http.StatusInternalServerError, "boom")
	store := NewMemStore()
	svc := newTestService(t, srv.URL, store)

	res := svc.Load(context.Background())

	assert.NotEmpty(t, res.Err)
	assert.Equal(t, MockCells(), res.Cells)
	require.Len(t, res.Peers, 2)
	assert.Equal(t, "US", res.Peers[0].Country)
	assert.Equal(t, "GB", res.Peers[1].Country)
	assert.Equal(t, ZeroStats(), res.Stats)

	// A failed load must not write the cache.
	_, err := store.Get(cacheKeyFetch)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadCorruptCacheTreatedAsMiss(t *testing.T) {
	srv, hits := countingServer(t, http.StatusOK, sampleSnapshot)
	store := NewMemStore()
	require.NoError(t, store.Put(cacheKeyFetch, []byte("not-a-number")))
	require.NoError(t, store.Put(cacheKeyData, []byte("{}")))

	svc := newTestService(t, srv.URL, store)
	res := svc.Load(context.Background())

	assert.EqualValues(t, 1, atomic.LoadInt64(hits))
	assert.False(t, res.FromCache)
	assert.Equal(t, 2, res.Stats.TotalNodes)
}

func TestLoadCoalescesConcurrentFirstLoad(t *testing.T) {
	var hits int64
	arrived := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&hits, 1) == 1 {
			close(arrived)
		}
		<-release
		w.Write([]byte(sampleSnapshot))
	}))
	t.Cleanup(srv.Close)

	svc := newTestService(t, srv.URL, NewMemStore())

	results := make(chan Result, 2)
	go func() { results <- svc.Load(context.Background()) }()
	<-arrived // first load is now blocked inside the fetch

	go func() { results <- svc.Load(context.Background()) }()
	for !svc.Loading() {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond) // let the second caller reach the wait
	close(release)

	first := <-results
	second := <-results

	// One fetch serves both callers, and neither sees an empty zero result.
	assert.EqualValues(t, 1, atomic.LoadInt64(&hits))
	assert.Equal(t, first.Stats, second.Stats)
	assert.Equal(t, first.Cells, second.Cells)
	assert.Equal(t, 2, first.Stats.TotalNodes)
	assert.NotEmpty(t, first.Cells)
	assert.NotEmpty(t, second.Peers)
}

func TestSnapshotBeforeAndAfterLoad(t *testing.T) {
	srv, _ := countingServer(t, http.StatusOK, sampleSnapshot)
	svc := newTestService(t, srv.URL, NewMemStore())

	_, ok := svc.Snapshot()
	assert.False(t, ok)

	want := svc.Load(context.Background())
	got, ok := svc.Snapshot()
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestLoadNilStore(t *testing.T) {
	srv, _ := countingServer(t, http.StatusOK, sampleSnapshot)
	svc := newTestService(t, srv.URL, nil)

	res := svc.Load(context.Background())
	assert.Empty(t, res.Err)
	assert.Equal(t, 2, res.Stats.TotalNodes)
}
