package nodes

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/sgoodz/bitcoin-heatmap/internal/logger"
)

// DefaultCacheTTL is how long a fetched snapshot stays fresh.
const DefaultCacheTTL = 10 * time.Minute

// memKeyResult holds the full last result in the in-memory TTL cache.
const memKeyResult = "result"

// Result is what one load hands to the rendering layer.
type Result struct {
	Aggregation
	FetchedAt time.Time `json:"fetched_at"`
	FromCache bool      `json:"from_cache"`
	Err       string    `json:"error,omitempty"`
}

// Service runs the fetch-and-aggregate pipeline. One load at a time:
// concurrent triggers while a load is in flight coalesce onto the result the
// running load will commit. The disk store persists only the statistics blob
// and fetch timestamp; the full result is kept in memory for the TTL window.
type Service struct {
	fetcher   *Fetcher
	store     Store
	ttl       time.Duration
	markerCap int
	mem       *gocache.Cache
	now       func() time.Time
	log       *logrus.Entry

	mu       sync.RWMutex
	current  Result
	loaded   bool
	inflight chan struct{} // non-nil while a load runs, closed on commit

	stopOnce sync.Once
	stop     chan struct{}
}

// NewService wires the pipeline together. A nil store disables persistence
// across restarts but the in-memory TTL cache still applies.
func NewService(fetcher *Fetcher, store Store, ttl time.Duration, markerCap int) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if markerCap <= 0 {
		markerCap = DefaultMarkerCap
	}
	return &Service{
		fetcher:   fetcher,
		store:     store,
		ttl:       ttl,
		markerCap: markerCap,
		mem:       gocache.New(ttl, 2*ttl),
		now:       time.Now,
		log:       logrus.WithField("component", "nodes"),
		stop:      make(chan struct{}),
	}
}

// Snapshot returns the last committed result without triggering a load.
func (s *Service) Snapshot() (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.loaded
}

// Loading reports whether a load is currently in flight.
func (s *Service) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight != nil
}

// Load runs one fetch-and-aggregate pass, subject to the cache check. If a
// load is already in flight the caller waits for it and gets the result that
// load commits, so concurrent triggers never start a second fetch.
func (s *Service) Load(ctx context.Context) Result {
	s.mu.Lock()
	if ch := s.inflight; ch != nil {
		s.mu.Unlock()
		<-ch
		s.mu.RLock()
		res := s.current
		s.mu.RUnlock()
		return res
	}
	ch := make(chan struct{})
	s.inflight = ch
	s.mu.Unlock()

	res := s.load(ctx)

	s.mu.Lock()
	s.current = res
	s.loaded = true
	s.inflight = nil
	s.mu.Unlock()
	close(ch)
	return res
}

func (s *Service) load(ctx context.Context) Result {
	now := s.now()

	if v, ok := s.mem.Get(memKeyResult); ok {
		res := v.(Result)
		res.FromCache = true
		return res
	}

	if stats, ok := s.cachedStats(now); ok {
		logger.LogFetch("cache hit", s.fetcher.URL, "OK")
		res := fallbackResult(now)
		res.Stats = stats
		res.FromCache = true
		return res
	}

	raw, err := s.fetcher.Fetch(ctx)
	if err != nil {
		s.log.WithError(err).Warn("snapshot load failed")
		logger.LogFetch("fetch", s.fetcher.URL, "FAILED")
		res := fallbackResult(now)
		res.Err = err.Error()
		return res
	}

	peers := DecodeSnapshot(raw)
	agg := Aggregate(peers, now, s.markerCap)
	res := Result{Aggregation: agg, FetchedAt: now}

	s.writeCache(now, agg.Stats)
	s.mem.Set(memKeyResult, res, gocache.DefaultExpiration)

	s.log.WithFields(logrus.Fields{
		"raw":   len(raw),
		"peers": agg.Stats.TotalNodes,
		"cells": len(agg.Cells),
	}).Info("snapshot loaded")
	logger.LogFetch("fetch", s.fetcher.URL, "SUCCESS")
	return res
}

// cachedStats reads both cache keys together and returns the stored
// statistics when the last fetch is younger than the TTL. Any read or decode
// problem counts as a miss.
func (s *Service) cachedStats(now time.Time) (Stats, bool) {
	if s.store == nil {
		return Stats{}, false
	}
	rawTS, err := s.store.Get(cacheKeyFetch)
	if err != nil {
		return Stats{}, false
	}
	rawData, err := s.store.Get(cacheKeyData)
	if err != nil {
		return Stats{}, false
	}

	ts, err := strconv.ParseInt(string(rawTS), 10, 64)
	if err != nil {
		return Stats{}, false
	}
	if now.UnixMilli()-ts >= s.ttl.Milliseconds() {
		return Stats{}, false
	}

	var stats Stats
	if err := json.Unmarshal(rawData, &stats); err != nil {
		return Stats{}, false
	}
	return stats, true
}

// writeCache overwrites both cache keys unconditionally after a successful
// load. Failures are logged and otherwise ignored: the cache is an
// optimization, not a requirement.
func (s *Service) writeCache(now time.Time, stats Stats) {
	if s.store == nil {
		return
	}
	blob, err := json.Marshal(stats)
	if err != nil {
		s.log.WithError(err).Warn("cache encode failed")
		return
	}
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	if err := s.store.Put(cacheKeyFetch, []byte(ts)); err != nil {
		s.log.WithError(err).Warn("cache write failed")
		return
	}
	if err := s.store.Put(cacheKeyData, blob); err != nil {
		s.log.WithError(err).Warn("cache write failed")
	}
}

// StartAutoRefresh reloads the snapshot every interval until Stop is called.
// The cache check still applies to each tick.
func (s *Service) StartAutoRefresh(interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.Load(context.Background())
			}
		}
	}()
}

// Stop ends the auto-refresh loop.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// fallbackResult is the fixed mock state: four heatmap grid points, two
// peers and zeroed statistics. Running the aggregator on an empty peer list
// produces exactly that, so both empty-state paths share one formula.
func fallbackResult(now time.Time) Result {
	return Result{
		Aggregation: Aggregate(nil, now, 0),
		FetchedAt:   now,
	}
}
