package instrument

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	instrumentrepo "instrumentsync/internal/gateway/repository/instrument"
)

type Store = instrumentrepo.Store

type CacheConfig struct {
	RecordTTL        time.Duration
	RecordMaxEntries int

	QueryTTL        time.Duration
	QueryMaxEntries int
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		RecordTTL:        10 * time.Minute,
		RecordMaxEntries: 4096,
		QueryTTL:         15 * time.Second,
		QueryMaxEntries:  256,
	}
}

type MetricsSnapshot struct {
	RecordHits   uint64
	RecordMisses uint64
	QueryHits    uint64
	QueryMisses  uint64
	OriginReads  uint64
	OriginWrites uint64
}

type Metrics struct {
	recordHits   atomic.Uint64
	recordMisses atomic.Uint64
	queryHits    atomic.Uint64
	queryMisses  atomic.Uint64
	originReads  atomic.Uint64
	originWrites atomic.Uint64
}

func (m *Metrics) snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		RecordHits:   m.recordHits.Load(),
		RecordMisses: m.recordMisses.Load(),
		QueryHits:    m.queryHits.Load(),
		QueryMisses:  m.queryMisses.Load(),
		OriginReads:  m.originReads.Load(),
		OriginWrites: m.originWrites.Load(),
	}
}

// CachedStore fronts the dashboard read queries. Records are immutable once
// committed, so Get results are cached by id; list queries are cached briefly
// and dropped on every successful insert.
type CachedStore struct {
	origin Store

	// fillMu orders query fills against insert purges; generation changes on
	// every purge so a load that straddles an insert is not stored.
	fillMu     sync.Mutex
	generation uint64

	records *expirable.LRU[int64, instrumentrepo.Record]
	lists   *expirable.LRU[string, []instrumentrepo.Record]
	counts  *expirable.LRU[string, []instrumentrepo.RiskCount]
	metrics Metrics
}

var _ Store = (*CachedStore)(nil)

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	def := DefaultCacheConfig()
	if cfg.RecordTTL <= 0 {
		cfg.RecordTTL = def.RecordTTL
	}
	if cfg.RecordMaxEntries <= 0 {
		cfg.RecordMaxEntries = def.RecordMaxEntries
	}
	if cfg.QueryTTL <= 0 {
		cfg.QueryTTL = def.QueryTTL
	}
	if cfg.QueryMaxEntries <= 0 {
		cfg.QueryMaxEntries = def.QueryMaxEntries
	}
	return &CachedStore{
		origin:  origin,
		records: expirable.NewLRU[int64, instrumentrepo.Record](cfg.RecordMaxEntries, nil, cfg.RecordTTL),
		lists:   expirable.NewLRU[string, []instrumentrepo.Record](cfg.QueryMaxEntries, nil, cfg.QueryTTL),
		counts:  expirable.NewLRU[string, []instrumentrepo.RiskCount](1, nil, cfg.QueryTTL),
	}
}

func (s *CachedStore) Insert(ctx context.Context, fields instrumentrepo.Fields) (instrumentrepo.Record, error) {
	s.metrics.originWrites.Add(1)
	rec, err := s.origin.Insert(ctx, fields)
	if err != nil {
		return instrumentrepo.Record{}, err
	}
	s.records.Add(rec.UniverseID, rec)
	s.fillMu.Lock()
	s.generation++
	s.lists.Purge()
	s.counts.Purge()
	s.fillMu.Unlock()
	return rec, nil
}

func (s *CachedStore) Get(ctx context.Context, universeID int64) (instrumentrepo.Record, error) {
	if rec, ok := s.records.Get(universeID); ok {
		s.metrics.recordHits.Add(1)
		return rec, nil
	}
	s.metrics.recordMisses.Add(1)
	s.metrics.originReads.Add(1)
	rec, err := s.origin.Get(ctx, universeID)
	if err != nil {
		return instrumentrepo.Record{}, err
	}
	s.records.Add(universeID, rec)
	return rec, nil
}

func (s *CachedStore) Latest(ctx context.Context, limit int) ([]instrumentrepo.Record, error) {
	key := "latest:" + strconv.Itoa(limit)
	return s.cachedList(key, func() ([]instrumentrepo.Record, error) {
		return s.origin.Latest(ctx, limit)
	})
}

func (s *CachedStore) SearchByCUSIP(ctx context.Context, cusip string) ([]instrumentrepo.Record, error) {
	cusip = strings.TrimSpace(cusip)
	return s.cachedList("cusip:"+cusip, func() ([]instrumentrepo.Record, error) {
		return s.origin.SearchByCUSIP(ctx, cusip)
	})
}

func (s *CachedStore) CountByPreRisk(ctx context.Context) ([]instrumentrepo.RiskCount, error) {
	const key = "pre_risk"
	if cached, ok := s.counts.Get(key); ok {
		s.metrics.queryHits.Add(1)
		return append([]instrumentrepo.RiskCount(nil), cached...), nil
	}
	s.metrics.queryMisses.Add(1)
	s.metrics.originReads.Add(1)
	gen := s.currentGeneration()
	counts, err := s.origin.CountByPreRisk(ctx)
	if err != nil {
		return nil, err
	}
	s.fill(gen, func() { s.counts.Add(key, append([]instrumentrepo.RiskCount(nil), counts...)) })
	return counts, nil
}

func (s *CachedStore) cachedList(key string, load func() ([]instrumentrepo.Record, error)) ([]instrumentrepo.Record, error) {
	if cached, ok := s.lists.Get(key); ok {
		s.metrics.queryHits.Add(1)
		return append([]instrumentrepo.Record(nil), cached...), nil
	}
	s.metrics.queryMisses.Add(1)
	s.metrics.originReads.Add(1)
	gen := s.currentGeneration()
	list, err := load()
	if err != nil {
		return nil, err
	}
	s.fill(gen, func() { s.lists.Add(key, append([]instrumentrepo.Record(nil), list...)) })
	return list, nil
}

func (s *CachedStore) currentGeneration() uint64 {
	s.fillMu.Lock()
	defer s.fillMu.Unlock()
	return s.generation
}

// fill stores a loaded result unless an insert purged the caches meanwhile.
func (s *CachedStore) fill(gen uint64, add func()) {
	s.fillMu.Lock()
	defer s.fillMu.Unlock()
	if s.generation != gen {
		return
	}
	add()
}

func (s *CachedStore) Metrics() MetricsSnapshot {
	if s == nil {
		return MetricsSnapshot{}
	}
	return s.metrics.snapshot()
}
