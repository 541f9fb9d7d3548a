package instrument

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Identifiers are assigned from a
// monotonically increasing counter and never reused.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]Record
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[int64]Record),
		now:  time.Now,
	}
}

func (s *MemoryStore) Insert(ctx context.Context, fields Fields) (Record, error) {
	if s == nil {
		return Record{}, fmt.Errorf("store is nil")
	}
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec := Record{
		UniverseID: s.nextID,
		Fields:     fields,
		CreatedAt:  s.now().UTC(),
	}
	s.byID[rec.UniverseID] = rec
	return rec, nil
}

func (s *MemoryStore) Get(_ context.Context, universeID int64) (Record, error) {
	if s == nil {
		return Record{}, fmt.Errorf("store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[universeID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Latest(_ context.Context, limit int) ([]Record, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	all := s.sorted(func(Record) bool { return true })
	if n := clampLimit(limit); len(all) > n {
		all = all[:n]
	}
	return all, nil
}

func (s *MemoryStore) SearchByCUSIP(_ context.Context, cusip string) ([]Record, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	cusip = strings.TrimSpace(cusip)
	return s.sorted(func(r Record) bool { return r.CUSIP == cusip }), nil
}

func (s *MemoryStore) CountByPreRisk(_ context.Context) ([]RiskCount, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	s.mu.RLock()
	counts := make(map[string]int64)
	for _, rec := range s.byID {
		counts[rec.PreRisk]++
	}
	s.mu.RUnlock()

	out := make([]RiskCount, 0, len(counts))
	for risk, n := range counts {
		out = append(out, RiskCount{PreRisk: risk, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PreRisk < out[j].PreRisk })
	return out, nil
}

// sorted returns matching records, newest first.
func (s *MemoryStore) sorted(match func(Record) bool) []Record {
	s.mu.RLock()
	out := make([]Record, 0, len(s.byID))
	for _, rec := range s.byID {
		if match(rec) {
			out = append(out, rec)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].UniverseID > out[j].UniverseID
	})
	return out
}
