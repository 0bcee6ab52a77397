package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"salesdash/internal/core"
)

// Store keeps records in insertion order. It is the default backend and the
// fixture store used by engine tests.
type Store struct {
	mu    sync.RWMutex
	items []core.Transaction
}

func New(items ...core.Transaction) *Store {
	s := &Store{}
	s.items = append(s.items, items...)
	return s
}

// InsertMany appends records after validating each one.
func (s *Store) InsertMany(_ context.Context, items []core.Transaction) (int, error) {
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return 0, fmt.Errorf("insert transactions: %w", err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
	return len(items), nil
}

func (s *Store) Find(ctx context.Context, f core.Filter, skip, limit int64) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.WrapStoreError("find", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []core.Transaction{}
	var seen int64
	for _, it := range s.items {
		if !f.Match(it) {
			continue
		}
		seen++
		if seen <= skip {
			continue
		}
		out = append(out, it)
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, f core.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, core.WrapStoreError("count", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, it := range s.items {
		if f.Match(it) {
			n++
		}
	}
	return n, nil
}

func (s *Store) SumPrice(ctx context.Context, f core.Filter) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, core.WrapStoreError("sum price", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total float64
	for _, it := range s.items {
		if f.Match(it) {
			total += it.Price
		}
	}
	return total, nil
}

func (s *Store) CountByCategory(ctx context.Context, f core.Filter) ([]core.CategoryCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.WrapStoreError("count by category", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[string]int64{}
	for _, it := range s.items {
		if f.Match(it) {
			counts[it.Category]++
		}
	}
	out := make([]core.CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, core.CategoryCount{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *Store) DistinctCategories(ctx context.Context, f core.Filter) ([]string, error) {
	counts, err := s.CountByCategory(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(counts))
	for i, c := range counts {
		out[i] = c.Category
	}
	return out, nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) Close() error { return nil }
