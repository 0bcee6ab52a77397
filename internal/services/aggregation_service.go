package services

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"salesdash/internal/cache"
	"salesdash/internal/core"
	applog "salesdash/internal/log"
	"salesdash/internal/store"
)

// AggregateStore is the store capability the aggregation engine needs.
type AggregateStore interface {
	store.RecordReader
	store.RecordAggregator
}

// AggregationService computes the monthly statistics, price histogram and
// category breakdown.
type AggregationService struct {
	records AggregateStore
	logger  *applog.Logger

	statsCache     *cache.LRUCache[core.Statistics]
	histogramCache *cache.LRUCache[[]core.HistogramEntry]
	categoryCache  *cache.LRUCache[[]core.CategoryCount]
}

// AggregationOption configures an AggregationService.
type AggregationOption func(*AggregationService)

// WithResultCache memoises results per operation and month. Records are not
// modified after seeding, so entries only leave the cache by TTL or eviction.
func WithResultCache(size int, ttl time.Duration) AggregationOption {
	return func(s *AggregationService) {
		if size <= 0 || ttl <= 0 {
			return
		}
		s.statsCache = cache.NewLRUCache[core.Statistics](size, ttl)
		s.histogramCache = cache.NewLRUCache[[]core.HistogramEntry](size, ttl)
		s.categoryCache = cache.NewLRUCache[[]core.CategoryCount](size, ttl)
	}
}

func NewAggregationService(records AggregateStore, logger *applog.Logger, opts ...AggregationOption) *AggregationService {
	if logger == nil {
		logger = applog.Default(applog.ComponentEngine)
	}
	s := &AggregationService{
		records: records,
		logger:  logger.WithComponent(applog.ComponentEngine),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Caches returns the result caches so a cache.Manager can expire them. It is
// empty when caching is disabled.
func (s *AggregationService) Caches() []cache.Cleaner {
	if s.statsCache == nil {
		return nil
	}
	return []cache.Cleaner{s.statsCache, s.histogramCache, s.categoryCache}
}

// PurgeCache drops every cached result, e.g. after a forced re-seed.
func (s *AggregationService) PurgeCache() {
	if s.statsCache == nil {
		return
	}
	s.statsCache.Purge()
	s.histogramCache.Purge()
	s.categoryCache.Purge()
}

// Statistics sums the price of every record of the month and counts sold and
// unsold records. An empty month yields zeros.
func (s *AggregationService) Statistics(ctx context.Context, month int) (core.Statistics, error) {
	if err := core.ValidateMonth(month); err != nil {
		return core.Statistics{}, err
	}
	key := cacheKey(applog.OpStatistics, month)
	if s.statsCache != nil {
		if st, ok := s.statsCache.Get(key); ok {
			s.logCacheHit(ctx, applog.OpStatistics, month)
			return st, nil
		}
	}

	filter := core.MonthFilter(month)
	var st core.Statistics
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		st.TotalSaleAmount, err = s.records.SumPrice(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		st.TotalSoldItems, err = s.records.Count(gctx, filter.WithSold(true))
		return err
	})
	g.Go(func() error {
		var err error
		st.TotalNotSoldItems, err = s.records.Count(gctx, filter.WithSold(false))
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Statistics{}, fmt.Errorf("statistics for month %d: %w", month, err)
	}

	if s.statsCache != nil {
		s.statsCache.Set(key, st)
	}
	s.logger.DebugContext(ctx, "Statistics computed",
		applog.FieldOperation, applog.OpStatistics,
		applog.FieldMonth, month,
		"total_sale_amount", st.TotalSaleAmount,
		"sold", st.TotalSoldItems,
		"not_sold", st.TotalNotSoldItems)
	return st, nil
}

// Histogram counts the month's records per price bucket. The result always has
// one entry per core.PriceBuckets entry, in that order.
func (s *AggregationService) Histogram(ctx context.Context, month int) ([]core.HistogramEntry, error) {
	if err := core.ValidateMonth(month); err != nil {
		return nil, err
	}
	key := cacheKey(applog.OpHistogram, month)
	if s.histogramCache != nil {
		if h, ok := s.histogramCache.Get(key); ok {
			s.logCacheHit(ctx, applog.OpHistogram, month)
			return slices.Clone(h), nil
		}
	}

	filter := core.MonthFilter(month)
	entries := make([]core.HistogramEntry, len(core.PriceBuckets))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range core.PriceBuckets {
		entries[i].Range = b.Label()
		g.Go(func() error {
			n, err := s.records.Count(gctx, filter.WithPriceRange(b))
			if err != nil {
				return fmt.Errorf("bucket %s: %w", b.Label(), err)
			}
			entries[i].Count = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("histogram for month %d: %w", month, err)
	}

	if s.histogramCache != nil {
		s.histogramCache.Set(key, slices.Clone(entries))
	}
	s.logger.DebugContext(ctx, "Histogram computed",
		applog.FieldOperation, applog.OpHistogram,
		applog.FieldMonth, month)
	return entries, nil
}

// CategoryBreakdown counts the month's records per category. Categories without
// records in the month are omitted; entries are ordered by category name.
func (s *AggregationService) CategoryBreakdown(ctx context.Context, month int) ([]core.CategoryCount, error) {
	if err := core.ValidateMonth(month); err != nil {
		return nil, err
	}
	key := cacheKey(applog.OpCategoryBreakdown, month)
	if s.categoryCache != nil {
		if c, ok := s.categoryCache.Get(key); ok {
			s.logCacheHit(ctx, applog.OpCategoryBreakdown, month)
			return slices.Clone(c), nil
		}
	}

	counts, err := s.records.CountByCategory(ctx, core.MonthFilter(month))
	if err != nil {
		return nil, fmt.Errorf("category breakdown for month %d: %w", month, err)
	}
	out := make([]core.CategoryCount, 0, len(counts))
	for _, c := range counts {
		if c.Count > 0 {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b core.CategoryCount) int {
		return strings.Compare(a.Category, b.Category)
	})

	if s.categoryCache != nil {
		s.categoryCache.Set(key, slices.Clone(out))
	}
	s.logger.DebugContext(ctx, "Category breakdown computed",
		applog.FieldOperation, applog.OpCategoryBreakdown,
		applog.FieldMonth, month,
		applog.FieldCount, len(out))
	return out, nil
}

// Combined runs the three aggregates concurrently. Any failure fails the whole
// call and cancels the remaining sub-queries.
func (s *AggregationService) Combined(ctx context.Context, month int) (core.Combined, error) {
	if err := core.ValidateMonth(month); err != nil {
		return core.Combined{}, err
	}

	var out core.Combined
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Statistics, err = s.Statistics(gctx, month)
		return err
	})
	g.Go(func() error {
		var err error
		out.BarChartData, err = s.Histogram(gctx, month)
		return err
	})
	g.Go(func() error {
		var err error
		out.PieChartData, err = s.CategoryBreakdown(gctx, month)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Combined{}, err
	}
	return out, nil
}

// Categories lists the distinct categories present in month, or in the whole
// store when month is 0.
func (s *AggregationService) Categories(ctx context.Context, month int) ([]string, error) {
	if month != 0 {
		if err := core.ValidateMonth(month); err != nil {
			return nil, err
		}
	}
	cats, err := s.records.DistinctCategories(ctx, core.MonthFilter(month))
	if err != nil {
		return nil, fmt.Errorf("distinct categories: %w", err)
	}
	if cats == nil {
		cats = []string{}
	}
	slices.Sort(cats)
	return cats, nil
}

func (s *AggregationService) logCacheHit(ctx context.Context, op string, month int) {
	s.logger.DebugContext(ctx, "Aggregate cache hit",
		applog.FieldOperation, op,
		applog.FieldMonth, month,
		applog.FieldCacheHit, true)
}

func cacheKey(op string, month int) string {
	return op + ":" + strconv.Itoa(month)
}
