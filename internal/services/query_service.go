package services

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"salesdash/internal/core"
	applog "salesdash/internal/log"
	"salesdash/internal/store"
)

// Paging defaults applied when a page or page size is absent or below 1.
const (
	DefaultPage     int64 = 1
	DefaultPageSize int64 = 10
)

// ListParams are the inputs of List. Zero values select the defaults.
type ListParams struct {
	Page     int64
	PageSize int64
	Search   string
}

// QueryService pages through transactions by free text or by month.
type QueryService struct {
	records store.RecordReader
	logger  *applog.Logger
}

func NewQueryService(records store.RecordReader, logger *applog.Logger) *QueryService {
	if logger == nil {
		logger = applog.Default(applog.ComponentEngine)
	}
	return &QueryService{
		records: records,
		logger:  logger.WithComponent(applog.ComponentEngine),
	}
}

// List returns one page of the records whose title or description contains
// Search, or whose price equals Search when it is numeric.
func (s *QueryService) List(ctx context.Context, p ListParams) (core.ListResult, error) {
	page, size := normalizePaging(p.Page, p.PageSize)
	filter := core.SearchFilter(p.Search)

	var (
		items []core.Transaction
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.records.Count(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.records.Find(gctx, filter, skipFor(page, size), size)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.ListResult{}, fmt.Errorf("list transactions: %w", err)
	}

	s.logger.DebugContext(ctx, "Transactions listed", applog.NewFields().
		WithOperation(applog.OpList).
		WithQuery(0, page, size, p.Search).
		ToSlice()...)

	return core.ListResult{
		Transactions: nonNil(items),
		TotalPages:   core.TotalPages(total, size),
		CurrentPage:  page,
		TotalCount:   total,
	}, nil
}

// ListByMonth returns one page of the records sold in month (any year). The page
// count covers every record of the month.
func (s *QueryService) ListByMonth(ctx context.Context, month int, page, limit int64) (core.MonthPage, error) {
	if err := core.ValidateMonth(month); err != nil {
		return core.MonthPage{}, err
	}
	page, limit = normalizePaging(page, limit)
	filter := core.MonthFilter(month)

	var (
		items []core.Transaction
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.records.Count(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.records.Find(gctx, filter, skipFor(page, limit), limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.MonthPage{}, fmt.Errorf("list transactions for month %d: %w", month, err)
	}

	s.logger.DebugContext(ctx, "Monthly transactions listed", applog.NewFields().
		WithOperation(applog.OpListByMonth).
		WithQuery(month, page, limit, "").
		ToSlice()...)

	return core.MonthPage{
		Transactions: views(items, false),
		TotalPages:   core.TotalPages(total, limit),
	}, nil
}

// SearchByMonth narrows a month to records whose title or description contains
// searchText. The page is fetched first and then deduplicated by id, so it may
// hold fewer than limit records, while TotalPages is computed from the count
// before deduplication and can overstate the number of distinct pages.
func (s *QueryService) SearchByMonth(ctx context.Context, month int, page, limit int64, searchText string) (core.MonthPage, error) {
	if err := core.ValidateMonth(month); err != nil {
		return core.MonthPage{}, err
	}
	page, limit = normalizePaging(page, limit)
	filter := core.MonthSearchFilter(month, searchText)

	var (
		items []core.Transaction
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.records.Count(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.records.Find(gctx, filter, skipFor(page, limit), limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.MonthPage{}, fmt.Errorf("search transactions for month %d: %w", month, err)
	}

	result := views(items, true)
	s.logger.DebugContext(ctx, "Monthly transactions searched", applog.NewFields().
		WithOperation(applog.OpSearchByMonth).
		WithQuery(month, page, limit, searchText).
		ToSlice()...)

	return core.MonthPage{
		Transactions: result,
		TotalPages:   core.TotalPages(total, limit),
	}, nil
}

func normalizePaging(page, size int64) (int64, int64) {
	if page < 1 {
		page = DefaultPage
	}
	if size < 1 {
		size = DefaultPageSize
	}
	return page, size
}

// skipFor returns the offset of page, saturating at math.MaxInt64 so a huge
// page number yields an empty page instead of wrapping around.
func skipFor(page, size int64) int64 {
	if page-1 > math.MaxInt64/size {
		return math.MaxInt64
	}
	return (page - 1) * size
}

// views projects items, keeping only the first record per id when dedup is set.
func views(items []core.Transaction, dedup bool) []core.TransactionView {
	out := make([]core.TransactionView, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, t := range items {
		if dedup {
			if _, ok := seen[t.ID]; ok {
				continue
			}
			seen[t.ID] = struct{}{}
		}
		out = append(out, t.View())
	}
	return out
}

func nonNil(items []core.Transaction) []core.Transaction {
	if items == nil {
		return []core.Transaction{}
	}
	return items
}
