package store

import (
	"context"

	"salesdash/internal/core"
)

// Ports for the record store backends.
type (
	// RecordReader exposes filtered reads. Find returns matches in insertion order
	// so skip/limit pagination is deterministic.
	RecordReader interface {
		Find(ctx context.Context, f core.Filter, skip, limit int64) ([]core.Transaction, error)
		Count(ctx context.Context, f core.Filter) (int64, error)
	}

	// RecordAggregator exposes the grouped aggregation primitives.
	RecordAggregator interface {
		SumPrice(ctx context.Context, f core.Filter) (float64, error)
		CountByCategory(ctx context.Context, f core.Filter) ([]core.CategoryCount, error)
		DistinctCategories(ctx context.Context, f core.Filter) ([]string, error)
	}

	// RecordWriter is used only by the seed import. InsertMany is
	// all-or-nothing: on error no record of the call is stored.
	RecordWriter interface {
		InsertMany(ctx context.Context, items []core.Transaction) (int, error)
	}

	// Store is the full capability handed to the engine and the importer.
	Store interface {
		RecordReader
		RecordAggregator
		RecordWriter
		Close() error
	}
)
