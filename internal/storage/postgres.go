package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"salesdash/internal/core"
)

// PostgresRepository is the pgx-backed record store.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	if err := RunPostgresMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

// InsertMany streams the batch with COPY.
func (r *PostgresRepository) InsertMany(ctx context.Context, items []core.Transaction) (int, error) {
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return 0, fmt.Errorf("insert transactions: %w", err)
		}
	}

	columns := []string{"id", "title", "title_fold", "description", "description_fold",
		"price", "category", "sold", "date_of_sale", "sale_month", "images"}

	n, err := r.pool.CopyFrom(ctx, pgx.Identifier{"transactions"}, columns,
		pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
			it := items[i]
			return []any{
				it.ID,
				it.Title,
				core.Fold(it.Title),
				it.Description,
				core.Fold(it.Description),
				it.Price,
				it.Category,
				it.Sold,
				it.DateOfSale.UTC(),
				int16(it.Month()),
				nonNilImages(it.Images),
			}, nil
		}))
	if err != nil {
		return 0, core.WrapStoreError("insert", fmt.Errorf("copy transactions: %w", err))
	}

	slog.InfoContext(ctx, "Transactions saved to Postgres", "count", n)
	return int(n), nil
}

func (r *PostgresRepository) Find(ctx context.Context, f core.Filter, skip, limit int64) ([]core.Transaction, error) {
	query, args := findQuery(postgresDialect, f, skip, limit)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, core.WrapStoreError("find", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		var t core.Transaction
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Price, &t.Category, &t.Sold, &t.DateOfSale, &t.Images); err != nil {
			return nil, core.WrapStoreError("find", fmt.Errorf("scan transaction: %w", err))
		}
		t.DateOfSale = t.DateOfSale.UTC()
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapStoreError("find", err)
	}
	return out, nil
}

func (r *PostgresRepository) Count(ctx context.Context, f core.Filter) (int64, error) {
	query, args := countQuery(postgresDialect, f)
	var n int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, core.WrapStoreError("count", err)
	}
	return n, nil
}

func (r *PostgresRepository) SumPrice(ctx context.Context, f core.Filter) (float64, error) {
	query, args := sumPriceQuery(postgresDialect, f)
	var total float64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, core.WrapStoreError("sum price", err)
	}
	return total, nil
}

func (r *PostgresRepository) CountByCategory(ctx context.Context, f core.Filter) ([]core.CategoryCount, error) {
	query, args := categoryCountQuery(postgresDialect, f)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, core.WrapStoreError("count by category", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.CategoryCount, error) {
		var c core.CategoryCount
		err := row.Scan(&c.Category, &c.Count)
		return c, err
	})
	if err != nil {
		return nil, core.WrapStoreError("count by category", err)
	}
	return out, nil
}

func (r *PostgresRepository) DistinctCategories(ctx context.Context, f core.Filter) ([]string, error) {
	query, args := distinctCategoryQuery(postgresDialect, f)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, core.WrapStoreError("distinct categories", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, core.WrapStoreError("distinct categories", err)
	}
	return out, nil
}
