package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"salesdash/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InsertMany writes the batch in a single transaction.
func (r *SQLiteRepository) InsertMany(ctx context.Context, items []core.Transaction) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, core.WrapStoreError("insert", fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions
		(id, title, title_fold, description, description_fold, price, category, sold, date_of_sale, sale_month, images)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, core.WrapStoreError("insert", fmt.Errorf("prepare insert: %w", err))
	}
	defer stmt.Close()

	for _, it := range items {
		if err := it.Validate(); err != nil {
			return 0, fmt.Errorf("insert transactions: %w", err)
		}
		images, err := json.Marshal(nonNilImages(it.Images))
		if err != nil {
			return 0, fmt.Errorf("encode images for %d: %w", it.ID, err)
		}
		_, err = stmt.ExecContext(ctx,
			it.ID,
			it.Title,
			core.Fold(it.Title),
			it.Description,
			core.Fold(it.Description),
			it.Price,
			it.Category,
			sqliteDialect.boolArg(it.Sold),
			it.DateOfSale.UTC().Format(time.RFC3339Nano),
			it.Month(),
			string(images),
		)
		if err != nil {
			return 0, core.WrapStoreError("insert", fmt.Errorf("insert transaction %d: %w", it.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, core.WrapStoreError("insert", fmt.Errorf("commit: %w", err))
	}

	slog.InfoContext(ctx, "Transactions saved to SQLite", "count", len(items))
	return len(items), nil
}

func (r *SQLiteRepository) Find(ctx context.Context, f core.Filter, skip, limit int64) ([]core.Transaction, error) {
	query, args := findQuery(sqliteDialect, f, skip, limit)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.WrapStoreError("find", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		var (
			t      core.Transaction
			sold   int64
			date   string
			images string
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Price, &t.Category, &sold, &date, &images); err != nil {
			return nil, core.WrapStoreError("find", fmt.Errorf("scan transaction: %w", err))
		}
		t.Sold = sold != 0
		if t.DateOfSale, err = time.Parse(time.RFC3339Nano, date); err != nil {
			return nil, core.WrapStoreError("find", fmt.Errorf("parse date of sale %q: %w", date, err))
		}
		if err := json.Unmarshal([]byte(images), &t.Images); err != nil {
			return nil, core.WrapStoreError("find", fmt.Errorf("decode images: %w", err))
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapStoreError("find", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Count(ctx context.Context, f core.Filter) (int64, error) {
	query, args := countQuery(sqliteDialect, f)
	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, core.WrapStoreError("count", err)
	}
	return n, nil
}

func (r *SQLiteRepository) SumPrice(ctx context.Context, f core.Filter) (float64, error) {
	query, args := sumPriceQuery(sqliteDialect, f)
	var total float64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, core.WrapStoreError("sum price", err)
	}
	return total, nil
}

func (r *SQLiteRepository) CountByCategory(ctx context.Context, f core.Filter) ([]core.CategoryCount, error) {
	query, args := categoryCountQuery(sqliteDialect, f)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.WrapStoreError("count by category", err)
	}
	defer rows.Close()

	out := []core.CategoryCount{}
	for rows.Next() {
		var c core.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, core.WrapStoreError("count by category", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapStoreError("count by category", err)
	}
	return out, nil
}

func (r *SQLiteRepository) DistinctCategories(ctx context.Context, f core.Filter) ([]string, error) {
	query, args := distinctCategoryQuery(sqliteDialect, f)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.WrapStoreError("distinct categories", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, core.WrapStoreError("distinct categories", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapStoreError("distinct categories", err)
	}
	return out, nil
}

func nonNilImages(images []string) []string {
	if images == nil {
		return []string{}
	}
	return images
}
