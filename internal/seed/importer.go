// Package seed loads the remote transaction document into a record store.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"salesdash/internal/core"
	applog "salesdash/internal/log"
)

const maxDocumentSize = 64 << 20

// Target is the part of the record store the importer writes to. InsertMany
// must be all-or-nothing: a failed call leaves the store unchanged.
type Target interface {
	Count(ctx context.Context, f core.Filter) (int64, error)
	InsertMany(ctx context.Context, items []core.Transaction) (int, error)
}

// Request selects the document to import. An empty SourceURL uses the
// importer's default; Force imports even when the store already has records.
type Request struct {
	SourceURL string
	Force     bool
}

// Result summarises one import.
type Result struct {
	Fetched  int
	Inserted int
	Invalid  int
	Skipped  bool
	Duration time.Duration
}

type Importer struct {
	target     Target
	client     *http.Client
	defaultURL string
	logger     *applog.Logger
}

type Option func(*Importer)

func WithHTTPClient(c *http.Client) Option {
	return func(i *Importer) { i.client = c }
}

func WithLogger(l *applog.Logger) Option {
	return func(i *Importer) {
		if l != nil {
			i.logger = l.WithComponent(applog.ComponentSeed)
		}
	}
}

func NewImporter(target Target, defaultURL string, opts ...Option) *Importer {
	i := &Importer{
		target:     target,
		client:     &http.Client{Timeout: 30 * time.Second},
		defaultURL: defaultURL,
		logger:     applog.Default(applog.ComponentSeed),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import fetches the document and inserts its records in a single InsertMany,
// so a failed import leaves an empty store and the next attempt is not
// skipped. Records with an unparseable date or failing validation are
// skipped and counted in Result.Invalid.
func (i *Importer) Import(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	url := req.SourceURL
	if url == "" {
		url = i.defaultURL
	}

	if !req.Force {
		n, err := i.target.Count(ctx, core.Filter{})
		if err != nil {
			return Result{}, fmt.Errorf("check existing records: %w", err)
		}
		if n > 0 {
			i.logger.InfoContext(ctx, "Store already seeded, skipping import", applog.FieldCount, n)
			return Result{Skipped: true, Duration: time.Since(start)}, nil
		}
	}

	records, err := i.fetch(ctx, url)
	if err != nil {
		return Result{}, err
	}

	res := Result{Fetched: len(records)}
	valid := make([]core.Transaction, 0, len(records))
	for _, r := range records {
		t, err := r.transaction()
		if err == nil {
			err = t.Validate()
		}
		if err != nil {
			res.Invalid++
			i.logger.WarnContext(ctx, "Skipping invalid seed record", applog.FieldError, err)
			continue
		}
		valid = append(valid, t)
	}

	if len(valid) > 0 {
		n, err := i.target.InsertMany(ctx, valid)
		if err != nil {
			return res, fmt.Errorf("insert seed records: %w", err)
		}
		res.Inserted = n
	}

	res.Duration = time.Since(start)
	i.logger.InfoContext(ctx, "Database initialized with seed data",
		applog.FieldOperation, applog.OpImport,
		"source", url,
		"fetched", res.Fetched,
		"inserted", res.Inserted,
		"invalid", res.Invalid,
		applog.FieldDuration, res.Duration.Milliseconds())
	return res, nil
}

func (i *Importer) fetch(ctx context.Context, url string) ([]record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build seed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch seed document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch seed document: unexpected status %s", resp.Status)
	}
	return decode(io.LimitReader(resp.Body, maxDocumentSize))
}

// record is the wire shape of the seed document. It carries a single image
// URL; an images array is accepted as well.
type record struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Sold        bool     `json:"sold"`
	DateOfSale  string   `json:"dateOfSale"`
	Image       string   `json:"image"`
	Images      []string `json:"images"`
}

func (r record) transaction() (core.Transaction, error) {
	soldAt, err := time.Parse(time.RFC3339, r.DateOfSale)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("record %d: invalid dateOfSale %q", r.ID, r.DateOfSale)
	}

	images := make([]string, 0, len(r.Images)+1)
	if r.Image != "" {
		images = append(images, r.Image)
	}
	images = append(images, r.Images...)
	return core.Transaction{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		Category:    r.Category,
		Sold:        r.Sold,
		DateOfSale:  soldAt,
		Images:      images,
	}, nil
}

func decode(r io.Reader) ([]record, error) {
	var records []record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("decode seed document: empty body")
		}
		return nil, fmt.Errorf("decode seed document: %w", err)
	}
	return records, nil
}
