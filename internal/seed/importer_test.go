package seed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"salesdash/internal/core"
	"salesdash/internal/store/memory"
)

const document = `[
  {"id":1,"title":"Fjallraven  - Foldsack No. 1 Backpack","price":329.85,"description":"Your perfect pack","category":"men's clothing","image":"https://fakestoreapi.com/img/81fPKd-2AYL._AC_SL1500_.jpg","sold":false,"dateOfSale":"2021-11-27T20:29:54+05:30"},
  {"id":2,"title":"Mens Casual Premium Slim Fit T-Shirts ","price":44.6,"description":"Slim-fitting style","category":"men's clothing","images":["a.jpg","b.jpg"],"sold":true,"dateOfSale":"2021-10-27T20:29:54+05:30"},
  {"id":3,"title":"Broken","price":-5,"description":"negative price","category":"misc","sold":false,"dateOfSale":"2022-01-01T00:00:00Z"}
]`

func serve(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestImporter_Import(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, document)
	store := memory.New()
	imp := NewImporter(store, srv.URL, WithHTTPClient(srv.Client()))

	res, err := imp.Import(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Fetched != 3 || res.Inserted != 2 || res.Invalid != 1 || res.Skipped {
		t.Errorf("Import() = %+v", res)
	}
	if store.Len() != 2 {
		t.Fatalf("store has %d records, want 2", store.Len())
	}

	items, _ := store.Find(context.Background(), core.Filter{}, 0, 0)
	if got := items[0].Images; len(got) != 1 || !strings.HasSuffix(got[0], "_AC_SL1500_.jpg") {
		t.Errorf("single image not normalised: %v", got)
	}
	if got := items[1].Images; len(got) != 2 {
		t.Errorf("images array not kept: %v", got)
	}
	// 20:29 at +05:30 is 14:59 UTC on the same day.
	if items[0].Month() != int(time.November) {
		t.Errorf("month = %d, want 11", items[0].Month())
	}
}

func TestImporter_SkipsSeededStore(t *testing.T) {
	srv, hits := serve(t, http.StatusOK, document)
	store := memory.New(core.Transaction{ID: 9, Price: 1, DateOfSale: time.Now()})
	imp := NewImporter(store, srv.URL, WithHTTPClient(srv.Client()))

	res, err := imp.Import(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if !res.Skipped || hits.Load() != 0 {
		t.Errorf("expected skip without fetching, got %+v and %d fetches", res, hits.Load())
	}

	res, err = imp.Import(context.Background(), Request{Force: true})
	if err != nil {
		t.Fatalf("forced Import() error = %v", err)
	}
	if res.Skipped || res.Inserted != 2 || store.Len() != 3 {
		t.Errorf("forced Import() = %+v, store has %d", res, store.Len())
	}
}

func TestImporter_SourceURLOverride(t *testing.T) {
	srv, hits := serve(t, http.StatusOK, document)
	imp := NewImporter(memory.New(), "http://127.0.0.1:1/unused", WithHTTPClient(srv.Client()))

	if _, err := imp.Import(context.Background(), Request{SourceURL: srv.URL}); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("override URL fetched %d times", hits.Load())
	}
}

func TestImporter_BadDateIsInvalid(t *testing.T) {
	doc := `[
	  {"id":1,"title":"Backpack","price":329.85,"description":"pack","category":"men's clothing","sold":false,"dateOfSale":"2021-11-27T20:29:54+05:30"},
	  {"id":2,"title":"T-Shirt","price":44.6,"description":"slim","category":"men's clothing","sold":true,"dateOfSale":"27/11/2021"},
	  {"id":3,"title":"Jacket","price":55.99,"description":"warm","category":"men's clothing","sold":true}
	]`
	srv, _ := serve(t, http.StatusOK, doc)
	store := memory.New()
	imp := NewImporter(store, srv.URL, WithHTTPClient(srv.Client()))

	res, err := imp.Import(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Fetched != 3 || res.Inserted != 1 || res.Invalid != 2 {
		t.Errorf("Import() = %+v", res)
	}
	items, _ := store.Find(context.Background(), core.Filter{}, 0, 0)
	if len(items) != 1 || items[0].ID != 1 {
		t.Errorf("stored %+v, want only record 1", items)
	}
}

func TestImporter_FailedInsertLeavesStoreEmptyAndRetries(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, document)
	target := &countingTarget{Store: memory.New(), fail: true}
	imp := NewImporter(target, srv.URL, WithHTTPClient(srv.Client()))

	res, err := imp.Import(context.Background(), Request{})
	if err == nil {
		t.Fatal("Import() should fail when the store rejects the insert")
	}
	if res.Inserted != 0 || target.Len() != 0 {
		t.Fatalf("failed import left %d records (result %+v)", target.Len(), res)
	}

	// A later unforced attempt must not be skipped.
	target.fail = false
	res, err = imp.Import(context.Background(), Request{})
	if err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if res.Skipped || res.Inserted != 2 || target.Len() != 2 {
		t.Errorf("retry = %+v, store has %d", res, target.Len())
	}
	if target.batches != 2 {
		t.Errorf("InsertMany called %d times, want one per import", target.batches)
	}
}

type countingTarget struct {
	*memory.Store
	batches int
	fail    bool
}

func (c *countingTarget) InsertMany(ctx context.Context, items []core.Transaction) (int, error) {
	c.batches++
	if c.fail {
		return 0, &core.StoreError{Op: "insert", Err: errors.New("disk full")}
	}
	return c.Store.InsertMany(ctx, items)
}

func TestImporter_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		fail   bool
		want   string
	}{
		{name: "bad status", status: http.StatusNotFound, body: "missing", want: "unexpected status"},
		{name: "bad json", status: http.StatusOK, body: `{"id":1}`, want: "decode seed document"},
		{name: "empty body", status: http.StatusOK, body: "", want: "empty body"},
		{name: "store failure", status: http.StatusOK, body: document, fail: true, want: "insert seed records"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := serve(t, tt.status, tt.body)
			target := &countingTarget{Store: memory.New(), fail: tt.fail}
			imp := NewImporter(target, srv.URL, WithHTTPClient(srv.Client()))

			_, err := imp.Import(context.Background(), Request{})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Import() error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestImporter_ContextCancelled(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, document)
	imp := NewImporter(memory.New(), srv.URL, WithHTTPClient(srv.Client()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := imp.Import(ctx, Request{Force: true}); !errors.Is(err, context.Canceled) {
		t.Errorf("Import() error = %v, want context.Canceled", err)
	}
}
