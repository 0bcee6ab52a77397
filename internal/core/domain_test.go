package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestParseMonth(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"1", 1, true},
		{"12", 12, true},
		{" 3 ", 3, true},
		{"0", 0, false},
		{"13", 0, false},
		{"-1", 0, false},
		{"", 0, false},
		{"march", 0, false},
		{"3.5", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMonth(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.want, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("%q expected invalid argument, got %v", tc.in, err)
		}
	}
}

func TestMonthOfIgnoresYearAndUsesUTC(t *testing.T) {
	a := time.Date(2021, time.March, 15, 10, 0, 0, 0, time.UTC)
	b := time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC)
	if MonthOf(a) != 3 || MonthOf(b) != 3 {
		t.Fatalf("expected month 3 for both, got %d and %d", MonthOf(a), MonthOf(b))
	}

	// 2021-04-01 02:00 +05:30 is still March 31st in UTC.
	ist := time.FixedZone("IST", 5*3600+1800)
	c := time.Date(2021, time.April, 1, 2, 0, 0, 0, ist)
	if got := MonthOf(c); got != 3 {
		t.Fatalf("expected UTC month 3, got %d", got)
	}
}

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"99.99", 99.99, true},
		{"250", 250, true},
		{"", 0, false},
		{"notanumber123", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"12abc", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParsePrice(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Fatalf("%q expected (%v,%v), got (%v,%v)", tc.in, tc.want, tc.ok, got, ok)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{ID: 1, Price: 10, DateOfSale: time.Now()}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []Transaction{
		{ID: 2, Price: -1, DateOfSale: time.Now()},
		{ID: 3, Price: math.NaN(), DateOfSale: time.Now()},
		{ID: 4, Price: 1},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestStoreErrorWrapping(t *testing.T) {
	base := errors.New("connection refused")
	err := WrapStoreError("count", base)
	if !IsStoreError(err) {
		t.Fatalf("expected store error, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause")
	}
	if IsInvalidArgument(err) {
		t.Fatalf("store error must not look like invalid argument")
	}
	if again := WrapStoreError("find", err); again != err {
		t.Fatalf("expected existing store error to pass through")
	}
	if WrapStoreError("noop", nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct{ count, size, want int64 }{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{60, 7, 9},
		{5, 0, 0},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.count, tc.size); got != tc.want {
			t.Fatalf("TotalPages(%d,%d)=%d want %d", tc.count, tc.size, got, tc.want)
		}
	}
}
