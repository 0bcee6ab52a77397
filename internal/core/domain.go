package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type (
	// Transaction is a single product-sale record. Records are created once by the
	// seed import and never mutated afterwards.
	Transaction struct {
		ID          int64     `json:"id"` // not unique across the store
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Price       float64   `json:"price"`
		Category    string    `json:"category"`
		Sold        bool      `json:"sold"`
		DateOfSale  time.Time `json:"dateOfSale"`
		Images      []string  `json:"images"`
	}

	// TransactionView is the projection returned by the month-scoped listings.
	TransactionView struct {
		ID          int64    `json:"id"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Price       float64  `json:"price"`
		Category    string   `json:"category"`
		Sold        bool     `json:"sold"`
		Images      []string `json:"images"`
	}
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidMonth    = fmt.Errorf("%w: invalid month, expected a value between 1 (January) and 12 (December)", ErrInvalidArgument)
)

// MonthOf returns the calendar month (1-12) of t in UTC. Every query path derives
// the month through this function so counts agree across views.
func MonthOf(t time.Time) int {
	return int(t.UTC().Month())
}

// ParseMonth parses a raw month parameter. Anything that is not an integer in
// [1,12] is rejected with ErrInvalidArgument.
func ParseMonth(raw string) (int, error) {
	m, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, ErrInvalidMonth
	}
	return m, ValidateMonth(m)
}

// ValidateMonth checks that m is a calendar month.
func ValidateMonth(m int) error {
	if m < 1 || m > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// ParsePrice reports whether s is a finite number, returning its value.
func ParsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Month returns the derived month of the sale date.
func (t Transaction) Month() int {
	return MonthOf(t.DateOfSale)
}

// View projects the transaction onto the fields exposed by month listings.
func (t Transaction) View() TransactionView {
	return TransactionView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Price:       t.Price,
		Category:    t.Category,
		Sold:        t.Sold,
		Images:      t.Images,
	}
}

func (t Transaction) Validate() error {
	if t.Price < 0 || math.IsNaN(t.Price) || math.IsInf(t.Price, 0) {
		return fmt.Errorf("transaction %d: invalid price %v", t.ID, t.Price)
	}
	if t.DateOfSale.IsZero() {
		return fmt.Errorf("transaction %d: missing date of sale", t.ID)
	}
	return nil
}
