package core

import "strings"

// PredicateKind tags the sub-predicates a Filter can OR together.
type PredicateKind int

const (
	TextContains PredicateKind = iota
	PriceEquals
)

// Searchable text fields.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
)

// Predicate is one tagged sub-condition. Text predicates match a case-insensitive
// substring of Field; price predicates match Price exactly.
type Predicate struct {
	Kind  PredicateKind
	Field string
	Text  string
	Price float64
}

// Filter selects transactions. Zero values mean "no constraint"; AnyOf is a
// disjunction and an empty AnyOf matches everything.
type Filter struct {
	Month      int
	Sold       *bool
	PriceRange *Bucket
	AnyOf      []Predicate
}

// SearchFilter matches title or description containing text, or a price equal to
// text when it parses as a finite number. Empty text matches all records.
func SearchFilter(text string) Filter {
	return Filter{AnyOf: searchPredicates(text, true)}
}

// MonthFilter matches records sold in month m of any year.
func MonthFilter(m int) Filter {
	return Filter{Month: m}
}

// MonthSearchFilter narrows a month to records whose title or description contains
// text. There is no price branch here.
func MonthSearchFilter(m int, text string) Filter {
	return Filter{Month: m, AnyOf: searchPredicates(text, false)}
}

func searchPredicates(text string, withPrice bool) []Predicate {
	if text == "" {
		return nil
	}
	folded := Fold(text)
	preds := []Predicate{
		{Kind: TextContains, Field: FieldTitle, Text: folded},
		{Kind: TextContains, Field: FieldDescription, Text: folded},
	}
	if withPrice {
		// Whole-string parse: "12abc" is not a price search, unlike a
		// prefix parse that would read it as 12.
		if p, ok := ParsePrice(text); ok {
			preds = append(preds, Predicate{Kind: PriceEquals, Price: p})
		}
	}
	return preds
}

// WithSold returns a copy of f restricted to the given sold flag.
func (f Filter) WithSold(sold bool) Filter {
	f.Sold = &sold
	return f
}

// WithPriceRange returns a copy of f restricted to bucket b.
func (f Filter) WithPriceRange(b Bucket) Filter {
	f.PriceRange = &b
	return f
}

// Match evaluates the filter in memory. SQL stores translate the same Filter into
// a WHERE clause and must agree with this.
func (f Filter) Match(t Transaction) bool {
	if f.Month != 0 && t.Month() != f.Month {
		return false
	}
	if f.Sold != nil && t.Sold != *f.Sold {
		return false
	}
	if f.PriceRange != nil && !f.PriceRange.Contains(t.Price) {
		return false
	}
	if len(f.AnyOf) == 0 {
		return true
	}
	for _, p := range f.AnyOf {
		if p.Match(t) {
			return true
		}
	}
	return false
}

func (p Predicate) Match(t Transaction) bool {
	switch p.Kind {
	case TextContains:
		switch p.Field {
		case FieldTitle:
			return strings.Contains(Fold(t.Title), p.Text)
		case FieldDescription:
			return strings.Contains(Fold(t.Description), p.Text)
		}
	case PriceEquals:
		return t.Price == p.Price
	}
	return false
}

// Fold normalises text for case-insensitive matching. Stores persist folded copies
// of searchable fields computed with this function.
func Fold(s string) string {
	return strings.ToLower(s)
}
