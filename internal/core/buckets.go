package core

import (
	"math"
	"strconv"
)

// Bucket is a price interval of the histogram. Ranges are labelled with inclusive
// integer bounds; a fractional price between two ranges (100.5) belongs to the
// upper one so every non-negative price falls in exactly one bucket.
type Bucket struct {
	Min float64
	Max float64
}

// PriceBuckets is the fixed, ordered histogram layout.
var PriceBuckets = []Bucket{
	{Min: 0, Max: 100},
	{Min: 101, Max: 200},
	{Min: 201, Max: 300},
	{Min: 301, Max: 400},
	{Min: 401, Max: 500},
	{Min: 501, Max: 600},
	{Min: 601, Max: 700},
	{Min: 701, Max: 800},
	{Min: 801, Max: 900},
	{Min: 901, Max: math.Inf(1)},
}

// Lower returns the lower bound and whether it is inclusive.
func (b Bucket) Lower() (float64, bool) {
	if b.Min == 0 {
		return 0, true
	}
	return b.Min - 1, false
}

// Unbounded reports whether the bucket has no upper limit.
func (b Bucket) Unbounded() bool {
	return math.IsInf(b.Max, 1)
}

func (b Bucket) Contains(price float64) bool {
	if !b.Unbounded() && price > b.Max {
		return false
	}
	lo, inclusive := b.Lower()
	if inclusive {
		return price >= lo
	}
	return price > lo
}

// Label renders the bucket as "min-max", e.g. "201-300" or "901-Infinity".
func (b Bucket) Label() string {
	return formatBound(b.Min) + "-" + formatBound(b.Max)
}

func formatBound(v float64) string {
	if math.IsInf(v, 1) {
		return "Infinity"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
