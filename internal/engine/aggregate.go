package engine

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/KaramelBytes/dashloom-cli/internal/dataset"
	"github.com/KaramelBytes/dashloom-cli/internal/schema"
)

var (
	// ErrUnknownColumn is reported for a KPI whose column is empty or absent from every row.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrIncompleteChart is reported for a chart missing its dimension or metric column.
	ErrIncompleteChart = errors.New("chart definition is incomplete")
)

// reduce folds vals with agg. Count is the number of values, avg of an empty
// set is 0, and unknown aggregations sum.
func reduce(agg schema.Aggregation, vals []float64) float64 {
	switch agg {
	case schema.AggCount:
		return float64(len(vals))
	case schema.AggAvg:
		if len(vals) == 0 {
			return 0
		}
		return sum(vals) / float64(len(vals))
	default:
		return sum(vals)
	}
}

// descending orders a before b when a is larger. NaN sorts after every number.
func descending(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	return a > b
}

// finite returns nil for NaN and infinities, which JSON cannot carry.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func sum(vals []float64) float64 {
	var total float64
	for _, v := range vals {
		total += v
	}
	return total
}

// isolate runs fn and converts a panic into an error so one failing item
// cannot abort its batch.
func isolate(what string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %v", what, r)
		}
	}()
	return fn()
}

var english = message.NewPrinter(language.English)

// FormatMagnitude renders a KPI value: millions and thousands are abbreviated
// to one decimal with an M or K suffix, smaller values are rounded to an
// integer with English thousands separators.
func FormatMagnitude(v float64) string {
	switch {
	case math.IsNaN(v), math.IsInf(v, 0):
		return dataset.FormatNumber(v)
	case v >= 1e6:
		return fixed1(v/1e6) + "M"
	case v >= 1e3:
		return fixed1(v/1e3) + "K"
	}
	r := math.Floor(v + 0.5)
	if math.Abs(r) >= 1<<53 {
		return english.Sprintf("%.0f", r)
	}
	return english.Sprintf("%d", int64(r))
}

// fixed1 formats a non-negative x with exactly one decimal, resolving exact
// ties away from zero.
func fixed1(x float64) string {
	s := strconv.FormatFloat(x, 'f', 1, 64)
	scaled := new(big.Float).SetPrec(128).SetFloat64(x)
	scaled.Mul(scaled, big.NewFloat(10))
	whole, _ := scaled.Int(nil)
	frac := new(big.Float).SetPrec(128).Sub(scaled, new(big.Float).SetInt(whole))
	if frac.Cmp(big.NewFloat(0.5)) == 0 {
		up := new(big.Float).SetInt(whole.Add(whole, big.NewInt(1)))
		f, _ := up.Float64()
		return strconv.FormatFloat(f/10, 'f', 1, 64)
	}
	return s
}
