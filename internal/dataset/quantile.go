package dataset

import (
	"math"
	"slices"
)

// Quantile returns the p-quantile of values by linear interpolation between
// the order statistics at positions floor(h) and ceil(h), h = (n-1)*p. This
// is the default of numpy.quantile and pandas.Series.quantile (Hyndman and
// Fan type 7). values is not modified. It returns NaN for empty input.
func Quantile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return quantileSorted(sorted, p)
}

func quantileSorted(sorted []float64, p float64) float64 {
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	hi := math.Ceil(h)
	if lo == hi {
		return sorted[int(lo)]
	}
	return sorted[int(lo)] + (h-lo)*(sorted[int(hi)]-sorted[int(lo)])
}

// Bounds are the inclusive limits of the IQR rule.
type Bounds struct {
	Q1    float64 `json:"q1"`
	Q3    float64 `json:"q3"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Contains reports whether v lies within the closed interval.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Lower && v <= b.Upper
}

// IQRBounds returns [Q1 - k*IQR, Q3 + k*IQR] for values.
func IQRBounds(values []float64, k float64) Bounds {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	q1 := quantileSorted(sorted, 0.25)
	q3 := quantileSorted(sorted, 0.75)
	iqr := q3 - q1
	return Bounds{Q1: q1, Q3: q3, Lower: q1 - k*iqr, Upper: q3 + k*iqr}
}

// FilterIQR returns the indices of values inside the IQR bounds with
// multiplier k, in ascending order, and the bounds used.
func FilterIQR(values []float64, k float64) ([]int, Bounds) {
	if len(values) == 0 {
		return nil, Bounds{}
	}
	b := IQRBounds(values, k)
	keep := make([]int, 0, len(values))
	for i, v := range values {
		if b.Contains(v) {
			keep = append(keep, i)
		}
	}
	return keep, b
}
