// Package preprocessing provides feature transformers used before fitting.
//
//   - StandardScaler: removes the per-feature mean and scales to unit variance
//   - LabelEncoder: maps the distinct values of a categorical column to the
//     codes 0..n-1 in lexicographic order
//
// Both follow the Fit / Transform pattern and embed model.BaseEstimator so they
// can be persisted with model.SaveModel.
//
// Example usage:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	if err := scaler.Fit(X); err != nil {
//		return err
//	}
//	scaled, err := scaler.Transform(X)
package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/carbonml/core/model"
	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
)

// minScale is the standard deviation below which a feature is treated as
// constant and left unscaled.
const minScale = 1e-8

// StandardScaler standardizes features to zero mean and unit variance using
// population statistics.
type StandardScaler struct {
	model.BaseEstimator

	Mean      []float64 // per-feature mean (zeros when WithMean is false)
	Scale     []float64 // per-feature standard deviation (ones when WithStd is false)
	NFeatures int
	WithMean  bool
	WithStd   bool
}

// NewStandardScaler creates a StandardScaler.
//
// Parameters:
//   - withMean: center the data by removing the mean
//   - withStd: divide by the standard deviation
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	s := &StandardScaler{WithMean: withMean, WithStd: withStd}
	s.ModelType = "StandardScaler"
	return s
}

// NewStandardScalerDefault creates a StandardScaler that centers and scales.
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit computes the per-feature mean and standard deviation of X.
func (s *StandardScaler) Fit(X mat.Matrix) (err error) {
	defer cmlErrors.Recover(&err, "StandardScaler.Fit")
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return cmlErrors.NewModelError("StandardScaler.Fit", "empty data", cmlErrors.ErrEmptyData)
	}

	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		mean, variance := stat.PopMeanVariance(col, nil)

		if s.WithMean {
			s.Mean[j] = mean
		}

		s.Scale[j] = 1.0
		if s.WithStd {
			if !s.WithMean {
				// spread around zero when the data is not centered
				variance += mean * mean
			}
			if std := math.Sqrt(variance); std >= minScale {
				s.Scale[j] = std
			}
		}
	}

	s.SetFitted()
	return nil
}

// Transform standardizes X with the fitted statistics.
func (s *StandardScaler) Transform(X mat.Matrix) (_ *mat.Dense, err error) {
	defer cmlErrors.Recover(&err, "StandardScaler.Transform")
	if !s.IsFitted() {
		return nil, cmlErrors.NewNotFittedError("StandardScaler", "Transform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, cmlErrors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)
	return out, nil
}

// FitTransform fits the scaler on X and returns the standardized X.
func (s *StandardScaler) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform maps standardized values back to the original scale.
func (s *StandardScaler) InverseTransform(X mat.Matrix) (_ *mat.Dense, err error) {
	defer cmlErrors.Recover(&err, "StandardScaler.InverseTransform")
	if !s.IsFitted() {
		return nil, cmlErrors.NewNotFittedError("StandardScaler", "InverseTransform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, cmlErrors.NewDimensionError("StandardScaler.InverseTransform", s.NFeatures, c, 1)
	}

	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return v*s.Scale[j] + s.Mean[j]
	}, X)
	return out, nil
}
