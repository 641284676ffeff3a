package model

import "gonum.org/v1/gonum/mat"

// Fittable reports whether an estimator has been trained.
type Fittable interface {
	IsFitted() bool
}

// Regressor is a supervised model predicting one continuous target.
type Regressor interface {
	Fittable
	Fit(X mat.Matrix, y mat.Vector) error
	Predict(X mat.Matrix) (*mat.VecDense, error)
}

// Transformer maps a feature matrix to another feature matrix.
type Transformer interface {
	Fittable
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (*mat.Dense, error)
}

// Clusterer assigns each row to a cluster id.
type Clusterer interface {
	Fittable
	Fit(X mat.Matrix) error
	Predict(X mat.Matrix) ([]int, error)
}

// FeatureImportancer exposes normalized per-feature importances.
type FeatureImportancer interface {
	FeatureImportances() ([]float64, error)
}
