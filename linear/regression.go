// Package linear provides ordinary least squares regression.
//
// LinearRegression centers X and y and takes the minimum-norm least squares
// solution from an SVD of the centered design, so constant or collinear
// columns still fit (their weights share the load or stay zero). The
// intercept is recovered from the means. It is the baseline candidate of the
// training pipeline.
//
// Example usage:
//
//	lr := linear.NewLinearRegression()
//	if err := lr.Fit(X, y); err != nil {
//		return err
//	}
//	predictions, err := lr.Predict(XTest)
package linear

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carbonml/core/model"
	"github.com/ezoic/carbonml/core/parallel"
	"github.com/ezoic/carbonml/metrics"
	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
	"github.com/ezoic/carbonml/pkg/log"
)

// parallelThreshold is the row count below which the design matrix is
// assembled sequentially.
const parallelThreshold = 1000

// LinearRegression is an ordinary least squares model with intercept.
type LinearRegression struct {
	model.BaseEstimator

	Weights   []float64 // Model weights (coefficients)
	Intercept float64   // Model intercept
	NFeatures int       // Number of features
}

// NewLinearRegression creates an untrained linear regression model.
func NewLinearRegression() *LinearRegression {
	lr := &LinearRegression{}
	lr.ModelType = "LinearRegression"
	lr.SetLogger(log.GetLoggerWithName("linear").With(
		log.ModelNameKey, "LinearRegression",
		log.ComponentKey, "linear",
	))
	return lr
}

// Fit trains the model on X (n_samples × n_features) and y (n_samples).
//
// Errors:
//   - ErrEmptyData: if X is empty
//   - DimensionError: if X and y disagree on the number of samples
//   - ValueError: if there are fewer samples than coefficients
//   - ModelError: if the SVD does not converge
func (lr *LinearRegression) Fit(X mat.Matrix, y mat.Vector) (err error) {
	defer cmlErrors.Recover(&err, "LinearRegression.Fit")

	startTime := time.Now()
	r, c := X.Dims()
	logger := lr.Logger()

	logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, r,
		log.FeaturesKey, c,
	)

	if r == 0 || c == 0 {
		return cmlErrors.NewModelError("LinearRegression.Fit", "empty data", cmlErrors.ErrEmptyData)
	}
	if y.Len() != r {
		return cmlErrors.NewDimensionError("LinearRegression.Fit", r, y.Len(), 0)
	}
	if r < c+1 {
		return cmlErrors.NewValueError("LinearRegression.Fit",
			"need at least n_features+1 samples for least squares")
	}

	xMean := make([]float64, c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			xMean[j] += X.At(i, j)
		}
		xMean[j] /= float64(r)
	}
	yMean := mat.Sum(y) / float64(r)

	centered := mat.NewDense(r, c, nil)
	yc := mat.NewVecDense(r, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < c; j++ {
				centered.Set(i, j, X.At(i, j)-xMean[j])
			}
			yc.SetVec(i, y.AtVec(i)-yMean)
		}
	})

	var svd mat.SVD
	if !svd.Factorize(centered, mat.SVDThin) {
		return cmlErrors.NewModelError("LinearRegression.Fit", "least squares failed", cmlErrors.ErrSingularMatrix)
	}
	rank := svd.Rank(float64(max(r, c)) * rcondEps)
	if rank < c {
		logger.Warn("Design matrix is rank deficient, using the minimum-norm solution",
			"rank", rank,
			log.FeaturesKey, c,
		)
	}
	coef := mat.NewVecDense(c, nil)
	if rank > 0 {
		svd.SolveVecTo(coef, yc, rank)
	}

	lr.NFeatures = c
	lr.Weights = make([]float64, c)
	lr.Intercept = yMean
	for j := 0; j < c; j++ {
		lr.Weights[j] = coef.AtVec(j)
		lr.Intercept -= lr.Weights[j] * xMean[j]
	}
	lr.SetFitted()

	logger.Info("Training completed",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.DurationMsKey, time.Since(startTime).Milliseconds(),
		log.SamplesKey, r,
		log.FeaturesKey, c,
	)

	return nil
}

// Predict returns X·w + intercept for every row of X.
//
// Errors:
//   - NotFittedError: if the model hasn't been trained yet
//   - DimensionError: if X has a different number of features than training data
func (lr *LinearRegression) Predict(X mat.Matrix) (_ *mat.VecDense, err error) {
	defer cmlErrors.Recover(&err, "LinearRegression.Predict")
	if !lr.IsFitted() {
		return nil, cmlErrors.NewNotFittedError("LinearRegression", "Predict")
	}

	r, c := X.Dims()
	if c != lr.NFeatures {
		return nil, cmlErrors.NewDimensionError("LinearRegression.Predict", lr.NFeatures, c, 1)
	}

	predictions := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		pred := lr.Intercept
		for j := 0; j < c; j++ {
			pred += X.At(i, j) * lr.Weights[j]
		}
		predictions.SetVec(i, pred)
	}

	lr.Logger().Debug("Prediction completed",
		log.OperationKey, log.OperationPredict,
		log.PhaseKey, log.PhaseInference,
		log.PredsKey, r,
	)

	return predictions, nil
}

// rcondEps scaled by max(n_samples, n_features) is the relative singular
// value cutoff, the same default as LAPACK gelsd callers use.
const rcondEps = 2.220446049250313e-16

// Coefficients returns a copy of the learned weights.
func (lr *LinearRegression) Coefficients() []float64 {
	out := make([]float64, len(lr.Weights))
	copy(out, lr.Weights)
	return out
}

// Score returns the coefficient of determination R² on (X, y).
func (lr *LinearRegression) Score(X mat.Matrix, y mat.Vector) (float64, error) {
	pred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(y, pred)
}
