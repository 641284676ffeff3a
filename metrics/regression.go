// Package metrics provides regression evaluation metrics.
//
//   - MSE / RMSE: squared error, RMSE in target units
//   - MAE: mean absolute error
//   - R2Score: coefficient of determination
//   - MeanStd: summary of a set of scores, e.g. cross-validation folds
//
// Inputs are gonum vectors of equal, non-zero length.
//
// Example usage:
//
//	r2, err := metrics.R2Score(yTest, pred)
//	rmse, err := metrics.RMSE(yTest, pred)
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
)

func validate(op string, yTrue, yPred mat.Vector) (int, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, cmlErrors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, cmlErrors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// MSE calculates the Mean Squared Error between true and predicted values.
//
// Errors:
//   - ValueError: if input vectors are empty
//   - DimensionError: if yTrue and yPred have different lengths
//
// Example:
//
//	mse, err := metrics.MSE(yTrue, yPred)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("MSE: %.4f\n", mse)
func MSE(yTrue, yPred mat.Vector) (float64, error) {
	n, err := validate("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}

	return sum / float64(n), nil
}

// RMSE calculates the Root Mean Squared Error, in the units of the target.
func RMSE(yTrue, yPred mat.Vector) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE calculates the Mean Absolute Error between true and predicted values.
func MAE(yTrue, yPred mat.Vector) (float64, error) {
	n, err := validate("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}

	return sum / float64(n), nil
}

// R2Score calculates the coefficient of determination 1 - SS_res/SS_tot.
//
// The score is 1 for a perfect fit, 0 for a model that always predicts the
// mean, and negative for worse. When yTrue is constant the score is 1 for a
// perfect prediction and 0 otherwise.
func R2Score(yTrue, yPred mat.Vector) (float64, error) {
	n, err := validate("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var mean float64
	for i := 0; i < n; i++ {
		mean += yTrue.AtVec(i)
	}
	mean /= float64(n)

	var ssRes, ssTot float64
	for i := 0; i < n; i++ {
		t := yTrue.AtVec(i)
		d := t - yPred.AtVec(i)
		ssRes += d * d
		m := t - mean
		ssTot += m * m
	}

	if ssTot == 0 {
		if ssRes == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return 1 - ssRes/ssTot, nil
}

// MeanStd returns the mean and population standard deviation of scores.
func MeanStd(scores []float64) (mean, std float64, err error) {
	if len(scores) == 0 {
		return 0, 0, cmlErrors.NewValueError("MeanStd", "no scores")
	}
	mean, variance := stat.PopMeanVariance(scores, nil)
	return mean, math.Sqrt(variance), nil
}
