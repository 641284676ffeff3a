package metrics_test

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carbonml/metrics"
)

// ExampleMSE demonstrates Mean Squared Error calculation
func ExampleMSE() {
	yTrue := mat.NewVecDense(4, []float64{1.0, 2.0, 3.0, 4.0})
	yPred := mat.NewVecDense(4, []float64{1.1, 1.9, 3.2, 3.8})

	mse, err := metrics.MSE(yTrue, yPred)
	if err != nil {
		return
	}

	fmt.Printf("MSE: %.3f\n", mse)

	// Output: MSE: 0.025
}

// ExampleRMSE demonstrates Root Mean Squared Error calculation
func ExampleRMSE() {
	yTrue := mat.NewVecDense(3, []float64{10.0, 20.0, 30.0})
	yPred := mat.NewVecDense(3, []float64{12.0, 18.0, 32.0})

	rmse, err := metrics.RMSE(yTrue, yPred)
	if err != nil {
		return
	}

	fmt.Printf("RMSE: %.3f\n", rmse)

	// Output: RMSE: 2.000
}

// ExampleR2Score demonstrates R² for imperfect predictions
func ExampleR2Score() {
	yTrue := mat.NewVecDense(4, []float64{1.0, 2.0, 3.0, 4.0})
	yPred := mat.NewVecDense(4, []float64{1.0, 2.0, 3.0, 5.0})

	r2, err := metrics.R2Score(yTrue, yPred)
	if err != nil {
		return
	}

	fmt.Printf("R2: %.2f\n", r2)

	// Output: R2: 0.80
}

// ExampleMeanStd summarizes cross-validation scores
func ExampleMeanStd() {
	mean, std, err := metrics.MeanStd([]float64{0.9, 0.8, 0.7})
	if err != nil {
		return
	}

	fmt.Printf("%.2f ± %.3f\n", mean, std)

	// Output: 0.80 ± 0.082
}
