package model_test

import (
	"fmt"

	"github.com/ezoic/carbonml/core/model"
)

// ExampleBaseEstimator demonstrates BaseEstimator state management
func ExampleBaseEstimator() {
	estimator := &model.BaseEstimator{ModelType: "Example"}

	fmt.Printf("Initially fitted: %t\n", estimator.IsFitted())

	estimator.SetFitted()
	fmt.Printf("After SetFitted: %t\n", estimator.IsFitted())

	estimator.Reset()
	fmt.Printf("After Reset: %t\n", estimator.IsFitted())

	// Output: Initially fitted: false
	// After SetFitted: true
	// After Reset: false
}

// ExampleBaseEstimator_params shows hyperparameters recorded for reports
func ExampleBaseEstimator_params() {
	type Forest struct {
		model.BaseEstimator
	}

	f := &Forest{}
	f.SetParams(map[string]interface{}{"n_estimators": 200, "max_depth": 15})

	params := f.GetParams(true)
	fmt.Println(params["n_estimators"], params["max_depth"])

	// Output: 200 15
}
