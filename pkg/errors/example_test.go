package errors_test

import (
	"errors"
	"fmt"

	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
)

// Example_customErrorTypes demonstrates extracting a typed error from a chain
func Example_customErrorTypes() {
	dimErr := cmlErrors.NewDimensionError("StandardScaler.Transform", 19, 17, 1)

	wrappedErr := fmt.Errorf("segmentation failed: %w", dimErr)

	var dimensionErr *cmlErrors.DimensionError
	if errors.As(wrappedErr, &dimensionErr) {
		fmt.Printf("Dimension error: expected %d, got %d\n",
			dimensionErr.Expected, dimensionErr.Got)
	}

	// Output: Dimension error: expected 19, got 17
}

// Example_errorComparison demonstrates sentinel and type checks side by side
func Example_errorComparison() {
	notFittedErr := cmlErrors.NewNotFittedError("KMeans", "Predict")
	valueErr := cmlErrors.NewValueError("StandardScaler", "empty input")

	var notFitted *cmlErrors.NotFittedError
	if errors.As(notFittedErr, &notFitted) {
		fmt.Printf("Model %s is not fitted for %s\n",
			notFitted.ModelName, notFitted.Method)
	}

	var valErr *cmlErrors.ValueError
	if errors.As(valueErr, &valErr) {
		fmt.Printf("Value error in %s: %s\n", valErr.Op, valErr.Message)
	}

	// Output: Model KMeans is not fitted for Predict
	// Value error in StandardScaler: empty input
}

// Example_unknownCategory shows how scoring callers distinguish error kinds
func Example_unknownCategory() {
	err := cmlErrors.NewUnknownCategoryError("diet", "carnivore",
		[]string{"omnivore", "pescatarian", "vegan", "vegetarian"})

	if errors.Is(err, cmlErrors.ErrUnknownCategory) {
		fmt.Println(err)
	}

	// Output: carbonml: unknown category "carnivore" for column "diet" (known: omnivore, pescatarian, vegan, vegetarian)
}

// Example_errorLogging demonstrates the message of a nested model error
func Example_errorLogging() {
	baseErr := cmlErrors.NewModelError("LinearRegression.Fit", "least squares failed",
		cmlErrors.ErrSingularMatrix)

	opErr := fmt.Errorf("cross validation fold 3: %w", baseErr)

	fmt.Printf("Error occurred during training: %v\n", opErr)

	// Output: Error occurred during training: cross validation fold 3: carbonml: LinearRegression.Fit: least squares failed: singular matrix
}
