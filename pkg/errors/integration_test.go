package errors_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
)

// TestErrorWrappingCompatibility tests standard wrapping with our custom types
func TestErrorWrappingCompatibility(t *testing.T) {
	originalErr := cmlErrors.NewNotFittedError("TestModel", "Predict")

	wrappedErr := fmt.Errorf("pipeline step failed: %w", originalErr)

	if !errors.Is(wrappedErr, originalErr) {
		t.Errorf("errors.Is failed to identify wrapped error")
	}

	var notFittedErr *cmlErrors.NotFittedError
	if !errors.As(wrappedErr, &notFittedErr) {
		t.Fatalf("errors.As failed to extract NotFittedError")
	}

	if notFittedErr.ModelName != "TestModel" {
		t.Errorf("expected ModelName 'TestModel', got '%s'", notFittedErr.ModelName)
	}
}

// TestCombinedErrorTypes tests mixing custom and standard errors
func TestCombinedErrorTypes(t *testing.T) {
	stdErr := fmt.Errorf("standard error")

	customErr := cmlErrors.NewModelError("TestOp", "test failure", stdErr)

	wrappedErr := fmt.Errorf("operation context: %w", customErr)

	if !errors.Is(wrappedErr, stdErr) {
		t.Errorf("failed to find standard error in chain")
	}

	var modelErr *cmlErrors.ModelError
	if !errors.As(wrappedErr, &modelErr) {
		t.Fatalf("failed to extract ModelError")
	}

	if modelErr.Unwrap() != stdErr {
		t.Errorf("ModelError.Unwrap() didn't return expected error")
	}
}

// TestSentinelErrors tests sentinel error patterns
func TestSentinelErrors(t *testing.T) {
	err := cmlErrors.NewModelError("TestOp", "empty data", cmlErrors.ErrEmptyData)

	if !errors.Is(err, cmlErrors.ErrEmptyData) {
		t.Errorf("failed to identify ErrEmptyData sentinel")
	}

	wrappedErr := fmt.Errorf("preprocessing failed: %w", err)

	if !errors.Is(wrappedErr, cmlErrors.ErrEmptyData) {
		t.Errorf("failed to identify ErrEmptyData through wrapper")
	}
}

func TestPipelineErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		contains string
	}{
		{
			name:     "missing artifact",
			err:      cmlErrors.NewMissingArtifactError("random_forest", "models/random_forest.gob", "run `carbonml train` first"),
			sentinel: cmlErrors.ErrMissingArtifact,
			contains: "run `carbonml train` first",
		},
		{
			name:     "schema violation",
			err:      cmlErrors.NewSchemaViolationError("dataset.Clean", "%d nulls remain in %s", 3, "sex"),
			sentinel: cmlErrors.ErrSchemaViolation,
			contains: "3 nulls remain in sex",
		},
		{
			name:     "unknown category",
			err:      cmlErrors.NewUnknownCategoryError("diet", "carnivore", []string{"vegan"}),
			sentinel: cmlErrors.ErrUnknownCategory,
			contains: `"carnivore"`,
		},
		{
			name:     "feature mismatch",
			err:      cmlErrors.NewFeatureMismatchError([]string{"sex", "diet"}),
			sentinel: cmlErrors.ErrFeatureMismatch,
			contains: "sex, diet",
		},
	}

	all := []error{
		cmlErrors.ErrMissingArtifact,
		cmlErrors.ErrSchemaViolation,
		cmlErrors.ErrUnknownCategory,
		cmlErrors.ErrFeatureMismatch,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := cmlErrors.Wrap(tt.err, "request 42")
			for _, s := range all {
				got := errors.Is(wrapped, s)
				if got != (s == tt.sentinel) {
					t.Errorf("errors.Is(%v, %v) = %v", wrapped, s, got)
				}
			}
			if msg := wrapped.Error(); !strings.Contains(msg, tt.contains) {
				t.Errorf("message %q does not contain %q", msg, tt.contains)
			}
		})
	}
}

func TestUnknownCategoryCopiesKnown(t *testing.T) {
	known := []string{"a", "b"}
	err := cmlErrors.NewUnknownCategoryError("col", "c", known)
	known[0] = "mutated"

	var uc *cmlErrors.UnknownCategoryError
	if !errors.As(err, &uc) {
		t.Fatal("expected UnknownCategoryError")
	}
	if uc.Known[0] != "a" {
		t.Errorf("Known aliased caller slice: %v", uc.Known)
	}
}

func TestRecover(t *testing.T) {
	run := func() (err error) {
		defer cmlErrors.Recover(&err, "Tree.Fit")
		var s []int
		_ = s[3]
		return nil
	}

	err := run()
	if err == nil {
		t.Fatal("expected recovered error")
	}
	var modelErr *cmlErrors.ModelError
	if !errors.As(err, &modelErr) || modelErr.Op != "Tree.Fit" {
		t.Errorf("unexpected recovered error: %v", err)
	}
}
