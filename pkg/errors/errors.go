// Package errors provides the error types shared by the carbonml estimators and
// pipeline stages.
//
// It wraps github.com/cockroachdb/errors so that every error created here
// carries a stack trace (visible with %+v) while still working with the
// standard errors.Is / errors.As helpers.
//
// Two families of errors live here:
//
//   - estimator errors (DimensionError, NotFittedError, ValueError, ModelError,
//     ValidationError) raised by the numeric packages
//   - pipeline errors (MissingArtifactError, SchemaViolationError,
//     UnknownCategoryError, FeatureMismatchError) raised by cleaning, training
//     and scoring
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

const prefix = "carbonml"

// Sentinel errors.
var (
	// ErrEmptyData is returned when an operation receives zero samples.
	ErrEmptyData = errors.New("empty data")
	// ErrSingularMatrix is returned when a linear system has no unique solution.
	ErrSingularMatrix = errors.New("singular matrix")
	// ErrNotImplemented marks functionality that is intentionally absent.
	ErrNotImplemented = errors.New("not implemented")
)

// New creates an error with a stack trace.
func New(msg string) error { return errors.New(msg) }

// Newf creates a formatted error with a stack trace.
func Newf(format string, args ...interface{}) error { return errors.Newf(format, args...) }

// Wrap annotates err with msg. Returns nil when err is nil.
func Wrap(err error, msg string) error { return errors.Wrap(err, msg) }

// Wrapf annotates err with a formatted message. Returns nil when err is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool { return errors.As(err, target) }

// DimensionError reports a shape mismatch between inputs.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

func (e *DimensionError) Error() string {
	axis := "features"
	if e.Axis == 0 {
		axis = "samples"
	}
	return fmt.Sprintf("%s: %s: dimension mismatch on %s: expected %d, got %d",
		prefix, e.Op, axis, e.Expected, e.Got)
}

// NewDimensionError creates a DimensionError. Axis 0 is rows, 1 is columns.
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// NotFittedError is returned when an estimator is used before Fit.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("%s: %s: this %s instance is not fitted yet, call Fit before %s",
		prefix, e.ModelName, e.ModelName, e.Method)
}

// NewNotFittedError creates a NotFittedError.
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// ValueError reports an invalid argument value.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: %s: %s", prefix, e.Op, e.Message)
}

// NewValueError creates a ValueError.
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ModelError wraps a lower level failure with the operation that hit it.
type ModelError struct {
	Op      string
	Message string
	Err     error
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s: %s", prefix, e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s: %v", prefix, e.Op, e.Message, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// NewModelError creates a ModelError.
func NewModelError(op, message string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Message: message, Err: err})
}

// ValidationError reports an invalid configuration or input parameter.
type ValidationError struct {
	Op      string
	Message string
	Param   string
}

func (e *ValidationError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("%s: %s: %s", prefix, e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s: invalid %s: %s", prefix, e.Op, e.Param, e.Message)
}

// NewValidationError creates a ValidationError for the named parameter.
func NewValidationError(op, message, param string) error {
	return errors.WithStack(&ValidationError{Op: op, Message: message, Param: param})
}

// Recover converts a panic raised inside op into an error stored in *err.
// It must be deferred directly:
//
//	func (m *Model) Fit(X, y mat.Matrix) (err error) {
//		defer errors.Recover(&err, "Model.Fit")
//		...
//	}
func Recover(err *error, op string) {
	r := recover()
	if r == nil {
		return
	}
	var cause error
	switch v := r.(type) {
	case error:
		cause = v
	default:
		cause = errors.Newf("%v", v)
	}
	*err = errors.WithStack(&ModelError{Op: op, Message: "recovered from panic", Err: cause})
}
