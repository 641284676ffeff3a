package errors

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Pipeline error kinds. Each typed error below matches exactly one of these
// through errors.Is.
var (
	ErrMissingArtifact = errors.New("missing artifact")
	ErrSchemaViolation = errors.New("schema violation")
	ErrUnknownCategory = errors.New("unknown category")
	ErrFeatureMismatch = errors.New("feature mismatch")
)

// MissingArtifactError is returned when a persisted artifact cannot be found.
type MissingArtifactError struct {
	Artifact string
	Path     string
	Hint     string
}

func (e *MissingArtifactError) Error() string {
	msg := fmt.Sprintf("%s: missing artifact %q at %s", prefix, e.Artifact, e.Path)
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	return msg
}

func (e *MissingArtifactError) Is(target error) bool { return target == ErrMissingArtifact }

// NewMissingArtifactError creates a MissingArtifactError. hint tells the user
// what to run to produce the artifact.
func NewMissingArtifactError(artifact, path, hint string) error {
	return errors.WithStack(&MissingArtifactError{Artifact: artifact, Path: path, Hint: hint})
}

// SchemaViolationError is returned when data or artifacts break the agreed
// shape: nulls after imputation, missing columns, feature count or order
// disagreement between artifacts.
type SchemaViolationError struct {
	Op     string
	Detail string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("%s: %s: schema violation: %s", prefix, e.Op, e.Detail)
}

func (e *SchemaViolationError) Is(target error) bool { return target == ErrSchemaViolation }

// NewSchemaViolationError creates a SchemaViolationError.
func NewSchemaViolationError(op, format string, args ...interface{}) error {
	return errors.WithStack(&SchemaViolationError{Op: op, Detail: fmt.Sprintf(format, args...)})
}

// UnknownCategoryError is returned when a categorical value is absent from the
// training-time encoding table.
type UnknownCategoryError struct {
	Column string
	Value  string
	Known  []string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("%s: unknown category %q for column %q (known: %s)",
		prefix, e.Value, e.Column, strings.Join(e.Known, ", "))
}

func (e *UnknownCategoryError) Is(target error) bool { return target == ErrUnknownCategory }

// NewUnknownCategoryError creates an UnknownCategoryError.
func NewUnknownCategoryError(column, value string, known []string) error {
	k := make([]string, len(known))
	copy(k, known)
	return errors.WithStack(&UnknownCategoryError{Column: column, Value: value, Known: k})
}

// FeatureMismatchError is returned when an input row lacks features the
// models were trained on.
type FeatureMismatchError struct {
	Missing []string
}

func (e *FeatureMismatchError) Error() string {
	return fmt.Sprintf("%s: feature mismatch: missing required features: %s",
		prefix, strings.Join(e.Missing, ", "))
}

func (e *FeatureMismatchError) Is(target error) bool { return target == ErrFeatureMismatch }

// NewFeatureMismatchError creates a FeatureMismatchError.
func NewFeatureMismatchError(missing []string) error {
	m := make([]string, len(missing))
	copy(m, missing)
	return errors.WithStack(&FeatureMismatchError{Missing: m})
}
