package preprocessing

import (
	"fmt"
	"sort"

	"github.com/ezoic/carbonml/core/model"
	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
)

// LabelEncoder encodes one categorical column as integer codes. The code of a
// value is its position among the distinct observed values sorted in
// ascending byte order, so the codes of n classes are exactly 0..n-1.
type LabelEncoder struct {
	model.BaseEstimator

	// Column is the column name used in error messages.
	Column string

	// Classes holds the distinct values in code order.
	Classes []string

	classToCode map[string]int
}

// NewLabelEncoder creates an unfitted encoder for column.
func NewLabelEncoder(column string) *LabelEncoder {
	e := &LabelEncoder{Column: column}
	e.ModelType = "LabelEncoder"
	return e
}

// NewLabelEncoderFromClasses rebuilds a fitted encoder from a persisted class
// list. The list must be strictly increasing, which is what Fit produces.
func NewLabelEncoderFromClasses(column string, classes []string) (*LabelEncoder, error) {
	if len(classes) == 0 {
		return nil, cmlErrors.NewSchemaViolationError("LabelEncoder", "column %q has no classes", column)
	}
	for i := 1; i < len(classes); i++ {
		if classes[i-1] >= classes[i] {
			return nil, cmlErrors.NewSchemaViolationError("LabelEncoder",
				"classes of column %q are not strictly sorted at %q", column, classes[i])
		}
	}

	e := NewLabelEncoder(column)
	e.Classes = append([]string(nil), classes...)
	e.index()
	e.SetFitted()
	return e, nil
}

// Fit learns the sorted distinct values of data.
func (e *LabelEncoder) Fit(data []string) (err error) {
	defer cmlErrors.Recover(&err, "LabelEncoder.Fit")
	if len(data) == 0 {
		return cmlErrors.NewModelError("LabelEncoder.Fit", "empty data", cmlErrors.ErrEmptyData)
	}

	seen := make(map[string]struct{})
	classes := make([]string, 0)
	for _, v := range data {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Strings(classes)

	e.Classes = classes
	e.index()
	e.SetFitted()
	return nil
}

func (e *LabelEncoder) index() {
	e.classToCode = make(map[string]int, len(e.Classes))
	for code, class := range e.Classes {
		e.classToCode[class] = code
	}
}

// Encode returns the code of a single value.
//
// Errors:
//   - UnknownCategoryError: if value was not seen during Fit
func (e *LabelEncoder) Encode(value string) (int, error) {
	if !e.IsFitted() {
		return 0, cmlErrors.NewNotFittedError("LabelEncoder", "Encode")
	}
	if e.classToCode == nil {
		// decoded with gob, index is not persisted
		e.index()
	}
	code, ok := e.classToCode[value]
	if !ok {
		return 0, cmlErrors.NewUnknownCategoryError(e.Column, value, e.Classes)
	}
	return code, nil
}

// Transform encodes every value of data.
func (e *LabelEncoder) Transform(data []string) ([]int, error) {
	out := make([]int, len(data))
	for i, v := range data {
		code, err := e.Encode(v)
		if err != nil {
			return nil, err
		}
		out[i] = code
	}
	return out, nil
}

// FitTransform fits on data and returns its codes.
func (e *LabelEncoder) FitTransform(data []string) ([]int, error) {
	if err := e.Fit(data); err != nil {
		return nil, err
	}
	return e.Transform(data)
}

// Decode returns the value with the given code.
func (e *LabelEncoder) Decode(code int) (string, error) {
	if !e.IsFitted() {
		return "", cmlErrors.NewNotFittedError("LabelEncoder", "Decode")
	}
	if code < 0 || code >= len(e.Classes) {
		return "", cmlErrors.NewValueError("LabelEncoder.Decode",
			fmt.Sprintf("code %d out of range [0, %d) for column %q", code, len(e.Classes), e.Column))
	}
	return e.Classes[code], nil
}

// InverseTransform decodes every code.
func (e *LabelEncoder) InverseTransform(codes []int) ([]string, error) {
	out := make([]string, len(codes))
	for i, c := range codes {
		v, err := e.Decode(c)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
