package dataset

import (
	"io"
	"os"
	"slices"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
)

// Frame is the cleaned table split into features and target.
type Frame struct {
	X     *mat.Dense
	Y     *mat.VecDense
	Names []string // feature names in column order of X
}

// Rows returns the number of samples.
func (f *Frame) Rows() int {
	r, _ := f.X.Dims()
	return r
}

// FromDataFrame converts a cleaned table to a Frame. The target must be the
// last column and every column numeric.
//
// Errors:
//   - SchemaViolationError: target not last, a non-numeric or null cell, or
//     fewer than two columns
func FromDataFrame(df dataframe.DataFrame) (*Frame, error) {
	if df.Err != nil {
		return nil, cmlErrors.NewSchemaViolationError("FromDataFrame", "invalid frame: %v", df.Err)
	}
	names := df.Names()
	if len(names) < 2 {
		return nil, cmlErrors.NewSchemaViolationError("FromDataFrame", "expected features and a target, got %d columns", len(names))
	}
	if last := names[len(names)-1]; last != TargetName {
		return nil, cmlErrors.NewSchemaViolationError("FromDataFrame",
			"target %q must be the last column, found %q", TargetName, last)
	}

	rows, cols := df.Nrow(), len(names)
	if rows == 0 {
		return nil, cmlErrors.NewSchemaViolationError("FromDataFrame", "no rows")
	}

	X := mat.NewDense(rows, cols-1, nil)
	var y *mat.VecDense
	for j, name := range names {
		col := df.Col(name)
		if t := col.Type(); t != series.Int && t != series.Float {
			return nil, cmlErrors.NewSchemaViolationError("FromDataFrame", "column %q is not numeric", name)
		}
		if slices.Contains(col.IsNaN(), true) {
			return nil, cmlErrors.NewSchemaViolationError("FromDataFrame", "column %q has null values", name)
		}
		values := col.Float()
		if j == cols-1 {
			y = mat.NewVecDense(rows, values)
			continue
		}
		X.SetCol(j, values)
	}

	return &Frame{X: X, Y: y, Names: slices.Clone(names[:cols-1])}, nil
}

// ReadCleaned parses a cleaned CSV.
func ReadCleaned(r io.Reader) (*Frame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(NullValues),
	)
	return FromDataFrame(df)
}

// LoadCleaned reads the cleaned CSV at path.
//
// Errors:
//   - MissingArtifactError: path does not exist
func LoadCleaned(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cmlErrors.NewMissingArtifactError("cleaned dataset", path, "run `carbonml clean` first")
		}
		return nil, cmlErrors.Wrapf(err, "failed to open %s", path)
	}
	defer func() { _ = f.Close() }()
	return ReadCleaned(f)
}
