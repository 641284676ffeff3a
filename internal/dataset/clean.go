package dataset

import (
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/stat"

	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
	"github.com/ezoic/carbonml/pkg/log"
	"github.com/ezoic/carbonml/preprocessing"
)

// TargetSummary describes the target column after outlier removal.
type TargetSummary struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"` // sample standard deviation
}

// CleanStats summarizes one cleaning run.
type CleanStats struct {
	RowsIn          int           `json:"rows_in"`
	RowsOut         int           `json:"rows_out"`
	Imputed         int           `json:"imputed"`
	OutliersRemoved int           `json:"outliers_removed"`
	Bounds          Bounds        `json:"bounds"`
	Encoded         []string      `json:"encoded"`
	Target          TargetSummary `json:"target"`
}

// Cleaned is the output of Clean.
type Cleaned struct {
	Frame    dataframe.DataFrame
	Codebook *Codebook
	Stats    CleanStats
}

// ReadRaw parses the raw survey CSV. Every cell spelled as one of NullValues
// is read as missing.
func ReadRaw(r io.Reader) (dataframe.DataFrame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(NullValues),
	)
	if df.Err != nil {
		return df, cmlErrors.NewSchemaViolationError("ReadRaw", "unreadable CSV: %v", df.Err)
	}
	return df, nil
}

// ReadRawFile parses the raw survey CSV at path.
func ReadRawFile(path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return dataframe.DataFrame{}, cmlErrors.NewMissingArtifactError("raw dataset", path,
				"set data.raw_path to the survey CSV")
		}
		return dataframe.DataFrame{}, cmlErrors.Wrapf(err, "failed to open %s", path)
	}
	defer func() { _ = f.Close() }()
	return ReadRaw(f)
}

// Clean imputes, prunes, encodes, engineers, filters outliers, normalizes
// names and moves the target last, in that order.
//
// Errors:
//   - SchemaViolationError: a required column is missing, a null remains after
//     imputation, the target is not numeric, or no row survives filtering
func Clean(raw dataframe.DataFrame) (_ *Cleaned, err error) {
	defer cmlErrors.Recover(&err, "dataset.Clean")
	logger := log.GetLoggerWithName("dataset").With(log.OperationKey, log.OperationClean)

	if raw.Err != nil {
		return nil, cmlErrors.NewSchemaViolationError("Clean", "invalid input frame: %v", raw.Err)
	}
	if missing := missingColumns(raw.Names(), ColumnVehicleType, ColumnTransport, ColumnVehicleDistance,
		ColumnEnergyEfficiency, ColumnHeatingSource, ColumnRecycling, ColumnCookingWith, ColumnTarget); len(missing) > 0 {
		return nil, cmlErrors.NewSchemaViolationError("Clean", "missing columns: %s", strings.Join(missing, ", "))
	}
	if raw.Nrow() == 0 {
		return nil, cmlErrors.NewSchemaViolationError("Clean", "dataset has no rows")
	}

	stats := CleanStats{RowsIn: raw.Nrow()}
	df := raw

	// 1. impute
	df, stats.Imputed, err = impute(df)
	if err != nil {
		return nil, err
	}
	if err := checkNulls(df); err != nil {
		return nil, err
	}

	// 2. prune
	df = df.Drop(DroppedColumns)
	if df.Err != nil {
		return nil, cmlErrors.NewSchemaViolationError("Clean", "drop columns: %v", df.Err)
	}

	// 3. encode
	codebook := NewCodebook()
	for _, name := range df.Names() {
		col := df.Col(name)
		if col.Type() == series.Int || col.Type() == series.Float {
			continue
		}
		if name == ColumnTarget {
			return nil, cmlErrors.NewSchemaViolationError("Clean", "target %q is not numeric", name)
		}

		enc := preprocessing.NewLabelEncoder(NormalizeName(name))
		codes, err := enc.FitTransform(col.Records())
		if err != nil {
			return nil, cmlErrors.Wrapf(err, "encode %s", name)
		}
		if err := codebook.Add(enc); err != nil {
			return nil, err
		}
		df = df.Mutate(series.New(codes, series.Int, name))
		stats.Encoded = append(stats.Encoded, enc.Column)
	}

	// 4. engineer
	df, err = engineer(df)
	if err != nil {
		return nil, err
	}

	// 5. outliers
	keep, bounds := FilterIQR(df.Col(ColumnTarget).Float(), OutlierIQRMultiplier)
	if len(keep) == 0 {
		return nil, cmlErrors.NewSchemaViolationError("Clean", "no rows left after outlier removal")
	}
	stats.Bounds = bounds
	stats.OutliersRemoved = df.Nrow() - len(keep)
	if stats.OutliersRemoved > 0 {
		df = df.Subset(keep)
	}

	// 6. normalize names
	names := df.Names()
	normalized := make([]string, len(names))
	for i, n := range names {
		normalized[i] = NormalizeName(n)
	}
	if err := df.SetNames(normalized...); err != nil {
		return nil, cmlErrors.NewSchemaViolationError("Clean", "rename columns: %v", err)
	}

	// 7. target last
	order := make([]string, 0, len(normalized))
	for _, n := range normalized {
		if n != TargetName {
			order = append(order, n)
		}
	}
	order = append(order, TargetName)
	df = df.Select(order)
	if df.Err != nil {
		return nil, cmlErrors.NewSchemaViolationError("Clean", "reorder columns: %v", df.Err)
	}

	stats.RowsOut = df.Nrow()
	stats.Target = summarize(df.Col(TargetName).Float())

	logger.Info("Dataset cleaned",
		"rows_in", stats.RowsIn,
		"rows_out", stats.RowsOut,
		"imputed", stats.Imputed,
		"outliers_removed", stats.OutliersRemoved,
		"encoded_columns", len(stats.Encoded),
	)
	return &Cleaned{Frame: df, Codebook: codebook, Stats: stats}, nil
}

func missingColumns(have []string, want ...string) []string {
	var missing []string
	for _, w := range want {
		if !slices.Contains(have, w) {
			missing = append(missing, w)
		}
	}
	return missing
}

// impute fills missing Vehicle Type cells with NoVehicle.
func impute(df dataframe.DataFrame) (dataframe.DataFrame, int, error) {
	col := df.Col(ColumnVehicleType)
	nulls := col.IsNaN()
	records := col.Records()
	filled := 0
	for i, isNull := range nulls {
		if isNull {
			records[i] = NoVehicle
			filled++
		}
	}
	if filled == 0 {
		return df, 0, nil
	}
	df = df.Mutate(series.New(records, series.String, ColumnVehicleType))
	if df.Err != nil {
		return df, 0, cmlErrors.NewSchemaViolationError("Clean", "impute %s: %v", ColumnVehicleType, df.Err)
	}
	return df, filled, nil
}

// checkNulls fails when any cell is still missing, naming every column with
// its null count.
func checkNulls(df dataframe.DataFrame) error {
	var offending []string
	for _, name := range df.Names() {
		n := 0
		for _, isNull := range df.Col(name).IsNaN() {
			if isNull {
				n++
			}
		}
		if n > 0 {
			offending = append(offending, fmt.Sprintf("%s (%d)", name, n))
		}
	}
	if len(offending) > 0 {
		return cmlErrors.NewSchemaViolationError("Clean",
			"null values remain after imputation: %s", strings.Join(offending, ", "))
	}
	return nil
}

// engineer appends every Interaction, computed from encoded operands.
func engineer(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	byNormalized := make(map[string]string, df.Ncol())
	for _, n := range df.Names() {
		byNormalized[NormalizeName(n)] = n
	}

	for _, it := range Interactions {
		left, right := df.Col(byNormalized[it.Left]).Float(), df.Col(byNormalized[it.Right]).Float()
		product := make([]float64, len(left))
		integral := true
		for i := range left {
			product[i] = left[i] * right[i]
			integral = integral && product[i] == math.Trunc(product[i])
		}

		var s series.Series
		if integral {
			ints := make([]int, len(product))
			for i, v := range product {
				ints[i] = int(v)
			}
			s = series.New(ints, series.Int, it.Name)
		} else {
			s = series.New(product, series.Float, it.Name)
		}
		df = df.Mutate(s)
		if df.Err != nil {
			return df, cmlErrors.NewSchemaViolationError("Clean", "engineer %s: %v", it.Name, df.Err)
		}
	}
	return df, nil
}

func summarize(target []float64) TargetSummary {
	if len(target) == 0 {
		return TargetSummary{}
	}
	s := TargetSummary{
		Min:    slices.Min(target),
		Max:    slices.Max(target),
		Mean:   stat.Mean(target, nil),
		Median: Quantile(target, 0.5),
	}
	if len(target) > 1 {
		s.Std = stat.StdDev(target, nil)
	}
	return s
}

// WriteCleaned writes the cleaned table as CSV with a header row.
func (c *Cleaned) WriteCleaned(w io.Writer) error {
	if err := c.Frame.WriteCSV(w); err != nil {
		return cmlErrors.Wrap(err, "failed to write cleaned CSV")
	}
	return nil
}

// WriteCleanedFile writes the cleaned table to path.
func (c *Cleaned) WriteCleanedFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return cmlErrors.Wrapf(err, "failed to create %s", path)
	}
	if err := c.WriteCleaned(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
