// Package fixture builds synthetic survey data and small trained artifact
// sets for tests of the packages that consume them.
package fixture

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/ezoic/carbonml/core/model"
	"github.com/ezoic/carbonml/internal/artifacts"
	"github.com/ezoic/carbonml/internal/dataset"
	"github.com/ezoic/carbonml/internal/training"
	"github.com/ezoic/carbonml/linear"
	"github.com/ezoic/carbonml/sklearn/ensemble"
	"github.com/ezoic/carbonml/sklearn/tree"
)

var (
	bodyTypes  = []string{"normal", "obese", "overweight", "underweight"}
	sexes      = []string{"female", "male"}
	diets      = []string{"omnivore", "pescatarian", "vegan", "vegetarian"}
	showers    = []string{"daily", "less frequently", "more frequently", "twice a day"}
	heating    = []string{"coal", "electricity", "natural gas", "wood"}
	transports = []string{"private", "public", "walk/bicycle"}
	vehicles   = []string{"diesel", "electric", "hybrid", "lpg", "petrol"}
	social     = []string{"never", "often", "sometimes"}
	air        = []string{"never", "rarely", "frequently", "very frequently"}
	bagSizes   = []string{"extra large", "large", "medium", "small"}
	efficiency = []string{"No", "Sometimes", "Yes"}
)

// RawRows returns a header and n deterministic survey rows covering every
// category. Only private transport rows carry a vehicle type.
func RawRows(n int) [][]string {
	rows := [][]string{slices.Clone(dataset.RawColumns)}
	for i := 0; i < n; i++ {
		transport := transports[i%3]
		vehicle := ""
		distance := (i * 13) % 300
		if transport == "private" {
			vehicle = vehicles[(i/3)%5]
			distance = 100 + (i*37)%2000
		}
		airIdx := (i / 4) % 4
		grocery := 100 + (i*11)%200
		target := 600 + distance + 400*airIdx + 2*grocery + (i*7)%50
		rows = append(rows, []string{
			bodyTypes[i%4],
			sexes[i%2],
			diets[(i/2)%4],
			showers[(i/3)%4],
			heating[(i/5)%4],
			transport,
			vehicle,
			social[(i/7)%3],
			strconv.Itoa(grocery),
			air[airIdx],
			strconv.Itoa(distance),
			bagSizes[(i/6)%4],
			strconv.Itoa(1 + i%6),
			strconv.Itoa(i % 16),
			strconv.Itoa(i % 30),
			strconv.Itoa(i % 24),
			efficiency[(i/8)%3],
			"['Metal']",
			"['Stove', 'Oven']",
			strconv.Itoa(target),
		})
	}
	return rows
}

// RawCSV encodes RawRows(n) as CSV.
func RawCSV(n int) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(RawRows(n)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteRawCSV writes RawRows(n) to path.
func WriteRawCSV(path string, n int) error {
	data, err := RawCSV(n)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// SmallCandidates mirrors training.DefaultCandidates with far fewer trees.
func SmallCandidates(seed uint64) []training.Candidate {
	return []training.Candidate{
		{Key: training.KeyLinear, Name: "Linear Regression", New: func() model.Regressor { return linear.NewLinearRegression() }},
		{Key: training.KeyTree, Name: "Decision Tree", New: func() model.Regressor {
			return tree.NewDecisionTreeRegressor(tree.WithMaxDepth(6), tree.WithMinSamplesSplit(4), tree.WithRandomState(seed))
		}},
		{Key: training.KeyForest, Name: "Random Forest", New: func() model.Regressor {
			return ensemble.NewRandomForestRegressor(ensemble.WithNEstimators(12), ensemble.WithForestMaxDepth(8), ensemble.WithForestRandomState(seed))
		}},
		{Key: training.KeyBooster, Name: "XGBoost", New: func() model.Regressor {
			return ensemble.NewGradientBoostingRegressor(ensemble.WithRounds(30), ensemble.WithLearningRate(0.1),
				ensemble.WithBoostingMaxDepth(3), ensemble.WithSubsample(0.8), ensemble.WithColsampleByTree(0.8),
				ensemble.WithBoostingRandomState(seed))
		}},
	}
}

// Trained locates an artifact set produced by Train.
type Trained struct {
	Dir          string
	RawPath      string
	CleanedPath  string
	CodebookPath string
	Store        *artifacts.Store
	Result       *training.Result
}

// Train cleans RawRows(n) and trains SmallCandidates on it, writing every
// file under dir.
func Train(dir string, n int) (*Trained, error) {
	tr := &Trained{
		Dir:          dir,
		RawPath:      filepath.Join(dir, "raw.csv"),
		CleanedPath:  filepath.Join(dir, "cleaned.csv"),
		CodebookPath: filepath.Join(dir, "label_encoders.json"),
		Store:        artifacts.NewStore(filepath.Join(dir, "models")),
	}
	if err := WriteRawCSV(tr.RawPath, n); err != nil {
		return nil, err
	}
	raw, err := dataset.ReadRawFile(tr.RawPath)
	if err != nil {
		return nil, err
	}
	cleaned, err := dataset.Clean(raw)
	if err != nil {
		return nil, err
	}
	if err := cleaned.WriteCleanedFile(tr.CleanedPath); err != nil {
		return nil, err
	}
	if err := cleaned.Codebook.Save(tr.CodebookPath); err != nil {
		return nil, err
	}

	frame, err := dataset.LoadCleaned(tr.CleanedPath)
	if err != nil {
		return nil, err
	}
	opts := training.DefaultOptions()
	opts.Candidates = SmallCandidates(opts.Seed)
	tr.Result, err = training.Run(context.Background(), frame, opts)
	if err != nil {
		return nil, err
	}
	if err := tr.Result.Persist(tr.Store); err != nil {
		return nil, err
	}
	return tr, nil
}
