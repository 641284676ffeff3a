// Package ensemble provides tree ensembles for regression:
//
//   - RandomForestRegressor: bagged CART trees fitted concurrently
//   - GradientBoostingRegressor: shrunken trees fitted on squared-error
//     residuals with row and column subsampling and an L2 leaf penalty
//
// Both are deterministic for a fixed RandomState regardless of the number of
// workers: every tree draws its own seed from the ensemble seed before any
// work is scheduled.
package ensemble

import (
	"context"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carbonml/core/model"
	"github.com/ezoic/carbonml/core/parallel"
	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
	"github.com/ezoic/carbonml/pkg/log"
	"github.com/ezoic/carbonml/sklearn/tree"
)

// RandomForestRegressor averages regression trees grown on bootstrap samples.
type RandomForestRegressor struct {
	model.BaseEstimator

	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Bootstrap       bool
	RandomState     uint64
	NJobs           int // worker goroutines, 0 means GOMAXPROCS

	Trees       []*tree.DecisionTreeRegressor
	NFeatures   int
	Importances []float64
}

// ForestOption configures a RandomForestRegressor.
type ForestOption func(*RandomForestRegressor)

// NewRandomForestRegressor creates a forest of 100 unlimited-depth bootstrap
// trees unless configured otherwise.
func NewRandomForestRegressor(opts ...ForestOption) *RandomForestRegressor {
	rf := &RandomForestRegressor{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
	}
	rf.ModelType = "RandomForestRegressor"
	for _, opt := range opts {
		opt(rf)
	}
	rf.SetParams(map[string]interface{}{
		"n_estimators":      rf.NEstimators,
		"max_depth":         rf.MaxDepth,
		"min_samples_split": rf.MinSamplesSplit,
		"min_samples_leaf":  rf.MinSamplesLeaf,
		"bootstrap":         rf.Bootstrap,
		"random_state":      rf.RandomState,
	})
	return rf
}

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) ForestOption {
	return func(rf *RandomForestRegressor) { rf.NEstimators = n }
}

// WithForestMaxDepth sets the maximum depth of every tree.
func WithForestMaxDepth(depth int) ForestOption {
	return func(rf *RandomForestRegressor) { rf.MaxDepth = depth }
}

// WithForestMinSamplesSplit sets the minimum samples to split a node.
func WithForestMinSamplesSplit(n int) ForestOption {
	return func(rf *RandomForestRegressor) { rf.MinSamplesSplit = n }
}

// WithBootstrap toggles bootstrap sampling.
func WithBootstrap(on bool) ForestOption {
	return func(rf *RandomForestRegressor) { rf.Bootstrap = on }
}

// WithForestRandomState sets the random seed.
func WithForestRandomState(seed uint64) ForestOption {
	return func(rf *RandomForestRegressor) { rf.RandomState = seed }
}

// WithNJobs sets the number of worker goroutines.
func WithNJobs(n int) ForestOption {
	return func(rf *RandomForestRegressor) { rf.NJobs = n }
}

// Fit grows the forest.
func (rf *RandomForestRegressor) Fit(X mat.Matrix, y mat.Vector) error {
	return rf.FitContext(context.Background(), X, y)
}

// FitContext grows the forest, stopping early when ctx is cancelled.
func (rf *RandomForestRegressor) FitContext(ctx context.Context, X mat.Matrix, y mat.Vector) (err error) {
	defer cmlErrors.Recover(&err, "RandomForestRegressor.Fit")

	start := time.Now()
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return cmlErrors.NewModelError("RandomForestRegressor.Fit", "empty data", cmlErrors.ErrEmptyData)
	}
	if y.Len() != r {
		return cmlErrors.NewDimensionError("RandomForestRegressor.Fit", r, y.Len(), 0)
	}
	if rf.NEstimators < 1 {
		return cmlErrors.NewValidationError("RandomForestRegressor.Fit", "must be at least 1", "n_estimators")
	}

	cols := tree.Columns(X)

	seeds := make([]uint64, rf.NEstimators)
	master := rand.New(rand.NewPCG(rf.RandomState, rf.RandomState))
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	trees := make([]*tree.DecisionTreeRegressor, rf.NEstimators)
	err = parallel.ForEach(ctx, rf.NEstimators, rf.NJobs, func(_ context.Context, i int) error {
		var samples []int
		if rf.Bootstrap {
			rng := rand.New(rand.NewPCG(seeds[i], ^seeds[i]))
			samples = make([]int, r)
			for k := range samples {
				samples[k] = rng.IntN(r)
			}
		}

		t := tree.NewDecisionTreeRegressor(
			tree.WithMaxDepth(rf.MaxDepth),
			tree.WithMinSamplesSplit(rf.MinSamplesSplit),
			tree.WithMinSamplesLeaf(rf.MinSamplesLeaf),
			tree.WithRandomState(seeds[i]),
		)
		if err := t.FitSubset(cols, y, samples, nil); err != nil {
			return err
		}
		trees[i] = t
		return nil
	})
	if err != nil {
		return cmlErrors.NewModelError("RandomForestRegressor.Fit", "tree fitting failed", err)
	}

	rf.Trees = trees
	rf.NFeatures = c
	rf.Importances = averageImportances(trees, c)
	rf.SetFitted()

	rf.Logger().Info("Training completed",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, r,
		log.FeaturesKey, c,
		"n_estimators", rf.NEstimators,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Predict returns the mean prediction of all trees.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (_ *mat.VecDense, err error) {
	defer cmlErrors.Recover(&err, "RandomForestRegressor.Predict")
	if !rf.IsFitted() {
		return nil, cmlErrors.NewNotFittedError("RandomForestRegressor", "Predict")
	}
	r, c := X.Dims()
	if c != rf.NFeatures {
		return nil, cmlErrors.NewDimensionError("RandomForestRegressor.Predict", rf.NFeatures, c, 1)
	}

	out := mat.NewVecDense(r, nil)
	row := make([]float64, c)
	n := float64(len(rf.Trees))
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		sum := 0.0
		for _, t := range rf.Trees {
			sum += t.PredictRow(row)
		}
		out.SetVec(i, sum/n)
	}
	return out, nil
}

// FeatureImportances returns the mean of the per-tree normalized impurity
// importances, renormalized to sum to 1.
func (rf *RandomForestRegressor) FeatureImportances() ([]float64, error) {
	if !rf.IsFitted() {
		return nil, cmlErrors.NewNotFittedError("RandomForestRegressor", "FeatureImportances")
	}
	return append([]float64(nil), rf.Importances...), nil
}

func averageImportances(trees []*tree.DecisionTreeRegressor, nFeatures int) []float64 {
	sum := make([]float64, nFeatures)
	for _, t := range trees {
		for j, v := range t.Importances {
			sum[j] += v
		}
	}
	total := 0.0
	for _, v := range sum {
		total += v
	}
	if total > 0 {
		for j := range sum {
			sum[j] /= total
		}
	}
	return sum
}
