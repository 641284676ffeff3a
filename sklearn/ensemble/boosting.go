package ensemble

import (
	"context"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carbonml/core/model"
	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
	"github.com/ezoic/carbonml/pkg/log"
	"github.com/ezoic/carbonml/sklearn/tree"
)

// GradientBoostingRegressor fits an additive model of regression trees to
// squared error. Each round draws a row subsample and a column subsample,
// fits a tree to the current residuals with leaf values sum/(n+L2), and adds
// it scaled by LearningRate. The initial prediction is the target mean.
type GradientBoostingRegressor struct {
	model.BaseEstimator

	NEstimators     int
	LearningRate    float64
	MaxDepth        int
	Subsample       float64 // fraction of rows per tree, in (0, 1]
	ColsampleByTree float64 // fraction of features per tree, in (0, 1]
	L2              float64 // leaf L2 penalty
	MinSamplesLeaf  int
	RandomState     uint64

	BaseScore   float64
	Trees       []*tree.DecisionTreeRegressor
	NFeatures   int
	Importances []float64
}

// BoostingOption configures a GradientBoostingRegressor.
type BoostingOption func(*GradientBoostingRegressor)

// NewGradientBoostingRegressor creates a booster with XGBoost-like defaults:
// 100 rounds, learning rate 0.3, depth 6, L2 1, no subsampling.
func NewGradientBoostingRegressor(opts ...BoostingOption) *GradientBoostingRegressor {
	gb := &GradientBoostingRegressor{
		NEstimators:     100,
		LearningRate:    0.3,
		MaxDepth:        6,
		Subsample:       1,
		ColsampleByTree: 1,
		L2:              1,
		MinSamplesLeaf:  1,
	}
	gb.ModelType = "GradientBoostingRegressor"
	for _, opt := range opts {
		opt(gb)
	}
	gb.SetParams(map[string]interface{}{
		"n_estimators":     gb.NEstimators,
		"learning_rate":    gb.LearningRate,
		"max_depth":        gb.MaxDepth,
		"subsample":        gb.Subsample,
		"colsample_bytree": gb.ColsampleByTree,
		"reg_lambda":       gb.L2,
		"random_state":     gb.RandomState,
	})
	return gb
}

// WithRounds sets the number of boosting rounds.
func WithRounds(n int) BoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.NEstimators = n }
}

// WithLearningRate sets the shrinkage applied to every tree.
func WithLearningRate(lr float64) BoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.LearningRate = lr }
}

// WithBoostingMaxDepth sets the depth of every tree.
func WithBoostingMaxDepth(depth int) BoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.MaxDepth = depth }
}

// WithSubsample sets the row fraction drawn per round.
func WithSubsample(f float64) BoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.Subsample = f }
}

// WithColsampleByTree sets the feature fraction drawn per round.
func WithColsampleByTree(f float64) BoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.ColsampleByTree = f }
}

// WithRegLambda sets the L2 leaf penalty.
func WithRegLambda(lambda float64) BoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.L2 = lambda }
}

// WithBoostingRandomState sets the random seed.
func WithBoostingRandomState(seed uint64) BoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.RandomState = seed }
}

// Fit runs all boosting rounds.
func (gb *GradientBoostingRegressor) Fit(X mat.Matrix, y mat.Vector) error {
	return gb.FitContext(context.Background(), X, y)
}

// FitContext runs all boosting rounds, checking ctx between rounds.
func (gb *GradientBoostingRegressor) FitContext(ctx context.Context, X mat.Matrix, y mat.Vector) (err error) {
	defer cmlErrors.Recover(&err, "GradientBoostingRegressor.Fit")

	start := time.Now()
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return cmlErrors.NewModelError("GradientBoostingRegressor.Fit", "empty data", cmlErrors.ErrEmptyData)
	}
	if y.Len() != r {
		return cmlErrors.NewDimensionError("GradientBoostingRegressor.Fit", r, y.Len(), 0)
	}
	if gb.NEstimators < 1 {
		return cmlErrors.NewValidationError("GradientBoostingRegressor.Fit", "must be at least 1", "n_estimators")
	}
	if gb.Subsample <= 0 || gb.Subsample > 1 {
		return cmlErrors.NewValidationError("GradientBoostingRegressor.Fit", "must be in (0, 1]", "subsample")
	}
	if gb.ColsampleByTree <= 0 || gb.ColsampleByTree > 1 {
		return cmlErrors.NewValidationError("GradientBoostingRegressor.Fit", "must be in (0, 1]", "colsample_bytree")
	}
	if gb.LearningRate <= 0 {
		return cmlErrors.NewValidationError("GradientBoostingRegressor.Fit", "must be positive", "learning_rate")
	}

	cols := tree.Columns(X)
	rng := rand.New(rand.NewPCG(gb.RandomState, gb.RandomState))

	base := 0.0
	for i := 0; i < r; i++ {
		base += y.AtVec(i)
	}
	base /= float64(r)

	pred := make([]float64, r)
	for i := range pred {
		pred[i] = base
	}
	residual := mat.NewVecDense(r, nil)

	nRows := max(1, int(math.Floor(gb.Subsample*float64(r))))
	nCols := max(1, int(math.Floor(gb.ColsampleByTree*float64(c))))

	trees := make([]*tree.DecisionTreeRegressor, 0, gb.NEstimators)
	gains := make([]float64, c)
	row := make([]float64, c)

	for round := 0; round < gb.NEstimators; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		for i := 0; i < r; i++ {
			residual.SetVec(i, y.AtVec(i)-pred[i])
		}

		rows := sortedPrefix(rng.Perm(r), nRows)
		features := sortedPrefix(rng.Perm(c), nCols)

		t := tree.NewDecisionTreeRegressor(
			tree.WithMaxDepth(gb.MaxDepth),
			tree.WithMinSamplesLeaf(gb.MinSamplesLeaf),
			tree.WithL2(gb.L2),
			tree.WithRandomState(rng.Uint64()),
		)
		if err := t.FitSubset(cols, residual, rows, features); err != nil {
			return cmlErrors.NewModelError("GradientBoostingRegressor.Fit", "tree fitting failed", err)
		}
		trees = append(trees, t)

		for j, v := range t.Importances {
			gains[j] += v
		}
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				row[j] = cols[j][i]
			}
			pred[i] += gb.LearningRate * t.PredictRow(row)
		}
	}

	gb.BaseScore = base
	gb.Trees = trees
	gb.NFeatures = c
	gb.Importances = normalized(gains)
	gb.SetFitted()

	gb.Logger().Info("Training completed",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, r,
		log.FeaturesKey, c,
		"rounds", gb.NEstimators,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Predict returns BaseScore plus the shrunken sum of all tree outputs.
func (gb *GradientBoostingRegressor) Predict(X mat.Matrix) (_ *mat.VecDense, err error) {
	defer cmlErrors.Recover(&err, "GradientBoostingRegressor.Predict")
	if !gb.IsFitted() {
		return nil, cmlErrors.NewNotFittedError("GradientBoostingRegressor", "Predict")
	}
	r, c := X.Dims()
	if c != gb.NFeatures {
		return nil, cmlErrors.NewDimensionError("GradientBoostingRegressor.Predict", gb.NFeatures, c, 1)
	}

	out := mat.NewVecDense(r, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		v := gb.BaseScore
		for _, t := range gb.Trees {
			v += gb.LearningRate * t.PredictRow(row)
		}
		out.SetVec(i, v)
	}
	return out, nil
}

// FeatureImportances returns the normalized split gain per feature.
func (gb *GradientBoostingRegressor) FeatureImportances() ([]float64, error) {
	if !gb.IsFitted() {
		return nil, cmlErrors.NewNotFittedError("GradientBoostingRegressor", "FeatureImportances")
	}
	return append([]float64(nil), gb.Importances...), nil
}

func sortedPrefix(perm []int, n int) []int {
	out := perm[:n]
	slices.Sort(out)
	return out
}

func normalized(v []float64) []float64 {
	total := 0.0
	for _, x := range v {
		total += x
	}
	out := make([]float64, len(v))
	if total > 0 {
		for i, x := range v {
			out[i] = x / total
		}
	}
	return out
}
