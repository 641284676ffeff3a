package training

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carbonml/core/model"
	"github.com/ezoic/carbonml/linear"
	"github.com/ezoic/carbonml/sklearn/ensemble"
	"github.com/ezoic/carbonml/sklearn/tree"
)

// Candidate keys. The forest is always the served model and the booster is
// kept as the secondary predictor.
const (
	KeyLinear  = "linear_regression"
	KeyTree    = "decision_tree"
	KeyForest  = "random_forest"
	KeyBooster = "xgboost"
)

// Candidate is one model family evaluated by a run. New must return a fresh,
// unfitted model on every call.
type Candidate struct {
	Key  string
	Name string
	New  func() model.Regressor
}

// DefaultCandidates returns the four evaluated models in tie-break order.
func DefaultCandidates(seed uint64, workers int) []Candidate {
	return []Candidate{
		{
			Key:  KeyLinear,
			Name: "Linear Regression",
			New:  func() model.Regressor { return linear.NewLinearRegression() },
		},
		{
			Key:  KeyTree,
			Name: "Decision Tree",
			New: func() model.Regressor {
				return tree.NewDecisionTreeRegressor(
					tree.WithMaxDepth(10),
					tree.WithMinSamplesSplit(20),
					tree.WithRandomState(seed),
				)
			},
		},
		{
			Key:  KeyForest,
			Name: "Random Forest",
			New: func() model.Regressor {
				return ensemble.NewRandomForestRegressor(
					ensemble.WithNEstimators(200),
					ensemble.WithForestMaxDepth(15),
					ensemble.WithForestMinSamplesSplit(10),
					ensemble.WithForestRandomState(seed),
					ensemble.WithNJobs(workers),
				)
			},
		},
		{
			Key:  KeyBooster,
			Name: "XGBoost",
			New: func() model.Regressor {
				return ensemble.NewGradientBoostingRegressor(
					ensemble.WithRounds(300),
					ensemble.WithLearningRate(0.05),
					ensemble.WithBoostingMaxDepth(7),
					ensemble.WithSubsample(0.8),
					ensemble.WithColsampleByTree(0.8),
					ensemble.WithRegLambda(1),
					ensemble.WithBoostingRandomState(seed),
				)
			},
		},
	}
}

type contextFitter interface {
	FitContext(ctx context.Context, X mat.Matrix, y mat.Vector) error
}

// fit uses FitContext when the model supports cancellation.
func fit(ctx context.Context, m model.Regressor, X mat.Matrix, y mat.Vector) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cf, ok := m.(contextFitter); ok {
		return cf.FitContext(ctx, X, y)
	}
	return m.Fit(X, y)
}
