// Package training evaluates the candidate regressors on a cleaned frame,
// fits the served forest and the emitter segmentation, and persists the
// resulting artifact set.
package training

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/carbonml/core/model"
	"github.com/ezoic/carbonml/internal/artifacts"
	"github.com/ezoic/carbonml/internal/dataset"
	"github.com/ezoic/carbonml/metrics"
	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
	"github.com/ezoic/carbonml/pkg/log"
	"github.com/ezoic/carbonml/preprocessing"
	"github.com/ezoic/carbonml/sklearn/cluster"
	"github.com/ezoic/carbonml/sklearn/ensemble"
	"github.com/ezoic/carbonml/sklearn/model_selection"
	"github.com/ezoic/carbonml/sklearn/pipeline"
)

// NClusters is the number of emitter segments.
const NClusters = 3

// MetricsNote is attached to every report.
const MetricsNote = "test metrics come from an 80/20 split; the served random forest is retrained on all rows, so they are optimistic for the served artifact"

// Options controls a training run.
type Options struct {
	Seed         uint64
	TestFraction float64
	CVFolds      int
	Workers      int // 0 uses GOMAXPROCS

	// Candidates overrides DefaultCandidates. It must contain KeyForest and
	// KeyBooster.
	Candidates []Candidate
}

// DefaultOptions returns seed 42, a 20% test fold and 5-fold CV.
func DefaultOptions() Options {
	return Options{Seed: 42, TestFraction: 0.2, CVFolds: 5}
}

// ModelReport holds the evaluation of one candidate.
type ModelReport struct {
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	R2           float64   `json:"r2"`
	RMSE         float64   `json:"rmse"`
	MAE          float64   `json:"mae"`
	CVMean       float64   `json:"cv_mean"`
	CVStd        float64   `json:"cv_std"`
	CVScores     []float64 `json:"cv_scores"`
	TrainSeconds float64   `json:"train_seconds"`
}

// ClusterSummary describes one segment of the full dataset.
type ClusterSummary struct {
	Cluster    int     `json:"cluster"`
	Tier       string  `json:"tier"`
	Size       int     `json:"size"`
	MeanTarget float64 `json:"mean_target"`
}

// Importance is one feature's share of the served forest's impurity decrease.
type Importance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Report is the training_report.json document.
type Report struct {
	RunID               string           `json:"run_id"`
	StartedAt           time.Time        `json:"started_at"`
	FinishedAt          time.Time        `json:"finished_at"`
	Seed                uint64           `json:"seed"`
	Rows                int              `json:"rows"`
	TrainRows           int              `json:"train_rows"`
	TestRows            int              `json:"test_rows"`
	Features            []string         `json:"features"`
	Models              []ModelReport    `json:"models"`
	BestModel           string           `json:"best_model"`
	ServedModel         string           `json:"served_model"`
	ServedTrainedOnRows int              `json:"served_trained_on_rows"`
	Note                string           `json:"note"`
	Clusters            []ClusterSummary `json:"clusters"`
}

// Result is everything a run produced, ready for Persist.
type Result struct {
	Report      Report
	Best        *artifacts.BestModel
	Forest      *ensemble.RandomForestRegressor
	Booster     *ensemble.GradientBoostingRegressor
	Scaler      *preprocessing.StandardScaler
	KMeans      *cluster.KMeans
	LabelMap    artifacts.LabelMap
	Importances []Importance
}

// Run trains and evaluates every candidate on frame.
//
// Errors:
//   - ValidationError: invalid options or too few rows for the split
//   - SchemaViolationError: the segmentation produced an empty cluster or two
//     clusters with the same mean target
func Run(ctx context.Context, frame *dataset.Frame, opts Options) (*Result, error) {
	if opts.CVFolds == 0 {
		opts.CVFolds = 5
	}
	if opts.TestFraction == 0 {
		opts.TestFraction = 0.2
	}
	candidates := opts.Candidates
	if candidates == nil {
		candidates = DefaultCandidates(opts.Seed, opts.Workers)
	}
	forestIdx := slices.IndexFunc(candidates, func(c Candidate) bool { return c.Key == KeyForest })
	boosterIdx := slices.IndexFunc(candidates, func(c Candidate) bool { return c.Key == KeyBooster })
	if forestIdx < 0 || boosterIdx < 0 {
		return nil, cmlErrors.NewValidationError("training.Run", "must include random_forest and xgboost", "candidates")
	}

	runID := uuid.New().String()
	logger := log.GetLoggerWithName("training").With(log.RunIDKey, runID)
	started := time.Now().UTC()
	n := frame.Rows()

	split, err := model_selection.TrainTestSplit(n, opts.TestFraction, opts.Seed)
	if err != nil {
		return nil, err
	}
	Xtrain := model_selection.SelectRows(frame.X, split.Train)
	ytrain := model_selection.SelectVec(frame.Y, split.Train)
	Xtest := model_selection.SelectRows(frame.X, split.Test)
	ytest := model_selection.SelectVec(frame.Y, split.Test)
	folds, err := model_selection.KFold(len(split.Train), opts.CVFolds)
	if err != nil {
		return nil, err
	}

	logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, n,
		log.FeaturesKey, len(frame.Names),
		"train_rows", len(split.Train),
		"test_rows", len(split.Test),
	)

	reports := make([]ModelReport, len(candidates))
	fitted := make([]model.Regressor, len(candidates))
	for i, c := range candidates {
		rep, m, err := evaluate(ctx, c, Xtrain, ytrain, Xtest, ytest, folds, opts.Workers)
		if err != nil {
			return nil, cmlErrors.Wrapf(err, "candidate %s", c.Key)
		}
		reports[i], fitted[i] = rep, m
		logger.Info("Model evaluated",
			log.ModelNameKey, c.Key,
			"r2", rep.R2,
			"rmse", rep.RMSE,
			"cv_mean", rep.CVMean,
			log.DurationMsKey, int64(rep.TrainSeconds*1000),
		)
	}
	best := selectBest(reports)

	served := candidates[forestIdx].New()
	if err := fit(ctx, served, frame.X, frame.Y); err != nil {
		return nil, cmlErrors.Wrap(err, "failed to fit served forest")
	}
	forest, ok := served.(*ensemble.RandomForestRegressor)
	if !ok {
		return nil, cmlErrors.Newf("candidate %s is %T, want *ensemble.RandomForestRegressor", KeyForest, served)
	}
	booster, ok := fitted[boosterIdx].(*ensemble.GradientBoostingRegressor)
	if !ok {
		return nil, cmlErrors.Newf("candidate %s is %T, want *ensemble.GradientBoostingRegressor", KeyBooster, fitted[boosterIdx])
	}

	// a winning forest is saved as its all-rows refit, like the served model
	bestModel := fitted[best]
	if reports[best].Key == KeyForest {
		bestModel = forest
	}

	importances, err := rankImportances(forest, frame.Names)
	if err != nil {
		return nil, err
	}

	scaler, km, labels, clusters, err := Segment(frame.X, frame.Y, opts.Seed)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Report: Report{
			RunID:               runID,
			StartedAt:           started,
			FinishedAt:          time.Now().UTC(),
			Seed:                opts.Seed,
			Rows:                n,
			TrainRows:           len(split.Train),
			TestRows:            len(split.Test),
			Features:            slices.Clone(frame.Names),
			Models:              reports,
			BestModel:           reports[best].Key,
			ServedModel:         KeyForest,
			ServedTrainedOnRows: n,
			Note:                MetricsNote,
			Clusters:            clusters,
		},
		Best:        &artifacts.BestModel{Key: reports[best].Key, Model: bestModel},
		Forest:      forest,
		Booster:     booster,
		Scaler:      scaler,
		KMeans:      km,
		LabelMap:    labels,
		Importances: importances,
	}
	logger.Info("Training finished",
		"best_model", res.Report.BestModel,
		log.DurationMsKey, res.Report.FinishedAt.Sub(started).Milliseconds(),
	)
	return res, nil
}

func evaluate(ctx context.Context, c Candidate, Xtrain mat.Matrix, ytrain mat.Vector, Xtest mat.Matrix, ytest mat.Vector, folds []model_selection.Split, workers int) (ModelReport, model.Regressor, error) {
	rep := ModelReport{Key: c.Key, Name: c.Name}

	m := c.New()
	start := time.Now()
	if err := fit(ctx, m, Xtrain, ytrain); err != nil {
		return rep, nil, err
	}
	rep.TrainSeconds = time.Since(start).Seconds()

	pred, err := m.Predict(Xtest)
	if err != nil {
		return rep, nil, err
	}
	if rep.R2, err = metrics.R2Score(ytest, pred); err != nil {
		return rep, nil, err
	}
	if rep.RMSE, err = metrics.RMSE(ytest, pred); err != nil {
		return rep, nil, err
	}
	if rep.MAE, err = metrics.MAE(ytest, pred); err != nil {
		return rep, nil, err
	}

	rep.CVScores, err = model_selection.CrossValScore(ctx, c.New, Xtrain, ytrain, folds, workers)
	if err != nil {
		return rep, nil, err
	}
	if rep.CVMean, rep.CVStd, err = metrics.MeanStd(rep.CVScores); err != nil {
		return rep, nil, err
	}
	return rep, m, nil
}

// selectBest returns the index of the highest test R2; the earliest wins ties.
func selectBest(reports []ModelReport) int {
	best := 0
	for i := 1; i < len(reports); i++ {
		if reports[i].R2 > reports[best].R2 {
			best = i
		}
	}
	return best
}

func rankImportances(forest *ensemble.RandomForestRegressor, names []string) ([]Importance, error) {
	values, err := forest.FeatureImportances()
	if err != nil {
		return nil, err
	}
	if len(values) != len(names) {
		return nil, cmlErrors.NewFeatureMismatchError(names[min(len(values), len(names)):])
	}
	out := make([]Importance, len(names))
	for i, name := range names {
		out[i] = Importance{Feature: name, Importance: values[i]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	return out, nil
}

// Segment standardizes X, clusters it into NClusters groups and labels the
// clusters by ascending mean of y.
func Segment(X *mat.Dense, y *mat.VecDense, seed uint64) (*preprocessing.StandardScaler, *cluster.KMeans, artifacts.LabelMap, []ClusterSummary, error) {
	scaler := preprocessing.NewStandardScalerDefault()
	km := cluster.NewKMeans(
		cluster.WithKMeansNClusters(NClusters),
		cluster.WithKMeansNInit(10),
		cluster.WithKMeansRandomState(seed),
	)
	seg := pipeline.New(
		pipeline.Step{Name: "scaler", Estimator: scaler},
		pipeline.Step{Name: "kmeans", Estimator: km},
	)
	assigned, err := seg.FitPredict(X)
	if err != nil {
		return nil, nil, nil, nil, cmlErrors.Wrap(err, "failed to fit segmentation")
	}

	groups := make([][]float64, NClusters)
	for i, c := range assigned {
		groups[c] = append(groups[c], y.AtVec(i))
	}
	summaries := make([]ClusterSummary, NClusters)
	for c, g := range groups {
		if len(g) == 0 {
			return nil, nil, nil, nil, cmlErrors.NewSchemaViolationError("training.Segment", "cluster %d is empty", c)
		}
		summaries[c] = ClusterSummary{Cluster: c, Size: len(g), MeanTarget: stat.Mean(g, nil)}
	}

	order := []int{0, 1, 2}
	sort.SliceStable(order, func(i, j int) bool {
		return summaries[order[i]].MeanTarget < summaries[order[j]].MeanTarget
	})
	for i := 1; i < len(order); i++ {
		if summaries[order[i]].MeanTarget == summaries[order[i-1]].MeanTarget {
			return nil, nil, nil, nil, cmlErrors.NewSchemaViolationError("training.Segment",
				"clusters %d and %d have the same mean target %g", order[i-1], order[i], summaries[order[i]].MeanTarget)
		}
	}

	labels := artifacts.NewLabelMap(order)
	for c := range summaries {
		summaries[c].Tier, _ = labels.Tier(c)
	}
	return scaler, km, labels, summaries, nil
}
