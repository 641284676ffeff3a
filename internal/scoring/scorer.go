// Package scoring turns raw survey answers into emission predictions using
// the artifacts of the last training run.
//
// A Scorer is loaded once and shared:
//
//	scorer, err := scoring.Load(artifacts.NewStore("models"), "data/label_encoders.json")
//	pred, err := scorer.Predict(ctx, scoring.DefaultAnswers())
//
// It never mutates after Load, so it is safe for concurrent use.
package scoring

import (
	"context"
	"maps"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carbonml/internal/artifacts"
	"github.com/ezoic/carbonml/internal/dataset"
	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
	"github.com/ezoic/carbonml/pkg/log"
	"github.com/ezoic/carbonml/preprocessing"
	"github.com/ezoic/carbonml/sklearn/cluster"
	"github.com/ezoic/carbonml/sklearn/ensemble"
	"github.com/ezoic/carbonml/sklearn/pipeline"
)

// Ensemble weights. They sum to 1.
const (
	ForestWeight  = 0.6
	BoosterWeight = 0.4
)

// Prediction is the scored result for one set of answers.
type Prediction struct {
	Forest   float64   `json:"random_forest"`
	Booster  float64   `json:"xgboost"`
	Ensemble float64   `json:"ensemble"`
	Cluster  int       `json:"cluster"`
	Tier     string    `json:"tier"`
	Vector   []float64 `json:"vector"`
}

// Scorer holds the loaded artifacts.
type Scorer struct {
	codebook *dataset.Codebook
	names    []string
	forest   *ensemble.RandomForestRegressor
	booster  *ensemble.GradientBoostingRegressor
	segment  *pipeline.Pipeline
	labels   artifacts.LabelMap
	manifest artifacts.Manifest
	logger   log.Logger
}

// Load reads every artifact the scorer needs from store and the codebook at
// codebookPath.
//
// Errors:
//   - MissingArtifactError: an artifact file does not exist
//   - SchemaViolationError: an artifact is unreadable, the model widths do not
//     match the feature names, or the label map is not a valid three tier map
func Load(store *artifacts.Store, codebookPath string) (*Scorer, error) {
	codebook, err := dataset.LoadCodebook(codebookPath)
	if err != nil {
		return nil, err
	}

	s := &Scorer{
		codebook: codebook,
		forest:   &ensemble.RandomForestRegressor{},
		booster:  &ensemble.GradientBoostingRegressor{},
		logger:   log.GetLoggerWithName("scoring").With(log.PathKey, store.Dir),
	}
	scaler := &preprocessing.StandardScaler{}
	km := &cluster.KMeans{}

	if err := store.ReadJSON(artifacts.FeatureNamesFile, &s.names); err != nil {
		return nil, err
	}
	models := []struct {
		name string
		v    interface{}
	}{
		{artifacts.RandomForestFile, s.forest},
		{artifacts.BoosterFile, s.booster},
		{artifacts.ScalerFile, scaler},
		{artifacts.KMeansFile, km},
	}
	for _, m := range models {
		if err := store.LoadModel(m.name, m.v); err != nil {
			return nil, err
		}
	}
	if err := store.ReadJSON(artifacts.ClusterLabelMapFile, &s.labels); err != nil {
		return nil, err
	}
	if err := store.ReadJSON(artifacts.ManifestFile, &s.manifest); err != nil {
		return nil, err
	}

	if len(s.names) == 0 {
		return nil, cmlErrors.NewSchemaViolationError("scoring.Load", "%s is empty", artifacts.FeatureNamesFile)
	}
	widths := map[string]int{
		artifacts.RandomForestFile: s.forest.NFeatures,
		artifacts.BoosterFile:      s.booster.NFeatures,
		artifacts.ScalerFile:       scaler.NFeatures,
		artifacts.KMeansFile:       km.NFeatures,
	}
	for _, name := range slices.Sorted(maps.Keys(widths)) {
		if widths[name] != len(s.names) {
			return nil, cmlErrors.NewSchemaViolationError("scoring.Load",
				"%s expects %d features but %s lists %d; retrain with `carbonml train`",
				name, widths[name], artifacts.FeatureNamesFile, len(s.names))
		}
	}
	if err := s.labels.Validate(); err != nil {
		return nil, err
	}
	if km.NClusters != len(s.labels) {
		return nil, cmlErrors.NewSchemaViolationError("scoring.Load",
			"%s has %d clusters but the label map has %d", artifacts.KMeansFile, km.NClusters, len(s.labels))
	}

	s.segment, err = pipeline.NewFitted(
		pipeline.Step{Name: "scaler", Estimator: scaler},
		pipeline.Step{Name: "kmeans", Estimator: km},
	)
	if err != nil {
		return nil, cmlErrors.NewSchemaViolationError("scoring.Load", "segmentation artifacts: %v", err)
	}

	s.logger.Info("Artifacts loaded",
		log.OperationKey, log.OperationLoad,
		log.RunIDKey, s.manifest.RunID,
		log.FeaturesKey, len(s.names),
	)
	return s, nil
}

// FeatureNames returns the model input columns in order.
func (s *Scorer) FeatureNames() []string { return slices.Clone(s.names) }

// Codebook returns the categorical encoding shared with cleaning.
func (s *Scorer) Codebook() *dataset.Codebook { return s.codebook }

// Manifest returns the manifest of the loaded artifact set.
func (s *Scorer) Manifest() artifacts.Manifest {
	m := s.manifest
	m.Checksums = maps.Clone(s.manifest.Checksums)
	return m
}

// Vector builds the model input for a, in FeatureNames order.
//
// Errors:
//   - UnknownCategoryError: a categorical answer is not in the codebook
//   - SchemaViolationError: a numeric answer does not parse
//   - FeatureMismatchError: answers required by a feature are absent; every
//     missing name is listed
func (s *Scorer) Vector(a Answers) ([]float64, error) {
	r := featureReader{answers: a, codebook: s.codebook}
	vec := make([]float64, len(s.names))
	for i, name := range s.names {
		if it, ok := dataset.InteractionByName(name); ok {
			vec[i] = r.value(it.Left) * r.value(it.Right)
			continue
		}
		vec[i] = r.value(name)
	}
	if r.err != nil {
		return nil, r.err
	}
	if len(r.missing) > 0 {
		return nil, cmlErrors.NewFeatureMismatchError(r.missing)
	}
	return vec, nil
}

// Predict scores a with both regressors, blends them and assigns the
// emitter tier.
func (s *Scorer) Predict(ctx context.Context, a Answers) (*Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec, err := s.Vector(a)
	if err != nil {
		return nil, err
	}
	X := mat.NewDense(1, len(vec), slices.Clone(vec))

	rf, err := s.forest.Predict(X)
	if err != nil {
		return nil, cmlErrors.Wrap(err, "random forest prediction failed")
	}
	xgb, err := s.booster.Predict(X)
	if err != nil {
		return nil, cmlErrors.Wrap(err, "booster prediction failed")
	}
	clusters, err := s.segment.Predict(X)
	if err != nil {
		return nil, cmlErrors.Wrap(err, "segmentation failed")
	}
	tier, ok := s.labels.Tier(clusters[0])
	if !ok {
		return nil, cmlErrors.NewSchemaViolationError("Scorer.Predict", "cluster %d has no label", clusters[0])
	}

	p := &Prediction{
		Forest:  rf.AtVec(0),
		Booster: xgb.AtVec(0),
		Cluster: clusters[0],
		Tier:    tier,
		Vector:  vec,
	}
	p.Ensemble = ForestWeight*p.Forest + BoosterWeight*p.Booster
	return p, nil
}

// featureReader resolves feature values, keeping the first bad answer and
// each missing key once.
type featureReader struct {
	answers  Answers
	codebook *dataset.Codebook
	missing  []string
	err      error
}

func (r *featureReader) value(name string) float64 {
	if r.codebook.Has(name) {
		label, ok := r.answers.lookup(name)
		if !ok && name == KeyVehicleType {
			label, ok = dataset.NoVehicle, true
		}
		if !ok {
			r.miss(name)
			return 0
		}
		code, err := r.codebook.Encode(name, label)
		if err != nil {
			r.fail(err)
			return 0
		}
		return float64(code)
	}

	v, ok, err := r.answers.number(name)
	if err != nil {
		r.fail(err)
	} else if !ok {
		r.miss(name)
	}
	return v
}

func (r *featureReader) miss(name string) {
	if !slices.Contains(r.missing, name) {
		r.missing = append(r.missing, name)
	}
}

func (r *featureReader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}
