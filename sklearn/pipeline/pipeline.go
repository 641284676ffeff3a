// Package pipeline chains transformers with a final transformer or clusterer,
// following sklearn.pipeline.Pipeline. The segmentation model is a pipeline
// of a StandardScaler and a KMeans step.
package pipeline

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carbonml/core/model"
	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
	"github.com/ezoic/carbonml/pkg/log"
)

// Step represents a single step in the pipeline.
// Each step is a tuple of (name, transformer/estimator).
type Step struct {
	Name      string      // Name of this step (for identification)
	Estimator interface{} // model.Transformer, or model.Clusterer as the final step
}

// Pipeline chains multiple transforms and optionally a final clusterer.
// Intermediate steps must be transformers.
type Pipeline struct {
	model.BaseEstimator

	steps      []Step
	namedSteps map[string]interface{}
}

// New creates a new Pipeline with the given steps.
// This is equivalent to sklearn.pipeline.Pipeline(steps)
func New(steps ...Step) *Pipeline {
	namedSteps := make(map[string]interface{}, len(steps))
	for _, step := range steps {
		namedSteps[step.Name] = step.Estimator
	}

	p := &Pipeline{
		steps:      steps,
		namedSteps: namedSteps,
	}
	p.ModelType = "Pipeline"
	return p
}

// Make is a convenience function similar to sklearn.pipeline.make_pipeline
// It automatically generates names for the steps.
func Make(estimators ...interface{}) *Pipeline {
	steps := make([]Step, len(estimators))
	for i, estimator := range estimators {
		steps[i] = Step{Name: fmt.Sprintf("step%d", i+1), Estimator: estimator}
	}
	return New(steps...)
}

// NewFitted assembles a pipeline from steps that were fitted and persisted
// individually.
//
// Errors:
//   - NotFittedError: if a step reports that it is not fitted
func NewFitted(steps ...Step) (*Pipeline, error) {
	for _, step := range steps {
		if f, ok := step.Estimator.(interface{ IsFitted() bool }); ok && !f.IsFitted() {
			return nil, cmlErrors.NewNotFittedError(step.Name, "NewFitted")
		}
	}
	p := New(steps...)
	p.SetFitted()
	return p, nil
}

// Fit trains the pipeline.
// Fit all the transformers one after the other and transform the
// data, then fit the final step.
func (p *Pipeline) Fit(X mat.Matrix) (err error) {
	defer cmlErrors.Recover(&err, "Pipeline.Fit")
	if len(p.steps) == 0 {
		return cmlErrors.New("pipeline has no steps")
	}

	Xt, err := p.fitTransformPrefix(X)
	if err != nil {
		return err
	}

	final := p.steps[len(p.steps)-1]
	switch est := final.Estimator.(type) {
	case model.Clusterer:
		err = est.Fit(Xt)
	case model.Transformer:
		err = est.Fit(Xt)
	default:
		return cmlErrors.NewValidationError(
			"pipeline final step",
			"final step must be a transformer or a clusterer",
			final.Name,
		)
	}
	if err != nil {
		return cmlErrors.Wrap(err, fmt.Sprintf("failed to fit final step '%s'", final.Name))
	}

	p.SetFitted()
	p.Logger().Debug("Pipeline fitted", log.OperationKey, log.OperationFit, "steps", len(p.steps))
	return nil
}

// Predict applies the transforms to the data and assigns clusters with the
// final step.
func (p *Pipeline) Predict(X mat.Matrix) ([]int, error) {
	if !p.IsFitted() {
		return nil, cmlErrors.NewNotFittedError("Pipeline", "Predict")
	}
	if len(p.steps) == 0 {
		return nil, cmlErrors.New("pipeline has no steps")
	}

	Xt, err := p.transform(X)
	if err != nil {
		return nil, err
	}

	final := p.steps[len(p.steps)-1]
	clusterer, ok := final.Estimator.(model.Clusterer)
	if !ok {
		return nil, cmlErrors.NewValidationError(
			"pipeline final step",
			"final step must have Predict method for prediction",
			final.Name,
		)
	}
	return clusterer.Predict(Xt)
}

// FitPredict is a convenience method that fits the pipeline and predicts.
func (p *Pipeline) FitPredict(X mat.Matrix) ([]int, error) {
	if err := p.Fit(X); err != nil {
		return nil, err
	}
	return p.Predict(X)
}

// Transform applies transforms to the data.
// Only valid if every step is a transformer.
func (p *Pipeline) Transform(X mat.Matrix) (*mat.Dense, error) {
	if !p.IsFitted() {
		return nil, cmlErrors.NewNotFittedError("Pipeline", "Transform")
	}

	Xt := X
	for _, step := range p.steps {
		transformer, ok := step.Estimator.(model.Transformer)
		if !ok {
			return nil, cmlErrors.NewValidationError(
				"pipeline step",
				"all steps must be transformers for Transform",
				step.Name,
			)
		}
		out, err := transformer.Transform(Xt)
		if err != nil {
			return nil, cmlErrors.Wrap(err, fmt.Sprintf("failed to transform at step '%s'", step.Name))
		}
		Xt = out
	}
	return mat.DenseCopyOf(Xt), nil
}

// GetParams returns the parameters of every step prefixed with the step name,
// as in scikit-learn.
func (p *Pipeline) GetParams() map[string]interface{} {
	params := make(map[string]interface{})
	for _, step := range p.steps {
		if getter, ok := step.Estimator.(interface {
			GetParams(deep bool) map[string]interface{}
		}); ok {
			for key, value := range getter.GetParams(true) {
				params[fmt.Sprintf("%s__%s", step.Name, key)] = value
			}
		}
	}
	return params
}

// NamedSteps returns the steps as a map for easy access by name.
func (p *Pipeline) NamedSteps() map[string]interface{} {
	return p.namedSteps
}

// Steps returns the list of steps.
func (p *Pipeline) Steps() []Step {
	steps := make([]Step, len(p.steps))
	copy(steps, p.steps)
	return steps
}

func (p *Pipeline) fitTransformPrefix(X mat.Matrix) (mat.Matrix, error) {
	Xt := X
	for _, step := range p.steps[:len(p.steps)-1] {
		transformer, ok := step.Estimator.(model.Transformer)
		if !ok {
			return nil, cmlErrors.NewValidationError(
				"pipeline step",
				"all intermediate steps must be transformers",
				step.Name,
			)
		}
		if err := transformer.Fit(Xt); err != nil {
			return nil, cmlErrors.Wrap(err, fmt.Sprintf("failed to fit step '%s'", step.Name))
		}
		out, err := transformer.Transform(Xt)
		if err != nil {
			return nil, cmlErrors.Wrap(err, fmt.Sprintf("failed to transform at step '%s'", step.Name))
		}
		Xt = out
	}
	return Xt, nil
}

// transform applies all transforms except the final step.
func (p *Pipeline) transform(X mat.Matrix) (mat.Matrix, error) {
	Xt := X
	for _, step := range p.steps[:len(p.steps)-1] {
		transformer, ok := step.Estimator.(model.Transformer)
		if !ok {
			return nil, cmlErrors.NewValidationError(
				"pipeline step",
				"intermediate steps must be transformers",
				step.Name,
			)
		}
		out, err := transformer.Transform(Xt)
		if err != nil {
			return nil, cmlErrors.Wrap(err, fmt.Sprintf("failed to transform at step '%s'", step.Name))
		}
		Xt = out
	}
	return Xt, nil
}
