// Package model provides the building blocks shared by every carbonml
// estimator:
//
//   - BaseEstimator: fitted state, hyperparameters and a lazily created logger
//   - estimator interfaces (Regressor, Transformer, Clusterer)
//   - persistence with encoding/gob (SaveModel / LoadModel)
//   - a versioned JSON envelope for small documents (WriteDocument / ReadDocument)
//
// Models embed BaseEstimator and call SetFitted at the end of a successful Fit:
//
//	type MyModel struct {
//		model.BaseEstimator
//		Weights []float64
//	}
//
//	func (m *MyModel) Fit(X mat.Matrix, y mat.Vector) error {
//		// training logic
//		m.SetFitted()
//		return nil
//	}
//
// Exported fields are what gob persists; the logger is never serialized and is
// recreated on first use after loading.
package model

import (
	"github.com/ezoic/carbonml/pkg/log"
)

// EstimatorState represents the learning state of a model
type EstimatorState int

const (
	// NotFitted indicates the model is not yet trained
	NotFitted EstimatorState = iota
	// Fitted indicates the model has been trained
	Fitted
)

// BaseEstimator is the base structure for all models
type BaseEstimator struct {
	// State holds the model's learning state. Public for gob encoding.
	State EstimatorState

	// ModelType identifies the type of model, also used as logger name.
	ModelType string

	// Version is the model version
	Version string

	logger          log.Logger
	hyperparameters map[string]interface{}
}

// IsFitted returns whether the model has been fitted with training data.
func (e *BaseEstimator) IsFitted() bool {
	return e.State == Fitted
}

// SetFitted marks the estimator as fitted. Called by model implementations at
// the end of Fit.
func (e *BaseEstimator) SetFitted() {
	e.State = Fitted
}

// Reset returns the estimator to its initial untrained state.
func (e *BaseEstimator) Reset() {
	e.State = NotFitted
}

// SetLogger sets the logger for this estimator.
func (e *BaseEstimator) SetLogger(logger log.Logger) {
	e.logger = logger
}

// Logger returns the estimator's logger, creating one named after ModelType
// when none has been set (for example after gob decoding).
func (e *BaseEstimator) Logger() log.Logger {
	if e.logger == nil {
		name := e.ModelType
		if name == "" {
			name = "estimator"
		}
		e.logger = log.GetLoggerWithName(name).With(log.ModelNameKey, name)
	}
	return e.logger
}

// GetParams returns the model's hyperparameters. With deep set the map is a copy.
func (e *BaseEstimator) GetParams(deep bool) map[string]interface{} {
	if e.hyperparameters == nil {
		return make(map[string]interface{})
	}

	if !deep {
		return e.hyperparameters
	}

	params := make(map[string]interface{}, len(e.hyperparameters))
	for k, v := range e.hyperparameters {
		params[k] = v
	}
	return params
}

// SetParams records hyperparameters for reporting.
func (e *BaseEstimator) SetParams(params map[string]interface{}) {
	if e.hyperparameters == nil {
		e.hyperparameters = make(map[string]interface{}, len(params))
	}

	for k, v := range params {
		e.hyperparameters[k] = v
	}
}
