package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ezoic/carbonml/internal/artifacts"
	"github.com/ezoic/carbonml/internal/dataset"
	"github.com/ezoic/carbonml/internal/scoring"
	"github.com/ezoic/carbonml/internal/training"
	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
	"github.com/ezoic/carbonml/pkg/log"
)

// ScoreRequest is the body of /v1/predict and /v1/estimate.
type ScoreRequest struct {
	Answers      scoring.Answers `json:"answers"`
	FillDefaults bool            `json:"fill_defaults"`
}

// PredictResponse is returned by /v1/predict.
type PredictResponse struct {
	Prediction *scoring.Prediction       `json:"prediction"`
	Estimate   scoring.Estimate          `json:"estimate"`
	Projection []scoring.ProjectionPoint `json:"projection"`
}

// EstimateResponse is returned by /v1/estimate.
type EstimateResponse struct {
	Estimate   scoring.Estimate          `json:"estimate"`
	Projection []scoring.ProjectionPoint `json:"projection"`
}

// ModelResponse is returned by /v1/model.
type ModelResponse struct {
	Manifest     artifacts.Manifest `json:"manifest"`
	FeatureNames []string           `json:"feature_names"`
	Report       *training.Report   `json:"report,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Kind    string   `json:"kind"`
	Missing []string `json:"missing,omitempty"`
	Known   []string `json:"known,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "run_id": s.scorer.Manifest().RunID})
}

func (s *Server) answers(c *gin.Context) (scoring.Answers, bool) {
	var req ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, cmlErrors.NewSchemaViolationError("request", "invalid JSON body: %v", err))
		return nil, false
	}
	a := req.Answers
	if a == nil {
		a = scoring.Answers{}
	}
	if req.FillDefaults {
		a = a.WithDefaults()
	}
	return a, true
}

func (s *Server) predict(c *gin.Context) {
	a, ok := s.answers(c)
	if !ok {
		return
	}
	pred, err := s.scorer.Predict(c.Request.Context(), a)
	if err != nil {
		s.fail(c, err)
		return
	}
	est, err := scoring.EstimateEmissions(a)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.metrics.predictions.WithLabelValues(pred.Tier).Inc()
	c.JSON(http.StatusOK, PredictResponse{
		Prediction: pred,
		Estimate:   est,
		Projection: scoring.Project(pred.Ensemble, s.now().Year()),
	})
}

func (s *Server) estimate(c *gin.Context) {
	a, ok := s.answers(c)
	if !ok {
		return
	}
	est, err := scoring.EstimateEmissions(a)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, EstimateResponse{
		Estimate:   est,
		Projection: scoring.Project(est.TotalKg, s.now().Year()),
	})
}

func (s *Server) encodings(c *gin.Context) {
	cb := s.scorer.Codebook()
	out := make(map[string][]dataset.Entry, len(cb.Columns()))
	for _, col := range cb.Columns() {
		out[col] = cb.Entries(col)
	}
	c.JSON(http.StatusOK, gin.H{"columns": out})
}

func (s *Server) model(c *gin.Context) {
	c.JSON(http.StatusOK, ModelResponse{
		Manifest:     s.scorer.Manifest(),
		FeatureNames: s.scorer.FeatureNames(),
		Report:       s.report,
	})
}

// fail maps err to a status code and writes an ErrorResponse.
func (s *Server) fail(c *gin.Context, err error) {
	status, resp := errorResponse(err)
	s.metrics.errors.WithLabelValues(resp.Kind).Inc()
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", log.ErrorKey, err, "path", c.Request.URL.Path)
	}
	c.AbortWithStatusJSON(status, resp)
}

func errorResponse(err error) (int, ErrorResponse) {
	resp := ErrorResponse{Error: err.Error()}
	var (
		unknown  *cmlErrors.UnknownCategoryError
		mismatch *cmlErrors.FeatureMismatchError
	)
	switch {
	case cmlErrors.As(err, &unknown):
		resp.Kind = "unknown_category"
		resp.Known = unknown.Known
		return http.StatusUnprocessableEntity, resp
	case cmlErrors.As(err, &mismatch):
		resp.Kind = "feature_mismatch"
		resp.Missing = mismatch.Missing
		return http.StatusBadRequest, resp
	case cmlErrors.Is(err, cmlErrors.ErrSchemaViolation):
		resp.Kind = "schema_violation"
		return http.StatusBadRequest, resp
	case cmlErrors.Is(err, cmlErrors.ErrMissingArtifact):
		resp.Kind = "missing_artifact"
		return http.StatusServiceUnavailable, resp
	default:
		resp.Kind = "internal"
		return http.StatusInternalServerError, resp
	}
}
