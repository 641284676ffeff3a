package training_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/carbonml/internal/dataset"
	"github.com/ezoic/carbonml/internal/fixture"
	"github.com/ezoic/carbonml/internal/training"
	"github.com/ezoic/carbonml/linear"
)

func cleanedFixture(t *testing.T, n int) *dataset.Frame {
	t.Helper()
	raw, err := fixture.RawCSV(n)
	require.NoError(t, err)
	df, err := dataset.ReadRaw(bytes.NewReader(raw))
	require.NoError(t, err)
	cleaned, err := dataset.Clean(df)
	require.NoError(t, err)
	frame, err := dataset.FromDataFrame(cleaned.Frame)
	require.NoError(t, err)
	return frame
}

// The cleaned synthetic survey is exactly rank deficient, so every candidate
// has to fit a singular design.
func TestRun_SurveyFixture(t *testing.T) {
	for _, n := range []int{120, 150, 200} {
		frame := cleanedFixture(t, n)

		opts := training.DefaultOptions()
		opts.Candidates = fixture.SmallCandidates(opts.Seed)
		res, err := training.Run(context.Background(), frame, opts)
		require.NoError(t, err, "n=%d", n)

		require.Len(t, res.Report.Models, 4)
		assert.Equal(t, training.KeyLinear, res.Report.Models[0].Key)
		assert.Equal(t, frame.Rows(), res.Report.ServedTrainedOnRows)
	}
}

func TestLinearRegression_SurveyFixture(t *testing.T) {
	frame := cleanedFixture(t, 150)

	lr := linear.NewLinearRegression()
	require.NoError(t, lr.Fit(frame.X, frame.Y))
	score, err := lr.Score(frame.X, frame.Y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.0)
}
