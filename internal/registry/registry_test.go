package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Registry {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "db", "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func sampleRun(id string, started time.Time) Run {
	return Run{
		RunID:       id,
		StartedAt:   started,
		FinishedAt:  started.Add(90 * time.Second),
		Rows:        9800,
		Features:    19,
		BestModel:   "xgboost",
		ServedModel: "random_forest",
		ModelsDir:   "models",
		Metrics: []Metric{
			{Key: "linear_regression", Name: "Linear Regression", R2: 0.81, RMSE: 430, MAE: 320, CVMean: 0.8, CVStd: 0.01, TrainSeconds: 0.02},
			{Key: "xgboost", Name: "XGBoost", R2: 0.97, RMSE: 170, MAE: 120, CVMean: 0.96, CVStd: 0.004, TrainSeconds: 4.2},
		},
	}
}

func TestRecordAndGet(t *testing.T) {
	r := openTemp(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, r.Record(ctx, sampleRun("run-1", started)))

	got, err := r.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Equal(t, 9800, got.Rows)
	assert.Equal(t, "random_forest", got.ServedModel)
	require.Len(t, got.Metrics, 2)
	assert.Equal(t, "linear_regression", got.Metrics[0].Key)
	assert.InDelta(t, 0.97, got.Metrics[1].R2, 1e-12)

	_, err = r.Get(ctx, "missing")
	assert.Error(t, err)
}

func TestRunsNewestFirst(t *testing.T) {
	r := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, r.Record(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := r.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "c", runs[0].RunID)
	assert.Equal(t, "a", runs[2].RunID)
	assert.Len(t, runs[1].Metrics, 2)

	limited, err := r.Runs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "c", limited[0].RunID)
}

func TestRecordDuplicateRollsBack(t *testing.T) {
	r := openTemp(t)
	ctx := context.Background()
	run := sampleRun("dup", time.Now())
	require.NoError(t, r.Record(ctx, run))
	assert.Error(t, r.Record(ctx, run))

	got, err := r.Get(ctx, "dup")
	require.NoError(t, err)
	assert.Len(t, got.Metrics, 2)
}
