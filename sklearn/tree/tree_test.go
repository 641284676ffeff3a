package tree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carbonml/core/model"
)

const epsilon = 1e-9

func stepData() (*mat.Dense, *mat.VecDense) {
	// y depends only on feature 0: 10 below 5, 50 from 5 on; feature 1 is noise
	X := mat.NewDense(10, 2, nil)
	y := mat.NewVecDense(10, nil)
	noise := []float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3}
	for i := 0; i < 10; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, noise[i])
		if i < 5 {
			y.SetVec(i, 10)
		} else {
			y.SetVec(i, 50)
		}
	}
	return X, y
}

func TestDecisionTreeRegressor_StepFunction(t *testing.T) {
	X, y := stepData()

	dt := NewDecisionTreeRegressor()
	require.NoError(t, dt.Fit(X, y))

	assert.False(t, dt.Root.IsLeaf)
	assert.Equal(t, 0, dt.Root.Feature)
	assert.InDelta(t, 4.5, dt.Root.Threshold, epsilon)
	assert.Equal(t, 2, dt.GetNLeaves())
	assert.Equal(t, 1, dt.GetDepth())

	pred, err := dt.Predict(mat.NewDense(3, 2, []float64{
		-1, 0,
		4.4, 100,
		7, 0,
	}))
	require.NoError(t, err)
	assert.InDelta(t, 10, pred.AtVec(0), epsilon)
	assert.InDelta(t, 10, pred.AtVec(1), epsilon)
	assert.InDelta(t, 50, pred.AtVec(2), epsilon)

	imp, err := dt.FeatureImportances()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, imp[0], epsilon)
	assert.InDelta(t, 0.0, imp[1], epsilon)
}

func TestDecisionTreeRegressor_MaxDepthAndMinSplit(t *testing.T) {
	// y = x on 64 points, a full tree would memorize it
	n := 64
	X := mat.NewDense(n, 1, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		y.SetVec(i, float64(i))
	}

	shallow := NewDecisionTreeRegressor(WithMaxDepth(3))
	require.NoError(t, shallow.Fit(X, y))
	assert.LessOrEqual(t, shallow.GetDepth(), 3)
	assert.LessOrEqual(t, shallow.GetNLeaves(), 8)

	coarse := NewDecisionTreeRegressor(WithMinSamplesSplit(20))
	require.NoError(t, coarse.Fit(X, y))
	assertLeaves(t, coarse.Root, func(node *TreeNode) {
		// a leaf either could not be split or its parent had >= 20 samples
		assert.Less(t, node.NSamples, 40)
	})

	full := NewDecisionTreeRegressor()
	require.NoError(t, full.Fit(X, y))
	pred, err := full.Predict(X)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		assert.InDelta(t, float64(i), pred.AtVec(i), epsilon)
	}
}

func assertLeaves(t *testing.T, node *TreeNode, fn func(*TreeNode)) {
	t.Helper()
	if node.IsLeaf {
		fn(node)
		return
	}
	assertLeaves(t, node.Left, fn)
	assertLeaves(t, node.Right, fn)
}

func TestDecisionTreeRegressor_FitSubsetBootstrap(t *testing.T) {
	X, y := stepData()
	cols := Columns(X)

	// rows 0 and 9 only, repeated
	dt := NewDecisionTreeRegressor()
	require.NoError(t, dt.FitSubset(cols, y, []int{0, 0, 9, 9, 9}, nil))
	assert.Equal(t, 5, dt.Root.NSamples)
	assert.InDelta(t, 10, dt.PredictRow([]float64{0, 0}), epsilon)
	assert.InDelta(t, 50, dt.PredictRow([]float64{9, 0}), epsilon)
}

func TestDecisionTreeRegressor_FeatureSubset(t *testing.T) {
	X, y := stepData()

	dt := NewDecisionTreeRegressor(WithMaxDepth(1))
	require.NoError(t, dt.FitSubset(Columns(X), y, nil, []int{1}))
	if !dt.Root.IsLeaf {
		assert.Equal(t, 1, dt.Root.Feature, "only feature 1 may be used")
	}
}

func TestDecisionTreeRegressor_L2ShrinksLeaves(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewVecDense(4, []float64{2, 2, 2, 2})

	dt := NewDecisionTreeRegressor(WithL2(1))
	require.NoError(t, dt.Fit(X, y))
	// constant target: single leaf with value 8 / (4 + 1)
	assert.True(t, dt.Root.IsLeaf)
	assert.InDelta(t, 1.6, dt.Root.Value, epsilon)
}

func TestDecisionTreeRegressor_Deterministic(t *testing.T) {
	X := mat.NewDense(50, 3, nil)
	y := mat.NewVecDense(50, nil)
	for i := 0; i < 50; i++ {
		a, b, c := float64(i%7), float64(i%5), float64(i%3)
		X.SetRow(i, []float64{a, b, c})
		y.SetVec(i, a*2+b*b-c+math.Sin(float64(i)))
	}

	p1 := fitPredict(t, X, y)
	p2 := fitPredict(t, X, y)
	assert.Equal(t, p1.RawVector().Data, p2.RawVector().Data)
}

func fitPredict(t *testing.T, X *mat.Dense, y *mat.VecDense) *mat.VecDense {
	t.Helper()
	dt := NewDecisionTreeRegressor(WithMaxDepth(4), WithRandomState(42))
	require.NoError(t, dt.Fit(X, y))
	pred, err := dt.Predict(X)
	require.NoError(t, err)
	return pred
}

func TestDecisionTreeRegressor_Errors(t *testing.T) {
	dt := NewDecisionTreeRegressor()
	_, err := dt.Predict(mat.NewDense(1, 1, nil))
	assert.Error(t, err)

	assert.Error(t, dt.Fit(&mat.Dense{}, &mat.VecDense{}))
	assert.Error(t, dt.Fit(mat.NewDense(2, 1, nil), mat.NewVecDense(3, nil)))

	bad := NewDecisionTreeRegressor(WithMinSamplesSplit(1))
	X, y := stepData()
	assert.Error(t, bad.Fit(X, y))

	require.NoError(t, dt.Fit(X, y))
	_, err = dt.Predict(mat.NewDense(1, 3, nil))
	assert.Error(t, err)
}

func TestDecisionTreeRegressor_Persistence(t *testing.T) {
	X, y := stepData()
	dt := NewDecisionTreeRegressor(WithMaxDepth(10), WithMinSamplesSplit(2))
	require.NoError(t, dt.Fit(X, y))

	path := t.TempDir() + "/tree.gob"
	require.NoError(t, model.SaveModel(dt, path))

	loaded := &DecisionTreeRegressor{}
	require.NoError(t, model.LoadModel(loaded, path))

	a, err := dt.Predict(X)
	require.NoError(t, err)
	b, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(a, b))
	assert.Equal(t, 10, loaded.MaxDepth)
}
