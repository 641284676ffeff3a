package model_selection

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carbonml/core/model"
	"github.com/ezoic/carbonml/linear"
)

func TestTrainTestSplit(t *testing.T) {
	s, err := TrainTestSplit(101, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, s.Test, 21, "ceil(0.2 * 101)")
	assert.Len(t, s.Train, 80)

	all := append(append([]int(nil), s.Train...), s.Test...)
	sort.Ints(all)
	for i, v := range all {
		assert.Equal(t, i, v)
	}

	again, err := TrainTestSplit(101, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, s, again)

	other, err := TrainTestSplit(101, 0.2, 7)
	require.NoError(t, err)
	assert.NotEqual(t, s.Test, other.Test)
}

func TestTrainTestSplit_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		testSize float64
	}{
		{"zero fraction", 10, 0},
		{"whole set", 10, 1},
		{"one sample", 1, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TrainTestSplit(tt.n, tt.testSize, 42)
			assert.Error(t, err)
		})
	}
}

func TestKFold(t *testing.T) {
	splits, err := KFold(11, 5)
	require.NoError(t, err)
	require.Len(t, splits, 5)

	sizes := make([]int, 5)
	seen := make(map[int]int)
	for i, s := range splits {
		sizes[i] = len(s.Test)
		assert.Len(t, s.Train, 11-len(s.Test))
		for _, idx := range s.Test {
			seen[idx]++
		}
	}
	assert.Equal(t, []int{3, 2, 2, 2, 2}, sizes)
	assert.Equal(t, []int{0, 1, 2}, splits[0].Test)
	assert.Len(t, seen, 11)

	_, err = KFold(3, 5)
	assert.Error(t, err)
	_, err = KFold(10, 1)
	assert.Error(t, err)
}

func TestCrossValScore(t *testing.T) {
	n := 50
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		a, b := float64(i), float64((i*3)%7)
		X.SetRow(i, []float64{a, b})
		y.SetVec(i, 2*a-b+1)
	}

	splits, err := KFold(n, 5)
	require.NoError(t, err)
	scores, err := CrossValScore(context.Background(), func() model.Regressor {
		return linear.NewLinearRegression()
	}, X, y, splits, 2)
	require.NoError(t, err)
	require.Len(t, scores, 5)
	for _, s := range scores {
		assert.InDelta(t, 1.0, s, 1e-9)
	}
}

func TestSelectRows(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	out := SelectRows(X, []int{2, 0, 2})
	assert.Equal(t, []float64{5, 6, 1, 2, 5, 6}, out.RawMatrix().Data)

	v := SelectVec(mat.NewVecDense(3, []float64{7, 8, 9}), []int{1, 1})
	assert.Equal(t, []float64{8, 8}, v.RawVector().Data)
}
