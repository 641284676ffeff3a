// Package model_selection splits data for evaluation, following
// sklearn.model_selection: a seeded shuffled train/test split, unshuffled
// K-fold partitions and per-fold cross-validated R2.
package model_selection

import (
	"context"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carbonml/core/model"
	"github.com/ezoic/carbonml/core/parallel"
	"github.com/ezoic/carbonml/metrics"
	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
)

// Split holds the row indices of one train/test partition.
type Split struct {
	Train []int
	Test  []int
}

// TrainTestSplit shuffles [0, n) with a PCG generator seeded by seed and puts
// the first ceil(testSize*n) rows in the test set, like scikit-learn.
//
// Errors:
//   - ValidationError: if testSize is not in (0, 1) or either side would be empty
func TrainTestSplit(n int, testSize float64, seed uint64) (Split, error) {
	if testSize <= 0 || testSize >= 1 {
		return Split{}, cmlErrors.NewValidationError("TrainTestSplit", "must be in (0, 1)", "test_size")
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < 1 || nTest >= n {
		return Split{}, cmlErrors.NewValidationError("TrainTestSplit",
			"too few samples for the requested split", "n_samples")
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	idx := rng.Perm(n)
	return Split{
		Train: append([]int(nil), idx[nTest:]...),
		Test:  append([]int(nil), idx[:nTest]...),
	}, nil
}

// KFold partitions [0, n) into k contiguous, unshuffled folds. The first
// n%k folds hold one extra sample. Fold i is the test set of split i.
func KFold(n, k int) ([]Split, error) {
	if k < 2 {
		return nil, cmlErrors.NewValidationError("KFold", "must be at least 2", "n_splits")
	}
	if n < k {
		return nil, cmlErrors.NewValidationError("KFold", "cannot exceed the number of samples", "n_splits")
	}

	splits := make([]Split, k)
	start := 0
	for i := 0; i < k; i++ {
		size := n / k
		if i < n%k {
			size++
		}
		end := start + size

		test := make([]int, 0, size)
		train := make([]int, 0, n-size)
		for j := 0; j < n; j++ {
			if j >= start && j < end {
				test = append(test, j)
			} else {
				train = append(train, j)
			}
		}
		splits[i] = Split{Train: train, Test: test}
		start = end
	}
	return splits, nil
}

// CrossValScore fits a fresh model from newModel on the training rows of each
// split and returns the R2 on its test rows, in split order. Folds are
// evaluated concurrently on up to workers goroutines.
func CrossValScore(ctx context.Context, newModel func() model.Regressor, X mat.Matrix, y mat.Vector, splits []Split, workers int) ([]float64, error) {
	r, _ := X.Dims()
	if y.Len() != r {
		return nil, cmlErrors.NewDimensionError("CrossValScore", r, y.Len(), 0)
	}

	scores := make([]float64, len(splits))
	err := parallel.ForEach(ctx, len(splits), workers, func(_ context.Context, i int) error {
		s := splits[i]
		m := newModel()
		if err := m.Fit(SelectRows(X, s.Train), SelectVec(y, s.Train)); err != nil {
			return cmlErrors.Wrapf(err, "fold %d", i)
		}
		pred, err := m.Predict(SelectRows(X, s.Test))
		if err != nil {
			return cmlErrors.Wrapf(err, "fold %d", i)
		}
		score, err := metrics.R2Score(SelectVec(y, s.Test), pred)
		if err != nil {
			return cmlErrors.Wrapf(err, "fold %d", i)
		}
		scores[i] = score
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scores, nil
}

// SelectRows copies the given rows of X into a new matrix.
func SelectRows(X mat.Matrix, rows []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(rows), c, nil)
	for i, row := range rows {
		for j := 0; j < c; j++ {
			out.Set(i, j, X.At(row, j))
		}
	}
	return out
}

// SelectVec copies the given elements of v into a new vector.
func SelectVec(v mat.Vector, idx []int) *mat.VecDense {
	out := mat.NewVecDense(len(idx), nil)
	for i, k := range idx {
		out.SetVec(i, v.AtVec(k))
	}
	return out
}
