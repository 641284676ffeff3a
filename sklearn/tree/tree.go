// Package tree implements CART regression trees.
//
// DecisionTreeRegressor grows a binary tree by greedy variance reduction.
// Thresholds are midpoints between consecutive distinct feature values and
// rows with value <= threshold go left. The same builder grows the base
// learners of the ensemble package: random forests fit it on bootstrap
// samples, gradient boosting fits it on residuals with an L2 leaf penalty.
package tree

import (
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carbonml/core/model"
	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
)

// featureTolerance is the minimum gap between two feature values for a
// threshold to be placed between them.
const featureTolerance = 1e-7

// TreeNode represents a node in the decision tree
type TreeNode struct {
	IsLeaf    bool      // Whether this is a leaf node
	Feature   int       // Feature index for split (internal nodes)
	Threshold float64   // Threshold value for split (internal nodes)
	Left      *TreeNode // Left child (values <= threshold)
	Right     *TreeNode // Right child (values > threshold)
	Value     float64   // Predicted value
	Impurity  float64   // Node impurity (variance of the targets)
	NSamples  int       // Number of samples at this node
	Depth     int       // Depth of this node in the tree
}

// Leaf returns the leaf reached by row.
func (n *TreeNode) Leaf(row []float64) *TreeNode {
	node := n
	for !node.IsLeaf {
		if row[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

// DecisionTreeRegressor is a CART regression tree.
type DecisionTreeRegressor struct {
	model.BaseEstimator

	// Hyperparameters
	MaxDepth        int     // Maximum depth of tree (0 = unlimited)
	MinSamplesSplit int     // Minimum samples to split a node
	MinSamplesLeaf  int     // Minimum samples in a leaf
	L2              float64 // Leaf shrinkage: value = sum / (n + L2)
	RandomState     uint64  // Seed for the feature scan order

	// Fitted state
	Root        *TreeNode
	NFeatures   int
	Importances []float64
}

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

// NewDecisionTreeRegressor creates a regression tree with scikit-learn
// defaults: unlimited depth, min_samples_split=2, min_samples_leaf=1.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	dt := &DecisionTreeRegressor{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
	dt.ModelType = "DecisionTreeRegressor"

	for _, opt := range opts {
		opt(dt)
	}

	dt.SetParams(map[string]interface{}{
		"max_depth":         dt.MaxDepth,
		"min_samples_split": dt.MinSamplesSplit,
		"min_samples_leaf":  dt.MinSamplesLeaf,
		"l2":                dt.L2,
		"random_state":      dt.RandomState,
	})
	return dt
}

// WithMaxDepth sets the maximum tree depth
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.MaxDepth = depth
	}
}

// WithMinSamplesSplit sets minimum samples to split
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.MinSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets minimum samples in leaf
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.MinSamplesLeaf = n
	}
}

// WithL2 sets the L2 penalty applied to leaf values and split gains.
func WithL2(lambda float64) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.L2 = lambda
	}
}

// WithRandomState sets the random seed
func WithRandomState(seed uint64) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.RandomState = seed
	}
}

// Fit grows the tree on all rows and features of X.
func (dt *DecisionTreeRegressor) Fit(X mat.Matrix, y mat.Vector) error {
	return dt.FitSubset(Columns(X), y, nil, nil)
}

// FitSubset grows the tree on the given rows and features. cols is X in
// column-major form (see Columns). A nil samples slice means every row; rows
// may repeat, as in a bootstrap sample. A nil features slice means every
// feature.
func (dt *DecisionTreeRegressor) FitSubset(cols [][]float64, y mat.Vector, samples, features []int) (err error) {
	defer cmlErrors.Recover(&err, "DecisionTreeRegressor.Fit")

	nFeatures := len(cols)
	if nFeatures == 0 || len(cols[0]) == 0 {
		return cmlErrors.NewModelError("DecisionTreeRegressor.Fit", "empty data", cmlErrors.ErrEmptyData)
	}
	nRows := len(cols[0])
	if y.Len() != nRows {
		return cmlErrors.NewDimensionError("DecisionTreeRegressor.Fit", nRows, y.Len(), 0)
	}
	if dt.MinSamplesSplit < 2 {
		return cmlErrors.NewValidationError("DecisionTreeRegressor.Fit", "must be at least 2", "min_samples_split")
	}
	if dt.MinSamplesLeaf < 1 {
		return cmlErrors.NewValidationError("DecisionTreeRegressor.Fit", "must be at least 1", "min_samples_leaf")
	}

	if samples == nil {
		samples = make([]int, nRows)
		for i := range samples {
			samples[i] = i
		}
	}
	if len(samples) == 0 {
		return cmlErrors.NewModelError("DecisionTreeRegressor.Fit", "no samples", cmlErrors.ErrEmptyData)
	}
	if features == nil {
		features = make([]int, nFeatures)
		for j := range features {
			features[j] = j
		}
	}

	target := make([]float64, nRows)
	for i := range target {
		target[i] = y.AtVec(i)
	}

	b := &builder{
		dt:          dt,
		cols:        cols,
		y:           target,
		features:    append([]int(nil), features...),
		rng:         rand.New(rand.NewPCG(dt.RandomState, dt.RandomState)),
		importances: make([]float64, nFeatures),
	}

	dt.NFeatures = nFeatures
	dt.Root = b.grow(append([]int(nil), samples...), 0)
	dt.Importances = normalize(b.importances)
	dt.SetFitted()
	return nil
}

// Predict returns the leaf value of every row of X.
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (_ *mat.VecDense, err error) {
	defer cmlErrors.Recover(&err, "DecisionTreeRegressor.Predict")
	if !dt.IsFitted() {
		return nil, cmlErrors.NewNotFittedError("DecisionTreeRegressor", "Predict")
	}

	r, c := X.Dims()
	if c != dt.NFeatures {
		return nil, cmlErrors.NewDimensionError("DecisionTreeRegressor.Predict", dt.NFeatures, c, 1)
	}

	out := mat.NewVecDense(r, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		out.SetVec(i, dt.Root.Leaf(row).Value)
	}
	return out, nil
}

// PredictRow returns the prediction for a single feature row.
func (dt *DecisionTreeRegressor) PredictRow(row []float64) float64 {
	return dt.Root.Leaf(row).Value
}

// FeatureImportances returns the normalized total variance reduction per
// feature.
func (dt *DecisionTreeRegressor) FeatureImportances() ([]float64, error) {
	if !dt.IsFitted() {
		return nil, cmlErrors.NewNotFittedError("DecisionTreeRegressor", "FeatureImportances")
	}
	return append([]float64(nil), dt.Importances...), nil
}

// GetDepth returns the depth of the deepest leaf.
func (dt *DecisionTreeRegressor) GetDepth() int {
	if dt.Root == nil {
		return 0
	}
	return maxDepth(dt.Root)
}

// GetNLeaves returns the number of leaf nodes
func (dt *DecisionTreeRegressor) GetNLeaves() int {
	if dt.Root == nil {
		return 0
	}
	return countLeaves(dt.Root)
}

func maxDepth(node *TreeNode) int {
	if node.IsLeaf {
		return node.Depth
	}
	return max(maxDepth(node.Left), maxDepth(node.Right))
}

func countLeaves(node *TreeNode) int {
	if node.IsLeaf {
		return 1
	}
	return countLeaves(node.Left) + countLeaves(node.Right)
}

// Columns copies X into column-major slices, the layout FitSubset expects.
func Columns(X mat.Matrix) [][]float64 {
	r, c := X.Dims()
	cols := make([][]float64, c)
	for j := 0; j < c; j++ {
		cols[j] = make([]float64, r)
		mat.Col(cols[j], j, X)
	}
	return cols
}

func normalize(v []float64) []float64 {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	out := make([]float64, len(v))
	if sum > 0 {
		for i, x := range v {
			out[i] = x / sum
		}
	}
	return out
}

type builder struct {
	dt          *DecisionTreeRegressor
	cols        [][]float64
	y           []float64
	features    []int
	rng         *rand.Rand
	importances []float64
}

type split struct {
	feature   int
	threshold float64
	score     float64 // sumL²/(nL+λ) + sumR²/(nR+λ), larger is better
	pos       int     // number of samples going left in sorted order
}

func (b *builder) grow(samples []int, depth int) *TreeNode {
	n := len(samples)
	sum, sumSq := 0.0, 0.0
	for _, i := range samples {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	mean := sum / float64(n)
	impurity := math.Max(sumSq/float64(n)-mean*mean, 0)

	node := &TreeNode{
		IsLeaf:   true,
		Value:    sum / (float64(n) + b.dt.L2),
		Impurity: impurity,
		NSamples: n,
		Depth:    depth,
	}

	dt := b.dt
	if (dt.MaxDepth > 0 && depth >= dt.MaxDepth) ||
		n < dt.MinSamplesSplit ||
		n < 2*dt.MinSamplesLeaf ||
		impurity <= featureTolerance {
		return node
	}

	best, ok := b.bestSplit(samples, sum)
	if !ok {
		return node
	}

	parentScore := sum * sum / (float64(n) + dt.L2)
	if best.score <= parentScore {
		return node
	}

	left := make([]int, 0, best.pos)
	right := make([]int, 0, n-best.pos)
	col := b.cols[best.feature]
	for _, i := range samples {
		if col[i] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	node.IsLeaf = false
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Left = b.grow(left, depth+1)
	node.Right = b.grow(right, depth+1)

	// weighted impurity decrease, n_t*imp_t - n_l*imp_l - n_r*imp_r
	b.importances[best.feature] += float64(n)*impurity -
		float64(node.Left.NSamples)*node.Left.Impurity -
		float64(node.Right.NSamples)*node.Right.Impurity

	return node
}

func (b *builder) bestSplit(samples []int, total float64) (split, bool) {
	n := len(samples)
	minLeaf := b.dt.MinSamplesLeaf
	lambda := b.dt.L2

	order := append([]int(nil), b.features...)
	b.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	sorted := make([]int, n)
	best := split{feature: -1, score: math.Inf(-1)}

	for _, f := range order {
		col := b.cols[f]
		copy(sorted, samples)
		slices.SortFunc(sorted, func(a, c int) int {
			switch {
			case col[a] < col[c]:
				return -1
			case col[a] > col[c]:
				return 1
			default:
				return 0
			}
		})
		if col[sorted[n-1]] <= col[sorted[0]]+featureTolerance {
			continue
		}

		sumLeft := 0.0
		for pos := 1; pos < n; pos++ {
			sumLeft += b.y[sorted[pos-1]]
			lo, hi := col[sorted[pos-1]], col[sorted[pos]]
			if hi <= lo+featureTolerance {
				continue
			}
			if pos < minLeaf || n-pos < minLeaf {
				continue
			}

			sumRight := total - sumLeft
			score := sumLeft*sumLeft/(float64(pos)+lambda) +
				sumRight*sumRight/(float64(n-pos)+lambda)
			if score > best.score {
				threshold := lo/2 + hi/2
				if threshold >= hi {
					threshold = lo
				}
				best = split{feature: f, threshold: threshold, score: score, pos: pos}
			}
		}
	}

	return best, best.feature >= 0
}
