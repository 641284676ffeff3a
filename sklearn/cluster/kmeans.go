package cluster

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/carbonml/core/model"
	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
	"github.com/ezoic/carbonml/pkg/log"
)

// KMeans implements Lloyd's k-means with k-means++ seeding.
// Compatible with scikit-learn's KMeans(algorithm="lloyd").
type KMeans struct {
	model.BaseEstimator

	// Hyperparameters
	NClusters   int
	NInit       int     // independent seedings, the lowest inertia wins
	MaxIter     int     // Lloyd iterations per seeding
	Tol         float64 // relative to the mean per-feature variance of X
	RandomState uint64

	// Learned parameters
	Centers   [][]float64 // NClusters x NFeatures
	Labels    []int       // cluster of each training sample
	Inertia   float64     // within-cluster sum of squared distances
	NIter     int
	NFeatures int
}

// KMeansOption is a configuration option for KMeans
type KMeansOption func(*KMeans)

// NewKMeans creates a KMeans with 8 clusters, 10 seedings and 300 iterations
// unless configured otherwise.
func NewKMeans(options ...KMeansOption) *KMeans {
	km := &KMeans{
		NClusters: 8,
		NInit:     10,
		MaxIter:   300,
		Tol:       1e-4,
	}
	km.ModelType = "KMeans"
	for _, opt := range options {
		opt(km)
	}
	km.SetParams(map[string]interface{}{
		"n_clusters":   km.NClusters,
		"n_init":       km.NInit,
		"max_iter":     km.MaxIter,
		"tol":          km.Tol,
		"random_state": km.RandomState,
	})
	return km
}

// WithKMeansNClusters sets the number of clusters
func WithKMeansNClusters(n int) KMeansOption {
	return func(km *KMeans) { km.NClusters = n }
}

// WithKMeansNInit sets the number of seedings
func WithKMeansNInit(n int) KMeansOption {
	return func(km *KMeans) { km.NInit = n }
}

// WithKMeansMaxIter sets the maximum number of iterations
func WithKMeansMaxIter(maxIter int) KMeansOption {
	return func(km *KMeans) { km.MaxIter = maxIter }
}

// WithKMeansTol sets the tolerance for convergence
func WithKMeansTol(tol float64) KMeansOption {
	return func(km *KMeans) { km.Tol = tol }
}

// WithKMeansRandomState sets the random seed
func WithKMeansRandomState(seed uint64) KMeansOption {
	return func(km *KMeans) { km.RandomState = seed }
}

// Fit clusters X, keeping the seeding with the lowest inertia.
//
// Errors:
//   - ValidationError: if NClusters, NInit or MaxIter is not positive
//   - ModelError: if X has fewer rows than NClusters
func (km *KMeans) Fit(X mat.Matrix) (err error) {
	defer cmlErrors.Recover(&err, "KMeans.Fit")

	start := time.Now()
	rows, cols := X.Dims()
	if km.NClusters < 1 {
		return cmlErrors.NewValidationError("KMeans.Fit", "must be at least 1", "n_clusters")
	}
	if km.NInit < 1 {
		return cmlErrors.NewValidationError("KMeans.Fit", "must be at least 1", "n_init")
	}
	if km.MaxIter < 1 {
		return cmlErrors.NewValidationError("KMeans.Fit", "must be at least 1", "max_iter")
	}
	if rows < km.NClusters || cols == 0 {
		return cmlErrors.NewModelError("KMeans.Fit",
			"number of samples is less than number of clusters", cmlErrors.ErrEmptyData)
	}

	data := make([][]float64, rows)
	for i := range data {
		data[i] = mat.Row(nil, i, X)
	}
	tol := km.Tol * meanVariance(data, cols)
	rng := rand.New(rand.NewPCG(km.RandomState, km.RandomState))

	bestInertia := math.Inf(1)
	var bestCenters [][]float64
	var bestLabels []int
	var bestNIter int

	for run := 0; run < km.NInit; run++ {
		centers := initKMeansPlusPlus(data, km.NClusters, rng)
		centers, labels, inertia, nIter := km.lloyd(data, centers, tol)
		if inertia < bestInertia {
			bestInertia = inertia
			bestCenters = centers
			bestLabels = labels
			bestNIter = nIter
		}
	}

	km.Centers = bestCenters
	km.Labels = bestLabels
	km.Inertia = bestInertia
	km.NIter = bestNIter
	km.NFeatures = cols
	km.SetFitted()

	km.Logger().Info("Training completed",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"inertia", bestInertia,
		"n_iter", bestNIter,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// lloyd alternates assignment and centroid updates until the total squared
// center shift drops to tol or the labels stop changing.
func (km *KMeans) lloyd(data [][]float64, centers [][]float64, tol float64) ([][]float64, []int, float64, int) {
	cols := len(data[0])
	labels := make([]int, len(data))
	for i := range labels {
		labels[i] = -1
	}

	iter := 0
	for iter < km.MaxIter {
		iter++

		changed := false
		for i, sample := range data {
			c := findNearestCluster(sample, centers)
			if c != labels[i] {
				labels[i] = c
				changed = true
			}
		}

		next := make([][]float64, km.NClusters)
		counts := make([]int, km.NClusters)
		for c := range next {
			next[c] = make([]float64, cols)
		}
		for i, sample := range data {
			c := labels[i]
			counts[c]++
			for j, v := range sample {
				next[c][j] += v
			}
		}
		// empty clusters take the samples farthest from their centers, each
		// sample at most once, leaving no donor cluster empty
		taken := make([]bool, len(data))
		for c := range next {
			if counts[c] > 0 {
				continue
			}
			far := farthestSample(data, labels, centers, counts, taken)
			if far < 0 {
				continue
			}
			taken[far] = true
			old := labels[far]
			counts[old]--
			for j, v := range data[far] {
				next[old][j] -= v
			}
			copy(next[c], data[far])
			counts[c] = 1
			labels[far] = c
			changed = true
		}
		for c := range next {
			if counts[c] == 0 {
				copy(next[c], centers[c])
				continue
			}
			for j := range next[c] {
				next[c][j] /= float64(counts[c])
			}
		}

		shift := 0.0
		for c := range centers {
			shift += squaredDistance(centers[c], next[c])
		}
		centers = next

		if !changed || shift <= tol {
			break
		}
	}

	// final assignment against the final centers
	inertia := 0.0
	for i, sample := range data {
		labels[i] = findNearestCluster(sample, centers)
		inertia += squaredDistance(sample, centers[labels[i]])
	}
	return centers, labels, inertia, iter
}

// Predict returns the index of the nearest center for every row of X.
func (km *KMeans) Predict(X mat.Matrix) ([]int, error) {
	if !km.IsFitted() {
		return nil, cmlErrors.NewNotFittedError("KMeans", "Predict")
	}
	rows, cols := X.Dims()
	if cols != km.NFeatures {
		return nil, cmlErrors.NewDimensionError("KMeans.Predict", km.NFeatures, cols, 1)
	}

	labels := make([]int, rows)
	sample := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(sample, i, X)
		labels[i] = findNearestCluster(sample, km.Centers)
	}
	return labels, nil
}

// FitPredict fits the model and returns the training labels.
func (km *KMeans) FitPredict(X mat.Matrix) ([]int, error) {
	if err := km.Fit(X); err != nil {
		return nil, err
	}
	return append([]int(nil), km.Labels...), nil
}

// Transform converts data to distances to cluster centers
func (km *KMeans) Transform(X mat.Matrix) (*mat.Dense, error) {
	if !km.IsFitted() {
		return nil, cmlErrors.NewNotFittedError("KMeans", "Transform")
	}
	rows, cols := X.Dims()
	if cols != km.NFeatures {
		return nil, cmlErrors.NewDimensionError("KMeans.Transform", km.NFeatures, cols, 1)
	}

	distances := mat.NewDense(rows, km.NClusters, nil)
	sample := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(sample, i, X)
		for c, center := range km.Centers {
			distances.Set(i, c, math.Sqrt(squaredDistance(sample, center)))
		}
	}
	return distances, nil
}

// ClusterCenters returns a copy of the learned cluster centers
func (km *KMeans) ClusterCenters() [][]float64 {
	centers := make([][]float64, len(km.Centers))
	for i := range km.Centers {
		centers[i] = append([]float64(nil), km.Centers[i]...)
	}
	return centers
}

// initKMeansPlusPlus picks the first center uniformly, then each next center
// with probability proportional to its squared distance to the nearest
// center chosen so far.
func initKMeansPlusPlus(data [][]float64, k int, rng *rand.Rand) [][]float64 {
	rows := len(data)
	centers := make([][]float64, 0, k)
	centers = append(centers, append([]float64(nil), data[rng.IntN(rows)]...))

	distances := make([]float64, rows)
	for i, sample := range data {
		distances[i] = squaredDistance(sample, centers[0])
	}

	for len(centers) < k {
		total := 0.0
		for _, d := range distances {
			total += d
		}

		selected := rng.IntN(rows)
		if total > 0 {
			target := rng.Float64() * total
			cumSum := 0.0
			for i, d := range distances {
				cumSum += d
				if cumSum >= target && d > 0 {
					selected = i
					break
				}
			}
		}

		center := append([]float64(nil), data[selected]...)
		centers = append(centers, center)
		for i, sample := range data {
			if d := squaredDistance(sample, center); d < distances[i] {
				distances[i] = d
			}
		}
	}
	return centers
}

// findNearestCluster returns the index of the closest center, the lowest
// index on ties.
func findNearestCluster(sample []float64, centers [][]float64) int {
	minDist := math.Inf(1)
	nearest := 0
	for c, center := range centers {
		if d := squaredDistance(sample, center); d < minDist {
			minDist = d
			nearest = c
		}
	}
	return nearest
}

// farthestSample returns the untaken sample farthest from its assigned
// center among clusters that can spare one, or -1 when there is none.
func farthestSample(data [][]float64, labels []int, centers [][]float64, counts []int, taken []bool) int {
	far, farDist := -1, -1.0
	for i, sample := range data {
		if taken[i] || counts[labels[i]] < 2 {
			continue
		}
		if d := squaredDistance(sample, centers[labels[i]]); d > farDist {
			far, farDist = i, d
		}
	}
	return far
}

func meanVariance(data [][]float64, cols int) float64 {
	col := make([]float64, len(data))
	total := 0.0
	for j := 0; j < cols; j++ {
		for i := range data {
			col[i] = data[i][j]
		}
		_, v := stat.PopMeanVariance(col, nil)
		total += v
	}
	return total / float64(cols)
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}
