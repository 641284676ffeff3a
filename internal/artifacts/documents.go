package artifacts

import (
	"encoding/gob"
	"slices"
	"strconv"
	"time"

	"github.com/ezoic/carbonml/core/model"
	"github.com/ezoic/carbonml/linear"
	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
	"github.com/ezoic/carbonml/sklearn/ensemble"
	"github.com/ezoic/carbonml/sklearn/tree"
)

func init() {
	gob.Register(&linear.LinearRegression{})
	gob.Register(&tree.DecisionTreeRegressor{})
	gob.Register(&ensemble.RandomForestRegressor{})
	gob.Register(&ensemble.GradientBoostingRegressor{})
}

// BestModel wraps whichever candidate scored best, since its concrete type
// differs between runs.
type BestModel struct {
	Key   string // candidate key, e.g. "random_forest"
	Model model.Regressor
}

// Tier names in ascending order of mean emission.
var Tiers = [3]string{"Low Emitter", "Medium Emitter", "High Emitter"}

// LabelMap maps a cluster id (as a decimal string, the JSON key) to its tier.
type LabelMap map[string]string

// NewLabelMap assigns Tiers to cluster ids given in ascending order of mean
// target.
func NewLabelMap(ascending []int) LabelMap {
	m := make(LabelMap, len(ascending))
	for rank, id := range ascending {
		m[strconv.Itoa(id)] = Tiers[rank]
	}
	return m
}

// Validate checks that the map has exactly the ids 0, 1 and 2 and uses every
// tier once.
func (m LabelMap) Validate() error {
	if len(m) != len(Tiers) {
		return cmlErrors.NewSchemaViolationError("LabelMap", "expected %d entries, got %d", len(Tiers), len(m))
	}
	seen := make(map[string]bool, len(Tiers))
	for id := range len(Tiers) {
		tier, ok := m[strconv.Itoa(id)]
		if !ok {
			return cmlErrors.NewSchemaViolationError("LabelMap", "cluster %d has no label", id)
		}
		if !slices.Contains(Tiers[:], tier) || seen[tier] {
			return cmlErrors.NewSchemaViolationError("LabelMap", "cluster %d has invalid or repeated label %q", id, tier)
		}
		seen[tier] = true
	}
	return nil
}

// Tier returns the label of a cluster id.
func (m LabelMap) Tier(cluster int) (string, bool) {
	t, ok := m[strconv.Itoa(cluster)]
	return t, ok
}

// Manifest describes one committed artifact set.
type Manifest struct {
	RunID       string            `json:"run_id"`
	CreatedAt   time.Time         `json:"created_at"`
	Rows        int               `json:"rows"`
	Features    int               `json:"features"`
	ServedModel string            `json:"served_model"`
	BestModel   string            `json:"best_model"`
	Checksums   map[string]string `json:"checksums"` // sha256 per artifact
}
