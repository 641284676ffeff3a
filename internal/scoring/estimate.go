package scoring

import (
	"math"
	"sort"

	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
)

// Factors of the rough formula estimate, in kg CO2 per year.
const (
	DistanceFactor   = 0.21 // per km driven, applied to 12 months
	GroceryFactor    = 3.0
	ClothesFactor    = 25.0
	WasteBagFactor   = 15.0 // per bag, applied to 52 weeks
	DatasetAverageKg = 2260.0
	TreeOffsetKg     = 21.0 // absorbed per tree per year

	LowEstimateBelow    = 1500.0
	MediumEstimateBelow = 3000.0
)

// Annual contribution per categorical answer.
var (
	AirTravelKg = map[string]float64{"never": 0, "rarely": 255, "frequently": 510, "very frequently": 1020}
	DietKg      = map[string]float64{"vegan": 365, "vegetarian": 730, "pescatarian": 1095, "omnivore": 1825}
	HeatingKg   = map[string]float64{"electricity": 800, "natural gas": 600, "wood": 500, "coal": 1200}
)

// Estimate is the formula-based rough estimate of annual emissions.
type Estimate struct {
	TotalKg          float64 `json:"total_kg"`
	Tier             string  `json:"tier"` // Low, Medium or High
	PercentOfAverage float64 `json:"percent_of_average"`
	TreesToOffset    int     `json:"trees_to_offset"`
}

// EstimateTier buckets a total into Low, Medium or High.
func EstimateTier(total float64) string {
	switch {
	case total < LowEstimateBelow:
		return "Low"
	case total < MediumEstimateBelow:
		return "Medium"
	default:
		return "High"
	}
}

// EstimateEmissions computes the rough estimate from the travel, diet,
// heating, shopping and waste answers.
//
// Errors:
//   - FeatureMismatchError: a required answer is absent
//   - UnknownCategoryError: a categorical answer has no factor
//   - SchemaViolationError: a numeric answer does not parse
func EstimateEmissions(a Answers) (Estimate, error) {
	r := answerReader{answers: a}
	distance := r.number(KeyDistance)
	air := r.factor(KeyAir, AirTravelKg)
	diet := r.factor(KeyDiet, DietKg)
	heating := r.factor(KeyHeating, HeatingKg)
	grocery := r.number(KeyGrocery)
	clothes := r.number(KeyClothes)
	bags := r.number(KeyBags)
	if err := r.result(); err != nil {
		return Estimate{}, err
	}

	total := distance*DistanceFactor*12 + air + diet + heating +
		grocery*GroceryFactor + clothes*ClothesFactor + bags*52*WasteBagFactor
	return Estimate{
		TotalKg:          total,
		Tier:             EstimateTier(total),
		PercentOfAverage: total / DatasetAverageKg * 100,
		TreesToOffset:    int(total / TreeOffsetKg),
	}, nil
}

// answerReader keeps the first bad answer and every missing key.
type answerReader struct {
	answers Answers
	missing []string
	err     error
}

func (r *answerReader) number(key string) float64 {
	v, ok, err := r.answers.number(key)
	switch {
	case err != nil:
		if r.err == nil {
			r.err = err
		}
	case !ok:
		r.missing = append(r.missing, key)
	}
	return v
}

func (r *answerReader) factor(key string, table map[string]float64) float64 {
	v, ok := r.answers.lookup(key)
	if !ok {
		r.missing = append(r.missing, key)
		return 0
	}
	kg, known := table[v]
	if !known && r.err == nil {
		r.err = cmlErrors.NewUnknownCategoryError(key, v, keys(table))
	}
	return kg
}

func (r *answerReader) result() error {
	if r.err != nil {
		return r.err
	}
	if len(r.missing) > 0 {
		return cmlErrors.NewFeatureMismatchError(r.missing)
	}
	return nil
}

func keys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Projection growth factors.
const (
	ProjectionYears       = 6
	BusinessAsUsualGrowth = 1.015
	ActionStartFactor     = 0.95
	ActionYearlyReduction = 0.08
	ActionFloorKg         = 500.0
)

// ProjectionPoint is one year of the emission outlook.
type ProjectionPoint struct {
	Year            int     `json:"year"`
	BusinessAsUsual float64 `json:"business_as_usual"`
	WithActions     float64 `json:"with_actions"`
}

// Project returns ProjectionYears yearly points starting at startYear.
// Business as usual grows 1.5% a year; with actions the estimate shrinks by
// 8 points a year from 95%, never below ActionFloorKg. Values are rounded
// half to even.
func Project(annualKg float64, startYear int) []ProjectionPoint {
	out := make([]ProjectionPoint, ProjectionYears)
	for i := range out {
		fi := float64(i)
		out[i] = ProjectionPoint{
			Year:            startYear + i,
			BusinessAsUsual: math.RoundToEven(annualKg * math.Pow(BusinessAsUsualGrowth, fi)),
			WithActions:     math.Max(math.RoundToEven(annualKg*(ActionStartFactor-ActionYearlyReduction*fi)), ActionFloorKg),
		}
	}
	return out
}
