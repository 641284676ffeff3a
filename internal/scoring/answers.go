package scoring

import (
	"slices"
	"strconv"
	"strings"

	"github.com/ezoic/carbonml/internal/dataset"
	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
)

// Answers are raw survey answers keyed by normalized column name, e.g.
// "vehicle_monthly_distance_km" -> "500".
type Answers map[string]string

// Normalized answer keys used outside the codebook.
var (
	KeyTransport   = dataset.NormalizeName(dataset.ColumnTransport)
	KeyVehicleType = dataset.NormalizeName(dataset.ColumnVehicleType)
	KeyDistance    = dataset.NormalizeName(dataset.ColumnVehicleDistance)
	KeyHeating     = dataset.NormalizeName(dataset.ColumnHeatingSource)
	KeyAir         = "frequency_of_traveling_by_air"
	KeyDiet        = "diet"
	KeyGrocery     = "monthly_grocery_bill"
	KeyClothes     = "how_many_new_clothes_monthly"
	KeyBags        = "waste_bag_weekly_count"
)

// PrivateTransport is the only transport mode that keeps a vehicle type.
const PrivateTransport = "private"

// DefaultAnswers returns the calculator's initial answers.
func DefaultAnswers() Answers {
	return Answers{
		"body_type":                    "normal",
		"sex":                          "male",
		KeyDiet:                        "omnivore",
		"how_often_shower":             "daily",
		KeyHeating:                     "electricity",
		KeyTransport:                   PrivateTransport,
		KeyVehicleType:                 "petrol",
		"social_activity":              "sometimes",
		KeyGrocery:                     "150",
		KeyAir:                         "rarely",
		KeyDistance:                    "500",
		"waste_bag_size":               "medium",
		KeyBags:                        "2",
		"how_long_tv_pc_daily_hour":    "5",
		KeyClothes:                     "3",
		"how_long_internet_daily_hour": "8",
		"energy_efficiency":            "Sometimes",
	}
}

// WithDefaults returns a copy of a with every unanswered question taken from
// DefaultAnswers. A transport other than private without a vehicle type gets
// the no-vehicle sentinel instead of the default vehicle.
func (a Answers) WithDefaults() Answers {
	out := DefaultAnswers()
	if t, ok := a[KeyTransport]; ok && t != PrivateTransport {
		out[KeyVehicleType] = dataset.NoVehicle
	}
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Clone returns a copy of a.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// lookup returns the trimmed answer for key; null markers count as absent.
func (a Answers) lookup(key string) (string, bool) {
	v, ok := a[key]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if slices.Contains(dataset.NullValues, v) {
		return "", false
	}
	return v, true
}

// number parses the answer for key.
func (a Answers) number(key string) (float64, bool, error) {
	v, ok := a.lookup(key)
	if !ok {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, true, cmlErrors.NewSchemaViolationError("scoring", "answer %q for %s is not a number", v, key)
	}
	return f, true, nil
}
