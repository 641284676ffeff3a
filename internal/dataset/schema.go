// Package dataset turns the raw lifestyle survey into the all-numeric table
// the models are trained on, and owns the codebook that maps categorical
// answers to integer codes for both cleaning and inference.
package dataset

import "strings"

// Raw survey columns that the cleaning steps refer to by name.
const (
	ColumnVehicleType      = "Vehicle Type"
	ColumnTransport        = "Transport"
	ColumnVehicleDistance  = "Vehicle Monthly Distance Km"
	ColumnEnergyEfficiency = "Energy efficiency"
	ColumnHeatingSource    = "Heating Energy Source"
	ColumnRecycling        = "Recycling"
	ColumnCookingWith      = "Cooking_With"
	ColumnTarget           = "CarbonEmission"
)

// RawColumns is the header of the raw survey file, in order.
var RawColumns = []string{
	"Body Type",
	"Sex",
	"Diet",
	"How Often Shower",
	ColumnHeatingSource,
	ColumnTransport,
	ColumnVehicleType,
	"Social Activity",
	"Monthly Grocery Bill",
	"Frequency of Traveling by Air",
	ColumnVehicleDistance,
	"Waste Bag Size",
	"Waste Bag Weekly Count",
	"How Long TV PC Daily Hour",
	"How Many New Clothes Monthly",
	"How Long Internet Daily Hour",
	ColumnEnergyEfficiency,
	ColumnRecycling,
	ColumnCookingWith,
	ColumnTarget,
}

// NoVehicle replaces a missing Vehicle Type: respondents who walk, cycle or
// use public transport have no vehicle.
const NoVehicle = "none"

// DroppedColumns hold list-valued free text and are removed before encoding.
var DroppedColumns = []string{ColumnRecycling, ColumnCookingWith}

// OutlierIQRMultiplier is k in [Q1 - k*IQR, Q3 + k*IQR]. It is deliberately
// wider than the conventional 1.5 so that genuine high and low emitters stay
// in the training data.
const OutlierIQRMultiplier = 3.0

// TargetName is the normalized name of the target column.
var TargetName = NormalizeName(ColumnTarget)

// NullValues are the cell spellings read as missing.
var NullValues = []string{"", "NA", "N/A", "NaN", "nan", "NULL", "null", "<NA>"}

// Interaction is an engineered feature equal to the product of two columns,
// taken after label encoding. Operands are normalized column names.
type Interaction struct {
	Name  string
	Left  string
	Right string
}

// Interactions are appended to the cleaned table in this order.
var Interactions = []Interaction{
	{
		Name:  "transport_distance_interaction",
		Left:  NormalizeName(ColumnTransport),
		Right: NormalizeName(ColumnVehicleDistance),
	},
	{
		Name:  "energy_efficiency_heating",
		Left:  NormalizeName(ColumnEnergyEfficiency),
		Right: NormalizeName(ColumnHeatingSource),
	},
}

// InteractionByName returns the interaction that produces the named feature.
func InteractionByName(name string) (Interaction, bool) {
	for _, it := range Interactions {
		if it.Name == name {
			return it, true
		}
	}
	return Interaction{}, false
}

var nameReplacer = strings.NewReplacer(" ", "_", "/", "_")

// NormalizeName lowercases a column name and replaces spaces and slashes with
// underscores: "Vehicle Monthly Distance Km" becomes
// "vehicle_monthly_distance_km".
func NormalizeName(name string) string {
	return nameReplacer.Replace(strings.ToLower(name))
}
