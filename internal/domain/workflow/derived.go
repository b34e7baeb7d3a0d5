package workflow

import (
	"math"

	"github.com/lims/lims/internal/domain/qc"
)

// Metabolizable-energy strategies. The lab historically used three formulas;
// which one applies is a deployment decision.
const (
	MEAtwater       = "atwater"         // Protein*4 + Fat*9 + CHO*4, percent basis, 2dp
	MEAtwaterKcalKg = "atwater_kcal_kg" // same, scaled x10 to kcal/kg, 0dp
	MELegacyNFE     = "legacy_nfe"      // Protein*4 + NFE*3.5 + Fat*8.5, 0dp
)

// Proximate parameter names the calculator requires, case-sensitive.
var proximateKeys = []string{"Protein", "Fat", "Ash", "Moisture", "Fiber"}

// Derived-result target parameter names.
const (
	DefaultCHOParameter = "Carbohydrate"
	DefaultMEParameter  = "ME"
)

// Calculator derives carbohydrate and metabolizable energy from the five
// proximate values.
type Calculator struct {
	MEStrategy   string
	CHOParameter string
	MEParameter  string
}

func NewCalculator(strategy string) Calculator {
	if strategy == "" {
		strategy = MEAtwater
	}
	return Calculator{
		MEStrategy:   strategy,
		CHOParameter: DefaultCHOParameter,
		MEParameter:  DefaultMEParameter,
	}
}

// Calculate returns (carbohydrate, metabolizable energy). All five proximate
// keys must be present; otherwise both results are nil and nothing is
// injected.
func (c Calculator) Calculate(values map[string]float64) (*float64, *float64) {
	sum := 0.0
	for _, k := range proximateKeys {
		v, ok := values[k]
		if !ok {
			return nil, nil
		}
		sum += v
	}

	cho := qc.Round2(100 - sum)

	protein := values["Protein"]
	fat := values["Fat"]

	var me float64
	switch c.MEStrategy {
	case MEAtwaterKcalKg:
		me = math.Round((protein*4 + fat*9 + cho*4) * 10)
	case MELegacyNFE:
		me = math.Round(protein*4 + cho*3.5 + fat*8.5)
	default:
		me = qc.Round2(protein*4 + fat*9 + cho*4)
	}
	return &cho, &me
}
