package projection

// Weight conversion factors to kilograms.
var weightToKg = map[string]float64{
	"kg":  1,
	"g":   0.001,
	"lbs": 0.453592,
	"oz":  0.0283495,
}

// ConvertWeight converts a weight between supported units. Unknown units
// pass the value through unchanged.
func ConvertWeight(value float64, from, to string) float64 {
	if from == to {
		return value
	}

	fromFactor, ok := weightToKg[from]
	if !ok {
		return value
	}
	toFactor, ok := weightToKg[to]
	if !ok {
		return value
	}

	return value * fromFactor / toFactor
}
