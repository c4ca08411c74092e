package admission

import (
	"fmt"

	"github.com/mamadbah2/hatchery/internal/domain/models"
)

// Dimension names an environment axis.
type Dimension string

const (
	DimensionTemperature Dimension = "temperature"
	DimensionHumidity    Dimension = "humidity"
)

// EnvironmentWarning is advisory and never blocks creation.
type EnvironmentWarning struct {
	Dimension Dimension `json:"dimension"`
	Actual    float64   `json:"actual"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	Message   string    `json:"message"`
}

// CheckEnvironment compares the incubator's current snapshot against the breed range and
// returns one warning per out-of-range dimension.
func CheckEnvironment(incubator models.Incubator, breed models.Breed) []EnvironmentWarning {
	var warnings []EnvironmentWarning
	if incubator.CurrentTemp < breed.MinTemp || incubator.CurrentTemp > breed.MaxTemp {
		warnings = append(warnings, EnvironmentWarning{
			Dimension: DimensionTemperature,
			Actual:    incubator.CurrentTemp,
			Min:       breed.MinTemp,
			Max:       breed.MaxTemp,
			Message: fmt.Sprintf("temperature %.1f°C is outside the %.1f-%.1f°C range for %s",
				incubator.CurrentTemp, breed.MinTemp, breed.MaxTemp, breed.Name),
		})
	}
	if incubator.CurrentHumidity < breed.MinHumidity || incubator.CurrentHumidity > breed.MaxHumidity {
		warnings = append(warnings, EnvironmentWarning{
			Dimension: DimensionHumidity,
			Actual:    incubator.CurrentHumidity,
			Min:       breed.MinHumidity,
			Max:       breed.MaxHumidity,
			Message: fmt.Sprintf("humidity %.0f%% is outside the %.0f-%.0f%% range for %s",
				incubator.CurrentHumidity, breed.MinHumidity, breed.MaxHumidity, breed.Name),
		})
	}
	return warnings
}
