package weather

import "fmt"

// FormatCurrent renders a sample as the current conditions sentence.
func FormatCurrent(s Sample) string {
	return fmt.Sprintf("The current temperature is %d°C and the weather is %s.",
		KelvinToCelsius(s.TemperatureK), describe(s))
}

// FormatTomorrow renders a sample as tomorrow's conditions sentence.
func FormatTomorrow(s Sample) string {
	return fmt.Sprintf("The temperature tomorrow will be %d°C and the weather will be %s.",
		KelvinToCelsius(s.TemperatureK), describe(s))
}

func describe(s Sample) string {
	if s.Description != "" {
		return s.Description
	}
	return string(s.Condition)
}
