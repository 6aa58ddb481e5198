// Package units provides shared constants and conversion for speed units
package units

import "strings"

// Unit constants
const (
	MPS = "mps"
	MPH = "mph"
	KPH = "kph"
)

// ValidUnits contains all valid display unit values
var ValidUnits = []string{MPS, MPH, KPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "mps, mph, kph"
}

// ConvertSpeed converts a speed from meters per second to the target units.
// Computation happens in m/s (meters per second) throughout.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPH:
		return speedMPS * 2.2369362920544
	case KPH:
		return speedMPS * 3.6
	case MPS:
		return speedMPS
	default:
		return speedMPS
	}
}

// ToMPS converts a channel sample to meters per second given the unit
// string the logger recorded for the channel. Loggers write speed units
// several ways ("km/h", "kph", "KPH"); unknown units pass through
// unchanged. The second return reports whether the unit was recognized.
func ToMPS(value float64, channelUnit string) (float64, bool) {
	switch strings.ToLower(strings.TrimSpace(channelUnit)) {
	case "m/s", "mps":
		return value, true
	case "km/h", "kph", "kmh", "kmph":
		return value / 3.6, true
	case "mph", "mi/h":
		return value / 2.2369362920544, true
	}
	return value, false
}
