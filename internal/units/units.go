// Package units provides model length units and the conversions the
// irradiance engine needs to report absolute energy.
package units

import "fmt"

// Length unit constants
const (
	Meters      = "m"
	Millimeters = "mm"
	Centimeters = "cm"
	Feet        = "ft"
	Inches      = "in"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Meters, Millimeters, Centimeters, Feet, Inches}

// DefaultOffsetMeters is the distance sample points are moved off their
// surface when no offset is configured.
const DefaultOffsetMeters = 0.1

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// Validate returns an error naming the valid units when unit is unknown.
func Validate(unit string) error {
	if IsValid(unit) {
		return nil
	}
	return fmt.Errorf("unknown length unit %q (valid: %v)", unit, ValidUnits)
}

// ToMeters returns the length of one model unit in meters. Unknown units are
// treated as meters.
func ToMeters(unit string) float64 {
	switch unit {
	case Millimeters:
		return 0.001
	case Centimeters:
		return 0.01
	case Feet:
		return 0.3048
	case Inches:
		return 0.0254
	default:
		return 1
	}
}

// AreaFactor converts square model units to square meters.
func AreaFactor(unit string) float64 {
	f := ToMeters(unit)
	return f * f
}

// DefaultOffset returns DefaultOffsetMeters expressed in model units.
func DefaultOffset(unit string) float64 {
	return DefaultOffsetMeters / ToMeters(unit)
}
