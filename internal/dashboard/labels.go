package dashboard

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/i474232898/air-quality-explorer/internal/backend"
	"github.com/i474232898/air-quality-explorer/internal/common"
)

// The backend sometimes pre-formats sensor names as
// "PM25 (ID Sensor: 12, Unidad: µg/m³)"; these patterns detect which parts
// are already present so they are not repeated.
var (
	sensorIDPattern  = regexp.MustCompile(`\(ID(?: Sensor)?:\s*\d+`)
	unitPattern      = regexp.MustCompile(`(?:Unidad|Unit):\s*[^)]*\)`)
	unitGroupPattern = regexp.MustCompile(`\s*\((?:Unidad|Unit):\s*[^)]*\)`)
	trailingParen    = regexp.MustCompile(`\)\s*$`)
	paramNamePattern = regexp.MustCompile(`^(.+?)\s*\(`)
	unitValuePattern = regexp.MustCompile(`(?:Unidad|Unit):\s*([^)]+)\)`)
)

// SensorLabel builds the selector text for a sensor.
func SensorLabel(s backend.Sensor) string {
	name := common.FirstNonEmpty(s.Name, strings.ToUpper(s.Code), fmt.Sprintf("Sensor %d", s.SensorID))
	unit := common.FirstNonEmpty(s.Units, "N/A")

	hasID := sensorIDPattern.MatchString(name)
	hasUnit := unitPattern.MatchString(name)

	switch {
	case hasID && hasUnit:
		return name
	case hasID:
		return fmt.Sprintf("%s, Unit: %s)", trailingParen.ReplaceAllString(name, ""), unit)
	case hasUnit:
		clean := unitGroupPattern.ReplaceAllString(name, "")
		return fmt.Sprintf("%s (ID: %d, Unit: %s)", clean, s.SensorID, unit)
	default:
		return fmt.Sprintf("%s (ID: %d, Unit: %s)", name, s.SensorID, unit)
	}
}

// ParameterName extracts the parameter part of a sensor label, e.g. "PM25".
func ParameterName(label string) string {
	if m := paramNamePattern.FindStringSubmatch(label); m != nil {
		return strings.TrimSpace(m[1])
	}
	return "Parameter"
}

// LabelUnit extracts the unit from a sensor label.
func LabelUnit(label string) string {
	if m := unitValuePattern.FindStringSubmatch(label); m != nil {
		return strings.TrimSpace(m[1])
	}
	return "N/A"
}

// StationLabel is the station name followed by its locality, if known.
func StationLabel(s backend.Station) string {
	if s.Locality == "" {
		return s.Name
	}
	return fmt.Sprintf("%s (%s)", s.Name, s.Locality)
}
