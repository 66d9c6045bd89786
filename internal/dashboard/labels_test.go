package dashboard

import (
	"testing"

	"github.com/i474232898/air-quality-explorer/internal/backend"
)

func TestSensorLabel(t *testing.T) {
	tests := []struct {
		name   string
		sensor backend.Sensor
		want   string
	}{
		{
			name:   "already formatted",
			sensor: backend.Sensor{SensorID: 12, Name: "PM25 (ID Sensor: 12, Unidad: µg/m³)", Units: "µg/m³"},
			want:   "PM25 (ID Sensor: 12, Unidad: µg/m³)",
		},
		{
			name:   "id without unit",
			sensor: backend.Sensor{SensorID: 12, Name: "PM25 (ID Sensor: 12)", Units: "µg/m³"},
			want:   "PM25 (ID Sensor: 12, Unit: µg/m³)",
		},
		{
			name:   "unit without id",
			sensor: backend.Sensor{SensorID: 12, Name: "NO2 (Unidad: ppm)", Units: "ppm"},
			want:   "NO2 (ID: 12, Unit: ppm)",
		},
		{
			name:   "bare name",
			sensor: backend.Sensor{SensorID: 7, Name: "O3"},
			want:   "O3 (ID: 7, Unit: N/A)",
		},
		{
			name:   "code only",
			sensor: backend.Sensor{SensorID: 7, Code: "so2", Units: "µg/m³"},
			want:   "SO2 (ID: 7, Unit: µg/m³)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SensorLabel(tt.sensor); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLabelParsing(t *testing.T) {
	label := "PM25 (ID Sensor: 12, Unidad: µg/m³)"
	if got := ParameterName(label); got != "PM25" {
		t.Errorf("ParameterName = %q", got)
	}
	if got := LabelUnit(label); got != "µg/m³" {
		t.Errorf("LabelUnit = %q", got)
	}
	if got := LabelUnit("O3 (ID: 7, Unit: ppm)"); got != "ppm" {
		t.Errorf("LabelUnit = %q", got)
	}
	if ParameterName("unlabelled") != "Parameter" || LabelUnit("unlabelled") != "N/A" {
		t.Error("expected fallbacks for labels without parentheses")
	}
}

func TestStationLabel(t *testing.T) {
	if got := StationLabel(backend.Station{Name: "Retiro", Locality: "Madrid"}); got != "Retiro (Madrid)" {
		t.Errorf("got %q", got)
	}
	if got := StationLabel(backend.Station{Name: "Retiro"}); got != "Retiro" {
		t.Errorf("got %q", got)
	}
}
