package backend

// Country is one entry of the country selector.
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Coordinates of a monitoring station; either field may be unknown.
type Coordinates struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Station is a monitoring location within a country.
type Station struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Locality    string      `json:"locality"`
	Coordinates Coordinates `json:"coordinates"`
}

// Sensor measures one parameter at a station.
type Sensor struct {
	SensorID    int64  `json:"sensor_id"`
	ParameterID int64  `json:"parameter_id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Units       string `json:"units"`
}

// LatestReading is the most recent value reported by a sensor.
type LatestReading struct {
	DatetimeUTC   string   `json:"datetime_utc"`
	DatetimeLocal string   `json:"datetime_local"`
	Value         *float64 `json:"value"`
	Unit          string   `json:"unit"`
	SensorName    string   `json:"sensor_name"`
	SensorsID     int64    `json:"sensorsId"`
	LocationsID   int64    `json:"locationsId"`
}

// Measurement is one point of a historical series.
type Measurement struct {
	DatetimeUTC string   `json:"datetime_utc"`
	Value       *float64 `json:"value"`
	Unit        string   `json:"unit"`
	Parameter   string   `json:"parameter"`
}

// listResponse is the envelope shared by every list endpoint.
type listResponse[T any] struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
	Results []T  `json:"results"`
}

type dateResponse struct {
	Success bool   `json:"success"`
	DateUTC string `json:"date_utc"`
}
