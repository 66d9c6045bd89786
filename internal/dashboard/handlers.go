package dashboard

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/i474232898/air-quality-explorer/internal/backend"
	"github.com/i474232898/air-quality-explorer/internal/daterange"
)

// Deps are the collaborators reducers may call.
type Deps struct {
	Backend Backend
	Now     func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

// Reduce applies ev to st and returns the resulting state. On failure the
// returned state carries a user-facing Error and the cause is returned too.
func Reduce(ctx context.Context, deps Deps, st State, ev Event) (State, error) {
	st.Error = ""

	switch e := ev.(type) {
	case LoadCountries:
		return loadCountries(ctx, deps, st)
	case SelectCountry:
		return selectCountry(ctx, deps, st, e)
	case SelectStation:
		return selectStation(ctx, deps, st, e)
	case SelectSensor:
		return selectSensor(ctx, deps, st, e)
	case ChangeGranularity:
		return changeGranularity(st, e), nil
	case ChangeStartDate:
		return changeStartDate(st, e)
	case ChangeEndDate:
		return changeEndDate(st, e)
	case RequestLatest:
		return requestLatest(ctx, deps, st)
	case RequestHistory:
		return requestHistory(ctx, deps, st)
	default:
		return fail(st, "Dashboard", fmt.Errorf("%w: %T", ErrUnknownEvent, ev))
	}
}

func fail(st State, step string, err error) (State, error) {
	st.Error = UserMessage(step, err)
	return st, err
}

func loadCountries(ctx context.Context, deps Deps, st State) (State, error) {
	countries, err := deps.Backend.Countries(ctx)
	if err != nil {
		st.Countries = nil
		st.Status = "Could not load the country list."
		return fail(st, "Error loading countries", err)
	}
	st.Countries = countries
	st.Status = "Countries loaded. Select one to see its stations."
	return st, nil
}

func selectCountry(ctx context.Context, deps Deps, st State, e SelectCountry) (State, error) {
	if !hasCountry(st.Countries, e.Code) {
		return fail(st, "Error selecting country", ErrUnknownOption)
	}
	st = st.resetStation()
	st.CountryCode = e.Code

	stations, err := deps.Backend.Stations(ctx, e.Code)
	if err != nil {
		st.Status = "Could not load stations."
		return fail(st, "Error loading stations", err)
	}

	st.Stations = make([]StationOption, 0, len(stations))
	for _, s := range stations {
		st.Stations = append(st.Stations, StationOption{ID: s.ID, Label: StationLabel(s)})
	}
	st.Status = "Stations loaded. Select a station to load its sensors."
	return st, nil
}

func selectStation(ctx context.Context, deps Deps, st State, e SelectStation) (State, error) {
	if !hasStation(st.Stations, e.StationID) {
		return fail(st, "Error selecting station", ErrUnknownOption)
	}
	st = st.resetSensor()
	st.StationID = e.StationID

	sensors, err := deps.Backend.Sensors(ctx, e.StationID)
	if err != nil {
		st.Status = "Could not load sensors."
		return fail(st, "Error loading sensors", err)
	}

	st.Sensors = make([]SensorOption, 0, len(sensors))
	for _, s := range sensors {
		st.Sensors = append(st.Sensors, SensorOption{
			ParameterID: s.ParameterID,
			SensorID:    s.SensorID,
			Label:       SensorLabel(s),
		})
	}
	st.Status = "Sensors ready. Select a parameter to load its data."
	return st, nil
}

func selectSensor(ctx context.Context, deps Deps, st State, e SelectSensor) (State, error) {
	opt, ok := findSensor(st.Sensors, e.ParameterID, e.SensorID)
	if !ok {
		return fail(st, "Error selecting sensor", ErrUnknownOption)
	}
	st.Sensor = &opt
	st.Latest = nil
	st.History = nil
	st.UserEnd = nil

	latest, err := deps.Backend.LatestDate(ctx, st.StationID, opt.ParameterID)
	st.LatestFallback = err != nil
	if err != nil {
		log.Printf("INFO: last measurement date unavailable for station %d parameter %d, using current time: %v",
			st.StationID, opt.ParameterID, err)
		latest = deps.now()
	}
	st.LatestKnown = &latest

	w := daterange.Derive(latest, st.Granularity, nil)
	st.Window = &w

	return requestLatest(ctx, deps, st)
}

func changeGranularity(st State, e ChangeGranularity) State {
	st.Granularity = e.Granularity
	if st.LatestKnown != nil {
		w := daterange.Derive(*st.LatestKnown, st.Granularity, st.UserEnd)
		st.Window = &w
	}
	return st
}

func changeEndDate(st State, e ChangeEndDate) (State, error) {
	if st.LatestKnown == nil {
		return fail(st, "Error changing end date", ErrNoWindow)
	}
	end := daterange.DateOf(e.Date)
	st.UserEnd = &end
	w := daterange.Derive(*st.LatestKnown, st.Granularity, st.UserEnd)
	st.Window = &w
	return st, nil
}

func changeStartDate(st State, e ChangeStartDate) (State, error) {
	if st.Window == nil {
		return fail(st, "Error changing start date", ErrNoWindow)
	}
	start := daterange.DateOf(e.Date)
	if start.After(st.Window.End) {
		return fail(st, "Error changing start date", ErrInvalidRange)
	}
	w := daterange.Window{Start: start, End: st.Window.End}
	st.Window = &w
	return st, nil
}

func requestLatest(ctx context.Context, deps Deps, st State) (State, error) {
	if st.StationID == 0 || st.Sensor == nil {
		return fail(st, "Error fetching the latest measurement", ErrNoSelection)
	}

	readings, err := deps.Backend.SensorLatest(ctx, st.StationID, st.Sensor.SensorID)
	if err != nil {
		return fail(st, "Error fetching the latest measurement", err)
	}
	st.Latest = BuildLatest(readings)
	return st, nil
}

func requestHistory(ctx context.Context, deps Deps, st State) (State, error) {
	if st.StationID == 0 || st.Sensor == nil {
		return fail(st, "Error fetching history", ErrNoSelection)
	}
	if st.Window == nil {
		return fail(st, "Error fetching history", ErrNoWindow)
	}

	from, to := st.Window.QueryBounds()
	ms, err := deps.Backend.Measurements(ctx, backend.MeasurementQuery{
		LocationID:  st.StationID,
		ParameterID: st.Sensor.ParameterID,
		Granularity: st.Granularity,
		From:        from,
		To:          to,
		Limit:       st.Granularity.RowLimit(),
	})
	if err != nil {
		return fail(st, "Error fetching history", err)
	}

	st.History = BuildHistory(ms, st.Granularity, st.Sensor.Label)
	switch {
	case len(ms) == 0:
		st.Status = "No measurements found for the selected range."
	case st.History == nil:
		st.Status = "No valid measurements found for the selected range."
	default:
		st.Status = fmt.Sprintf("%d measurements loaded.", st.History.Total)
	}
	return st, nil
}

func hasCountry(countries []backend.Country, code string) bool {
	for _, c := range countries {
		if c.Code == code {
			return true
		}
	}
	return false
}

func hasStation(opts []StationOption, id int64) bool {
	for _, o := range opts {
		if o.ID == id {
			return true
		}
	}
	return false
}

func findSensor(opts []SensorOption, parameterID, sensorID int64) (SensorOption, bool) {
	for _, o := range opts {
		if o.ParameterID == parameterID && o.SensorID == sensorID {
			return o, true
		}
	}
	return SensorOption{}, false
}
