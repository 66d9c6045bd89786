// Package backend is a typed client for the air-quality query endpoints the
// dashboard reads from.
package backend

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/i474232898/air-quality-explorer/internal/common"
	"github.com/i474232898/air-quality-explorer/internal/daterange"
)

// Getter fetches an endpoint and decodes its successful payload into out.
// *fetch.Fetcher satisfies it.
type Getter interface {
	Get(ctx context.Context, endpoint string, out any) error
}

// Client wraps the backend endpoints. Country, station and sensor lists are
// cached because they change rarely and every dashboard session needs them.
type Client struct {
	getter     Getter
	lists      *cache.Cache
	localities LocalityResolver
}

// NewClient creates a Client. A cacheTTL of zero disables list caching.
// localities may be nil.
func NewClient(getter Getter, cacheTTL time.Duration, localities LocalityResolver) *Client {
	var lists *cache.Cache
	if cacheTTL > 0 {
		lists = cache.New(cacheTTL, 2*cacheTTL)
	}
	return &Client{
		getter:     getter,
		lists:      lists,
		localities: localities,
	}
}

// Countries lists the countries that have monitoring stations.
func (c *Client) Countries(ctx context.Context) ([]Country, error) {
	if v, ok := c.cached("countries"); ok {
		return v.([]Country), nil
	}

	var resp listResponse[Country]
	if err := c.getter.Get(ctx, "/api/countries", &resp); err != nil {
		return nil, err
	}
	c.store("countries", resp.Results)
	return resp.Results, nil
}

// RefreshCountries drops the cached country list and reloads it.
func (c *Client) RefreshCountries(ctx context.Context) error {
	if c.lists != nil {
		c.lists.Delete("countries")
	}
	_, err := c.Countries(ctx)
	return err
}

// Stations lists the monitoring stations of a country.
func (c *Client) Stations(ctx context.Context, countryCode string) ([]Station, error) {
	key := "stations:" + countryCode
	if v, ok := c.cached(key); ok {
		return v.([]Station), nil
	}

	var resp listResponse[Station]
	if err := c.getter.Get(ctx, "/api/stations/"+url.PathEscape(countryCode), &resp); err != nil {
		return nil, err
	}
	stations := resp.Results
	if c.localities != nil {
		c.fillLocalities(stations)
	}
	c.store(key, stations)
	return stations, nil
}

// Sensors lists the sensors installed at a station.
func (c *Client) Sensors(ctx context.Context, stationID int64) ([]Sensor, error) {
	key := "sensors:" + strconv.FormatInt(stationID, 10)
	if v, ok := c.cached(key); ok {
		return v.([]Sensor), nil
	}

	var resp listResponse[Sensor]
	if err := c.getter.Get(ctx, fmt.Sprintf("/api/parameters/%d", stationID), &resp); err != nil {
		return nil, err
	}
	c.store(key, resp.Results)
	return resp.Results, nil
}

// LatestDate returns the most recent timestamp the backend has data for.
func (c *Client) LatestDate(ctx context.Context, locationID, parameterID int64) (time.Time, error) {
	var resp dateResponse
	endpoint := fmt.Sprintf("/api/last_measurement_date/%d/%d", locationID, parameterID)
	if err := c.getter.Get(ctx, endpoint, &resp); err != nil {
		return time.Time{}, err
	}
	ts, err := common.ParseTimestamp(resp.DateUTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("last measurement date: %w", err)
	}
	return ts, nil
}

// SensorLatest returns the latest reading of a sensor; the slice is empty
// when the station reports nothing recent for it.
func (c *Client) SensorLatest(ctx context.Context, locationID, sensorID int64) ([]LatestReading, error) {
	var resp listResponse[LatestReading]
	endpoint := fmt.Sprintf("/api/sensor_latest/%d/%d", locationID, sensorID)
	if err := c.getter.Get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// MeasurementQuery selects a historical series.
type MeasurementQuery struct {
	LocationID  int64
	ParameterID int64
	Granularity daterange.Granularity
	From        string
	To          string
	Limit       int
}

// Endpoint renders the query as a backend path.
func (q MeasurementQuery) Endpoint() string {
	values := url.Values{}
	values.Set("agg", string(q.Granularity))
	if q.From != "" {
		values.Set("date_from", q.From)
	}
	if q.To != "" {
		values.Set("date_to", q.To)
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	return fmt.Sprintf("/api/measurements/%d/%d?%s", q.LocationID, q.ParameterID, values.Encode())
}

// Measurements returns the historical series selected by q.
func (c *Client) Measurements(ctx context.Context, q MeasurementQuery) ([]Measurement, error) {
	var resp listResponse[Measurement]
	if err := c.getter.Get(ctx, q.Endpoint(), &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *Client) cached(key string) (any, bool) {
	if c.lists == nil {
		return nil, false
	}
	return c.lists.Get(key)
}

func (c *Client) store(key string, v any) {
	if c.lists != nil {
		c.lists.Set(key, v, cache.DefaultExpiration)
	}
}

func (c *Client) fillLocalities(stations []Station) {
	for i := range stations {
		s := &stations[i]
		if s.Locality != "" || s.Coordinates.Latitude == nil || s.Coordinates.Longitude == nil {
			continue
		}
		locality, err := c.localities.Locality(*s.Coordinates.Latitude, *s.Coordinates.Longitude)
		if err != nil {
			log.Printf("INFO: locality lookup failed for station %d: %v", s.ID, err)
			continue
		}
		s.Locality = locality
	}
}
