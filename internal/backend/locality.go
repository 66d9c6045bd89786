package backend

import (
	"errors"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/air-quality-explorer/internal/common"
)

// LocalityResolver names the place at a coordinate. It is used to label
// stations the backend returns without a locality.
type LocalityResolver interface {
	Locality(lat, lon float64) (string, error)
}

// GoogleLocalities resolves localities with Google reverse geocoding.
type GoogleLocalities struct{}

// NewGoogleLocalities configures the geocoder with apiKey. It returns nil
// when no key is given so callers can pass the result straight to
// NewClient.
func NewGoogleLocalities(apiKey string) LocalityResolver {
	if apiKey == "" {
		return nil
	}
	geocoder.ApiKey = apiKey
	return GoogleLocalities{}
}

func (GoogleLocalities) Locality(lat, lon float64) (string, error) {
	addresses, err := geocoder.GeocodingReverse(geocoder.Location{
		Latitude:  lat,
		Longitude: lon,
	})
	if err != nil {
		return "", err
	}
	for _, a := range addresses {
		if name := common.FirstNonEmpty(a.City, a.County, a.State); name != "" {
			return name, nil
		}
	}
	return "", errors.New("no locality found")
}
