package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrNotFound is returned when the geocoder has no match for a location name.
var ErrNotFound = errors.New("location not found")

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocoder resolves a location name to a center point using the OSM
// Nominatim API.
type Geocoder struct {
	http    *http.Client
	baseURL string
}

func NewGeocoder() *Geocoder {
	return &Geocoder{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: "https://nominatim.openstreetmap.org/search",
	}
}

// NewGeocoderWithBase is for tests pointing at a local server.
func NewGeocoderWithBase(baseURL string) *Geocoder {
	return &Geocoder{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
	}
}

// Resolve returns the center coordinates for a location name. A missing
// location is ErrNotFound; transport and decode failures are wrapped errors.
func (g *Geocoder) Resolve(ctx context.Context, name string) (lat, lon float64, err error) {
	u := g.baseURL + "?" + url.Values{
		"q":      {name},
		"format": {"json"},
		"limit":  {"1"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "gridminer/0.1 (geographic harvest orchestrator)")

	resp, err := g.http.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoding returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return 0, 0, fmt.Errorf("decoding geocoding response: %w", err)
	}

	if len(results) == 0 {
		return 0, 0, fmt.Errorf("resolving %q: %w", name, ErrNotFound)
	}

	lat, err = strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude from geocoder: %w", err)
	}
	lon, err = strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude from geocoder: %w", err)
	}

	return lat, lon, nil
}
