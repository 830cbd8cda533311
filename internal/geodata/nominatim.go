package geodata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// LandCover is the OSM classification of the feature at a point.
type LandCover struct {
	Category    string `json:"category"`
	Type        string `json:"type"`
	DisplayName string `json:"displayName,omitempty"`
}

// LandCoverSource classifies land use or natural cover at a point.
type LandCoverSource interface {
	LandCover(ctx context.Context, p Point) (LandCover, error)
}

// Geocoder resolves a free-text address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Point, error)
}

// NominatimClient implements both reverse lookup and forward geocoding.
type NominatimClient struct {
	httpBase
}

func NewNominatimClient(baseURL, userAgent string) *NominatimClient {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	return &NominatimClient{httpBase: newHTTPBase("nominatim", baseURL, userAgent)}
}

type reverseResponse struct {
	Category    string `json:"category"`
	Type        string `json:"type"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

func (c *NominatimClient) LandCover(ctx context.Context, p Point) (LandCover, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(p.Lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(p.Lon, 'f', 6, 64))
	q.Set("zoom", "17")

	var resp reverseResponse
	if err := c.get(ctx, "/reverse", q, &resp); err != nil {
		return LandCover{}, err
	}
	if resp.Error != "" {
		return LandCover{}, c.noResult("%s", resp.Error)
	}
	if resp.Type == "" {
		return LandCover{}, c.malformed("reverse result has no type")
	}
	return LandCover{
		Category:    strings.ToLower(resp.Category),
		Type:        strings.ToLower(resp.Type),
		DisplayName: resp.DisplayName,
	}, nil
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (c *NominatimClient) Geocode(ctx context.Context, address string) (Point, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Point{}, c.noResult("empty address")
	}
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("q", address)
	q.Set("limit", "1")

	var results []searchResult
	if err := c.get(ctx, "/search", q, &results); err != nil {
		return Point{}, err
	}
	if len(results) == 0 {
		return Point{}, c.noResult("address %q not found", address)
	}
	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Point{}, c.malformed("lat %q: %v", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Point{}, c.malformed("lon %q: %v", results[0].Lon, err)
	}
	p := Point{Lat: lat, Lon: lon}
	if err := p.Validate(); err != nil {
		return Point{}, c.malformed("geocoded point: %v", err)
	}
	return p, nil
}

// StaticGeocoder resolves addresses from a fixed table. Used by the smoke
// script and tests.
type StaticGeocoder map[string]Point

func (g StaticGeocoder) Geocode(_ context.Context, address string) (Point, error) {
	p, ok := g[strings.TrimSpace(address)]
	if !ok {
		return Point{}, upstream("static", CategoryNoResult, 0, fmt.Errorf("%w: %q", ErrNoResult, address))
	}
	return p, nil
}
