package geodata

import (
	"context"
	"fmt"
	"net/url"
)

const DefaultOpenElevationURL = "https://api.open-elevation.com"

// ElevationSource returns ground elevation in metres above sea level.
type ElevationSource interface {
	Elevation(ctx context.Context, p Point) (float64, error)
}

// OpenElevationClient talks to an Open-Elevation compatible lookup API.
type OpenElevationClient struct {
	httpBase
}

func NewOpenElevationClient(baseURL, userAgent string) *OpenElevationClient {
	if baseURL == "" {
		baseURL = DefaultOpenElevationURL
	}
	return &OpenElevationClient{httpBase: newHTTPBase("open-elevation", baseURL, userAgent)}
}

type elevationResponse struct {
	Results []struct {
		Latitude  float64  `json:"latitude"`
		Longitude float64  `json:"longitude"`
		Elevation *float64 `json:"elevation"`
	} `json:"results"`
}

func (c *OpenElevationClient) Elevation(ctx context.Context, p Point) (float64, error) {
	q := url.Values{}
	q.Set("locations", fmt.Sprintf("%f,%f", p.Lat, p.Lon))

	var resp elevationResponse
	if err := c.get(ctx, "/api/v1/lookup", q, &resp); err != nil {
		return 0, err
	}
	if len(resp.Results) == 0 {
		return 0, c.noResult("no elevation sample at %s", p)
	}
	if resp.Results[0].Elevation == nil {
		return 0, c.malformed("elevation missing from result")
	}
	return *resp.Results[0].Elevation, nil
}
