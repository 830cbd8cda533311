package geodata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const DefaultOverpassURL = "https://overpass-api.de"

// FeatureQuery selects which OSM features to count around a point.
type FeatureQuery string

const (
	// QueryEmergencyTransit counts hospitals, fire and police stations and
	// public transport stops.
	QueryEmergencyTransit FeatureQuery = "emergency_transit"
	// QueryRoads counts highway ways.
	QueryRoads FeatureQuery = "roads"
)

// FeatureCounter counts OSM features within radiusM metres of a point.
type FeatureCounter interface {
	CountFeatures(ctx context.Context, p Point, radiusM float64, query FeatureQuery) (int, error)
}

// OverpassClient runs count queries against an Overpass API instance.
type OverpassClient struct {
	httpBase
}

func NewOverpassClient(baseURL, userAgent string) *OverpassClient {
	if baseURL == "" {
		baseURL = DefaultOverpassURL
	}
	return &OverpassClient{httpBase: newHTTPBase("overpass", baseURL, userAgent)}
}

type overpassResponse struct {
	Elements []struct {
		Type string            `json:"type"`
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

// BuildOverpassQuery renders the Overpass QL for a count query.
func BuildOverpassQuery(p Point, radiusM float64, query FeatureQuery) (string, error) {
	around := fmt.Sprintf("(around:%.0f,%f,%f)", radiusM, p.Lat, p.Lon)
	var b strings.Builder
	b.WriteString("[out:json][timeout:10];(")
	switch query {
	case QueryEmergencyTransit:
		for _, sel := range []string{
			`node["amenity"~"^(hospital|fire_station|police)$"]`,
			`way["amenity"~"^(hospital|fire_station|police)$"]`,
			`node["public_transport"="station"]`,
			`node["railway"="station"]`,
			`node["highway"="bus_stop"]`,
		} {
			b.WriteString(sel + around + ";")
		}
	case QueryRoads:
		b.WriteString(`way["highway"~"^(motorway|trunk|primary|secondary|tertiary|unclassified|residential|living_street)$"]` + around + ";")
	default:
		return "", fmt.Errorf("unknown feature query %q", query)
	}
	b.WriteString(");out count;")
	return b.String(), nil
}

func (c *OverpassClient) CountFeatures(ctx context.Context, p Point, radiusM float64, query FeatureQuery) (int, error) {
	ql, err := BuildOverpassQuery(p, radiusM, query)
	if err != nil {
		return 0, err
	}
	form := url.Values{}
	form.Set("data", ql)

	var resp overpassResponse
	if err := c.postForm(ctx, "/api/interpreter", form, &resp); err != nil {
		return 0, err
	}
	for _, el := range resp.Elements {
		if el.Type != "count" {
			continue
		}
		total, ok := el.Tags["total"]
		if !ok {
			return 0, c.malformed("count element has no total")
		}
		n, err := strconv.Atoi(total)
		if err != nil {
			return 0, c.malformed("count total %q: %v", total, err)
		}
		return n, nil
	}
	return 0, c.malformed("response has no count element")
}
