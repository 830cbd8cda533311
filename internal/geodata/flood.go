package geodata

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// DefaultNFHLURL is FEMA's National Flood Hazard Layer, flood hazard zones layer.
const DefaultNFHLURL = "https://hazards.fema.gov/arcgis/rest/services/public/NFHL/MapServer/28"

// FloodZone is the regulatory flood hazard designation at a point.
type FloodZone struct {
	Zone    string `json:"zone"`
	Subtype string `json:"subtype,omitempty"`
}

// Shaded reports a zone X area inside the 0.2% annual chance floodplain.
func (z FloodZone) Shaded() bool {
	return z.Zone == "X" && strings.Contains(z.Subtype, "0.2 PCT")
}

// FloodZoneSource returns the flood zone designation at a point.
type FloodZoneSource interface {
	FloodZone(ctx context.Context, p Point) (FloodZone, error)
}

// NFHLClient queries an ArcGIS MapServer layer exposing FLD_ZONE.
type NFHLClient struct {
	httpBase
}

func NewNFHLClient(baseURL, userAgent string) *NFHLClient {
	if baseURL == "" {
		baseURL = DefaultNFHLURL
	}
	return &NFHLClient{httpBase: newHTTPBase("nfhl", baseURL, userAgent)}
}

type arcgisQueryResponse struct {
	Features []struct {
		Attributes map[string]any `json:"attributes"`
	} `json:"features"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *NFHLClient) FloodZone(ctx context.Context, p Point) (FloodZone, error) {
	q := url.Values{}
	q.Set("geometry", fmt.Sprintf("%f,%f", p.Lon, p.Lat))
	q.Set("geometryType", "esriGeometryPoint")
	q.Set("inSR", "4326")
	q.Set("spatialRel", "esriSpatialRelIntersects")
	q.Set("outFields", "FLD_ZONE,ZONE_SUBTY")
	q.Set("returnGeometry", "false")
	q.Set("f", "json")

	var resp arcgisQueryResponse
	if err := c.get(ctx, "/query", q, &resp); err != nil {
		return FloodZone{}, err
	}
	// ArcGIS reports query errors with a 200 and an error object.
	if resp.Error != nil {
		return FloodZone{}, upstream(c.name, CategoryBadStatus, resp.Error.Code, fmt.Errorf("%s", resp.Error.Message))
	}
	if len(resp.Features) == 0 {
		return FloodZone{}, c.noResult("no flood hazard polygon at %s", p)
	}
	attrs := resp.Features[0].Attributes
	zone, ok := attrs["FLD_ZONE"].(string)
	if !ok {
		return FloodZone{}, c.malformed("FLD_ZONE missing or not a string")
	}
	zone = strings.ToUpper(strings.TrimSpace(zone))
	if zone == "" {
		return FloodZone{}, c.noResult("empty flood zone at %s", p)
	}
	subtype, _ := attrs["ZONE_SUBTY"].(string)
	return FloodZone{Zone: zone, Subtype: strings.ToUpper(strings.TrimSpace(subtype))}, nil
}
