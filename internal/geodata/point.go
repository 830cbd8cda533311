package geodata

import (
	"fmt"
	"math"
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate rejects coordinates outside the WGS84 range.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return fmt.Errorf("coordinates must be numbers")
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %v outside [-90, 90]", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("longitude %v outside [-180, 180]", p.Lon)
	}
	return nil
}

// Key renders the point rounded to 4 decimal places (~11 m), used for cache keys.
func (p Point) Key() string {
	return fmt.Sprintf("%.4f,%.4f", p.Lat, p.Lon)
}

func (p Point) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.Lat, p.Lon)
}

// FromLonLat builds a Point from the [lon, lat] pair used on the wire.
func FromLonLat(coords []float64) (Point, error) {
	if len(coords) != 2 {
		return Point{}, fmt.Errorf("coordinates must be [lon, lat], got %d values", len(coords))
	}
	p := Point{Lat: coords[1], Lon: coords[0]}
	return p, p.Validate()
}
