package providers

import (
	"context"
	"fmt"
	"math"

	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
	"github.com/MikeSquared-Agency/Georisk/internal/geodata"
)

const (
	roadDensityNeutral = 40

	DefaultBufferRadiusKm = 1.0
	MaxBufferRadiusKm     = 10.0
)

// EffectiveRadiusKm applies the default and the upper bound to a requested
// buffer radius.
func EffectiveRadiusKm(r float64) float64 {
	if math.IsNaN(r) || r <= 0 {
		return DefaultBufferRadiusKm
	}
	return math.Min(r, MaxBufferRadiusKm)
}

// RoadDensityScore maps road ways per square kilometre to a raw score.
func RoadDensityScore(count int, radiusKm float64) (float64, float64) {
	radiusKm = EffectiveRadiusKm(radiusKm)
	density := float64(count) / (math.Pi * radiusKm * radiusKm)
	switch {
	case density < 5:
		return 15, density
	case density < 20:
		return 35, density
	case density < 50:
		return 55, density
	case density < 100:
		return 70, density
	default:
		return 85, density
	}
}

func NewRoadDensityProvider(src geodata.FeatureCounter, opts Options) *Guarded {
	primary := func(ctx context.Context, p geodata.Point, fc FetchContext) (Observation, error) {
		radius := EffectiveRadiusKm(fc.BufferRadiusKm)
		n, err := src.CountFeatures(ctx, p, radius*1000, geodata.QueryRoads)
		if err != nil {
			return Observation{}, err
		}
		score, density := RoadDensityScore(n, radius)
		return Observation{
			RawScore:    score,
			Explanation: fmt.Sprintf("%.1f road segments per km² within %g km", density, radius),
			SourceName:  "OpenStreetMap Overpass",
			Metadata:    map[string]any{"roadCount": n, "radiusKm": radius, "densityPerKm2": math.Round(density*100) / 100},
		}, nil
	}
	fallback := func(context.Context, geodata.Point, FetchContext, error) Observation {
		return neutral(catalog.FactorRoadDensity, roadDensityNeutral, "Road network data")
	}
	r := newGuarded(catalog.FactorRoadDensity, primary, fallback, opts)
	r.cacheKey = func(p geodata.Point, fc FetchContext) string {
		return fmt.Sprintf("obs:%s:%s:%g", catalog.FactorRoadDensity, p.Key(), EffectiveRadiusKm(fc.BufferRadiusKm))
	}
	return r
}
