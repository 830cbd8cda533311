package providers

import (
	"context"
	"fmt"

	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
	"github.com/MikeSquared-Agency/Georisk/internal/geodata"
)

const (
	infrastructureNeutral = 50

	// DefaultInfrastructureRadiusKm is the fixed search radius for emergency
	// and transit facilities. It does not follow the assessment buffer.
	DefaultInfrastructureRadiusKm = 2.0
)

// InfrastructureScore is inverse: more facilities nearby means lower risk.
func InfrastructureScore(count int) float64 {
	switch {
	case count <= 0:
		return 80
	case count <= 2:
		return 60
	case count <= 5:
		return 40
	case count <= 10:
		return 25
	default:
		return 15
	}
}

func NewInfrastructureProvider(src geodata.FeatureCounter, radiusKm float64, opts Options) *Guarded {
	if radiusKm <= 0 {
		radiusKm = DefaultInfrastructureRadiusKm
	}
	primary := func(ctx context.Context, p geodata.Point, _ FetchContext) (Observation, error) {
		n, err := src.CountFeatures(ctx, p, radiusKm*1000, geodata.QueryEmergencyTransit)
		if err != nil {
			return Observation{}, err
		}
		return Observation{
			RawScore:    InfrastructureScore(n),
			Explanation: fmt.Sprintf("%d emergency or transit facilities within %g km", n, radiusKm),
			SourceName:  "OpenStreetMap Overpass",
			Metadata:    map[string]any{"facilityCount": n, "radiusKm": radiusKm},
		}, nil
	}
	fallback := func(context.Context, geodata.Point, FetchContext, error) Observation {
		return neutral(catalog.FactorInfrastructure, infrastructureNeutral, "Facility data")
	}
	return newGuarded(catalog.FactorInfrastructure, primary, fallback, opts)
}
