package providers

import (
	"context"
	"fmt"

	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
	"github.com/MikeSquared-Agency/Georisk/internal/geodata"
)

const elevationNeutral = 40

// ElevationScore maps elevation in metres to a raw score. Both tails score
// high: low ground floods, high ground brings slope and access problems.
func ElevationScore(elevationM float64) (float64, string) {
	switch {
	case elevationM < 10:
		return 70, "low-lying, prone to pooling and surge"
	case elevationM < 30:
		return 45, "modest elevation"
	case elevationM < 300:
		return 20, "comfortable elevation"
	case elevationM < 1000:
		return 35, "upland terrain"
	default:
		return 55, "high-altitude terrain"
	}
}

func NewElevationProvider(src geodata.ElevationSource, opts Options) *Guarded {
	primary := func(ctx context.Context, p geodata.Point, _ FetchContext) (Observation, error) {
		e, err := src.Elevation(ctx, p)
		if err != nil {
			return Observation{}, err
		}
		score, band := ElevationScore(e)
		return Observation{
			RawScore:    score,
			Explanation: fmt.Sprintf("Ground elevation %s (%s)", formatMetres(e), band),
			SourceName:  "Open-Elevation",
			Metadata:    map[string]any{"elevationM": e},
		}, nil
	}
	fallback := func(context.Context, geodata.Point, FetchContext, error) Observation {
		return neutral(catalog.FactorElevation, elevationNeutral, "Elevation data")
	}
	return newGuarded(catalog.FactorElevation, primary, fallback, opts)
}

// ElevationVia exposes a guarded elevation provider as an ElevationSource, so
// other providers reuse its cache, rate limiter and circuit breaker.
func ElevationVia(g *Guarded) geodata.ElevationSource {
	return guardedElevation{g: g}
}

type guardedElevation struct {
	g *Guarded
}

func (e guardedElevation) Elevation(ctx context.Context, p geodata.Point) (float64, error) {
	// An expired caller deadline must not count against the elevation breaker.
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	obs, err := e.g.Lookup(ctx, p, FetchContext{})
	if err != nil {
		return 0, err
	}
	v, ok := obs.Metadata["elevationM"].(float64)
	if !ok {
		return 0, fmt.Errorf("elevation observation has no elevationM")
	}
	return v, nil
}
