package providers

import (
	"context"
	"fmt"

	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
	"github.com/MikeSquared-Agency/Georisk/internal/geodata"
)

const floodNeutral = 50

var highRiskFloodZones = map[string]bool{
	"A": true, "AE": true, "AH": true, "AO": true, "AR": true, "A99": true,
	"V": true, "VE": true,
}

// FloodZoneScore maps a flood zone designation to a raw score and a short
// band description.
func FloodZoneScore(z geodata.FloodZone) (float64, string) {
	switch {
	case highRiskFloodZones[z.Zone]:
		return 85, "high-risk special flood hazard area"
	case z.Shaded():
		return floodNeutral, "moderate flood hazard (0.2% annual chance)"
	case z.Zone == "X" || z.Zone == "C":
		return 15, "minimal flood hazard"
	default:
		return floodNeutral, "moderate or undetermined flood hazard"
	}
}

// FloodScoreFromElevation estimates flood exposure from ground elevation
// when no zone designation is available.
func FloodScoreFromElevation(elevationM float64) float64 {
	switch {
	case elevationM < 10:
		return 75
	case elevationM <= 30:
		return 45
	default:
		return 20
	}
}

// NewFloodProvider looks up the regulatory flood zone; on failure it falls
// back to an elevation-based estimate, and to a neutral score if elevation is
// unavailable too. The elevation lookup runs within the flood provider's
// remaining deadline; pass ElevationVia to share the elevation guard.
func NewFloodProvider(zones geodata.FloodZoneSource, elevation geodata.ElevationSource, opts Options) *Guarded {
	primary := func(ctx context.Context, p geodata.Point, _ FetchContext) (Observation, error) {
		z, err := zones.FloodZone(ctx, p)
		if err != nil {
			return Observation{}, err
		}
		score, band := FloodZoneScore(z)
		meta := map[string]any{"zone": z.Zone}
		if z.Subtype != "" {
			meta["zoneSubtype"] = z.Subtype
		}
		return Observation{
			RawScore:    score,
			Explanation: fmt.Sprintf("Located in FEMA flood zone %s (%s)", z.Zone, band),
			SourceName:  "FEMA NFHL",
			Metadata:    meta,
		}, nil
	}
	fallback := func(ctx context.Context, p geodata.Point, _ FetchContext, _ error) Observation {
		if elevation == nil {
			return neutral(catalog.FactorFlood, floodNeutral, "Flood zone and elevation data")
		}
		e, err := elevation.Elevation(ctx, p)
		if err != nil {
			return neutral(catalog.FactorFlood, floodNeutral, "Flood zone and elevation data")
		}
		return Observation{
			RawScore:    FloodScoreFromElevation(e),
			Explanation: fmt.Sprintf("Flood zone data unavailable; estimated from elevation of %s", formatMetres(e)),
			SourceName:  "elevation estimate",
			Metadata:    map[string]any{"elevationM": e},
		}
	}
	return newGuarded(catalog.FactorFlood, primary, fallback, opts)
}
