package providers

import (
	"context"
	"fmt"

	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
	"github.com/MikeSquared-Agency/Georisk/internal/geodata"
)

const vegetationNeutral = 35

// LandCoverScore maps an OSM land cover classification to a wildfire proxy
// score.
func LandCoverScore(lc geodata.LandCover) (float64, string) {
	switch lc.Type {
	case "forest", "wood":
		return 85, "dense woodland"
	case "scrub", "heath":
		return 75, "scrub or heathland"
	case "grassland", "meadow", "farmland", "grass":
		return 50, "open grass or farmland"
	case "park", "recreation_ground":
		return 40, "managed parkland"
	case "residential":
		return 25, "residential area"
	case "commercial", "industrial", "retail":
		return 15, "built-up commercial area"
	default:
		return vegetationNeutral, "mixed or unclassified land cover"
	}
}

func NewVegetationProvider(src geodata.LandCoverSource, opts Options) *Guarded {
	primary := func(ctx context.Context, p geodata.Point, _ FetchContext) (Observation, error) {
		lc, err := src.LandCover(ctx, p)
		if err != nil {
			return Observation{}, err
		}
		score, band := LandCoverScore(lc)
		return Observation{
			RawScore:    score,
			Explanation: fmt.Sprintf("Land cover is %s (%s/%s)", band, lc.Category, lc.Type),
			SourceName:  "OpenStreetMap Nominatim",
			Metadata:    map[string]any{"landCategory": lc.Category, "landType": lc.Type},
		}, nil
	}
	fallback := func(context.Context, geodata.Point, FetchContext, error) Observation {
		return neutral(catalog.FactorWildfire, vegetationNeutral, "Land cover data")
	}
	return newGuarded(catalog.FactorWildfire, primary, fallback, opts)
}
