package scoring

import (
	"context"
	"strings"

	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
	"github.com/MikeSquared-Agency/Georisk/internal/geodata"
)

// LocationRef identifies a location by coordinates ([lon, lat]) or by a
// free-text address. Coordinates win when both are present.
type LocationRef struct {
	Ref         string    `json:"ref,omitempty"`
	Address     string    `json:"address,omitempty"`
	Coordinates []float64 `json:"coordinates,omitempty"`
}

// ResolveLocation turns a LocationRef into a point, geocoding the address
// when no coordinates are given.
func ResolveLocation(ctx context.Context, g geodata.Geocoder, ref LocationRef) (geodata.Point, error) {
	if len(ref.Coordinates) > 0 {
		p, err := geodata.FromLonLat(ref.Coordinates)
		if err != nil {
			return geodata.Point{}, &Error{Kind: KindInvalidLocation, Message: err.Error()}
		}
		return p, nil
	}
	if strings.TrimSpace(ref.Address) == "" {
		return geodata.Point{}, newError(KindInvalidLocation, "location needs coordinates or an address")
	}
	if g == nil {
		return geodata.Point{}, newError(KindGeocodingFailed, "no geocoder configured")
	}
	p, err := g.Geocode(ctx, ref.Address)
	if err != nil {
		return geodata.Point{}, &Error{Kind: KindGeocodingFailed, Message: "could not geocode " + ref.Address, Err: err}
	}
	return p, nil
}

// WeightsFor builds the weight config for a request. A nil selection means
// "use the analysis type's defaults"; an explicit empty selection is an error.
// Every selected factor must apply to the analysis type.
func WeightsFor(cat *catalog.Catalog, t catalog.AnalysisType, selected []catalog.FactorID, weights map[catalog.FactorID]float64) (*WeightConfig, error) {
	if selected == nil {
		for _, f := range cat.FactorsFor(t) {
			selected = append(selected, f.ID)
		}
		if len(selected) == 0 {
			return nil, newError(KindNoFactorsSelected, "analysis type %q offers no factors", t)
		}
	}
	for _, id := range selected {
		f, ok := cat.Factor(id)
		if !ok {
			return nil, newError(KindUnknownFactor, "factor %q is not in the catalog", id)
		}
		if !f.AppliesTo(t) {
			return nil, newError(KindFactorNotApplicable, "factor %q does not apply to %q analysis", id, t)
		}
	}
	return NewWeightConfig(cat, selected, weights)
}
