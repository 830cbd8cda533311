package providers

import (
	"errors"
	"sort"

	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
	"github.com/MikeSquared-Agency/Georisk/internal/geodata"
)

// Sources bundles the upstream clients the default provider set needs.
type Sources struct {
	FloodZones geodata.FloodZoneSource
	Elevation  geodata.ElevationSource
	LandCover  geodata.LandCoverSource
	Features   geodata.FeatureCounter

	InfrastructureRadiusKm float64
}

// Set is the registry of providers by factor. It is built once at start-up
// and shared read-only.
type Set struct {
	byFactor map[catalog.FactorID]Provider
}

func NewSet(ps ...Provider) *Set {
	s := &Set{byFactor: make(map[catalog.FactorID]Provider, len(ps))}
	for _, p := range ps {
		s.byFactor[p.Factor()] = p
	}
	return s
}

// NewDefaultSet wires one guarded provider per built-in factor.
func NewDefaultSet(src Sources, opts Options) *Set {
	elevation := NewElevationProvider(src.Elevation, opts)
	return NewSet(
		NewFloodProvider(src.FloodZones, ElevationVia(elevation), opts),
		elevation,
		NewVegetationProvider(src.LandCover, opts),
		NewInfrastructureProvider(src.Features, src.InfrastructureRadiusKm, opts),
		NewRoadDensityProvider(src.Features, opts),
	)
}

func (s *Set) Get(id catalog.FactorID) (Provider, bool) {
	p, ok := s.byFactor[id]
	return p, ok
}

// Missing lists catalog factors with no provider, in catalog order.
func (s *Set) Missing(cat *catalog.Catalog) []catalog.FactorID {
	var out []catalog.FactorID
	for _, f := range cat.All() {
		if _, ok := s.byFactor[f.ID]; !ok {
			out = append(out, f.ID)
		}
	}
	return out
}

// CircuitStates reports the breaker state of every guarded provider.
func (s *Set) CircuitStates() map[catalog.FactorID]string {
	out := make(map[catalog.FactorID]string, len(s.byFactor))
	for id, p := range s.byFactor {
		if cs, ok := p.(interface{ CircuitState() string }); ok {
			out[id] = cs.CircuitState()
		} else {
			out[id] = "disabled"
		}
	}
	return out
}

// Factors returns the registered factor ids, sorted.
func (s *Set) Factors() []catalog.FactorID {
	out := make([]catalog.FactorID, 0, len(s.byFactor))
	for id := range s.byFactor {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Set) Close() error {
	var errs []error
	for _, p := range s.byFactor {
		if c, ok := p.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
