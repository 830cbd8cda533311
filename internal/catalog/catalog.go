package catalog

import (
	"fmt"
	"math"
)

// AnalysisType names the kind of decision an assessment supports.
type AnalysisType string

const (
	AnalysisMortgage       AnalysisType = "mortgage"
	AnalysisHome           AnalysisType = "home"
	AnalysisVehicle        AnalysisType = "vehicle"
	AnalysisCommercialSite AnalysisType = "commercial_site"
)

// FactorID identifies one independently scored geospatial signal.
type FactorID string

const (
	FactorFlood          FactorID = "flood"
	FactorElevation      FactorID = "elevation"
	FactorWildfire       FactorID = "wildfire"
	FactorInfrastructure FactorID = "infrastructure"
	FactorRoadDensity    FactorID = "road_density"
)

// Factor is an immutable catalog entry.
type Factor struct {
	ID            FactorID       `json:"id" yaml:"id"`
	DisplayName   string         `json:"displayName" yaml:"display_name"`
	ApplicableTo  []AnalysisType `json:"applicableTo" yaml:"applicable_to"`
	DefaultWeight float64        `json:"defaultWeight" yaml:"default_weight"`
	Mitigation    string         `json:"mitigation,omitempty" yaml:"mitigation"`
}

// AppliesTo reports whether the factor is offered for the given analysis type.
func (f Factor) AppliesTo(t AnalysisType) bool {
	for _, a := range f.ApplicableTo {
		if a == t {
			return true
		}
	}
	return false
}

// Catalog is the read-only factor registry. It is built once at start-up and
// shared by every scoring call; nothing mutates it afterwards.
type Catalog struct {
	factors []Factor
	index   map[FactorID]int
	types   []AnalysisType
}

// New validates the factor table and builds a Catalog. Registration order is
// preserved and used as the tie-break order everywhere factors are ranked.
func New(factors []Factor) (*Catalog, error) {
	if len(factors) == 0 {
		return nil, fmt.Errorf("catalog: no factors defined")
	}
	c := &Catalog{
		factors: make([]Factor, 0, len(factors)),
		index:   make(map[FactorID]int, len(factors)),
	}
	seenType := make(map[AnalysisType]bool)
	for _, f := range factors {
		if f.ID == "" {
			return nil, fmt.Errorf("catalog: factor with empty id")
		}
		if _, dup := c.index[f.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate factor %q", f.ID)
		}
		if math.IsNaN(f.DefaultWeight) || f.DefaultWeight < 0 || f.DefaultWeight > 100 {
			return nil, fmt.Errorf("catalog: factor %q default weight %v outside 0..100", f.ID, f.DefaultWeight)
		}
		if len(f.ApplicableTo) == 0 {
			return nil, fmt.Errorf("catalog: factor %q applies to no analysis type", f.ID)
		}
		f.ApplicableTo = append([]AnalysisType(nil), f.ApplicableTo...)
		if f.DisplayName == "" {
			f.DisplayName = string(f.ID)
		}
		c.index[f.ID] = len(c.factors)
		c.factors = append(c.factors, f)
		for _, t := range f.ApplicableTo {
			if !seenType[t] {
				seenType[t] = true
				c.types = append(c.types, t)
			}
		}
	}
	return c, nil
}

// MustNew is New for tables known at compile time.
func MustNew(factors []Factor) *Catalog {
	c, err := New(factors)
	if err != nil {
		panic(err)
	}
	return c
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return MustNew(DefaultFactors())
}

// DefaultFactors returns a fresh copy of the built-in factor table.
func DefaultFactors() []Factor {
	return []Factor{
		{
			ID:            FactorFlood,
			DisplayName:   "Flood exposure",
			ApplicableTo:  []AnalysisType{AnalysisMortgage, AnalysisHome, AnalysisCommercialSite},
			DefaultWeight: 35,
			Mitigation:    "Obtain flood insurance and an elevation certificate; consider raising utilities above base flood elevation.",
		},
		{
			ID:            FactorElevation,
			DisplayName:   "Elevation & terrain",
			ApplicableTo:  []AnalysisType{AnalysisMortgage, AnalysisHome, AnalysisCommercialSite},
			DefaultWeight: 20,
			Mitigation:    "Commission a site survey for drainage and slope stability before committing.",
		},
		{
			ID:            FactorWildfire,
			DisplayName:   "Vegetation / wildfire",
			ApplicableTo:  []AnalysisType{AnalysisMortgage, AnalysisHome},
			DefaultWeight: 20,
			Mitigation:    "Maintain defensible space and use ember-resistant vents and roofing.",
		},
		{
			ID:            FactorInfrastructure,
			DisplayName:   "Emergency & transit access",
			ApplicableTo:  []AnalysisType{AnalysisMortgage, AnalysisHome, AnalysisVehicle, AnalysisCommercialSite},
			DefaultWeight: 15,
			Mitigation:    "Plan evacuation routes and confirm emergency response times with local services.",
		},
		{
			ID:            FactorRoadDensity,
			DisplayName:   "Road & traffic density",
			ApplicableTo:  []AnalysisType{AnalysisHome, AnalysisVehicle, AnalysisCommercialSite},
			DefaultWeight: 10,
			Mitigation:    "Prefer off-street parking and review local collision statistics.",
		},
	}
}

// WithDefaultWeights returns a copy of the catalog with the given default
// weights replaced. Unknown ids are rejected.
func (c *Catalog) WithDefaultWeights(overrides map[FactorID]float64) (*Catalog, error) {
	factors := c.All()
	for id, w := range overrides {
		i, ok := c.index[id]
		if !ok {
			return nil, fmt.Errorf("catalog: default weight for unknown factor %q", id)
		}
		factors[i].DefaultWeight = w
	}
	return New(factors)
}

// FactorsFor returns the factors offered for an analysis type, in registration
// order. Unknown types yield an empty slice.
func (c *Catalog) FactorsFor(t AnalysisType) []Factor {
	out := []Factor{}
	for _, f := range c.factors {
		if f.AppliesTo(t) {
			out = append(out, f)
		}
	}
	return out
}

// DefaultWeightsFor returns the default weight of each factor offered for t.
func (c *Catalog) DefaultWeightsFor(t AnalysisType) map[FactorID]float64 {
	out := make(map[FactorID]float64)
	for _, f := range c.FactorsFor(t) {
		out[f.ID] = f.DefaultWeight
	}
	return out
}

// Factor looks up a single factor.
func (c *Catalog) Factor(id FactorID) (Factor, bool) {
	i, ok := c.index[id]
	if !ok {
		return Factor{}, false
	}
	return c.factors[i], true
}

// Order returns the registration position of id, or -1.
func (c *Catalog) Order(id FactorID) int {
	i, ok := c.index[id]
	if !ok {
		return -1
	}
	return i
}

// All returns every factor in registration order.
func (c *Catalog) All() []Factor {
	out := make([]Factor, len(c.factors))
	copy(out, c.factors)
	return out
}

// AnalysisTypes lists every analysis type at least one factor applies to.
func (c *Catalog) AnalysisTypes() []AnalysisType {
	return append([]AnalysisType(nil), c.types...)
}
