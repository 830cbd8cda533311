package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	all := c.All()
	require.Len(t, all, 5)
	assert.Equal(t, FactorFlood, all[0].ID)
	assert.Equal(t, FactorRoadDensity, all[4].ID)
	assert.Equal(t, 0, c.Order(FactorFlood))
	assert.Equal(t, -1, c.Order("nope"))
}

func TestFactorsFor(t *testing.T) {
	c := Default()

	tests := []struct {
		analysis AnalysisType
		want     []FactorID
	}{
		{AnalysisMortgage, []FactorID{FactorFlood, FactorElevation, FactorWildfire, FactorInfrastructure}},
		{AnalysisHome, []FactorID{FactorFlood, FactorElevation, FactorWildfire, FactorInfrastructure, FactorRoadDensity}},
		{AnalysisVehicle, []FactorID{FactorInfrastructure, FactorRoadDensity}},
		{AnalysisCommercialSite, []FactorID{FactorFlood, FactorElevation, FactorInfrastructure, FactorRoadDensity}},
	}
	for _, tt := range tests {
		t.Run(string(tt.analysis), func(t *testing.T) {
			var got []FactorID
			for _, f := range c.FactorsFor(tt.analysis) {
				got = append(got, f.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnknownAnalysisTypeIsEmpty(t *testing.T) {
	c := Default()
	got := c.FactorsFor("spaceport")
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, c.DefaultWeightsFor("spaceport"))
}

func TestDefaultWeightsFor(t *testing.T) {
	w := Default().DefaultWeightsFor(AnalysisVehicle)
	assert.Equal(t, map[FactorID]float64{FactorInfrastructure: 15, FactorRoadDensity: 10}, w)
}

func TestNewRejectsMisconfiguration(t *testing.T) {
	tests := []struct {
		name    string
		factors []Factor
	}{
		{"empty", nil},
		{"empty id", []Factor{{ApplicableTo: []AnalysisType{AnalysisHome}}}},
		{"duplicate", []Factor{
			{ID: "a", ApplicableTo: []AnalysisType{AnalysisHome}},
			{ID: "a", ApplicableTo: []AnalysisType{AnalysisHome}},
		}},
		{"weight too high", []Factor{{ID: "a", DefaultWeight: 101, ApplicableTo: []AnalysisType{AnalysisHome}}}},
		{"negative weight", []Factor{{ID: "a", DefaultWeight: -1, ApplicableTo: []AnalysisType{AnalysisHome}}}},
		{"no applicability", []Factor{{ID: "a", DefaultWeight: 10}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.factors)
			assert.Error(t, err)
		})
	}
}

func TestWithDefaultWeights(t *testing.T) {
	base := Default()
	c, err := base.WithDefaultWeights(map[FactorID]float64{FactorFlood: 60})
	require.NoError(t, err)

	f, ok := c.Factor(FactorFlood)
	require.True(t, ok)
	assert.Equal(t, 60.0, f.DefaultWeight)

	orig, _ := base.Factor(FactorFlood)
	assert.Equal(t, 35.0, orig.DefaultWeight, "original catalog must not change")

	_, err = base.WithDefaultWeights(map[FactorID]float64{"bogus": 5})
	assert.Error(t, err)
}

func TestAllReturnsCopy(t *testing.T) {
	c := Default()
	all := c.All()
	all[0].DisplayName = "mutated"
	f, _ := c.Factor(FactorFlood)
	assert.Equal(t, "Flood exposure", f.DisplayName)
}

func TestAnalysisTypes(t *testing.T) {
	assert.ElementsMatch(t,
		[]AnalysisType{AnalysisMortgage, AnalysisHome, AnalysisVehicle, AnalysisCommercialSite},
		Default().AnalysisTypes())
}
