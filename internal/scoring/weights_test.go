package scoring

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
)

func abcCatalog() *catalog.Catalog {
	all := []catalog.AnalysisType{catalog.AnalysisHome}
	return catalog.MustNew([]catalog.Factor{
		{ID: "a", ApplicableTo: all, DefaultWeight: 10},
		{ID: "b", ApplicableTo: all, DefaultWeight: 10},
		{ID: "c", ApplicableTo: all, DefaultWeight: 10},
	})
}

func TestNormalizeResidualToLargest(t *testing.T) {
	w, err := NewWeightConfig(abcCatalog(), []catalog.FactorID{"a", "b", "c"},
		map[catalog.FactorID]float64{"a": 33, "b": 33, "c": 33})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[catalog.FactorID]int{"a": 33, "b": 33, "c": 34}
	for id, v := range want {
		if got := w.Weight(id); got != v {
			t.Errorf("weight[%s] = %d, want %d", id, got, v)
		}
	}
	if w.Sum() != 100 {
		t.Errorf("sum = %d, want 100", w.Sum())
	}
}

func TestDeselectLeavesRemainderAtHundred(t *testing.T) {
	cat := abcCatalog()
	w, err := NewWeightConfig(cat, []catalog.FactorID{"a", "b"}, map[catalog.FactorID]float64{"a": 50, "b": 50})
	if err != nil {
		t.Fatal(err)
	}
	w2, err := w.Deselect("a")
	if err != nil {
		t.Fatal(err)
	}
	if got := w2.Weights(); len(got) != 1 || got["b"] != 100 {
		t.Errorf("after deselect = %v, want {b:100}", got)
	}
	if !w.IsSelected("a") {
		t.Error("original config must be unchanged")
	}
}

func TestDeselectRedistributesProportionally(t *testing.T) {
	w, err := NewWeightConfig(abcCatalog(), []catalog.FactorID{"a", "b", "c"},
		map[catalog.FactorID]float64{"a": 50, "b": 30, "c": 20})
	if err != nil {
		t.Fatal(err)
	}
	w2, err := w.Deselect("a")
	if err != nil {
		t.Fatal(err)
	}
	if w2.Weight("b") != 60 || w2.Weight("c") != 40 {
		t.Errorf("got %v, want {b:60 c:40}", w2.Weights())
	}
}

func TestDeselectEdgeCases(t *testing.T) {
	cat := abcCatalog()
	w, _ := NewWeightConfig(cat, []catalog.FactorID{"a"}, nil)

	if _, err := w.Deselect("a"); !errors.Is(err, ErrNoFactorsSelected) {
		t.Errorf("deselecting the only factor: got %v, want NoFactorsSelected", err)
	}
	if _, err := w.Deselect("zzz"); !errors.Is(err, ErrUnknownFactor) {
		t.Errorf("deselecting unknown factor: got %v", err)
	}
	same, err := w.Deselect("b")
	if err != nil || same != w {
		t.Errorf("deselecting an unselected factor should be a no-op, got %v %v", same, err)
	}
}

func TestZeroWeightRefused(t *testing.T) {
	_, err := NewWeightConfig(abcCatalog(), []catalog.FactorID{"a", "b"},
		map[catalog.FactorID]float64{"a": 0, "b": 0})
	if !errors.Is(err, ErrZeroWeight) {
		t.Errorf("got %v, want ZeroWeight", err)
	}
	if KindOf(err) != KindZeroWeight || !IsConfigError(err) {
		t.Errorf("kind = %q", KindOf(err))
	}
}

func TestNewWeightConfigErrors(t *testing.T) {
	cat := abcCatalog()
	tests := []struct {
		name     string
		selected []catalog.FactorID
		weights  map[catalog.FactorID]float64
		want     error
	}{
		{"empty selection", []catalog.FactorID{}, nil, ErrNoFactorsSelected},
		{"nil selection", nil, nil, ErrNoFactorsSelected},
		{"unknown factor", []catalog.FactorID{"a", "x"}, nil, ErrUnknownFactor},
		{"negative", []catalog.FactorID{"a"}, map[catalog.FactorID]float64{"a": -1}, ErrInvalidWeight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWeightConfig(cat, tt.selected, tt.weights)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDefaultsAndIgnoredWeights(t *testing.T) {
	cat := catalog.Default()
	w, err := NewWeightConfig(cat, []catalog.FactorID{catalog.FactorRoadDensity, catalog.FactorFlood},
		map[catalog.FactorID]float64{catalog.FactorWildfire: 90})
	if err != nil {
		t.Fatal(err)
	}
	// Defaults 35 and 10 normalize to 78/22 (77.8 and 22.2).
	if w.Weight(catalog.FactorFlood) != 78 || w.Weight(catalog.FactorRoadDensity) != 22 {
		t.Errorf("got %v", w.Weights())
	}
	if w.IsSelected(catalog.FactorWildfire) {
		t.Error("weight for an unselected factor must be ignored")
	}
	sel := w.Selected()
	if sel[0] != catalog.FactorFlood || sel[1] != catalog.FactorRoadDensity {
		t.Errorf("selection must follow catalog order, got %v", sel)
	}
}

func TestNormalizationAlwaysSumsToHundred(t *testing.T) {
	cat := catalog.Default()
	ids := []catalog.FactorID{}
	for _, f := range cat.All() {
		ids = append(ids, f.ID)
	}
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		n := 1 + rng.Intn(len(ids))
		selected := ids[:n]
		weights := map[catalog.FactorID]float64{}
		for _, id := range selected {
			weights[id] = rng.Float64() * 100
		}
		weights[selected[0]] += 0.001
		w, err := NewWeightConfig(cat, selected, weights)
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		if err := w.Validate(); err != nil {
			t.Fatalf("iteration %d: %v (weights %v)", i, err, w.Weights())
		}
	}

	extremes := []struct {
		name    string
		weights map[catalog.FactorID]float64
		want    map[catalog.FactorID]int
	}{
		{"near max float", map[catalog.FactorID]float64{"flood": 1e308, "elevation": 1e308},
			map[catalog.FactorID]int{"flood": 50, "elevation": 50}},
		{"max float", map[catalog.FactorID]float64{"flood": math.MaxFloat64, "elevation": math.MaxFloat64 / 3},
			map[catalog.FactorID]int{"flood": 75, "elevation": 25}},
		{"tiny", map[catalog.FactorID]float64{"flood": 1e-300, "elevation": 3e-300},
			map[catalog.FactorID]int{"flood": 25, "elevation": 75}},
	}
	for _, tc := range extremes {
		t.Run(tc.name, func(t *testing.T) {
			w, err := NewWeightConfig(cat, []catalog.FactorID{"flood", "elevation"}, tc.weights)
			if err != nil {
				t.Fatal(err)
			}
			if err := w.Validate(); err != nil {
				t.Fatalf("%v (weights %v)", err, w.Weights())
			}
			for id, want := range tc.want {
				if got := w.Weight(id); got != want {
					t.Errorf("%s = %d, want %d", id, got, want)
				}
			}
		})
	}
}

func TestSetWeightAndSelect(t *testing.T) {
	cat := abcCatalog()
	w, _ := NewWeightConfig(cat, []catalog.FactorID{"a", "b"}, map[catalog.FactorID]float64{"a": 50, "b": 50})

	w2, err := w.SetWeight("a", 150)
	if err != nil {
		t.Fatal(err)
	}
	if w2.Weight("a") != 75 || w2.Weight("b") != 25 {
		t.Errorf("got %v, want a:75 b:25", w2.Weights())
	}

	w3, err := w.Select("c", 100)
	if err != nil {
		t.Fatal(err)
	}
	if w3.Weight("a") != 25 || w3.Weight("b") != 25 || w3.Weight("c") != 50 {
		t.Errorf("got %v", w3.Weights())
	}
}

func TestValidateRejectsUnbuiltConfig(t *testing.T) {
	var nilCfg *WeightConfig
	if !errors.Is(nilCfg.Validate(), ErrInvalidWeightConfig) {
		t.Error("nil config must be invalid")
	}
	if !errors.Is((&WeightConfig{}).Validate(), ErrInvalidWeightConfig) {
		t.Error("zero config must be invalid")
	}
	bad := &WeightConfig{
		catalog:  abcCatalog(),
		selected: []catalog.FactorID{"a", "b"},
		weights:  map[catalog.FactorID]int{"a": 50, "b": 49},
	}
	if !errors.Is(bad.Validate(), ErrInvalidWeightConfig) {
		t.Error("sum 99 must be invalid")
	}
}

func TestWeightsFor(t *testing.T) {
	cat := catalog.Default()

	w, err := WeightsFor(cat, catalog.AnalysisVehicle, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if w.Weight(catalog.FactorInfrastructure) != 60 || w.Weight(catalog.FactorRoadDensity) != 40 {
		t.Errorf("vehicle defaults = %v", w.Weights())
	}

	if _, err := WeightsFor(cat, catalog.AnalysisHome, []catalog.FactorID{}, nil); !errors.Is(err, ErrNoFactorsSelected) {
		t.Errorf("explicit empty selection: got %v", err)
	}
	if _, err := WeightsFor(cat, catalog.AnalysisVehicle, []catalog.FactorID{catalog.FactorFlood}, nil); !errors.Is(err, ErrFactorNotApplicable) {
		t.Errorf("flood for vehicle: got %v", err)
	}
	if _, err := WeightsFor(cat, catalog.AnalysisHome, []catalog.FactorID{"bogus"}, nil); !errors.Is(err, ErrUnknownFactor) {
		t.Errorf("unknown: got %v", err)
	}
	if _, err := WeightsFor(cat, "spaceport", nil, nil); !errors.Is(err, ErrNoFactorsSelected) {
		t.Errorf("unknown analysis type: got %v", err)
	}
}
