package scoring

import (
	"encoding/json"
	"math"

	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
)

// WeightTotal is the exact sum every normalized WeightConfig carries.
const WeightTotal = 100

// WeightConfig is a validated, normalized factor selection. It is immutable:
// every edit returns a new config that has been re-normalized.
type WeightConfig struct {
	catalog  *catalog.Catalog
	selected []catalog.FactorID
	weights  map[catalog.FactorID]int
}

// NewWeightConfig validates a caller's selection and normalizes the weights so
// they sum to exactly 100. Selected factors missing from weights take their
// catalog default; weights for unselected factors are ignored.
func NewWeightConfig(cat *catalog.Catalog, selected []catalog.FactorID, weights map[catalog.FactorID]float64) (*WeightConfig, error) {
	if len(selected) == 0 {
		return nil, newError(KindNoFactorsSelected, "at least one factor must be selected")
	}

	chosen := make(map[catalog.FactorID]bool, len(selected))
	for _, id := range selected {
		if _, ok := cat.Factor(id); !ok {
			return nil, newError(KindUnknownFactor, "factor %q is not in the catalog", id)
		}
		chosen[id] = true
	}

	order := make([]catalog.FactorID, 0, len(chosen))
	raw := make(map[catalog.FactorID]float64, len(chosen))
	for _, f := range cat.All() {
		if !chosen[f.ID] {
			continue
		}
		order = append(order, f.ID)
		w, ok := weights[f.ID]
		if !ok {
			w = f.DefaultWeight
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, newError(KindInvalidWeight, "weight for %q must be a non-negative number, got %v", f.ID, w)
		}
		raw[f.ID] = w
	}

	normalized, err := Normalize(order, raw)
	if err != nil {
		return nil, err
	}
	return &WeightConfig{catalog: cat, selected: order, weights: normalized}, nil
}

// Normalize rescales raw weights over order to integers summing to exactly 100.
// Each weight becomes round(w*100/total); any rounding residual is added to the
// largest weight, ties going to the factor that appears last in order.
func Normalize(order []catalog.FactorID, raw map[catalog.FactorID]float64) (map[catalog.FactorID]int, error) {
	if len(order) == 0 {
		return nil, newError(KindNoFactorsSelected, "at least one factor must be selected")
	}
	// Scale by the largest weight first so huge finite inputs cannot overflow the sum.
	var peak float64
	for _, id := range order {
		peak = math.Max(peak, raw[id])
	}
	if peak == 0 {
		return nil, newError(KindZeroWeight, "selected weights sum to zero")
	}
	var total float64
	for _, id := range order {
		total += raw[id] / peak
	}
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return nil, newError(KindInvalidWeight, "selected weights are not finite")
	}

	out := make(map[catalog.FactorID]int, len(order))
	sum := 0
	for _, id := range order {
		v := int(math.Round(raw[id] / peak / total * WeightTotal))
		out[id] = v
		sum += v
	}

	if residual := WeightTotal - sum; residual != 0 {
		largest := order[0]
		for _, id := range order {
			if out[id] >= out[largest] {
				largest = id
			}
		}
		out[largest] += residual
	}
	return out, nil
}

// Selected returns the selected factors in catalog order.
func (w *WeightConfig) Selected() []catalog.FactorID {
	if w == nil {
		return nil
	}
	return append([]catalog.FactorID(nil), w.selected...)
}

// Weight returns the normalized weight of id, 0 when not selected.
func (w *WeightConfig) Weight(id catalog.FactorID) int {
	if w == nil {
		return 0
	}
	return w.weights[id]
}

// Weights returns a copy of the normalized weights.
func (w *WeightConfig) Weights() map[catalog.FactorID]int {
	out := make(map[catalog.FactorID]int)
	if w == nil {
		return out
	}
	for id, v := range w.weights {
		out[id] = v
	}
	return out
}

// Sum returns the total of all weights.
func (w *WeightConfig) Sum() int {
	if w == nil {
		return 0
	}
	total := 0
	for _, v := range w.weights {
		total += v
	}
	return total
}

// IsSelected reports whether id is part of the selection.
func (w *WeightConfig) IsSelected(id catalog.FactorID) bool {
	if w == nil {
		return false
	}
	_, ok := w.weights[id]
	return ok
}

// Validate checks the normalization invariant. The engine refuses any config
// for which this returns an error.
func (w *WeightConfig) Validate() error {
	if w == nil || w.catalog == nil {
		return newError(KindInvalidWeightConfig, "weight config was not built by NewWeightConfig")
	}
	if len(w.selected) == 0 {
		return newError(KindInvalidWeightConfig, "no factors selected")
	}
	if len(w.weights) != len(w.selected) {
		return newError(KindInvalidWeightConfig, "weights and selection disagree")
	}
	for _, id := range w.selected {
		v, ok := w.weights[id]
		if !ok {
			return newError(KindInvalidWeightConfig, "selected factor %q has no weight", id)
		}
		if v < 0 {
			return newError(KindInvalidWeightConfig, "negative weight for %q", id)
		}
	}
	if sum := w.Sum(); sum != WeightTotal {
		return newError(KindInvalidWeightConfig, "weights sum to %d, must sum to %d", sum, WeightTotal)
	}
	return nil
}

// Deselect removes id and re-normalizes the remaining selection, which spreads
// the removed weight proportionally. Removing the last factor is an error.
func (w *WeightConfig) Deselect(id catalog.FactorID) (*WeightConfig, error) {
	if _, ok := w.catalog.Factor(id); !ok {
		return nil, newError(KindUnknownFactor, "factor %q is not in the catalog", id)
	}
	if !w.IsSelected(id) {
		return w, nil
	}
	remaining := make([]catalog.FactorID, 0, len(w.selected)-1)
	raw := make(map[catalog.FactorID]float64, len(w.selected)-1)
	for _, s := range w.selected {
		if s == id {
			continue
		}
		remaining = append(remaining, s)
		raw[s] = float64(w.weights[s])
	}
	if len(remaining) == 0 {
		return nil, newError(KindNoFactorsSelected, "cannot deselect the only selected factor")
	}
	return NewWeightConfig(w.catalog, remaining, raw)
}

// Select adds id with the given weight, on the same 0..100 scale as the
// current weights, and re-normalizes. Selecting an already selected factor
// behaves like SetWeight.
func (w *WeightConfig) Select(id catalog.FactorID, weight float64) (*WeightConfig, error) {
	return w.SetWeight(id, weight)
}

// SetWeight changes (or adds) one factor's weight and re-normalizes.
func (w *WeightConfig) SetWeight(id catalog.FactorID, weight float64) (*WeightConfig, error) {
	raw := make(map[catalog.FactorID]float64, len(w.selected)+1)
	selected := append([]catalog.FactorID(nil), w.selected...)
	for _, s := range w.selected {
		raw[s] = float64(w.weights[s])
	}
	if !w.IsSelected(id) {
		selected = append(selected, id)
	}
	raw[id] = weight
	return NewWeightConfig(w.catalog, selected, raw)
}

type weightConfigJSON struct {
	SelectedFactors []catalog.FactorID       `json:"selectedFactors"`
	Weights         map[catalog.FactorID]int `json:"weights"`
	Sum             int                      `json:"sum"`
}

func (w *WeightConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(weightConfigJSON{
		SelectedFactors: w.Selected(),
		Weights:         w.Weights(),
		Sum:             w.Sum(),
	})
}
