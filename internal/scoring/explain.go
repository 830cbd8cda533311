package scoring

import (
	"math"
	"sort"

	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
)

// mitigationThreshold is the raw score at which a ranked factor earns a
// mitigation hint.
const mitigationThreshold = 50

// Rank orders factors by raw score times weight, highest first, and returns
// at most n of them. Equal keys keep their breakdown (catalog) order, so the
// ranking is deterministic.
func Rank(breakdown []FactorScore, n int) []FactorScore {
	ranked := append([]FactorScore(nil), breakdown...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score*float64(ranked[i].Weight) > ranked[j].Score*float64(ranked[j].Weight)
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// TopExplanations returns the explanation strings of the n highest-ranked
// factors.
func TopExplanations(breakdown []FactorScore, n int) []string {
	out := []string{}
	for _, fs := range Rank(breakdown, n) {
		out = append(out, fs.Explanation)
	}
	return out
}

// Mitigations returns catalog mitigation hints for the n highest-ranked
// factors that scored at least 50.
func Mitigations(breakdown []FactorScore, cat *catalog.Catalog, n int) []string {
	out := []string{}
	for _, fs := range Rank(breakdown, n) {
		if fs.Score < mitigationThreshold {
			continue
		}
		f, ok := cat.Factor(fs.Factor)
		if !ok || f.Mitigation == "" {
			continue
		}
		out = append(out, f.Mitigation)
	}
	return out
}

// ExplainEntry is one ranked line of an explanation.
type ExplainEntry struct {
	Rank         int              `json:"rank"`
	Factor       catalog.FactorID `json:"factor"`
	Name         string           `json:"name"`
	Score        float64          `json:"score"`
	Weight       int              `json:"weight"`
	Contribution float64          `json:"contribution"`
	SharePct     float64          `json:"sharePct"`
	Explanation  string           `json:"explanation"`
	Source       string           `json:"source"`
}

// Explanation is the full ranked breakdown of a stored assessment.
type Explanation struct {
	AssessmentID string         `json:"assessmentId"`
	OverallScore int            `json:"overallScore"`
	Tier         Tier           `json:"riskTier"`
	Factors      []ExplainEntry `json:"factors"`
	Mitigations  []string       `json:"mitigations"`
}

// Explain ranks every factor of a, with each factor's share of the total
// contribution.
func Explain(a *Assessment) Explanation {
	var total float64
	for _, fs := range a.FactorBreakdown {
		total += fs.Contribution
	}
	out := Explanation{
		AssessmentID: a.ID,
		OverallScore: a.OverallScore,
		Tier:         a.Tier,
		Factors:      []ExplainEntry{},
		Mitigations:  a.Mitigations,
	}
	for i, fs := range Rank(a.FactorBreakdown, 0) {
		share := 0.0
		if total > 0 {
			share = math.Round(fs.Contribution/total*1000) / 10
		}
		out.Factors = append(out.Factors, ExplainEntry{
			Rank:         i + 1,
			Factor:       fs.Factor,
			Name:         fs.Name,
			Score:        fs.Score,
			Weight:       fs.Weight,
			Contribution: fs.Contribution,
			SharePct:     share,
			Explanation:  fs.Explanation,
			Source:       string(fs.Source),
		})
	}
	return out
}
