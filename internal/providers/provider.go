package providers

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
	"github.com/MikeSquared-Agency/Georisk/internal/geodata"
)

// Source records which path produced an observation.
type Source string

const (
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
)

// Observation is one factor's raw signal at a location.
type Observation struct {
	Factor      catalog.FactorID `json:"factor"`
	RawScore    float64          `json:"rawScore"`
	Explanation string           `json:"explanation"`
	Source      Source           `json:"source"`
	SourceName  string           `json:"sourceName"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
}

// Result is either a PrimaryResult or a FallbackResult. Both carry the same
// observation shape; switch on the concrete type to learn which path ran.
type Result interface {
	Observation() Observation
	isResult()
}

type PrimaryResult struct {
	Obs Observation
}

func (r PrimaryResult) Observation() Observation { return r.Obs }
func (PrimaryResult) isResult()                  {}

// FallbackResult is produced when the primary source failed. Cause is the
// primary failure, kept for logging and provenance.
type FallbackResult struct {
	Obs      Observation
	Cause    error
	Category string
}

func (r FallbackResult) Observation() Observation { return r.Obs }
func (FallbackResult) isResult()                  {}

// FetchContext carries per-assessment parameters some factors need.
type FetchContext struct {
	AnalysisType   catalog.AnalysisType
	BufferRadiusKm float64
}

// Provider fetches one factor's observation. Fetch never fails: when the
// primary source is unavailable it returns a FallbackResult.
type Provider interface {
	Factor() catalog.FactorID
	Fetch(ctx context.Context, p geodata.Point, fc FetchContext) Result
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

func formatMetres(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64) + " m"
}

func neutral(factor catalog.FactorID, score float64, what string) Observation {
	return Observation{
		Factor:      factor,
		RawScore:    score,
		Explanation: fmt.Sprintf("%s unavailable; using neutral estimate", what),
		SourceName:  "neutral default",
	}
}
