package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
	"github.com/MikeSquared-Agency/Georisk/internal/geodata"
	"github.com/MikeSquared-Agency/Georisk/internal/metrics"
	"github.com/MikeSquared-Agency/Georisk/internal/providers"
)

// DefaultTopN is how many explanations an assessment carries.
const DefaultTopN = 3

// FactorScore is one line of an assessment's breakdown.
type FactorScore struct {
	Factor       catalog.FactorID `json:"factor"`
	Name         string           `json:"name"`
	Score        float64          `json:"score"`
	Weight       int              `json:"weight"`
	Contribution float64          `json:"contribution"`
	Explanation  string           `json:"explanation"`
	Source       providers.Source `json:"source"`
	SourceName   string           `json:"sourceName"`
	Metadata     map[string]any   `json:"metadata,omitempty"`
}

// Provenance records which data sources contributed to an assessment.
type Provenance struct {
	Datasets   []string           `json:"datasets"`
	Fallbacks  []catalog.FactorID `json:"fallbacks"`
	AnalyzedAt time.Time          `json:"analyzedAt"`
}

// Assessment is the scored result for one location.
type Assessment struct {
	ID              string                   `json:"id"`
	BatchID         string                   `json:"batchId,omitempty"`
	AnalysisType    catalog.AnalysisType     `json:"analysisType"`
	Location        geodata.Point            `json:"location"`
	Address         string                   `json:"address,omitempty"`
	BufferRadiusKm  float64                  `json:"bufferRadiusKm"`
	OverallScore    int                      `json:"overallScore"`
	Tier            Tier                     `json:"riskTier"`
	Weights         map[catalog.FactorID]int `json:"weights"`
	FactorBreakdown []FactorScore            `json:"factorBreakdown"`
	TopExplanations []string                 `json:"topExplanations"`
	Mitigations     []string                 `json:"mitigations"`
	Provenance      Provenance               `json:"provenance"`
}

// Request is a single-location scoring request. Weights must come from
// NewWeightConfig; the engine does not renormalize.
type Request struct {
	AnalysisType   catalog.AnalysisType
	Location       geodata.Point
	Address        string
	BufferRadiusKm float64
	Weights        *WeightConfig
	BatchID        string
}

// ProviderSource resolves the provider for a factor.
type ProviderSource interface {
	Get(id catalog.FactorID) (providers.Provider, bool)
}

// Engine combines provider observations into an assessment.
type Engine struct {
	catalog   *catalog.Catalog
	providers ProviderSource
	topN      int
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

type EngineOption func(*Engine)

func WithTopN(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.topN = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine checks that every catalog factor has a provider. A gap is a
// start-up error, not something to discover mid-request.
func NewEngine(cat *catalog.Catalog, ps ProviderSource, logger *slog.Logger, opts ...EngineOption) (*Engine, error) {
	for _, f := range cat.All() {
		if _, ok := ps.Get(f.ID); !ok {
			return nil, fmt.Errorf("%w: %s", ErrProviderMissing, f.ID)
		}
	}
	e := &Engine{
		catalog:   cat,
		providers: ps,
		topN:      DefaultTopN,
		logger:    logger,
		now:       time.Now,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Score fetches every selected factor concurrently and aggregates the result.
// Provider failures degrade to fallbacks; only invalid input, a missing
// provider or cancellation produce an error.
func (e *Engine) Score(ctx context.Context, req Request) (*Assessment, error) {
	start := time.Now()

	if err := req.Weights.Validate(); err != nil {
		return nil, err
	}
	if err := req.Location.Validate(); err != nil {
		return nil, &Error{Kind: KindInvalidLocation, Message: err.Error()}
	}

	selected := req.Weights.Selected()
	provs := make([]providers.Provider, len(selected))
	for i, id := range selected {
		p, ok := e.providers.Get(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrProviderMissing, id)
		}
		provs[i] = p
	}

	radius := providers.EffectiveRadiusKm(req.BufferRadiusKm)
	fc := providers.FetchContext{AnalysisType: req.AnalysisType, BufferRadiusKm: radius}

	observations := make([]providers.Observation, len(provs))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range provs {
		g.Go(func() error {
			observations[i] = p.Fetch(gctx, req.Location, fc).Observation()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scoring cancelled: %w", err)
	}

	breakdown, overall := Aggregate(e.catalog, req.Weights, observations)
	a := &Assessment{
		ID:              uuid.NewString(),
		BatchID:         req.BatchID,
		AnalysisType:    req.AnalysisType,
		Location:        req.Location,
		Address:         req.Address,
		BufferRadiusKm:  radius,
		OverallScore:    overall,
		Tier:            TierFor(overall),
		Weights:         req.Weights.Weights(),
		FactorBreakdown: breakdown,
		TopExplanations: TopExplanations(breakdown, e.topN),
		Mitigations:     Mitigations(breakdown, e.catalog, e.topN),
		Provenance:      provenanceOf(breakdown, e.now().UTC()),
	}

	e.metrics.ObserveScore(time.Since(start))
	e.metrics.IncAssessment(string(a.AnalysisType), string(a.Tier))
	e.logger.Debug("assessment scored",
		"id", a.ID, "analysis_type", a.AnalysisType, "score", a.OverallScore,
		"tier", a.Tier, "fallbacks", len(a.Provenance.Fallbacks), "duration", time.Since(start))
	return a, nil
}

// Aggregate weights each observation and sums the contributions. The
// breakdown follows the selection's catalog order; observations for factors
// outside the selection are ignored.
func Aggregate(cat *catalog.Catalog, w *WeightConfig, observations []providers.Observation) ([]FactorScore, int) {
	byFactor := make(map[catalog.FactorID]providers.Observation, len(observations))
	for _, o := range observations {
		byFactor[o.Factor] = o
	}

	breakdown := make([]FactorScore, 0, len(observations))
	var total float64
	for _, id := range w.Selected() {
		o, ok := byFactor[id]
		if !ok {
			continue
		}
		weight := w.Weight(id)
		contribution := o.RawScore * float64(weight) / WeightTotal
		total += contribution

		name := string(id)
		if f, ok := cat.Factor(id); ok {
			name = f.DisplayName
		}
		breakdown = append(breakdown, FactorScore{
			Factor:       id,
			Name:         name,
			Score:        o.RawScore,
			Weight:       weight,
			Contribution: math.Round(contribution*100) / 100,
			Explanation:  o.Explanation,
			Source:       o.Source,
			SourceName:   o.SourceName,
			Metadata:     o.Metadata,
		})
	}

	overall := int(math.Round(total))
	if overall < 0 {
		overall = 0
	}
	if overall > 100 {
		overall = 100
	}
	return breakdown, overall
}

func provenanceOf(breakdown []FactorScore, at time.Time) Provenance {
	p := Provenance{Datasets: []string{}, Fallbacks: []catalog.FactorID{}, AnalyzedAt: at}
	seen := make(map[string]bool)
	for _, fs := range breakdown {
		if fs.SourceName != "" && !seen[fs.SourceName] {
			seen[fs.SourceName] = true
			p.Datasets = append(p.Datasets, fs.SourceName)
		}
		if fs.Source == providers.SourceFallback {
			p.Fallbacks = append(p.Fallbacks, fs.Factor)
		}
	}
	return p
}
