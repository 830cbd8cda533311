package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
	"github.com/MikeSquared-Agency/Georisk/internal/config"
	"github.com/MikeSquared-Agency/Georisk/internal/geodata"
	"github.com/MikeSquared-Agency/Georisk/internal/hermes"
	"github.com/MikeSquared-Agency/Georisk/internal/providers"
	"github.com/MikeSquared-Agency/Georisk/internal/scoring"
	"github.com/MikeSquared-Agency/Georisk/internal/store"
)

// ErrTooManyItems is returned when a batch exceeds batch.max_items.
var ErrTooManyItems = errors.New("batch exceeds the maximum number of locations")

// AssessRequest is a single-location request as callers send it. A nil
// SelectedFactors means the analysis type's defaults.
type AssessRequest struct {
	AnalysisType    catalog.AnalysisType
	Location        scoring.LocationRef
	BufferRadiusKm  float64
	SelectedFactors []catalog.FactorID
	Weights         map[catalog.FactorID]float64
	RequestID       string
}

type BatchAssessRequest struct {
	AnalysisType    catalog.AnalysisType
	BufferRadiusKm  float64
	SelectedFactors []catalog.FactorID
	Weights         map[catalog.FactorID]float64
	Locations       []scoring.LocationRef
	RequestID       string
}

// Broker turns caller requests into assessments: it resolves locations and
// weights, runs the engine, persists the result and publishes events.
type Broker struct {
	catalog  *catalog.Catalog
	scorer   scoring.Scorer
	runner   *scoring.BatchRunner
	geocoder geodata.Geocoder
	store    store.Store
	hermes   hermes.Client
	cfg      *config.Config
	logger   *slog.Logger

	mu       sync.Mutex
	stopped  bool
	inflight sync.WaitGroup
	stopCh   chan struct{}
}

func New(cat *catalog.Catalog, sc scoring.Scorer, runner *scoring.BatchRunner, g geodata.Geocoder, s store.Store, h hermes.Client, cfg *config.Config, logger *slog.Logger) *Broker {
	return &Broker{
		catalog:  cat,
		scorer:   sc,
		runner:   runner,
		geocoder: g,
		store:    s,
		hermes:   h,
		cfg:      cfg,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

func (b *Broker) Catalog() *catalog.Catalog { return b.catalog }

// Stop waits for NATS-initiated requests that are still being scored.
func (b *Broker) Stop() {
	b.mu.Lock()
	if !b.stopped {
		b.stopped = true
		close(b.stopCh)
	}
	b.mu.Unlock()
	b.inflight.Wait()
}

func (b *Broker) radius(r float64) float64 {
	if r <= 0 {
		return b.cfg.Scoring.DefaultBufferRadiusKm
	}
	return r
}

// Assess scores one location and stores the assessment.
func (b *Broker) Assess(ctx context.Context, req AssessRequest) (*scoring.Assessment, error) {
	w, err := scoring.WeightsFor(b.catalog, req.AnalysisType, req.SelectedFactors, req.Weights)
	if err != nil {
		return nil, err
	}
	p, err := scoring.ResolveLocation(ctx, b.geocoder, req.Location)
	if err != nil {
		return nil, err
	}

	a, err := b.scorer.Score(ctx, scoring.Request{
		AnalysisType:   req.AnalysisType,
		Location:       p,
		Address:        req.Location.Address,
		BufferRadiusKm: b.radius(req.BufferRadiusKm),
		Weights:        w,
	})
	if err != nil {
		return nil, err
	}

	if err := b.store.SaveAssessment(ctx, a); err != nil {
		return nil, fmt.Errorf("save assessment: %w", err)
	}
	b.publishAssessment(req.RequestID, a)
	b.logger.Info("assessment completed",
		"id", a.ID, "analysis_type", a.AnalysisType, "score", a.OverallScore, "tier", a.Tier)
	return a, nil
}

// AssessBatch scores every location. Item failures are recorded in the
// summary; only an invalid shared configuration or an oversized batch fail
// the whole request.
func (b *Broker) AssessBatch(ctx context.Context, req BatchAssessRequest) (*scoring.BatchSummary, error) {
	if limit := b.cfg.Batch.MaxItems; limit > 0 && len(req.Locations) > limit {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyItems, len(req.Locations), limit)
	}
	w, err := scoring.WeightsFor(b.catalog, req.AnalysisType, req.SelectedFactors, req.Weights)
	if err != nil {
		return nil, err
	}

	summary, err := b.runner.Run(ctx, scoring.BatchRequest{
		AnalysisType:   req.AnalysisType,
		BufferRadiusKm: b.radius(req.BufferRadiusKm),
		Weights:        w,
		Locations:      req.Locations,
	})
	if err != nil {
		return nil, err
	}

	if err := b.store.SaveBatch(ctx, summary); err != nil {
		return nil, fmt.Errorf("save batch: %w", err)
	}
	for _, item := range summary.Items {
		if item.Assessment != nil {
			b.publishAssessment("", item.Assessment)
		}
	}
	b.publish(hermes.SubjectBatchCompleted(summary.ID), hermes.BatchCompletedEvent{
		RequestID:       req.RequestID,
		BatchID:         summary.ID,
		Total:           summary.Total,
		HighRiskCount:   summary.HighRiskCount,
		MediumRiskCount: summary.MediumRiskCount,
		LowRiskCount:    summary.LowRiskCount,
		ErrorCount:      summary.ErrorCount,
		CompletedAt:     summary.CompletedAt,
	})
	return summary, nil
}

// PublishFallback is installed as the providers' OnFallback hook.
func (b *Broker) PublishFallback(_ context.Context, ev providers.FallbackEvent) {
	b.publish(hermes.SubjectProviderFallback(string(ev.Factor)), hermes.ProviderFallbackEvent{
		Factor:    ev.Factor,
		Category:  ev.Category,
		Cause:     ev.Cause,
		Lat:       ev.Point.Lat,
		Lon:       ev.Point.Lon,
		Timestamp: ev.At,
	})
}

func (b *Broker) publishAssessment(requestID string, a *scoring.Assessment) {
	b.publish(hermes.SubjectAssessmentCompleted(a.ID), hermes.AssessmentCompletedEvent{
		RequestID:    requestID,
		AssessmentID: a.ID,
		BatchID:      a.BatchID,
		AnalysisType: a.AnalysisType,
		Lat:          a.Location.Lat,
		Lon:          a.Location.Lon,
		OverallScore: a.OverallScore,
		RiskTier:     string(a.Tier),
		Fallbacks:    a.Provenance.Fallbacks,
	})
}

func (b *Broker) publish(subject string, data interface{}) {
	if b.hermes == nil {
		return
	}
	if err := b.hermes.Publish(subject, data); err != nil {
		b.logger.Warn("publish failed", "subject", subject, "error", err)
	}
}

// SetupSubscriptions registers the NATS request subjects.
func (b *Broker) SetupSubscriptions() {
	if b.hermes == nil {
		return
	}

	if err := b.hermes.Subscribe(hermes.SubjectAssessmentRequest, func(_ string, data []byte) {
		var evt hermes.AssessmentRequestEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			b.logger.Warn("invalid assessment request event", "error", err)
			return
		}
		b.handle(func(ctx context.Context) {
			b.handleAssessmentRequest(ctx, evt)
		})
	}); err != nil {
		b.logger.Error("subscribe failed", "subject", hermes.SubjectAssessmentRequest, "error", err)
	}

	if err := b.hermes.Subscribe(hermes.SubjectBatchRequest, func(_ string, data []byte) {
		var evt hermes.BatchRequestEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			b.logger.Warn("invalid batch request event", "error", err)
			return
		}
		b.handle(func(ctx context.Context) {
			b.handleBatchRequest(ctx, evt)
		})
	}); err != nil {
		b.logger.Error("subscribe failed", "subject", hermes.SubjectBatchRequest, "error", err)
	}
}

// handle runs fn with a context that is cancelled when the broker stops.
func (b *Broker) handle(fn func(ctx context.Context)) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.inflight.Add(1)
	b.mu.Unlock()
	defer b.inflight.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-b.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	fn(ctx)
}

func (b *Broker) handleAssessmentRequest(ctx context.Context, evt hermes.AssessmentRequestEvent) {
	_, err := b.Assess(ctx, AssessRequest{
		AnalysisType:    evt.AnalysisType,
		Location:        locationRef(evt.Location),
		BufferRadiusKm:  evt.BufferRadiusKm,
		SelectedFactors: evt.SelectedFactors,
		Weights:         evt.Weights,
		RequestID:       evt.RequestID,
	})
	if err != nil {
		b.reject(hermes.SubjectAssessmentRejected, evt.RequestID, err)
	}
}

func (b *Broker) handleBatchRequest(ctx context.Context, evt hermes.BatchRequestEvent) {
	locs := make([]scoring.LocationRef, len(evt.Locations))
	for i, l := range evt.Locations {
		locs[i] = locationRef(l)
	}
	_, err := b.AssessBatch(ctx, BatchAssessRequest{
		AnalysisType:    evt.AnalysisType,
		BufferRadiusKm:  evt.BufferRadiusKm,
		SelectedFactors: evt.SelectedFactors,
		Weights:         evt.Weights,
		Locations:       locs,
		RequestID:       evt.RequestID,
	})
	if err != nil {
		b.reject(hermes.SubjectBatchRejected, evt.RequestID, err)
	}
}

func (b *Broker) reject(subject, requestID string, err error) {
	kind := string(scoring.KindOf(err))
	if kind == "" {
		kind = "internal"
		if errors.Is(err, ErrTooManyItems) {
			kind = "too_many_items"
		}
	}
	b.logger.Warn("request rejected", "subject", subject, "request_id", requestID, "kind", kind, "error", err)
	b.publish(subject, hermes.RequestRejectedEvent{RequestID: requestID, Kind: kind, Error: err.Error()})
}

func locationRef(l hermes.Location) scoring.LocationRef {
	return scoring.LocationRef{Ref: l.Ref, Address: l.Address, Coordinates: l.Coordinates}
}
