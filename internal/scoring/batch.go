package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
	"github.com/MikeSquared-Agency/Georisk/internal/geodata"
	"github.com/MikeSquared-Agency/Georisk/internal/metrics"
)

const (
	DefaultBatchConcurrency = 8
	DefaultItemTimeout      = 20 * time.Second
)

// Item error kinds beyond the scoring ErrorKinds.
const (
	itemKindTimeout  = "timeout"
	itemKindInternal = "internal"
)

// Scorer is the single-location path the batch runner fans out over.
type Scorer interface {
	Score(ctx context.Context, req Request) (*Assessment, error)
}

// ItemError describes why one batch item has no assessment.
type ItemError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// BatchItem holds either an assessment or an error, never both.
type BatchItem struct {
	Ref        string         `json:"ref,omitempty"`
	Location   *geodata.Point `json:"location,omitempty"`
	Assessment *Assessment    `json:"assessment,omitempty"`
	Error      *ItemError     `json:"error,omitempty"`
}

// BatchSummary aggregates a batch. HighRiskCount + MediumRiskCount +
// LowRiskCount always equals Total - ErrorCount.
type BatchSummary struct {
	ID              string               `json:"id"`
	AnalysisType    catalog.AnalysisType `json:"analysisType"`
	Total           int                  `json:"total"`
	HighRiskCount   int                  `json:"highRiskCount"`
	MediumRiskCount int                  `json:"mediumRiskCount"`
	LowRiskCount    int                  `json:"lowRiskCount"`
	ErrorCount      int                  `json:"errorCount"`
	Items           []BatchItem          `json:"items"`
	StartedAt       time.Time            `json:"startedAt"`
	CompletedAt     time.Time            `json:"completedAt"`
}

// BatchRequest carries the settings shared by every location in a batch.
type BatchRequest struct {
	AnalysisType   catalog.AnalysisType
	BufferRadiusKm float64
	Weights        *WeightConfig
	Locations      []LocationRef
}

// BatchRunner scores many locations with bounded concurrency. One item's
// failure never affects another.
type BatchRunner struct {
	scorer      Scorer
	geocoder    geodata.Geocoder
	concurrency int64
	itemTimeout time.Duration
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewBatchRunner(scorer Scorer, geocoder geodata.Geocoder, concurrency int, itemTimeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *BatchRunner {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	if itemTimeout <= 0 {
		itemTimeout = DefaultItemTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchRunner{
		scorer:      scorer,
		geocoder:    geocoder,
		concurrency: int64(concurrency),
		itemTimeout: itemTimeout,
		metrics:     m,
		logger:      logger,
	}
}

// Run scores every location and returns the summary with items in input
// order. The weight config is validated once up front; an invalid config is
// the only error Run returns.
func (b *BatchRunner) Run(ctx context.Context, req BatchRequest) (*BatchSummary, error) {
	if err := req.Weights.Validate(); err != nil {
		return nil, err
	}

	summary := &BatchSummary{
		ID:           uuid.NewString(),
		AnalysisType: req.AnalysisType,
		Total:        len(req.Locations),
		Items:        make([]BatchItem, len(req.Locations)),
		StartedAt:    time.Now().UTC(),
	}

	sem := semaphore.NewWeighted(b.concurrency)
	var wg sync.WaitGroup
	for i, ref := range req.Locations {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Cancelled before this item started; the rest never run either.
			for j := i; j < len(req.Locations); j++ {
				summary.Items[j] = errorItem(req.Locations[j], nil, itemKindTimeout, "batch cancelled before item started")
			}
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			summary.Items[i] = b.runItem(ctx, summary.ID, req, ref)
		}()
	}
	wg.Wait()

	for _, item := range summary.Items {
		if item.Error != nil {
			summary.ErrorCount++
			b.metrics.IncBatchItem("error")
			continue
		}
		b.metrics.IncBatchItem("ok")
		switch item.Assessment.Tier {
		case TierHigh:
			summary.HighRiskCount++
		case TierMedium:
			summary.MediumRiskCount++
		default:
			summary.LowRiskCount++
		}
	}
	summary.CompletedAt = time.Now().UTC()

	b.logger.Info("batch completed",
		"batch_id", summary.ID, "total", summary.Total, "errors", summary.ErrorCount,
		"high", summary.HighRiskCount, "medium", summary.MediumRiskCount, "low", summary.LowRiskCount,
		"duration", summary.CompletedAt.Sub(summary.StartedAt))
	return summary, nil
}

func (b *BatchRunner) runItem(ctx context.Context, batchID string, req BatchRequest, ref LocationRef) (item BatchItem) {
	ctx, cancel := context.WithTimeout(ctx, b.itemTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("batch item panicked", "batch_id", batchID, "ref", ref.Ref, "panic", r)
			item = errorItem(ref, item.Location, itemKindInternal, fmt.Sprintf("internal error: %v", r))
		}
	}()

	p, err := ResolveLocation(ctx, b.geocoder, ref)
	if err != nil {
		return errorItem(ref, nil, itemKind(err), err.Error())
	}
	loc := p

	a, err := b.scorer.Score(ctx, Request{
		AnalysisType:   req.AnalysisType,
		Location:       p,
		Address:        ref.Address,
		BufferRadiusKm: req.BufferRadiusKm,
		Weights:        req.Weights,
		BatchID:        batchID,
	})
	if err != nil {
		return errorItem(ref, &loc, itemKind(err), err.Error())
	}
	return BatchItem{Ref: ref.Ref, Location: &loc, Assessment: a}
}

func itemKind(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return itemKindTimeout
	}
	if k := KindOf(err); k != "" {
		return string(k)
	}
	return itemKindInternal
}

func errorItem(ref LocationRef, loc *geodata.Point, kind, msg string) BatchItem {
	return BatchItem{Ref: ref.Ref, Location: loc, Error: &ItemError{Kind: kind, Message: msg}}
}
