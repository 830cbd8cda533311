package store

import (
	"context"
	"time"

	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
	"github.com/MikeSquared-Agency/Georisk/internal/geodata"
	"github.com/MikeSquared-Agency/Georisk/internal/scoring"
)

type AssessmentFilter struct {
	BatchID      string
	Tier         scoring.Tier
	AnalysisType catalog.AnalysisType
	Limit        int
	Offset       int
}

// BatchItemRecord is a stored batch item; the assessment itself lives in the
// assessments table.
type BatchItemRecord struct {
	Ref          string             `json:"ref,omitempty"`
	Location     *geodata.Point     `json:"location,omitempty"`
	AssessmentID string             `json:"assessmentId,omitempty"`
	Tier         scoring.Tier       `json:"riskTier,omitempty"`
	Error        *scoring.ItemError `json:"error,omitempty"`
}

type BatchRecord struct {
	ID              string               `json:"id"`
	AnalysisType    catalog.AnalysisType `json:"analysisType"`
	Total           int                  `json:"total"`
	HighRiskCount   int                  `json:"highRiskCount"`
	MediumRiskCount int                  `json:"mediumRiskCount"`
	LowRiskCount    int                  `json:"lowRiskCount"`
	ErrorCount      int                  `json:"errorCount"`
	Items           []BatchItemRecord    `json:"items"`
	StartedAt       time.Time            `json:"startedAt"`
	CompletedAt     time.Time            `json:"completedAt"`
}

type Stats struct {
	TotalAssessments int `json:"totalAssessments"`
	HighRisk         int `json:"highRisk"`
	MediumRisk       int `json:"mediumRisk"`
	LowRisk          int `json:"lowRisk"`
	WithFallbacks    int `json:"withFallbacks"`
	TotalBatches     int `json:"totalBatches"`
	BatchItemErrors  int `json:"batchItemErrors"`
}

// Store persists assessments and batch summaries. Lookups of a missing id
// return nil, nil.
type Store interface {
	SaveAssessment(ctx context.Context, a *scoring.Assessment) error
	GetAssessment(ctx context.Context, id string) (*scoring.Assessment, error)
	ListAssessments(ctx context.Context, filter AssessmentFilter) ([]*scoring.Assessment, error)

	// SaveBatch stores the summary and every successful item's assessment.
	SaveBatch(ctx context.Context, s *scoring.BatchSummary) error
	GetBatch(ctx context.Context, id string) (*BatchRecord, error)

	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

const defaultListLimit = 100

// BatchRecordFrom flattens a summary for storage.
func BatchRecordFrom(s *scoring.BatchSummary) *BatchRecord {
	rec := &BatchRecord{
		ID:              s.ID,
		AnalysisType:    s.AnalysisType,
		Total:           s.Total,
		HighRiskCount:   s.HighRiskCount,
		MediumRiskCount: s.MediumRiskCount,
		LowRiskCount:    s.LowRiskCount,
		ErrorCount:      s.ErrorCount,
		Items:           make([]BatchItemRecord, 0, len(s.Items)),
		StartedAt:       s.StartedAt,
		CompletedAt:     s.CompletedAt,
	}
	for _, item := range s.Items {
		r := BatchItemRecord{Ref: item.Ref, Location: item.Location, Error: item.Error}
		if item.Assessment != nil {
			r.AssessmentID = item.Assessment.ID
			r.Tier = item.Assessment.Tier
		}
		rec.Items = append(rec.Items, r)
	}
	return rec
}
