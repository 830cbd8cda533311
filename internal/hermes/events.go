package hermes

import (
	"time"

	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
)

// Location mirrors the HTTP location object: coordinates are [lon, lat].
type Location struct {
	Ref         string    `json:"ref,omitempty"`
	Address     string    `json:"address,omitempty"`
	Coordinates []float64 `json:"coordinates,omitempty"`
}

// AssessmentRequestEvent asks for one location to be scored. RequestID is
// echoed back on the completed or rejected event.
type AssessmentRequestEvent struct {
	RequestID       string                       `json:"request_id"`
	AnalysisType    catalog.AnalysisType         `json:"analysis_type"`
	Location        Location                     `json:"location"`
	BufferRadiusKm  float64                      `json:"buffer_radius_km,omitempty"`
	SelectedFactors []catalog.FactorID           `json:"selected_factors"`
	Weights         map[catalog.FactorID]float64 `json:"weights,omitempty"`
}

type BatchRequestEvent struct {
	RequestID       string                       `json:"request_id"`
	AnalysisType    catalog.AnalysisType         `json:"analysis_type"`
	BufferRadiusKm  float64                      `json:"buffer_radius_km,omitempty"`
	SelectedFactors []catalog.FactorID           `json:"selected_factors"`
	Weights         map[catalog.FactorID]float64 `json:"weights,omitempty"`
	Locations       []Location                   `json:"locations"`
}

type AssessmentCompletedEvent struct {
	RequestID    string               `json:"request_id,omitempty"`
	AssessmentID string               `json:"assessment_id"`
	BatchID      string               `json:"batch_id,omitempty"`
	AnalysisType catalog.AnalysisType `json:"analysis_type"`
	Lat          float64              `json:"lat"`
	Lon          float64              `json:"lon"`
	OverallScore int                  `json:"overall_score"`
	RiskTier     string               `json:"risk_tier"`
	Fallbacks    []catalog.FactorID   `json:"fallbacks,omitempty"`
}

type BatchCompletedEvent struct {
	RequestID       string    `json:"request_id,omitempty"`
	BatchID         string    `json:"batch_id"`
	Total           int       `json:"total"`
	HighRiskCount   int       `json:"high_risk_count"`
	MediumRiskCount int       `json:"medium_risk_count"`
	LowRiskCount    int       `json:"low_risk_count"`
	ErrorCount      int       `json:"error_count"`
	CompletedAt     time.Time `json:"completed_at"`
}

type RequestRejectedEvent struct {
	RequestID string `json:"request_id,omitempty"`
	Kind      string `json:"kind"`
	Error     string `json:"error"`
}

type ProviderFallbackEvent struct {
	Factor    catalog.FactorID `json:"factor"`
	Category  string           `json:"category"`
	Cause     string           `json:"cause"`
	Lat       float64          `json:"lat"`
	Lon       float64          `json:"lon"`
	Timestamp time.Time        `json:"timestamp"`
}
