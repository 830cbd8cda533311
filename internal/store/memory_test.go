package store

import (
	"context"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
	"github.com/MikeSquared-Agency/Georisk/internal/geodata"
	"github.com/MikeSquared-Agency/Georisk/internal/scoring"
)

func assessment(id string, score int, at time.Time) *scoring.Assessment {
	return &scoring.Assessment{
		ID:           id,
		AnalysisType: catalog.AnalysisHome,
		Location:     geodata.Point{Lat: 29.95, Lon: -90.07},
		OverallScore: score,
		Tier:         scoring.TierFor(score),
		Provenance:   scoring.Provenance{AnalyzedAt: at},
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()
	a, err := s.GetAssessment(context.Background(), "nope")
	if err != nil || a != nil {
		t.Errorf("got %v, %v; want nil, nil", a, err)
	}
	b, err := s.GetBatch(context.Background(), "nope")
	if err != nil || b != nil {
		t.Errorf("got %v, %v; want nil, nil", b, err)
	}
}

func TestMemoryStoreCopiesOnSave(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a := assessment("a1", 55, time.Now())
	if err := s.SaveAssessment(ctx, a); err != nil {
		t.Fatal(err)
	}
	a.OverallScore = 99

	got, _ := s.GetAssessment(ctx, "a1")
	if got == nil || got.OverallScore != 55 {
		t.Fatalf("stored copy was mutated: %+v", got)
	}
}

func TestMemoryStoreListFiltersAndPages(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	scores := []int{80, 20, 55, 90, 10}
	for i, sc := range scores {
		a := assessment(string(rune('a'+i)), sc, base.Add(time.Duration(i)*time.Minute))
		if err := s.SaveAssessment(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	all, _ := s.ListAssessments(ctx, AssessmentFilter{})
	if len(all) != 5 || all[0].ID != "e" || all[4].ID != "a" {
		t.Errorf("list should be newest first, got %d items starting at %v", len(all), all[0].ID)
	}

	high, _ := s.ListAssessments(ctx, AssessmentFilter{Tier: scoring.TierHigh})
	if len(high) != 2 || high[0].ID != "d" || high[1].ID != "a" {
		t.Errorf("high = %v", ids(high))
	}

	page, _ := s.ListAssessments(ctx, AssessmentFilter{Limit: 2, Offset: 1})
	if len(page) != 2 || page[0].ID != "d" || page[1].ID != "c" {
		t.Errorf("page = %v", ids(page))
	}

	empty, _ := s.ListAssessments(ctx, AssessmentFilter{Offset: 10})
	if empty == nil || len(empty) != 0 {
		t.Errorf("offset past end should be empty, got %v", empty)
	}

	none, _ := s.ListAssessments(ctx, AssessmentFilter{AnalysisType: catalog.AnalysisVehicle})
	if len(none) != 0 {
		t.Errorf("vehicle = %v", ids(none))
	}
}

func TestMemoryStoreBatch(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	ok := assessment("x1", 75, now)
	ok.BatchID = "b1"
	summary := &scoring.BatchSummary{
		ID:            "b1",
		AnalysisType:  catalog.AnalysisHome,
		Total:         2,
		HighRiskCount: 1,
		ErrorCount:    1,
		Items: []scoring.BatchItem{
			{Ref: "1", Location: &ok.Location, Assessment: ok},
			{Ref: "2", Error: &scoring.ItemError{Kind: string(scoring.KindGeocodingFailed), Message: "no match"}},
		},
		StartedAt:   now,
		CompletedAt: now,
	}
	if err := s.SaveBatch(ctx, summary); err != nil {
		t.Fatal(err)
	}

	rec, err := s.GetBatch(ctx, "b1")
	if err != nil || rec == nil {
		t.Fatalf("get batch: %v %v", rec, err)
	}
	if len(rec.Items) != 2 || rec.Items[0].AssessmentID != "x1" || rec.Items[0].Tier != scoring.TierHigh {
		t.Errorf("items = %+v", rec.Items)
	}
	if rec.Items[1].Error == nil || rec.Items[1].AssessmentID != "" {
		t.Errorf("failed item = %+v", rec.Items[1])
	}

	byBatch, _ := s.ListAssessments(ctx, AssessmentFilter{BatchID: "b1"})
	if len(byBatch) != 1 || byBatch[0].ID != "x1" {
		t.Errorf("batch assessments = %v", ids(byBatch))
	}
}

func TestMemoryStoreStats(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	fb := assessment("f", 45, now)
	fb.Provenance.Fallbacks = []catalog.FactorID{catalog.FactorFlood}
	for _, a := range []*scoring.Assessment{assessment("h", 70, now), assessment("l", 39, now), fb} {
		_ = s.SaveAssessment(ctx, a)
	}
	_ = s.SaveBatch(ctx, &scoring.BatchSummary{ID: "b", Total: 3, ErrorCount: 3, Items: []scoring.BatchItem{}})

	st, err := s.GetStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := Stats{TotalAssessments: 3, HighRisk: 1, MediumRisk: 1, LowRisk: 1, WithFallbacks: 1, TotalBatches: 1, BatchItemErrors: 3}
	if *st != want {
		t.Errorf("stats = %+v, want %+v", *st, want)
	}
}

func ids(as []*scoring.Assessment) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.ID
	}
	return out
}
