// smoke_batch.go posts a grid of coordinates as one batch to a running
// georisk instance and prints the tier counts.
//
// Usage:
//
//	go run scripts/smoke_batch.go -api http://localhost:8700 -lat 29.76 -lon -95.37 -n 5 -step 0.01
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

type location struct {
	Coordinates []float64 `json:"coordinates"`
}

type batchRequest struct {
	AnalysisType   string     `json:"analysisType"`
	BufferRadiusKm float64    `json:"bufferRadiusKm,omitempty"`
	Locations      []location `json:"locations"`
}

type batchSummary struct {
	ID              string `json:"id"`
	Total           int    `json:"total"`
	HighRiskCount   int    `json:"highRiskCount"`
	MediumRiskCount int    `json:"mediumRiskCount"`
	LowRiskCount    int    `json:"lowRiskCount"`
	ErrorCount      int    `json:"errorCount"`
}

func main() {
	apiURL := flag.String("api", "http://localhost:8700", "georisk API base URL")
	analysisType := flag.String("type", "home", "analysis type")
	lat := flag.Float64("lat", 29.76, "grid origin latitude")
	lon := flag.Float64("lon", -95.37, "grid origin longitude")
	n := flag.Int("n", 3, "grid size per side")
	step := flag.Float64("step", 0.01, "grid spacing in degrees")
	dryRun := flag.Bool("dry-run", false, "print the request without posting")
	flag.Parse()

	req := batchRequest{AnalysisType: *analysisType}
	for i := 0; i < *n; i++ {
		for j := 0; j < *n; j++ {
			req.Locations = append(req.Locations, location{
				Coordinates: []float64{*lon + float64(j)**step, *lat + float64(i)**step},
			})
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		log.Fatalf("marshal: %v", err)
	}
	if *dryRun {
		os.Stdout.Write(body)
		fmt.Println()
		return
	}

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Post(*apiURL+"/api/v1/assessments/batch", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("post batch: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("batch failed: %s", resp.Status)
	}

	var s batchSummary
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		log.Fatalf("decode summary: %v", err)
	}
	fmt.Printf("batch %s: total=%d high=%d medium=%d low=%d errors=%d\n",
		s.ID, s.Total, s.HighRiskCount, s.MediumRiskCount, s.LowRiskCount, s.ErrorCount)
}
