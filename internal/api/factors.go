package api

import (
	"encoding/json"
	"net/http"

	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
	"github.com/MikeSquared-Agency/Georisk/internal/scoring"
)

type FactorsHandler struct {
	catalog *catalog.Catalog
}

func NewFactorsHandler(cat *catalog.Catalog) *FactorsHandler {
	return &FactorsHandler{catalog: cat}
}

type factorsResponse struct {
	AnalysisType   catalog.AnalysisType         `json:"analysisType,omitempty"`
	AnalysisTypes  []catalog.AnalysisType       `json:"analysisTypes"`
	Factors        []catalog.Factor             `json:"factors"`
	DefaultWeights map[catalog.FactorID]float64 `json:"defaultWeights,omitempty"`
}

// List returns the catalog, or the factors and default weights for one
// analysis type. An unknown type yields an empty factor list.
// GET /api/v1/factors?analysis_type=
func (h *FactorsHandler) List(w http.ResponseWriter, r *http.Request) {
	resp := factorsResponse{AnalysisTypes: h.catalog.AnalysisTypes()}
	t := catalog.AnalysisType(r.URL.Query().Get("analysis_type"))
	if t == "" {
		resp.Factors = h.catalog.All()
	} else {
		resp.AnalysisType = t
		resp.Factors = h.catalog.FactorsFor(t)
		resp.DefaultWeights = h.catalog.DefaultWeightsFor(t)
	}
	if resp.Factors == nil {
		resp.Factors = []catalog.Factor{}
	}
	writeJSON(w, http.StatusOK, resp)
}

type normalizeRequest struct {
	AnalysisType    catalog.AnalysisType         `json:"analysisType"`
	SelectedFactors []catalog.FactorID           `json:"selectedFactors"`
	Weights         map[catalog.FactorID]float64 `json:"weights"`
	Deselect        catalog.FactorID             `json:"deselect"`
}

// Normalize validates a selection and returns the integer weights the engine
// would use. With analysisType set, applicability is checked and an absent
// selection means that type's defaults.
// POST /api/v1/weights/normalize
func (h *FactorsHandler) Normalize(w http.ResponseWriter, r *http.Request) {
	var req normalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON: " + err.Error(), Kind: "invalid_request"})
		return
	}

	var (
		wc  *scoring.WeightConfig
		err error
	)
	if req.AnalysisType != "" {
		wc, err = scoring.WeightsFor(h.catalog, req.AnalysisType, req.SelectedFactors, req.Weights)
	} else {
		wc, err = scoring.NewWeightConfig(h.catalog, req.SelectedFactors, req.Weights)
	}
	if err == nil && req.Deselect != "" {
		wc, err = wc.Deselect(req.Deselect)
	}
	if err != nil {
		status, kind := statusFor(err)
		writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind})
		return
	}
	writeJSON(w, http.StatusOK, wc)
}
