package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Georisk/internal/broker"
	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
	"github.com/MikeSquared-Agency/Georisk/internal/scoring"
	"github.com/MikeSquared-Agency/Georisk/internal/store"
)

type AssessmentsHandler struct {
	broker *broker.Broker
	store  store.Store
	logger *slog.Logger
}

func NewAssessmentsHandler(b *broker.Broker, s store.Store, logger *slog.Logger) *AssessmentsHandler {
	return &AssessmentsHandler{broker: b, store: s, logger: logger}
}

type scoringRequest struct {
	AnalysisType    catalog.AnalysisType         `json:"analysisType"`
	Location        scoring.LocationRef          `json:"location"`
	BufferRadiusKm  float64                      `json:"bufferRadiusKm"`
	SelectedFactors []catalog.FactorID           `json:"selectedFactors"`
	Weights         map[catalog.FactorID]float64 `json:"weights"`
}

type batchRequest struct {
	AnalysisType    catalog.AnalysisType         `json:"analysisType"`
	BufferRadiusKm  float64                      `json:"bufferRadiusKm"`
	SelectedFactors []catalog.FactorID           `json:"selectedFactors"`
	Weights         map[catalog.FactorID]float64 `json:"weights"`
	Locations       []scoring.LocationRef        `json:"locations"`
}

// Create scores one location.
// POST /api/v1/assessments
func (h *AssessmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req scoringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON: " + err.Error(), Kind: "invalid_request"})
		return
	}
	if req.AnalysisType == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "analysisType is required", Kind: "invalid_request"})
		return
	}

	a, err := h.broker.Assess(r.Context(), broker.AssessRequest{
		AnalysisType:    req.AnalysisType,
		Location:        req.Location,
		BufferRadiusKm:  req.BufferRadiusKm,
		SelectedFactors: req.SelectedFactors,
		Weights:         req.Weights,
		RequestID:       r.Header.Get("X-Request-Id"),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// Batch scores a list of locations. Per-item failures are reported inside
// the summary, so the response is 200 even if every item failed.
// POST /api/v1/assessments/batch
func (h *AssessmentsHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON: " + err.Error(), Kind: "invalid_request"})
		return
	}
	if req.AnalysisType == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "analysisType is required", Kind: "invalid_request"})
		return
	}

	summary, err := h.broker.AssessBatch(r.Context(), broker.BatchAssessRequest{
		AnalysisType:    req.AnalysisType,
		BufferRadiusKm:  req.BufferRadiusKm,
		SelectedFactors: req.SelectedFactors,
		Weights:         req.Weights,
		Locations:       req.Locations,
		RequestID:       r.Header.Get("X-Request-Id"),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *AssessmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "assessment not found")
	if !ok {
		return
	}
	a, err := h.store.GetAssessment(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if a == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "assessment not found", Kind: "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// List supports batch_id, tier, analysis_type, limit and offset filters.
func (h *AssessmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.AssessmentFilter{
		BatchID:      q.Get("batch_id"),
		AnalysisType: catalog.AnalysisType(q.Get("analysis_type")),
	}
	if v := q.Get("tier"); v != "" {
		tier, ok := scoring.ParseTier(v)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid tier " + v, Kind: "invalid_request"})
			return
		}
		filter.Tier = tier
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid " + name, Kind: "invalid_request"})
			return
		}
		*dst = n
	}

	list, err := h.store.ListAssessments(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AssessmentsHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "batch not found")
	if !ok {
		return
	}
	b, err := h.store.GetBatch(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if b == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "batch not found", Kind: "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// pathID reads the {id} URL parameter. Ids are UUIDs, so anything else cannot
// exist and is answered with 404 before reaching the store.
func pathID(w http.ResponseWriter, r *http.Request, notFound string) (string, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: notFound, Kind: "not_found"})
		return "", false
	}
	return id.String(), true
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// statusFor maps configuration errors to 400, location errors to 422 and
// everything else to 500.
func statusFor(err error) (int, string) {
	switch {
	case scoring.IsConfigError(err):
		return http.StatusBadRequest, string(scoring.KindOf(err))
	case scoring.IsLocationError(err):
		return http.StatusUnprocessableEntity, string(scoring.KindOf(err))
	case errors.Is(err, broker.ErrTooManyItems):
		return http.StatusBadRequest, "too_many_items"
	}
	return http.StatusInternalServerError, "internal"
}

func (h *AssessmentsHandler) writeError(w http.ResponseWriter, err error) {
	status, kind := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
