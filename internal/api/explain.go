package api

import (
	"net/http"

	"github.com/MikeSquared-Agency/Georisk/internal/scoring"
	"github.com/MikeSquared-Agency/Georisk/internal/store"
)

type ExplainHandler struct {
	store store.Store
}

func NewExplainHandler(s store.Store) *ExplainHandler {
	return &ExplainHandler{store: s}
}

// Explain returns the ranked factor breakdown for an assessment.
// GET /api/v1/assessments/{id}/explain
func (h *ExplainHandler) Explain(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "assessment not found")
	if !ok {
		return
	}
	a, err := h.store.GetAssessment(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error(), Kind: "internal"})
		return
	}
	if a == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "assessment not found", Kind: "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, scoring.Explain(a))
}
