package api

import (
	"net/http"

	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
	"github.com/MikeSquared-Agency/Georisk/internal/store"
)

// CircuitReporter exposes the breaker state of every provider.
type CircuitReporter interface {
	CircuitStates() map[catalog.FactorID]string
}

type AdminHandler struct {
	store    store.Store
	circuits CircuitReporter
}

func NewAdminHandler(s store.Store, c CircuitReporter) *AdminHandler {
	return &AdminHandler{store: s, circuits: c}
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error(), Kind: "internal"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type ProviderInfo struct {
	Factor  catalog.FactorID `json:"factor"`
	Circuit string           `json:"circuit"`
}

// Providers lists circuit states in catalog order.
func (h *AdminHandler) Providers(w http.ResponseWriter, r *http.Request) {
	infos := []ProviderInfo{}
	if h.circuits != nil {
		states := h.circuits.CircuitStates()
		for _, f := range catalog.DefaultFactors() {
			if s, ok := states[f.ID]; ok {
				infos = append(infos, ProviderInfo{Factor: f.ID, Circuit: s})
			}
		}
	}
	writeJSON(w, http.StatusOK, infos)
}
