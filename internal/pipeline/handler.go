package pipeline

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/gorilla/mux"
)

// Handler exposes the daily run to an external scheduler.
type Handler struct {
	orchestrator *Orchestrator
	loc          *time.Location
	now          func() time.Time
}

func NewHandler(orchestrator *Orchestrator, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{orchestrator: orchestrator, loc: loc, now: time.Now}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/jobs/daily", h.RunDaily).Methods("POST")
	router.HandleFunc("/jobs/daily/last", h.LastRun).Methods("GET")
}

// RunDaily runs the pipeline for ?date=YYYY-MM-DD, today when omitted.
func (h *Handler) RunDaily(w http.ResponseWriter, r *http.Request) {
	date := domain.DateOf(h.now(), h.loc)
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := domain.ParseDate(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		date = d
	}

	run, err := h.orchestrator.Run(r.Context(), date)
	if errors.Is(err, ErrAlreadyRunning) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil && run == nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if run.Status == StatusFailed {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, run)
}

func (h *Handler) LastRun(w http.ResponseWriter, r *http.Request) {
	run := h.orchestrator.LastRun()
	if run == nil {
		http.Error(w, "no daily run recorded yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
