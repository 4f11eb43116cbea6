package review

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"product-imagery-server/modules/feedback"
	"product-imagery-server/modules/governance"
	"product-imagery-server/modules/workflow"
)

// Handler - REST surface for running the pipeline and reviewing its output.
type Handler struct {
	orchestrator *workflow.Orchestrator
	worker       *workflow.Worker
	store        *feedback.Store
	engine       *governance.Engine
	outputBase   string
}

// NewHandler - review handler over the shared pipeline components.
func NewHandler(
	orchestrator *workflow.Orchestrator,
	worker *workflow.Worker,
	store *feedback.Store,
	engine *governance.Engine,
	outputBase string,
) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		worker:       worker,
		store:        store,
		engine:       engine,
		outputBase:   outputBase,
	}
}

// RegisterRoutes - mount all review endpoints.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/generate", h.Generate).Methods("POST")
	r.HandleFunc("/api/enqueue", h.Enqueue).Methods("POST")
	r.HandleFunc("/api/feedback", h.AddFeedback).Methods("POST")
	r.HandleFunc("/api/feedback/stats", h.FeedbackStats).Methods("GET")
	r.HandleFunc("/api/feedback/{id}", h.GetFeedback).Methods("GET")
	r.HandleFunc("/api/regenerate/queue", h.RegenerationQueue).Methods("GET")
	r.HandleFunc("/api/regenerate", h.Regenerate).Methods("POST")
	r.HandleFunc("/api/artifacts/{tranche}", h.ListArtifacts).Methods("GET")
}

type generateRequest struct {
	ProductID  string `json:"product_id"`
	SkipVision bool   `json:"skip_vision"`
}

// Generate - run the pipeline synchronously for one product.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	result, err := h.orchestrator.Run(r.Context(), req.ProductID, workflow.Options{SkipVerification: req.SkipVision})
	if err != nil {
		status := http.StatusInternalServerError
		if result == nil {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type enqueueRequest struct {
	ProductID  string `json:"product_id"`
	Tranche    string `json:"tranche"`
	Class      string `json:"class"`
	Limit      int    `json:"limit"`
	SkipVision bool   `json:"skip_vision"`
}

// Enqueue - queue a generation job for background processing.
func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	if h.worker == nil {
		writeError(w, http.StatusServiceUnavailable, "job queue is not configured")
		return
	}

	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" && req.Tranche == "" && req.Class == "" {
		writeError(w, http.StatusBadRequest, "one of product_id, tranche, or class is required")
		return
	}

	job := workflow.Job{
		JobID:      fmt.Sprintf("job_%d", time.Now().UnixNano()),
		ProductID:  req.ProductID,
		Tranche:    req.Tranche,
		Class:      req.Class,
		Limit:      req.Limit,
		SkipVision: req.SkipVision,
	}
	if err := h.worker.Enqueue(r.Context(), job); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to enqueue: %v", err))
		return
	}

	log.Printf("📤 Enqueued %s", job.JobID)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":      job.JobID,
		"queue_depth": h.worker.QueueDepth(r.Context()),
	})
}

// AddFeedback - record a review and refresh the aggregated refinements so
// the next generation run picks them up.
func (h *Handler) AddFeedback(w http.ResponseWriter, r *http.Request) {
	var entry feedback.Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := h.store.Add(entry)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.store.AggregateRefinements(h.engine.ClassMapping())

	writeJSON(w, http.StatusCreated, saved)
}

// GetFeedback - look up the review for one artifact.
func (h *Handler) GetFeedback(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	entry, ok := h.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no feedback for %s", id))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// FeedbackStats - aggregate review counters.
func (h *Handler) FeedbackStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Stats())
}

// RegenerationQueue - artifacts currently flagged for regeneration.
func (h *Handler) RegenerationQueue(w http.ResponseWriter, r *http.Request) {
	worklist := h.store.RegenerationWorklist()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(worklist),
		"worklist": worklist,
	})
}

type regenerateOutcome struct {
	ArtifactID string `json:"artifact_id"`
	ProductID  string `json:"product_id"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// Regenerate - run the pipeline for every flagged artifact, clearing each
// flag once its product has been regenerated. One failure does not stop
// the rest of the worklist.
func (h *Handler) Regenerate(w http.ResponseWriter, r *http.Request) {
	worklist := h.store.RegenerationWorklist()
	outcomes := make([]regenerateOutcome, 0, len(worklist))

	for _, entry := range worklist {
		outcome := regenerateOutcome{ArtifactID: entry.ArtifactID, ProductID: entry.ProductID}

		if _, err := h.orchestrator.Run(r.Context(), entry.ProductID, workflow.Options{}); err != nil {
			outcome.Error = err.Error()
			outcomes = append(outcomes, outcome)
			continue
		}
		if err := h.store.MarkRegenerated(entry.ArtifactID); err != nil {
			outcome.Error = err.Error()
			outcomes = append(outcomes, outcome)
			continue
		}

		outcome.Success = true
		outcomes = append(outcomes, outcome)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"processed": len(outcomes),
		"outcomes":  outcomes,
	})
}

// ListArtifacts - generated images for one tranche with their sidecar and
// preview locations.
func (h *Handler) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	tranche := mux.Vars(r)["tranche"]
	artifacts, err := listArtifacts(h.outputBase, tranche)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tranche":   tranche,
		"count":     len(artifacts),
		"artifacts": artifacts,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("❌ Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
