package receipt

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/adrs-io/adrs/pkg/logging"
)

const (
	defaultDashboardLimit = 50
	maxDashboardLimit     = 100
	defaultRiskThreshold  = 0.5
)

// Handler exposes the receipt core over HTTP.
type Handler struct {
	builder *Builder
	reviews *ReviewService
	store   Store
	recent  *RecentIndex
	logger  *logging.Logger
}

// NewHandler creates the receipt HTTP handler. recent may be nil.
func NewHandler(builder *Builder, reviews *ReviewService, store Store, recent *RecentIndex, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		builder: builder,
		reviews: reviews,
		store:   store,
		recent:  recent,
		logger:  logger,
	}
}

// ExecuteInference handles POST /api/inference.
func (h *Handler) ExecuteInference(w http.ResponseWriter, r *http.Request) {
	var req InferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := h.builder.Execute(r.Context(), req)
	if err != nil {
		h.writeCoreError(w, err)
		return
	}

	if err := h.recent.Push(r.Context(), receipt); err != nil {
		h.logger.Warn("failed to index recent receipt", "receipt_id", receipt.ID, "error", err)
	}

	writeJSON(w, http.StatusCreated, receipt)
}

// GetReceipt handles GET /api/receipts/{id}.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	receipt, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// ReviewReceipt handles POST /api/receipts/{id}/review.
func (h *Handler) ReviewReceipt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := h.reviews.Review(r.Context(), id, req)
	if err != nil {
		h.writeCoreError(w, err)
		return
	}

	if err := h.recent.Invalidate(r.Context()); err != nil {
		h.logger.Warn("failed to invalidate recent index", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "review recorded",
		"receiptId": receipt.ID,
		"status":    receipt.ApprovalStatus,
	})
}

// Dashboard handles GET /api/audit/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultDashboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= maxDashboardLimit {
			limit = n
		}
	}
	statusFilter := ApprovalStatus(r.URL.Query().Get("status"))
	if statusFilter != "" && !statusFilter.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	receipts, err := h.recent.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Warn("recent index read failed, falling back to store", "error", err)
		receipts = nil
	}
	// An invalidated cache rebuilds from subsequent creations only, so a
	// short list may be a partial window rather than the whole corpus. Trust
	// it only when it can fill the request.
	if len(receipts) < limit {
		receipts, err = h.store.List(r.Context(), limit)
		if err != nil {
			h.writeCoreError(w, err)
			return
		}
	}

	if statusFilter != "" {
		filtered := receipts[:0]
		for _, rec := range receipts {
			if rec.ApprovalStatus == statusFilter {
				filtered = append(filtered, rec)
			}
		}
		receipts = filtered
	}
	if receipts == nil {
		receipts = []DecisionReceipt{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"receipts": receipts,
		"count":    len(receipts),
	})
}

// Export handles GET /api/receipts/{id}/export.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	receipt, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.writeCoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(RenderGovernanceReport(receipt)))
}

// Trends handles GET /api/analytics/trends.
func (h *Handler) Trends(w http.ResponseWriter, r *http.Request) {
	receipts, err := h.store.ListAll(r.Context())
	if err != nil {
		h.writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trends": AnalyzeTrends(receipts)})
}

// Drift handles GET /api/analytics/drift.
func (h *Handler) Drift(w http.ResponseWriter, r *http.Request) {
	receipts, err := h.store.ListAll(r.Context())
	if err != nil {
		h.writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"drift": DetectDrift(receipts)})
}

// Risks handles GET /api/analytics/risks.
func (h *Handler) Risks(w http.ResponseWriter, r *http.Request) {
	threshold := defaultRiskThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(parsed) || parsed < 0 || parsed > 1 {
			writeError(w, http.StatusBadRequest, "threshold must be a number between 0 and 1")
			return
		}
		threshold = parsed
	}

	receipts, err := h.store.ListAll(r.Context())
	if err != nil {
		h.writeCoreError(w, err)
		return
	}
	risks := DetectAnomalies(receipts, threshold)
	if risks == nil {
		risks = []DecisionReceipt{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"threshold": threshold,
		"risks":     risks,
	})
}

// writeCoreError maps core error kinds to HTTP statuses. Internal failures
// are reported generically so raw error text never reaches the client.
func (h *Handler) writeCoreError(w http.ResponseWriter, err error) {
	var validationErr *ValidationError
	var invocationErr *InvocationError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "receipt not found")
	case errors.Is(err, ErrInvalidTransition):
		writeError(w, http.StatusConflict, "receipt has already been reviewed")
	case errors.As(err, &invocationErr):
		writeError(w, http.StatusBadGateway, "inference backend failed")
	default:
		h.logger.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
