package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adrs-io/adrs/pkg/logging"
)

func newTestHandler(t *testing.T, store Store) *Handler {
	t.Helper()
	logger := logging.Default()
	builder := NewBuilder(store, echoInvoker("the answer"), logger)
	reviews := NewReviewService(store, logger, nil)
	return NewHandler(builder, reviews, store, nil, logger)
}

func testRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/inference", h.ExecuteInference)
	r.Get("/api/receipts/{id}", h.GetReceipt)
	r.Post("/api/receipts/{id}/review", h.ReviewReceipt)
	r.Get("/api/audit/dashboard", h.Dashboard)
	r.Get("/api/receipts/{id}/export", h.Export)
	r.Get("/api/analytics/trends", h.Trends)
	r.Get("/api/analytics/drift", h.Drift)
	r.Get("/api/analytics/risks", h.Risks)
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestExecuteInference_Created(t *testing.T) {
	store := NewMemoryStore()
	router := testRouter(newTestHandler(t, store))

	w := postJSON(t, router, "/api/inference", validRequest())
	require.Equal(t, http.StatusCreated, w.Code)

	var r DecisionReceipt
	require.NoError(t, json.NewDecoder(w.Body).Decode(&r))
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, StatusPending, r.ApprovalStatus)
	assert.Equal(t, "the answer", r.AIOutput)
}

func TestExecuteInference_MissingInput(t *testing.T) {
	router := testRouter(newTestHandler(t, NewMemoryStore()))

	req := validRequest()
	req.UserInput = ""
	w := postJSON(t, router, "/api/inference", req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "userInput")
}

func TestExecuteInference_MalformedBody(t *testing.T) {
	router := testRouter(newTestHandler(t, NewMemoryStore()))

	req := httptest.NewRequest(http.MethodPost, "/api/inference", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExecuteInference_InvokerFailureIsGeneric(t *testing.T) {
	store := NewMemoryStore()
	logger := logging.Default()
	builder := NewBuilder(store, failingInvoker(errors.New("secret backend detail")), logger)
	h := NewHandler(builder, NewReviewService(store, logger, nil), store, nil, logger)
	router := testRouter(h)

	w := postJSON(t, router, "/api/inference", validRequest())

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "secret backend detail")
}

func TestGetReceipt(t *testing.T) {
	store := NewMemoryStore()
	router := testRouter(newTestHandler(t, store))

	created := postJSON(t, router, "/api/inference", validRequest())
	var r DecisionReceipt
	require.NoError(t, json.NewDecoder(created.Body).Decode(&r))

	w := get(router, "/api/receipts/"+r.ID)
	require.Equal(t, http.StatusOK, w.Code)

	var got DecisionReceipt
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, r.ID, got.ID)

	assert.Equal(t, http.StatusNotFound, get(router, "/api/receipts/unknown").Code)
}

func TestReviewReceipt(t *testing.T) {
	store := NewMemoryStore()
	router := testRouter(newTestHandler(t, store))

	created := postJSON(t, router, "/api/inference", validRequest())
	var r DecisionReceipt
	require.NoError(t, json.NewDecoder(created.Body).Decode(&r))

	w := postJSON(t, router, "/api/receipts/"+r.ID+"/review", ReviewRequest{
		Status:     StatusApproved,
		ReviewerID: "auditor-7",
		Notes:      "looks right",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, r.ID, resp["receiptId"])
	assert.Equal(t, string(StatusApproved), resp["status"])

	// Second review conflicts.
	again := postJSON(t, router, "/api/receipts/"+r.ID+"/review", ReviewRequest{
		Status:     StatusRejected,
		ReviewerID: "auditor-8",
	})
	assert.Equal(t, http.StatusConflict, again.Code)
}

func TestReviewReceipt_InvalidStatus(t *testing.T) {
	store := NewMemoryStore()
	router := testRouter(newTestHandler(t, store))

	created := postJSON(t, router, "/api/inference", validRequest())
	var r DecisionReceipt
	require.NoError(t, json.NewDecoder(created.Body).Decode(&r))

	w := postJSON(t, router, "/api/receipts/"+r.ID+"/review", map[string]string{
		"status":     "MAYBE",
		"reviewerId": "auditor-7",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboard(t *testing.T) {
	store := NewMemoryStore()
	router := testRouter(newTestHandler(t, store))

	for i := 0; i < 3; i++ {
		postJSON(t, router, "/api/inference", validRequest())
	}

	w := get(router, "/api/audit/dashboard?limit=2")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Receipts []DecisionReceipt `json:"receipts"`
		Count    int               `json:"count"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Receipts, 2)
}

func TestDashboard_RebuiltCacheDoesNotHideOlderReceipts(t *testing.T) {
	store := NewMemoryStore()
	logger := logging.Default()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	builder := NewBuilder(store, echoInvoker("out"), logger)
	reviews := NewReviewService(store, logger, nil)
	h := NewHandler(builder, reviews, store, NewRecentIndex(client), logger)
	router := testRouter(h)

	var first DecisionReceipt
	for i := 0; i < 5; i++ {
		w := postJSON(t, router, "/api/inference", validRequest())
		require.Equal(t, http.StatusCreated, w.Code)
		if i == 0 {
			require.NoError(t, json.NewDecoder(w.Body).Decode(&first))
		}
	}

	// Reviewing drops the cache; the next creation rebuilds it with a
	// single entry.
	reviewed := postJSON(t, router, "/api/receipts/"+first.ID+"/review", ReviewRequest{
		Status: StatusApproved, ReviewerID: "auditor-7",
	})
	require.Equal(t, http.StatusOK, reviewed.Code)
	postJSON(t, router, "/api/inference", validRequest())

	w := get(router, "/api/audit/dashboard")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Receipts []DecisionReceipt `json:"receipts"`
		Count    int               `json:"count"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 6, resp.Count, "dashboard must serve the full window, not the rebuilt cache")
}

func TestDashboard_StatusFilter(t *testing.T) {
	store := NewMemoryStore()
	h := newTestHandler(t, store)
	router := testRouter(h)

	created := postJSON(t, router, "/api/inference", validRequest())
	var r DecisionReceipt
	require.NoError(t, json.NewDecoder(created.Body).Decode(&r))
	postJSON(t, router, "/api/inference", validRequest())

	_, err := h.reviews.Review(context.Background(), r.ID, ReviewRequest{
		Status: StatusApproved, ReviewerID: "auditor-7",
	})
	require.NoError(t, err)

	w := get(router, "/api/audit/dashboard?status=APPROVED")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Receipts []DecisionReceipt `json:"receipts"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Receipts, 1)
	assert.Equal(t, r.ID, resp.Receipts[0].ID)

	assert.Equal(t, http.StatusBadRequest, get(router, "/api/audit/dashboard?status=bogus").Code)
}

func TestExportEndpoint(t *testing.T) {
	store := NewMemoryStore()
	router := testRouter(newTestHandler(t, store))

	created := postJSON(t, router, "/api/inference", validRequest())
	var r DecisionReceipt
	require.NoError(t, json.NewDecoder(created.Body).Decode(&r))

	w := get(router, "/api/receipts/"+r.ID+"/export")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Body.String(), r.ID)
	assert.Contains(t, w.Body.String(), "No review recorded.")
}

func TestAnalyticsEndpoints(t *testing.T) {
	store := NewMemoryStore()
	router := testRouter(newTestHandler(t, store))

	postJSON(t, router, "/api/inference", validRequest())

	for _, path := range []string{
		"/api/analytics/trends",
		"/api/analytics/drift",
		"/api/analytics/risks",
	} {
		w := get(router, path)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRisks_ThresholdParam(t *testing.T) {
	store := NewMemoryStore()
	logger := logging.Default()
	builder := NewBuilder(store, echoInvoker("out"), logger,
		WithConfidenceScorer(func(_, _, _ string) float64 { return 0.3 }))
	h := NewHandler(builder, NewReviewService(store, logger, nil), store, nil, logger)
	router := testRouter(h)

	postJSON(t, router, "/api/inference", validRequest())

	w := get(router, "/api/analytics/risks?threshold=0.4")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Threshold float64           `json:"threshold"`
		Risks     []DecisionReceipt `json:"risks"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 0.4, resp.Threshold)
	assert.Len(t, resp.Risks, 1)

	// Below threshold selects nothing, bad values are rejected.
	empty := get(router, "/api/analytics/risks?threshold=0.1")
	require.Equal(t, http.StatusOK, empty.Code)
	require.NoError(t, json.NewDecoder(empty.Body).Decode(&resp))
	assert.Empty(t, resp.Risks)

	for _, bad := range []string{"abc", "-0.5", "1.5", "NaN"} {
		assert.Equal(t, http.StatusBadRequest,
			get(router, "/api/analytics/risks?threshold="+bad).Code, bad)
	}
}
