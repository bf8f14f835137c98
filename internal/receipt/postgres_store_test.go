package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var receiptRowColumns = []string{
	"id", "created_at", "requester_context", "model_metadata", "user_input",
	"interpreted_intent", "system_instructions", "ai_output", "retrieval_sources",
	"reasoning_summary", "decision_confidence", "approval_status", "review_metadata",
}

func receiptRow(t *testing.T, r *DecisionReceipt) *pgxmock.Rows {
	t.Helper()
	requester, err := json.Marshal(r.RequesterContext)
	require.NoError(t, err)
	model, err := json.Marshal(r.ModelMetadata)
	require.NoError(t, err)

	var intent *string
	if r.InterpretedIntent != "" {
		intent = &r.InterpretedIntent
	}
	var sources []byte
	if len(r.RetrievalSources) > 0 {
		sources, err = json.Marshal(r.RetrievalSources)
		require.NoError(t, err)
	}
	var review []byte
	if r.ReviewMetadata != nil {
		review, err = json.Marshal(r.ReviewMetadata)
		require.NoError(t, err)
	}

	return pgxmock.NewRows(receiptRowColumns).AddRow(
		r.ID, r.Timestamp, requester, model, r.UserInput,
		intent, r.SystemInstructions, r.AIOutput, sources,
		r.ReasoningSummary, r.DecisionConfidence, string(r.ApprovalStatus), review,
	)
}

func TestPostgresStore_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	r := sampleReceipt("r-1", time.Now().UTC())

	mock.ExpectExec("INSERT INTO receipts").
		WithArgs(
			r.ID, r.Timestamp, pgxmock.AnyArg(), pgxmock.AnyArg(), r.UserInput,
			pgxmock.AnyArg(), r.SystemInstructions, r.AIOutput, pgxmock.AnyArg(),
			r.ReasoningSummary, r.DecisionConfidence, string(StatusPending),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Create(context.Background(), r))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateFailureIsPersistenceError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	mock.ExpectExec("INSERT INTO receipts").
		WillReturnError(errors.New("connection reset"))

	err = store.Create(context.Background(), sampleReceipt("r-1", time.Now().UTC()))
	var pErr *PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "create", pErr.Op)
}

func TestPostgresStore_GetByID_RoundTrip(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	want := sampleReceipt("r-1", time.Now().UTC().Truncate(time.Microsecond))
	want.ReviewMetadata = &ReviewMetadata{
		ReviewerID:      "rev-1",
		ReviewedAt:      time.Now().UTC().Truncate(time.Microsecond),
		Notes:           "ok",
		OverrideApplied: true,
	}
	want.ApprovalStatus = StatusApproved

	mock.ExpectQuery("SELECT (.+) FROM receipts WHERE id").
		WithArgs("r-1").
		WillReturnRows(receiptRow(t, want))

	got, err := store.GetByID(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	mock.ExpectQuery("SELECT (.+) FROM receipts WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	want := sampleReceipt("r-1", time.Now().UTC().Truncate(time.Microsecond))

	mock.ExpectQuery("SELECT (.+) FROM receipts ORDER BY created_at DESC").
		WithArgs(25).
		WillReturnRows(receiptRow(t, want))

	got, err := store.List(context.Background(), 25)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, *want, got[0])
}

func TestPostgresStore_UpdateReview_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	mock.ExpectExec("UPDATE receipts").
		WithArgs("r-1", string(StatusApproved), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = store.UpdateReview(context.Background(), "r-1", StatusApproved, ReviewMetadata{ReviewerID: "rev-1"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateReview_AlreadyReviewed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	mock.ExpectExec("UPDATE receipts").
		WithArgs("r-1", string(StatusRejected), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT approval_status FROM receipts").
		WithArgs("r-1").
		WillReturnRows(pgxmock.NewRows([]string{"approval_status"}).AddRow("APPROVED"))

	err = store.UpdateReview(context.Background(), "r-1", StatusRejected, ReviewMetadata{ReviewerID: "rev-1"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPostgresStore_UpdateReview_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	mock.ExpectExec("UPDATE receipts").
		WithArgs("missing", string(StatusApproved), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT approval_status FROM receipts").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	err = store.UpdateReview(context.Background(), "missing", StatusApproved, ReviewMetadata{ReviewerID: "rev-1"})
	assert.ErrorIs(t, err, ErrNotFound)
}
