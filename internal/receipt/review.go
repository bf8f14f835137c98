package receipt

import (
	"context"
	"strings"
	"time"

	"github.com/adrs-io/adrs/internal/observability/metrics"
	"github.com/adrs-io/adrs/pkg/logging"
)

// ReviewRequest carries a reviewer's verdict on a pending receipt.
type ReviewRequest struct {
	Status     ApprovalStatus `json:"status"`
	ReviewerID string         `json:"reviewerId"`
	Notes      string         `json:"notes"`
	// EditedOutput, when set, records a reviewer-corrected output. The
	// receipt's original AIOutput stays immutable; the pre-review output is
	// preserved in ReviewMetadata.PreviousOutput for traceability.
	EditedOutput string `json:"editedOutput,omitempty"`
}

// ReviewService transitions receipts from PENDING into a terminal reviewed
// state. The transition itself is delegated to the store's conditional
// update, so status and review metadata always commit as one unit and two
// concurrent reviewers cannot both win.
type ReviewService struct {
	store   Store
	logger  *logging.Logger
	metrics *metrics.ReceiptMetrics
	now     func() time.Time
}

// NewReviewService creates a review service.
func NewReviewService(store Store, logger *logging.Logger, m *metrics.ReceiptMetrics) *ReviewService {
	if store == nil {
		panic("receipt: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ReviewService{
		store:   store,
		logger:  logger,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Review applies the verdict to the identified receipt and returns the
// updated record. Fails with ValidationError for a bad verdict, ErrNotFound
// for an unknown id, and ErrInvalidTransition when the receipt has already
// been reviewed.
func (s *ReviewService) Review(ctx context.Context, receiptID string, req ReviewRequest) (*DecisionReceipt, error) {
	if strings.TrimSpace(receiptID) == "" {
		return nil, &ValidationError{Field: "receiptId", Reason: "must be non-empty"}
	}
	if !req.Status.Terminal() {
		return nil, &ValidationError{Field: "status", Reason: "must be APPROVED or REJECTED"}
	}
	if strings.TrimSpace(req.ReviewerID) == "" {
		return nil, &ValidationError{Field: "reviewerId", Reason: "must be non-empty"}
	}

	meta := ReviewMetadata{
		ReviewerID:      req.ReviewerID,
		ReviewedAt:      s.now(),
		Notes:           req.Notes,
		OverrideApplied: true,
	}
	if strings.TrimSpace(req.EditedOutput) != "" {
		// Capture the pre-review output before recording the edit.
		current, err := s.store.GetByID(ctx, receiptID)
		if err != nil {
			return nil, err
		}
		meta.PreviousOutput = current.AIOutput
		meta.Notes = "[reviewer-edited output] " + req.EditedOutput
		if req.Notes != "" {
			meta.Notes = req.Notes + "\n" + meta.Notes
		}
	}

	if err := s.store.UpdateReview(ctx, receiptID, req.Status, meta); err != nil {
		return nil, err
	}

	s.metrics.ObserveReview(string(req.Status))
	s.logger.Info("receipt reviewed",
		"receipt_id", receiptID,
		"status", req.Status,
		"reviewer_id", req.ReviewerID,
	)

	return s.store.GetByID(ctx, receiptID)
}
