package receipt

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/adrs-io/adrs/internal/inference"
	"github.com/adrs-io/adrs/internal/observability/metrics"
	"github.com/adrs-io/adrs/pkg/logging"
)

const defaultInferenceTimeout = 30 * time.Second

// fallbackReasoning is recorded when a reasoning policy returns empty text,
// keeping the receipt's justification non-empty.
const fallbackReasoning = "The system recorded this decision without a policy-supplied justification."

// Builder constructs and persists a DecisionReceipt for every successful
// inference exchange. The inference backend and the classification, scoring,
// and reasoning heuristics are injected so the assembly logic stays
// independent of any specific policy.
type Builder struct {
	store     Store
	invoker   inference.Invoker
	classify  IntentClassifier
	score     ConfidenceScorer
	reasoning ReasoningPolicy
	timeout   time.Duration
	logger    *logging.Logger
	metrics   *metrics.ReceiptMetrics
	now       func() time.Time
	newID     func() string
}

// BuilderOption customizes a Builder.
type BuilderOption func(*Builder)

// WithIntentClassifier replaces the default intent heuristic.
func WithIntentClassifier(fn IntentClassifier) BuilderOption {
	return func(b *Builder) { b.classify = fn }
}

// WithConfidenceScorer replaces the default confidence heuristic.
func WithConfidenceScorer(fn ConfidenceScorer) BuilderOption {
	return func(b *Builder) { b.score = fn }
}

// WithReasoningPolicy replaces the default justification policy.
func WithReasoningPolicy(fn ReasoningPolicy) BuilderOption {
	return func(b *Builder) { b.reasoning = fn }
}

// WithInferenceTimeout bounds the external inference call.
func WithInferenceTimeout(d time.Duration) BuilderOption {
	return func(b *Builder) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithMetrics attaches receipt metrics.
func WithMetrics(m *metrics.ReceiptMetrics) BuilderOption {
	return func(b *Builder) { b.metrics = m }
}

// WithClock replaces the timestamp source. Used in tests.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// NewBuilder creates a Builder with the default policies.
func NewBuilder(store Store, invoker inference.Invoker, logger *logging.Logger, opts ...BuilderOption) *Builder {
	if store == nil {
		panic("receipt: store required")
	}
	if invoker == nil {
		panic("receipt: invoker required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	b := &Builder{
		store:     store,
		invoker:   invoker,
		classify:  KeywordIntentClassifier,
		score:     StaticConfidenceScorer,
		reasoning: TemplateReasoningPolicy,
		timeout:   defaultInferenceTimeout,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Execute validates the request, invokes the inference backend exactly once,
// assembles the receipt, and persists it. On any failure nothing is
// persisted: a failed invocation never leaves an orphan record.
func (b *Builder) Execute(ctx context.Context, req InferenceRequest) (*DecisionReceipt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	invokeCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	// Latency is measured against the wall clock; b.now only stamps receipts.
	start := time.Now()
	output, err := b.invoker.Invoke(invokeCtx, req.UserInput, req.SystemInstructions)
	b.metrics.ObserveInferenceLatency(time.Since(start).Seconds())
	if err != nil {
		b.metrics.ObserveInferenceFailure()
		b.logger.Error("inference invocation failed",
			"correlation_id", req.RequesterContext.CorrelationID,
			"model", req.ModelMetadata.Name,
			"error", err,
		)
		return nil, &InvocationError{Err: err}
	}

	intent := b.classify(req.UserInput)
	confidence := clamp01(b.score(req.UserInput, output, intent))
	summary := b.reasoning(req.UserInput, intent)
	if summary == "" {
		summary = fallbackReasoning
	}

	r := &DecisionReceipt{
		ID:                 b.newID(),
		Timestamp:          b.now(),
		RequesterContext:   req.RequesterContext,
		ModelMetadata:      req.ModelMetadata,
		UserInput:          req.UserInput,
		InterpretedIntent:  intent,
		SystemInstructions: req.SystemInstructions,
		AIOutput:           output,
		RetrievalSources:   req.RetrievalSources,
		ReasoningSummary:   summary,
		DecisionConfidence: confidence,
		ApprovalStatus:     StatusPending,
	}

	if err := b.store.Create(ctx, r); err != nil {
		b.logger.Error("failed to persist receipt",
			"receipt_id", r.ID,
			"correlation_id", req.RequesterContext.CorrelationID,
			"error", err,
		)
		return nil, err
	}

	b.metrics.ObserveReceiptCreated(intent)
	b.logger.Info("decision receipt created",
		"receipt_id", r.ID,
		"intent", intent,
		"confidence", confidence,
		"model_version", req.ModelMetadata.Version,
	)
	return r, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
