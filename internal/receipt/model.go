// Package receipt implements the decision receipt core: building receipts
// from inference exchanges, the human review state machine, and read-only
// analytics over the accumulated receipt corpus.
package receipt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ApprovalStatus is the review state of a receipt.
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "PENDING"
	StatusApproved ApprovalStatus = "APPROVED"
	StatusRejected ApprovalStatus = "REJECTED"
)

// Valid reports whether s is one of the three known states.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether s permits no further transitions.
func (s ApprovalStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Attrs is an open mapping of string keys to primitive values (string,
// number, bool). Nested objects and arrays are rejected at unmarshal time so
// serialization and equality stay well-defined.
type Attrs map[string]any

// UnmarshalJSON enforces the primitive-values-only constraint.
func (a *Attrs) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		switch v.(type) {
		case string, float64, bool, nil:
		default:
			return fmt.Errorf("attrs: key %q: value must be a string, number, or bool", k)
		}
	}
	*a = raw
	return nil
}

// RequesterContext identifies who or what triggered a decision.
type RequesterContext struct {
	UserID        string `json:"userId,omitempty"`
	SystemID      string `json:"systemId"`
	CorrelationID string `json:"correlationId"`
}

// ModelMetadata identifies the inference backend and its configuration at
// decision time.
type ModelMetadata struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	Provider      string `json:"provider"`
	Configuration Attrs  `json:"configuration,omitempty"`
}

// RetrievalSource is one supporting-evidence record attached at creation.
type RetrievalSource struct {
	ID              string  `json:"id"`
	URI             string  `json:"uri"`
	Snippet         string  `json:"snippet"`
	ConfidenceScore float64 `json:"confidenceScore"`
	Metadata        Attrs   `json:"metadata,omitempty"`
}

// ReviewMetadata records the human verdict. Populated exactly once, when the
// receipt leaves PENDING.
type ReviewMetadata struct {
	ReviewerID      string    `json:"reviewerId"`
	ReviewedAt      time.Time `json:"reviewedAt"`
	Notes           string    `json:"notes"`
	OverrideApplied bool      `json:"overrideApplied"`
	PreviousOutput  string    `json:"previousOutput,omitempty"`
}

// DecisionReceipt is the audit record of one AI inference exchange. Every
// field except ApprovalStatus and ReviewMetadata is write-once at
// construction.
type DecisionReceipt struct {
	ID                 string            `json:"id"`
	Timestamp          time.Time         `json:"timestamp"`
	RequesterContext   RequesterContext  `json:"requesterContext"`
	ModelMetadata      ModelMetadata     `json:"modelMetadata"`
	UserInput          string            `json:"userInput"`
	InterpretedIntent  string            `json:"interpretedIntent,omitempty"`
	SystemInstructions string            `json:"systemInstructions"`
	AIOutput           string            `json:"aiOutput"`
	RetrievalSources   []RetrievalSource `json:"retrievalSources,omitempty"`
	ReasoningSummary   string            `json:"reasoningSummary"`
	DecisionConfidence float64           `json:"decisionConfidence"`
	ApprovalStatus     ApprovalStatus    `json:"approvalStatus"`
	ReviewMetadata     *ReviewMetadata   `json:"reviewMetadata,omitempty"`
}

// Clone returns a deep copy so stored receipts cannot be mutated through
// shared references.
func (r *DecisionReceipt) Clone() *DecisionReceipt {
	if r == nil {
		return nil
	}
	out := *r
	if r.ModelMetadata.Configuration != nil {
		out.ModelMetadata.Configuration = cloneAttrs(r.ModelMetadata.Configuration)
	}
	if r.RetrievalSources != nil {
		out.RetrievalSources = make([]RetrievalSource, len(r.RetrievalSources))
		for i, src := range r.RetrievalSources {
			out.RetrievalSources[i] = src
			if src.Metadata != nil {
				out.RetrievalSources[i].Metadata = cloneAttrs(src.Metadata)
			}
		}
	}
	if r.ReviewMetadata != nil {
		meta := *r.ReviewMetadata
		out.ReviewMetadata = &meta
	}
	return &out
}

func cloneAttrs(a Attrs) Attrs {
	out := make(Attrs, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// InferenceRequest is the input to the Receipt Builder.
type InferenceRequest struct {
	UserInput          string            `json:"userInput"`
	SystemInstructions string            `json:"systemInstructions"`
	ModelMetadata      ModelMetadata     `json:"modelMetadata"`
	RequesterContext   RequesterContext  `json:"requesterContext"`
	RetrievalSources   []RetrievalSource `json:"retrievalSources,omitempty"`
}

// Validate checks the builder preconditions and names the offending field.
func (r *InferenceRequest) Validate() error {
	if strings.TrimSpace(r.UserInput) == "" {
		return &ValidationError{Field: "userInput", Reason: "must be non-empty"}
	}
	if strings.TrimSpace(r.SystemInstructions) == "" {
		return &ValidationError{Field: "systemInstructions", Reason: "must be non-empty"}
	}
	if strings.TrimSpace(r.ModelMetadata.Name) == "" {
		return &ValidationError{Field: "modelMetadata.name", Reason: "must be non-empty"}
	}
	if strings.TrimSpace(r.ModelMetadata.Version) == "" {
		return &ValidationError{Field: "modelMetadata.version", Reason: "must be non-empty"}
	}
	if strings.TrimSpace(r.ModelMetadata.Provider) == "" {
		return &ValidationError{Field: "modelMetadata.provider", Reason: "must be non-empty"}
	}
	if strings.TrimSpace(r.RequesterContext.SystemID) == "" {
		return &ValidationError{Field: "requesterContext.systemId", Reason: "must be non-empty"}
	}
	if strings.TrimSpace(r.RequesterContext.CorrelationID) == "" {
		return &ValidationError{Field: "requesterContext.correlationId", Reason: "must be non-empty"}
	}
	return nil
}

// TrendData is an analytics view: decision volume per interpreted intent.
// Ephemeral, never persisted.
type TrendData struct {
	Intent string `json:"intent"`
	Count  int    `json:"count"`
}

// DriftData is an analytics view: average confidence per model version.
// Ephemeral, never persisted.
type DriftData struct {
	Version       string  `json:"version"`
	AvgConfidence float64 `json:"avgConfidence"`
}
