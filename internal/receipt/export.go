package receipt

import (
	"fmt"
	"strings"
	"time"
)

const reviewPlaceholder = "No review recorded."

// RenderGovernanceReport produces the plain-text audit export for a single
// receipt: identity, verdict, the verbatim exchange, the recorded
// justification, and the review block or a literal placeholder.
func RenderGovernanceReport(r *DecisionReceipt) string {
	var sb strings.Builder

	sb.WriteString("DECISION GOVERNANCE REPORT\n")
	sb.WriteString("==========================\n\n")
	fmt.Fprintf(&sb, "Receipt ID:       %s\n", r.ID)
	fmt.Fprintf(&sb, "Timestamp:        %s\n", r.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Approval Status:  %s\n", r.ApprovalStatus)
	fmt.Fprintf(&sb, "Confidence:       %.2f\n", r.DecisionConfidence)
	if r.InterpretedIntent != "" {
		fmt.Fprintf(&sb, "Intent:           %s\n", r.InterpretedIntent)
	}
	fmt.Fprintf(&sb, "Model:            %s %s (%s)\n",
		r.ModelMetadata.Name, r.ModelMetadata.Version, r.ModelMetadata.Provider)
	fmt.Fprintf(&sb, "Requester:        system=%s correlation=%s\n",
		r.RequesterContext.SystemID, r.RequesterContext.CorrelationID)

	sb.WriteString("\n--- User Input ---\n")
	sb.WriteString(r.UserInput)
	sb.WriteString("\n\n--- AI Output ---\n")
	sb.WriteString(r.AIOutput)
	sb.WriteString("\n\n--- Justification ---\n")
	sb.WriteString(r.ReasoningSummary)

	sb.WriteString("\n\n--- Review ---\n")
	if r.ReviewMetadata == nil {
		sb.WriteString(reviewPlaceholder)
	} else {
		fmt.Fprintf(&sb, "Reviewer:    %s\n", r.ReviewMetadata.ReviewerID)
		fmt.Fprintf(&sb, "Reviewed At: %s\n", r.ReviewMetadata.ReviewedAt.Format(time.RFC3339))
		fmt.Fprintf(&sb, "Notes:       %s", r.ReviewMetadata.Notes)
		if r.ReviewMetadata.PreviousOutput != "" {
			fmt.Fprintf(&sb, "\nPrevious Output: %s", r.ReviewMetadata.PreviousOutput)
		}
	}
	sb.WriteString("\n")

	return sb.String()
}
