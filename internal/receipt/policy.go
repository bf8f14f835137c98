package receipt

import (
	"fmt"
	"strings"
)

// IntentUnknown is the label substituted by analytics when a receipt carries
// no interpreted intent.
const IntentUnknown = "UNKNOWN"

const (
	IntentInformationQuery   = "INFORMATION_QUERY"
	IntentGeneralInteraction = "GENERAL_INTERACTION"
)

// IntentClassifier derives an intent label from the user input. Any
// deterministic function from input text to a label (or IntentUnknown)
// satisfies the contract.
type IntentClassifier func(userInput string) string

// ConfidenceScorer computes the system's self-assessed confidence for an
// exchange. Output is clamped to [0,1] by the builder.
type ConfidenceScorer func(userInput, aiOutput, intent string) float64

// ReasoningPolicy produces the human-readable justification recorded on the
// receipt. The builder substitutes a fixed summary if it returns empty.
type ReasoningPolicy func(userInput, intent string) string

var interrogativeWords = []string{"what", "how", "why", "explain"}

// KeywordIntentClassifier labels inputs containing interrogative words as
// information queries and everything else as general interaction.
func KeywordIntentClassifier(userInput string) string {
	lower := strings.ToLower(userInput)
	for _, w := range interrogativeWords {
		if strings.Contains(lower, w) {
			return IntentInformationQuery
		}
	}
	return IntentGeneralInteraction
}

// StaticConfidenceScorer assigns a fixed confidence per intent class.
func StaticConfidenceScorer(_, _, intent string) float64 {
	if intent == IntentInformationQuery {
		return 0.85
	}
	return 0.92
}

// TemplateReasoningPolicy renders a justification from the intent class and a
// truncated echo of the input.
func TemplateReasoningPolicy(userInput, intent string) string {
	if intent == IntentInformationQuery {
		excerpt := userInput
		if len(excerpt) > 30 {
			excerpt = excerpt[:30] + "..."
		}
		return fmt.Sprintf("The system identified a request for information. It retrieved relevant context from internal knowledge bases to formulate a fact-based response to %q.", excerpt)
	}
	return "The system processed a general interaction using standard model weights and safety filters."
}
