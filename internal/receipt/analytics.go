package receipt

import (
	"math"
	"sort"
)

// AnalyzeTrends groups receipts by interpreted intent and counts occurrences
// per group. Receipts without an intent are counted under IntentUnknown.
// Results are sorted by count descending, ties broken by intent ascending.
func AnalyzeTrends(receipts []DecisionReceipt) []TrendData {
	counts := make(map[string]int)
	for _, r := range receipts {
		intent := r.InterpretedIntent
		if intent == "" {
			intent = IntentUnknown
		}
		counts[intent]++
	}

	out := make([]TrendData, 0, len(counts))
	for intent, count := range counts {
		out = append(out, TrendData{Intent: intent, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Intent < out[j].Intent
	})
	return out
}

// DetectDrift groups receipts by model version and computes the mean
// decision confidence per group, rounded half-up to two decimal places. A
// version appears only when at least one receipt carries it.
func DetectDrift(receipts []DecisionReceipt) []DriftData {
	type acc struct {
		total float64
		count int
	}
	versions := make(map[string]*acc)
	for _, r := range receipts {
		v := r.ModelMetadata.Version
		if versions[v] == nil {
			versions[v] = &acc{}
		}
		versions[v].total += r.DecisionConfidence
		versions[v].count++
	}

	out := make([]DriftData, 0, len(versions))
	for version, a := range versions {
		avg := math.Round(a.total/float64(a.count)*100) / 100
		out = append(out, DriftData{Version: version, AvgConfidence: avg})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}

// DetectAnomalies returns every receipt whose confidence is strictly below
// threshold, preserving input order. The threshold is applied literally: a
// negative value selects nothing and a value above 1 selects everything,
// which is degenerate but well-defined. Callers validate the range.
func DetectAnomalies(receipts []DecisionReceipt, threshold float64) []DecisionReceipt {
	var out []DecisionReceipt
	for _, r := range receipts {
		if r.DecisionConfidence < threshold {
			out = append(out, r)
		}
	}
	return out
}
