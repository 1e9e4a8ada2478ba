package ai

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/gmsas95/healthrisk/internal/health"
)

const (
	// DefaultSummary is used when the model omits a summary.
	DefaultSummary = "AI analysis completed"
	// DegradedSummary marks a response that could not be decoded.
	DegradedSummary = "AI analysis completed but response format was unexpected"
)

// Parse extracts a bundle from model output. It never fails: text that does
// not decode to a JSON object yields a degraded bundle carrying the input in
// RawResponse.
func Parse(text string) health.PredictionBundle {
	payload := stripFences(strings.TrimSpace(text))

	var raw struct {
		Predictions         json.RawMessage `json:"predictions"`
		TestRecommendations json.RawMessage `json:"testRecommendations"`
		RiskAssessments     json.RawMessage `json:"riskAssessments"`
		Summary             json.RawMessage `json:"summary"`
	}
	if !isObject(payload) || json.Unmarshal([]byte(payload), &raw) != nil {
		bundle := health.EmptyBundle(DegradedSummary)
		bundle.RawResponse = text
		return bundle
	}

	bundle := health.EmptyBundle(summaryOf(raw.Summary))

	for _, p := range decodeEach[health.Prediction](raw.Predictions) {
		p.SetScore(p.RiskScore)
		if p.Recommendations == nil {
			p.Recommendations = []string{}
		}
		if p.ContributingFactors == nil {
			p.ContributingFactors = health.RiskFactors{}
		}
		bundle.Predictions = append(bundle.Predictions, p)
	}

	for _, t := range decodeEach[health.TestRecommendation](raw.TestRecommendations) {
		t.Provenance = health.ProvenanceAI
		bundle.TestRecommendations = append(bundle.TestRecommendations, t)
	}

	for _, a := range decodeEach[health.RiskAssessment](raw.RiskAssessments) {
		a.SetScore(a.Score)
		if a.Trend == "" {
			a.Trend = health.TrendUnknown
		}
		if a.Recommendations == nil {
			a.Recommendations = []string{}
		}
		bundle.RiskAssessments = append(bundle.RiskAssessments, a)
	}

	return bundle
}

// stripFences removes markdown code fence markers when the text opens with one.
func stripFences(text string) string {
	switch {
	case strings.HasPrefix(text, fence+"json"):
		text = strings.ReplaceAll(text, fence+"json\n", "")
		text = strings.ReplaceAll(text, fence+"json", "")
		text = strings.ReplaceAll(text, fence+"\n", "")
		text = strings.ReplaceAll(text, fence, "")
	case strings.HasPrefix(text, fence):
		text = strings.ReplaceAll(text, fence+"\n", "")
		text = strings.ReplaceAll(text, fence, "")
	}
	return strings.TrimSpace(text)
}

func isObject(payload string) bool {
	return strings.HasPrefix(payload, "{")
}

// decodeEach decodes a JSON array element by element, skipping elements that
// do not fit T. Anything other than an array yields nothing.
func decodeEach[T any](raw json.RawMessage) []T {
	var elems []json.RawMessage
	if len(bytes.TrimSpace(raw)) == 0 || json.Unmarshal(raw, &elems) != nil {
		return nil
	}
	out := make([]T, 0, len(elems))
	for _, e := range elems {
		if bytes.Equal(bytes.TrimSpace(e), []byte("null")) {
			continue
		}
		var v T
		if err := json.Unmarshal(e, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func summaryOf(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return DefaultSummary
	}
	return s
}
