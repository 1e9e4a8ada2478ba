package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gmsas95/healthrisk/internal/config"
	apperrors "github.com/gmsas95/healthrisk/internal/errors"
	"github.com/gmsas95/healthrisk/internal/health"
	"github.com/gmsas95/healthrisk/internal/llm"
	"github.com/gmsas95/healthrisk/internal/metrics"
	"github.com/gmsas95/healthrisk/internal/prediction"
)

func intPtr(i int) *int           { return &i }
func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

type stubGenerator struct {
	text   string
	err    error
	calls  int
	prompt string
	block  bool
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	s.calls++
	s.prompt = prompt
	if s.block {
		<-ctx.Done()
		return "", apperrors.WrapAs(apperrors.ErrAITransport, ctx.Err())
	}
	return s.text, s.err
}

func middleAgedProfile() health.PatientProfile {
	return health.PatientProfile{
		Demographics: health.Demographics{
			Age:    intPtr(45),
			Gender: strPtr("male"),
			BMI:    floatPtr(27.5),
		},
		MedicalHistory: health.MedicalHistory{
			Diseases:    "None reported",
			Allergies:   "None reported",
			Medications: "None",
			Surgeries:   "None",
			Notes:       "None",
		},
	}
}

func testNames(recs []health.TestRecommendation) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.TestName)
	}
	return out
}

func TestParse_FencedJSON(t *testing.T) {
	text := "```json\n{\"predictions\":[],\"testRecommendations\":[],\"riskAssessments\":[],\"summary\":\"ok\"}\n```"

	bundle := Parse(text)
	assert.Equal(t, "ok", bundle.Summary)
	assert.False(t, bundle.IsDegraded())
	assert.NotNil(t, bundle.Predictions)
	assert.Empty(t, bundle.Predictions)
	assert.NotNil(t, bundle.TestRecommendations)
	assert.NotNil(t, bundle.RiskAssessments)
}

func TestParse_PlainFence(t *testing.T) {
	bundle := Parse("```\n{\"summary\":\"plain\"}\n```")
	assert.Equal(t, "plain", bundle.Summary)
}

func TestParse_NotJSON(t *testing.T) {
	bundle := Parse("not json at all")

	assert.True(t, bundle.IsDegraded())
	assert.Equal(t, DegradedSummary, bundle.Summary)
	assert.Equal(t, "not json at all", bundle.RawResponse)
	assert.Empty(t, bundle.Predictions)
	assert.Empty(t, bundle.TestRecommendations)
	assert.Empty(t, bundle.RiskAssessments)
}

func TestParse_TopLevelArrayIsDegraded(t *testing.T) {
	bundle := Parse(`[{"summary":"x"}]`)
	assert.True(t, bundle.IsDegraded())
}

func TestParse_MissingSummary(t *testing.T) {
	assert.Equal(t, DefaultSummary, Parse(`{"predictions":[]}`).Summary)
	assert.Equal(t, DefaultSummary, Parse(`{"summary":""}`).Summary)
	assert.Equal(t, DefaultSummary, Parse(`{"summary":42}`).Summary)
}

func TestParse_NormalizesElements(t *testing.T) {
	text := `{
  "predictions": [
    {"condition_name": "Hypertension", "risk_score": 140, "risk_level": "low", "description": "d",
     "contributing_factors": {"salt": "High sodium intake"}},
    "garbage",
    null
  ],
  "testRecommendations": [
    {"test_name": "Blood Pressure Check", "test_category": "diagnostic", "priority_level": "high",
     "reason": "r", "recommended_frequency": "monthly"},
    {"test_name": 12}
  ],
  "riskAssessments": [
    {"assessment_type": "cardiovascular", "overall_risk_score": -5, "risk_level": "high"}
  ],
  "summary": "checked"
}`

	bundle := Parse(text)
	require.Len(t, bundle.Predictions, 1)
	p := bundle.Predictions[0]
	assert.Equal(t, "Hypertension", p.ConditionName)
	assert.Equal(t, 100.0, p.RiskScore)
	assert.Equal(t, health.RiskCritical, p.RiskLevel)
	assert.Equal(t, "High sodium intake", p.ContributingFactors["salt"].Description)
	assert.NotNil(t, p.Recommendations)

	require.Len(t, bundle.TestRecommendations, 1)
	assert.Equal(t, health.ProvenanceAI, bundle.TestRecommendations[0].Provenance)
	assert.Equal(t, health.PriorityHigh, bundle.TestRecommendations[0].Priority)

	require.Len(t, bundle.RiskAssessments, 1)
	a := bundle.RiskAssessments[0]
	assert.Equal(t, 0.0, a.Score)
	assert.Equal(t, health.RiskLow, a.Level)
	assert.Equal(t, health.TrendUnknown, a.Trend)
	assert.Equal(t, "checked", bundle.Summary)
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	p := middleAgedProfile()
	assert.Equal(t, BuildPrompt(p), BuildPrompt(p))
}

func TestBuildPrompt_Content(t *testing.T) {
	p := middleAgedProfile()
	p.Lifestyle = &health.LifestyleMetrics{AvgSleepHours: 6.5, AvgSteps: 4500, AvgHydration: 5, AvgCalories: 2100, SleepProgressPct: 81, ActivityProgressPct: 45}
	p.Documents = []health.Document{{Category: "lab_report", FileName: "cbc.pdf", Description: "Complete blood count"}}

	prompt := BuildPrompt(p)
	assert.Contains(t, prompt, "**PATIENT PROFILE:**")
	assert.Contains(t, prompt, "- Age: 45")
	assert.Contains(t, prompt, "- BMI: 27.5")
	assert.Contains(t, prompt, "- Blood Group: Unknown")
	assert.Contains(t, prompt, "- Sleep: 6.5 hours/night (81% of target)")
	assert.Contains(t, prompt, "- lab_report: cbc.pdf (Complete blood count)")
	assert.Contains(t, prompt, "Mental health data not available")
	assert.Contains(t, prompt, OutputSchema)
	assert.True(t, strings.HasSuffix(prompt, "Provide ONLY the JSON output, no additional text."))
}

func TestBuildPrompt_MissingSections(t *testing.T) {
	prompt := BuildPrompt(health.PatientProfile{})
	assert.Contains(t, prompt, "- Age: Unknown")
	assert.Contains(t, prompt, "Lifestyle data not available")
	assert.Contains(t, prompt, "No medical documents uploaded")
}

func TestPredict_AIResponse(t *testing.T) {
	gen := &stubGenerator{text: "```json\n{\"predictions\":[],\"testRecommendations\":[],\"riskAssessments\":[],\"summary\":\"ok\"}\n```"}
	orch := New(gen, nil)

	res := orch.Predict(context.Background(), middleAgedProfile())
	assert.Equal(t, SourceAI, res.Source)
	assert.False(t, res.FellBack())
	assert.Equal(t, "ok", res.Bundle.Summary)
	assert.Equal(t, 1, gen.calls)
	assert.Contains(t, gen.prompt, "- Age: 45")
}

func TestPredict_RedactsCredentialsInPrompt(t *testing.T) {
	gen := &stubGenerator{text: `{"summary":"ok"}`}
	profile := middleAgedProfile()
	profile.MedicalHistory.Notes = "Portal password: hunter2hunter2"

	res := New(gen, nil).Predict(context.Background(), profile)
	assert.Equal(t, SourceAI, res.Source)
	assert.NotContains(t, gen.prompt, "hunter2hunter2")
	assert.Contains(t, gen.prompt, "- Additional Notes: Portal SECRET****")
}

func TestPredict_DegradedResponse(t *testing.T) {
	m := metrics.New()
	orch := New(&stubGenerator{text: "not json at all"}, nil, WithMetrics(m))

	res := orch.Predict(context.Background(), middleAgedProfile())
	assert.Equal(t, SourceAIDegraded, res.Source)
	assert.NoError(t, res.FallbackReason)
	assert.Equal(t, "not json at all", res.Bundle.RawResponse)
}

func TestPredict_FallbackOnError(t *testing.T) {
	orch := New(&stubGenerator{err: apperrors.ErrAIEmpty}, nil, WithLogger(zap.NewNop()))

	res := orch.Predict(context.Background(), middleAgedProfile())
	assert.Equal(t, SourceRuleBased, res.Source)
	assert.True(t, apperrors.Is(res.FallbackReason, apperrors.ErrAIEmpty))
	assert.Equal(t, prediction.RuleBasedSummary, res.Bundle.Summary)
	assert.Subset(t, testNames(res.Bundle.TestRecommendations), []string{"Annual Physical Examination", "Lipid Panel"})
}

func TestPredict_NilClient(t *testing.T) {
	orch := New(nil, nil)
	assert.False(t, orch.Enabled())

	res := orch.Predict(context.Background(), middleAgedProfile())
	assert.Equal(t, SourceRuleBased, res.Source)
	assert.True(t, apperrors.Is(res.FallbackReason, apperrors.ErrAINotConfigured))
}

func TestPredict_Timeout(t *testing.T) {
	orch := New(&stubGenerator{block: true}, nil, WithTimeout(20*time.Millisecond))

	res := orch.Predict(context.Background(), middleAgedProfile())
	assert.Equal(t, SourceRuleBased, res.Source)
	assert.ErrorIs(t, res.FallbackReason, context.DeadlineExceeded)
}

func TestPredict_CustomEngineThresholds(t *testing.T) {
	strict := prediction.DefaultThresholds()
	strict.Cardiovascular = 100
	strict.Diabetes = 100
	orch := New(nil, prediction.NewEngine(strict))

	res := orch.Predict(context.Background(), middleAgedProfile())
	assert.Empty(t, res.Bundle.Predictions)
	assert.NotEmpty(t, res.Bundle.RiskAssessments)
}

func TestPredictRules(t *testing.T) {
	gen := &stubGenerator{text: `{"summary":"unused"}`}
	res := New(gen, nil).PredictRules(middleAgedProfile())

	assert.Equal(t, SourceRuleBased, res.Source)
	assert.NoError(t, res.FallbackReason)
	assert.Zero(t, gen.calls)
}

func TestPredict_ServerErrorThroughClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "internal"})
	}))
	defer server.Close()

	m := metrics.New()
	client := llm.NewClient(config.AIConfig{
		Enabled:         true,
		APIKey:          "k",
		BaseURL:         server.URL,
		Model:           "gemini-test",
		Timeout:         5,
		Temperature:     0.7,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 4096,
	}, zap.NewNop())
	orch := New(client, nil, WithMetrics(m))

	res := orch.Predict(context.Background(), middleAgedProfile())
	assert.Equal(t, SourceRuleBased, res.Source)
	assert.True(t, apperrors.Is(res.FallbackReason, apperrors.ErrAIStatus))
	assert.Contains(t, testNames(res.Bundle.TestRecommendations), "Annual Physical Examination")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `healthrisk_ai_fallbacks_total{code="AI_002"} 1`)
	assert.Contains(t, rec.Body.String(), `healthrisk_predictions_total{source="rule_based"} 1`)
}
