// Package health provides the patient profile model and its builder
package health

import (
	"bytes"
	"encoding/json"
	"time"
)

// PatientProfile is the normalized view of one person's records that every
// scorer, generator and prompt builder works from.
type PatientProfile struct {
	Demographics   Demographics        `json:"demographics"`
	MedicalHistory MedicalHistory      `json:"medicalHistory"`
	Lifestyle      *LifestyleMetrics   `json:"lifestyle"`    // nil when no lifestyle data was recorded
	MentalHealth   *MentalHealthScores `json:"mentalHealth"` // nil when no psychometric record exists
	Documents      []Document          `json:"documents"`
}

// Demographics holds derived and reported demographic fields. A nil pointer
// means the source field was missing; zero is a real value.
type Demographics struct {
	Age        *int     `json:"age"`
	Gender     *string  `json:"gender"`
	BMI        *float64 `json:"bmi"`
	BloodGroup *string  `json:"bloodGroup"`
}

// MedicalHistory holds free-text history fields with their defaults applied.
type MedicalHistory struct {
	Diseases    string `json:"diseases"`
	Allergies   string `json:"allergies"`
	Medications string `json:"medications"`
	Surgeries   string `json:"surgeries"`
	Notes       string `json:"notes"`
}

// LifestyleMetrics are the rolling averages from the lifestyle trackers.
type LifestyleMetrics struct {
	AvgSleepHours       float64 `json:"avgSleepHours"`
	AvgSteps            float64 `json:"avgSteps"`
	AvgHydration        float64 `json:"avgHydration"` // cups per day
	AvgCalories         float64 `json:"avgCalories"`
	SleepProgressPct    float64 `json:"sleepProgress"`
	ActivityProgressPct float64 `json:"activityProgress"`
}

// MentalHealthScores are the latest psychometric indices, each 0-100.
// Individual scores may be missing from the source record.
type MentalHealthScores struct {
	MoodStability    *float64 `json:"moodStability"`
	StressResilience *float64 `json:"stressResilience"`
	BurnoutRisk      *float64 `json:"burnoutRisk"`
	SocialConnection *float64 `json:"socialConnection"`
	CognitiveFatigue *float64 `json:"cognitiveFatigue"`
	OverallWellbeing *float64 `json:"overallWellbeing"`
}

// Document is the metadata of an uploaded medical document.
type Document struct {
	Category    string    `json:"category"`
	FileName    string    `json:"fileName"`
	UploadedAt  time.Time `json:"uploadedAt"`
	Description string    `json:"description,omitempty"`
}

// RiskLevel bands a 0-100 score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Impact grades how much a single factor contributes.
type Impact string

const (
	ImpactLow      Impact = "low"
	ImpactModerate Impact = "moderate"
	ImpactHigh     Impact = "high"
	ImpactCritical Impact = "critical"
)

// AssessmentType names one of the scored risk categories.
type AssessmentType string

const (
	AssessmentCardiovascular AssessmentType = "cardiovascular"
	AssessmentDiabetes       AssessmentType = "diabetes"
	AssessmentMentalHealth   AssessmentType = "mental_health"
	AssessmentSleepDisorder  AssessmentType = "sleep_disorder"
)

// Trend is the direction of a risk over time.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
	TrendUnknown   Trend = "unknown"
)

// TestCategory classifies a recommended medical test.
type TestCategory string

const (
	CategoryRoutineScreening TestCategory = "routine_screening"
	CategoryDiagnostic       TestCategory = "diagnostic"
	CategoryPreventive       TestCategory = "preventive"
	CategoryFollowUp         TestCategory = "follow_up"
)

// Priority of a recommended test.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Provenance records which generator produced a test recommendation.
type Provenance string

const (
	ProvenanceAgeBased       Provenance = "age_based"
	ProvenanceConditionBased Provenance = "condition_based"
	ProvenanceLifestyleBased Provenance = "lifestyle_based"
	ProvenanceAI             Provenance = "ai_generated"
)

// RiskFactor is one contributor to a risk score.
type RiskFactor struct {
	Name         string `json:"name,omitempty"`
	DisplayValue string `json:"value,omitempty"`
	Impact       Impact `json:"impact,omitempty"`
	Description  string `json:"description"`
}

// UnmarshalJSON accepts the object form used by the scorers and the
// plain-string form ("factor": "description") the model tends to emit.
func (f *RiskFactor) UnmarshalJSON(data []byte) error {
	var description string
	if err := json.Unmarshal(data, &description); err == nil {
		*f = RiskFactor{Description: description}
		return nil
	}

	var raw struct {
		Name        string          `json:"name"`
		Value       json.RawMessage `json:"value"`
		Impact      Impact          `json:"impact"`
		Description string          `json:"description"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*f = RiskFactor{
		Name:         raw.Name,
		DisplayValue: displayValue(raw.Value),
		Impact:       raw.Impact,
		Description:  raw.Description,
	}
	return nil
}

func displayValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// RiskFactors maps factor name to factor.
type RiskFactors map[string]RiskFactor

// RiskAssessment is the scored result for one risk category.
type RiskAssessment struct {
	Type            AssessmentType `json:"assessment_type"`
	Score           float64        `json:"overall_risk_score"`
	Level           RiskLevel      `json:"risk_level"`
	Trend           Trend          `json:"trend_direction"`
	Factors         RiskFactors    `json:"risk_factors,omitempty"`
	Recommendations []string       `json:"recommendations"`
	Description     string         `json:"description,omitempty"`
}

// NewRiskAssessment clamps the score and derives the level from it.
func NewRiskAssessment(kind AssessmentType, score float64, factors RiskFactors, recommendations []string, description string) RiskAssessment {
	a := RiskAssessment{
		Type:            kind,
		Trend:           TrendUnknown,
		Factors:         factors,
		Recommendations: recommendations,
		Description:     description,
	}
	a.SetScore(score)
	return a
}

// SetScore clamps score and recomputes the level.
func (a *RiskAssessment) SetScore(score float64) {
	a.Score = Clamp(score)
	a.Level = LevelFor(a.Score)
}

// Prediction is a surfaced health-risk prediction.
type Prediction struct {
	ConditionName       string      `json:"condition_name"`
	RiskScore           float64     `json:"risk_score"`
	RiskLevel           RiskLevel   `json:"risk_level"`
	Description         string      `json:"description"`
	Recommendations     []string    `json:"recommendations"`
	ContributingFactors RiskFactors `json:"contributing_factors"`
}

// SetScore clamps score and recomputes the level.
func (p *Prediction) SetScore(score float64) {
	p.RiskScore = Clamp(score)
	p.RiskLevel = LevelFor(p.RiskScore)
}

// TestRecommendation is a suggested medical test.
type TestRecommendation struct {
	TestName             string       `json:"test_name"`
	Category             TestCategory `json:"test_category"`
	Priority             Priority     `json:"priority_level"`
	Reason               string       `json:"reason"`
	RecommendedFrequency string       `json:"recommended_frequency"`
	Provenance           Provenance   `json:"provenance,omitempty"`
	RelatedConditions    []string     `json:"related_conditions,omitempty"`
}

// PredictionBundle is the complete output of one prediction request.
type PredictionBundle struct {
	Predictions         []Prediction         `json:"predictions"`
	TestRecommendations []TestRecommendation `json:"testRecommendations"`
	RiskAssessments     []RiskAssessment     `json:"riskAssessments"`
	Summary             string               `json:"summary"`
	RawResponse         string               `json:"rawResponse,omitempty"`
}

// EmptyBundle returns a bundle with non-nil, empty sequences.
func EmptyBundle(summary string) PredictionBundle {
	return PredictionBundle{
		Predictions:         []Prediction{},
		TestRecommendations: []TestRecommendation{},
		RiskAssessments:     []RiskAssessment{},
		Summary:             summary,
	}
}

// IsDegraded reports whether the bundle carries raw model text instead of
// structured results.
func (b PredictionBundle) IsDegraded() bool {
	return b.RawResponse != ""
}
