// Package prediction aggregates the deterministic scorers into a prediction bundle
package prediction

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/gmsas95/healthrisk/internal/health"
	"github.com/gmsas95/healthrisk/internal/scoring"
	"github.com/gmsas95/healthrisk/internal/screening"
)

// RuleBasedSummary is the summary of every deterministic bundle.
const RuleBasedSummary = "Basic health risk assessment completed using rule-based analysis"

// Thresholds are the minimum scores at which an assessment is surfaced as a prediction.
type Thresholds struct {
	Cardiovascular float64 `mapstructure:"cardiovascular" json:"cardiovascular"`
	Diabetes       float64 `mapstructure:"diabetes" json:"diabetes"`
	MentalHealth   float64 `mapstructure:"mental_health" json:"mental_health"`
	SleepDisorder  float64 `mapstructure:"sleep_disorder" json:"sleep_disorder"`
}

// DefaultThresholds returns the standard inclusion thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Cardiovascular: 50,
		Diabetes:       40,
		MentalHealth:   60,
		SleepDisorder:  50,
	}
}

// Engine is the rule-based prediction path.
type Engine struct {
	thresholds Thresholds
}

// NewEngine creates an engine with the given thresholds.
func NewEngine(thresholds Thresholds) *Engine {
	return &Engine{thresholds: thresholds}
}

// Thresholds returns the engine's inclusion thresholds.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

type rule struct {
	score     scoring.Scorer
	applies   func(health.PatientProfile) bool
	threshold float64
	condition string
	describe  func(health.RiskAssessment) string
}

func (e *Engine) rules() []rule {
	return []rule{
		{
			score:     scoring.Cardiovascular,
			applies:   hasAgeAndBMI,
			threshold: e.thresholds.Cardiovascular,
			condition: "Cardiovascular Disease",
			describe: func(a health.RiskAssessment) string {
				return fmt.Sprintf("Based on your age, BMI, and lifestyle factors, you have a %s risk for cardiovascular disease.", a.Level)
			},
		},
		{
			score:     scoring.Diabetes,
			applies:   hasAgeAndBMI,
			threshold: e.thresholds.Diabetes,
			condition: "Type 2 Diabetes",
			describe: func(a health.RiskAssessment) string {
				return fmt.Sprintf("Your BMI and lifestyle patterns indicate a %s risk for developing Type 2 Diabetes.", a.Level)
			},
		},
		{
			score:     scoring.MentalHealth,
			applies:   func(p health.PatientProfile) bool { return p.MentalHealth != nil },
			threshold: e.thresholds.MentalHealth,
			condition: "Mental Health Concern",
			describe:  func(a health.RiskAssessment) string { return a.Description },
		},
		{
			score:     scoring.SleepDisorder,
			applies:   func(p health.PatientProfile) bool { return p.Lifestyle != nil },
			threshold: e.thresholds.SleepDisorder,
			condition: "Sleep Disorder",
			describe:  func(a health.RiskAssessment) string { return a.Description },
		},
	}
}

// Predict produces the deterministic bundle: every computed assessment, the
// assessments that cross their threshold as predictions ranked by descending
// score, and the generated test recommendations.
func (e *Engine) Predict(profile health.PatientProfile) health.PredictionBundle {
	bundle := health.EmptyBundle(RuleBasedSummary)

	for _, r := range e.rules() {
		if !r.applies(profile) {
			continue
		}
		a := r.score(profile)
		bundle.RiskAssessments = append(bundle.RiskAssessments, a)

		if a.Score < r.threshold {
			continue
		}
		p := health.Prediction{
			ConditionName:       r.condition,
			Description:         r.describe(a),
			Recommendations:     slices.Clone(a.Recommendations),
			ContributingFactors: maps.Clone(a.Factors),
		}
		p.SetScore(a.Score)
		bundle.Predictions = append(bundle.Predictions, p)
	}

	sort.SliceStable(bundle.Predictions, func(i, j int) bool {
		return bundle.Predictions[i].RiskScore > bundle.Predictions[j].RiskScore
	})

	bundle.TestRecommendations = append(bundle.TestRecommendations, screening.Generate(profile)...)
	return bundle
}

func hasAgeAndBMI(p health.PatientProfile) bool {
	return p.Demographics.Age != nil && p.Demographics.BMI != nil
}
