// Package scoring implements the deterministic risk scorers
package scoring

import (
	"fmt"

	"github.com/gmsas95/healthrisk/internal/health"
)

// Scorer turns a profile into one risk assessment. Scorers are pure and never fail.
type Scorer func(profile health.PatientProfile) health.RiskAssessment

// sheet accumulates points, factors and recommendations for one scorer run.
type sheet struct {
	points          float64
	factors         health.RiskFactors
	recommendations []string
}

func newSheet() *sheet {
	return &sheet{
		factors:         health.RiskFactors{},
		recommendations: []string{},
	}
}

func (s *sheet) add(points float64, key, name, value string, impact health.Impact, description string) {
	s.points += points
	s.factors[key] = health.RiskFactor{
		Name:         name,
		DisplayValue: value,
		Impact:       impact,
		Description:  description,
	}
}

func (s *sheet) recommend(recs ...string) {
	s.recommendations = append(s.recommendations, recs...)
}

func (s *sheet) prepend(rec string) {
	s.recommendations = append([]string{rec}, s.recommendations...)
}

func (s *sheet) score() float64 {
	return health.Clamp(s.points)
}

func (s *sheet) assessment(kind health.AssessmentType, description string) health.RiskAssessment {
	return health.NewRiskAssessment(kind, s.points, s.factors, s.recommendations, description)
}

func bmiValue(bmi float64) string {
	return fmt.Sprintf("%.1f", bmi)
}

func stepsValue(steps float64) string {
	return fmt.Sprintf("%s steps", health.FormatNumber(steps))
}

func hoursValue(hours float64) string {
	return fmt.Sprintf("%s hrs", health.FormatNumber(hours))
}
