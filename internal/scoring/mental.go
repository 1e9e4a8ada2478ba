package scoring

import (
	"github.com/gmsas95/healthrisk/internal/health"
)

// MentalHealth scores mental health concern from the psychometric indices.
// Missing indices contribute nothing.
func MentalHealth(profile health.PatientProfile) health.RiskAssessment {
	s := newSheet()

	if m := profile.MentalHealth; m != nil {
		if v := m.BurnoutRisk; v != nil {
			switch {
			case *v >= 70:
				s.add(30, "burnout", "Burnout Risk", health.FormatNumber(*v), health.ImpactCritical, "High burnout risk")
				s.recommend("Seek professional mental health support immediately")
			case *v >= 50:
				s.add(20, "burnout", "Burnout Risk", health.FormatNumber(*v), health.ImpactHigh, "Elevated burnout risk")
				s.recommend("Consider counseling or therapy")
			}
		}
		if v := m.MoodStability; v != nil && *v < 40 {
			s.add(25, "mood", "Mood Stability", health.FormatNumber(*v), health.ImpactHigh, "Poor mood stability")
			s.recommend("Practice mood regulation techniques")
		}
		if v := m.StressResilience; v != nil && *v < 40 {
			s.add(20, "stress", "Stress Resilience", health.FormatNumber(*v), health.ImpactHigh, "Low stress resilience")
			s.recommend("Learn stress management strategies")
		}
		if v := m.SocialConnection; v != nil && *v < 40 {
			s.add(15, "social", "Social Connection", health.FormatNumber(*v), health.ImpactModerate, "Low social connection")
			s.recommend("Increase social interactions and support network")
		}
		if v := m.CognitiveFatigue; v != nil && *v >= 60 {
			s.add(10, "cognitive", "Cognitive Fatigue", health.FormatNumber(*v), health.ImpactModerate, "High cognitive fatigue")
			s.recommend("Take regular breaks and practice mindfulness")
		}
	}

	var description string
	switch score := s.score(); {
	case score >= 70:
		description = "Your mental health scores indicate significant concerns that require immediate attention."
	case score >= 50:
		description = "Your mental health indicators show elevated stress and burnout risk."
	default:
		description = "Some mental health indicators need attention for optimal wellbeing."
	}

	return s.assessment(health.AssessmentMentalHealth, description)
}
