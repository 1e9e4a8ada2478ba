package scoring

import (
	"github.com/gmsas95/healthrisk/internal/health"
)

// SleepDisorder scores sleep disorder risk from average sleep duration.
// Callers should only invoke it when lifestyle data exists; without it the
// score is zero.
func SleepDisorder(profile health.PatientProfile) health.RiskAssessment {
	s := newSheet()

	if l := profile.Lifestyle; l != nil {
		hours := l.AvgSleepHours
		switch {
		case hours < 5:
			s.add(60, "duration", "Sleep Duration", hoursValue(hours), health.ImpactCritical, "Severe sleep deprivation")
			s.recommend(
				"Urgent: Consult sleep specialist for evaluation",
				"Consider sleep study for sleep apnea screening",
			)
		case hours < 6:
			s.add(40, "duration", "Sleep Duration", hoursValue(hours), health.ImpactHigh, "Chronic sleep deprivation")
			s.recommend("Improve sleep hygiene and establish consistent sleep schedule")
		case hours < 7:
			s.add(25, "duration", "Sleep Duration", hoursValue(hours), health.ImpactModerate, "Insufficient sleep")
			s.recommend("Aim for 7-9 hours of sleep per night")
		}
	}

	description := "Your sleep duration is below optimal levels for health and wellbeing."
	if s.score() >= 50 {
		description = "Your sleep patterns indicate a possible sleep disorder that requires medical evaluation."
	}

	return s.assessment(health.AssessmentSleepDisorder, description)
}
