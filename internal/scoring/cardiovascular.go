package scoring

import (
	"strconv"

	"github.com/gmsas95/healthrisk/internal/health"
)

// Cardiovascular scores cardiovascular disease risk from age, BMI, reported
// conditions, sleep, activity and stress resilience.
func Cardiovascular(profile health.PatientProfile) health.RiskAssessment {
	s := newSheet()
	demo := profile.Demographics

	if demo.Age != nil {
		age := *demo.Age
		value := strconv.Itoa(age)
		switch {
		case age >= 65:
			s.add(30, "age", "Age", value, health.ImpactHigh, "Age 65+ significantly increases cardiovascular risk")
		case age >= 50:
			s.add(20, "age", "Age", value, health.ImpactModerate, "Age 50+ moderately increases risk")
		case age >= 40:
			s.add(10, "age", "Age", value, health.ImpactLow, "Age 40+ slightly increases risk")
		}
	}

	if demo.BMI != nil {
		bmi := *demo.BMI
		switch {
		case bmi > 30:
			s.add(25, "bmi", "BMI", bmiValue(bmi), health.ImpactHigh, "Obesity (BMI > 30) is a major risk factor")
			s.recommend("Weight management through diet and exercise")
		case bmi > 25:
			s.add(15, "bmi", "BMI", bmiValue(bmi), health.ImpactModerate, "Overweight (BMI 25-30) increases risk")
			s.recommend("Maintain healthy weight through balanced diet")
		}
	}

	if profile.MedicalHistory.MentionsCondition("hypertension") {
		s.add(20, "hypertension", "Hypertension", "Present", health.ImpactHigh, "Hypertension is a major cardiovascular risk factor")
		s.recommend("Regular blood pressure monitoring")
	}

	if profile.MedicalHistory.MentionsCondition("diabetes") {
		s.add(15, "diabetes", "Diabetes", "Present", health.ImpactHigh, "Diabetes increases cardiovascular risk")
		s.recommend("Maintain blood sugar control")
	}

	if l := profile.Lifestyle; l != nil {
		switch {
		case l.AvgSleepHours < 6:
			s.add(10, "sleep", "Sleep", hoursValue(l.AvgSleepHours), health.ImpactModerate, "Poor sleep (<6 hrs) increases risk")
			s.recommend("Improve sleep quality - aim for 7-9 hours")
		case l.AvgSleepHours < 7:
			s.add(5, "sleep", "Sleep", hoursValue(l.AvgSleepHours), health.ImpactLow, "Suboptimal sleep duration")
		}

		switch {
		case l.AvgSteps < 5000:
			s.add(15, "activity", "Physical Activity", stepsValue(l.AvgSteps), health.ImpactHigh, "Sedentary lifestyle (<5000 steps)")
			s.recommend("Increase physical activity - aim for 10,000 steps daily")
		case l.AvgSteps < 7500:
			s.add(8, "activity", "Physical Activity", stepsValue(l.AvgSteps), health.ImpactModerate, "Low activity level")
			s.recommend("Gradually increase daily physical activity")
		}
	}

	if m := profile.MentalHealth; m != nil && m.StressResilience != nil && *m.StressResilience < 40 {
		s.add(10, "stress", "Stress Resilience", health.FormatNumber(*m.StressResilience), health.ImpactModerate, "High stress levels affect heart health")
		s.recommend("Stress management through relaxation techniques")
	}

	if s.score() >= 50 {
		s.prepend("Consult with a cardiologist for comprehensive evaluation")
		s.recommend("Consider cardiac stress test and lipid panel")
	}

	return s.assessment(health.AssessmentCardiovascular, "")
}
