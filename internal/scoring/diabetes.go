package scoring

import (
	"fmt"
	"strconv"

	"github.com/gmsas95/healthrisk/internal/health"
)

// Diabetes scores type 2 diabetes risk.
func Diabetes(profile health.PatientProfile) health.RiskAssessment {
	s := newSheet()
	demo := profile.Demographics

	if demo.Age != nil {
		age := *demo.Age
		value := strconv.Itoa(age)
		switch {
		case age > 45:
			s.add(20, "age", "Age", value, health.ImpactHigh, "Age >45 increases diabetes risk")
		case age > 35:
			s.add(10, "age", "Age", value, health.ImpactModerate, "Age >35 moderately increases risk")
		}
	}

	if demo.BMI != nil {
		bmi := *demo.BMI
		switch {
		case bmi > 30:
			s.add(35, "bmi", "BMI", bmiValue(bmi), health.ImpactCritical, "Obesity is the strongest diabetes risk factor")
			s.recommend("Weight loss is critical - consult nutritionist")
		case bmi > 25:
			s.add(20, "bmi", "BMI", bmiValue(bmi), health.ImpactHigh, "Overweight significantly increases risk")
			s.recommend("Achieve healthy weight through diet and exercise")
		}
	}

	if profile.MedicalHistory.MentionsCondition("family history", "diabetes") {
		s.add(15, "family_history", "Family History", "Present", health.ImpactHigh, "Family history of diabetes")
	}

	if l := profile.Lifestyle; l != nil {
		if l.AvgCalories > 2500 {
			s.add(10, "nutrition", "Nutrition", fmt.Sprintf("%s cal", health.FormatNumber(l.AvgCalories)), health.ImpactModerate, "High caloric intake")
			s.recommend("Reduce caloric intake and focus on balanced diet")
		}
		if l.AvgSteps < 5000 {
			s.add(15, "activity", "Physical Activity", stepsValue(l.AvgSteps), health.ImpactHigh, "Sedentary lifestyle")
			s.recommend("Increase physical activity to improve insulin sensitivity")
		}
	}

	switch score := s.score(); {
	case score >= 60:
		s.prepend("Urgent: Schedule HbA1c and fasting glucose test")
		s.recommend("Consult with endocrinologist")
	case score >= 40:
		s.prepend("Schedule blood glucose screening")
	}

	return s.assessment(health.AssessmentDiabetes, "")
}
