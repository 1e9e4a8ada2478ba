package prediction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmsas95/healthrisk/internal/health"
)

func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

func TestPredict_EmptyProfile(t *testing.T) {
	bundle := NewEngine(DefaultThresholds()).Predict(health.PatientProfile{})

	assert.NotNil(t, bundle.Predictions)
	assert.NotNil(t, bundle.RiskAssessments)
	assert.NotNil(t, bundle.TestRecommendations)
	assert.Empty(t, bundle.Predictions)
	assert.Empty(t, bundle.RiskAssessments)
	assert.Empty(t, bundle.TestRecommendations)
	assert.Equal(t, RuleBasedSummary, bundle.Summary)
	assert.False(t, bundle.IsDegraded())
}

func TestPredict_CardiovascularCritical(t *testing.T) {
	profile := health.PatientProfile{
		Demographics:   health.Demographics{Age: intPtr(70), BMI: floatPtr(32)},
		MedicalHistory: health.MedicalHistory{Diseases: "Hypertension"},
	}

	bundle := NewEngine(DefaultThresholds()).Predict(profile)

	require.Len(t, bundle.RiskAssessments, 2)
	assert.Equal(t, health.AssessmentCardiovascular, bundle.RiskAssessments[0].Type)
	assert.Equal(t, health.AssessmentDiabetes, bundle.RiskAssessments[1].Type)

	require.Len(t, bundle.Predictions, 2)
	cardio := bundle.Predictions[0]
	assert.Equal(t, "Cardiovascular Disease", cardio.ConditionName)
	assert.Equal(t, 75.0, cardio.RiskScore)
	assert.Equal(t, health.RiskCritical, cardio.RiskLevel)
	assert.Equal(t, "Consult with a cardiologist for comprehensive evaluation", cardio.Recommendations[0])
	assert.Equal(t, "Based on your age, BMI, and lifestyle factors, you have a critical risk for cardiovascular disease.", cardio.Description)

	diabetes := bundle.Predictions[1]
	assert.Equal(t, "Type 2 Diabetes", diabetes.ConditionName)
	assert.Equal(t, 55.0, diabetes.RiskScore)
}

func TestPredict_ThresholdsGatePredictionsNotAssessments(t *testing.T) {
	profile := health.PatientProfile{
		Demographics: health.Demographics{Age: intPtr(42), BMI: floatPtr(24)},
		MentalHealth: &health.MentalHealthScores{BurnoutRisk: floatPtr(55)},
		Lifestyle:    &health.LifestyleMetrics{AvgSleepHours: 7.5, AvgSteps: 9000},
	}

	bundle := NewEngine(DefaultThresholds()).Predict(profile)

	assert.Len(t, bundle.RiskAssessments, 4)
	assert.Empty(t, bundle.Predictions)
}

func TestPredict_RankedByScore(t *testing.T) {
	profile := health.PatientProfile{
		Demographics: health.Demographics{Age: intPtr(45), BMI: floatPtr(31)},
		Lifestyle:    &health.LifestyleMetrics{AvgSleepHours: 4.5, AvgSteps: 8000},
		MentalHealth: &health.MentalHealthScores{
			BurnoutRisk:      floatPtr(80),
			MoodStability:    floatPtr(20),
			StressResilience: floatPtr(30),
		},
	}

	bundle := NewEngine(DefaultThresholds()).Predict(profile)

	require.NotEmpty(t, bundle.Predictions)
	for i := 1; i < len(bundle.Predictions); i++ {
		assert.GreaterOrEqual(t, bundle.Predictions[i-1].RiskScore, bundle.Predictions[i].RiskScore)
	}
	assert.Equal(t, "Mental Health Concern", bundle.Predictions[0].ConditionName)
	assert.Equal(t, "Your mental health scores indicate significant concerns that require immediate attention.", bundle.Predictions[0].Description)
}

func TestPredict_CustomThresholds(t *testing.T) {
	profile := health.PatientProfile{
		Demographics: health.Demographics{Age: intPtr(45), BMI: floatPtr(27)},
	}

	strict := NewEngine(DefaultThresholds()).Predict(profile)
	assert.Empty(t, strict.Predictions) // cardio 25, diabetes 30

	lenient := DefaultThresholds()
	lenient.Cardiovascular = 20
	bundle := NewEngine(lenient).Predict(profile)
	require.Len(t, bundle.Predictions, 1)
	assert.Equal(t, "Cardiovascular Disease", bundle.Predictions[0].ConditionName)
}

func TestPredict_IncludesTestRecommendations(t *testing.T) {
	profile := health.PatientProfile{Demographics: health.Demographics{Age: intPtr(45)}}

	bundle := NewEngine(DefaultThresholds()).Predict(profile)

	assert.Empty(t, bundle.RiskAssessments)
	require.Len(t, bundle.TestRecommendations, 2)
	assert.Equal(t, "Annual Physical Examination", bundle.TestRecommendations[0].TestName)
}

func TestPredict_PredictionDoesNotShareAssessmentSlices(t *testing.T) {
	profile := health.PatientProfile{
		Demographics:   health.Demographics{Age: intPtr(70), BMI: floatPtr(32)},
		MedicalHistory: health.MedicalHistory{Diseases: "hypertension"},
	}

	bundle := NewEngine(DefaultThresholds()).Predict(profile)
	bundle.Predictions[0].Recommendations[0] = "changed"

	assert.Equal(t, "Consult with a cardiologist for comprehensive evaluation", bundle.RiskAssessments[0].Recommendations[0])
}
