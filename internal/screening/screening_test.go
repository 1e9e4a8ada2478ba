package screening

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmsas95/healthrisk/internal/health"
)

func intPtr(i int) *int           { return &i }
func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func names(recs []health.TestRecommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.TestName
	}
	return out
}

func TestAgeBased_FiftyTwoYearOldFemale(t *testing.T) {
	recs := AgeBased(health.PatientProfile{Demographics: health.Demographics{
		Age:    intPtr(52),
		Gender: strPtr("female"),
	}})

	assert.Equal(t, []string{
		"Annual Physical Examination",
		"Lipid Panel",
		"Colonoscopy",
		"Mammogram",
	}, names(recs))
	assert.NotContains(t, names(recs), "PSA Test")

	assert.Equal(t, Annually, recs[0].RecommendedFrequency)
	assert.Equal(t, Every5Years, recs[1].RecommendedFrequency)
	assert.Equal(t, Every10Years, recs[2].RecommendedFrequency)
	assert.Equal(t, Annually, recs[3].RecommendedFrequency)
	for _, r := range recs {
		assert.Equal(t, health.ProvenanceAgeBased, r.Provenance)
		assert.Equal(t, health.CategoryRoutineScreening, r.Category)
	}
}

func TestAgeBased_SeniorMale(t *testing.T) {
	recs := AgeBased(health.PatientProfile{Demographics: health.Demographics{
		Age:    intPtr(67),
		Gender: strPtr("Male"),
	}})

	assert.Equal(t, []string{
		"Annual Physical Examination",
		"Lipid Panel",
		"Colonoscopy",
		"PSA Test",
		"Bone Density Scan (DEXA)",
	}, names(recs))
}

func TestAgeBased_YoungOrUnknown(t *testing.T) {
	assert.Empty(t, AgeBased(health.PatientProfile{Demographics: health.Demographics{Age: intPtr(39)}}))

	missing := AgeBased(health.PatientProfile{})
	assert.NotNil(t, missing)
	assert.Empty(t, missing)
}

func TestConditionBased(t *testing.T) {
	recs := ConditionBased(health.PatientProfile{MedicalHistory: health.MedicalHistory{
		Diseases: "Type 2 Diabetes; high blood pressure; Hypothyroidism",
	}})

	require.Len(t, recs, 3)
	assert.Equal(t, "HbA1c Test", recs[0].TestName)
	assert.Equal(t, Every3Months, recs[0].RecommendedFrequency)
	assert.Equal(t, "Blood Pressure Monitoring", recs[1].TestName)
	assert.Equal(t, Monthly, recs[1].RecommendedFrequency)
	assert.Equal(t, "Thyroid Function Test (TSH)", recs[2].TestName)
	assert.Equal(t, Every6Months, recs[2].RecommendedFrequency)
	for _, r := range recs {
		assert.Equal(t, health.ProvenanceConditionBased, r.Provenance)
	}
}

func TestLifestyleBased(t *testing.T) {
	profile := health.PatientProfile{
		Demographics: health.Demographics{BMI: floatPtr(27.5)},
		Lifestyle:    &health.LifestyleMetrics{AvgSleepHours: 5.2, AvgSteps: 3000},
	}

	recs := LifestyleBased(profile)
	assert.Equal(t, []string{"Sleep Study (Polysomnography)", "Cardiac Stress Test"}, names(recs))
	assert.Equal(t, AsNeeded, recs[0].RecommendedFrequency)
	assert.Equal(t, health.CategoryPreventive, recs[1].Category)

	profile.Demographics.BMI = nil
	assert.Equal(t, []string{"Sleep Study (Polysomnography)"}, names(LifestyleBased(profile)))

	assert.Empty(t, LifestyleBased(health.PatientProfile{}))
}

func TestGenerate_OrderAndNoDedup(t *testing.T) {
	profile := health.PatientProfile{
		Demographics:   health.Demographics{Age: intPtr(45), BMI: floatPtr(30)},
		MedicalHistory: health.MedicalHistory{Diseases: "diabetes"},
		Lifestyle:      &health.LifestyleMetrics{AvgSleepHours: 5, AvgSteps: 2000},
	}

	recs := Generate(profile)

	assert.Equal(t, []string{
		"Annual Physical Examination",
		"Lipid Panel",
		"HbA1c Test",
		"Sleep Study (Polysomnography)",
		"Cardiac Stress Test",
	}, names(recs))
}
