// Package screening generates medical test recommendations from a patient profile
package screening

import (
	"strings"

	"github.com/gmsas95/healthrisk/internal/health"
)

// Recommended frequencies.
const (
	Annually     = "annually"
	Every5Years  = "every_5_years"
	Every10Years = "every_10_years"
	Every2Years  = "every_2_years"
	Every3Months = "every_3_months"
	Monthly      = "monthly"
	Every6Months = "every_6_months"
	AsNeeded     = "as_needed"
)

// Generator produces test recommendations for one aspect of a profile.
type Generator func(profile health.PatientProfile) []health.TestRecommendation

// Generate concatenates age-based, condition-based and lifestyle-based
// recommendations in that order. Overlaps are kept.
func Generate(profile health.PatientProfile) []health.TestRecommendation {
	recs := make([]health.TestRecommendation, 0, 8)
	for _, gen := range []Generator{AgeBased, ConditionBased, LifestyleBased} {
		recs = append(recs, gen(profile)...)
	}
	return recs
}

// AgeBased recommends routine screenings by age and gender.
func AgeBased(profile health.PatientProfile) []health.TestRecommendation {
	recs := []health.TestRecommendation{}
	if profile.Demographics.Age == nil {
		return recs
	}
	age := *profile.Demographics.Age
	gender := genderOf(profile.Demographics.Gender)

	add := func(name string, priority health.Priority, reason, frequency string, related ...string) {
		recs = append(recs, health.TestRecommendation{
			TestName:             name,
			Category:             health.CategoryRoutineScreening,
			Priority:             priority,
			Reason:               reason,
			RecommendedFrequency: frequency,
			Provenance:           health.ProvenanceAgeBased,
			RelatedConditions:    related,
		})
	}

	if age >= 40 {
		add("Annual Physical Examination", health.PriorityMedium,
			"Recommended annual health checkup for adults 40+", Annually,
			"General Health Monitoring")
		add("Lipid Panel", health.PriorityMedium,
			"Cholesterol screening recommended for adults 40+", Every5Years,
			"Cardiovascular Disease", "Diabetes")
	}
	if age >= 50 {
		add("Colonoscopy", health.PriorityHigh,
			"Colorectal cancer screening recommended starting at age 50", Every10Years,
			"Colorectal Cancer")
	}
	if gender == "female" && age >= 40 {
		add("Mammogram", health.PriorityHigh,
			"Breast cancer screening recommended for women 40+", Annually,
			"Breast Cancer")
	}
	if gender == "male" && age >= 50 {
		add("PSA Test", health.PriorityMedium,
			"Prostate cancer screening recommended for men 50+", Annually,
			"Prostate Cancer")
	}
	if age >= 65 {
		add("Bone Density Scan (DEXA)", health.PriorityMedium,
			"Osteoporosis screening recommended for seniors", Every2Years,
			"Osteoporosis")
	}

	return recs
}

// ConditionBased recommends monitoring tests for conditions mentioned in the
// medical history.
func ConditionBased(profile health.PatientProfile) []health.TestRecommendation {
	recs := []health.TestRecommendation{}
	history := profile.MedicalHistory

	add := func(name string, priority health.Priority, reason, frequency string, related ...string) {
		recs = append(recs, health.TestRecommendation{
			TestName:             name,
			Category:             health.CategoryDiagnostic,
			Priority:             priority,
			Reason:               reason,
			RecommendedFrequency: frequency,
			Provenance:           health.ProvenanceConditionBased,
			RelatedConditions:    related,
		})
	}

	if history.MentionsCondition("diabetes") {
		add("HbA1c Test", health.PriorityHigh,
			"Regular monitoring for diabetes management", Every3Months, "Diabetes")
	}
	if history.MentionsCondition("hypertension", "blood pressure") {
		add("Blood Pressure Monitoring", health.PriorityHigh,
			"Regular monitoring for hypertension management", Monthly, "Hypertension")
	}
	if history.MentionsCondition("thyroid") {
		add("Thyroid Function Test (TSH)", health.PriorityMedium,
			"Monitor thyroid hormone levels", Every6Months, "Thyroid Disorder")
	}

	return recs
}

// LifestyleBased recommends diagnostics driven by tracked lifestyle data.
func LifestyleBased(profile health.PatientProfile) []health.TestRecommendation {
	recs := []health.TestRecommendation{}
	l := profile.Lifestyle
	if l == nil {
		return recs
	}

	if l.AvgSleepHours < 6 {
		recs = append(recs, health.TestRecommendation{
			TestName:             "Sleep Study (Polysomnography)",
			Category:             health.CategoryDiagnostic,
			Priority:             health.PriorityMedium,
			Reason:               "Chronic poor sleep quality may indicate sleep disorder",
			RecommendedFrequency: AsNeeded,
			Provenance:           health.ProvenanceLifestyleBased,
			RelatedConditions:    []string{"Sleep Apnea", "Insomnia"},
		})
	}

	bmi := profile.Demographics.BMI
	if l.AvgSteps < 5000 && bmi != nil && *bmi > 25 {
		recs = append(recs, health.TestRecommendation{
			TestName:             "Cardiac Stress Test",
			Category:             health.CategoryPreventive,
			Priority:             health.PriorityMedium,
			Reason:               "Sedentary lifestyle with elevated BMI increases cardiovascular risk",
			RecommendedFrequency: AsNeeded,
			Provenance:           health.ProvenanceLifestyleBased,
			RelatedConditions:    []string{"Cardiovascular Disease"},
		})
	}

	return recs
}

func genderOf(g *string) string {
	if g == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*g))
}
