package health

import (
	"math"
	"strings"
	"time"
)

const daysPerYear = 365.25

// Records is the raw record bundle handed over by the data layer.
type Records struct {
	Patient      RawPatient       `json:"patient" yaml:"patient"`
	Lifestyle    *RawLifestyle    `json:"lifestyle,omitempty" yaml:"lifestyle,omitempty"`
	MentalHealth *RawMentalHealth `json:"mental_health,omitempty" yaml:"mental_health,omitempty"`
	Documents    []RawDocument    `json:"documents,omitempty" yaml:"documents,omitempty"`
}

// RawPatient is the patient row as stored upstream.
type RawPatient struct {
	ID          string   `json:"id,omitempty" yaml:"id,omitempty"`
	FullName    string   `json:"full_name,omitempty" yaml:"full_name,omitempty"`
	DOB         *string  `json:"dob,omitempty" yaml:"dob,omitempty"` // YYYY-MM-DD or RFC 3339
	Gender      *string  `json:"gender,omitempty" yaml:"gender,omitempty"`
	Weight      *float64 `json:"weight,omitempty" yaml:"weight,omitempty"` // kg
	Height      *float64 `json:"height,omitempty" yaml:"height,omitempty"` // cm
	BloodGroup  *string  `json:"blood_group,omitempty" yaml:"blood_group,omitempty"`
	Diseases    string   `json:"diseases,omitempty" yaml:"diseases,omitempty"`
	Allergies   string   `json:"allergies,omitempty" yaml:"allergies,omitempty"`
	Medications string   `json:"medications,omitempty" yaml:"medications,omitempty"`
	Surgeries   string   `json:"surgeries,omitempty" yaml:"surgeries,omitempty"`
	Notes       string   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// RawLifestyle is a lifestyle summary. Stats are only meaningful when HasData is set.
type RawLifestyle struct {
	HasData bool            `json:"hasData" yaml:"hasData"`
	Stats   *LifestyleStats `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// LifestyleStats are averages and progress percentages over the tracking window.
type LifestyleStats struct {
	AvgSleep          float64 `json:"avgSleep" yaml:"avgSleep"`
	AvgSteps          float64 `json:"avgSteps" yaml:"avgSteps"`
	AvgHydration      float64 `json:"avgHydration" yaml:"avgHydration"`
	AvgCalories       float64 `json:"avgCalories" yaml:"avgCalories"`
	SleepProgress     float64 `json:"sleepProgress" yaml:"sleepProgress"`
	StepsProgress     float64 `json:"stepsProgress" yaml:"stepsProgress"`
	HydrationProgress float64 `json:"hydrationProgress" yaml:"hydrationProgress"`
	CaloriesProgress  float64 `json:"caloriesProgress" yaml:"caloriesProgress"`
}

// RawMentalHealth is the latest psychometric score row.
type RawMentalHealth struct {
	MoodStabilityIndex    *float64   `json:"mood_stability_index,omitempty" yaml:"mood_stability_index,omitempty"`
	StressResilienceScore *float64   `json:"stress_resilience_score,omitempty" yaml:"stress_resilience_score,omitempty"`
	BurnoutRiskScore      *float64   `json:"burnout_risk_score,omitempty" yaml:"burnout_risk_score,omitempty"`
	SocialConnectionIndex *float64   `json:"social_connection_index,omitempty" yaml:"social_connection_index,omitempty"`
	CognitiveFatigueScore *float64   `json:"cognitive_fatigue_score,omitempty" yaml:"cognitive_fatigue_score,omitempty"`
	OverallWellbeingScore *float64   `json:"overall_wellbeing_score,omitempty" yaml:"overall_wellbeing_score,omitempty"`
	CalculatedAt          *time.Time `json:"calculated_at,omitempty" yaml:"calculated_at,omitempty"`
}

// RawDocument is uploaded document metadata; binary content never reaches this layer.
type RawDocument struct {
	Category    string    `json:"category" yaml:"category"`
	FileName    string    `json:"file_name" yaml:"file_name"`
	FileType    string    `json:"file_type,omitempty" yaml:"file_type,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at" yaml:"uploaded_at"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// Build normalizes raw records into a PatientProfile as of now. It never
// fails: missing or unusable inputs become absent fields.
func Build(records Records, now time.Time) PatientProfile {
	p := records.Patient

	profile := PatientProfile{
		Demographics: Demographics{
			Age:        AgeAt(p.DOB, now),
			Gender:     copyString(p.Gender),
			BMI:        ComputeBMI(p.Weight, p.Height),
			BloodGroup: copyString(p.BloodGroup),
		},
		MedicalHistory: MedicalHistory{
			Diseases:    orDefault(p.Diseases, "None reported"),
			Allergies:   orDefault(p.Allergies, "None reported"),
			Medications: orDefault(p.Medications, "None"),
			Surgeries:   orDefault(p.Surgeries, "None"),
			Notes:       orDefault(p.Notes, "None"),
		},
		Documents: make([]Document, 0, len(records.Documents)),
	}

	if l := records.Lifestyle; l != nil && l.HasData && l.Stats != nil {
		profile.Lifestyle = &LifestyleMetrics{
			AvgSleepHours:       l.Stats.AvgSleep,
			AvgSteps:            l.Stats.AvgSteps,
			AvgHydration:        l.Stats.AvgHydration,
			AvgCalories:         l.Stats.AvgCalories,
			SleepProgressPct:    l.Stats.SleepProgress,
			ActivityProgressPct: l.Stats.StepsProgress,
		}
	}

	if m := records.MentalHealth; m != nil {
		profile.MentalHealth = &MentalHealthScores{
			MoodStability:    copyFloat(m.MoodStabilityIndex),
			StressResilience: copyFloat(m.StressResilienceScore),
			BurnoutRisk:      copyFloat(m.BurnoutRiskScore),
			SocialConnection: copyFloat(m.SocialConnectionIndex),
			CognitiveFatigue: copyFloat(m.CognitiveFatigueScore),
			OverallWellbeing: copyFloat(m.OverallWellbeingScore),
		}
	}

	for _, doc := range records.Documents {
		profile.Documents = append(profile.Documents, Document{
			Category:    doc.Category,
			FileName:    doc.FileName,
			UploadedAt:  doc.UploadedAt,
			Description: doc.Description,
		})
	}

	return profile
}

// AgeAt returns whole years elapsed since dob using a 365.25-day year, or nil
// when dob is missing, unparseable or in the future.
func AgeAt(dob *string, now time.Time) *int {
	if dob == nil {
		return nil
	}
	born, ok := parseDate(*dob)
	if !ok || born.After(now) {
		return nil
	}
	days := now.Sub(born).Hours() / 24
	age := int(math.Floor(days / daysPerYear))
	return &age
}

// ComputeBMI returns weight / height² (kg, cm) rounded to one decimal, or nil
// when either measurement is missing or not positive.
func ComputeBMI(weightKg, heightCm *float64) *float64 {
	if weightKg == nil || heightCm == nil || *weightKg <= 0 || *heightCm <= 0 {
		return nil
	}
	meters := *heightCm / 100
	bmi := math.Round(*weightKg/(meters*meters)*10) / 10
	return &bmi
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func copyString(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := *s
	return &v
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
