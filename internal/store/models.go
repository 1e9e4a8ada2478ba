package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gmsas95/healthrisk/internal/health"
)

// Patient is a patient row
type Patient struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	FullName    string    `json:"full_name"`
	DOB         *string   `json:"dob"`
	Gender      *string   `json:"gender"`
	Weight      *float64  `json:"weight"`
	Height      *float64  `json:"height"`
	BloodGroup  *string   `json:"blood_group"`
	Diseases    string    `json:"diseases" gorm:"type:text"`
	Allergies   string    `json:"allergies" gorm:"type:text"`
	Medications string    `json:"medications" gorm:"type:text"`
	Surgeries   string    `json:"surgeries" gorm:"type:text"`
	Notes       string    `json:"notes" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PatientDocument is uploaded document metadata
type PatientDocument struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	PatientID   string    `gorm:"index:idx_doc_patient_uploaded" json:"patient_id"`
	Category    string    `json:"category"`
	FileName    string    `json:"file_name"`
	FileType    string    `json:"file_type"`
	Description string    `json:"description"`
	UploadedAt  time.Time `gorm:"index:idx_doc_patient_uploaded" json:"uploaded_at"`
}

// MentalHealthScore is one psychometric calculation
type MentalHealthScore struct {
	ID                    string    `gorm:"primaryKey" json:"id"`
	PatientID             string    `gorm:"index:idx_mh_patient_calculated" json:"patient_id"`
	MoodStabilityIndex    *float64  `json:"mood_stability_index"`
	StressResilienceScore *float64  `json:"stress_resilience_score"`
	BurnoutRiskScore      *float64  `json:"burnout_risk_score"`
	SocialConnectionIndex *float64  `json:"social_connection_index"`
	CognitiveFatigueScore *float64  `json:"cognitive_fatigue_score"`
	OverallWellbeingScore *float64  `json:"overall_wellbeing_score"`
	CalculatedAt          time.Time `gorm:"index:idx_mh_patient_calculated" json:"calculated_at"`
}

// SleepRecord is a tracked night of sleep
type SleepRecord struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	PatientID     string    `gorm:"index:idx_sleep_patient_date" json:"patient_id"`
	Date          time.Time `gorm:"index:idx_sleep_patient_date" json:"date"`
	DurationHours float64   `json:"duration_hours"`
}

func (SleepRecord) TableName() string { return "lifestyle_sleep_entries" }

// ActivityRecord is a tracked day of activity
type ActivityRecord struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	PatientID string    `gorm:"index:idx_activity_patient_date" json:"patient_id"`
	Date      time.Time `gorm:"index:idx_activity_patient_date" json:"date"`
	Steps     int       `json:"steps"`
}

func (ActivityRecord) TableName() string { return "lifestyle_activity_entries" }

// HydrationRecord is a tracked day of water intake
type HydrationRecord struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	PatientID    string    `gorm:"index:idx_hydration_patient_date" json:"patient_id"`
	Date         time.Time `gorm:"index:idx_hydration_patient_date" json:"date"`
	CupsConsumed float64   `json:"cups_consumed"`
}

func (HydrationRecord) TableName() string { return "lifestyle_hydration_entries" }

// NutritionRecord is a tracked meal or day of intake
type NutritionRecord struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	PatientID string    `gorm:"index:idx_nutrition_patient_date" json:"patient_id"`
	Date      time.Time `gorm:"index:idx_nutrition_patient_date" json:"date"`
	Calories  float64   `json:"calories"`
}

func (NutritionRecord) TableName() string { return "lifestyle_nutrition_entries" }

// BeforeCreate hooks assign UUIDs to rows created without one.

func (p *Patient) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (d *PatientDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.UploadedAt.IsZero() {
		d.UploadedAt = time.Now().UTC()
	}
	return nil
}

func (m *MentalHealthScore) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CalculatedAt.IsZero() {
		m.CalculatedAt = time.Now().UTC()
	}
	return nil
}

func (r *SleepRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (r *ActivityRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (r *HydrationRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (r *NutritionRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// PatientFromRaw converts an upstream patient record into a row.
func PatientFromRaw(raw health.RawPatient) *Patient {
	return &Patient{
		ID:          raw.ID,
		FullName:    raw.FullName,
		DOB:         raw.DOB,
		Gender:      raw.Gender,
		Weight:      raw.Weight,
		Height:      raw.Height,
		BloodGroup:  raw.BloodGroup,
		Diseases:    raw.Diseases,
		Allergies:   raw.Allergies,
		Medications: raw.Medications,
		Surgeries:   raw.Surgeries,
		Notes:       raw.Notes,
	}
}

// Raw converts the row into the record shape the profile builder consumes.
func (p *Patient) Raw() health.RawPatient {
	return health.RawPatient{
		ID:          p.ID,
		FullName:    p.FullName,
		DOB:         p.DOB,
		Gender:      p.Gender,
		Weight:      p.Weight,
		Height:      p.Height,
		BloodGroup:  p.BloodGroup,
		Diseases:    p.Diseases,
		Allergies:   p.Allergies,
		Medications: p.Medications,
		Surgeries:   p.Surgeries,
		Notes:       p.Notes,
	}
}

func (d *PatientDocument) Raw() health.RawDocument {
	return health.RawDocument{
		Category:    d.Category,
		FileName:    d.FileName,
		FileType:    d.FileType,
		UploadedAt:  d.UploadedAt,
		Description: d.Description,
	}
}

func (m *MentalHealthScore) Raw() *health.RawMentalHealth {
	calculated := m.CalculatedAt
	return &health.RawMentalHealth{
		MoodStabilityIndex:    m.MoodStabilityIndex,
		StressResilienceScore: m.StressResilienceScore,
		BurnoutRiskScore:      m.BurnoutRiskScore,
		SocialConnectionIndex: m.SocialConnectionIndex,
		CognitiveFatigueScore: m.CognitiveFatigueScore,
		OverallWellbeingScore: m.OverallWellbeingScore,
		CalculatedAt:          &calculated,
	}
}
