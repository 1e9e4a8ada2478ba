package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmsas95/healthrisk/internal/config"
	apperrors "github.com/gmsas95/healthrisk/internal/errors"
	"github.com/gmsas95/healthrisk/internal/health"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			DataDir:    dir,
			SQLitePath: filepath.Join(dir, "test.db"),
			CachePath:  filepath.Join(dir, "cache"),
			CacheTTL:   1,
		},
	}
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func day(offset int) time.Time {
	return testNow.AddDate(0, 0, offset)
}

func TestGetPatient_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetPatient(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrRecordNotFound))
}

func TestCreatePatient_AssignsID(t *testing.T) {
	s := newTestStore(t)
	p := &Patient{FullName: "Ada"}

	require.NoError(t, s.CreatePatient(context.Background(), p))
	assert.NotEmpty(t, p.ID)

	got, err := s.GetPatient(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.FullName)
}

func TestLoadRecords_PatientOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := &Patient{DOB: strPtr("1980-03-01"), Diseases: "Hypertension"}
	require.NoError(t, s.CreatePatient(ctx, p))

	records, err := s.LoadRecords(ctx, p.ID, testNow)
	require.NoError(t, err)

	assert.Equal(t, "Hypertension", records.Patient.Diseases)
	assert.Empty(t, records.Documents)
	assert.Nil(t, records.MentalHealth)
	require.NotNil(t, records.Lifestyle)
	assert.False(t, records.Lifestyle.HasData)

	profile := health.Build(records, testNow)
	assert.Nil(t, profile.Lifestyle)
	require.NotNil(t, profile.Demographics.Age)
	assert.Equal(t, 46, *profile.Demographics.Age)
}

func TestLoadRecords_Missing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadRecords(context.Background(), "nobody", testNow)
	assert.True(t, apperrors.Is(err, apperrors.ErrRecordNotFound))
}

func TestLoadRecords_Full(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.ImportPatient(ctx, Import{
		Patient: health.RawPatient{
			FullName: "Grace",
			DOB:      strPtr("1976-10-15"),
			Gender:   strPtr("female"),
			Weight:   floatPtr(70),
			Height:   floatPtr(165),
		},
		Documents: []health.RawDocument{
			{Category: "lab_report", FileName: "old.pdf", UploadedAt: day(-30)},
			{Category: "imaging", FileName: "new.pdf", UploadedAt: day(-1)},
		},
		MentalHealth: &health.RawMentalHealth{BurnoutRiskScore: floatPtr(20)},
		Lifestyle: health.LifestyleEntries{
			Sleep: []health.SleepEntry{
				{Date: day(-1), DurationHours: 6},
				{Date: day(-2), DurationHours: 7},
				{Date: day(-20), DurationHours: 2},
			},
			Activity: []health.ActivityEntry{{Date: day(-1), Steps: 5000}},
		},
	})
	require.NoError(t, err)

	newer := &MentalHealthScore{PatientID: id, BurnoutRiskScore: floatPtr(80), CalculatedAt: testNow}
	require.NoError(t, s.AddMentalHealthScore(ctx, newer))

	records, err := s.LoadRecords(ctx, id, testNow)
	require.NoError(t, err)

	require.Len(t, records.Documents, 2)
	assert.Equal(t, "new.pdf", records.Documents[0].FileName)
	assert.Equal(t, "old.pdf", records.Documents[1].FileName)

	require.NotNil(t, records.MentalHealth)
	assert.Equal(t, 80.0, *records.MentalHealth.BurnoutRiskScore)

	require.NotNil(t, records.Lifestyle)
	assert.True(t, records.Lifestyle.HasData)
	assert.Equal(t, 6.5, records.Lifestyle.Stats.AvgSleep)
	assert.Equal(t, 5000.0, records.Lifestyle.Stats.AvgSteps)
	assert.Equal(t, 50.0, records.Lifestyle.Stats.StepsProgress)
	assert.Equal(t, 0.0, records.Lifestyle.Stats.AvgHydration)
}

func TestAddLifestyleEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := &Patient{}
	require.NoError(t, s.CreatePatient(ctx, p))

	require.NoError(t, s.AddLifestyleEntries(ctx, p.ID, health.LifestyleEntries{
		Hydration: []health.HydrationEntry{{Date: day(-1), CupsConsumed: 8}, {Date: day(-2), CupsConsumed: 12}},
		Nutrition: []health.NutritionEntry{{Date: day(-1), Calories: 2500}},
	}))

	records, err := s.LoadRecords(ctx, p.ID, testNow)
	require.NoError(t, err)
	assert.Equal(t, 10.0, records.Lifestyle.Stats.AvgHydration)
	assert.Equal(t, 100.0, records.Lifestyle.Stats.HydrationProgress)
	assert.Equal(t, 100.0, records.Lifestyle.Stats.CaloriesProgress)
}

func TestListPatientIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreatePatient(ctx, &Patient{}))
	}

	ids, err := s.ListPatientIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
}

func TestPredictionCache(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CachedPrediction("p1")
	assert.True(t, apperrors.Is(err, apperrors.ErrRecordNotFound))

	bundle := health.EmptyBundle("cached")
	require.NoError(t, s.CachePrediction(CachedPrediction{
		PatientID:   "p1",
		Source:      "rule_based",
		Bundle:      bundle,
		GeneratedAt: testNow,
	}))

	got, err := s.CachedPrediction("p1")
	require.NoError(t, err)
	assert.Equal(t, "cached", got.Bundle.Summary)
	assert.Equal(t, "rule_based", got.Source)
	assert.True(t, testNow.Equal(got.GeneratedAt))

	require.NoError(t, s.InvalidatePrediction("p1"))
	_, err = s.CachedPrediction("p1")
	assert.True(t, apperrors.Is(err, apperrors.ErrRecordNotFound))
}
