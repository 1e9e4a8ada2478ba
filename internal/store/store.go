// Package store persists patient records in SQLite and caches prediction bundles in BadgerDB
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gmsas95/healthrisk/internal/config"
	apperrors "github.com/gmsas95/healthrisk/internal/errors"
	"github.com/gmsas95/healthrisk/internal/health"
)

// Store provides access to patient records and the prediction cache
type Store struct {
	db       *gorm.DB
	sqlDB    *sql.DB
	badger   *badger.DB
	cacheTTL time.Duration
}

// New opens the SQLite database and the BadgerDB cache described by cfg
func New(cfg *config.Config) (*Store, error) {
	sqlitePath := cfg.Storage.SQLitePath
	if sqlitePath == "" {
		sqlitePath = filepath.Join(cfg.Storage.DataDir, "healthrisk.db")
	}

	sqliteDB, err := sql.Open("sqlite", sqlitePath+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqliteDB.SetMaxOpenConns(10)
	sqliteDB.SetMaxIdleConns(5)
	sqliteDB.SetConnMaxLifetime(time.Hour)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		sqliteDB.Close()
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if err := db.AutoMigrate(
		&Patient{},
		&PatientDocument{},
		&MentalHealthScore{},
		&SleepRecord{},
		&ActivityRecord{},
		&HydrationRecord{},
		&NutritionRecord{},
	); err != nil {
		sqliteDB.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	cachePath := cfg.Storage.CachePath
	if cachePath == "" {
		cachePath = filepath.Join(cfg.Storage.DataDir, "cache")
	}

	badgerOpts := badger.DefaultOptions(cachePath).
		WithLogger(nil).
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true).
		WithValueLogFileSize(16 << 20).
		WithMemTableSize(16 << 20)

	badgerDB, err := badger.Open(badgerOpts)
	if err != nil {
		sqliteDB.Close()
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &Store{
		db:       db,
		sqlDB:    sqliteDB,
		badger:   badgerDB,
		cacheTTL: cfg.CacheTTL(),
	}, nil
}

// Close closes all database connections
func (s *Store) Close() error {
	return errors.Join(s.badger.Close(), s.sqlDB.Close())
}

// DB returns the GORM database instance
func (s *Store) DB() *gorm.DB {
	return s.db
}

// ==================== Patient Methods ====================

// CreatePatient inserts a patient, assigning an ID when empty
func (s *Store) CreatePatient(ctx context.Context, p *Patient) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrStoreQuery.Code, "failed to create patient")
	}
	return nil
}

// GetPatient retrieves a patient by ID
func (s *Store) GetPatient(ctx context.Context, id string) (*Patient, error) {
	var p Patient
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, queryError(err, "patient "+id)
	}
	return &p, nil
}

// ListPatientIDs returns the IDs of all stored patients
func (s *Store) ListPatientIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&Patient{}).Order("created_at ASC").Pluck("id", &ids).Error; err != nil {
		return nil, queryError(err, "patients")
	}
	return ids, nil
}

// ==================== Record Methods ====================

// AddDocument records uploaded document metadata
func (s *Store) AddDocument(ctx context.Context, d *PatientDocument) error {
	return s.create(ctx, d, "document")
}

// AddMentalHealthScore records a psychometric calculation
func (s *Store) AddMentalHealthScore(ctx context.Context, m *MentalHealthScore) error {
	return s.create(ctx, m, "mental health score")
}

// AddLifestyleEntries records tracker entries for a patient
func (s *Store) AddLifestyleEntries(ctx context.Context, patientID string, entries health.LifestyleEntries) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return addLifestyle(tx, patientID, entries)
	})
}

func addLifestyle(tx *gorm.DB, patientID string, entries health.LifestyleEntries) error {
	for _, e := range entries.Sleep {
		if err := tx.Create(&SleepRecord{PatientID: patientID, Date: e.Date.UTC(), DurationHours: e.DurationHours}).Error; err != nil {
			return apperrors.Wrap(err, apperrors.ErrStoreQuery.Code, "failed to add sleep entry")
		}
	}
	for _, e := range entries.Activity {
		if err := tx.Create(&ActivityRecord{PatientID: patientID, Date: e.Date.UTC(), Steps: e.Steps}).Error; err != nil {
			return apperrors.Wrap(err, apperrors.ErrStoreQuery.Code, "failed to add activity entry")
		}
	}
	for _, e := range entries.Hydration {
		if err := tx.Create(&HydrationRecord{PatientID: patientID, Date: e.Date.UTC(), CupsConsumed: e.CupsConsumed}).Error; err != nil {
			return apperrors.Wrap(err, apperrors.ErrStoreQuery.Code, "failed to add hydration entry")
		}
	}
	for _, e := range entries.Nutrition {
		if err := tx.Create(&NutritionRecord{PatientID: patientID, Date: e.Date.UTC(), Calories: e.Calories}).Error; err != nil {
			return apperrors.Wrap(err, apperrors.ErrStoreQuery.Code, "failed to add nutrition entry")
		}
	}
	return nil
}

func (s *Store) create(ctx context.Context, row any, what string) error {
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrStoreQuery.Code, "failed to add "+what)
	}
	return nil
}

// ==================== Import ====================

// Import is a patient with everything recorded about them, as read from an
// import file.
type Import struct {
	Patient      health.RawPatient       `json:"patient" yaml:"patient"`
	Documents    []health.RawDocument    `json:"documents,omitempty" yaml:"documents,omitempty"`
	MentalHealth *health.RawMentalHealth `json:"mental_health,omitempty" yaml:"mental_health,omitempty"`
	Lifestyle    health.LifestyleEntries `json:"lifestyle,omitempty" yaml:"lifestyle,omitempty"`
}

// ImportPatient stores a patient and their records in one transaction and
// returns the patient ID.
func (s *Store) ImportPatient(ctx context.Context, in Import) (string, error) {
	patient := PatientFromRaw(in.Patient)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(patient).Error; err != nil {
			return apperrors.Wrap(err, apperrors.ErrStoreQuery.Code, "failed to create patient")
		}
		for _, d := range in.Documents {
			doc := &PatientDocument{
				PatientID:   patient.ID,
				Category:    d.Category,
				FileName:    d.FileName,
				FileType:    d.FileType,
				Description: d.Description,
				UploadedAt:  d.UploadedAt.UTC(),
			}
			if err := tx.Create(doc).Error; err != nil {
				return apperrors.Wrap(err, apperrors.ErrStoreQuery.Code, "failed to add document")
			}
		}
		if m := in.MentalHealth; m != nil {
			score := &MentalHealthScore{
				PatientID:             patient.ID,
				MoodStabilityIndex:    m.MoodStabilityIndex,
				StressResilienceScore: m.StressResilienceScore,
				BurnoutRiskScore:      m.BurnoutRiskScore,
				SocialConnectionIndex: m.SocialConnectionIndex,
				CognitiveFatigueScore: m.CognitiveFatigueScore,
				OverallWellbeingScore: m.OverallWellbeingScore,
			}
			if m.CalculatedAt != nil {
				score.CalculatedAt = m.CalculatedAt.UTC()
			}
			if err := tx.Create(score).Error; err != nil {
				return apperrors.Wrap(err, apperrors.ErrStoreQuery.Code, "failed to add mental health score")
			}
		}
		return addLifestyle(tx, patient.ID, in.Lifestyle)
	})
	if err != nil {
		return "", err
	}
	return patient.ID, nil
}

// ==================== Record Loading ====================

// LoadRecords gathers the record bundle for one patient as of now: the
// patient row, documents newest first, the latest psychometric score and a
// summary of the lifestyle entries from the last seven days. Missing optional
// records leave their part empty. A missing patient is ErrRecordNotFound.
func (s *Store) LoadRecords(ctx context.Context, patientID string, now time.Time) (health.Records, error) {
	patient, err := s.GetPatient(ctx, patientID)
	if err != nil {
		return health.Records{}, err
	}

	db := s.db.WithContext(ctx)
	since := now.UTC().Add(-health.LifestyleWindow)

	var (
		docs      []PatientDocument
		mental    []MentalHealthScore
		sleep     []SleepRecord
		activity  []ActivityRecord
		hydration []HydrationRecord
		nutrition []NutritionRecord
	)

	queries := []func() error{
		func() error {
			return db.Where("patient_id = ?", patientID).Order("uploaded_at DESC").Find(&docs).Error
		},
		func() error {
			return db.Where("patient_id = ?", patientID).Order("calculated_at DESC").Limit(1).Find(&mental).Error
		},
		func() error {
			return db.Where("patient_id = ? AND date >= ?", patientID, since).Order("date ASC").Find(&sleep).Error
		},
		func() error {
			return db.Where("patient_id = ? AND date >= ?", patientID, since).Order("date ASC").Find(&activity).Error
		},
		func() error {
			return db.Where("patient_id = ? AND date >= ?", patientID, since).Order("date ASC").Find(&hydration).Error
		},
		func() error {
			return db.Where("patient_id = ? AND date >= ?", patientID, since).Order("date ASC").Find(&nutrition).Error
		},
	}

	errs := make([]error, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q func() error) {
			defer wg.Done()
			errs[i] = q()
		}(i, q)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return health.Records{}, apperrors.Wrap(err, apperrors.ErrStoreQuery.Code, "failed to load records for patient "+patientID)
	}

	records := health.Records{Patient: patient.Raw()}

	for i := range docs {
		records.Documents = append(records.Documents, docs[i].Raw())
	}
	if len(mental) > 0 {
		records.MentalHealth = mental[0].Raw()
	}

	var entries health.LifestyleEntries
	for _, r := range sleep {
		entries.Sleep = append(entries.Sleep, health.SleepEntry{Date: r.Date, DurationHours: r.DurationHours})
	}
	for _, r := range activity {
		entries.Activity = append(entries.Activity, health.ActivityEntry{Date: r.Date, Steps: r.Steps})
	}
	for _, r := range hydration {
		entries.Hydration = append(entries.Hydration, health.HydrationEntry{Date: r.Date, CupsConsumed: r.CupsConsumed})
	}
	for _, r := range nutrition {
		entries.Nutrition = append(entries.Nutrition, health.NutritionEntry{Date: r.Date, Calories: r.Calories})
	}
	lifestyle := health.SummarizeLifestyle(entries)
	records.Lifestyle = &lifestyle

	return records, nil
}

func queryError(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.Wrap(err, apperrors.ErrRecordNotFound.Code, what+" not found")
	}
	return apperrors.Wrap(err, apperrors.ErrStoreQuery.Code, "failed to query "+what)
}
