package store

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	apperrors "github.com/gmsas95/healthrisk/internal/errors"
	"github.com/gmsas95/healthrisk/internal/health"
)

const predictionPrefix = "prediction:"

// CachedPrediction is the latest bundle computed for a patient
type CachedPrediction struct {
	PatientID   string                  `json:"patient_id"`
	Source      string                  `json:"source"`
	Bundle      health.PredictionBundle `json:"bundle"`
	GeneratedAt time.Time               `json:"generated_at"`
}

// CachePrediction stores the latest bundle for a patient, replacing any
// previous one. Entries expire after the configured cache TTL.
func (s *Store) CachePrediction(entry CachedPrediction) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, "failed to encode cached prediction")
	}

	return s.badger.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(predictionPrefix+entry.PatientID), value)
		if s.cacheTTL > 0 {
			e = e.WithTTL(s.cacheTTL)
		}
		return txn.SetEntry(e)
	})
}

// CachedPrediction returns the latest cached bundle for a patient, or
// ErrRecordNotFound when there is none.
func (s *Store) CachedPrediction(patientID string) (*CachedPrediction, error) {
	var entry CachedPrediction
	err := s.badger.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(predictionPrefix + patientID))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, apperrors.Wrap(err, apperrors.ErrRecordNotFound.Code, "no cached prediction for patient "+patientID)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStoreQuery.Code, "failed to read cached prediction")
	}
	return &entry, nil
}

// InvalidatePrediction drops the cached bundle for a patient
func (s *Store) InvalidatePrediction(patientID string) error {
	return s.badger.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(predictionPrefix + patientID))
	})
}
