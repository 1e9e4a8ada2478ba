package cron

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gmsas95/healthrisk/internal/ai"
	apperrors "github.com/gmsas95/healthrisk/internal/errors"
	"github.com/gmsas95/healthrisk/internal/health"
	"github.com/gmsas95/healthrisk/internal/store"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string]health.Records
	cached  map[string]store.CachedPrediction
}

func newMemoryStore() *memoryStore {
	dob := "1950-06-01"
	return &memoryStore{
		records: map[string]health.Records{
			"senior": {Patient: health.RawPatient{DOB: &dob}},
			"blank":  {},
		},
		cached: map[string]store.CachedPrediction{},
	}
}

func (m *memoryStore) ListPatientIDs(context.Context) ([]string, error) {
	return []string{"senior", "blank", "ghost"}, nil
}

func (m *memoryStore) LoadRecords(_ context.Context, id string, _ time.Time) (health.Records, error) {
	r, ok := m.records[id]
	if !ok {
		return health.Records{}, apperrors.New(apperrors.ErrRecordNotFound.Code, "patient "+id+" not found")
	}
	return r, nil
}

func (m *memoryStore) CachePrediction(entry store.CachedPrediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached[entry.PatientID] = entry
	return nil
}

func TestRefreshPatient_CachesBundle(t *testing.T) {
	st := newMemoryStore()
	f := NewRefresher(st, ai.New(nil, nil), zap.NewNop())
	f.now = func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) }

	entry, err := f.RefreshPatient(context.Background(), "senior", true)
	require.NoError(t, err)
	assert.Equal(t, string(ai.SourceRuleBased), entry.Source)

	cached, ok := st.cached["senior"]
	require.True(t, ok)
	names := make([]string, 0, len(cached.Bundle.TestRecommendations))
	for _, rec := range cached.Bundle.TestRecommendations {
		names = append(names, rec.TestName)
	}
	assert.Contains(t, names, "Bone Density Scan (DEXA)")
}

func TestRefreshPatient_Missing(t *testing.T) {
	f := NewRefresher(newMemoryStore(), ai.New(nil, nil), nil)
	_, err := f.RefreshPatient(context.Background(), "ghost", false)
	assert.True(t, apperrors.Is(err, apperrors.ErrRecordNotFound))
}

func TestRefreshAll_CountsFailures(t *testing.T) {
	st := newMemoryStore()
	f := NewRefresher(st, ai.New(nil, nil), zap.NewNop())

	summary, err := f.RefreshAll(context.Background(), 2, false)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Success)
	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, st.cached, 2)
}

func TestParseSchedule(t *testing.T) {
	from := time.Date(2026, 10, 15, 8, 30, 0, 0, time.UTC)

	next, err := ParseSchedule("0 9 * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC), next)

	next, err = ParseSchedule("@every 30m", from)
	require.NoError(t, err)
	assert.Equal(t, from.Add(30*time.Minute), next)

	_, err = ParseSchedule("not a schedule", from)
	assert.True(t, apperrors.Is(err, apperrors.ErrConfigInvalid))
}

func TestRunner_EmptyScheduleIsNoop(t *testing.T) {
	r := NewRunner(Config{}, NewRefresher(newMemoryStore(), ai.New(nil, nil), nil), nil)
	require.NoError(t, r.Start())
	assert.False(t, r.IsRunning())
	r.Stop()
}

func TestRunner_StartStop(t *testing.T) {
	r := NewRunner(Config{Schedule: "@every 1h", RulesOnly: true}, NewRefresher(newMemoryStore(), ai.New(nil, nil), nil), zap.NewNop())
	require.NoError(t, r.Start())
	assert.True(t, r.IsRunning())
	assert.Error(t, r.Start())

	r.Stop()
	assert.False(t, r.IsRunning())
}

func TestRunner_InvalidSchedule(t *testing.T) {
	r := NewRunner(Config{Schedule: "every tuesday"}, NewRefresher(newMemoryStore(), ai.New(nil, nil), nil), nil)
	err := r.Start()
	assert.True(t, apperrors.Is(err, apperrors.ErrConfigInvalid))
	assert.False(t, r.IsRunning())
}
