// Package cron re-scores stored patients on a schedule and keeps the prediction cache warm
package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	robfig "github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/gmsas95/healthrisk/internal/ai"
	apperrors "github.com/gmsas95/healthrisk/internal/errors"
	"github.com/gmsas95/healthrisk/internal/health"
	"github.com/gmsas95/healthrisk/internal/store"
)

// Config holds cron runner configuration
type Config struct {
	Schedule      string // standard cron spec or descriptor such as @hourly or @every 30m
	MaxConcurrent int    // maximum patients scored at once
	RulesOnly     bool   // skip the model path on scheduled runs
}

// PatientStore is the part of the record store the refresher needs
type PatientStore interface {
	ListPatientIDs(ctx context.Context) ([]string, error)
	LoadRecords(ctx context.Context, patientID string, now time.Time) (health.Records, error)
	CachePrediction(entry store.CachedPrediction) error
}

// Predictor produces a prediction result for a profile
type Predictor interface {
	Predict(ctx context.Context, profile health.PatientProfile) ai.Result
	PredictRules(profile health.PatientProfile) ai.Result
}

// Refresher computes and caches predictions for stored patients
type Refresher struct {
	store     PatientStore
	predictor Predictor
	logger    *zap.Logger
	now       func() time.Time
}

// NewRefresher creates a refresher. A nil logger discards output.
func NewRefresher(st PatientStore, predictor Predictor, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{store: st, predictor: predictor, logger: logger, now: time.Now}
}

// RefreshPatient loads a patient's records, predicts and caches the bundle.
func (f *Refresher) RefreshPatient(ctx context.Context, patientID string, rulesOnly bool) (*store.CachedPrediction, error) {
	now := f.now()
	records, err := f.store.LoadRecords(ctx, patientID, now)
	if err != nil {
		return nil, err
	}

	profile := health.Build(records, now)
	var res ai.Result
	if rulesOnly {
		res = f.predictor.PredictRules(profile)
	} else {
		res = f.predictor.Predict(ctx, profile)
	}

	entry := store.CachedPrediction{
		PatientID:   patientID,
		Source:      string(res.Source),
		Bundle:      res.Bundle,
		GeneratedAt: now.UTC(),
	}
	if err := f.store.CachePrediction(entry); err != nil {
		// The bundle is still valid; only the cache write failed.
		f.logger.Warn("Failed to cache prediction", zap.String("patient_id", patientID), zap.Error(err))
	}
	return &entry, nil
}

// RefreshSummary counts the outcome of a full refresh
type RefreshSummary struct {
	Total    int
	Success  int
	Failed   int
	Duration time.Duration
}

// RefreshAll re-scores every stored patient with at most maxConcurrent in
// flight. Individual failures are logged and counted.
func (f *Refresher) RefreshAll(ctx context.Context, maxConcurrent int, rulesOnly bool) (RefreshSummary, error) {
	start := time.Now()
	ids, err := f.store.ListPatientIDs(ctx)
	if err != nil {
		return RefreshSummary{}, err
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	summary := RefreshSummary{Total: len(ids)}
	var mu sync.Mutex

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for _, id := range ids {
		wg.Add(1)
		sem <- struct{}{}

		go func(patientID string) {
			defer wg.Done()
			defer func() { <-sem }()

			_, err := f.RefreshPatient(ctx, patientID, rulesOnly)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				f.logger.Error("Failed to refresh patient",
					zap.String("patient_id", patientID),
					zap.String("code", apperrors.GetCode(err)),
					zap.Error(err),
				)
				return
			}
			summary.Success++
		}(id)
	}

	wg.Wait()
	summary.Duration = time.Since(start)
	return summary, nil
}

// Runner manages scheduled refresh execution
type Runner struct {
	config    Config
	refresher *Refresher
	logger    *zap.Logger
	cron      *robfig.Cron
	ctx       context.Context
	cancel    context.CancelFunc
	running   bool
	mu        sync.RWMutex
}

// NewRunner creates a new cron runner
func NewRunner(config Config, refresher *Refresher, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		config:    config,
		refresher: refresher,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// ParseSchedule validates a cron spec and returns the next activation after from
func ParseSchedule(spec string, from time.Time) (time.Time, error) {
	sched, err := robfig.ParseStandard(spec)
	if err != nil {
		return time.Time{}, apperrors.Wrap(err, apperrors.ErrConfigInvalid.Code, fmt.Sprintf("invalid refresh schedule %q", spec))
	}
	return sched.Next(from), nil
}

// Start schedules the refresh job. An empty schedule is a no-op.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("cron runner already running")
	}
	if r.config.Schedule == "" {
		r.logger.Info("Scheduled refresh disabled")
		return nil
	}

	c := robfig.New()
	if _, err := c.AddFunc(r.config.Schedule, r.runOnce); err != nil {
		return apperrors.Wrap(err, apperrors.ErrConfigInvalid.Code, fmt.Sprintf("invalid refresh schedule %q", r.config.Schedule))
	}
	c.Start()

	r.cron = c
	r.running = true

	r.logger.Info("Scheduled refresh started",
		zap.String("schedule", r.config.Schedule),
		zap.Time("next_run", c.Entries()[0].Next),
	)
	return nil
}

// Stop stops scheduling and waits for a running refresh to finish
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	c := r.cron
	r.mu.Unlock()

	r.cancel()
	<-c.Stop().Done()
	r.logger.Info("Cron runner stopped")
}

// IsRunning returns whether the runner is active
func (r *Runner) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

func (r *Runner) runOnce() {
	summary, err := r.refresher.RefreshAll(r.ctx, r.config.MaxConcurrent, r.config.RulesOnly)
	if err != nil {
		r.logger.Error("Scheduled refresh failed", zap.Error(err))
		return
	}
	r.logger.Info("Scheduled refresh completed",
		zap.Int("total", summary.Total),
		zap.Int("success", summary.Success),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration),
	)
}
