// Package batch runs predictions over JSONL files of patient records
package batch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gmsas95/healthrisk/internal/ai"
	apperrors "github.com/gmsas95/healthrisk/internal/errors"
	"github.com/gmsas95/healthrisk/internal/health"
	"github.com/gmsas95/healthrisk/internal/metrics"
)

// Item statuses
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

const progressEvery = 100

// Predictor produces a prediction result for a profile
type Predictor interface {
	Predict(ctx context.Context, profile health.PatientProfile) ai.Result
	PredictRules(profile health.PatientProfile) ai.Result
}

// RecordLoader resolves stored records for items that reference a patient
type RecordLoader interface {
	LoadRecords(ctx context.Context, patientID string, now time.Time) (health.Records, error)
}

type Processor struct {
	predictor Predictor
	loader    RecordLoader
	config    Config
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

type Config struct {
	MaxConcurrency    int
	Timeout           time.Duration
	RequestsPerMinute float64
	RulesOnly         bool
	SkipInvalid       bool
}

// InputItem is one JSONL line. Either Records or PatientID must be set.
type InputItem struct {
	ID        string          `json:"id"`
	PatientID string          `json:"patient_id,omitempty"`
	Records   *health.Records `json:"records,omitempty"`
}

type OutputItem struct {
	ID           string                   `json:"id"`
	Source       ai.Source                `json:"source,omitempty"`
	FallbackCode string                   `json:"fallback_code,omitempty"`
	Bundle       *health.PredictionBundle `json:"bundle,omitempty"`
	ResponseTime time.Duration            `json:"response_time"`
	Status       string                   `json:"status"`
	Error        string                   `json:"error,omitempty"`
	Timestamp    time.Time                `json:"timestamp"`
}

type Result struct {
	Total     int           `json:"total"`
	Success   int           `json:"success"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Fallbacks int           `json:"fallbacks"`
	Duration  time.Duration `json:"duration"`
	Items     []OutputItem  `json:"items"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        90 * time.Second,
		SkipInvalid:    true,
	}
}

// Option customizes a Processor
type Option func(*Processor)

// WithRecordLoader lets items reference stored patients by ID
func WithRecordLoader(l RecordLoader) Option {
	return func(p *Processor) { p.loader = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithClock overrides the reference time used to build profiles
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

func NewProcessor(predictor Predictor, cfg Config, logger *zap.Logger, opts ...Option) *Processor {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Processor{
		predictor: predictor,
		config:    cfg,
		logger:    logger,
		now:       time.Now,
	}
	if cfg.RequestsPerMinute > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), 1)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessFile reads JSONL items from inputPath, predicts each one and writes
// the results to outputPath when it is not empty.
func (p *Processor) ProcessFile(ctx context.Context, inputPath, outputPath string) (*Result, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load input file: %w", err)
	}
	defer file.Close()

	items, skipped, err := p.LoadItems(file)
	if err != nil {
		return nil, fmt.Errorf("failed to load input file: %w", err)
	}

	result := p.Process(ctx, items)
	result.Total += len(skipped)
	result.Skipped += len(skipped)
	result.Items = append(result.Items, skipped...)

	if outputPath != "" {
		if err := saveOutputFile(outputPath, result); err != nil {
			return result, fmt.Errorf("failed to save output file: %w", err)
		}
	}

	return result, nil
}

// Process predicts items with bounded concurrency. Output items keep the
// input order.
func (p *Processor) Process(ctx context.Context, items []InputItem) *Result {
	startTime := time.Now()
	result := &Result{
		Total:     len(items),
		StartTime: startTime,
		Items:     make([]OutputItem, len(items)),
	}

	concurrency := min(p.config.MaxConcurrency, len(items))

	p.logger.Info("Starting batch prediction",
		zap.Int("total_items", len(items)),
		zap.Int("concurrency", concurrency),
		zap.Float64("rpm_limit", p.config.RequestsPerMinute),
		zap.Bool("rules_only", p.config.RulesOnly),
	)

	progress := &ProgressTracker{Total: len(items), StartTime: startTime}
	indexes := make(chan int, len(items))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexes {
				result.Items[idx] = p.processItem(ctx, items[idx])
				if done := progress.Increment(); done%progressEvery == 0 {
					p.logger.Info("Batch progress",
						zap.Int("completed", done),
						zap.Int("total", progress.Total),
						zap.Float64("percent", progress.Percent()),
						zap.Duration("elapsed", progress.Elapsed()),
						zap.Duration("eta", progress.ETA()),
					)
				}
			}
		}()
	}

	for i := range items {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	for _, item := range result.Items {
		switch item.Status {
		case StatusSuccess:
			result.Success++
		case StatusSkipped:
			result.Skipped++
		default:
			result.Failed++
		}
		if item.FallbackCode != "" {
			result.Fallbacks++
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	p.logger.Info("Batch prediction complete",
		zap.Int("total", result.Total),
		zap.Int("success", result.Success),
		zap.Int("failed", result.Failed),
		zap.Int("fallbacks", result.Fallbacks),
		zap.Duration("duration", result.Duration),
	)

	return result
}

func (p *Processor) processItem(ctx context.Context, item InputItem) OutputItem {
	output := OutputItem{ID: item.ID, Timestamp: time.Now()}
	fail := func(status string, err error) OutputItem {
		output.Status = status
		output.Error = err.Error()
		p.metrics.RecordBatchItem(status)
		p.logger.Warn("Batch item failed", zap.String("id", item.ID), zap.String("status", status), zap.Error(err))
		return output
	}

	if p.limiter != nil && !p.config.RulesOnly {
		if err := p.limiter.Wait(ctx); err != nil {
			return fail(StatusFailed, apperrors.WrapAs(apperrors.ErrAIRateLimited, err))
		}
	}

	itemCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	now := p.now()
	records, err := p.resolveRecords(itemCtx, item, now)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrBadRequest) {
			return fail(StatusSkipped, err)
		}
		return fail(StatusFailed, err)
	}

	profile := health.Build(records, now)

	start := time.Now()
	var res ai.Result
	if p.config.RulesOnly {
		res = p.predictor.PredictRules(profile)
	} else {
		res = p.predictor.Predict(itemCtx, profile)
	}
	output.ResponseTime = time.Since(start)

	output.Source = res.Source
	output.Bundle = &res.Bundle
	if res.FallbackReason != nil {
		output.FallbackCode = apperrors.GetCode(res.FallbackReason)
	}
	output.Status = StatusSuccess
	p.metrics.RecordBatchItem(StatusSuccess)
	return output
}

func (p *Processor) resolveRecords(ctx context.Context, item InputItem, now time.Time) (health.Records, error) {
	switch {
	case item.Records != nil:
		return *item.Records, nil
	case item.PatientID != "" && p.loader != nil:
		return p.loader.LoadRecords(ctx, item.PatientID, now)
	case item.PatientID != "":
		return health.Records{}, apperrors.New(apperrors.ErrBadRequest.Code, "patient_id given but no record store configured")
	default:
		return health.Records{}, apperrors.New(apperrors.ErrBadRequest.Code, "item has neither records nor patient_id")
	}
}

// LoadItems decodes JSONL input. Blank lines and lines starting with # are
// ignored. Lines that do not decode are returned as skipped output items when
// SkipInvalid is set, and fail the load otherwise.
func (p *Processor) LoadItems(r io.Reader) ([]InputItem, []OutputItem, error) {
	var (
		items   []InputItem
		skipped []OutputItem
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var item InputItem
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			if !p.config.SkipInvalid {
				return nil, nil, fmt.Errorf("line %d: failed to decode JSON: %w", lineNum, err)
			}
			skipped = append(skipped, OutputItem{
				ID:        fmt.Sprintf("line-%d", lineNum),
				Status:    StatusSkipped,
				Error:     fmt.Sprintf("invalid JSON: %v", err),
				Timestamp: time.Now(),
			})
			p.metrics.RecordBatchItem(StatusSkipped)
			continue
		}
		if item.ID == "" {
			item.ID = fmt.Sprintf("item-%d", lineNum)
		}
		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}

	return items, skipped, nil
}

// saveOutputFile writes an indented JSON result for .json paths and one
// output item per line otherwise.
func saveOutputFile(path string, result *Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		encoder := json.NewEncoder(file)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	encoder := json.NewEncoder(file)
	for _, item := range result.Items {
		if err := encoder.Encode(item); err != nil {
			return err
		}
	}
	return nil
}

func (r *Result) Summary() string {
	var sb strings.Builder
	sb.WriteString("=== Batch Prediction Summary ===\n")
	sb.WriteString(fmt.Sprintf("Total:     %d\n", r.Total))
	sb.WriteString(fmt.Sprintf("Success:   %d\n", r.Success))
	sb.WriteString(fmt.Sprintf("Failed:    %d\n", r.Failed))
	sb.WriteString(fmt.Sprintf("Skipped:   %d\n", r.Skipped))
	sb.WriteString(fmt.Sprintf("Fallbacks: %d\n", r.Fallbacks))
	sb.WriteString(fmt.Sprintf("Duration:  %v\n", r.Duration))
	return sb.String()
}

func (r *Result) ToJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
