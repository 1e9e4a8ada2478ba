// Package ai orchestrates model-backed prediction with a rule-based fallback
package ai

import (
	"context"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/gmsas95/healthrisk/internal/errors"
	"github.com/gmsas95/healthrisk/internal/health"
	"github.com/gmsas95/healthrisk/internal/metrics"
	"github.com/gmsas95/healthrisk/internal/prediction"
	"github.com/gmsas95/healthrisk/internal/security"
)

// Generator sends a prompt to a generative model and returns its text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Source says which path produced a bundle.
type Source string

const (
	SourceAI         Source = "ai"
	SourceAIDegraded Source = "ai_degraded"
	SourceRuleBased  Source = "rule_based"
)

// Result is a bundle plus how it was obtained. FallbackReason is set only
// when the model path was attempted or required and the rule-based path
// answered instead.
type Result struct {
	Bundle         health.PredictionBundle `json:"bundle"`
	Source         Source                  `json:"source"`
	FallbackReason error                   `json:"-"`
}

// FellBack reports whether the rule-based path replaced a model answer.
func (r Result) FellBack() bool {
	return r.FallbackReason != nil
}

// Orchestrator runs the model path and falls back to the rule engine.
type Orchestrator struct {
	client   Generator
	engine   *prediction.Engine
	screener *security.Screener
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimeout bounds each model call.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New creates an orchestrator. A nil client means every request is answered
// by the rule engine.
func New(client Generator, engine *prediction.Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:   client,
		engine:   engine,
		screener: security.NewScreener(),
		timeout:  60 * time.Second,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.engine == nil {
		o.engine = prediction.NewEngine(prediction.DefaultThresholds())
	}
	return o
}

// Enabled reports whether a model client is configured.
func (o *Orchestrator) Enabled() bool {
	return o.client != nil
}

// Predict asks the model for a bundle. Any failure to obtain model text
// (transport, status, unreadable or empty body, open circuit, rate limit,
// timeout, cancellation) is logged and answered by the rule engine. Text
// that does not parse is returned as a degraded bundle.
func (o *Orchestrator) Predict(ctx context.Context, profile health.PatientProfile) Result {
	if o.client == nil {
		return o.fallback(profile, apperrors.ErrAINotConfigured, 0)
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	text, err := o.client.Generate(callCtx, o.screen(BuildPrompt(profile)))
	elapsed := time.Since(start)
	o.metrics.ObserveAIRequest(elapsed)

	if err != nil {
		return o.fallback(profile, err, elapsed)
	}

	bundle := Parse(text)
	if bundle.IsDegraded() {
		o.logger.Warn("model response was not structured JSON",
			zap.Int("response_length", len(text)),
			zap.Duration("latency", elapsed),
		)
		o.metrics.RecordDegraded()
		o.metrics.RecordPrediction(string(SourceAIDegraded))
		return Result{Bundle: bundle, Source: SourceAIDegraded}
	}

	o.logger.Info("model prediction completed",
		zap.Int("predictions", len(bundle.Predictions)),
		zap.Int("tests", len(bundle.TestRecommendations)),
		zap.Duration("latency", elapsed),
	)
	o.metrics.RecordPrediction(string(SourceAI))
	return Result{Bundle: bundle, Source: SourceAI}
}

// screen redacts credentials found in patient free text before it leaves
// the process. Instruction-like phrasing is only logged.
func (o *Orchestrator) screen(prompt string) string {
	f := o.screener.Screen(prompt)
	if f.Injection {
		o.logger.Warn("patient text contains instruction-like phrasing")
	}
	if len(f.Secrets) > 0 {
		o.logger.Warn("redacted credentials from prompt", zap.Strings("patterns", f.Secrets))
	}
	return f.Text
}

// PredictRules answers with the rule engine only.
func (o *Orchestrator) PredictRules(profile health.PatientProfile) Result {
	o.metrics.RecordPrediction(string(SourceRuleBased))
	return Result{Bundle: o.engine.Predict(profile), Source: SourceRuleBased}
}

func (o *Orchestrator) fallback(profile health.PatientProfile, reason error, elapsed time.Duration) Result {
	code := apperrors.GetCode(reason)
	o.logger.Warn("falling back to rule-based prediction",
		zap.String("code", code),
		zap.Error(reason),
		zap.Duration("latency", elapsed),
	)
	o.metrics.RecordFallback(code)
	o.metrics.RecordPrediction(string(SourceRuleBased))

	return Result{
		Bundle:         o.engine.Predict(profile),
		Source:         SourceRuleBased,
		FallbackReason: reason,
	}
}
