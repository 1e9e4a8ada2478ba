package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gmsas95/healthrisk/internal/ai"
	"github.com/gmsas95/healthrisk/internal/config"
	apperrors "github.com/gmsas95/healthrisk/internal/errors"
	"github.com/gmsas95/healthrisk/internal/llm"
	"github.com/gmsas95/healthrisk/internal/metrics"
	"github.com/gmsas95/healthrisk/internal/prediction"
)

// commonFlags are accepted by every command that loads configuration
type commonFlags struct {
	configPath string
	dataDir    string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Path to config file")
	fs.StringVar(&c.dataDir, "data", "", "Path to data directory")
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// runtime is what a command needs after configuration is loaded
type runtime struct {
	config  *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func loadRuntime(flags commonFlags) (*runtime, error) {
	cfg, err := config.Load(flags.configPath, flags.dataDir)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	return &runtime{config: cfg, logger: logger, metrics: metrics.Default()}, nil
}

// newLogger builds a zap logger at the configured level. Output goes to stderr.
func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrConfigInvalid.Code, fmt.Sprintf("invalid log level %q", cfg.Level))
		}
		zc.Level = level
	}
	return zc.Build()
}

func engineFor(cfg *config.Config) *prediction.Engine {
	t := cfg.Scoring.Thresholds
	return prediction.NewEngine(prediction.Thresholds{
		Cardiovascular: t.Cardiovascular,
		Diabetes:       t.Diabetes,
		MentalHealth:   t.MentalHealth,
		SleepDisorder:  t.SleepDisorder,
	})
}

// newOrchestrator wires the model client when the AI path is enabled
func (rt *runtime) newOrchestrator() *ai.Orchestrator {
	opts := []ai.Option{
		ai.WithLogger(rt.logger),
		ai.WithMetrics(rt.metrics),
	}
	if rt.config.AI.Timeout > 0 {
		opts = append(opts, ai.WithTimeout(time.Duration(rt.config.AI.Timeout)*time.Second))
	}

	if !rt.config.AI.Enabled {
		rt.logger.Info("AI path disabled, using rule-based predictions")
		return ai.New(nil, engineFor(rt.config), opts...)
	}

	client := llm.NewClient(rt.config.AI, rt.logger, llm.WithMetrics(rt.metrics))
	rt.logger.Info("AI path enabled", zap.String("model", client.Model()))
	return ai.New(client, engineFor(rt.config), opts...)
}

// decodeFile reads a YAML or JSON document into v
func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrBadRequest.Code, fmt.Sprintf("failed to read %s", path))
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return apperrors.Wrap(err, apperrors.ErrBadRequest.Code, fmt.Sprintf("failed to decode %s", path))
	}
	return nil
}
