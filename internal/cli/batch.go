package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gmsas95/healthrisk/internal/batch"
	"github.com/gmsas95/healthrisk/internal/store"
)

// HandleBatchCommand predicts every item of a JSONL input file
func HandleBatchCommand(args []string, out io.Writer) error {
	var common commonFlags
	fs := newFlagSet("batch", out)
	common.register(fs)
	inputFile := fs.String("i", "", "Input JSONL file")
	outputFile := fs.String("o", "", "Output file (.json for one document, JSONL otherwise)")
	concurrency := fs.Int("c", 0, "Max concurrent items (default batch.concurrency)")
	timeout := fs.Int("t", 0, "Per-item timeout in seconds (default batch.item_timeout)")
	rpm := fs.Float64("rpm", -1, "Model requests per minute, 0 disables (default batch.requests_per_minute)")
	rulesOnly := fs.Bool("rules", false, "Skip the model and use the rule engine")
	strict := fs.Bool("strict", false, "Fail on the first undecodable line")
	useStore := fs.Bool("store", false, "Resolve patient_id items from the record store")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *inputFile == "" {
		fs.Usage()
		return fmt.Errorf("input file is required")
	}
	if _, err := os.Stat(*inputFile); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", *inputFile)
	}

	rt, err := loadRuntime(common)
	if err != nil {
		return err
	}
	defer rt.logger.Sync()

	cfg := batchConfig(rt, *concurrency, *timeout, *rpm)
	cfg.RulesOnly = *rulesOnly
	cfg.SkipInvalid = !*strict

	opts := []batch.Option{batch.WithMetrics(rt.metrics)}
	if *useStore {
		st, err := store.New(rt.config)
		if err != nil {
			return err
		}
		defer st.Close()
		opts = append(opts, batch.WithRecordLoader(st))
	}

	processor := batch.NewProcessor(rt.newOrchestrator(), cfg, rt.logger, opts...)

	ctx, stop := signalContext()
	defer stop()

	fmt.Fprintf(out, "Processing batch from %s...\n", *inputFile)
	result, err := processor.ProcessFile(ctx, *inputFile, *outputFile)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprint(out, result.Summary())
	if *outputFile != "" {
		fmt.Fprintf(out, "\n%s Results saved to %s\n", okStyle.Render("✓"), *outputFile)
	}
	if result.Failed > 0 {
		fmt.Fprintf(out, "%s %d items failed\n", warnStyle.Render("!"), result.Failed)
	}
	return nil
}

// batchConfig applies flag overrides on top of the batch config section.
// Negative or zero flag values keep the configured value.
func batchConfig(rt *runtime, concurrency, timeoutSec int, rpm float64) batch.Config {
	cfg := batch.DefaultConfig()
	section := rt.config.Batch

	if section.Concurrency > 0 {
		cfg.MaxConcurrency = section.Concurrency
	}
	if section.ItemTimeout > 0 {
		cfg.Timeout = time.Duration(section.ItemTimeout) * time.Second
	}
	cfg.RequestsPerMinute = section.RequestsPerMinute

	if concurrency > 0 {
		cfg.MaxConcurrency = concurrency
	}
	if timeoutSec > 0 {
		cfg.Timeout = time.Duration(timeoutSec) * time.Second
	}
	if rpm >= 0 {
		cfg.RequestsPerMinute = rpm
	}
	return cfg
}
