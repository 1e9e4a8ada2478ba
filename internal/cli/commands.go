// Package cli implements the healthrisk command line
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gmsas95/healthrisk/internal/ai"
	"github.com/gmsas95/healthrisk/internal/api"
	"github.com/gmsas95/healthrisk/internal/cron"
	"github.com/gmsas95/healthrisk/internal/health"
	"github.com/gmsas95/healthrisk/internal/store"
)

var Version = "dev"

// Run dispatches a command and returns the process exit code
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		PrintHelp(stdout)
		return 0
	}

	var err error
	switch args[0] {
	case "serve", "server":
		err = HandleServeCommand(args[1:], stdout)
	case "predict":
		err = HandlePredictCommand(args[1:], stdout)
	case "batch":
		err = HandleBatchCommand(args[1:], stdout)
	case "import":
		err = HandleImportCommand(args[1:], stdout)
	case "refresh":
		err = HandleRefreshCommand(args[1:], stdout)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "healthrisk version %s\n", Version)
	case "help", "--help", "-h":
		PrintHelp(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
		PrintHelp(stderr)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render("Error: ")+err.Error())
		return 1
	}
	return 0
}

func PrintHelp(out io.Writer) {
	fmt.Fprintln(out, titleStyle.Render("healthrisk")+" - health risk prediction")
	fmt.Fprint(out, `
Usage:
  healthrisk <command> [options]

Commands:
  serve                     Run the HTTP API and the scheduled refresh
  predict -i <file>         Predict risks for one YAML or JSON record file
  batch -i <in> [-o <out>]  Predict risks for a JSONL file of items
  import -i <file>          Store a patient and their records
  refresh                   Re-score every stored patient once
  version                   Print the version
  help                      Show this help

Common options:
  --config <path>           Path to config file
  --data <dir>              Path to data directory

Run 'healthrisk <command> -h' for command options.
`)
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// HandleServeCommand runs the API server until interrupted
func HandleServeCommand(args []string, out io.Writer) error {
	var common commonFlags
	fs := newFlagSet("serve", out)
	common.register(fs)
	port := fs.Int("port", 0, "Override server.port")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := loadRuntime(common)
	if err != nil {
		return err
	}
	defer rt.logger.Sync()

	if *port > 0 {
		rt.config.Server.Port = *port
	}

	st, err := store.New(rt.config)
	if err != nil {
		return err
	}
	defer st.Close()

	orchestrator := rt.newOrchestrator()
	server := api.New(rt.config, orchestrator, rt.logger,
		api.WithStore(st),
		api.WithMetrics(rt.metrics),
		api.WithVersion(Version),
	)

	runner := cron.NewRunner(cron.Config{
		Schedule:      rt.config.Refresh.Schedule,
		MaxConcurrent: rt.config.Refresh.MaxConcurrent,
		RulesOnly:     rt.config.Refresh.RulesOnly,
	}, cron.NewRefresher(st, orchestrator, rt.logger), rt.logger)
	if err := runner.Start(); err != nil {
		return err
	}
	defer runner.Stop()

	rt.logger.Info("Starting healthrisk",
		zap.String("version", Version),
		zap.Bool("ai_enabled", orchestrator.Enabled()),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	ctx, stop := signalContext()
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	rt.logger.Info("Shutting down...")
	return server.Shutdown()
}

// HandlePredictCommand predicts risks for a single record file
func HandlePredictCommand(args []string, out io.Writer) error {
	var common commonFlags
	fs := newFlagSet("predict", out)
	common.register(fs)
	input := fs.String("i", "", "Record file (YAML or JSON)")
	rulesOnly := fs.Bool("rules", false, "Skip the model and use the rule engine")
	asJSON := fs.Bool("json", false, "Print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		fs.Usage()
		return fmt.Errorf("input file is required")
	}

	var records health.Records
	if err := decodeFile(*input, &records); err != nil {
		return err
	}

	rt, err := loadRuntime(common)
	if err != nil {
		return err
	}
	defer rt.logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	res := predict(ctx, rt.newOrchestrator(), health.Build(records, time.Now()), *rulesOnly)
	return writeResult(out, res, *asJSON)
}

func predict(ctx context.Context, o *ai.Orchestrator, profile health.PatientProfile, rulesOnly bool) ai.Result {
	if rulesOnly {
		return o.PredictRules(profile)
	}
	return o.Predict(ctx, profile)
}

func writeResult(out io.Writer, res ai.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if isTerminal(out) && len(res.Bundle.Predictions) > 0 {
		top := res.Bundle.Predictions[0]
		fmt.Fprintf(out, "%s %s %s\n", titleStyle.Render("Highest risk:"), top.ConditionName, levelBadge(top.RiskLevel))
	}
	return renderMarkdown(out, reportMarkdown(res))
}

// HandleImportCommand stores a patient from a YAML or JSON import file
func HandleImportCommand(args []string, out io.Writer) error {
	var common commonFlags
	fs := newFlagSet("import", out)
	common.register(fs)
	input := fs.String("i", "", "Import file (YAML or JSON)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		fs.Usage()
		return fmt.Errorf("input file is required")
	}

	var in store.Import
	if err := decodeFile(*input, &in); err != nil {
		return err
	}

	rt, err := loadRuntime(common)
	if err != nil {
		return err
	}
	defer rt.logger.Sync()

	st, err := store.New(rt.config)
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := st.ImportPatient(context.Background(), in)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s Imported patient %s\n", okStyle.Render("✓"), id)
	return nil
}

// HandleRefreshCommand re-scores every stored patient once
func HandleRefreshCommand(args []string, out io.Writer) error {
	var common commonFlags
	fs := newFlagSet("refresh", out)
	common.register(fs)
	withModel := fs.Bool("ai", false, "Use the model path instead of rules only")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := loadRuntime(common)
	if err != nil {
		return err
	}
	defer rt.logger.Sync()

	st, err := store.New(rt.config)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signalContext()
	defer stop()

	refresher := cron.NewRefresher(st, rt.newOrchestrator(), rt.logger)
	summary, err := refresher.RefreshAll(ctx, rt.config.Refresh.MaxConcurrent, !*withModel)
	if err != nil {
		return err
	}

	status := okStyle.Render("✓")
	if summary.Failed > 0 {
		status = warnStyle.Render("!")
	}
	fmt.Fprintf(out, "%s Refreshed %d/%d patients in %v\n", status, summary.Success, summary.Total, summary.Duration.Round(time.Millisecond))
	return nil
}
