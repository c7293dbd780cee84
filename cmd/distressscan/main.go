// Command distressscan is the CLI entry point: one subcommand per pass,
// structured the way cli/cmd/ariadne/main.go structures its single
// top-level flag.FlagSet, generalized here into a subcommand dispatcher
// since spec.md §6 calls for "one entry point per pass" rather than one
// flat flag surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"distressscan/internal/address"
	"distressscan/internal/collectors/aerial"
	"distressscan/internal/collectors/flood"
	"distressscan/internal/collectors/scene"
	"distressscan/internal/collectors/trend"
	"distressscan/internal/config"
	"distressscan/internal/journal"
	"distressscan/internal/lockfile"
	"distressscan/internal/objectstore"
	"distressscan/internal/orchestrator"
	"distressscan/internal/ratelimit"
	"distressscan/internal/store"
	"distressscan/internal/telemetry/metrics"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()

	var err error
	switch os.Args[1] {
	case "pass1":
		err = runPass1(ctx, logger, os.Args[2:])
	case "pass1.5-slope":
		err = runPass1_5(ctx, logger, os.Args[2:])
	case "pass1.75-trend":
		err = runPass1_75(ctx, logger, os.Args[2:])
	case "pass2-scene":
		err = runPass2Scene(ctx, logger, os.Args[2:])
	case "pass2.25-vacancy":
		err = runPass2_25(ctx, logger, os.Args[2:])
	case "pass2.5-conviction":
		err = runPass2_5(ctx, logger, os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("run_failed", "error", err)
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `distressscan <subcommand> [flags]

Subcommands:
  pass1               aerial NDVI + FEMA flood scan, Pass 1 distress fusion
  pass1.5-slope       historical NDVI slope + percentile + distress composite
  pass1.75-trend      Sentinel-2 monthly NDVI trend enrichment
  pass2-scene         Planet Labs latest/historical scene comparison
  pass2.25-vacancy    USPS carrier-confirmed vacancy check
  pass2.5-conviction  conviction score fusion`)
}

func openStore(ctx context.Context) (*store.Store, error) {
	dsn, err := config.StoreDSN()
	if err != nil {
		return nil, err
	}
	s, err := store.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func printSummary(logger *slog.Logger, pass string, s orchestrator.Summary) {
	logger.Info("pass_complete", "pass", pass,
		"processed", s.Processed, "ok", s.OK, "transient", s.Transient,
		"permanent", s.Permanent, "skipped", s.Skipped,
		"circuit_aborted", s.CircuitAborted, "journal_path", s.JournalPath)
	for component, n := range s.ComponentCoverage {
		logger.Info("component_coverage", "component", component, "parcels", n)
	}
	for bucket, n := range s.ConvictionBuckets {
		logger.Info("conviction_bucket", "components", bucket, "parcels", n)
	}
}

func runPass1(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := newFlagSet("pass1")
	county := fs.String("county", "", "county name (required)")
	state := fs.String("state", "", "state code")
	propertyClass := fs.String("property-class", "", "restrict to a property class")
	limit := fs.Int("limit", 0, "limit parcels processed (0 = unbounded)")
	workers := fs.Int("workers", 10, "worker pool size")
	flushEvery := fs.Int("flush-every", 100, "rows per store flush")
	dryRun := fs.Bool("dry-run", false, "compute without writing")
	checkpointDir := fs.String("checkpoint-dir", "", "checkpoint directory (default OS temp dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *county == "" {
		return fmt.Errorf("pass1: --county is required")
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	deps := orchestrator.Pass1Deps{Store: s, Aerial: aerial.New(httpClient), Flood: flood.New(httpClient)}
	opts := orchestrator.Pass1Options{
		County: *county, State: *state, PropertyClass: *propertyClass, Limit: *limit,
		Workers: *workers, FlushEvery: *flushEvery, DryRun: *dryRun, CheckpointDir: *checkpointDir,
	}

	summary, err := orchestrator.RunPass1(ctx, deps, opts)
	if err != nil {
		return err
	}
	printSummary(logger, "pass1", summary)
	return nil
}

func runPass1_5(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := newFlagSet("pass1.5-slope")
	county := fs.String("county", "", "county name (required)")
	state := fs.String("state", "", "state code")
	limit := fs.Int("limit", 0, "limit parcels processed")
	workers := fs.Int("workers", 10, "worker pool size")
	compositeOnly := fs.Bool("composite-only", false, "skip the NAIP history fetch; no slope or percentile is computed, so distress_composite comes from FEMA alone")
	ndviWeight := fs.Float64("ndvi-weight", 0.70, "NDVI slope weight in distress_composite")
	femaWeight := fs.Float64("fema-weight", 0.30, "FEMA weight in distress_composite")
	dryRun := fs.Bool("dry-run", false, "compute without writing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *county == "" {
		return fmt.Errorf("pass1.5-slope: --county is required")
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	deps := orchestrator.Pass1_5Deps{Store: s, Aerial: aerial.New(httpClient)}
	opts := orchestrator.Pass1_5Options{
		County: *county, State: *state, Limit: *limit, Workers: *workers,
		CompositeOnly: *compositeOnly, NDVIWeight: *ndviWeight, FEMAWeight: *femaWeight, DryRun: *dryRun,
	}

	summary, err := orchestrator.RunPass1_5Slope(ctx, deps, opts)
	if err != nil {
		return err
	}
	printSummary(logger, "pass1.5-slope", summary)
	return nil
}

func runPass1_75(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := newFlagSet("pass1.75-trend")
	county := fs.String("county", "", "county name (required)")
	limit := fs.Int("limit", 0, "limit parcels processed")
	months := fs.Int("months", 12, "months of Sentinel history to fetch")
	maxRequests := fs.Int("max-requests", 0, "cap on Sentinel API requests this run (0 = unbounded)")
	dryRun := fs.Bool("dry-run", false, "compute without writing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *county == "" {
		return fmt.Errorf("pass1.75-trend: --county is required")
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	deps := orchestrator.Pass1_75Deps{Store: s, Trend: trend.NewFromEnv(httpClient), Aerial: aerial.New(httpClient)}
	opts := orchestrator.Pass1_75Options{County: *county, Limit: *limit, Months: *months, MaxRequests: *maxRequests, DryRun: *dryRun}

	summary, err := orchestrator.RunPass1_75Trend(ctx, deps, opts)
	if err != nil {
		return err
	}
	printSummary(logger, "pass1.75-trend", summary)
	return nil
}

func runPass2Scene(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := newFlagSet("pass2-scene")
	county := fs.String("county", "", "county name (required)")
	limit := fs.Int("limit", 0, "limit parcels processed")
	force := fs.Bool("force", false, "re-scan even if recently scanned")
	dryRun := fs.Bool("dry-run", false, "compute without writing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *county == "" {
		return fmt.Errorf("pass2-scene: --county is required")
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	planetAPIKey := os.Getenv("PLANET_API_KEY")
	up := objectstore.NewLocalStore(os.Getenv("OBJECTSTORE_DIR"))
	deps := orchestrator.Pass2Deps{Store: s, Scene: scene.New(planetAPIKey, httpClient, up)}
	opts := orchestrator.Pass2Options{County: *county, Limit: *limit, Force: *force, DryRun: *dryRun}

	summary, err := orchestrator.RunPass2Scene(ctx, deps, opts)
	if err != nil {
		return err
	}
	printSummary(logger, "pass2-scene", summary)
	return nil
}

func runPass2_25(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := newFlagSet("pass2.25-vacancy")
	county := fs.String("county", "", "county name (required)")
	accounts := fs.String("accounts", "1", "comma-separated credential account numbers")
	delayMin := fs.Duration("delay-min", 30*time.Second, "minimum inter-request delay per account")
	delayMax := fs.Duration("delay-max", 55*time.Second, "maximum inter-request delay per account")
	minComposite := fs.Float64("min-composite", 7.0, "minimum distress_composite to be eligible")
	cacheDays := fs.Int("cache-days", 60, "skip parcels checked within this many days")
	flushEvery := fs.Int("flush-every", 50, "rows per store flush")
	replay := fs.String("replay", "", "replay a journal file written during a prior DB outage")
	dryRun := fs.Bool("dry-run", false, "compute without writing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *county == "" {
		return fmt.Errorf("pass2.25-vacancy: --county is required")
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if *replay != "" {
		return replayJournal(ctx, s, *county, *replay, logger)
	}

	accountNumbers := strings.Split(*accounts, ",")
	creds, err := config.LoadCredentials(accountNumbers)
	if err != nil {
		return err
	}

	lockPath := fmt.Sprintf("/tmp/distressscan_usps_%s.lock", strings.ToLower(*county))
	lock, err := lockfile.Acquire(lockPath)
	if err != nil {
		return fmt.Errorf("another pass2.25-vacancy run appears to be in progress: %w", err)
	}
	defer lock.Release()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	geocoder := address.NewGeocoder(httpClient)

	checkers := make([]*address.Checker, len(creds))
	governors := make([]*ratelimit.Governor, len(creds))
	for i, c := range creds {
		checker := address.NewChecker(c.ID, c.Secret, httpClient, geocoder)
		checkers[i] = checker
		cfg := ratelimit.DefaultConfig()
		cfg.MinDelay, cfg.MaxDelay = *delayMin, *delayMax
		governors[i] = ratelimit.New(cfg, checker)
	}

	deps := orchestrator.Pass2_25Deps{Store: s, Checkers: checkers, Governors: governors, JournalDir: "/tmp/distressscan_journals"}
	opts := orchestrator.Pass2_25Options{County: *county, MinComposite: *minComposite, CacheDays: *cacheDays, FlushEvery: *flushEvery, DryRun: *dryRun}

	summary, err := orchestrator.RunPass2_25Vacancy(ctx, deps, opts)
	if err != nil {
		return err
	}
	printSummary(logger, "pass2.25-vacancy", summary)
	return nil
}

func runPass2_5(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := newFlagSet("pass2.5-conviction")
	county := fs.String("county", "", "county name (required)")
	state := fs.String("state", "", "state code (required)")
	dryRun := fs.Bool("dry-run", false, "compute without writing")
	skipMotivation := fs.Bool("skip-motivation", false, "leave the motivation-curator component out of the fusion")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *county == "" || *state == "" {
		return fmt.Errorf("pass2.5-conviction: --county and --state are required")
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	deps := orchestrator.Pass2_5Deps{Store: s}
	opts := orchestrator.Pass2_5Options{County: *county, State: *state, DryRun: *dryRun, SkipMotivation: *skipMotivation}

	summary, err := orchestrator.RunPass2_5Conviction(ctx, deps, opts, nil)
	if err != nil {
		return err
	}
	printSummary(logger, "pass2.5-conviction", summary)
	return nil
}

// replayJournal re-applies a batch of USPS results that failed to flush to
// the store during a prior run (spec.md §6's journal recovery path), then
// marks the journal file consumed so a repeat invocation is a no-op.
func replayJournal(ctx context.Context, s *store.Store, county, path string, logger *slog.Logger) error {
	records, err := journal.Replay[store.USPSResult](path)
	if err != nil {
		return fmt.Errorf("replay %s: %w", path, err)
	}
	if len(records) == 0 {
		logger.Info("replay_empty", "path", path)
		return journal.MarkReplayed(path)
	}
	n, err := s.UpdateBatchUSPS(ctx, county, records)
	if err != nil {
		return fmt.Errorf("replay %s: flush: %w", path, err)
	}
	logger.Info("replay_complete", "path", path, "rows", n)
	return journal.MarkReplayed(path)
}

// metricsServer starts a Prometheus /metrics endpoint on addr, or does nothing
// when addr is empty. No subcommand currently calls it.
func metricsServer(addr string, provider *metrics.PrometheusProvider) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", provider.MetricsHandler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ExitOnError)
}
