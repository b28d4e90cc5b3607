package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/quackquavk/gridminer/internal/config"
	"github.com/quackquavk/gridminer/internal/engine/harvest"
	"github.com/quackquavk/gridminer/internal/engine/storage"
	"github.com/quackquavk/gridminer/internal/model"
	"github.com/quackquavk/gridminer/internal/server"
)

// sigToken turns the first interrupt into a cooperative stop observed at the
// next tile boundary; a second interrupt cancels outright.
type sigToken struct {
	flag atomic.Bool
}

func (t *sigToken) Stopped() bool { return t.flag.Load() }

func runMine(args []string) error {
	var configPath, outputDir string
	var jobCfg model.HarvestConfig

	fs := flag.NewFlagSet("mine", flag.ExitOnError)
	fs.StringVar(&configPath, "config", "", "Path to YAML config file")
	fs.StringVar(&outputDir, "output", ".", "Output directory for db/log/csv files")
	fs.StringVar(&jobCfg.SearchQuery, "query", "", "Search term (required)")
	fs.StringVar(&jobCfg.Location, "location", "", "Location name to center the grid on")
	fs.IntVar(&jobCfg.Total, "total", 0, "Number of results to harvest (default from config)")
	fs.Float64Var(&jobCfg.GridRadiusKm, "radius", 0, "Grid radius in km (default from config)")
	fs.IntVar(&jobCfg.ZoomLevel, "zoom", 0, "Zoom level 1-21 (default from config)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gridminer mine [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  gridminer mine -query restaurant -location Kathmandu -total 300\n")
		fmt.Fprintf(os.Stderr, "  gridminer mine -query \"coffee shop\" -location \"Berlin\" -total 50 -output ./runs\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyDefaults(&jobCfg, cfg.Defaults)
	if jobCfg.SearchQuery == "" {
		return fmt.Errorf("-query is required")
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	ts := time.Now().Format("20060102_150405")
	baseName := fmt.Sprintf("gridminer_%s", ts)
	dbPath := filepath.Join(outputDir, baseName+".db")
	logPath := filepath.Join(outputDir, baseName+".log")
	csvPath := filepath.Join(outputDir, baseName+".csv")

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer logFile.Close()
	logger := log.New(logFile, "", log.LstdFlags)
	logger.Printf("=== Session start: query=%q location=%q total=%d radius=%.1f zoom=%d ===",
		jobCfg.SearchQuery, jobCfg.Location, jobCfg.Total, jobCfg.GridRadiusKm, jobCfg.ZoomLevel)
	fmt.Fprintf(os.Stderr, "Log: %s\n", logPath)

	store, err := storage.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := &sigToken{}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nStopping at next tile boundary (interrupt again to abort)...")
		stop.flag.Store(true)
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nAborting...")
		cancel()
	}()

	orch := buildOrchestrator(cfg, store, logger)

	job, err := store.CreateJob(ctx, jobCfg)
	if err != nil {
		return fmt.Errorf("creating job: %w", err)
	}
	if err := store.SetStatus(ctx, job.ID, model.StatusRunning, -1, ""); err != nil {
		return fmt.Errorf("marking running: %w", err)
	}

	startTime := time.Now()
	records, runErr := orch.Run(ctx, job.ID, jobCfg, stop)

	status := model.StatusCompleted
	switch {
	case runErr == nil:
	case errors.Is(runErr, harvest.ErrStopped):
		// the store only permits stopped from stopping
		store.SetStatus(context.Background(), job.ID, model.StatusStopping, -1, "")
		status = model.StatusStopped
	default:
		status = model.StatusError
	}
	errMsg := ""
	if status == model.StatusError {
		errMsg = runErr.Error()
	}
	if err := store.SetStatus(context.Background(), job.ID, status, len(records), errMsg); err != nil {
		logger.Printf("ERROR marking %s: %v", status, err)
	}

	if len(records) > 0 {
		f, err := os.Create(csvPath)
		if err != nil {
			return fmt.Errorf("creating csv: %w", err)
		}
		defer f.Close()
		if err := server.WriteCSV(f, records); err != nil {
			return fmt.Errorf("writing csv: %w", err)
		}
	}

	duration := time.Since(startTime).Truncate(time.Second)
	logger.Printf("Done: status=%s unique=%d elapsed=%s", status, len(records), duration)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Harvest %s\n", status)
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Query:      %s\n", jobCfg.SearchQuery)
	if jobCfg.Location != "" {
		fmt.Fprintf(os.Stderr, "  Location:   %s\n", jobCfg.Location)
	}
	fmt.Fprintf(os.Stderr, "  Unique:     %d\n", len(records))
	fmt.Fprintf(os.Stderr, "  Duration:   %s\n", duration)
	fmt.Fprintf(os.Stderr, "  Database:   %s\n", dbPath)
	if len(records) > 0 {
		fmt.Fprintf(os.Stderr, "  CSV:        %s\n", csvPath)
	}
	fmt.Fprintf(os.Stderr, "  Log:        %s\n", logPath)
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")

	if status == model.StatusError {
		return runErr
	}
	return nil
}

func applyDefaults(cfg *model.HarvestConfig, d config.HarvestDefaults) {
	if cfg.SearchQuery == "" {
		cfg.SearchQuery = d.SearchQuery
	}
	if cfg.Location == "" {
		cfg.Location = d.Location
	}
	if cfg.Total <= 0 {
		cfg.Total = d.Total
	}
	if cfg.GridRadiusKm <= 0 {
		cfg.GridRadiusKm = d.GridRadiusKm
	}
	if cfg.ZoomLevel <= 0 {
		cfg.ZoomLevel = d.ZoomLevel
	}
}
