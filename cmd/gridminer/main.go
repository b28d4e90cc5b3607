package main

import (
	"fmt"
	"log"
	"os"

	"github.com/quackquavk/gridminer/internal/config"
	"github.com/quackquavk/gridminer/internal/engine/geo"
	"github.com/quackquavk/gridminer/internal/engine/harvest"
	"github.com/quackquavk/gridminer/internal/engine/mapsource"
	"github.com/quackquavk/gridminer/internal/engine/storage"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "mine":
			if err := runMine(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "serve":
			if err := runServe(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "export":
			if err := runExport(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "version":
			fmt.Println("gridminer " + version)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	printUsage()
	os.Exit(2)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `gridminer - geo-partitioned business harvest orchestrator

Usage:
  gridminer mine [flags]    Run one harvest headless
  gridminer serve [flags]   Run the job-management HTTP server
  gridminer export [flags]  Export a job's records to CSV
  gridminer version         Show version

Run 'gridminer mine --help' or 'gridminer serve --help' for flags.
`)
}

// buildOrchestrator wires the engine from config. Shared by mine and serve.
func buildOrchestrator(cfg *config.Config, store *storage.Store, logger *log.Logger) *harvest.Orchestrator {
	o := harvest.NewOrchestrator(
		mapsource.NewSource(cfg.Lang, cfg.ProxyURL),
		geo.NewGeocoder(),
		store,
		logger,
	)
	t := cfg.Tuning
	if t.PerTileCap > 0 {
		o.PerTileCap = t.PerTileCap
	}
	if t.BatchCeiling > 0 {
		o.BatchCeiling = t.BatchCeiling
	}
	if t.SpacingKm > 0 {
		o.SpacingKm = t.SpacingKm
	}
	if t.SettleDelayMS > 0 {
		o.Collector.SettleDelay = t.SettleDelay()
	}
	if t.StallThreshold > 0 {
		o.Collector.StallThreshold = t.StallThreshold
	}
	if t.ItemTimeoutSec > 0 {
		o.Harvester.Timeout = t.ItemTimeout()
	}
	o.TrimCorners = t.TrimCorners
	return o
}
