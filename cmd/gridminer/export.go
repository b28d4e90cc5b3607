package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/quackquavk/gridminer/internal/engine/storage"
	"github.com/quackquavk/gridminer/internal/server"
)

func runExport(args []string) error {
	var dbPath, jobID, outputPath string

	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.StringVar(&dbPath, "db", "", "Path to job store db (required)")
	fs.StringVar(&jobID, "job", "", "Job id (default: latest job with records)")
	fs.StringVar(&outputPath, "output", "", "Output file path (default: same dir as db)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gridminer export [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  gridminer export -db gridminer.db\n")
		fmt.Fprintf(os.Stderr, "  gridminer export -db gridminer.db -job 0b8f... -output results.csv\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if dbPath == "" {
		return fmt.Errorf("-db is required")
	}

	store, err := storage.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	if jobID == "" {
		listed, err := store.ListJobs(ctx, 50)
		if err != nil {
			return fmt.Errorf("listing jobs: %w", err)
		}
		for _, j := range listed {
			if j.ResultsCount > 0 {
				jobID = j.ID
				break
			}
		}
		if jobID == "" {
			return fmt.Errorf("no job with records found")
		}
	}

	records, err := store.Records(ctx, jobID)
	if err != nil {
		return fmt.Errorf("loading records: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("job %s has no records", jobID)
	}

	if outputPath == "" {
		dir := filepath.Dir(dbPath)
		base := strings.TrimSuffix(filepath.Base(dbPath), ".db")
		outputPath = filepath.Join(dir, base+"_"+jobID[:8]+".csv")
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer f.Close()

	if err := server.WriteCSV(f, records); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Exported %d records to %s\n", len(records), outputPath)
	return nil
}
