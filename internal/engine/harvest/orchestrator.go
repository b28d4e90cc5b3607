package harvest

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/quackquavk/gridminer/internal/engine/geo"
	"github.com/quackquavk/gridminer/internal/model"
)

// ErrStopped is returned when a run exits early because the controller's
// stop signal was observed at a tile boundary.
var ErrStopped = errors.New("harvest stopped by request")

const (
	// DefaultPerTileCap is the map surface's hard limit on results loadable
	// for a single viewport query.
	DefaultPerTileCap = 120
	// DefaultBatchCeiling is the per-tile request size safety margin: ask
	// for more than the cap so the stall detector, not the target, ends a
	// rich tile.
	DefaultBatchCeiling = 500
	// DefaultSpacingKm is the grid step for neighborhood-level zoom.
	DefaultSpacingKm = 2.0
	// DefaultGridRadiusKm is used when a job does not set a radius.
	DefaultGridRadiusKm = 3.0
)

// Orchestrator runs one job's tile loop: grid generation, per-tile capped
// collection, cross-tile dedup and checkpointing. The loop is sequential by
// design; accumulation must be serialized to keep first-seen-wins stable.
type Orchestrator struct {
	Source    PageSource
	Lookup    LocationLookup
	Sink      ResultSink
	Collector *Collector
	Harvester *Harvester
	Logger    *log.Logger

	PerTileCap   int
	BatchCeiling int
	SpacingKm    float64
	TrimCorners  bool
}

func NewOrchestrator(source PageSource, lookup LocationLookup, sink ResultSink, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		Source:       source,
		Lookup:       lookup,
		Sink:         sink,
		Collector:    NewCollector(),
		Harvester:    NewHarvester(),
		Logger:       logger,
		PerTileCap:   DefaultPerTileCap,
		BatchCeiling: DefaultBatchCeiling,
		SpacingKm:    DefaultSpacingKm,
		TrimCorners:  true,
	}
}

// Run executes one harvest to completion, stop, or fatal failure. Below the
// per-tile cap a single plain query suffices; above it the region is
// partitioned into overlapping tiles and mined in grid order. Returns the
// accumulated unique records alongside ErrStopped when the stop signal cut
// the run short.
func (o *Orchestrator) Run(ctx context.Context, jobID string, cfg model.HarvestConfig, stop StopSignal) ([]model.Record, error) {
	if stop == nil {
		stop = neverStop{}
	}
	cfg.ClampZoom()

	acc := NewAccumulator()

	if cfg.Total <= o.PerTileCap {
		o.note(ctx, jobID, fmt.Sprintf("STANDARD MODE: %q, target %d", o.directQuery(cfg), cfg.Total))
		if err := o.mineQuery(ctx, jobID, o.directQuery(cfg), cfg.Total, acc); err != nil {
			return acc.Records(), err
		}
		return acc.Records(), o.checkpoint(ctx, jobID, acc)
	}

	o.note(ctx, jobID, fmt.Sprintf("AUTO-GRID MODE: target %d for %q in %q", cfg.Total, cfg.SearchQuery, cfg.Location))

	lat, lon, err := o.Lookup.Resolve(ctx, cfg.Location)
	if err != nil {
		if ctx.Err() != nil {
			return acc.Records(), ctx.Err()
		}
		// Graceful degradation: an unresolvable location still gets a
		// single combined-query pass.
		o.note(ctx, jobID, fmt.Sprintf("location lookup failed (%v), falling back to simple query", err))
		if err := o.mineQuery(ctx, jobID, o.directQuery(cfg), cfg.Total, acc); err != nil {
			return acc.Records(), err
		}
		return acc.Records(), o.checkpoint(ctx, jobID, acc)
	}
	o.note(ctx, jobID, fmt.Sprintf("resolved %q to %.4f, %.4f", cfg.Location, lat, lon))

	tiles := o.buildGrid(cfg, lat, lon)
	o.note(ctx, jobID, fmt.Sprintf("grid generated: %d tiles", len(tiles)))

	for i, tile := range tiles {
		if err := ctx.Err(); err != nil {
			return acc.Records(), err
		}
		if stop.Stopped() {
			o.note(ctx, jobID, "stop requested, exiting at tile boundary")
			return acc.Records(), errors.Join(ErrStopped, o.checkpoint(ctx, jobID, acc))
		}

		remaining := cfg.Total - acc.Len()
		if remaining <= 0 {
			o.note(ctx, jobID, "target reached")
			break
		}

		batch := remaining
		if batch > o.BatchCeiling {
			batch = o.BatchCeiling
		}

		o.note(ctx, jobID, fmt.Sprintf("[%d/%d] mining tile %.4f, %.4f (zoom %d)", i+1, len(tiles), tile.Lat, tile.Lon, tile.Zoom))

		records, err := o.mineTile(ctx, tile, cfg.SearchQuery, batch)
		if err != nil {
			if ctx.Err() != nil {
				return acc.Records(), ctx.Err()
			}
			// Tile failures never abort the run; the tile contributes zero.
			o.note(ctx, jobID, fmt.Sprintf("tile %d,%d failed: %v", tile.Row, tile.Col, err))
			continue
		}

		added := 0
		for _, r := range records {
			if acc.Add(r) {
				added++
			}
		}
		o.note(ctx, jobID, fmt.Sprintf("scraped %d, new %d, total %d", len(records), added, acc.Len()))

		if err := o.checkpoint(ctx, jobID, acc); err != nil {
			return acc.Records(), err
		}
	}

	return acc.Records(), o.checkpoint(ctx, jobID, acc)
}

func (o *Orchestrator) directQuery(cfg model.HarvestConfig) string {
	if cfg.Location == "" {
		return cfg.SearchQuery
	}
	return cfg.SearchQuery + " in " + cfg.Location
}

func (o *Orchestrator) buildGrid(cfg model.HarvestConfig, lat, lon float64) []model.Tile {
	radius := cfg.GridRadiusKm
	if radius <= 0 {
		radius = DefaultGridRadiusKm
	}
	adjusted := geo.AdaptiveRadius(cfg.Total, o.PerTileCap, radius, o.SpacingKm)
	if adjusted != radius {
		o.logf("GRID radius auto-expanded %.1fkm -> %.1fkm for target %d", radius, adjusted, cfg.Total)
		radius = adjusted
	}

	tiles := geo.GenerateGrid(lat, lon, radius, o.SpacingKm, cfg.ZoomLevel)
	if o.TrimCorners {
		tiles = geo.TrimToRadius(tiles, lat, lon, radius)
	}
	return tiles
}

// mineQuery is the single-pass DirectQuery path: one implicit tile, no
// coordinates.
func (o *Orchestrator) mineQuery(ctx context.Context, jobID, query string, target int, acc *Accumulator) error {
	feed, err := o.Source.OpenQuery(ctx, query)
	if err != nil {
		return fmt.Errorf("opening query feed: %w", err)
	}
	defer feed.Close()

	records, err := o.drainFeed(ctx, feed, target)
	if err != nil {
		return err
	}
	for _, r := range records {
		acc.Add(r)
	}
	o.note(ctx, jobID, fmt.Sprintf("collected %d results", acc.Len()))
	return nil
}

func (o *Orchestrator) mineTile(ctx context.Context, tile model.Tile, query string, target int) ([]model.Record, error) {
	feed, err := o.Source.OpenTile(ctx, tile, query)
	if err != nil {
		return nil, fmt.Errorf("opening tile feed: %w", err)
	}
	defer feed.Close()

	return o.drainFeed(ctx, feed, target)
}

// drainFeed runs the collect-then-harvest pass over one open feed. Item
// timeouts and extraction errors drop the entry and keep going.
func (o *Orchestrator) drainFeed(ctx context.Context, feed FeedHandle, target int) ([]model.Record, error) {
	entries, err := o.Collector.Collect(ctx, feed, target)
	if err != nil {
		return nil, fmt.Errorf("collecting feed: %w", err)
	}

	var records []model.Record
	for i, entry := range entries {
		rec, err := o.Harvester.Harvest(ctx, entry)
		if err != nil {
			name, _ := entry.Preview()
			if errors.Is(err, ErrItemTimeout) {
				o.logf("TIMEOUT item=%d/%d name=%q, skipping", i+1, len(entries), name)
				continue
			}
			if ctx.Err() != nil {
				return records, ctx.Err()
			}
			o.logf("ERROR item=%d/%d name=%q err=%v", i+1, len(entries), name, err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// checkpoint persists the accumulated set. A sink failure is fatal: without
// persistence the run's results are unobservable.
func (o *Orchestrator) checkpoint(ctx context.Context, jobID string, acc *Accumulator) error {
	if err := o.Sink.Checkpoint(ctx, jobID, acc.Records()); err != nil {
		return fmt.Errorf("checkpointing %d records: %w", acc.Len(), err)
	}
	return nil
}

// note writes to both the job's visible log tail and the process log.
func (o *Orchestrator) note(ctx context.Context, jobID, msg string) {
	if err := o.Sink.AppendLog(ctx, jobID, msg); err != nil {
		o.logf("ERROR appending job log: %v", err)
	}
	o.logf("JOB %s: %s", jobID, msg)
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	}
}
