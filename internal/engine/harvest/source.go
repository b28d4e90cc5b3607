package harvest

import (
	"context"
	"errors"

	"github.com/quackquavk/gridminer/internal/model"
)

// ErrItemTimeout marks a single entry whose extraction exceeded the per-item
// deadline. The entry is skipped, never retried.
var ErrItemTimeout = errors.New("item harvest timed out")

// RawEntry is one feed item: a preview plus a handle for the full extraction.
// Each entry is consumed exactly once.
type RawEntry interface {
	// Preview returns the name guess and a short text snippet without any
	// further I/O.
	Preview() (name, snippet string)
	// Extract produces the full Record, performing enrichment sub-calls
	// (detail pane, external website). Enrichment failures leave optional
	// fields empty; they never fail the record. Extract must honor ctx so a
	// timeout releases any secondary resources it opened.
	Extract(ctx context.Context) (model.Record, error)
}

// FeedHandle drives one open tile's incremental feed.
type FeedHandle interface {
	// Count reports how many entries are currently loaded.
	Count(ctx context.Context) (int, error)
	// Advance asks the feed to load more entries.
	Advance(ctx context.Context) error
	// Entries returns up to limit loaded entries.
	Entries(ctx context.Context, limit int) ([]RawEntry, error)
	Close() error
}

// PageSource opens feeds, either anchored to a tile's viewport or as a plain
// query with no coordinates.
type PageSource interface {
	OpenTile(ctx context.Context, tile model.Tile, query string) (FeedHandle, error)
	OpenQuery(ctx context.Context, query string) (FeedHandle, error)
}

// LocationLookup resolves a place name to a center point. Implementations
// return geo.ErrNotFound (wrapped) when the name has no match.
type LocationLookup interface {
	Resolve(ctx context.Context, name string) (lat, lon float64, err error)
}

// ResultSink persists a run's observable state. Checkpoint overwrites the
// job's record list wholesale; callers rely on it being called with a
// monotonically growing list.
type ResultSink interface {
	Checkpoint(ctx context.Context, jobID string, records []model.Record) error
	AppendLog(ctx context.Context, jobID, message string) error
}

// StopSignal is the cooperative cancellation token checked at tile
// boundaries. A stop never interrupts an in-flight tile.
type StopSignal interface {
	Stopped() bool
}

// neverStop is the signal used when no controller is attached.
type neverStop struct{}

func (neverStop) Stopped() bool { return false }
