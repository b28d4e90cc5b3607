package harvest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/quackquavk/gridminer/internal/model"
)

// fakeEntry yields a fixed record, optionally after blocking until the
// extraction context dies.
type fakeEntry struct {
	rec    model.Record
	err    error
	blocks bool
}

func (e *fakeEntry) Preview() (string, string) { return e.rec.Name, e.rec.RawSnippet }

func (e *fakeEntry) Extract(ctx context.Context) (model.Record, error) {
	if e.blocks {
		<-ctx.Done()
		return model.Record{}, ctx.Err()
	}
	if e.err != nil {
		return model.Record{}, e.err
	}
	return e.rec, nil
}

// fakeFeed serves a fixed batch of entries. Count follows a script when one
// is set, otherwise it reports the full batch immediately.
type fakeFeed struct {
	entries  []RawEntry
	counts   []int
	countIdx int
	advances int
	closed   bool
}

func (f *fakeFeed) Count(ctx context.Context) (int, error) {
	if len(f.counts) == 0 {
		return len(f.entries), nil
	}
	i := f.countIdx
	if i >= len(f.counts) {
		i = len(f.counts) - 1
	}
	f.countIdx++
	return f.counts[i], nil
}

func (f *fakeFeed) Advance(ctx context.Context) error {
	f.advances++
	return nil
}

func (f *fakeFeed) Entries(ctx context.Context, limit int) ([]RawEntry, error) {
	if limit > len(f.entries) {
		limit = len(f.entries)
	}
	return f.entries[:limit], nil
}

func (f *fakeFeed) Close() error {
	f.closed = true
	return nil
}

// fakeSource hands out one scripted feed per OpenTile call.
type fakeSource struct {
	tileFeeds []*fakeFeed
	tileErrs  []error
	queryFeed *fakeFeed

	tileOpens     int
	queryOpens    int
	lastQuery     string
	lastTileQuery string
	openedTiles   []model.Tile
}

func (s *fakeSource) OpenTile(ctx context.Context, tile model.Tile, query string) (FeedHandle, error) {
	i := s.tileOpens
	s.tileOpens++
	s.lastTileQuery = query
	s.openedTiles = append(s.openedTiles, tile)
	if i < len(s.tileErrs) && s.tileErrs[i] != nil {
		return nil, s.tileErrs[i]
	}
	if i >= len(s.tileFeeds) {
		return &fakeFeed{}, nil
	}
	return s.tileFeeds[i], nil
}

func (s *fakeSource) OpenQuery(ctx context.Context, query string) (FeedHandle, error) {
	s.queryOpens++
	s.lastQuery = query
	if s.queryFeed == nil {
		return &fakeFeed{}, nil
	}
	return s.queryFeed, nil
}

type fakeLookup struct {
	lat, lon float64
	err      error
	calls    int
}

func (l *fakeLookup) Resolve(ctx context.Context, name string) (float64, float64, error) {
	l.calls++
	return l.lat, l.lon, l.err
}

// fakeSink records every checkpoint snapshot size and log line.
type fakeSink struct {
	mu          sync.Mutex
	checkpoints []int
	logs        []string
	failOn      int // checkpoint ordinal to fail at, 0 = never
}

var errSinkDown = errors.New("sink unavailable")

func (s *fakeSink) Checkpoint(ctx context.Context, jobID string, records []model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn > 0 && len(s.checkpoints)+1 >= s.failOn {
		return errSinkDown
	}
	s.checkpoints = append(s.checkpoints, len(records))
	return nil
}

func (s *fakeSink) AppendLog(ctx context.Context, jobID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, message)
	return nil
}

// stopAfter flips to stopped once Stopped has been polled n times.
type stopAfter struct {
	n     int
	polls int
}

func (s *stopAfter) Stopped() bool {
	s.polls++
	return s.polls > s.n
}

func entriesFor(records ...model.Record) []RawEntry {
	out := make([]RawEntry, len(records))
	for i, r := range records {
		out[i] = &fakeEntry{rec: r}
	}
	return out
}

func fastCollector() *Collector {
	return &Collector{SettleDelay: time.Millisecond, StallThreshold: 2}
}
