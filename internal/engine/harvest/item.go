package harvest

import (
	"context"
	"time"

	"github.com/quackquavk/gridminer/internal/model"
)

// DefaultItemTimeout bounds one entry's full extraction, enrichment included.
const DefaultItemTimeout = 60 * time.Second

// Harvester turns raw entries into records under a per-item deadline.
type Harvester struct {
	Timeout time.Duration
}

func NewHarvester() *Harvester {
	return &Harvester{Timeout: DefaultItemTimeout}
}

type harvestResult struct {
	record model.Record
	err    error
}

// Harvest extracts one record, abandoning the entry with ErrItemTimeout when
// the deadline fires. The extraction context is cancelled on timeout so any
// secondary fetches opened during enrichment are torn down rather than left
// in flight.
func (h *Harvester) Harvest(ctx context.Context, entry RawEntry) (model.Record, error) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultItemTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan harvestResult, 1)
	go func() {
		rec, err := entry.Extract(ctx)
		ch <- harvestResult{record: rec, err: err}
	}()

	select {
	case res := <-ch:
		return res.record, res.err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return model.Record{}, ErrItemTimeout
		}
		return model.Record{}, ctx.Err()
	}
}
