package harvest

import (
	"context"
	"time"
)

const (
	// DefaultSettleDelay is the pause between feed polls, letting
	// asynchronous rendering catch up before the next measurement.
	DefaultSettleDelay = 2 * time.Second
	// DefaultStallThreshold is how many consecutive unchanged polls declare
	// the feed exhausted.
	DefaultStallThreshold = 5
)

// Collector drives one tile's feed to a target entry count or a stall.
type Collector struct {
	SettleDelay    time.Duration
	StallThreshold int
}

func NewCollector() *Collector {
	return &Collector{
		SettleDelay:    DefaultSettleDelay,
		StallThreshold: DefaultStallThreshold,
	}
}

// Collect polls the feed and advances it until target entries are loaded or
// the count stops changing for StallThreshold consecutive polls. Returns at
// most target entries; fewer when the feed is exhausted, possibly zero. An
// empty feed is a normal outcome, not an error.
func (c *Collector) Collect(ctx context.Context, feed FeedHandle, target int) ([]RawEntry, error) {
	threshold := c.StallThreshold
	if threshold <= 0 {
		threshold = DefaultStallThreshold
	}

	noChange := 0
	previous := 0

	for {
		count, err := feed.Count(ctx)
		if err != nil {
			return nil, err
		}

		if count == previous {
			noChange++
		} else {
			noChange = 0
		}
		previous = count

		if noChange >= threshold {
			break // end of list or stuck
		}
		if count >= target {
			break
		}

		if err := feed.Advance(ctx); err != nil {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.SettleDelay):
		}
	}

	return feed.Entries(ctx, target)
}
