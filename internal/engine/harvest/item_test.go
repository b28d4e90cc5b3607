package harvest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quackquavk/gridminer/internal/model"
)

func TestHarvestSuccess(t *testing.T) {
	h := &Harvester{Timeout: time.Second}
	want := model.Record{Name: "Cafe Luna", Phone: "555-1234"}

	got, err := h.Harvest(context.Background(), &fakeEntry{rec: want})
	if err != nil {
		t.Fatalf("Harvest: %v", err)
	}
	if got.Name != want.Name || got.Phone != want.Phone {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestHarvestTimeout(t *testing.T) {
	h := &Harvester{Timeout: 10 * time.Millisecond}

	start := time.Now()
	_, err := h.Harvest(context.Background(), &fakeEntry{blocks: true})
	if !errors.Is(err, ErrItemTimeout) {
		t.Fatalf("err = %v, want ErrItemTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took %s, deadline not enforced", elapsed)
	}
}

func TestHarvestTimeoutCancelsExtraction(t *testing.T) {
	h := &Harvester{Timeout: 10 * time.Millisecond}

	released := make(chan struct{})
	entry := &releaseEntry{released: released}

	if _, err := h.Harvest(context.Background(), entry); !errors.Is(err, ErrItemTimeout) {
		t.Fatalf("err = %v, want ErrItemTimeout", err)
	}

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("extraction context never cancelled; secondary resources leak")
	}
}

func TestHarvestParentCancellation(t *testing.T) {
	h := &Harvester{Timeout: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := h.Harvest(ctx, &fakeEntry{blocks: true})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

// releaseEntry closes its channel when the extraction context dies,
// modeling cleanup of secondary resources.
type releaseEntry struct {
	released chan struct{}
}

func (e *releaseEntry) Preview() (string, string) { return "", "" }

func (e *releaseEntry) Extract(ctx context.Context) (model.Record, error) {
	<-ctx.Done()
	close(e.released)
	return model.Record{}, ctx.Err()
}
