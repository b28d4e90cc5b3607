package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/quackquavk/gridminer/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testConfig() model.HarvestConfig {
	return model.HarvestConfig{
		SearchQuery:  "restaurant",
		Location:     "Kathmandu",
		Total:        40,
		GridRadiusKm: 3,
		ZoomLevel:    15,
	}
}

func TestCreateAndGetJob(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	created, err := s.CreateJob(ctx, testConfig())
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if created.ID == "" {
		t.Fatal("job has no id")
	}
	if created.Status != model.StatusPending {
		t.Errorf("status = %s, want pending", created.Status)
	}

	got, err := s.GetJob(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Config != testConfig() {
		t.Errorf("config roundtrip: %+v", got.Config)
	}
	if got.Status != model.StatusPending || got.ResultsCount != 0 {
		t.Errorf("fresh job: status=%s count=%d", got.Status, got.ResultsCount)
	}

	if _, err := s.GetJob(ctx, "no-such-id"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("missing job err = %v, want ErrJobNotFound", err)
	}
}

func TestStatusLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	job, err := s.CreateJob(ctx, testConfig())
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	steps := []model.Status{model.StatusRunning, model.StatusStopping, model.StatusStopped}
	for _, next := range steps {
		if err := s.SetStatus(ctx, job.ID, next, -1, ""); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}

	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != model.StatusStopped {
		t.Errorf("status = %s, want stopped", got.Status)
	}
}

func TestStatusIllegalTransitions(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	cases := []struct {
		name string
		path []model.Status
		next model.Status
	}{
		{"pending to stopping", nil, model.StatusStopping},
		{"pending to completed", nil, model.StatusCompleted},
		{"completed is terminal", []model.Status{model.StatusRunning, model.StatusCompleted}, model.StatusRunning},
		{"stopped is terminal", []model.Status{model.StatusRunning, model.StatusStopping, model.StatusStopped}, model.StatusRunning},
		{"error is terminal", []model.Status{model.StatusRunning, model.StatusError}, model.StatusPending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job, err := s.CreateJob(ctx, testConfig())
			if err != nil {
				t.Fatalf("CreateJob: %v", err)
			}
			for _, st := range tc.path {
				if err := s.SetStatus(ctx, job.ID, st, -1, ""); err != nil {
					t.Fatalf("setup transition to %s: %v", st, err)
				}
			}
			if err := s.SetStatus(ctx, job.ID, tc.next, -1, ""); !errors.Is(err, ErrIllegalTransition) {
				t.Errorf("err = %v, want ErrIllegalTransition", err)
			}
		})
	}

	if err := s.SetStatus(ctx, "no-such-id", model.StatusRunning, -1, ""); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("missing job err = %v, want ErrJobNotFound", err)
	}
}

func TestSetStatusCountAndError(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	job, _ := s.CreateJob(ctx, testConfig())
	if err := s.SetStatus(ctx, job.ID, model.StatusRunning, -1, ""); err != nil {
		t.Fatalf("to running: %v", err)
	}
	if err := s.SetStatus(ctx, job.ID, model.StatusError, 7, "feed collapsed"); err != nil {
		t.Fatalf("to error: %v", err)
	}

	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.ResultsCount != 7 || got.Error != "feed collapsed" {
		t.Errorf("count=%d error=%q", got.ResultsCount, got.Error)
	}
}

func TestAppendLogKeepsTail(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	job, _ := s.CreateJob(ctx, testConfig())
	for i := 0; i < 120; i++ {
		if err := s.AppendLog(ctx, job.ID, fmt.Sprintf("line %d", i)); err != nil {
			t.Fatalf("AppendLog %d: %v", i, err)
		}
	}

	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if len(got.Logs) != 100 {
		t.Fatalf("kept %d lines, want 100", len(got.Logs))
	}
	if got.Logs[0] != "line 20" || got.Logs[99] != "line 119" {
		t.Errorf("tail window [%q .. %q]", got.Logs[0], got.Logs[99])
	}
}

func TestCheckpointOverwrites(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	job, _ := s.CreateJob(ctx, testConfig())

	first := []model.Record{
		{Name: "Cafe Luna", Phone: "555-1234"},
		{Name: "Dal Bhat House", Phone: "555-5678"},
	}
	if err := s.Checkpoint(ctx, job.ID, first); err != nil {
		t.Fatalf("first checkpoint: %v", err)
	}

	second := append(first, model.Record{Name: "Momo Palace", Phone: "555-9999", Email: "info@momo.com"})
	if err := s.Checkpoint(ctx, job.ID, second); err != nil {
		t.Fatalf("second checkpoint: %v", err)
	}

	records, err := s.Records(ctx, job.ID)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i, want := range []string{"Cafe Luna", "Dal Bhat House", "Momo Palace"} {
		if records[i].Name != want {
			t.Errorf("position %d holds %q, want %q", i, records[i].Name, want)
		}
	}
	if records[2].Email != "info@momo.com" {
		t.Errorf("record fields dropped: %+v", records[2])
	}

	got, _ := s.GetJob(ctx, job.ID)
	if got.ResultsCount != 3 {
		t.Errorf("results_count = %d, want 3", got.ResultsCount)
	}
}

func TestListJobs(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		cfg := testConfig()
		cfg.SearchQuery = fmt.Sprintf("query %d", i)
		job, err := s.CreateJob(ctx, cfg)
		if err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
		ids = append(ids, job.ID)
	}

	jobs, err := s.ListJobs(ctx, 0)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("got %d jobs, want 3", len(jobs))
	}
	for _, j := range jobs {
		if len(j.Logs) != 0 {
			t.Error("list must not carry log tails")
		}
	}

	limited, err := s.ListJobs(ctx, 2)
	if err != nil {
		t.Fatalf("ListJobs limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d jobs, want limit 2", len(limited))
	}
}

func TestDeleteJob(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	job, _ := s.CreateJob(ctx, testConfig())
	s.AppendLog(ctx, job.ID, "hello")
	s.Checkpoint(ctx, job.ID, []model.Record{{Name: "Cafe Luna"}})

	if err := s.DeleteJob(ctx, job.ID); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}
	if _, err := s.GetJob(ctx, job.ID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("get after delete = %v, want ErrJobNotFound", err)
	}
	records, err := s.Records(ctx, job.ID)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("%d records survived deletion", len(records))
	}

	if err := s.DeleteJob(ctx, job.ID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("double delete = %v, want ErrJobNotFound", err)
	}
}
