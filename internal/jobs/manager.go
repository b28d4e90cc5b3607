package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/quackquavk/gridminer/internal/engine/harvest"
	"github.com/quackquavk/gridminer/internal/engine/storage"
	"github.com/quackquavk/gridminer/internal/model"
)

// ErrNotRunning is returned when a stop request targets a job that is not
// currently running.
var ErrNotRunning = errors.New("job is not running")

// Runner executes one harvest. Satisfied by *harvest.Orchestrator; tests
// substitute fakes.
type Runner interface {
	Run(ctx context.Context, jobID string, cfg model.HarvestConfig, stop harvest.StopSignal) ([]model.Record, error)
}

// token is the cooperative stop signal handed to a run. The orchestrator
// polls it at tile boundaries.
type token struct {
	flag atomic.Bool
}

func (t *token) Stopped() bool { return t.flag.Load() }

type handle struct {
	token  *token
	cancel context.CancelFunc
}

// Manager owns the job registry: it creates jobs, runs them in background
// goroutines, and routes stop requests to their tokens. One Manager per
// process by design; the job record in the store is the single source of
// truth for status.
type Manager struct {
	store  *storage.Store
	runner Runner
	logger *log.Logger

	mu     sync.Mutex
	active map[string]*handle
	wg     sync.WaitGroup
}

func NewManager(store *storage.Store, runner Runner, logger *log.Logger) *Manager {
	return &Manager{
		store:  store,
		runner: runner,
		logger: logger,
		active: make(map[string]*handle),
	}
}

// Submit creates a pending job and starts its run in the background.
func (m *Manager) Submit(ctx context.Context, cfg model.HarvestConfig) (model.Job, error) {
	if cfg.SearchQuery == "" {
		return model.Job{}, errors.New("search_query is required")
	}
	if cfg.Total <= 0 {
		cfg.Total = 10
	}
	cfg.ClampZoom()

	job, err := m.store.CreateJob(ctx, cfg)
	if err != nil {
		return model.Job{}, fmt.Errorf("creating job: %w", err)
	}

	if err := m.store.AppendLog(ctx, job.ID, fmt.Sprintf("job created: %q in %q, target %d", cfg.SearchQuery, cfg.Location, cfg.Total)); err != nil {
		m.logger.Printf("ERROR job=%s appending log: %v", job.ID, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	h := &handle{token: &token{}, cancel: cancel}

	m.mu.Lock()
	m.active[job.ID] = h
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(runCtx, job, h)

	return job, nil
}

func (m *Manager) run(ctx context.Context, job model.Job, h *handle) {
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		delete(m.active, job.ID)
		m.mu.Unlock()
		h.cancel()
	}()

	if err := m.store.SetStatus(ctx, job.ID, model.StatusRunning, -1, ""); err != nil {
		m.logger.Printf("ERROR job=%s marking running: %v", job.ID, err)
		return
	}

	records, err := m.runner.Run(ctx, job.ID, job.Config, h.token)

	switch {
	case err == nil:
		m.finish(job.ID, model.StatusCompleted, len(records), "")
	case errors.Is(err, harvest.ErrStopped),
		h.token.Stopped() && errors.Is(err, context.Canceled):
		// Shutdown flips the token without a Stop call, so the store may
		// still read running; pass through stopping on the way down.
		if err := m.store.SetStatus(context.Background(), job.ID, model.StatusStopping, -1, ""); err != nil && !errors.Is(err, storage.ErrIllegalTransition) {
			m.logger.Printf("ERROR job=%s marking stopping: %v", job.ID, err)
		}
		m.finish(job.ID, model.StatusStopped, len(records), "")
	default:
		m.logger.Printf("ERROR job=%s run failed: %v", job.ID, err)
		m.finish(job.ID, model.StatusError, len(records), err.Error())
	}
}

// finish records a terminal status. Uses a fresh context: the run context
// may already be cancelled and the terminal write must still land.
func (m *Manager) finish(jobID string, status model.Status, count int, errMsg string) {
	if err := m.store.SetStatus(context.Background(), jobID, status, count, errMsg); err != nil {
		m.logger.Printf("ERROR job=%s marking %s: %v", jobID, status, err)
	}
}

// Stop requests cooperative termination of a running job. The run exits at
// the next tile boundary; callers observe stopping until then.
func (m *Manager) Stop(ctx context.Context, jobID string) error {
	if err := m.store.SetStatus(ctx, jobID, model.StatusStopping, -1, ""); err != nil {
		if errors.Is(err, storage.ErrIllegalTransition) {
			return ErrNotRunning
		}
		return err
	}

	m.mu.Lock()
	if h, ok := m.active[jobID]; ok {
		h.token.flag.Store(true)
	}
	m.mu.Unlock()

	if err := m.store.AppendLog(ctx, jobID, "stop requested by user"); err != nil {
		m.logger.Printf("ERROR job=%s appending log: %v", jobID, err)
	}
	return nil
}

// Shutdown cancels all in-flight runs and waits for their terminal status
// writes.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	for _, h := range m.active {
		h.token.flag.Store(true)
		h.cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}
