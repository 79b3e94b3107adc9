package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrJobNotFound is returned for unknown job IDs.
var ErrJobNotFound = errors.New("export job not found")

// JobStore persists job state. Every accepted transition is written
// through it.
type JobStore interface {
	CreateExportJob(ctx context.Context, job *Job) error
	UpdateExportJob(ctx context.Context, job *Job) error
	// GetExportJob returns nil, nil for unknown IDs.
	GetExportJob(ctx context.Context, id string) (*Job, error)
}

// SubmitFunc hands a job to an encoder and returns its event stream. The
// encoder must stop sending once ctx is done.
type SubmitFunc func(ctx context.Context) (<-chan Event, error)

type trackedJob struct {
	job    *Job
	cancel context.CancelFunc
	done   chan struct{}
	subs   []chan Job
}

// Tracker drives in-flight jobs from their encoder events, persisting and
// publishing every change.
type Tracker struct {
	store   JobStore
	logger  *slog.Logger
	timeout time.Duration

	mu   sync.Mutex
	jobs map[string]*trackedJob
	wg   sync.WaitGroup
}

func NewTracker(store JobStore, logger *slog.Logger) *Tracker {
	return &Tracker{
		store:   store,
		logger:  logger,
		timeout: 5 * time.Second,
		jobs:    make(map[string]*trackedJob),
	}
}

// Start persists a pending job and begins consuming the events returned by
// submit. It returns once the job is recorded; the encoder runs in the
// background.
func (t *Tracker) Start(job *Job, submit SubmitFunc) error {
	if job.Status != StatusPending {
		return job.transitionError("track")
	}
	if err := t.persist(job, true); err != nil {
		return fmt.Errorf("failed to record export job: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	tj := &trackedJob{job: job, cancel: cancel, done: make(chan struct{})}

	t.mu.Lock()
	t.jobs[job.ID] = tj
	t.mu.Unlock()

	t.wg.Add(1)
	go t.run(ctx, tj, submit)
	return nil
}

func (t *Tracker) run(ctx context.Context, tj *trackedJob, submit SubmitFunc) {
	defer t.wg.Done()
	defer t.finish(tj)
	defer tj.cancel()

	events, err := submit(ctx)
	if err != nil {
		t.terminate(tj, fmt.Sprintf("encoder rejected job: %v", err))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				t.terminate(tj, "encoder stream ended before completion")
				return
			}
			if t.apply(tj, ev) {
				return
			}
		}
	}
}

// apply feeds one event into the job and reports whether the job is now
// terminal.
func (t *Tracker) apply(tj *trackedJob, ev Event) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tj.job.Status.Terminal() {
		return true
	}
	if err := Apply(tj.job, ev); err != nil {
		t.warn("export event rejected", "job_id", tj.job.ID, "event", ev.Kind, "error", err)
		return false
	}
	t.commitLocked(tj)
	return tj.job.Status.Terminal()
}

// terminate fails a job that stopped without a terminal event.
func (t *Tracker) terminate(tj *trackedJob, detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tj.job.Status.Terminal() {
		return
	}
	_ = tj.job.Abort(detail)
	t.commitLocked(tj)
}

func (t *Tracker) commitLocked(tj *trackedJob) {
	if err := t.persist(tj.job, false); err != nil {
		t.warn("failed to persist export job", "job_id", tj.job.ID, "error", err)
	}
	snapshot := *tj.job.Clone()
	for _, ch := range tj.subs {
		select {
		case ch <- snapshot:
		default:
		}
	}
	if t.logger != nil {
		t.logger.Debug("export job updated", "job_id", snapshot.ID, "status", snapshot.Status, "progress", snapshot.Progress)
	}
}

func (t *Tracker) finish(tj *trackedJob) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, ch := range tj.subs {
		close(ch)
	}
	tj.subs = nil
	delete(t.jobs, tj.job.ID)
	close(tj.done)

	if t.logger != nil {
		t.logger.Info("export job finished", "job_id", tj.job.ID, "status", tj.job.Status, "error", tj.job.Error)
	}
}

// Cancel fails an in-flight job with CancelledDetail and stops its encoder.
func (t *Tracker) Cancel(jobID string) (*Job, error) {
	t.mu.Lock()
	tj, ok := t.jobs[jobID]
	if !ok {
		t.mu.Unlock()
		job, err := t.Get(context.Background(), jobID)
		if err != nil {
			return nil, err
		}
		if err := job.Cancel(); err != nil {
			return nil, err
		}
		if err := t.persist(job, false); err != nil {
			return nil, err
		}
		return job, nil
	}
	if err := tj.job.Cancel(); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	t.commitLocked(tj)
	snapshot := tj.job.Clone()
	t.mu.Unlock()

	tj.cancel()
	return snapshot, nil
}

// Get returns the current state of a job, in flight or stored.
func (t *Tracker) Get(ctx context.Context, jobID string) (*Job, error) {
	t.mu.Lock()
	if tj, ok := t.jobs[jobID]; ok {
		cp := tj.job.Clone()
		t.mu.Unlock()
		return cp, nil
	}
	t.mu.Unlock()

	if t.store == nil {
		return nil, ErrJobNotFound
	}
	job, err := t.store.GetExportJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// Subscribe returns a channel that receives a copy of the job after every
// change. It is closed when the job finishes. Slow readers miss
// intermediate updates. ok is false if the job is not in flight.
func (t *Tracker) Subscribe(jobID string) (updates <-chan Job, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tj, found := t.jobs[jobID]
	if !found {
		return nil, false
	}
	ch := make(chan Job, 16)
	tj.subs = append(tj.subs, ch)
	return ch, true
}

// Wait blocks until the job finishes or ctx is done, then returns its state.
func (t *Tracker) Wait(ctx context.Context, jobID string) (*Job, error) {
	t.mu.Lock()
	tj, ok := t.jobs[jobID]
	t.mu.Unlock()

	if ok {
		select {
		case <-tj.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return t.Get(ctx, jobID)
}

// Active returns the number of jobs in flight.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

// Shutdown cancels every in-flight job and waits for their encoders to stop.
func (t *Tracker) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	inFlight := make([]string, 0, len(t.jobs))
	for id := range t.jobs {
		inFlight = append(inFlight, id)
	}
	t.mu.Unlock()

	for _, id := range inFlight {
		_, _ = t.Cancel(id)
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) persist(job *Job, create bool) error {
	if t.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	if create {
		return t.store.CreateExportJob(ctx, job)
	}
	return t.store.UpdateExportJob(ctx, job)
}

func (t *Tracker) warn(msg string, args ...any) {
	if t.logger != nil {
		t.logger.Warn(msg, args...)
	}
}
