package export

import (
	"errors"
	"testing"
)

func newProcessingJob(t *testing.T) *Job {
	t.Helper()
	job, err := NewJob("project-1", "user-1", Settings{})
	if err != nil {
		t.Fatalf("NewJob() error = %v", err)
	}
	if err := job.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return job
}

func TestNewJob_Defaults(t *testing.T) {
	job, err := NewJob("p", "u", Settings{})
	if err != nil {
		t.Fatalf("NewJob() error = %v", err)
	}
	if job.Status != StatusPending || job.Progress != 0 {
		t.Errorf("new job = %s/%v, want pending/0", job.Status, job.Progress)
	}
	if job.Settings.Resolution != Resolution1080p || job.Settings.Format != FormatMP4 || job.Settings.Quality != QualityHigh {
		t.Errorf("default settings = %+v", job.Settings)
	}
	if job.ID == "" {
		t.Error("job ID should be set")
	}
}

func TestNewJob_InvalidSettings(t *testing.T) {
	tests := []Settings{
		{Resolution: "8K"},
		{Format: "avi"},
		{Quality: "ultra"},
		{FrameRate: 500},
	}
	for _, s := range tests {
		if _, err := NewJob("p", "u", s); !errors.Is(err, ErrInvalidSettings) {
			t.Errorf("NewJob(%+v) error = %v, want InvalidSettings", s, err)
		}
	}
}

func TestJob_HappyPath(t *testing.T) {
	job := newProcessingJob(t)
	if job.StartedAt == nil {
		t.Error("StartedAt not set")
	}
	for _, p := range []float64{0, 0.25, 0.25, 0.9} {
		if err := job.UpdateProgress(p); err != nil {
			t.Fatalf("UpdateProgress(%v) error = %v", p, err)
		}
	}
	if err := job.Complete("file:///out.mp4"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if job.Status != StatusCompleted || job.Progress != 1 || job.OutputRef != "file:///out.mp4" {
		t.Errorf("completed job = %+v", job)
	}
	if job.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
}

func TestJob_ProgressRejections(t *testing.T) {
	job := newProcessingJob(t)
	if err := job.UpdateProgress(0.5); err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}

	if err := job.UpdateProgress(0.4); !errors.Is(err, ErrProgressRegression) {
		t.Errorf("regression error = %v, want ProgressRegression", err)
	}
	if err := job.UpdateProgress(1.2); !errors.Is(err, ErrInvalidProgress) {
		t.Errorf("out of range error = %v, want InvalidProgress", err)
	}
	if job.Progress != 0.5 {
		t.Errorf("rejected updates changed progress to %v", job.Progress)
	}
}

func TestJob_ProgressOnlyWhileProcessing(t *testing.T) {
	pending, _ := NewJob("p", "u", Settings{})
	if err := pending.UpdateProgress(0.1); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("pending progress error = %v, want InvalidTransition", err)
	}
}

func TestJob_TerminalIsImmutable(t *testing.T) {
	completed := newProcessingJob(t)
	_ = completed.Complete("out")
	failed := newProcessingJob(t)
	_ = failed.Fail("encoder crashed")

	for name, job := range map[string]*Job{"completed": completed, "failed": failed} {
		t.Run(name, func(t *testing.T) {
			before := *job
			checks := []error{
				job.UpdateProgress(1),
				job.Start(),
				job.Complete("other"),
				job.Fail("again"),
				job.Cancel(),
			}
			for i, err := range checks {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("check %d error = %v, want InvalidTransition", i, err)
				}
			}
			if job.Status != before.Status || job.OutputRef != before.OutputRef || job.Error != before.Error {
				t.Errorf("terminal job changed: %+v", job)
			}
		})
	}
}

func TestJob_InvalidMoves(t *testing.T) {
	pending, _ := NewJob("p", "u", Settings{})
	if err := pending.Complete("out"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("pending Complete() error = %v", err)
	}
	if err := pending.Fail("x"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("pending Fail() error = %v", err)
	}

	processing := newProcessingJob(t)
	if err := processing.Start(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double Start() error = %v", err)
	}
	if err := processing.Complete(""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Complete(\"\") error = %v", err)
	}
}

func TestJob_Cancel(t *testing.T) {
	pending, _ := NewJob("p", "u", Settings{})
	if err := pending.Cancel(); err != nil {
		t.Fatalf("Cancel(pending) error = %v", err)
	}
	if pending.Status != StatusFailed || pending.Error != CancelledDetail {
		t.Errorf("cancelled pending job = %s/%q", pending.Status, pending.Error)
	}

	processing := newProcessingJob(t)
	if err := processing.Cancel(); err != nil {
		t.Fatalf("Cancel(processing) error = %v", err)
	}
	if processing.Status != StatusFailed || processing.Error != CancelledDetail {
		t.Errorf("cancelled processing job = %s/%q", processing.Status, processing.Error)
	}
}

func TestApply(t *testing.T) {
	job, _ := NewJob("p", "u", Settings{Format: FormatEDL})
	events := []Event{
		{Kind: EventAccepted},
		{Kind: EventProgress, Progress: 0.3},
		{Kind: EventProgress, Progress: 0.7},
		{Kind: EventCompleted, OutputRef: "out.edl"},
	}
	for _, ev := range events {
		if err := Apply(job, ev); err != nil {
			t.Fatalf("Apply(%+v) error = %v", ev, err)
		}
	}
	if job.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", job.Status)
	}
	if err := Apply(job, Event{Kind: EventProgress, Progress: 1}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Apply after completion error = %v, want InvalidTransition", err)
	}
}

func TestApply_FailedAndUnknown(t *testing.T) {
	job := newProcessingJob(t)
	if err := Apply(job, Event{Kind: "paused"}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("unknown kind error = %v", err)
	}
	if err := Apply(job, Event{Kind: EventFailed}); err != nil {
		t.Fatalf("Apply(failed) error = %v", err)
	}
	if job.Error == "" {
		t.Error("failed job should carry an error detail")
	}
}

func TestResolution(t *testing.T) {
	if r, ok := ParseResolution("4k"); !ok || r != Resolution4K {
		t.Errorf("ParseResolution(4k) = %q, %v", r, ok)
	}
	if _, ok := ParseResolution("480p"); ok {
		t.Error("ParseResolution(480p) should fail")
	}
	if !Resolution4K.Exceeds(Resolution1080p) || Resolution720p.Exceeds(Resolution1080p) {
		t.Error("Exceeds() ordering wrong")
	}
}
