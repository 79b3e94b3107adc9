// Package export models export jobs: the status machine a job moves through
// while an encoder renders a project, the encoder event stream that drives
// it, and the EDL rendering used for local exports.
package export

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/ids"
)

// Status is the lifecycle stage of an export job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CancelledDetail is the error detail recorded on a cancelled job.
const CancelledDetail = "cancelled by user"

// InterruptedDetail is recorded on jobs that were processing when the
// process stopped.
const InterruptedDetail = "interrupted by restart"

// Job error codes.
const (
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInvalidProgress   = "INVALID_PROGRESS"
	CodeProgressRegressed = "PROGRESS_REGRESSION"
	CodeInvalidSettings   = "INVALID_SETTINGS"
	CodeEncoderFailed     = "ENCODER_FAILED"
)

// JobError reports a rejected job transition or a failed export.
type JobError struct {
	Code   string
	JobID  string
	From   Status
	Detail string
}

func (e *JobError) Error() string {
	msg := "export job"
	if e.JobID != "" {
		msg += " " + e.JobID
	}
	msg += ": " + e.Code
	if e.From != "" {
		msg += " from " + string(e.From)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is matches another *JobError with the same code.
func (e *JobError) Is(target error) bool {
	t, ok := target.(*JobError)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidTransition  = &JobError{Code: CodeInvalidTransition}
	ErrInvalidProgress    = &JobError{Code: CodeInvalidProgress}
	ErrProgressRegression = &JobError{Code: CodeProgressRegressed}
	ErrInvalidSettings    = &JobError{Code: CodeInvalidSettings}
	ErrEncoderFailed      = &JobError{Code: CodeEncoderFailed}
)

// Job is one export request for a project.
type Job struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	UserID      string     `json:"user_id"`
	Status      Status     `json:"status"`
	Progress    float64    `json:"progress"`
	Settings    Settings   `json:"settings"`
	OutputRef   string     `json:"output_ref,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewJob creates a pending job after validating its settings.
func NewJob(projectID, userID string, settings Settings) (*Job, error) {
	settings = settings.withDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Job{
		ID:        ids.New(),
		ProjectID: projectID,
		UserID:    userID,
		Status:    StatusPending,
		Settings:  settings,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Start moves a pending job to processing. It is triggered by the encoder
// accepting the job.
func (j *Job) Start() error {
	if j.Status != StatusPending {
		return j.transitionError("start")
	}
	now := time.Now().UTC()
	j.Status = StatusProcessing
	j.StartedAt = &now
	return nil
}

// UpdateProgress records encoder progress. Values must lie in [0, 1] and
// never decrease, and are only accepted while processing.
func (j *Job) UpdateProgress(p float64) error {
	if j.Status != StatusProcessing {
		return j.transitionError("progress")
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return &JobError{Code: CodeInvalidProgress, JobID: j.ID, Detail: fmt.Sprintf("%v outside [0, 1]", p)}
	}
	if p < j.Progress {
		return &JobError{Code: CodeProgressRegressed, JobID: j.ID, Detail: fmt.Sprintf("%v after %v", p, j.Progress)}
	}
	j.Progress = p
	return nil
}

// Complete finishes a processing job with the location of its output.
func (j *Job) Complete(outputRef string) error {
	if j.Status != StatusProcessing {
		return j.transitionError("complete")
	}
	if outputRef == "" {
		return &JobError{Code: CodeInvalidTransition, JobID: j.ID, From: j.Status, Detail: "completion requires an output reference"}
	}
	now := time.Now().UTC()
	j.Status = StatusCompleted
	j.Progress = 1
	j.OutputRef = outputRef
	j.CompletedAt = &now
	return nil
}

// Fail terminates a processing job with an error detail.
func (j *Job) Fail(detail string) error {
	if j.Status != StatusProcessing {
		return j.transitionError("fail")
	}
	j.finishFailed(detail)
	return nil
}

// Cancel fails a job that has not reached a terminal state.
func (j *Job) Cancel() error {
	return j.Abort(CancelledDetail)
}

// Abort fails a pending or processing job with detail. It covers jobs the
// encoder never accepted as well as cancellation.
func (j *Job) Abort(detail string) error {
	if j.Status.Terminal() {
		return j.transitionError("abort")
	}
	j.finishFailed(detail)
	return nil
}

func (j *Job) finishFailed(detail string) {
	now := time.Now().UTC()
	j.Status = StatusFailed
	j.Error = detail
	j.CompletedAt = &now
}

func (j *Job) transitionError(action string) error {
	return &JobError{Code: CodeInvalidTransition, JobID: j.ID, From: j.Status, Detail: "cannot " + action}
}

// Clone returns a copy that shares no pointers with j.
func (j *Job) Clone() *Job {
	cp := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		cp.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// IsJobError reports whether err carries a job error code.
func IsJobError(err error) bool {
	var je *JobError
	return errors.As(err, &je)
}
