package export

import "fmt"

// EventKind identifies an encoder report.
type EventKind string

const (
	EventAccepted  EventKind = "accepted"
	EventProgress  EventKind = "progress"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
)

// Event is one report from an encoder about a submitted job.
type Event struct {
	Kind      EventKind `json:"kind"`
	Progress  float64   `json:"progress,omitempty"`
	OutputRef string    `json:"output_ref,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Apply feeds an encoder event into the job's status machine. A rejected
// event leaves the job unchanged.
func Apply(j *Job, ev Event) error {
	switch ev.Kind {
	case EventAccepted:
		return j.Start()
	case EventProgress:
		return j.UpdateProgress(ev.Progress)
	case EventCompleted:
		return j.Complete(ev.OutputRef)
	case EventFailed:
		detail := ev.Error
		if detail == "" {
			detail = "encoder reported failure"
		}
		return j.Fail(detail)
	default:
		return &JobError{Code: CodeInvalidTransition, JobID: j.ID, From: j.Status,
			Detail: fmt.Sprintf("unknown event kind %q", ev.Kind)}
	}
}
