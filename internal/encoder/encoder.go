// Package encoder provides in-process implementations of the export
// encoder: an EDL writer, a simulated renderer and a router that picks one
// by output format.
package encoder

import (
	"context"
	"errors"
	"fmt"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/cloud"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/export"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/project"
)

// ErrUnsupportedFormat is returned when no encoder handles a format.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Router sends each export to the encoder registered for its format,
// falling back to Default.
type Router struct {
	ByFormat map[export.Format]cloud.EncoderService
	Default  cloud.EncoderService
}

func (r *Router) SubmitExport(ctx context.Context, jobID string, p project.Project, settings export.Settings) (cloud.ExportHandle, error) {
	if enc, ok := r.ByFormat[settings.Format]; ok {
		return enc.SubmitExport(ctx, jobID, p, settings)
	}
	if r.Default != nil {
		return r.Default.SubmitExport(ctx, jobID, p, settings)
	}
	return cloud.ExportHandle{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, settings.Format)
}

// emitter sends events until ctx is done.
type emitter struct {
	ctx    context.Context
	events chan<- export.Event
}

func (e emitter) send(ev export.Event) bool {
	select {
	case e.events <- ev:
		return true
	case <-e.ctx.Done():
		return false
	}
}

func (e emitter) progress(p float64) bool {
	return e.send(export.Event{Kind: export.EventProgress, Progress: p})
}

func (e emitter) fail(err error) {
	e.send(export.Event{Kind: export.EventFailed, Error: err.Error()})
}
