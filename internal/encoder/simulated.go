package encoder

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/cloud"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/export"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/project"
)

// Simulated stands in for a real renderer. It reports progress in fixed
// steps and completes with a placeholder output reference.
type Simulated struct {
	interval time.Duration
	step     float64
	logger   *slog.Logger
}

// NewSimulated reports progress every interval in steps of 0.1.
func NewSimulated(interval time.Duration, logger *slog.Logger) *Simulated {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Simulated{interval: interval, step: 0.1, logger: logger}
}

func (s *Simulated) SubmitExport(ctx context.Context, jobID string, p project.Project, settings export.Settings) (cloud.ExportHandle, error) {
	if p.ClipCount() == 0 {
		return cloud.ExportHandle{}, fmt.Errorf("project %s has no clips to export", p.ID)
	}

	events := make(chan export.Event, 1)
	go func() {
		defer close(events)
		em := emitter{ctx: ctx, events: events}
		if !em.send(export.Event{Kind: export.EventAccepted}) {
			return
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		steps := int(math.Round(1 / s.step))
		for i := 1; i <= steps; i++ {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if !em.progress(math.Min(1, float64(i)*s.step)) {
				return
			}
		}
		ref := fmt.Sprintf("simulated://%s.%s", jobID, settings.Format)
		if s.logger != nil {
			s.logger.Info("simulated export finished", "job_id", jobID, "resolution", settings.Resolution)
		}
		em.send(export.Event{Kind: export.EventCompleted, OutputRef: ref})
	}()
	return cloud.ExportHandle{JobID: jobID, Events: events}, nil
}
