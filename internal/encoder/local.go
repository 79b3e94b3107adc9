package encoder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/cloud"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/export"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/project"
)

// AssetLookup resolves media assets by ID.
type AssetLookup interface {
	LookupMediaAssets(ctx context.Context, ids []string) (map[string]project.MediaAsset, error)
}

// Local renders projects as EDL files in a directory.
type Local struct {
	dir    string
	assets AssetLookup
	logger *slog.Logger
}

func NewLocal(dir string, assets AssetLookup, logger *slog.Logger) *Local {
	return &Local{dir: dir, assets: assets, logger: logger}
}

func (l *Local) SubmitExport(ctx context.Context, jobID string, p project.Project, settings export.Settings) (cloud.ExportHandle, error) {
	if settings.Format != export.FormatEDL {
		return cloud.ExportHandle{}, fmt.Errorf("%w: local encoder writes edl, got %s", ErrUnsupportedFormat, settings.Format)
	}
	outPath, err := export.OutputPath(l.dir, p.Name, jobID, export.FormatEDL)
	if err != nil {
		return cloud.ExportHandle{}, err
	}

	events := make(chan export.Event, 1)
	go func() {
		defer close(events)
		l.render(emitter{ctx: ctx, events: events}, p, settings, outPath)
	}()
	return cloud.ExportHandle{JobID: jobID, Events: events}, nil
}

func (l *Local) render(em emitter, p project.Project, settings export.Settings, outPath string) {
	if !em.send(export.Event{Kind: export.EventAccepted}) {
		return
	}

	var assetIDs []string
	for _, tr := range p.Timeline.Tracks {
		for _, c := range tr.Clips {
			assetIDs = append(assetIDs, c.AssetID)
		}
	}
	assets, err := l.assets.LookupMediaAssets(em.ctx, assetIDs)
	if err != nil {
		em.fail(fmt.Errorf("resolve media assets: %w", err))
		return
	}
	if !em.progress(0.3) {
		return
	}

	edl, unresolved := export.GenerateEDL(p, assets, settings.FrameRate)
	if len(unresolved) > 0 && l.logger != nil {
		l.logger.Warn("edl export skipped clips with missing media", "project_id", p.ID, "clips", unresolved)
	}
	if !em.progress(0.6) {
		return
	}

	if err := writeFileAtomic(outPath, []byte(edl)); err != nil {
		em.fail(err)
		return
	}
	if l.logger != nil {
		l.logger.Info("edl written", "project_id", p.ID, "path", outPath, "skipped", len(unresolved))
	}
	em.send(export.Event{Kind: export.EventCompleted, OutputRef: outPath})
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close export: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("move export into place: %w", err)
	}
	return nil
}
