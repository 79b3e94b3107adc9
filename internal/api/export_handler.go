package api

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/editor"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/entitlement"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/export"
)

func createExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateExportRequest
		if !decodeBody(w, r, &req) {
			return
		}

		p, ok := cfg.Session.Current()
		if !ok {
			writeDomainError(w, editor.ErrNoProject, cfg.Logger)
			return
		}
		if p.ClipCount() == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "project has no clips to export", "EMPTY_PROJECT")
			return
		}

		settings := export.Settings{
			Quality:   export.Quality(strings.ToLower(req.Quality)),
			Format:    export.Format(strings.ToLower(req.Format)),
			FrameRate: req.FrameRate,
		}
		if req.Resolution != "" {
			res, ok := export.ParseResolution(req.Resolution)
			if !ok {
				WriteError(w, http.StatusBadRequest, "resolution must be 720p, 1080p or 4K", export.CodeInvalidSettings)
				return
			}
			settings.Resolution = res
		}

		user := userFrom(r.Context())
		job, err := export.NewJob(p.ID, user.ID, settings)
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		if err := cfg.Gate.Authorize(user, entitlement.ActionExport, entitlement.Context{Resolution: job.Settings.Resolution}); err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}

		jobID, jobSettings := job.ID, job.Settings
		snapshot := p.Clone()
		submit := func(ctx context.Context) (<-chan export.Event, error) {
			h, err := cfg.Encoder.SubmitExport(ctx, jobID, snapshot, jobSettings)
			if err != nil {
				return nil, err
			}
			return h.Events, nil
		}

		accepted := job.Clone()
		if err := cfg.Tracker.Start(job, submit); err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		cfg.Logger.Info("export started",
			"job_id", accepted.ID,
			"project_id", p.ID,
			"format", jobSettings.Format,
			"resolution", jobSettings.Resolution,
			"watermark", entitlement.ShouldWatermark(cfg.Gate.Limits(user.EffectivePlan())),
		)
		WriteJSON(w, http.StatusAccepted, JobToResponse(accepted))
	}
}

func listExportsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := r.URL.Query().Get("project_id")
		if projectID == "" {
			p, ok := cfg.Session.Current()
			if !ok {
				WriteError(w, http.StatusBadRequest, "project_id is required when no project is open", "BAD_REQUEST")
				return
			}
			projectID = p.ID
		}

		jobs, err := cfg.Repo.ListExportJobs(r.Context(), projectID, 50)
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		user := userFrom(r.Context())
		resp := ExportJobsResponse{Jobs: make([]ExportJobResponse, 0, len(jobs))}
		for _, j := range jobs {
			if j.UserID == user.ID {
				resp.Jobs = append(resp.Jobs, JobToResponse(j))
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// ownedJob loads a job and hides jobs of other users behind 404.
func ownedJob(ctx context.Context, cfg ServerConfig, id string) (*export.Job, error) {
	job, err := cfg.Tracker.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.UserID != userFrom(ctx).ID {
		return nil, export.ErrJobNotFound
	}
	return job, nil
}

func getExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := ownedJob(r.Context(), cfg, chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func cancelExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := ownedJob(r.Context(), cfg, id); err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		job, err := cfg.Tracker.Cancel(id)
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

// exportEventsHandler streams job updates as newline-delimited JSON until
// the job finishes.
func exportEventsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		job, err := ownedJob(r.Context(), cfg, id)
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusOK)
		enc := json.NewEncoder(w)
		flusher, _ := w.(http.Flusher)

		updates, live := cfg.Tracker.Subscribe(id)
		if !live {
			enc.Encode(JobToResponse(job))
			return
		}
		for {
			select {
			case <-r.Context().Done():
				return
			case j, ok := <-updates:
				if !ok {
					if final, err := cfg.Tracker.Get(r.Context(), id); err == nil {
						enc.Encode(JobToResponse(final))
					}
					return
				}
				enc.Encode(JobToResponse(&j))
				if flusher != nil {
					flusher.Flush()
				}
			}
		}
	}
}

func exportOutputHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := ownedJob(r.Context(), cfg, chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		if job.Status != export.StatusCompleted {
			WriteError(w, http.StatusConflict, "export is "+string(job.Status), "NOT_READY")
			return
		}

		ref := job.OutputRef
		switch {
		case strings.HasPrefix(ref, "https://"), strings.HasPrefix(ref, "http://"):
			http.Redirect(w, r, ref, http.StatusFound)
		case filepath.IsAbs(ref) && cfg.Playback != nil:
			if err := cfg.Playback.ServeOutput(w, r, ref, filepath.Base(ref)); err != nil {
				writeDomainError(w, err, cfg.Logger)
			}
		default:
			WriteError(w, http.StatusNotFound, "export output is not downloadable", "OUTPUT_UNAVAILABLE")
		}
	}
}
