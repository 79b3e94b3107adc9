package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/editor"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/project"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/store"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/timemodel"
)

// DefaultStillDuration is the timeline length given to an image inserted
// without an explicit duration.
const DefaultStillDuration = 5.0

func getSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeSession(w, http.StatusOK, cfg)
	}
}

func seekHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, err := strconv.ParseFloat(r.URL.Query().Get("offset"), 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "offset must be a number", "BAD_REQUEST")
			return
		}
		p, ok := cfg.Session.Current()
		if !ok {
			writeDomainError(w, editor.ErrNoProject, cfg.Logger)
			return
		}
		t, inRange, err := timemodel.SeekTime(offset, cfg.PixelsPerSecond, p.Duration())
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_PARAMETER")
			return
		}

		resp := SeekResponse{Time: t, Clamped: !inRange, Clips: []PlayheadClip{}}
		for i := range p.Timeline.Tracks {
			if c, found, _ := editor.ClipAt(p, i, t); found {
				resp.Clips = append(resp.Clips, PlayheadClip{TrackIndex: i, Clip: c})
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func insertClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req InsertClipRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.MediaAssetID == "" {
			WriteError(w, http.StatusBadRequest, "media_asset_id is required", "BAD_REQUEST")
			return
		}

		user := userFrom(r.Context())
		asset, err := cfg.Repo.GetMediaAsset(r.Context(), req.MediaAssetID)
		if err == nil && asset.UserID != "" && asset.UserID != user.ID {
			err = store.ErrNotFound
		}
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}

		var duration float64
		switch {
		case req.Duration != nil:
			duration = *req.Duration
		case asset.Duration != nil:
			duration = *asset.Duration - req.TrimStart
		case asset.Kind == project.AssetImage:
			duration = DefaultStillDuration
		default:
			WriteError(w, http.StatusBadRequest, "duration is required for media of unknown length", "BAD_REQUEST")
			return
		}

		clip, err := cfg.Session.InsertClip(editor.InsertArgs{
			TrackIndex:     req.TrackIndex,
			AssetID:        asset.ID,
			At:             req.StartTime,
			Duration:       duration,
			TrimStart:      req.TrimStart,
			SourceDuration: asset.Duration,
		})
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		resp, _ := currentSession(cfg)
		WriteJSON(w, http.StatusCreated, ClipResponse{Clip: clip, Session: resp})
	}
}

// clipSourceDuration looks up the media length behind a clip of the open
// project. A missing clip or asset yields nil so the edit reports its own
// error.
func clipSourceDuration(r *http.Request, cfg ServerConfig, clipID string) (*float64, error) {
	p, ok := cfg.Session.Current()
	if !ok {
		return nil, nil
	}
	c, found := p.Clip(clipID)
	if !found {
		return nil, nil
	}
	asset, err := cfg.Repo.GetMediaAsset(r.Context(), c.AssetID)
	switch {
	case err == nil:
		return asset.Duration, nil
	case errors.Is(err, store.ErrNotFound):
		return nil, nil
	default:
		return nil, err
	}
}

func moveClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MoveClipRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.StartTime == nil {
			WriteError(w, http.StatusBadRequest, "start_time is required", "BAD_REQUEST")
			return
		}
		if _, err := cfg.Session.MoveClip(chi.URLParam(r, "id"), *req.StartTime); err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		writeSession(w, http.StatusOK, cfg)
	}
}

func trimClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TrimClipRequest
		if !decodeBody(w, r, &req) {
			return
		}
		clipID := chi.URLParam(r, "id")
		trim := editor.Trim{Start: req.TrimStart, End: req.TrimEnd}
		source, err := clipSourceDuration(r, cfg, clipID)
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		trim.SourceDuration = source

		if _, err := cfg.Session.TrimClip(clipID, trim); err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		writeSession(w, http.StatusOK, cfg)
	}
}

func volumeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VolumeRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Volume == nil {
			WriteError(w, http.StatusBadRequest, "volume is required", "BAD_REQUEST")
			return
		}
		clipID := chi.URLParam(r, "id")
		_, err := cfg.Session.Apply("set_volume", func(p project.Project) (project.Project, error) {
			return editor.SetVolume(p, clipID, *req.Volume)
		})
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		writeSession(w, http.StatusOK, cfg)
	}
}

func splitClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SplitClipRequest
		if !decodeBody(w, r, &req) {
			return
		}
		clipID := chi.URLParam(r, "id")
		source, err := clipSourceDuration(r, cfg, clipID)
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		left, right, err := cfg.Session.SplitClip(clipID, req.At, source)
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		resp, _ := currentSession(cfg)
		WriteJSON(w, http.StatusOK, SplitClipResponse{Left: left, Right: right, Session: resp})
	}
}

func addTransitionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TransitionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		tr := project.Transition{
			Type:     project.TransitionType(req.Type),
			Duration: req.Duration,
			Position: project.TransitionPosition(req.Position),
		}
		clipID := chi.URLParam(r, "id")
		_, err := cfg.Session.Apply("add_transition", func(p project.Project) (project.Project, error) {
			return editor.AddTransition(p, clipID, tr)
		})
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		writeSession(w, http.StatusOK, cfg)
	}
}

func addFilterHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FilterRequest
		if !decodeBody(w, r, &req) {
			return
		}
		f := project.Filter{Name: req.Name, Type: req.Type, Intensity: req.Intensity, Parameters: req.Parameters}
		clipID := chi.URLParam(r, "id")
		_, err := cfg.Session.Apply("add_filter", func(p project.Project) (project.Project, error) {
			return editor.AddFilter(p, clipID, f)
		})
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		writeSession(w, http.StatusOK, cfg)
	}
}

func deleteClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := cfg.Session.DeleteClip(chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		writeSession(w, http.StatusOK, cfg)
	}
}

func addTrackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TrackRequest
		if r.ContentLength != 0 && !decodeBody(w, r, &req) {
			return
		}
		_, err := cfg.Session.Apply("add_track", func(p project.Project) (project.Project, error) {
			next, _, err := editor.AddTrack(p, project.TrackKind(req.Kind))
			return next, err
		})
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		writeSession(w, http.StatusCreated, cfg)
	}
}

func selectionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := cfg.Session.Select(req.ClipID); err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		writeSession(w, http.StatusOK, cfg)
	}
}

func undoHandler(cfg ServerConfig) http.HandlerFunc {
	return historyHandler(cfg, cfg.Session.Undo)
}

func redoHandler(cfg ServerConfig) http.HandlerFunc {
	return historyHandler(cfg, cfg.Session.Redo)
}

func historyHandler(cfg ServerConfig, step func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		changed := step()
		resp, ok := currentSession(cfg)
		if !ok {
			writeDomainError(w, editor.ErrNoProject, cfg.Logger)
			return
		}
		WriteJSON(w, http.StatusOK, HistoryResponse{Changed: changed, Session: resp})
	}
}

func saveHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := cfg.Session.Current()
		if !ok {
			writeDomainError(w, editor.ErrNoProject, cfg.Logger)
			return
		}
		user := userFrom(r.Context())
		if err := cfg.Repo.SaveProject(r.Context(), user.ID, p); err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}

		resp := SaveResponse{ProjectID: p.ID}
		if cfg.Sync != nil {
			if err := cfg.Sync.SaveProject(r.Context(), user.ID, p); err != nil {
				cfg.Logger.Warn("project sync failed", "project_id", p.ID, "error", err)
				resp.SyncError = err.Error()
			} else {
				resp.Synced = true
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}
