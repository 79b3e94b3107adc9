package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/editor"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/entitlement"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/project"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/store"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/timemodel"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist(cfg.AllowedOrigins))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repo, cfg.Logger))
		r.Use(UserMiddleware(cfg.Auth, cfg.Logger))

		r.Post("/projects", createProjectHandler(cfg))
		r.Get("/projects", listProjectsHandler(cfg))
		r.Post("/projects/{id}/open", openProjectHandler(cfg))

		r.Route("/session", func(r chi.Router) {
			r.Get("/", getSessionHandler(cfg))
			r.Get("/seek", seekHandler(cfg))
			r.Post("/clips", insertClipHandler(cfg))
			r.Patch("/clips/{id}/move", moveClipHandler(cfg))
			r.Patch("/clips/{id}/trim", trimClipHandler(cfg))
			r.Patch("/clips/{id}/volume", volumeHandler(cfg))
			r.Post("/clips/{id}/split", splitClipHandler(cfg))
			r.Post("/clips/{id}/transitions", addTransitionHandler(cfg))
			r.Post("/clips/{id}/filters", addFilterHandler(cfg))
			r.Delete("/clips/{id}", deleteClipHandler(cfg))
			r.Post("/tracks", addTrackHandler(cfg))
			r.Put("/selection", selectionHandler(cfg))
			r.Post("/undo", undoHandler(cfg))
			r.Post("/redo", redoHandler(cfg))
			r.Post("/save", saveHandler(cfg))
		})

		r.Post("/media", uploadMediaHandler(cfg))
		r.Get("/media", listMediaHandler(cfg))

		r.Post("/exports", createExportHandler(cfg))
		r.Get("/exports", listExportsHandler(cfg))
		r.Get("/exports/{id}", getExportHandler(cfg))
		r.Post("/exports/{id}/cancel", cancelExportHandler(cfg))
		r.Get("/exports/{id}/events", exportEventsHandler(cfg))
		r.Get("/exports/{id}/output", exportOutputHandler(cfg))

		r.Get("/account/usage", usageHandler(cfg))
		r.Post("/account/subscription", subscribeHandler(cfg))
		r.Delete("/account/subscription/{id}", unsubscribeHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active := 0
		if cfg.Tracker != nil {
			active = cfg.Tracker.Active()
		}
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:        "ok",
			Version:       cfg.Version,
			UptimeS:       int64(time.Since(cfg.StartTime).Seconds()),
			ActiveExports: active,
		})
	}
}

func createProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateProjectRequest
		if !decodeBody(w, r, &req) {
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			WriteError(w, http.StatusBadRequest, "name is required", "BAD_REQUEST")
			return
		}
		aspect := project.Aspect16x9
		if req.AspectRatio != "" {
			var ok bool
			if aspect, ok = project.ParseAspectRatio(req.AspectRatio); !ok {
				WriteError(w, http.StatusBadRequest, "aspect_ratio must be 16:9, 9:16 or 1:1", project.CodeInvalidAspectRatio)
				return
			}
		}

		ctx := r.Context()
		user := userFrom(ctx)
		count, err := cfg.Repo.CountProjects(ctx, user.ID)
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		if err := cfg.Gate.Authorize(user, entitlement.ActionCreateProject, entitlement.Context{ProjectCount: count}); err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}

		// A failed save leaves the open session untouched.
		p := project.New(name, aspect)
		if err := cfg.Repo.SaveProject(ctx, user.ID, p); err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		if err := cfg.Session.Load(p); err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		cfg.Logger.Info("project created", "project_id", p.ID, "user_id", user.ID, "aspect_ratio", aspect)
		writeSession(w, http.StatusCreated, cfg)
	}
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFrom(r.Context())
		projects, err := cfg.Repo.ListProjects(r.Context(), user.ID)
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		if projects == nil {
			projects = []store.ProjectSummary{}
		}
		WriteJSON(w, http.StatusOK, ProjectsResponse{Projects: projects})
	}
}

func openProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		user := userFrom(r.Context())

		p, err := cfg.Repo.GetProject(r.Context(), user.ID, id)
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		if err := cfg.Session.Load(p); err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		writeSession(w, http.StatusOK, cfg)
	}
}

// withUsage returns the request user with StorageUsed raised to what the
// local media table accounts for.
func withUsage(ctx context.Context, cfg ServerConfig) (entitlement.User, error) {
	user := userFrom(ctx)
	used, err := cfg.Repo.StorageUsed(ctx, user.ID)
	if err != nil {
		return entitlement.User{}, err
	}
	user.StorageUsed = max(user.StorageUsed, used)
	return user, nil
}

func sessionResponse(cfg ServerConfig, st editor.State) SessionResponse {
	resp := SessionResponse{
		Project:   st.Project,
		Selected:  st.Selected,
		CanUndo:   st.UndoDepth > 0,
		CanRedo:   st.RedoDepth > 0,
		UndoDepth: st.UndoDepth,
		RedoDepth: st.RedoDepth,
		Duration:  st.Project.Duration(),
	}
	if width, err := timemodel.TimelineWidth(resp.Duration, cfg.PixelsPerSecond); err == nil {
		resp.TimelineWidth = width
	}
	return resp
}

func currentSession(cfg ServerConfig) (SessionResponse, bool) {
	st, ok := cfg.Session.State()
	if !ok {
		return SessionResponse{}, false
	}
	return sessionResponse(cfg, st), true
}

func writeSession(w http.ResponseWriter, status int, cfg ServerConfig) {
	resp, ok := currentSession(cfg)
	if !ok {
		writeDomainError(w, editor.ErrNoProject, cfg.Logger)
		return
	}
	WriteJSON(w, status, resp)
}

// decodeBody decodes a JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return false
	}
	return true
}
