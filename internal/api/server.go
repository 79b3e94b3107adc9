// Package api exposes the editing session, projects, media, exports and
// account over a local HTTP API.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/billing"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/cloud"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/editor"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/entitlement"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/export"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/playback"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/probe"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/project"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/store"
)

// Repository is the local persistence the handlers need.
// *store.SQLiteRepository implements it.
type Repository interface {
	SaveProject(ctx context.Context, userID string, p project.Project) error
	GetProject(ctx context.Context, userID, id string) (project.Project, error)
	ListProjects(ctx context.Context, userID string) ([]store.ProjectSummary, error)
	CountProjects(ctx context.Context, userID string) (int, error)

	SaveMediaAsset(ctx context.Context, a project.MediaAsset) error
	GetMediaAsset(ctx context.Context, id string) (project.MediaAsset, error)
	FetchMediaAssets(ctx context.Context, userID string) ([]project.MediaAsset, error)
	StorageUsed(ctx context.Context, userID string) (int64, error)

	ListExportJobs(ctx context.Context, projectID string, limit int) ([]*export.Job, error)

	GetConfig(ctx context.Context, key string) (string, error)
}

// MediaProber reads the duration of an uploaded local file.
// *probe.Prober implements it.
type MediaProber interface {
	Probe(ctx context.Context, path string) (probe.Result, error)
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port      int
	Session   *editor.Session
	Repo      Repository
	Auth      cloud.AuthService
	Blobs     cloud.BlobService
	Encoder   cloud.EncoderService
	Tracker   *export.Tracker
	Gate      *entitlement.Gate
	Billing   billing.Provider
	Playback  *playback.Server
	Prober    MediaProber
	Logger    *slog.Logger
	StartTime time.Time
	Version   string

	// Sync, when set, receives a copy of every saved project.
	Sync cloud.StorageService

	PixelsPerSecond float64
	AllowedOrigins  []string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
