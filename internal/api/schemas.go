package api

import (
	"time"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/billing"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/export"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/project"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/store"
)

type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeS       int64  `json:"uptime_s"`
	ActiveExports int    `json:"active_exports"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type CreateProjectRequest struct {
	Name        string `json:"name"`
	AspectRatio string `json:"aspect_ratio"`
}

type ProjectsResponse struct {
	Projects []store.ProjectSummary `json:"projects"`
}

type SessionResponse struct {
	Project       project.Project `json:"project"`
	Selected      string          `json:"selected_clip_id"`
	CanUndo       bool            `json:"can_undo"`
	CanRedo       bool            `json:"can_redo"`
	UndoDepth     int             `json:"undo_depth"`
	RedoDepth     int             `json:"redo_depth"`
	Duration      float64         `json:"duration"`
	TimelineWidth float64         `json:"timeline_width_px"`
}

type InsertClipRequest struct {
	TrackIndex   int      `json:"track_index"`
	MediaAssetID string   `json:"media_asset_id"`
	StartTime    float64  `json:"start_time"`
	Duration     *float64 `json:"duration,omitempty"`
	TrimStart    float64  `json:"trim_start"`
}

type ClipResponse struct {
	Clip    project.Clip    `json:"clip"`
	Session SessionResponse `json:"session"`
}

type MoveClipRequest struct {
	StartTime *float64 `json:"start_time"`
}

type TrimClipRequest struct {
	TrimStart float64 `json:"trim_start"`
	TrimEnd   float64 `json:"trim_end"`
}

type SplitClipRequest struct {
	At float64 `json:"at"`
}

type SplitClipResponse struct {
	Left    project.Clip    `json:"left"`
	Right   project.Clip    `json:"right"`
	Session SessionResponse `json:"session"`
}

type VolumeRequest struct {
	Volume *float64 `json:"volume"`
}

type SelectionRequest struct {
	ClipID string `json:"clip_id"`
}

type HistoryResponse struct {
	Changed bool            `json:"changed"`
	Session SessionResponse `json:"session"`
}

type SaveResponse struct {
	ProjectID string `json:"project_id"`
	Synced    bool   `json:"synced"`
	SyncError string `json:"sync_error,omitempty"`
}

type MediaResponse struct {
	Asset project.MediaAsset `json:"asset"`
}

type MediaListResponse struct {
	Assets []project.MediaAsset `json:"assets"`
}

type CreateExportRequest struct {
	Resolution string  `json:"resolution,omitempty"`
	Quality    string  `json:"quality,omitempty"`
	Format     string  `json:"format,omitempty"`
	FrameRate  float64 `json:"frame_rate,omitempty"`
}

type ExportJobResponse struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"project_id"`
	Status      export.Status   `json:"status"`
	Progress    float64         `json:"progress"`
	Settings    export.Settings `json:"settings"`
	OutputRef   string          `json:"output_ref,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   string          `json:"created_at"`
	StartedAt   string          `json:"started_at,omitempty"`
	CompletedAt string          `json:"completed_at,omitempty"`
}

type ExportJobsResponse struct {
	Jobs []ExportJobResponse `json:"jobs"`
}

type UsageResponse struct {
	UserID             string  `json:"user_id"`
	Plan               string  `json:"plan"`
	Status             string  `json:"subscription_status"`
	StorageUsed        int64   `json:"storage_used"`
	StorageUsedHuman   string  `json:"storage_used_human"`
	StorageLimit       int64   `json:"storage_limit"`
	StorageLimitHuman  string  `json:"storage_limit_human"`
	StoragePercent     float64 `json:"storage_percent"`
	ProjectCount       int     `json:"project_count"`
	MaxProjects        int     `json:"max_projects"`
	MaxResolution      string  `json:"max_resolution"`
	TrialDaysRemaining int     `json:"trial_days_remaining"`
	Watermark          bool    `json:"watermark"`
	Collaboration      bool    `json:"collaboration"`
	ARFilters          bool    `json:"ar_filters"`
}

type SubscribeRequest struct {
	Plan string `json:"plan"`
}

type SubscribeResponse struct {
	billing.Checkout
	Price billing.Price `json:"price"`
}

func JobToResponse(j *export.Job) ExportJobResponse {
	resp := ExportJobResponse{
		ID:        j.ID,
		ProjectID: j.ProjectID,
		Status:    j.Status,
		Progress:  j.Progress,
		Settings:  j.Settings,
		OutputRef: j.OutputRef,
		Error:     j.Error,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
	}
	if j.StartedAt != nil {
		resp.StartedAt = j.StartedAt.Format(time.RFC3339)
	}
	if j.CompletedAt != nil {
		resp.CompletedAt = j.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

type TrackRequest struct {
	Kind string `json:"kind,omitempty"`
}

type TransitionRequest struct {
	Type     string  `json:"type"`
	Duration float64 `json:"duration"`
	Position string  `json:"position"`
}

type FilterRequest struct {
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Intensity  float64        `json:"intensity"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type SeekResponse struct {
	Time    float64        `json:"time"`
	Clamped bool           `json:"clamped"`
	Clips   []PlayheadClip `json:"clips"`
}

type PlayheadClip struct {
	TrackIndex int          `json:"track_index"`
	Clip       project.Clip `json:"clip"`
}
