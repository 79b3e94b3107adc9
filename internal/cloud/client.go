// Package cloud defines the external collaborators the editing core talks
// to (storage, blobs, auth and the remote encoder) and an HTTP client for the
// hosted backend.
package cloud

import (
	"context"
	"io"
	"time"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/entitlement"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/export"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/project"
)

type StorageService interface {
	FetchProjects(ctx context.Context, userID string) ([]project.Project, error)
	SaveProject(ctx context.Context, userID string, p project.Project) error
	FetchMediaAssets(ctx context.Context, userID string) ([]project.MediaAsset, error)
}

// BlobUpload describes media bytes being uploaded.
type BlobUpload struct {
	OwnerID   string
	ProjectID string
	FileName  string
	MimeType  string
	Size      int64
	Duration  *float64
	Body      io.Reader
}

type BlobService interface {
	UploadBlob(ctx context.Context, up BlobUpload) (project.MediaAsset, error)
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
	DeleteBlob(ctx context.Context, path string) error
}

type AuthService interface {
	CurrentUser(ctx context.Context) (entitlement.User, error)
	PlanLimits(ctx context.Context, plan entitlement.Plan) (entitlement.PlanLimits, error)
	SubscriptionStatus(ctx context.Context, userID string) (entitlement.SubscriptionStatus, error)
}

// ExportHandle is an accepted export submission. Events is closed once the
// encoder has nothing more to report.
type ExportHandle struct {
	JobID  string
	Events <-chan export.Event
}

type EncoderService interface {
	SubmitExport(ctx context.Context, jobID string, p project.Project, settings export.Settings) (ExportHandle, error)
}

// FunctionInvoker calls a named backend function with a JSON body.
type FunctionInvoker interface {
	InvokeFunction(ctx context.Context, name string, body, out any) error
}

// Client bundles the hosted collaborators.
type Client interface {
	Auth() AuthService
	Blobs() BlobService
	Storage() StorageService
}
