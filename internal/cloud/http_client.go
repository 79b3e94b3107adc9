package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/entitlement"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/export"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/ids"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/project"
)

const (
	maxErrorBody    = 4096
	maxResponseBody = 4 << 20
)

// HTTPClient talks to the hosted backend over its REST API. It implements
// every collaborator interface in this package.
type HTTPClient struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	logger       *slog.Logger
	pollInterval time.Duration
}

func NewHTTPClient(baseURL, token string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger:       logger,
		pollInterval: 2 * time.Second,
	}
}

// SetPollInterval changes how often remote export status is polled.
func (c *HTTPClient) SetPollInterval(d time.Duration) {
	if d > 0 {
		c.pollInterval = d
	}
}

func (c *HTTPClient) Auth() AuthService       { return c }
func (c *HTTPClient) Blobs() BlobService      { return c }
func (c *HTTPClient) Storage() StorageService { return c }

// do sends a JSON request and decodes a JSON response into out when out is
// non-nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *HTTPClient) send(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("X-Request-Id", ids.New())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &networkError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if c.logger != nil {
			c.logger.Warn("cloud request failed",
				"method", req.Method,
				"path", req.URL.Path,
				"status", resp.StatusCode,
			)
		}
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		return nil
	}
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &networkError{err: err}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal %s response: %w", req.URL.Path, err)
	}
	return nil
}

func (c *HTTPClient) FetchProjects(ctx context.Context, userID string) ([]project.Project, error) {
	var wrapper struct {
		Projects []project.Project `json:"projects"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/projects", nil, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Projects, nil
}

func (c *HTTPClient) SaveProject(ctx context.Context, userID string, p project.Project) error {
	body := struct {
		UserID  string          `json:"user_id"`
		Project project.Project `json:"project"`
	}{UserID: userID, Project: p}
	return c.do(ctx, http.MethodPut, "/api/projects/"+url.PathEscape(p.ID), body, nil)
}

func (c *HTTPClient) FetchMediaAssets(ctx context.Context, userID string) ([]project.MediaAsset, error) {
	var wrapper struct {
		Assets []project.MediaAsset `json:"assets"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/media", nil, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Assets, nil
}

func (c *HTTPClient) UploadBlob(ctx context.Context, up BlobUpload) (project.MediaAsset, error) {
	q := url.Values{}
	q.Set("owner", up.OwnerID)
	q.Set("name", up.FileName)
	if up.ProjectID != "" {
		q.Set("project", up.ProjectID)
	}
	if up.Duration != nil {
		q.Set("duration", strconv.FormatFloat(*up.Duration, 'f', -1, 64))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/media?"+q.Encode(), up.Body)
	if err != nil {
		return project.MediaAsset{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", up.MimeType)
	if up.Size > 0 {
		req.ContentLength = up.Size
	}

	if c.logger != nil {
		c.logger.Info("uploading media to cloud", "owner", up.OwnerID, "file", up.FileName, "bytes", up.Size)
	}

	var asset project.MediaAsset
	if err := c.send(req, &asset); err != nil {
		return project.MediaAsset{}, err
	}
	return asset, nil
}

func (c *HTTPClient) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	body := map[string]any{"path": path, "ttl_seconds": int(ttl.Seconds())}
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/blobs/sign", body, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (c *HTTPClient) DeleteBlob(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, "/api/blobs?path="+url.QueryEscape(path), nil, nil)
}

func (c *HTTPClient) CurrentUser(ctx context.Context) (entitlement.User, error) {
	var u entitlement.User
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &u); err != nil {
		return entitlement.User{}, err
	}
	return u, nil
}

func (c *HTTPClient) PlanLimits(ctx context.Context, plan entitlement.Plan) (entitlement.PlanLimits, error) {
	var limits entitlement.PlanLimits
	if err := c.do(ctx, http.MethodGet, "/api/plans/"+url.PathEscape(string(plan)), nil, &limits); err != nil {
		return entitlement.PlanLimits{}, err
	}
	return limits, nil
}

func (c *HTTPClient) SubscriptionStatus(ctx context.Context, userID string) (entitlement.SubscriptionStatus, error) {
	var resp struct {
		Status entitlement.SubscriptionStatus `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/subscription", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// InvokeFunction posts body to a named backend function.
func (c *HTTPClient) InvokeFunction(ctx context.Context, name string, body, out any) error {
	return c.do(ctx, http.MethodPost, "/functions/v1/"+url.PathEscape(name), body, out)
}

// remoteJob is the backend's view of an export.
type remoteJob struct {
	ID        string        `json:"id"`
	Status    export.Status `json:"status"`
	Progress  float64       `json:"progress"`
	OutputRef string        `json:"output_ref"`
	Error     string        `json:"error"`
}

// SubmitExport queues a render on the backend and polls its status,
// translating each change into an export event.
func (c *HTTPClient) SubmitExport(ctx context.Context, jobID string, p project.Project, settings export.Settings) (ExportHandle, error) {
	body := struct {
		JobID    string          `json:"job_id"`
		Project  project.Project `json:"project"`
		Settings export.Settings `json:"settings"`
	}{JobID: jobID, Project: p, Settings: settings}

	var accepted remoteJob
	if err := c.do(ctx, http.MethodPost, "/api/exports", body, &accepted); err != nil {
		return ExportHandle{}, err
	}
	if accepted.ID == "" {
		accepted.ID = jobID
	}

	events := make(chan export.Event, 4)
	go c.pollExport(ctx, accepted.ID, events)
	return ExportHandle{JobID: accepted.ID, Events: events}, nil
}

func (c *HTTPClient) pollExport(ctx context.Context, remoteID string, events chan<- export.Event) {
	defer close(events)

	send := func(ev export.Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	if !send(export.Event{Kind: export.EventAccepted}) {
		return
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	last := -1.0
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var job remoteJob
		if err := c.do(ctx, http.MethodGet, "/api/exports/"+url.PathEscape(remoteID), nil, &job); err != nil {
			failures++
			if c.logger != nil {
				c.logger.Warn("export status poll failed", "remote_id", remoteID, "attempt", failures, "error", err)
			}
			if failures >= 5 {
				send(export.Event{Kind: export.EventFailed, Error: fmt.Sprintf("lost contact with encoder: %v", err)})
				return
			}
			continue
		}
		failures = 0

		switch job.Status {
		case export.StatusCompleted:
			send(export.Event{Kind: export.EventCompleted, OutputRef: job.OutputRef})
			return
		case export.StatusFailed:
			send(export.Event{Kind: export.EventFailed, Error: job.Error})
			return
		case export.StatusProcessing:
			if job.Progress > last {
				last = job.Progress
				if !send(export.Event{Kind: export.EventProgress, Progress: job.Progress}) {
					return
				}
			}
		}
	}
}
