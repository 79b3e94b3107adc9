package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/entitlement"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/export"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/project"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestHTTPClient_FetchProjects(t *testing.T) {
	var receivedAuth, requestID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users/u1/projects" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", r.Method)
		}
		receivedAuth = r.Header.Get("Authorization")
		requestID = r.Header.Get("X-Request-Id")

		json.NewEncoder(w).Encode(map[string]any{
			"projects": []project.Project{project.New("Remote", project.Aspect1x1)},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-token", testLogger())
	projects, err := client.FetchProjects(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(projects) != 1 || projects[0].Name != "Remote" {
		t.Errorf("projects = %+v", projects)
	}
	if receivedAuth != "Bearer test-token" {
		t.Errorf("auth = %q, want %q", receivedAuth, "Bearer test-token")
	}
	if requestID == "" {
		t.Error("expected X-Request-Id header")
	}
}

func TestHTTPClient_SaveProject(t *testing.T) {
	var body struct {
		UserID  string          `json:"user_id"`
		Project project.Project `json:"project"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || !strings.HasPrefix(r.URL.Path, "/api/projects/") {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "t", testLogger())
	p := project.New("Saved", project.Aspect16x9)
	if err := client.SaveProject(context.Background(), "u1", p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.UserID != "u1" || body.Project.ID != p.ID {
		t.Errorf("body = %+v", body)
	}
}

func TestHTTPClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		status    int
		want      error
		retryable bool
	}{
		{status: http.StatusNotFound, want: ErrNotFound},
		{status: http.StatusForbidden, want: ErrPermissionDenied},
		{status: http.StatusUnauthorized, want: ErrPermissionDenied},
		{status: http.StatusBadGateway, retryable: true},
	}

	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(`{"detail":"nope"}`))
			}))
			defer server.Close()

			client := NewHTTPClient(server.URL, "t", testLogger())
			_, err := client.FetchMediaAssets(context.Background(), "u1")

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %T (%v)", err, err)
			}
			if apiErr.StatusCode != tc.status || !strings.Contains(apiErr.Body, "nope") {
				t.Errorf("apiErr = %+v", apiErr)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Errorf("errors.Is(%v, %v) = false", err, tc.want)
			}
			if apiErr.IsRetryable() != tc.retryable {
				t.Errorf("IsRetryable() = %v, want %v", apiErr.IsRetryable(), tc.retryable)
			}
		})
	}
}

func TestHTTPClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewHTTPClient(url, "t", testLogger())
	_, err := client.CurrentUser(context.Background())
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("error = %v, want ErrNetwork", err)
	}
}

func TestHTTPClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(entitlement.User{ID: "u1"})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "t", testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.CurrentUser(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestHTTPClient_AuthEndpoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/me":
			json.NewEncoder(w).Encode(entitlement.User{ID: "u1", Status: entitlement.StatusTrial, Plan: entitlement.PlanPro})
		case "/api/plans/PRO":
			json.NewEncoder(w).Encode(entitlement.DefaultLimits(entitlement.PlanPro))
		case "/api/users/u1/subscription":
			json.NewEncoder(w).Encode(map[string]string{"status": "PAST_DUE"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "t", testLogger())
	ctx := context.Background()

	u, err := client.CurrentUser(ctx)
	if err != nil || u.ID != "u1" || u.Status != entitlement.StatusTrial {
		t.Fatalf("CurrentUser() = %+v, %v", u, err)
	}
	limits, err := client.PlanLimits(ctx, entitlement.PlanPro)
	if err != nil || limits.MaxProjects != entitlement.Unlimited {
		t.Fatalf("PlanLimits() = %+v, %v", limits, err)
	}
	status, err := client.SubscriptionStatus(ctx, "u1")
	if err != nil || status != entitlement.StatusPastDue {
		t.Fatalf("SubscriptionStatus() = %q, %v", status, err)
	}
}

func TestHTTPClient_BlobEndpoints(t *testing.T) {
	var uploadedType, uploadedOwner string
	var uploadedBytes int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/media":
			uploadedType = r.Header.Get("Content-Type")
			uploadedOwner = r.URL.Query().Get("owner")
			raw, _ := io.ReadAll(r.Body)
			uploadedBytes = len(raw)
			json.NewEncoder(w).Encode(project.MediaAsset{ID: "m1", Kind: project.AssetVideo, FileSize: int64(len(raw))})
		case r.Method == http.MethodPost && r.URL.Path == "/api/blobs/sign":
			json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example/m1?sig=abc"})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/blobs":
			if r.URL.Query().Get("path") != "media/m1" {
				t.Errorf("delete path = %q", r.URL.Query().Get("path"))
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "t", testLogger())
	ctx := context.Background()

	asset, err := client.UploadBlob(ctx, BlobUpload{
		OwnerID: "u1", FileName: "clip.mp4", MimeType: "video/mp4", Size: 5, Body: strings.NewReader("hello"),
	})
	if err != nil {
		t.Fatalf("UploadBlob() error = %v", err)
	}
	if asset.ID != "m1" || uploadedBytes != 5 || uploadedType != "video/mp4" || uploadedOwner != "u1" {
		t.Errorf("upload asset=%+v bytes=%d type=%q owner=%q", asset, uploadedBytes, uploadedType, uploadedOwner)
	}

	signed, err := client.SignedURL(ctx, "media/m1", time.Minute)
	if err != nil || !strings.Contains(signed, "sig=abc") {
		t.Fatalf("SignedURL() = %q, %v", signed, err)
	}
	if err := client.DeleteBlob(ctx, "media/m1"); err != nil {
		t.Fatalf("DeleteBlob() error = %v", err)
	}
}

func TestHTTPClient_InvokeFunction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/functions/v1/create-subscription" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"subscriptionId": "sub_1"})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "t", testLogger())
	var out struct {
		SubscriptionID string `json:"subscriptionId"`
	}
	if err := client.InvokeFunction(context.Background(), "create-subscription", map[string]string{"plan": "PRO"}, &out); err != nil {
		t.Fatalf("InvokeFunction() error = %v", err)
	}
	if out.SubscriptionID != "sub_1" {
		t.Errorf("subscription id = %q", out.SubscriptionID)
	}
}

func TestHTTPClient_SubmitExport(t *testing.T) {
	var polls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/exports":
			json.NewEncoder(w).Encode(remoteJob{ID: "remote-1", Status: export.StatusPending})
		case r.Method == http.MethodGet && r.URL.Path == "/api/exports/remote-1":
			switch polls.Add(1) {
			case 1:
				json.NewEncoder(w).Encode(remoteJob{ID: "remote-1", Status: export.StatusProcessing, Progress: 0.4})
			case 2:
				json.NewEncoder(w).Encode(remoteJob{ID: "remote-1", Status: export.StatusProcessing, Progress: 0.4})
			default:
				json.NewEncoder(w).Encode(remoteJob{ID: "remote-1", Status: export.StatusCompleted, OutputRef: "https://cdn.example/out.mp4"})
			}
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "t", testLogger())
	client.SetPollInterval(5 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	handle, err := client.SubmitExport(ctx, "job-1", project.New("P", project.Aspect16x9), export.Settings{Format: export.FormatMP4})
	if err != nil {
		t.Fatalf("SubmitExport() error = %v", err)
	}
	if handle.JobID != "remote-1" {
		t.Errorf("JobID = %q", handle.JobID)
	}

	var kinds []export.EventKind
	var last export.Event
	for ev := range handle.Events {
		kinds = append(kinds, ev.Kind)
		last = ev
	}
	want := []export.EventKind{export.EventAccepted, export.EventProgress, export.EventCompleted}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("events = %v, want %v", kinds, want)
		}
	}
	if last.OutputRef != "https://cdn.example/out.mp4" {
		t.Errorf("output ref = %q", last.OutputRef)
	}
}

func TestHTTPClient_ImplementsInterfaces(t *testing.T) {
	var _ Client = (*HTTPClient)(nil)
	var _ EncoderService = (*HTTPClient)(nil)
	var _ FunctionInvoker = (*HTTPClient)(nil)
}

func TestStubAuth(t *testing.T) {
	user := entitlement.User{ID: "local", Status: entitlement.StatusActive, Plan: entitlement.PlanBasic}
	stub := NewStubAuth(user, testLogger())
	var _ AuthService = stub

	got, err := stub.CurrentUser(context.Background())
	if err != nil || got.ID != "local" {
		t.Fatalf("CurrentUser() = %+v, %v", got, err)
	}
	if _, err := stub.SubscriptionStatus(context.Background(), "other"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SubscriptionStatus(other) error = %v, want ErrNotFound", err)
	}
	if err := stub.InvokeFunction(context.Background(), "create-subscription", nil, nil); !errors.Is(err, ErrOffline) {
		t.Errorf("InvokeFunction() error = %v, want ErrOffline", err)
	}
}
