package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/cloud"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/entitlement"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/export"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/project"
)

// blockingEncoder accepts a job and then waits for cancellation.
type blockingEncoder struct{}

func (blockingEncoder) SubmitExport(ctx context.Context, jobID string, p project.Project, settings export.Settings) (cloud.ExportHandle, error) {
	events := make(chan export.Event, 1)
	events <- export.Event{Kind: export.EventAccepted}
	go func() {
		<-ctx.Done()
		close(events)
	}()
	return cloud.ExportHandle{JobID: jobID, Events: events}, nil
}

func exportReadyEnv(t *testing.T, plan entitlement.Plan) *testEnv {
	t.Helper()
	env := newTestEnv(t, activeUser(plan))
	env.addAsset("vid", project.AssetVideo, floatPtr(8), 100)
	createProject(t, env, "Trip")
	if insertClip(t, env, InsertClipRequest{MediaAssetID: "vid"}) == nil {
		t.Fatal("insert failed")
	}
	return env
}

func startExport(t *testing.T, env *testEnv, req CreateExportRequest) ExportJobResponse {
	t.Helper()
	rr := env.do(http.MethodPost, "/exports", req)
	expectStatus(t, rr, http.StatusAccepted)
	var job ExportJobResponse
	decodeInto(t, rr, &job)
	return job
}

func waitJob(t *testing.T, env *testEnv, id string) *export.Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := env.cfg.Tracker.Wait(ctx, id)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	return job
}

func TestCreateExport_EDLRoundTrip(t *testing.T) {
	env := exportReadyEnv(t, entitlement.PlanBasic)

	accepted := startExport(t, env, CreateExportRequest{Format: "EDL"})
	if accepted.Status != export.StatusPending || accepted.Settings.Resolution != export.Resolution1080p {
		t.Errorf("accepted job = %+v", accepted)
	}

	job := waitJob(t, env, accepted.ID)
	if job.Status != export.StatusCompleted || job.Progress != 1 {
		t.Fatalf("job = %+v", job)
	}

	rr := env.do(http.MethodGet, "/exports/"+accepted.ID, nil)
	expectStatus(t, rr, http.StatusOK)
	var got ExportJobResponse
	decodeInto(t, rr, &got)
	if got.Status != export.StatusCompleted || got.CompletedAt == "" {
		t.Errorf("stored job = %+v", got)
	}

	rr = env.do(http.MethodGet, "/exports/"+accepted.ID+"/output", nil)
	expectStatus(t, rr, http.StatusOK)
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.HasPrefix(rr.Body.String(), "TITLE: Trip") {
		t.Errorf("output = %q", rr.Body.String())
	}

	rr = env.do(http.MethodGet, "/exports", nil)
	var list ExportJobsResponse
	decodeInto(t, rr, &list)
	if len(list.Jobs) != 1 || list.Jobs[0].ID != accepted.ID {
		t.Errorf("jobs = %+v", list.Jobs)
	}
}

func TestCreateExport_SimulatedOutputNotDownloadable(t *testing.T) {
	env := exportReadyEnv(t, entitlement.PlanBasic)
	accepted := startExport(t, env, CreateExportRequest{Resolution: "720p"})

	job := waitJob(t, env, accepted.ID)
	if job.Status != export.StatusCompleted || !strings.HasPrefix(job.OutputRef, "simulated://") {
		t.Fatalf("job = %+v", job)
	}
	rr := env.do(http.MethodGet, "/exports/"+accepted.ID+"/output", nil)
	expectErrorCode(t, rr, http.StatusNotFound, "OUTPUT_UNAVAILABLE")
}

func TestCreateExport_Rejections(t *testing.T) {
	t.Run("no project", func(t *testing.T) {
		env := newTestEnv(t, activeUser(entitlement.PlanBasic))
		expectErrorCode(t, env.do(http.MethodPost, "/exports", CreateExportRequest{}), http.StatusConflict, "NO_PROJECT")
	})
	t.Run("empty project", func(t *testing.T) {
		env := newTestEnv(t, activeUser(entitlement.PlanBasic))
		createProject(t, env, "empty")
		expectErrorCode(t, env.do(http.MethodPost, "/exports", CreateExportRequest{}), http.StatusUnprocessableEntity, "EMPTY_PROJECT")
	})
	t.Run("basic plan 4K", func(t *testing.T) {
		env := exportReadyEnv(t, entitlement.PlanBasic)
		rr := env.do(http.MethodPost, "/exports", CreateExportRequest{Resolution: "4k"})
		expectErrorCode(t, rr, http.StatusForbidden, entitlement.CodeResolutionExceeded)
	})
	t.Run("unknown resolution", func(t *testing.T) {
		env := exportReadyEnv(t, entitlement.PlanPro)
		rr := env.do(http.MethodPost, "/exports", CreateExportRequest{Resolution: "8K"})
		expectErrorCode(t, rr, http.StatusBadRequest, export.CodeInvalidSettings)
	})
	t.Run("bad quality", func(t *testing.T) {
		env := exportReadyEnv(t, entitlement.PlanPro)
		rr := env.do(http.MethodPost, "/exports", CreateExportRequest{Quality: "ultra"})
		expectErrorCode(t, rr, http.StatusBadRequest, export.CodeInvalidSettings)
	})
}

func TestCreateExport_ProAllows4K(t *testing.T) {
	env := exportReadyEnv(t, entitlement.PlanPro)
	job := startExport(t, env, CreateExportRequest{Resolution: "4K", Format: "mov"})
	if job.Settings.Resolution != export.Resolution4K || job.Settings.Format != export.FormatMOV {
		t.Errorf("settings = %+v", job.Settings)
	}
}

func TestCancelExport(t *testing.T) {
	env := exportReadyEnv(t, entitlement.PlanBasic)
	env.cfg.Encoder = blockingEncoder{}
	env.router = NewRouter(env.cfg)

	accepted := startExport(t, env, CreateExportRequest{})

	rr := env.do(http.MethodGet, "/exports/"+accepted.ID+"/output", nil)
	expectErrorCode(t, rr, http.StatusConflict, "NOT_READY")

	rr = env.do(http.MethodPost, "/exports/"+accepted.ID+"/cancel", nil)
	expectStatus(t, rr, http.StatusOK)
	var cancelled ExportJobResponse
	decodeInto(t, rr, &cancelled)
	if cancelled.Status != export.StatusFailed || cancelled.Error != export.CancelledDetail {
		t.Errorf("cancelled = %+v", cancelled)
	}

	waitJob(t, env, accepted.ID)
	rr = env.do(http.MethodPost, "/exports/"+accepted.ID+"/cancel", nil)
	expectErrorCode(t, rr, http.StatusConflict, export.CodeInvalidTransition)
}

func TestExport_OtherUsersJobHidden(t *testing.T) {
	env := exportReadyEnv(t, entitlement.PlanBasic)
	accepted := startExport(t, env, CreateExportRequest{Format: "edl"})
	waitJob(t, env, accepted.ID)

	other := newTestEnv(t, entitlement.User{ID: "user-2", Status: entitlement.StatusActive})
	other.cfg.Tracker = env.cfg.Tracker
	other.router = NewRouter(other.cfg)

	expectErrorCode(t, other.do(http.MethodGet, "/exports/"+accepted.ID, nil), http.StatusNotFound, "NOT_FOUND")
	expectErrorCode(t, other.do(http.MethodGet, "/exports/missing", nil), http.StatusNotFound, "NOT_FOUND")
}

func TestExportEvents_StreamsUntilDone(t *testing.T) {
	env := exportReadyEnv(t, entitlement.PlanBasic)
	accepted := startExport(t, env, CreateExportRequest{Format: "edl"})
	waitJob(t, env, accepted.ID)

	rr := env.do(http.MethodGet, "/exports/"+accepted.ID+"/events", nil)
	expectStatus(t, rr, http.StatusOK)
	if ct := rr.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("Content-Type = %q", ct)
	}

	var last ExportJobResponse
	lines := 0
	sc := bufio.NewScanner(rr.Body)
	for sc.Scan() {
		if err := json.Unmarshal(sc.Bytes(), &last); err != nil {
			t.Fatalf("bad event line %q: %v", sc.Text(), err)
		}
		lines++
	}
	if lines == 0 || last.Status != export.StatusCompleted {
		t.Errorf("got %d lines, last = %+v", lines, last)
	}
}
