package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/billing"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/cloud"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/db"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/editor"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/encoder"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/entitlement"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/export"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/playback"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/project"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/store"
)

const testToken = "test-token-0123456789"

type testEnv struct {
	t      *testing.T
	cfg    ServerConfig
	repo   *store.SQLiteRepository
	router http.Handler
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, user entitlement.User) *testEnv {
	t.Helper()
	dir := t.TempDir()

	database, err := db.New(filepath.Join(dir, "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := store.NewRepository(database.Conn())
	if err := repo.SetConfig(context.Background(), AuthTokenKey, testToken); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}

	blobs, err := store.NewFileBlobs(filepath.Join(dir, "media"))
	if err != nil {
		t.Fatalf("NewFileBlobs() error = %v", err)
	}
	exportDir := t.TempDir()

	logger := testLogger()
	tracker := export.NewTracker(repo, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		tracker.Shutdown(ctx)
	})

	provider, err := billing.NewProvider("paypal", billing.Options{Logger: logger})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	cfg := ServerConfig{
		Session: editor.NewSession(20, logger),
		Repo:    repo,
		Auth:    cloud.NewStubAuth(user, logger),
		Blobs:   blobs,
		Encoder: &encoder.Router{
			ByFormat: map[export.Format]cloud.EncoderService{
				export.FormatEDL: encoder.NewLocal(exportDir, repo, logger),
			},
			Default: encoder.NewSimulated(time.Millisecond, logger),
		},
		Tracker:         tracker,
		Gate:            entitlement.NewGate(nil),
		Billing:         provider,
		Playback:        playback.NewServer(exportDir, logger),
		Logger:          logger,
		StartTime:       time.Now(),
		Version:         "test",
		PixelsPerSecond: 50,
	}
	return &testEnv{t: t, cfg: cfg, repo: repo, router: NewRouter(cfg)}
}

func activeUser(plan entitlement.Plan) entitlement.User {
	return entitlement.User{ID: "user-1", Status: entitlement.StatusActive, Plan: plan}
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("json.Marshal error: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) addAsset(id string, kind project.AssetKind, duration *float64, size int64) {
	e.t.Helper()
	err := e.repo.SaveMediaAsset(context.Background(), project.MediaAsset{
		ID: id, UserID: "user-1", Kind: kind, FileName: id + ".mp4", FileSize: size,
		Path: "/media/" + id + ".mp4", Duration: duration, MimeType: "video/mp4",
	})
	if err != nil {
		e.t.Fatalf("SaveMediaAsset() error = %v", err)
	}
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func expectErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rr, status)
	var resp ErrorResponse
	decodeInto(t, rr, &resp)
	if resp.Code != code {
		t.Errorf("error code = %q, want %q (message %q)", resp.Code, code, resp.Error)
	}
}

func floatPtr(v float64) *float64 { return &v }
