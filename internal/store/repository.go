// Package store persists projects, media assets and export jobs in the
// local SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/export"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/project"
)

// ErrNotFound is returned when a project or media asset does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when writing a project owned by another user.
var ErrForbidden = errors.New("project belongs to another user")

// ProjectSummary is a project listing row.
type ProjectSummary struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	AspectRatio project.AspectRatio `json:"aspect_ratio"`
	Duration    float64             `json:"duration"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SaveProject inserts or replaces the stored snapshot of p.
func (r *SQLiteRepository) SaveProject(ctx context.Context, userID string, p project.Project) error {
	snapshot, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode project %s: %w", p.ID, err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (id, user_id, name, aspect_ratio, snapshot, duration, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			aspect_ratio = excluded.aspect_ratio,
			snapshot = excluded.snapshot,
			duration = excluded.duration,
			updated_at = excluded.updated_at
		WHERE projects.user_id = excluded.user_id
	`, p.ID, userID, p.Name, string(p.AspectRatio), string(snapshot), p.Duration(), now, now)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrForbidden
	}
	return nil
}

// GetProject loads a project owned by userID.
func (r *SQLiteRepository) GetProject(ctx context.Context, userID, id string) (project.Project, error) {
	var snapshot string
	err := r.db.QueryRowContext(ctx, "SELECT snapshot FROM projects WHERE id = ? AND user_id = ?", id, userID).Scan(&snapshot)
	if err == sql.ErrNoRows {
		return project.Project{}, ErrNotFound
	}
	if err != nil {
		return project.Project{}, err
	}
	return decodeProject(snapshot)
}

// FetchProjects returns every project owned by userID, most recently
// updated first.
func (r *SQLiteRepository) FetchProjects(ctx context.Context, userID string) ([]project.Project, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT snapshot FROM projects WHERE user_id = ? ORDER BY updated_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []project.Project
	for rows.Next() {
		var snapshot string
		if err := rows.Scan(&snapshot); err != nil {
			return nil, err
		}
		p, err := decodeProject(snapshot)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *SQLiteRepository) ListProjects(ctx context.Context, userID string) ([]ProjectSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, aspect_ratio, duration, created_at, updated_at
		FROM projects WHERE user_id = ? ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []ProjectSummary{}
	for rows.Next() {
		var s ProjectSummary
		var aspect, createdAt, updatedAt string
		if err := rows.Scan(&s.ID, &s.Name, &aspect, &s.Duration, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		s.AspectRatio = project.AspectRatio(aspect)
		s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		s.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *SQLiteRepository) CountProjects(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects WHERE user_id = ?", userID).Scan(&count)
	return count, err
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func decodeProject(snapshot string) (project.Project, error) {
	var p project.Project
	if err := json.Unmarshal([]byte(snapshot), &p); err != nil {
		return project.Project{}, fmt.Errorf("decode project snapshot: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) SaveMediaAsset(ctx context.Context, a project.MediaAsset) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO media_assets (id, user_id, project_id, kind, file_name, file_size, path, duration, mime_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			file_name = excluded.file_name,
			file_size = excluded.file_size,
			path = excluded.path,
			duration = excluded.duration,
			mime_type = excluded.mime_type
	`, a.ID, a.UserID, nullString(a.ProjectID), string(a.Kind), a.FileName, a.FileSize, a.Path,
		nullFloat(a.Duration), a.MimeType, a.CreatedAt.Format(time.RFC3339))
	return err
}

const assetColumns = "id, user_id, project_id, kind, file_name, file_size, path, duration, mime_type, created_at"

func (r *SQLiteRepository) GetMediaAsset(ctx context.Context, id string) (project.MediaAsset, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+assetColumns+" FROM media_assets WHERE id = ?", id)
	a, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return project.MediaAsset{}, ErrNotFound
	}
	return a, err
}

func (r *SQLiteRepository) FetchMediaAssets(ctx context.Context, userID string) ([]project.MediaAsset, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+assetColumns+" FROM media_assets WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssets(rows)
}

// LookupMediaAssets returns the assets among ids that exist, keyed by ID.
func (r *SQLiteRepository) LookupMediaAssets(ctx context.Context, ids []string) (map[string]project.MediaAsset, error) {
	out := make(map[string]project.MediaAsset, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := r.db.QueryContext(ctx, "SELECT "+assetColumns+" FROM media_assets WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assets, err := scanAssets(rows)
	if err != nil {
		return nil, err
	}
	for _, a := range assets {
		out[a.ID] = a
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteMediaAsset(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM media_assets WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// StorageUsed sums the sizes of a user's media assets.
func (r *SQLiteRepository) StorageUsed(ctx context.Context, userID string) (int64, error) {
	var used int64
	err := r.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(file_size), 0) FROM media_assets WHERE user_id = ?", userID).Scan(&used)
	return used, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(s scanner) (project.MediaAsset, error) {
	var a project.MediaAsset
	var projectID sql.NullString
	var duration sql.NullFloat64
	var kind, createdAt string
	if err := s.Scan(&a.ID, &a.UserID, &projectID, &kind, &a.FileName, &a.FileSize, &a.Path, &duration, &a.MimeType, &createdAt); err != nil {
		return project.MediaAsset{}, err
	}
	a.ProjectID = projectID.String
	a.Kind = project.AssetKind(kind)
	if duration.Valid {
		d := duration.Float64
		a.Duration = &d
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return a, nil
}

func scanAssets(rows *sql.Rows) ([]project.MediaAsset, error) {
	var assets []project.MediaAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (r *SQLiteRepository) CreateExportJob(ctx context.Context, j *export.Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO export_jobs (id, project_id, user_id, status, progress, resolution, quality, format, frame_rate,
			output_ref, error, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.ProjectID, j.UserID, string(j.Status), j.Progress, string(j.Settings.Resolution), string(j.Settings.Quality),
		string(j.Settings.Format), j.Settings.FrameRate, nullString(j.OutputRef), nullString(j.Error),
		j.CreatedAt.Format(time.RFC3339), nullTime(j.StartedAt), nullTime(j.CompletedAt))
	return err
}

func (r *SQLiteRepository) UpdateExportJob(ctx context.Context, j *export.Job) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE export_jobs
		SET status = ?, progress = ?, output_ref = ?, error = ?, started_at = ?, completed_at = ?
		WHERE id = ?
	`, string(j.Status), j.Progress, nullString(j.OutputRef), nullString(j.Error), nullTime(j.StartedAt), nullTime(j.CompletedAt), j.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("export job %s: %w", j.ID, ErrNotFound)
	}
	return nil
}

const jobColumns = `id, project_id, user_id, status, progress, resolution, quality, format, frame_rate,
	output_ref, error, created_at, started_at, completed_at`

// GetExportJob returns nil, nil when the job does not exist.
func (r *SQLiteRepository) GetExportJob(ctx context.Context, id string) (*export.Job, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM export_jobs WHERE id = ?", id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return j, err
}

func (r *SQLiteRepository) ListExportJobs(ctx context.Context, projectID string, limit int) ([]*export.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, "SELECT "+jobColumns+" FROM export_jobs WHERE project_id = ? ORDER BY created_at DESC LIMIT ?", projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*export.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func scanJob(s scanner) (*export.Job, error) {
	var j export.Job
	var status, resolution, quality, format, createdAt string
	var outputRef, errMsg, startedAt, completedAt sql.NullString
	err := s.Scan(&j.ID, &j.ProjectID, &j.UserID, &status, &j.Progress, &resolution, &quality, &format, &j.Settings.FrameRate,
		&outputRef, &errMsg, &createdAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	j.Status = export.Status(status)
	j.Settings.Resolution = export.Resolution(resolution)
	j.Settings.Quality = export.Quality(quality)
	j.Settings.Format = export.Format(format)
	j.OutputRef = outputRef.String
	j.Error = errMsg.String
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.StartedAt = parseNullTime(startedAt)
	j.CompletedAt = parseNullTime(completedAt)
	return &j, nil
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}
