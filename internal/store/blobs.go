package store

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/cloud"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/export"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/ids"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/project"
)

// FileBlobs stores media bytes under a local directory, one subdirectory
// per owner.
type FileBlobs struct {
	root string
}

func NewFileBlobs(root string) (*FileBlobs, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &FileBlobs{root: abs}, nil
}

func (b *FileBlobs) UploadBlob(ctx context.Context, up cloud.BlobUpload) (project.MediaAsset, error) {
	if up.OwnerID == "" || strings.ContainsAny(up.OwnerID, `/\`) || strings.Contains(up.OwnerID, "..") {
		return project.MediaAsset{}, fmt.Errorf("invalid owner id %q", up.OwnerID)
	}
	dir := filepath.Join(b.root, up.OwnerID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return project.MediaAsset{}, fmt.Errorf("create owner directory: %w", err)
	}

	id := ids.New()
	name := export.FileStem(up.FileName, 80)
	if name == "" {
		name = "media"
	}
	path := filepath.Join(dir, id+"-"+name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return project.MediaAsset{}, fmt.Errorf("create media file: %w", err)
	}
	var src io.Reader = up.Body
	if up.Size > 0 {
		src = io.LimitReader(up.Body, up.Size)
	}
	n, err := io.Copy(f, contextReader{ctx: ctx, r: src})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return project.MediaAsset{}, fmt.Errorf("write media file: %w", err)
	}

	return project.MediaAsset{
		ID:        id,
		UserID:    up.OwnerID,
		ProjectID: up.ProjectID,
		Kind:      project.AssetKindFromMime(up.MimeType),
		FileName:  up.FileName,
		FileSize:  n,
		Path:      path,
		Duration:  up.Duration,
		MimeType:  up.MimeType,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SignedURL returns a file URL. Local files need no signature, so ttl is
// ignored.
func (b *FileBlobs) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	full, err := b.resolve(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return "", cloud.ErrNotFound
		}
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(full)}).String(), nil
}

func (b *FileBlobs) DeleteBlob(ctx context.Context, path string) error {
	full, err := b.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return cloud.ErrNotFound
		}
		return err
	}
	return nil
}

// resolve maps path to a file inside root, rejecting anything outside it.
func (b *FileBlobs) resolve(path string) (string, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(b.root, path)
	}
	full = filepath.Clean(full)
	rel, err := filepath.Rel(b.root, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", cloud.ErrPermissionDenied
	}
	return full, nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
