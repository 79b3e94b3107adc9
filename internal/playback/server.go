// Package playback serves finished export outputs over HTTP with byte-range
// support so players can seek into them.
package playback

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrOutsideRoot is returned for paths that resolve outside the served
// directory.
var ErrOutsideRoot = errors.New("path outside export directory")

var extraTypes = map[string]string{
	".edl": "text/plain; charset=utf-8",
	".mov": "video/quicktime",
	".mp4": "video/mp4",
}

// Server streams files from a single export directory.
type Server struct {
	root   string
	logger *slog.Logger
}

func NewServer(root string, logger *slog.Logger) *Server {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Server{root: root, logger: logger}
}

// ServeOutput writes the file at path to w, honouring Range. downloadName,
// when set, becomes the attachment filename. A missing file yields 404 and
// a nil error; a path outside the root returns ErrOutsideRoot before
// anything is written.
func (s *Server) ServeOutput(w http.ResponseWriter, r *http.Request, path, downloadName string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}

	file, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "output not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("open output: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat output: %w", err)
	}
	size := stat.Size()

	h := w.Header()
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Type", contentType(full))
	if downloadName != "" {
		h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": downloadName}))
	}

	rng, partial, err := ParseRange(r.Header.Get("Range"), size)
	switch {
	case errors.Is(err, ErrUnsatisfiable):
		h.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	case err != nil:
		// Malformed headers are ignored and the whole file is sent.
		partial = false
	}

	if !partial {
		h.Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			s.copy(w, file, size)
		}
		return nil
	}

	if _, err := file.Seek(rng.Start, io.SeekStart); err != nil {
		return fmt.Errorf("seek output: %w", err)
	}
	h.Set("Content-Length", strconv.FormatInt(rng.Length(), 10))
	h.Set("Content-Range", rng.Header(size))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method != http.MethodHead {
		s.copy(w, file, rng.Length())
	}
	return nil
}

func (s *Server) copy(w io.Writer, r io.Reader, n int64) {
	if _, err := io.CopyN(w, r, n); err != nil && s.logger != nil {
		s.logger.Debug("output stream interrupted", "error", err)
	}
}

func (s *Server) resolve(path string) (string, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(s.root, full)
	}
	full = filepath.Clean(full)
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return full, nil
}

func contentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := extraTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
