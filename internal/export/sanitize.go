package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// ErrBadExportDir is wrapped by every CheckExportDir failure.
var ErrBadExportDir = errors.New("unusable export directory")

// nameEdge is trimmed from both ends of a cleaned name.
const nameEdge = " ._-"

// CleanName makes s safe to show in an EDL or use inside a file name.
// Whitespace runs fold to one space, other control characters vanish, and
// each run of characters outside the name alphabet becomes a single '_'.
// The result is cut to maxRunes runes (0 means no limit) and trimmed of
// separators at either end, so a cut never leaves a dangling "_" or ".".
func CleanName(s string, maxRunes int) string {
	out := make([]rune, 0, len(s))
	push := func(r rune) {
		if (r == ' ' || r == '_') && len(out) > 0 && out[len(out)-1] == r {
			return
		}
		out = append(out, r)
	}
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			push(' ')
		case unicode.IsControl(r):
		case nameRune(r):
			out = append(out, r)
		default:
			push('_')
		}
	}

	name := strings.Trim(string(out), nameEdge)
	if maxRunes > 0 {
		if rs := []rune(name); len(rs) > maxRunes {
			name = strings.Trim(string(rs[:maxRunes]), nameEdge)
		}
	}
	return name
}

// FileStem is CleanName with spaces turned into underscores.
func FileStem(s string, maxRunes int) string {
	stem := strings.ReplaceAll(CleanName(s, maxRunes), " ", "_")
	for strings.Contains(stem, "__") {
		stem = strings.ReplaceAll(stem, "__", "_")
	}
	return stem
}

func nameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	return strings.ContainsRune("-_.,()", r)
}

// CheckExportDir reports whether dir can receive export output: an
// existing directory named by a clean path with no ".." element.
func CheckExportDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("%w: no directory configured", ErrBadExportDir)
	}
	for _, elem := range strings.Split(filepath.ToSlash(dir), "/") {
		if elem == ".." {
			return fmt.Errorf("%w: %q climbs out with ..", ErrBadExportDir, dir)
		}
	}
	if clean := filepath.Clean(dir); clean != dir {
		return fmt.Errorf("%w: %q should be written %q", ErrBadExportDir, dir, clean)
	}

	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %q is missing", ErrBadExportDir, dir)
	case err != nil:
		return fmt.Errorf("%w: %v", ErrBadExportDir, err)
	case !info.IsDir():
		return fmt.Errorf("%w: %q is a file", ErrBadExportDir, dir)
	}
	return nil
}

// OutputPath returns the file a job's output is written to inside dir:
// <project stem>-<first 8 of job id>.<format>.
func OutputPath(dir, projectName, jobID string, format Format) (string, error) {
	if err := CheckExportDir(dir); err != nil {
		return "", err
	}
	stem := FileStem(projectName, 60)
	if stem == "" {
		stem = "export"
	}
	if len(jobID) > 8 {
		jobID = jobID[:8]
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s.%s", stem, jobID, format)), nil
}
