// Package probe reads media metadata by running ffprobe as a subprocess.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const (
	maxStderrBytes = 8 * 1024 // tail of stderr kept for diagnostics
	maxStdoutBytes = 1 << 20
	defaultTimeout = 30 * time.Second
)

// ErrNoDuration is returned when ffprobe reports no usable duration.
var ErrNoDuration = errors.New("media has no duration")

// Result is the subset of ffprobe output the editor uses.
type Result struct {
	Duration   float64
	Width      int
	Height     int
	VideoCodec string
	AudioCodec string
	FrameRate  float64
}

type Config struct {
	FFprobePath string // empty = look up "ffprobe" on PATH
	Timeout     time.Duration
	Logger      *slog.Logger
}

// Prober runs ffprobe against local files.
type Prober struct {
	bin     string
	timeout time.Duration
	logger  *slog.Logger
}

// NewProber resolves the ffprobe binary. It fails if none can be found.
func NewProber(cfg Config) (*Prober, error) {
	name := cfg.FFprobePath
	if name == "" {
		name = "ffprobe"
	}
	bin, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("cannot locate ffprobe: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("media prober initialised", "ffprobe", bin)
	}
	return &Prober{bin: bin, timeout: timeout, logger: cfg.Logger}, nil
}

// Probe returns the metadata of the media file at path.
func (p *Prober) Probe(ctx context.Context, path string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, p.bin,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdout, limit: maxStdoutBytes}
	cmd.Stderr = &limitedWriter{w: &stderr, limit: maxStderrBytes}

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		p.warn("ffprobe failed",
			"exit_code", exitCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"stderr_tail", truncate(stderr.String(), 512),
		)
		return Result{}, fmt.Errorf("ffprobe exited %d: %s", exitCode, truncate(strings.TrimSpace(stderr.String()), 512))
	}

	res, err := parseOutput(stdout.Bytes())
	if err != nil {
		return Result{}, err
	}
	if p.logger != nil {
		p.logger.Debug("media probed", "duration_s", res.Duration, "width", res.Width, "height", res.Height,
			"elapsed_ms", time.Since(start).Milliseconds())
	}
	return res, nil
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		Duration     string `json:"duration"`
	} `json:"streams"`
}

func parseOutput(data []byte) (Result, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return Result{}, fmt.Errorf("cannot parse ffprobe JSON: %w", err)
	}

	var res Result
	res.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if res.VideoCodec != "" {
				continue
			}
			res.VideoCodec = s.CodecName
			res.Width, res.Height = s.Width, s.Height
			res.FrameRate = parseRate(s.AvgFrameRate)
		case "audio":
			if res.AudioCodec == "" {
				res.AudioCodec = s.CodecName
			}
		default:
			continue
		}
		if res.Duration <= 0 {
			res.Duration, _ = strconv.ParseFloat(s.Duration, 64)
		}
	}
	if res.Duration <= 0 {
		return res, ErrNoDuration
	}
	return res, nil
}

// parseRate converts an ffprobe rational such as "30000/1001".
func parseRate(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

func (p *Prober) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter keeps only the last limit bytes written to it.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		tail := make([]byte, lw.limit)
		copy(tail, b[len(b)-lw.limit:])
		lw.w.Reset()
		lw.w.Write(tail)
	}
	return n, nil
}
