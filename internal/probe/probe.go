// Package probe reads basic stream properties of media files by running
// ffprobe as a subprocess.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const (
	maxStderrBytes = 4 * 1024 // tail of ffprobe stderr kept for diagnostics

	DefaultTimeout = 10 * time.Second
)

// ErrNoVideoStream is returned by Dimensions for files without a video stream.
var ErrNoVideoStream = errors.New("no video stream")

// Prober inspects a media file.
type Prober interface {
	Probe(ctx context.Context, path string) (*Result, error)
}

// Result holds the properties the editor cares about.
type Result struct {
	Duration   float64
	Width      int
	Height     int
	Codec      string
	FrameRate  float64
	AudioCodec string
}

// HasVideo reports whether a video stream with known dimensions was found.
func (r *Result) HasVideo() bool {
	return r.Width > 0 && r.Height > 0
}

// Config holds the prober's configuration.
type Config struct {
	FFprobePath string        // path to ffprobe; empty = look up on PATH
	Timeout     time.Duration // per-file timeout
	Logger      *slog.Logger
}

// FFprobe is the production Prober.
type FFprobe struct {
	cfg    Config
	binary string
}

// New resolves the ffprobe binary and returns a prober.
func New(cfg Config) (*FFprobe, error) {
	binary, err := resolveBinary(cfg.FFprobePath)
	if err != nil {
		return nil, fmt.Errorf("cannot locate ffprobe: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	cfg.Logger.Debug("ffprobe resolved", "binary", binary)
	return &FFprobe{cfg: cfg, binary: binary}, nil
}

// Probe runs ffprobe on path.
func (f *FFprobe) Probe(ctx context.Context, path string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.binary,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = io.Writer(&limitedWriter{w: &stderr, limit: maxStderrBytes})

	start := time.Now()
	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		f.cfg.Logger.Warn("ffprobe failed",
			"path", path,
			"exit_code", exitCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"stderr_tail", truncate(stderr.String(), 512),
		)
		return nil, fmt.Errorf("ffprobe exited %d: %s", exitCode, truncate(strings.TrimSpace(stderr.String()), 512))
	}

	res, err := parseOutput(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	f.cfg.Logger.Debug("ffprobe complete",
		"path", path,
		"width", res.Width,
		"height", res.Height,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// Dimensions returns the pixel size of the first video stream.
func (f *FFprobe) Dimensions(ctx context.Context, path string) (int, int, error) {
	return dimensions(ctx, f, path)
}

func dimensions(ctx context.Context, p Prober, path string) (int, int, error) {
	res, err := p.Probe(ctx, path)
	if err != nil {
		return 0, 0, err
	}
	if !res.HasVideo() {
		return 0, 0, fmt.Errorf("%s: %w", path, ErrNoVideoStream)
	}
	return res.Width, res.Height, nil
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseOutput(data []byte) (*Result, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("cannot parse ffprobe JSON: %w", err)
	}

	res := &Result{Duration: parseFloat(out.Format.Duration)}
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if res.Codec != "" {
				continue
			}
			res.Codec = s.CodecName
			res.Width = s.Width
			res.Height = s.Height
			res.FrameRate = parseRate(s.AvgFrameRate)
			if res.Duration == 0 {
				res.Duration = parseFloat(s.Duration)
			}
		case "audio":
			if res.AudioCodec == "" {
				res.AudioCodec = s.CodecName
			}
			if res.Duration == 0 {
				res.Duration = parseFloat(s.Duration)
			}
		}
	}
	return res, nil
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseRate parses ffprobe rationals such as "30000/1001".
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return parseFloat(s)
	}
	d := parseFloat(den)
	if d == 0 {
		return 0
	}
	return parseFloat(num) / d
}

func resolveBinary(preferred string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("configured ffprobe %q not found", preferred)
	}
	p, err := exec.LookPath("ffprobe")
	if err != nil {
		return "", fmt.Errorf("no ffprobe binary found on PATH")
	}
	return p, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		lw.w.Reset()
		lw.w.Write(b[len(b)-lw.limit:])
	}
	return n, nil
}
