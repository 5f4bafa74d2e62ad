// Package export writes a project's simplified timeline to interchange files:
// the native sequences JSON or a CMX3600 EDL.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/capgenie/capgenie/internal/draft"
	"github.com/capgenie/capgenie/internal/timeline"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatEDL  Format = "edl"

	DefaultFrameRate = 30
)

// ParseFormat accepts a format name, or infers one from an output file
// extension when name is empty.
func ParseFormat(name, outputPath string) (Format, error) {
	if name == "" {
		if strings.EqualFold(filepath.Ext(outputPath), ".edl") {
			return FormatEDL, nil
		}
		return FormatJSON, nil
	}
	switch f := Format(strings.ToLower(name)); f {
	case FormatJSON, FormatEDL:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unsupported export format %q", draft.ErrMalformedInput, name)
	}
}

type Options struct {
	Format    Format
	FrameRate float64
	Title     string
}

// Response is what the CLI prints and the HTTP API returns after an export.
type Response struct {
	Status     string                    `json:"status"`
	Format     Format                    `json:"format"`
	OutputPath string                    `json:"output_path"`
	ClipCount  int                       `json:"clip_count"`
	Skipped    []timeline.SkippedSegment `json:"skipped"`
}

// Write renders result in the requested format to path.
func Write(path string, result *timeline.ExportResult, opts Options) (*Response, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid output path: %v", draft.ErrUnwritable, err)
	}
	if err := ValidateOutputDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("%w: %v", draft.ErrUnwritable, err)
	}

	switch opts.Format {
	case FormatEDL:
		title := opts.Title
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		edl := GenerateEDL(result.Sequences, title, opts.FrameRate)
		if err := os.WriteFile(path, []byte(edl), 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w: %v", path, draft.ErrUnwritable, err)
		}
	case FormatJSON, "":
		if err := timeline.WriteSequences(path, result.Sequences); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unsupported export format %q", draft.ErrMalformedInput, opts.Format)
	}

	skipped := result.Skipped
	if skipped == nil {
		skipped = []timeline.SkippedSegment{}
	}
	format := opts.Format
	if format == "" {
		format = FormatJSON
	}
	return &Response{
		Status:     "ok",
		Format:     format,
		OutputPath: path,
		ClipCount:  len(result.Sequences),
		Skipped:    skipped,
	}, nil
}
