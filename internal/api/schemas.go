package api

import (
	"github.com/capgenie/capgenie/internal/journal"
	"github.com/capgenie/capgenie/internal/timeline"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type CreateProjectRequest struct {
	Dir       string `json:"dir"`
	Overwrite bool   `json:"overwrite,omitempty"`
}

// SyncProjectRequest carries either inline sequences or the path of a
// sequences file readable by the server.
type SyncProjectRequest struct {
	Dir       string              `json:"dir"`
	InputPath string              `json:"input_path,omitempty"`
	Sequences []timeline.Sequence `json:"sequences,omitempty"`
}

type ExportProjectRequest struct {
	Dir        string  `json:"dir"`
	OutputPath string  `json:"output_path"`
	Format     string  `json:"format,omitempty"`
	FrameRate  float64 `json:"frame_rate,omitempty"`
	Title      string  `json:"title,omitempty"`
}

type AppendSequenceRequest struct {
	Dir      string            `json:"dir"`
	Sequence timeline.Sequence `json:"sequence"`
}

type RunsResponse struct {
	Runs []*journal.Run `json:"runs"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
