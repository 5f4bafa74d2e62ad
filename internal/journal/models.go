package journal

import (
	"time"

	"github.com/google/uuid"
)

const (
	RunKindCreate = "create"
	RunKindSync   = "sync"
	RunKindExport = "export"
	RunKindAppend = "append"

	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

type Project struct {
	ID        string    `json:"id"`
	Dir       string    `json:"dir"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Run struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Status     string    `json:"status"`
	ProjectDir string    `json:"project_dir"`
	InputPath  string    `json:"input_path,omitempty"`
	Tracks     int       `json:"tracks"`
	Segments   int       `json:"segments"`
	Skipped    int       `json:"skipped"`
	DurationUS int64     `json:"duration_us"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Stats are the counters recorded when a run finishes.
type Stats struct {
	Tracks     int
	Segments   int
	Skipped    int
	DurationUS int64
}

func NewID() string {
	return uuid.NewString()
}

// Timestamps are stored as fixed-width UTC strings so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

var now = func() time.Time { return time.Now().UTC() }

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
