package api

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/capgenie/capgenie/internal/projects"
)

func TestServer_StartAndShutdown(t *testing.T) {
	srv := NewServer(ServerConfig{
		Port:      0,
		Projects:  projects.NewService(projects.Config{}),
		Logger:    discardLogger(),
		StartTime: time.Now(),
		Version:   "test",
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		t.Fatalf("Start() error = %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not become ready")
	}

	addr := srv.Addr()
	if !strings.HasPrefix(addr, "127.0.0.1:") || strings.HasSuffix(addr, ":0") {
		t.Fatalf("Addr() = %q, want a bound loopback address", addr)
	}

	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := <-errCh; err != nil {
		t.Errorf("Start() returned %v after shutdown", err)
	}
}
