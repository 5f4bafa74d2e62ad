package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorded struct {
	path  string
	event EventType
}

func startWatcher(t *testing.T, path string) (*FSWatcher, <-chan recorded) {
	t.Helper()
	w, err := New(50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { w.Stop() })

	ch := make(chan recorded, 10)
	w.OnChange(func(path string, event EventType) { ch <- recorded{path, event} })
	if err := w.Watch(context.Background(), path); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	return w, ch
}

func waitEvent(t *testing.T, ch <-chan recorded) recorded {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change callback")
		return recorded{}
	}
}

func TestFSWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "seq.json")
	if err := os.WriteFile(target, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, ch := startWatcher(t, target)

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(target, []byte(`{"sequences":[]}`), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	ev := waitEvent(t, ch)
	if ev.path != target {
		t.Errorf("callback path = %s, want %s", ev.path, target)
	}
	select {
	case extra := <-ch:
		t.Errorf("expected a single debounced callback, got extra %+v", extra)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestFSWatcher_IgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "seq.json")
	_, ch := startWatcher(t, target)

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case ev := <-ch:
		t.Fatalf("unexpected callback for sibling file: %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}

	if err := os.WriteFile(target, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if ev := waitEvent(t, ch); ev.event != EventCreate && ev.event != EventModify {
		t.Errorf("event = %s, want create or modify", ev.event)
	}
}

func TestFSWatcher_ReportsDelete(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "seq.json")
	if err := os.WriteFile(target, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, ch := startWatcher(t, target)

	if err := os.Remove(target); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ev := waitEvent(t, ch); ev.event != EventDelete {
		t.Errorf("event = %s, want delete", ev.event)
	}
}

func TestFSWatcher_StopIsIdempotent(t *testing.T) {
	w, err := New(0, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if w.debounce != DefaultDebounce {
		t.Errorf("debounce = %v, want default", w.debounce)
	}
	if err := w.Watch(context.Background(), filepath.Join(t.TempDir(), "x.json")); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Stop(); err != nil {
				t.Errorf("Stop() error = %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestFSWatcher_RestartsAfterContextEnds(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "seq.json")
	if err := os.WriteFile(target, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	w, err := New(50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { w.Stop() })
	ch := make(chan recorded, 10)
	w.OnChange(func(path string, event EventType) { ch <- recorded{path, event} })

	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Watch(ctx, target); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	cancel()
	deadline := time.Now().Add(3 * time.Second)
	for {
		w.mu.Lock()
		running := w.running
		w.mu.Unlock()
		if !running {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("event loop did not exit after context cancel")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := w.Watch(context.Background(), target); err != nil {
		t.Fatalf("second Watch() error = %v", err)
	}
	if err := os.WriteFile(target, []byte(`{"sequences":[]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if ev := waitEvent(t, ch); ev.path != target {
		t.Errorf("callback path = %s, want %s", ev.path, target)
	}
}

func TestFSWatcher_WatchAfterStop(t *testing.T) {
	w, err := New(0, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := w.Watch(context.Background(), filepath.Join(t.TempDir(), "x.json")); err == nil {
		t.Fatal("Watch() after Stop should fail")
	}
}

func TestEventType_String(t *testing.T) {
	tests := map[EventType]string{
		EventCreate:   "create",
		EventModify:   "modify",
		EventDelete:   "delete",
		EventType(42): "unknown",
	}
	for ev, want := range tests {
		if got := ev.String(); got != want {
			t.Errorf("EventType(%d).String() = %q, want %q", ev, got, want)
		}
	}
}

var _ Watcher = (*FSWatcher)(nil)
