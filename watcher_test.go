package wikiengine

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchDirReportsChanges(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pages")
	changed := make(chan string, 16)
	w, err := WatchDir(dir, quietLogger(), func(name string) {
		select {
		case changed <- name:
		default:
		}
	})
	if err != nil {
		t.Fatalf("WatchDir failed: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "welcome-visitors"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case name := <-changed:
		if filepath.Base(name) != "welcome-visitors" {
			t.Errorf("changed name = %q, want welcome-visitors", name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatcherCloseStopsGoroutine(t *testing.T) {
	w, err := WatchDir(t.TempDir(), quietLogger(), func(string) {})
	if err != nil {
		t.Fatalf("WatchDir failed: %v", err)
	}
	done := make(chan struct{})
	go func() {
		w.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
}
