package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadBothDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ScenariosFile, `{"scenarios": {"1": {
		"companyName": "Fern & Field",
		"conversation": [{"role": "customer", "content": "hi"}]
	}}}`)
	writeFile(t, dir, TemplatesFile, `{"templates": [
		{"name": "Greeting", "content": "Hi {{name}}, thanks for reaching out!"}
	]}`)

	c := New(dir, zap.NewNop())
	if err := c.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	snap := c.Snapshot()
	if len(snap.Scenarios) != 1 {
		t.Fatalf("expected 1 scenario, got %d", len(snap.Scenarios))
	}
	if len(snap.Templates) != 1 || snap.Templates[0].Name != "Greeting" {
		t.Fatalf("unexpected templates: %v", snap.Templates)
	}
	if len(snap.Keys) != 1 || snap.Keys[0] != "1" {
		t.Fatalf("unexpected keys: %v", snap.Keys)
	}
}

func TestMissingFilesYieldEmptySnapshot(t *testing.T) {
	c := New(t.TempDir(), zap.NewNop())
	if err := c.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	snap := c.Snapshot()
	if len(snap.Scenarios) != 0 || len(snap.Templates) != 0 {
		t.Fatalf("expected empty snapshot, got %v", snap)
	}
}

func TestMalformedTemplatesKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, TemplatesFile, `{"templates": [{"name": "Greeting", "content": "hi"}]}`)

	c := New(dir, zap.NewNop())
	if err := c.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	writeFile(t, dir, TemplatesFile, `{"templates": "oops"`)
	if err := c.Load(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if len(c.Snapshot().Templates) != 1 {
		t.Fatalf("expected previous templates retained, got %v", c.Snapshot().Templates)
	}
}

func TestMalformedScenariosKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ScenariosFile, `{"scenarios": {"1": {"conversation": [{"role": "customer", "content": "hi"}]}}}`)

	c := New(dir, zap.NewNop())
	if err := c.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	writeFile(t, dir, ScenariosFile, `{"scenarios": {"1":`)
	if err := c.Load(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if len(c.Snapshot().Scenarios) != 1 || len(c.Snapshot().Keys) != 1 {
		t.Fatalf("expected previous scenarios retained, got %v", c.Snapshot().Keys)
	}

	// An intentionally emptied document is not a malformed one.
	writeFile(t, dir, ScenariosFile, `{"scenarios": {}}`)
	if err := c.Load(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if len(c.Snapshot().Scenarios) != 0 {
		t.Fatalf("expected emptied document to apply, got %v", c.Snapshot().Keys)
	}
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ScenariosFile, `{"scenarios": {"1": {"conversation": [{"role": "customer", "content": "hi"}]}}}`)

	c := New(dir, zap.NewNop())
	if err := c.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Watch(ctx) }()

	// Give the watcher a moment to register before rewriting the file.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, ScenariosFile, `{"scenarios": {
		"1": {"conversation": [{"role": "customer", "content": "hi"}]},
		"2": {"conversation": [{"role": "customer", "content": "hello"}]}
	}}`)

	deadline := time.After(3 * time.Second)
	for {
		if len(c.Snapshot().Scenarios) == 2 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("watcher never picked up the change, have %d scenarios", len(c.Snapshot().Scenarios))
		case <-time.After(50 * time.Millisecond):
		}
	}
}
