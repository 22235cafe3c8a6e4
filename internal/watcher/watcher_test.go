package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testDebounce = 50 * time.Millisecond

func startWatcher(t *testing.T, sources []string) (*Watcher, <-chan []string) {
	t.Helper()
	ch := make(chan []string, 8)
	w := NewWatcher(sources, []string{".json", ".html"}, func(paths []string) {
		ch <- paths
	}, WithDebounce(testDebounce))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w, ch
}

func waitChange(t *testing.T, ch <-chan []string) []string {
	t.Helper()
	select {
	case paths := <-ch:
		return paths
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change notification")
		return nil
	}
}

func expectQuiet(t *testing.T, ch <-chan []string) {
	t.Helper()
	select {
	case paths := <-ch:
		t.Fatalf("unexpected change notification: %v", paths)
	case <-time.After(8 * testDebounce):
	}
}

func TestWatcher_CoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	_, ch := startWatcher(t, []string{dir})

	for _, name := range []string{"ch1.json", "ch2.json", "ch3.html"} {
		if err := writeFile(filepath.Join(dir, name), "{}"); err != nil {
			t.Fatal(err)
		}
	}

	paths := waitChange(t, ch)
	if len(paths) != 3 {
		t.Errorf("expected 3 coalesced paths, got %v", paths)
	}
	expectQuiet(t, ch)
}

func TestWatcher_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	_, ch := startWatcher(t, []string{dir})

	if err := writeFile(filepath.Join(dir, "notes.txt"), "x"); err != nil {
		t.Fatal(err)
	}
	expectQuiet(t, ch)
}

func TestWatcher_RemovalTriggersReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ch1.json")
	if err := writeFile(path, "[]"); err != nil {
		t.Fatal(err)
	}
	_, ch := startWatcher(t, []string{dir})

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	paths := waitChange(t, ch)
	if len(paths) != 1 || paths[0] != path {
		t.Errorf("paths = %v, want [%s]", paths, path)
	}
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	_, ch := startWatcher(t, []string{dir})

	sub := filepath.Join(dir, "extra")
	if err := mkdirAll(sub); err != nil {
		t.Fatal(err)
	}
	// The directory creation alone holds no sources.
	expectQuiet(t, ch)

	if err := writeFile(filepath.Join(sub, "ch18.json"), "[]"); err != nil {
		t.Fatal(err)
	}
	paths := waitChange(t, ch)
	if len(paths) == 0 || !strings.HasSuffix(paths[0], "ch18.json") {
		t.Errorf("paths = %v", paths)
	}
}

func TestWatcher_SingleFileSource(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "gita.json")
	sibling := filepath.Join(dir, "other.json")
	if err := writeFile(source, "[]"); err != nil {
		t.Fatal(err)
	}
	w, ch := startWatcher(t, []string{source})

	if got := w.Sources(); len(got) != 1 || got[0] != source {
		t.Errorf("Sources() = %v", got)
	}

	// Siblings of a file source are not part of the corpus.
	if err := writeFile(sibling, "[]"); err != nil {
		t.Fatal(err)
	}
	expectQuiet(t, ch)

	if err := writeFile(source, `[{"chapter":1}]`); err != nil {
		t.Fatal(err)
	}
	paths := waitChange(t, ch)
	if len(paths) != 1 || paths[0] != source {
		t.Errorf("paths = %v, want [%s]", paths, source)
	}
}

func TestWatcher_StartMissingSource(t *testing.T) {
	w := NewWatcher([]string{filepath.Join(t.TempDir(), "missing")}, nil, nil)
	if err := w.Start(context.Background()); err == nil {
		w.Stop()
		t.Fatal("expected error for missing source")
	}
}

func TestWatcher_StopDropsPending(t *testing.T) {
	dir := t.TempDir()
	ch := make(chan []string, 1)
	w := NewWatcher([]string{dir}, []string{".json"}, func(paths []string) {
		ch <- paths
	}, WithDebounce(200*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "a.json"), "[]"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	w.Stop()
	w.Stop()

	select {
	case paths := <-ch:
		t.Fatalf("reload fired after Stop: %v", paths)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.json", []string{".json"}, true},
		{"/a/b.JSON", []string{".json"}, true},
		{"/a/b.md", []string{".json", ".html"}, false},
		{"/a/b", nil, true},
		{"/a/b", []string{}, true},
	}
	for _, tt := range tests {
		got := matchExtension(tt.path, tt.extensions)
		if got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func mkdirAll(path string) error {
	return os.MkdirAll(path, 0o755)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
