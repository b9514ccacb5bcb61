package vault

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := OpenCache(filepath.Join(t.TempDir(), "scan.db"))
	if err != nil {
		t.Fatalf("OpenCache failed: %s", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestCacheStoreAndLookup(t *testing.T) {
	cache := openTestCache(t)
	note := &cachedNote{
		Front:  []byte("title: x"),
		Body:   []byte("hello [[Beta]]"),
		Links:  []string{"Beta"},
		Embeds: []string{},
		Tags:   []string{"work"},
	}
	if err := cache.Store("Alpha.md", 100, 42, note); err != nil {
		t.Fatalf("Store failed: %s", err)
	}

	hit, ok := cache.Lookup("Alpha.md", 100, 42)
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if string(hit.Front) != "title: x" || string(hit.Body) != "hello [[Beta]]" {
		t.Errorf("content round trip failed: %q / %q", hit.Front, hit.Body)
	}
	if len(hit.Links) != 1 || hit.Links[0] != "Beta" {
		t.Errorf("links round trip failed: %v", hit.Links)
	}
	if len(hit.Tags) != 1 || hit.Tags[0] != "work" {
		t.Errorf("tags round trip failed: %v", hit.Tags)
	}
}

func TestCacheMissOnChange(t *testing.T) {
	cache := openTestCache(t)
	note := &cachedNote{Front: []byte("a: 1")}
	if err := cache.Store("Alpha.md", 100, 42, note); err != nil {
		t.Fatal(err)
	}

	if _, ok := cache.Lookup("Alpha.md", 200, 42); ok {
		t.Error("a changed mtime must miss")
	}
	if _, ok := cache.Lookup("Alpha.md", 100, 43); ok {
		t.Error("a changed size must miss")
	}
	if _, ok := cache.Lookup("Other.md", 100, 42); ok {
		t.Error("an unknown path must miss")
	}
}

func TestCacheReplaceStaleRow(t *testing.T) {
	cache := openTestCache(t)
	if err := cache.Store("Alpha.md", 100, 10, &cachedNote{Body: []byte("old")}); err != nil {
		t.Fatal(err)
	}
	if err := cache.Store("Alpha.md", 200, 11, &cachedNote{Body: []byte("new")}); err != nil {
		t.Fatal(err)
	}

	if _, ok := cache.Lookup("Alpha.md", 100, 10); ok {
		t.Error("the stale row should be gone")
	}
	hit, ok := cache.Lookup("Alpha.md", 200, 11)
	if !ok || string(hit.Body) != "new" {
		t.Errorf("expected the fresh row, got %v, %v", hit, ok)
	}
}

func TestCachePrune(t *testing.T) {
	cache := openTestCache(t)
	for _, path := range []string{"Keep.md", "Gone.md"} {
		if err := cache.Store(path, 1, 1, &cachedNote{}); err != nil {
			t.Fatal(err)
		}
	}

	if err := cache.Prune(map[string]bool{"Keep.md": true}); err != nil {
		t.Fatalf("Prune failed: %s", err)
	}
	if _, ok := cache.Lookup("Keep.md", 1, 1); !ok {
		t.Error("Keep.md should survive the prune")
	}
	if _, ok := cache.Lookup("Gone.md", 1, 1); ok {
		t.Error("Gone.md should be pruned")
	}
}

func TestScanUsesCache(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "Alpha.md", "---\nstatus: open\n---\nbody [[Beta]]\n")
	writeNote(t, root, "Beta.md", "plain\n")

	cache := openTestCache(t)
	scanner := &Scanner{Root: root, Cache: cache}

	first, _, err := scanner.Scan()
	if err != nil {
		t.Fatal(err)
	}

	// the file's content changes but its stat stays the same only if
	// mtime and size match, so preserve both to force a cache hit
	full := filepath.Join(root, "Alpha.md")
	info, err := os.Stat(full)
	if err != nil {
		t.Fatal(err)
	}
	stale := "---\nstatus: done\n---\nbody [[Beta]]\n"
	if int64(len(stale)) != info.Size() {
		t.Fatalf("fixture sizes must match: %d vs %d", len(stale), info.Size())
	}
	if err := os.WriteFile(full, []byte(stale), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(full, info.ModTime(), info.ModTime()); err != nil {
		t.Fatal(err)
	}

	second, _, err := scanner.Scan()
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != len(first) {
		t.Fatalf("document count changed: %d vs %d", len(second), len(first))
	}
	v, _ := second[0].Note.Get("status")
	if got := v.Inspect(); got != "open" {
		t.Errorf("cache hit should serve the old scan, got %s", got)
	}

	// touching the note invalidates the row
	later := info.ModTime().Add(2 * time.Second)
	if err := os.Chtimes(full, later, later); err != nil {
		t.Fatal(err)
	}
	third, _, err := scanner.Scan()
	if err != nil {
		t.Fatal(err)
	}
	v, _ = third[0].Note.Get("status")
	if got := v.Inspect(); got != "done" {
		t.Errorf("changed mtime should re-read the note, got %s", got)
	}
}
