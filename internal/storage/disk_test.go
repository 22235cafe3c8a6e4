package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsage(t *testing.T) {
	dir := t.TempDir()

	db := filepath.Join(dir, "gitaguide.db")
	if err := os.WriteFile(db, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(db+"-wal", []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}

	bleveDir := filepath.Join(dir, "bleve")
	if err := os.MkdirAll(filepath.Join(bleveDir, "store"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bleveDir, "index_meta.json"), []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bleveDir, "store", "seg"), []byte("abcd"), 0644); err != nil {
		t.Fatal(err)
	}

	sizes, total, err := DiskUsage(map[string]string{
		"database": db,
		"bleve":    bleveDir,
		"vectors":  filepath.Join(dir, "missing.bin"),
		"memory":   ":memory:",
	})
	if err != nil {
		t.Fatal(err)
	}
	if sizes["database"] != 8 {
		t.Errorf("database: got %d, want 8", sizes["database"])
	}
	if sizes["bleve"] != 6 {
		t.Errorf("bleve: got %d, want 6", sizes["bleve"])
	}
	if sizes["vectors"] != 0 || sizes["memory"] != 0 {
		t.Errorf("missing paths should be 0: %v", sizes)
	}
	if total != 14 {
		t.Errorf("total: got %d, want 14", total)
	}
}
