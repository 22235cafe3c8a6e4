package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// DiskUsage reports the on-disk size of each named path (database file, Bleve
// directory, vector index) and their total. Missing paths and ":memory:" count as 0.
func DiskUsage(paths map[string]string) (map[string]int64, int64, error) {
	sizes := make(map[string]int64, len(paths))
	var total int64
	for name, p := range paths {
		n, err := pathSize(p)
		if err != nil {
			return nil, 0, err
		}
		sizes[name] = n
		total += n
	}
	return sizes, total, nil
}

func pathSize(p string) (int64, error) {
	if p == "" || p == ":memory:" {
		return 0, nil
	}
	info, err := os.Stat(p)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		size := info.Size()
		// SQLite WAL side files
		for _, suffix := range []string{"-wal", "-shm"} {
			if side, err := os.Stat(p + suffix); err == nil {
				size += side.Size()
			}
		}
		return size, nil
	}
	var total int64
	err = filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += fi.Size()
		return nil
	})
	return total, err
}
