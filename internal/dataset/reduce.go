package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"infrascan/internal/logger"
)

// Reduce thins a folder by deleting the second and third of every group of
// three png, jpg or txt files in name order. It returns the deleted paths.
func Reduce(dir string, log *logger.Logger) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if strings.HasSuffix(name, "png") || strings.HasSuffix(name, "jpg") || strings.HasSuffix(name, "txt") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	var deleted []string
	for i, name := range files {
		if i%3 == 0 {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			return deleted, fmt.Errorf("delete %s: %w", path, err)
		}
		log.Info("Deleted: %s", path)
		deleted = append(deleted, path)
	}

	log.Info("Reduced %s: kept %d of %d files", dir, len(files)-len(deleted), len(files))
	return deleted, nil
}
