package serviceinfo

import (
	"os"
	"path/filepath"
	"strconv"
)

func encodePlatform(rec *Record, cfg Config) {
	rec.Add(KeyPriority, strconv.FormatUint(uint64(cfg.Priority), 10))
	rec.Add(KeyCreateFlags, strconv.FormatUint(uint64(cfg.CreateFlags), 10))
}

// DefaultDir returns the directory holding service-info records.
func DefaultDir() string {
	dir := os.Getenv("ProgramData")
	if dir == "" {
		dir = `C:\ProgramData`
	}
	return filepath.Join(dir, "servicemanager")
}
