package pathing

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	defaultDataDir   = "/var/lib/witmotion_logger"
	defaultConfigDir = "/etc/witmotion_logger"
)

// EnsureDirs creates the directories the binaries write to. Call on startup.
func EnsureDirs() error {
	dirs := []string{
		GetDataDir(),
		GetRecordingDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func GetSampleDbPath() string {
	return filepath.Join(GetDataDir(), "witmotion-samples.db")
}

func GetRecordingDir() string {
	return filepath.Join(GetDataDir(), "recordings")
}

// WITMOTION_DATA_DIR overrides the default
func GetDataDir() string {
	if dir := os.Getenv("WITMOTION_DATA_DIR"); dir != "" {
		return dir
	}
	return defaultDataDir
}

// WITMOTION_CONFIG_DIR overrides the default
func GetConfigDir() string {
	if dir := os.Getenv("WITMOTION_CONFIG_DIR"); dir != "" {
		return dir
	}
	return defaultConfigDir
}
