package build

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// writeOutputs commits a successful build to disk. Every file goes through a
// temp file in its target directory and a rename, so readers never see a
// partial artifact.
func writeOutputs(cfg Config, stats *Stats) error {
	for _, f := range stats.Outputs {
		if err := writeFileAtomic(f.Path, f.Contents); err != nil {
			return err
		}
	}
	if path := cfg.MetafilePath(); path != "" && stats.Metafile != "" {
		if err := writeFileAtomic(path, []byte(stats.Metafile)); err != nil {
			return err
		}
	}
	return nil
}

// removeStaleOutput deletes the artifact and metafile left by an earlier run
// so a failed build never leaves a file that looks current.
func removeStaleOutput(cfg Config) error {
	for _, path := range []string{cfg.OutputPath(), cfg.MetafilePath()} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove stale output %s: %w", path, err)
		}
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
