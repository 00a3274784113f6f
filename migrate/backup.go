package migrate

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// BackupManager copies the store file and its WAL/SHM companions before risky changes.
type BackupManager struct {
	DatabasePath string
	BackupDir    string
	Retain       int
}

func (b *BackupManager) Enabled() bool {
	return b != nil && b.DatabasePath != "" && b.BackupDir != ""
}

// Create copies the database files into a timestamped directory and returns its path.
func (b *BackupManager) Create(ctx context.Context, label string, now time.Time) (string, error) {
	if !b.Enabled() {
		return "", fmt.Errorf("backup manager not configured")
	}

	dirName := fmt.Sprintf("%s-%s", now.UTC().Format("20060102T150405Z"), label)
	targetDir := filepath.Join(b.BackupDir, dirName)
	if err := os.MkdirAll(targetDir, 0o750); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	files := []string{b.DatabasePath, b.DatabasePath + "-wal", b.DatabasePath + "-shm"}
	for _, src := range files {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if _, err := os.Stat(src); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", fmt.Errorf("stat %s: %w", src, err)
		}
		if err := copyFile(src, filepath.Join(targetDir, filepath.Base(src))); err != nil {
			return "", fmt.Errorf("copy %s: %w", src, err)
		}
	}
	return targetDir, nil
}

// Trim keeps the newest Retain backups.
func (b *BackupManager) Trim() error {
	if !b.Enabled() || b.Retain <= 0 {
		return nil
	}

	entries, err := os.ReadDir(b.BackupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read backup dir: %w", err)
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() && strings.Contains(entry.Name(), "-") {
			dirs = append(dirs, entry.Name())
		}
	}
	if len(dirs) <= b.Retain {
		return nil
	}

	// names start with a UTC timestamp, so lexical order is chronological
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	for _, d := range dirs[b.Retain:] {
		_ = os.RemoveAll(filepath.Join(b.BackupDir, d))
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(filepath.Clean(dst))
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
