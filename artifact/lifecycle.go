package artifact

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrOutsideDir indicates a path that is not a recording in the managed
// directory.
var ErrOutsideDir = errors.New("path is outside the recording directory")

// RetentionConfig defines the retention policy for recordings that were
// not uploaded.
type RetentionConfig struct {
	RetentionDays     int // Days to keep a recording that never reached storage
	KeepMinRecordings int // Newest recordings kept regardless of age
}

// DefaultRetentionConfig returns sensible defaults
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		RetentionDays:     7,
		KeepMinRecordings: 0,
	}
}

// LifecycleManager handles recording retention for one directory.
type LifecycleManager struct {
	dir    string
	config RetentionConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewLifecycleManager creates a lifecycle manager for dir.
func NewLifecycleManager(dir string, config RetentionConfig) *LifecycleManager {
	return &LifecycleManager{
		dir:    dir,
		config: config,
		logger: slog.Default(),
		now:    time.Now,
	}
}

// WithLogger sets the logger and returns m.
func (m *LifecycleManager) WithLogger(logger *slog.Logger) *LifecycleManager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// Release removes a recording once it is safely stored remotely. A file
// that is already gone is not an error.
func (m *LifecycleManager) Release(path string) error {
	if err := m.checkPath(path); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove recording: %w", err)
	}
	m.logger.Debug("recording released", "path", path, "bytes", info.Size())
	return nil
}

// checkPath ensures path names a file directly inside the managed
// directory.
func (m *LifecycleManager) checkPath(path string) error {
	dir, err := filepath.Abs(m.dir)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if filepath.Dir(abs) != dir || !IsRecording(filepath.Base(abs)) {
		return fmt.Errorf("%w: %s", ErrOutsideDir, path)
	}
	return nil
}

// CleanupResult summarizes cleanup actions
type CleanupResult struct {
	Deleted    []string `json:"deleted"`
	Kept       []string `json:"kept"`
	Errors     []string `json:"errors,omitempty"`
	SpaceSaved int64    `json:"spaceSaved"`
}

// Cleanup deletes recordings older than the retention window, oldest
// first, always keeping the newest KeepMinRecordings. With dryRun nothing
// is removed but the result reports what would be.
func (m *LifecycleManager) Cleanup(dryRun bool) (*CleanupResult, error) {
	result := &CleanupResult{
		Deleted: make([]string, 0),
		Kept:    make([]string, 0),
		Errors:  make([]string, 0),
	}

	recordings, err := m.list()
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, err
	}

	threshold := m.now().Add(-time.Duration(m.config.RetentionDays) * 24 * time.Hour)

	removed := 0
	for _, rec := range recordings {
		// Ensure we keep minimum recordings
		if len(recordings)-removed-1 < m.config.KeepMinRecordings {
			result.Kept = append(result.Kept, rec.name)
			continue
		}
		if !rec.modTime.Before(threshold) {
			result.Kept = append(result.Kept, rec.name)
			continue
		}

		if !dryRun {
			if err := os.Remove(filepath.Join(m.dir, rec.name)); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("delete %s: %v", rec.name, err))
				continue
			}
		}
		result.Deleted = append(result.Deleted, rec.name)
		result.SpaceSaved += rec.size
		removed++
	}

	if len(result.Deleted) > 0 {
		m.logger.Info("expired recordings removed",
			"count", len(result.Deleted),
			"bytes", result.SpaceSaved,
			"dry_run", dryRun,
		)
	}
	return result, nil
}

// DiskUsageStats contains disk usage statistics
type DiskUsageStats struct {
	Count     int       `json:"count"`
	TotalSize int64     `json:"totalSize"`
	Oldest    time.Time `json:"oldest,omitempty"`
}

// DiskUsage reports how much space staged recordings take.
func (m *LifecycleManager) DiskUsage() (*DiskUsageStats, error) {
	stats := &DiskUsageStats{}
	recordings, err := m.list()
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return nil, err
	}
	for _, rec := range recordings {
		stats.Count++
		stats.TotalSize += rec.size
	}
	if len(recordings) > 0 {
		stats.Oldest = recordings[0].modTime
	}
	return stats, nil
}

type recording struct {
	name    string
	size    int64
	modTime time.Time
}

// list returns recordings in the directory, oldest first.
func (m *LifecycleManager) list() ([]recording, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, err
	}

	var out []recording
	for _, entry := range entries {
		if entry.IsDir() || !IsRecording(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, recording{name: entry.Name(), size: info.Size(), modTime: info.ModTime()})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].modTime.Before(out[j].modTime)
	})
	return out, nil
}

// Helper functions

// IsRecording reports whether name looks like a recorder artifact:
// "interview-<key>-<suffix>.<ext>" or "interview-<suffix>.<ext>".
func IsRecording(name string) bool {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return strings.HasPrefix(base, "interview-") && base != "interview-" && filepath.Ext(name) != ""
}
