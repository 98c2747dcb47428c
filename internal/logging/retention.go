package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RetentionTarget describes one family of run-scoped files to prune.
type RetentionTarget struct {
	// Dir is the directory scanned for matching files.
	Dir string
	// Prefix and Suffix bound the file names considered.
	Prefix string
	Suffix string
	// MaxAge removes files whose modification time is older. Zero
	// disables age-based pruning.
	MaxAge time.Duration
	// MaxCount keeps at most this many newest files. Zero disables
	// count-based pruning.
	MaxCount int
}

// CleanupOldLogs prunes run logs and snapshots per target. Missing
// directories are skipped; individual remove failures are collected so
// one locked file does not abort the sweep.
func CleanupOldLogs(targets []RetentionTarget, now time.Time) error {
	var problems []string
	for _, target := range targets {
		if strings.TrimSpace(target.Dir) == "" {
			continue
		}
		entries, err := os.ReadDir(target.Dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			problems = append(problems, fmt.Sprintf("read %s: %v", target.Dir, err))
			continue
		}

		type candidate struct {
			path    string
			modTime time.Time
		}
		var candidates []candidate
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if target.Prefix != "" && !strings.HasPrefix(name, target.Prefix) {
				continue
			}
			if target.Suffix != "" && !strings.HasSuffix(name, target.Suffix) {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			candidates = append(candidates, candidate{
				path:    filepath.Join(target.Dir, name),
				modTime: info.ModTime(),
			})
		}

		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].modTime.After(candidates[j].modTime)
		})

		for i, c := range candidates {
			tooOld := target.MaxAge > 0 && now.Sub(c.modTime) > target.MaxAge
			overCount := target.MaxCount > 0 && i >= target.MaxCount
			if !tooOld && !overCount {
				continue
			}
			if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
				problems = append(problems, fmt.Sprintf("remove %s: %v", c.path, err))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("log cleanup: %s", strings.Join(problems, "; "))
	}
	return nil
}
