package diagnostics

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Pruner deletes the oldest error images once the directory grows past
// MaxBytes.
type Pruner struct {
	Dir      string
	MaxBytes int64
	Log      *slog.Logger
}

type imageFile struct {
	path    string
	size    int64
	modTime time.Time
}

// Prune removes error images oldest first until the total size of the
// remaining ones is within MaxBytes. Files not written by a Sink are left
// alone and not counted. It returns the number of files removed.
func (p *Pruner) Prune() (int, error) {
	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("diagnostics: read %s: %w", p.Dir, err)
	}

	var files []imageFile
	var total int64
	for _, e := range entries {
		if e.IsDir() || !isErrorImage(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, imageFile{
			path:    filepath.Join(p.Dir, e.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		total += info.Size()
	}
	if total <= p.MaxBytes {
		return 0, nil
	}

	// File names start with the capture time, so they break mtime ties.
	sort.Slice(files, func(i, j int) bool {
		if !files[i].modTime.Equal(files[j].modTime) {
			return files[i].modTime.Before(files[j].modTime)
		}
		return files[i].path < files[j].path
	})

	removed := 0
	for _, f := range files {
		if total <= p.MaxBytes {
			break
		}
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("diagnostics: remove %s: %w", f.path, err)
		}
		total -= f.size
		removed++
	}
	return removed, nil
}

// Run prunes every interval until ctx is cancelled. A non-positive interval
// disables pruning.
func (p *Pruner) Run(ctx context.Context, interval time.Duration) {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		log.Warn("error image cleanup disabled", "interval", interval)
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.Prune()
			if err != nil {
				log.Warn("error image cleanup failed", "err", err)
				continue
			}
			if n > 0 {
				log.Info("removed old error images", "count", n, "dir", p.Dir)
			}
		}
	}
}
