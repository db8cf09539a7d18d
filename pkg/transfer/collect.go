package transfer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sdejongh/greenbox/pkg/storage"
)

// Collect turns local paths into upload tasks. A file becomes one task; a
// directory is walked recursively. Excluded entries are skipped. Remote
// names are base names: the backend keeps no directory structure.
func Collect(ctx context.Context, paths []string, matcher *Matcher) ([]*Task, error) {
	var tasks []*Task

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("failed to access %s: %w", p, err)
		}

		if !info.IsDir() {
			name := filepath.Base(abs)
			if matcher.Match(name) {
				continue
			}
			local, err := storage.NewLocal(filepath.Dir(abs))
			if err != nil {
				return nil, err
			}
			task := NewTask(name, name, local, info.Size())
			task.ModTime = info.ModTime()
			tasks = append(tasks, task)
			continue
		}

		local, err := storage.NewLocal(abs)
		if err != nil {
			return nil, err
		}
		entries, err := local.List(ctx, "")
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir || matcher.Match(e.RelativePath) {
				continue
			}
			task := NewTask(filepath.Base(e.RelativePath), e.RelativePath, local, e.Size)
			task.ModTime = e.ModTime
			tasks = append(tasks, task)
		}
	}

	return tasks, nil
}

// TotalSize sums the known sizes of tasks
func TotalSize(tasks []*Task) int64 {
	var total int64
	for _, t := range tasks {
		if t.Size > 0 {
			total += t.Size
		}
	}
	return total
}
