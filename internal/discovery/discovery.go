package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNotFound indicates the scan root does not exist.
	ErrNotFound = errors.New("input root not found")
	// ErrNotADirectory indicates the scan root is a file.
	ErrNotADirectory = errors.New("input root is not a directory")
)

// WorkItem identifies one candidate media file. Immutable once discovered.
type WorkItem struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Scan walks root for media files matching the extension allow-list and
// returns them sorted lexicographically by normalized path, so run order is
// deterministic regardless of filesystem iteration order.
func Scan(root string, recursive bool, extensions []string) ([]WorkItem, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, root)
		}
		return nil, fmt.Errorf("stat input root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, root)
	}

	allowed := allowSet(extensions)
	var items []WorkItem

	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if !recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := allowed[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			return nil
		}
		fileInfo, err := entry.Info()
		if err != nil {
			return err
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		items = append(items, WorkItem{
			Path:    filepath.Clean(abs),
			Size:    fileInfo.Size(),
			ModTime: fileInfo.ModTime(),
		})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("scan %s: %w", root, walkErr)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	return items, nil
}

func allowSet(extensions []string) map[string]struct{} {
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

// ExtensionCount summarizes discovered files sharing one extension.
type ExtensionCount struct {
	Extension string
	Count     int
	Bytes     int64
}

// Summarize groups items by extension for scan reporting, ordered by
// descending count and then extension.
func Summarize(items []WorkItem) []ExtensionCount {
	grouped := make(map[string]*ExtensionCount)
	for _, item := range items {
		ext := strings.ToLower(filepath.Ext(item.Path))
		entry, ok := grouped[ext]
		if !ok {
			entry = &ExtensionCount{Extension: ext}
			grouped[ext] = entry
		}
		entry.Count++
		entry.Bytes += item.Size
	}
	summary := make([]ExtensionCount, 0, len(grouped))
	for _, entry := range grouped {
		summary = append(summary, *entry)
	}
	sort.Slice(summary, func(i, j int) bool {
		if summary[i].Count != summary[j].Count {
			return summary[i].Count > summary[j].Count
		}
		return summary[i].Extension < summary[j].Extension
	})
	return summary
}
