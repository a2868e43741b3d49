// Package ledger tracks which media files have already been transcribed so
// repeated runs skip completed work. The ledger is one JSON document in the
// output root, rewritten whole under a single writer lock after every update.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"scribe/internal/fileutil"
	"scribe/internal/logging"
)

// Filename is the ledger document name inside the output root.
const Filename = ".scribe_ledger.json"

// Identity derives the stable key for a source file from its absolute path
// and modification time. Editing a file changes its identity, so it is
// reprocessed on the next run.
func Identity(path string, modTime time.Time) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.FormatInt(modTime.UnixNano(), 10)))
	return hex.EncodeToString(h.Sum(nil))
}

// Entry records one processing attempt for a file identity. A successful
// entry is only replaced by a newer attempt.
type Entry struct {
	SourceFile     string  `json:"source_file"`
	ProcessedAt    string  `json:"processed_at"`
	OutputFile     string  `json:"output_file"`
	Duration       float64 `json:"duration"`
	ProcessingTime float64 `json:"processing_time"`
	ModelUsed      string  `json:"model_used"`
	Success        bool    `json:"success"`
	Error          string  `json:"error,omitempty"`
}

// Aggregate is the cross-run statistics section of the ledger document,
// derived from the entries on every write.
type Aggregate struct {
	TotalProcessed      int     `json:"total_processed"`
	Successful          int     `json:"successful"`
	Failed              int     `json:"failed"`
	TotalDuration       float64 `json:"total_duration"`
	TotalProcessingTime float64 `json:"total_processing_time"`
}

type document struct {
	ProcessedFiles map[string]Entry `json:"processed_files"`
	Statistics     Aggregate        `json:"statistics"`
}

// Ledger is the single-writer store of processing history.
type Ledger struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]Entry
}

// Open loads the ledger at path. A missing file starts empty; a corrupt file
// starts empty with a warning, never an error. The batch must not abort on
// bad history.
func Open(path string, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = logging.NewNop()
	}
	l := &Ledger{
		path:    path,
		logger:  logger,
		entries: make(map[string]Entry),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("ledger unreadable, starting empty", logging.String("path", path), logging.Error(err))
		}
		return l
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Warn("ledger corrupt, starting empty", logging.String("path", path), logging.Error(err))
		return l
	}
	if doc.ProcessedFiles != nil {
		l.entries = doc.ProcessedFiles
	}
	return l
}

// ShouldSkip reports whether identity was already transcribed successfully
// and its output artifact still exists non-empty. Every other condition
// returns false: reprocessing is the safe default.
func (l *Ledger) ShouldSkip(identity, outputPath string) bool {
	l.mu.Lock()
	entry, ok := l.entries[identity]
	l.mu.Unlock()
	if !ok || !entry.Success {
		return false
	}
	target := entry.OutputFile
	if target == "" {
		target = outputPath
	}
	stat, err := os.Stat(target)
	if err != nil {
		return false
	}
	return stat.Size() > 0
}

// Record stores the outcome for identity and persists the whole document
// atomically. Safe for concurrent callers; a sidecar flock file additionally
// guards against a second process sharing the output root.
func (l *Ledger) Record(identity string, entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.ProcessedAt == "" {
		entry.ProcessedAt = time.Now().UTC().Format(time.RFC3339)
	}
	l.entries[identity] = entry
	return l.persistLocked()
}

// Stats derives the aggregate section from the current entries.
func (l *Ledger) Stats() Aggregate {
	l.mu.Lock()
	defer l.mu.Unlock()
	return aggregate(l.entries)
}

// Entries returns a copy of the processed-files map for display commands.
func (l *Ledger) Entries() map[string]Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]Entry, len(l.entries))
	for k, v := range l.entries {
		out[k] = v
	}
	return out
}

// Len reports the number of recorded identities.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Ledger) persistLocked() error {
	lock := flock.New(l.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquire ledger lock: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			l.logger.Warn("release ledger lock", logging.Error(err))
		}
	}()

	doc := document{
		ProcessedFiles: l.entries,
		Statistics:     aggregate(l.entries),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	if err := fileutil.WriteFileAtomic(l.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	return nil
}

func aggregate(entries map[string]Entry) Aggregate {
	var agg Aggregate
	for _, entry := range entries {
		agg.TotalProcessed++
		if entry.Success {
			agg.Successful++
		} else {
			agg.Failed++
		}
		agg.TotalDuration += entry.Duration
		agg.TotalProcessingTime += entry.ProcessingTime
	}
	return agg
}
