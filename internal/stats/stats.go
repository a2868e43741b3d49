// Package stats aggregates run counters across concurrent pipeline workers.
package stats

import (
	"sync"
	"time"
)

// RunStatistics is a snapshot of one batch run.
type RunStatistics struct {
	Discovered         int
	Processed          int
	Successful         int
	Failed             int
	Skipped            int
	TotalMediaDuration float64
	TotalProcessing    float64
	StartedAt          time.Time
	FinishedAt         time.Time
}

// RealtimeFactor is processing time over media duration. Below 1.0 means
// faster than realtime. Zero when no media duration was accumulated.
func (s RunStatistics) RealtimeFactor() float64 {
	if s.TotalMediaDuration <= 0 {
		return 0
	}
	return s.TotalProcessing / s.TotalMediaDuration
}

// Elapsed is the wall-clock span of the run.
func (s RunStatistics) Elapsed() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	end := s.FinishedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(s.StartedAt)
}

// Collector accumulates counters from concurrent workers.
type Collector struct {
	mu    sync.Mutex
	stats RunStatistics
}

// NewCollector starts a collector with the discovery count and the run start
// time already set.
func NewCollector(discovered int) *Collector {
	return &Collector{stats: RunStatistics{
		Discovered: discovered,
		StartedAt:  time.Now(),
	}}
}

// RecordSuccess counts one completed file with its media duration and
// processing time, both in seconds.
func (c *Collector) RecordSuccess(mediaDuration, processingTime float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Processed++
	c.stats.Successful++
	c.stats.TotalMediaDuration += mediaDuration
	c.stats.TotalProcessing += processingTime
}

// RecordFailure counts one failed file.
func (c *Collector) RecordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Processed++
	c.stats.Failed++
}

// RecordSkip counts one file skipped by ledger dedup.
func (c *Collector) RecordSkip() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Skipped++
}

// Finish stamps the end time and returns the final snapshot.
func (c *Collector) Finish() RunStatistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.FinishedAt = time.Now()
	return c.stats
}

// Snapshot returns the current counters without ending the run.
func (c *Collector) Snapshot() RunStatistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
