// Package discovery scans an input root for candidate media files. Scans are
// pure reads: results are filtered by a case-insensitive extension allow-list
// and sorted by normalized path so every run sees the same order.
package discovery
