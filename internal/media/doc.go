// Package media probes container and stream metadata via ffprobe. A single
// JSON invocation per file yields everything validation needs: duration,
// stream presence, and audio codec details.
package media
