// Command scribe batch-transcribes media files: it scans an input tree for
// audio and video containers, extracts normalized audio with ffmpeg,
// transcribes it with whisper, and writes one transcript per source file,
// keeping a ledger so finished files are skipped on later runs.
package main
