// Package services defines the shared error taxonomy for engine and pipeline
// failures. Stage code wraps errors with a sentinel marker via Wrap so the
// scheduler and ledger can classify outcomes without string matching.
package services
