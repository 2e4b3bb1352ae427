// Package progress carries crawl events from the workers to pluggable sinks.
// Workers Emit without blocking; a background goroutine batches events and
// hands them to each sink in turn.
package progress
