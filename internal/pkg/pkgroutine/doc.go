// Package pkgroutine runs background work such as streamed ingestion runs.
//
// Manager bounds concurrency, collects returned errors and recovers panics so
// that Wait can be used to drain in-flight runs on shutdown.
package pkgroutine
