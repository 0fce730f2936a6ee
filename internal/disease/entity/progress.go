package entity

import "time"

// Summary is the outcome of a successful ingestion run.
type Summary struct {
	Status             RunStatus
	RunID              string
	Dataset            string
	TotalRows          int
	Imported           int
	Skipped            int
	NullCells          int
	UnmatchedCountries []string
	ElapsedSeconds     float64
}

// ProgressEvent is emitted while a run advances. The last event of a run has
// Type ProgressComplete (Data is the Summary) or ProgressError.
type ProgressEvent struct {
	RunID     string
	Type      ProgressType
	Stage     Stage
	Message   string
	Data      any
	Timestamp time.Time
}
