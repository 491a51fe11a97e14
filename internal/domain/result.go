package domain

import "time"

// FileResult is returned by a file ingestion run. On a short-circuited
// run (unchanged content) the counters replay the stored values and
// AlreadyProcessed is true.
type FileResult struct {
	Path             string  `json:"file"`
	Read             int64   `json:"read"`
	Clicks           int64   `json:"clicks"`
	Conversions      int64   `json:"conversions"`
	Duplicates       int64   `json:"dedup"`
	Errors           int64   `json:"errors"`
	ElapsedSeconds   float64 `json:"seconds"`
	AlreadyProcessed bool    `json:"alreadyProcessed"`
}

// SyncResult is returned by an affiliate-API sync run. Errors counts
// per-record failures; failed network sources reduce the data set but
// do not fail the sync.
type SyncResult struct {
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	TotalProcessed int64     `json:"totalProcessed"`
	Errors         int64     `json:"errors"`
	ElapsedSeconds float64   `json:"seconds"`
}
