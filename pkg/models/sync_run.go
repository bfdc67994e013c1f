package models

import "time"

// SyncRun is the persisted summary of one sync invocation.
type SyncRun struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Fetched       int       `json:"fetched"`
	Unique        int       `json:"unique"`
	Inserted      int       `json:"inserted"`
	Updated       int       `json:"updated"`
	Unchanged     int       `json:"unchanged"`
	Batches       int       `json:"batches"`
	FailedSources []string  `json:"failed_sources,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// OK reports whether the run finished without a fatal error.
func (r SyncRun) OK() bool { return r.Error == "" }
