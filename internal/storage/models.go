package storage

import "time"

// IndexRun records one pass of the schema indexer.
type IndexRun struct {
	ID          string // UUID
	Collection  string
	ContentHash string // SHA256 hex of the indexed schema text
	Chunks      int
	Duration    time.Duration
	Skipped     bool // true when the run found the collection already current
	CreatedAt   time.Time
}

// Generation records one answered question.
type Generation struct {
	ID            string `json:"id"`
	Question      string `json:"question"`
	SQL           string `json:"sql"`
	SchemaContext string `json:"schema_context"`
	K             int    `json:"k"`
	// DurationMs covers retrieval plus generation.
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
