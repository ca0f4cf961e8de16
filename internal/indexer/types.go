package indexer

import (
	"strconv"
	"time"
)

// Chunk is one CREATE TABLE block of the schema description.
type Chunk struct {
	Index int    // Position in the schema text (starts at 0)
	Text  string // Block text, terminated by ";"
}

// ID returns the chunk's identifier in the similarity collection.
func (c Chunk) ID() string {
	return strconv.Itoa(c.Index)
}

// Result describes a completed index run.
type Result struct {
	// Chunks is the number of entries the collection holds after the run.
	Chunks int `json:"chunks"`
	// Deleted is the number of prior entries removed before inserting.
	Deleted int `json:"deleted"`
	// Skipped is true when the collection already matched the schema text.
	Skipped bool `json:"skipped"`
	// ContentHash is the SHA256 hex of the indexed schema text.
	ContentHash string          `json:"content_hash"`
	TokenStats  ChunkTokenStats `json:"chunk_token_stats"`
	Duration    time.Duration   `json:"-"`
}
