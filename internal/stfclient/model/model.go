// Package model contains the consumer-side rows: time-frame metadata and
// run records with live aggregate counters.
package model

import (
	"time"

	"github.com/google/uuid"
)

// TfMetadata is the consumer's record of one notified file. FileID is the
// deduplication key: a replayed notification updates the row in place,
// never creates a second one.
type TfMetadata struct {
	FileID     uuid.UUID
	RunNumber  int32
	TfNumber   int32
	FileURL    string
	SizeBytes  int64
	Checksum   string
	Status     string
	CreatedAt  time.Time
	ReceivedAt time.Time
}

// Run is the consumer's replica of a run, keyed by run number, with
// embedded aggregates. TotalTfs must always equal the count of distinct
// file_id rows in tf_metadata for the run, including under duplicate
// message replay.
type Run struct {
	RunNumber  int32
	TotalTfs   int64
	TotalBytes int64
	StartTime  time.Time
	EndTime    *time.Time
}
