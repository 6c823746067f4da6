// Package model contains the producer-side rows tracked for Super Time
// Frame (STF) files: runs, the files themselves, dispatch audit records
// and message-queue subscribers.
package model

import (
	"time"

	"github.com/google/uuid"
)

// FileStatus tracks the processing state of an STF file from initial
// registration through final message queue dispatch.
type FileStatus string

const (
	// FileRegistered: file row inserted into the ledger.
	FileRegistered FileStatus = "registered"
	// FileProcessing: metadata extraction in progress.
	FileProcessing FileStatus = "processing"
	// FileProcessed: extraction complete, ready to dispatch.
	FileProcessed FileStatus = "processed"
	// FileFailed: unrecoverable extraction error. Terminal; an operator may
	// reset the row to registered out of band.
	FileFailed FileStatus = "failed"
	// FileDone: notification delivery confirmed by the broker.
	FileDone FileStatus = "done"
)

// statusTransitions is the allowed state machine:
// registered → processing → {processed | failed} → done.
var statusTransitions = map[FileStatus][]FileStatus{
	FileRegistered: {FileProcessing},
	FileProcessing: {FileProcessed, FileFailed},
	FileProcessed:  {FileDone},
	FileFailed:     {},
	FileDone:       {},
}

// CanTransition reports whether moving a file from one status to another is
// legal.
func (s FileStatus) CanTransition(to FileStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further automatic transitions exist.
func (s FileStatus) IsTerminal() bool {
	return len(statusTransitions[s]) == 0
}

var AllFileStatuses = []FileStatus{
	FileRegistered,
	FileProcessing,
	FileProcessed,
	FileFailed,
	FileDone,
}

// Run is a bounded data-taking session identified by a run number. EndTime
// is set externally when the run closes; it is nil while the run is live.
type Run struct {
	RunNumber  int32
	StartTime  time.Time
	EndTime    *time.Time
	Conditions map[string]interface{}
}

// StfFile is a sampled Super Time Frame file tracked by the ledger.
// FileURL is globally unique and serves as the idempotency key for
// ingestion. Rows are never deleted in normal operation.
type StfFile struct {
	FileID        uuid.UUID
	RunNumber     int32
	StfIdentifier int32
	FileURL       string
	SizeBytes     int64
	Checksum      string
	CreationTime  time.Time
	Status        FileStatus
	Metadata      map[string]interface{}
}

// DispatchRecord audits a single publish attempt. One row is written per
// attempt, including retries, so a file may have many records. Rows are
// immutable once written.
type DispatchRecord struct {
	DispatchID   uuid.UUID
	FileID       uuid.UUID
	DispatchTime time.Time
	Payload      []byte
	Success      bool
	ErrorMessage string
}

// Subscriber is a message queue subscriber. It is currently inert metadata:
// notifications go to a single shared topic and no per-subscriber routing
// exists yet.
type Subscriber struct {
	SubscriberID   int32
	SubscriberName string
	Fraction       *float64
	Description    string
	IsActive       bool
}
