// Package stfevents defines the wire format for STF file notifications
// published to the message bus. The payload is self-describing: a consumer
// must be able to upsert its local metadata row from the message alone,
// without a lookup against the producer's database.
package stfevents

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// MsgTypeStfFileRegistered identifies a notification for a newly sampled STF file.
const MsgTypeStfFileRegistered = "stf_file_registered"

// StfFileNotification is the message body sent for every dispatched STF file.
type StfFileNotification struct {
	MsgType       string    `json:"msg_type"`
	FileID        uuid.UUID `json:"file_id"`
	RunNumber     int32     `json:"run_number"`
	StfIdentifier int32     `json:"stf_identifier"`
	FileURL       string    `json:"file_url"`
	SizeBytes     int64     `json:"size_bytes"`
	Checksum      string    `json:"checksum,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	ProcessedAt   time.Time `json:"processed_at"`
}

func (n *StfFileNotification) Marshal() ([]byte, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return payload, nil
}

// Unmarshal parses a notification payload. Messages with a missing or
// unexpected msg_type are rejected so that unrelated traffic on a shared
// topic cannot be mistaken for file notifications.
func Unmarshal(payload []byte) (*StfFileNotification, error) {
	notification := &StfFileNotification{}
	if err := json.Unmarshal(payload, notification); err != nil {
		return nil, errors.WithStack(err)
	}
	if notification.MsgType != MsgTypeStfFileRegistered {
		return nil, errors.Errorf("unknown msg_type %q", notification.MsgType)
	}
	if notification.FileID == uuid.Nil {
		return nil, errors.New("notification is missing file_id")
	}
	if notification.FileURL == "" {
		return nil, errors.New("notification is missing file_url")
	}
	return notification, nil
}
