package ingest

import (
	"time"

	"github.com/epic-swf/stfmon/internal/stfclient/model"
	"github.com/epic-swf/stfmon/pkg/stfevents"
)

// FromNotification converts a wire notification into the row the consumer
// stores. The payload is self-describing, so no lookup against the
// producer is needed.
func FromNotification(n *stfevents.StfFileNotification, receivedAt time.Time) *model.TfMetadata {
	return &model.TfMetadata{
		FileID:     n.FileID,
		RunNumber:  n.RunNumber,
		TfNumber:   n.StfIdentifier,
		FileURL:    n.FileURL,
		SizeBytes:  n.SizeBytes,
		Checksum:   n.Checksum,
		Status:     n.Status,
		CreatedAt:  n.CreatedAt,
		ReceivedAt: receivedAt,
	}
}
