// Package dispatcher publishes notifications for processed STF files to
// the message bus and audits every attempt. Delivery is at-least-once: a
// crash between broker ack and the status update leaves the file in
// processed even though the message went out, which the consumer's
// deduplication absorbs.
package dispatcher

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/epic-swf/stfmon/internal/stfagent/metrics"
	"github.com/epic-swf/stfmon/internal/stfagent/model"
	"github.com/epic-swf/stfmon/pkg/stfevents"
)

// Publisher sends a single notification payload to the bus. Implementations
// must bound each send with a timeout so a dead broker turns into a
// retryable error rather than a hang.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
	Close()
}

// AuditStore persists the outcome of publish attempts and advances file
// status. Satisfied by *ledger.Ledger.
type AuditStore interface {
	RecordDispatch(ctx context.Context, record *model.DispatchRecord) error
	MarkDone(ctx context.Context, fileID uuid.UUID) error
}

type Dispatcher struct {
	publisher      Publisher
	store          AuditStore
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	metrics        *metrics.Metrics
}

func New(
	publisher Publisher,
	store AuditStore,
	maxAttempts int,
	initialBackoff time.Duration,
	maxBackoff time.Duration,
	m *metrics.Metrics,
) *Dispatcher {
	return &Dispatcher{
		publisher:      publisher,
		store:          store,
		maxAttempts:    maxAttempts,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
		metrics:        m,
	}
}

// Dispatch publishes a notification for the given file, retrying transient
// failures with doubling backoff up to the attempt ceiling. Every attempt,
// success or failure, writes its own DispatchRecord. On confirmed delivery
// the file advances to done; after the ceiling it stays processed and is
// surfaced via logs and the stalled-dispatch metric, never silently
// dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, file *model.StfFile) error {
	notification := &stfevents.StfFileNotification{
		MsgType:       stfevents.MsgTypeStfFileRegistered,
		FileID:        file.FileID,
		RunNumber:     file.RunNumber,
		StfIdentifier: file.StfIdentifier,
		FileURL:       file.FileURL,
		SizeBytes:     file.SizeBytes,
		Checksum:      file.Checksum,
		Status:        string(model.FileProcessed),
		CreatedAt:     file.CreationTime,
		ProcessedAt:   time.Now().UTC(),
	}
	payload, err := notification.Marshal()
	if err != nil {
		return err
	}

	backoff := d.initialBackoff
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		publishErr := d.publisher.Publish(ctx, payload)
		d.metrics.RecordDispatchAttempt(publishErr == nil)

		record := &model.DispatchRecord{
			DispatchID:   uuid.New(),
			FileID:       file.FileID,
			DispatchTime: time.Now().UTC(),
			Payload:      payload,
			Success:      publishErr == nil,
		}
		if publishErr != nil {
			record.ErrorMessage = publishErr.Error()
		}
		// The audit row must not be lost even when the publish failed: it
		// is what lets an operator diagnose flaky delivery after the fact.
		if err := d.store.RecordDispatch(ctx, record); err != nil {
			log.WithError(err).Errorf("Could not write dispatch record for file %s", file.FileID)
		}

		if publishErr == nil {
			return d.store.MarkDone(ctx, file.FileID)
		}

		log.WithError(publishErr).
			WithField("fileId", file.FileID).
			Warnf("Publish attempt %d/%d failed", attempt, d.maxAttempts)

		if attempt == d.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			log.WithField("fileId", file.FileID).Info("Dispatch cancelled")
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > d.maxBackoff {
			backoff = d.maxBackoff
		}
	}

	d.metrics.RecordStalledDispatch()
	log.WithField("fileId", file.FileID).
		Warnf("Exhausted %d publish attempts; file remains processed and will be picked up by the re-dispatch pass", d.maxAttempts)
	return nil
}
