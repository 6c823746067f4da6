package pulsarutils

import (
	"context"
	"errors"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/sirupsen/logrus"

	"github.com/epic-swf/stfmon/internal/common/logging"
)

// ConnectionErrorRecorder is implemented by metrics objects that count
// broker connection errors.
type ConnectionErrorRecorder interface {
	RecordPulsarConnectionError()
}

var msgLogger = logrus.NewEntry(logrus.StandardLogger())

// Receive returns a channel fed with messages from the given consumer. A
// receive timeout bounds every call so the loop can notice context
// cancellation; receive errors are treated as transient and retried after
// backoffTime. The channel is closed when ctx is cancelled.
func Receive(
	ctx context.Context,
	consumer pulsar.Consumer,
	receiveTimeout time.Duration,
	backoffTime time.Duration,
	m ConnectionErrorRecorder,
) chan pulsar.Message {
	out := make(chan pulsar.Message)
	go func() {
		// Periodically log the number of processed messages.
		logInterval := 60 * time.Second
		lastLogged := time.Now()
		numReceived := 0
		var lastMessageId pulsar.MessageID

		// Run until ctx is cancelled.
		for {
			// Periodic logging.
			if time.Since(lastLogged) > logInterval {
				msgLogger.WithFields(
					logrus.Fields{
						"received":      numReceived,
						"interval":      logInterval,
						"lastMessageId": lastMessageId,
					},
				).Info("message statistics")
				numReceived = 0
				lastLogged = time.Now()
			}

			// Exit if the context has been cancelled. Otherwise, get a message from Pulsar.
			select {
			case <-ctx.Done():
				msgLogger.Infof("Shutting down pulsar receiver")
				close(out)
				return
			default:
				ctxWithTimeout, cancel := context.WithTimeout(ctx, receiveTimeout)
				msg, err := consumer.Receive(ctxWithTimeout)
				cancel()
				if errors.Is(err, context.DeadlineExceeded) {
					msgLogger.Debugf("No message received")
					break // expected
				}
				// If receiving fails, try again in the hope that the problem is transient.
				// We don't need to distinguish between errors here, since any error means this function can't proceed.
				if err != nil {
					if m != nil {
						m.RecordPulsarConnectionError()
					}
					logging.
						WithStacktrace(msgLogger, err).
						WithField("lastMessageId", lastMessageId).
						Warnf("Pulsar receive failed; backing off for %s", backoffTime)
					time.Sleep(backoffTime)
					continue
				}

				numReceived++
				lastMessageId = msg.ID()
				out <- msg
			}
		}
	}()
	return out
}
