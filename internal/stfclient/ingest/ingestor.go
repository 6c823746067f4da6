// Package ingest consumes STF notifications and applies them to the local
// store. Messages are processed sequentially and acked only after a
// successful store: delivery is at-least-once and the store's idempotent
// upsert absorbs the replays.
package ingest

import (
	"context"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	log "github.com/sirupsen/logrus"

	"github.com/epic-swf/stfmon/internal/common/config"
	"github.com/epic-swf/stfmon/internal/common/pulsarutils"
	"github.com/epic-swf/stfmon/internal/common/util"
	"github.com/epic-swf/stfmon/internal/stfclient/metrics"
	"github.com/epic-swf/stfmon/internal/stfclient/model"
	"github.com/epic-swf/stfmon/pkg/stfevents"
)

// Store persists one notification idempotently. Satisfied by
// *clientdb.ClientDb.
type Store interface {
	Upsert(ctx context.Context, tf *model.TfMetadata) (bool, error)
}

type Ingestor struct {
	pulsarConfig config.PulsarConfig
	subscription string
	store        Store
	metrics      *metrics.Metrics
	consumer     pulsar.Consumer // injected in tests
}

func NewIngestor(pulsarConfig config.PulsarConfig, subscription string, store Store, m *metrics.Metrics) *Ingestor {
	return &Ingestor{
		pulsarConfig: pulsarConfig,
		subscription: subscription,
		store:        store,
		metrics:      m,
	}
}

// Run subscribes to the notification topic and processes messages until
// ctx is cancelled. Cancellation is a graceful drain: the receive loop
// stops producing, the in-flight store finishes, and only then does Run
// return.
func (i *Ingestor) Run(ctx context.Context) error {
	if i.consumer == nil {
		client, err := pulsarutils.NewPulsarClient(&i.pulsarConfig)
		if err != nil {
			return err
		}
		defer client.Close()

		consumer, err := client.Subscribe(pulsar.ConsumerOptions{
			Topic:                       i.pulsarConfig.NotificationTopic,
			SubscriptionName:            i.subscription,
			Type:                        pulsar.Failover,
			ReceiverQueueSize:           i.pulsarConfig.ReceiverQueueSize,
			SubscriptionInitialPosition: pulsar.SubscriptionPositionEarliest,
		})
		if err != nil {
			return err
		}
		defer consumer.Close()
		i.consumer = consumer
	}

	log.WithField("topic", i.pulsarConfig.NotificationTopic).
		WithField("subscription", i.subscription).
		Info("Subscribed to notification topic")

	messages := pulsarutils.Receive(ctx, i.consumer, i.pulsarConfig.ReceiveTimeout, i.pulsarConfig.BackoffTime, i.metrics)
	for msg := range messages {
		i.handleMessage(ctx, msg)
	}
	log.Info("Notification stream drained")
	return nil
}

func (i *Ingestor) handleMessage(ctx context.Context, msg pulsar.Message) {
	i.metrics.RecordMessageReceived()

	notification, err := stfevents.Unmarshal(msg.Payload())
	if err != nil {
		// A malformed message will never become parseable; ack it so it
		// cannot wedge the subscription.
		i.metrics.RecordMessageError("deserialization")
		log.WithError(err).Warnf("Could not unmarshal notification for msg %s", msg.ID())
		i.ack(ctx, msg)
		return
	}

	tf := FromNotification(notification, time.Now().UTC())
	// The store is responsible for retrying; an error here means it gave
	// up. Leave the message unacked so the broker redelivers it.
	if _, err := i.store.Upsert(ctx, tf); err != nil {
		i.metrics.RecordMessageError("store")
		log.WithError(err).Warnf("Could not store notification for file %s", tf.FileID)
		return
	}
	i.ack(ctx, msg)
}

func (i *Ingestor) ack(ctx context.Context, msg pulsar.Message) {
	msgId := msg.ID()
	util.RetryUntilSuccess(
		ctx,
		func() error { return i.consumer.AckID(msgId) },
		func(err error) {
			log.WithError(err).Warnf("Pulsar ack failed; backing off for %s", i.pulsarConfig.BackoffTime)
			time.Sleep(i.pulsarConfig.BackoffTime)
		},
	)
}
